package cache

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	models "trade-journal/database/models_pkg"
)

const windowKeyPattern = "window:*"

// WindowCache stores serialized window responses keyed by their date range
type WindowCache struct {
	redis *RedisClient
}

// NewWindowCache creates a window cache; redis may be nil
func NewWindowCache(redis *RedisClient) *WindowCache {
	return &WindowCache{redis: redis}
}

// WindowKey returns the cache key for the window [start, end]
func WindowKey(start, end time.Time) string {
	return fmt.Sprintf("window:%s:%s", start.Format(models.DateLayout), end.Format(models.DateLayout))
}

// Get loads a cached window into dest and reports whether it was found
func (c *WindowCache) Get(ctx context.Context, start, end time.Time, dest interface{}) bool {
	err := c.redis.Get(ctx, WindowKey(start, end), dest)
	if err != nil && !errors.Is(err, ErrMiss) {
		log.Printf("⚠️ Window cache read failed: %v", err)
	}
	return err == nil
}

// Set caches a window for ttl; failures are logged and otherwise ignored
func (c *WindowCache) Set(ctx context.Context, start, end time.Time, value interface{}, ttl time.Duration) {
	if err := c.redis.Set(ctx, WindowKey(start, end), value, ttl); err != nil {
		log.Printf("⚠️ Window cache write failed: %v", err)
	}
}

// Invalidate drops every cached window, e.g. after new bars were ingested
func (c *WindowCache) Invalidate(ctx context.Context) {
	n, err := c.redis.DeletePattern(ctx, windowKeyPattern)
	if err != nil {
		log.Printf("⚠️ Window cache invalidation failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("🧹 Invalidated %d cached windows", n)
	}
}
