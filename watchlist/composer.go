// Package watchlist joins the latest price per symbol with a user's visibility preferences.
package watchlist

import (
	"context"
	"fmt"
	"log"
	"sort"

	models "trade-journal/database/models_pkg"
	"trade-journal/helpers"
)

// SnapshotSource returns the most recent bar per symbol; an empty filter means all symbols.
type SnapshotSource interface {
	LatestSnapshots(ctx context.Context, symbols []string) ([]models.LatestSnapshot, error)
}

// PreferenceSource returns symbol -> visible for one user.
type PreferenceSource interface {
	VisibilityFor(ctx context.Context, userID string) (map[string]bool, error)
}

// Item is one watchlist row as shown to the user.
type Item struct {
	ID        int64   `json:"id"`
	Symbol    string  `json:"symbol"`
	Date      string  `json:"date"`
	Price     float64 `json:"price"`
	Change    string  `json:"change"`
	IsVisible bool    `json:"isVisible"`
}

// Composer builds watchlists.
type Composer struct {
	snapshots   SnapshotSource
	preferences PreferenceSource
}

// NewComposer creates a Composer.
func NewComposer(snapshots SnapshotSource, preferences PreferenceSource) *Composer {
	return &Composer{snapshots: snapshots, preferences: preferences}
}

// Compose returns one item per symbol with a snapshot, sorted by symbol. Symbols the
// user has no preference for are hidden. If preferences cannot be read every item is
// hidden and the error is only logged; a snapshot failure fails the call.
func (c *Composer) Compose(ctx context.Context, userID string) ([]Item, error) {
	snapshots, err := c.snapshots.LatestSnapshots(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("loading latest snapshots: %w", err)
	}

	prefs, err := c.preferences.VisibilityFor(ctx, userID)
	if err != nil {
		log.Printf("⚠️ Failed to load watchlist preferences for %s, hiding all symbols: %v", userID, err)
		prefs = nil
	}

	items := make([]Item, 0, len(snapshots))
	for _, s := range snapshots {
		items = append(items, Item{
			ID:        s.ID,
			Symbol:    s.Symbol,
			Date:      s.Date.Format(models.DateLayout),
			Price:     helpers.RoundPrice(s.Close),
			Change:    helpers.FormatChangePercent(s.ChangePercent),
			IsVisible: prefs[s.Symbol],
		})
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Symbol < items[j].Symbol })
	return items, nil
}

// ComposeVisible is Compose restricted to the items the user has made visible.
func (c *Composer) ComposeVisible(ctx context.Context, userID string) ([]Item, error) {
	items, err := c.Compose(ctx, userID)
	if err != nil {
		return nil, err
	}

	visible := items[:0]
	for _, item := range items {
		if item.IsVisible {
			visible = append(visible, item)
		}
	}
	return visible, nil
}
