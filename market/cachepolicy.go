package market

import (
	"fmt"
	"time"
)

// Cache lifetimes for aggregated window responses.
const (
	ActiveHoursCacheSeconds   = 3600
	InactiveHoursCacheSeconds = 1800

	activeFromHourUTC = 5
	activeToHourUTC   = 21 // inclusive

	staleWhileRevalidateSeconds = 300
)

// CacheSecondsFor returns how long an aggregated response may be cached at now.
// Hours 05..21 UTC get an hour; the rest of the night, when the daily refresh lands, half that.
func CacheSecondsFor(now time.Time) int {
	hour := now.UTC().Hour()
	if hour >= activeFromHourUTC && hour <= activeToHourUTC {
		return ActiveHoursCacheSeconds
	}
	return InactiveHoursCacheSeconds
}

// CacheTTL is CacheSecondsFor as a time.Duration.
func CacheTTL(now time.Time) time.Duration {
	return time.Duration(CacheSecondsFor(now)) * time.Second
}

// CacheControlHeader renders the Cache-Control value for an aggregated response.
func CacheControlHeader(now time.Time) string {
	return fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate=%d", CacheSecondsFor(now), staleWhileRevalidateSeconds)
}
