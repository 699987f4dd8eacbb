package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/manuasd05/weatherbot/internal/domain/weather"
)

// SnapshotStore caches provider results so repeated questions about the same
// place and window do not hit the upstream again, and keeps per-city request
// counters for the trending listing.
type SnapshotStore interface {
	Get(ctx context.Context, key SnapshotKey) (*weather.Result, bool, error)
	Save(ctx context.Context, key SnapshotKey, result *weather.Result, ttl time.Duration) error
	IncrementCity(ctx context.Context, city string) error
	TopCities(ctx context.Context, limit int) ([]TrendingCity, error)
}

// String renders the cache key. Forecast keys carry the span so a 3-day and
// a 7-day answer for the same date never collide.
func (k SnapshotKey) String() string {
	city := strings.ToLower(strings.TrimSpace(k.City))
	if k.Kind == weather.KindForecast {
		return fmt.Sprintf("%s:%s:%s:%d", k.Kind, city, k.Date, k.Days)
	}
	return fmt.Sprintf("%s:%s:%s", k.Kind, city, k.Date)
}
