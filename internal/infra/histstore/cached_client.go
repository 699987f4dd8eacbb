package histstore

import (
	"context"
	"log/slog"
	"time"

	"github.com/manuasd05/weatherbot/internal/domain/chat"
	"github.com/manuasd05/weatherbot/internal/domain/weather"
	"github.com/manuasd05/weatherbot/pkg/util"
)

// CachedClient wraps a weather provider with the snapshot store. Cache
// failures degrade to a plain provider call; they never fail the fetch.
type CachedClient struct {
	inner       chat.WeatherClient
	store       chat.SnapshotStore
	currentTTL  time.Duration
	forecastTTL time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewCachedClient wraps inner with snapshot caching and trending counters.
func NewCachedClient(inner chat.WeatherClient, store chat.SnapshotStore, currentTTL, forecastTTL time.Duration, logger *slog.Logger) *CachedClient {
	return &CachedClient{
		inner:       inner,
		store:       store,
		currentTTL:  currentTTL,
		forecastTTL: forecastTTL,
		logger:      logger.With("component", "histstore.cached_client"),
		now:         util.NowUTC,
	}
}

func (c *CachedClient) Fetch(ctx context.Context, req weather.Request) (*weather.Result, error) {
	key, cacheable := c.cacheKey(req)

	if cacheable {
		if cached, ok, err := c.store.Get(ctx, key); err != nil {
			c.logger.Warn("snapshot lookup failed", "key", key.String(), "error", err)
		} else if ok {
			c.bumpTrending(ctx, cached.CityName())
			return cached, nil
		}
	}

	result, err := c.inner.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	if cacheable {
		ttl := c.currentTTL
		if req.Kind == weather.KindForecast {
			ttl = c.forecastTTL
		}
		if err := c.store.Save(ctx, key, result, ttl); err != nil {
			c.logger.Warn("snapshot save failed", "key", key.String(), "error", err)
		}
	}
	c.bumpTrending(ctx, result.CityName())
	return result, nil
}

// Coordinate-based requests are not cached: the key is the city name, and a
// raw lat/lon pair has none until the provider resolves it. The check is on
// the coordinates too, not just an empty city, so a request carrying both
// never shares a key across locations.
func (c *CachedClient) cacheKey(req weather.Request) (chat.SnapshotKey, bool) {
	if req.City == "" || req.Coords != nil {
		return chat.SnapshotKey{}, false
	}
	return chat.SnapshotKey{
		City: req.City,
		Kind: req.Kind,
		Date: weather.CacheDate(c.now(), req.StartOffset),
		Days: req.Days,
	}, true
}

func (c *CachedClient) bumpTrending(ctx context.Context, city string) {
	if err := c.store.IncrementCity(ctx, city); err != nil {
		c.logger.Warn("trending increment failed", "city", city, "error", err)
	}
}

var _ chat.WeatherClient = (*CachedClient)(nil)
