package chat

import (
	"strings"
	"time"

	"github.com/manuasd05/weatherbot/internal/domain/weather"
)

// SameQuery reports whether a previous result answers exactly the request at
// hand: same city (case-insensitive), same kind, and for forecasts the same
// span and the same starting day.
func SameQuery(prev *weather.Result, req weather.Request) bool {
	if prev == nil {
		return false
	}
	if !strings.EqualFold(prev.CityName(), req.City) {
		return false
	}
	prevKind := weather.KindCurrent
	if prev.IsForecast() {
		prevKind = weather.KindForecast
	}
	if prevKind != req.Kind {
		return false
	}
	if req.Kind == weather.KindForecast {
		if prev.StartOffset != req.StartOffset {
			return false
		}
		if prev.DayCount() != req.Days {
			return false
		}
	}
	return true
}

// LastWeatherResult scans the tail of the history for a result attached in
// the immediately preceding exchange. Only the last two turns count; older
// data is considered stale for reuse.
func LastWeatherResult(history []Turn) *weather.Result {
	start := len(history) - 2
	if start < 0 {
		start = 0
	}
	for i := len(history) - 1; i >= start; i-- {
		if history[i].Weather != nil {
			return history[i].Weather
		}
	}
	return nil
}

// RecentDuplicate reports whether the same city and kind were fetched within
// the recency window, so the model can be told to vary its wording.
func RecentDuplicate(cache *Cache, city string, kind weather.Kind, now time.Time, window time.Duration) bool {
	if cache == nil {
		return false
	}
	cutoff := now.Add(-window)
	for _, entry := range cache.QueryHistory {
		if entry.Kind == kind && strings.EqualFold(entry.City, city) && entry.Timestamp.After(cutoff) {
			return true
		}
	}
	return false
}
