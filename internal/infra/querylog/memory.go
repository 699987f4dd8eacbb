package querylog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/manuasd05/weatherbot/internal/domain/chat"
	"github.com/manuasd05/weatherbot/internal/domain/weather"
)

type entry struct {
	city string
	kind weather.Kind
	at   time.Time
}

// MemoryLog is an in-memory query log for tests/dev.
type MemoryLog struct {
	mu      sync.RWMutex
	entries []entry
}

// NewMemoryLog constructs a log backed by process memory.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

func (l *MemoryLog) Record(_ context.Context, city string, kind weather.Kind, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry{city: city, kind: kind, at: at})
	return nil
}

func (l *MemoryLog) CountSince(_ context.Context, cutoff time.Time, limit int) ([]chat.TrendingCity, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	counts := make(map[string]int64)
	for _, e := range l.entries {
		if !e.at.Before(cutoff) {
			counts[e.city]++
		}
	}
	out := make([]chat.TrendingCity, 0, len(counts))
	for city, count := range counts {
		out = append(out, chat.TrendingCity{City: city, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].City < out[j].City
		}
		return out[i].Count > out[j].Count
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ chat.QueryLog = (*MemoryLog)(nil)
