package histstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/manuasd05/weatherbot/internal/domain/chat"
	"github.com/manuasd05/weatherbot/internal/domain/weather"
)

type cachedResult struct {
	payload   *weather.Result
	expiresAt time.Time
}

// MemoryStore is an in-memory snapshot store for tests/dev.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]cachedResult
	trending  map[string]int64
}

// NewMemoryStore constructs a store backed by process memory.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		snapshots: make(map[string]cachedResult),
		trending:  make(map[string]int64),
	}
}

func (s *MemoryStore) Get(_ context.Context, key chat.SnapshotKey) (*weather.Result, bool, error) {
	s.mu.RLock()
	record, ok := s.snapshots[key.String()]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if hasExpired(record.expiresAt) {
		s.mu.Lock()
		delete(s.snapshots, key.String())
		s.mu.Unlock()
		return nil, false, nil
	}
	return record.payload, true, nil
}

func (s *MemoryStore) Save(_ context.Context, key chat.SnapshotKey, result *weather.Result, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp := time.Time{}
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	s.snapshots[key.String()] = cachedResult{payload: result, expiresAt: exp}
	return nil
}

func (s *MemoryStore) IncrementCity(_ context.Context, city string) error {
	if city == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trending[city]++
	return nil
}

func (s *MemoryStore) TopCities(_ context.Context, limit int) ([]chat.TrendingCity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = len(s.trending)
	}
	items := make([]chat.TrendingCity, 0, len(s.trending))
	for city, count := range s.trending {
		items = append(items, chat.TrendingCity{City: city, Count: count})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count == items[j].Count {
			return items[i].City < items[j].City
		}
		return items[i].Count > items[j].Count
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func hasExpired(ts time.Time) bool {
	if ts.IsZero() {
		return false
	}
	return ts.Before(time.Now())
}

var _ chat.SnapshotStore = (*MemoryStore)(nil)
