package histstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/manuasd05/weatherbot/internal/domain/chat"
	"github.com/manuasd05/weatherbot/internal/domain/weather"
)

// ValkeyStore caches weather snapshots and trending counters in a
// Valkey-compatible database.
type ValkeyStore struct {
	client valkey.Client
	prefix string
}

// NewValkeyStore constructs a store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string) *ValkeyStore {
	if prefix == "" {
		prefix = "weather"
	}
	return &ValkeyStore{client: client, prefix: prefix}
}

func (s *ValkeyStore) Get(ctx context.Context, key chat.SnapshotKey) (*weather.Result, bool, error) {
	cmd := s.client.B().Get().Key(s.snapshotKey(key)).Build()
	payload, err := s.client.Do(ctx, cmd).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var result weather.Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, false, err
	}
	return &result, true, nil
}

func (s *ValkeyStore) Save(ctx context.Context, key chat.SnapshotKey, result *weather.Result, ttl time.Duration) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	builder := s.client.B().Set().Key(s.snapshotKey(key)).Value(string(payload))
	if ttl > 0 {
		return s.client.Do(ctx, builder.Ex(ttl).Build()).Error()
	}
	return s.client.Do(ctx, builder.Build()).Error()
}

func (s *ValkeyStore) IncrementCity(ctx context.Context, city string) error {
	if city == "" {
		return nil
	}
	cmd := s.client.B().Zincrby().Key(s.trendingKey()).Increment(1).Member(city).Build()
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) TopCities(ctx context.Context, limit int) ([]chat.TrendingCity, error) {
	if limit <= 0 {
		limit = 10
	}
	resp := s.client.Do(ctx, s.client.B().Zrevrange().Key(s.trendingKey()).Start(0).Stop(int64(limit-1)).Withscores().Build())
	arr, err := resp.ToArray()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]chat.TrendingCity, 0, len(arr))
	for i := 0; i < len(arr); {
		var (
			member string
			score  float64
		)
		if tuple, tupleErr := arr[i].ToArray(); tupleErr == nil && len(tuple) == 2 {
			// RESP3 returns [member, score] per element
			if member, err = tuple[0].ToString(); err != nil {
				if valkey.IsValkeyNil(err) {
					i++
					continue
				}
				return nil, err
			}
			if score, err = tuple[1].ToFloat64(); err != nil {
				return nil, err
			}
			i++
		} else {
			// RESP2 returns a flat alternating array.
			if i+1 >= len(arr) {
				break
			}
			if member, err = arr[i].ToString(); err != nil {
				if valkey.IsValkeyNil(err) {
					i += 2
					continue
				}
				return nil, err
			}
			if score, err = arr[i+1].ToFloat64(); err != nil {
				return nil, err
			}
			i += 2
		}
		out = append(out, chat.TrendingCity{City: member, Count: int64(score)})
	}
	return out, nil
}

func (s *ValkeyStore) snapshotKey(key chat.SnapshotKey) string {
	return fmt.Sprintf("%s:snapshot:%s", s.prefix, key.String())
}

func (s *ValkeyStore) trendingKey() string {
	return fmt.Sprintf("%s:trending:cities", s.prefix)
}

var _ chat.SnapshotStore = (*ValkeyStore)(nil)
