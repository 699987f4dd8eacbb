package chat

import (
	"strings"
	"time"

	"github.com/manuasd05/weatherbot/internal/domain/weather"
	"github.com/manuasd05/weatherbot/pkg/metrics"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is one message of the conversation. The history is owned by the
// caller and passed by value on every request; the service never stores it.
type Turn struct {
	ID        string          `json:"id,omitempty"`
	Role      Role            `json:"role"`
	Content   string          `json:"content"`
	Timestamp time.Time       `json:"timestamp"`
	Weather   *weather.Result `json:"weatherData,omitempty"`
}

// PendingKind enumerates the clarification questions the bot can leave open.
type PendingKind string

// PendingCityConfirmation is currently the only clarification shape.
const PendingCityConfirmation PendingKind = "city_confirmation"

// PendingClarification is the single outstanding question the bot asked the
// user. At most one exists per conversation.
type PendingClarification struct {
	Kind      PendingKind `json:"type"`
	City      string      `json:"city"`
	CreatedAt time.Time   `json:"timestamp"`
}

// QueryRecord logs one successful weather fetch for the recency window.
type QueryRecord struct {
	City      string       `json:"city"`
	Kind      weather.Kind `json:"type"`
	Timestamp time.Time    `json:"timestamp"`
}

// Preferences carries per-user settings supplied by the caller.
type Preferences struct {
	UTCOffsetSeconds *int   `json:"timezone,omitempty"`
	Language         string `json:"language,omitempty"`
}

// Cache is the cross-turn conversation memory. It is owned by the caller,
// passed by reference into the service and mutated in place before the
// service returns. Callers must serialize requests per conversation; the
// cache is not safe for concurrent mutation.
type Cache struct {
	RecentCities []string              `json:"lastCities"`
	QueryHistory []QueryRecord         `json:"weatherHistory"`
	Pending      *PendingClarification `json:"pendingQuestion,omitempty"`
	Preferences  Preferences           `json:"userPreferences"`
}

// NewCache returns an empty conversation cache with defaults.
func NewCache() *Cache {
	return &Cache{Preferences: Preferences{Language: "es"}}
}

// RememberCity moves city to the front of the recent list, de-duplicated and
// bounded to max entries.
func (c *Cache) RememberCity(city string, max int) {
	if strings.TrimSpace(city) == "" {
		return
	}
	cities := make([]string, 0, max)
	cities = append(cities, city)
	for _, prev := range c.RecentCities {
		if strings.EqualFold(prev, city) {
			continue
		}
		cities = append(cities, prev)
		if len(cities) >= max {
			break
		}
	}
	c.RecentCities = cities
}

// RecordQuery appends a fetch outcome and prunes entries older than the
// retention window.
func (c *Cache) RecordQuery(city string, kind weather.Kind, now time.Time, retention time.Duration) {
	c.QueryHistory = append(c.QueryHistory, QueryRecord{City: city, Kind: kind, Timestamp: now})
	cutoff := now.Add(-retention)
	kept := c.QueryHistory[:0]
	for _, entry := range c.QueryHistory {
		if entry.Timestamp.After(cutoff) {
			kept = append(kept, entry)
		}
	}
	c.QueryHistory = kept
}

// SetPending replaces the clarification slot. Only one may exist at a time.
func (c *Cache) SetPending(city string, now time.Time) {
	c.Pending = &PendingClarification{
		Kind:      PendingCityConfirmation,
		City:      city,
		CreatedAt: now,
	}
}

// ClearPending resolves the outstanding clarification, if any.
func (c *Cache) ClearPending() {
	c.Pending = nil
}

// LastCity returns the most recently mentioned city, or empty.
func (c *Cache) LastCity() string {
	if len(c.RecentCities) == 0 {
		return ""
	}
	return c.RecentCities[0]
}

// Request is the per-turn input contract into the dialogue engine.
type Request struct {
	Message  string               `json:"message"`
	History  []Turn               `json:"history"`
	Location *weather.Coordinates `json:"location,omitempty"`
	Cache    *Cache               `json:"cache,omitempty"`
}

// Response is the per-turn output contract.
type Response struct {
	Message      string              `json:"message"`
	NeedsWeather bool                `json:"needsWeather"`
	Weather      *weather.Result     `json:"weatherData,omitempty"`
	TokenUsage   *metrics.TokenUsage `json:"tokenUsage,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// Config tunes the dialogue engine.
type Config struct {
	Model             string
	Temperature       float32
	HistoryWindow     int
	PromptTokenBudget int
	RecencyWindow     time.Duration
	HistoryRetention  time.Duration
	MaxRecentCities   int
	ExtremeHeatTemp   float64
	CurrentTTL        time.Duration
	ForecastTTL       time.Duration
}

// TrendingCity is an aggregate of how often a place has been asked about.
type TrendingCity struct {
	City  string `json:"city"`
	Count int64  `json:"count"`
}

// SnapshotKey addresses one cached provider result.
type SnapshotKey struct {
	City string
	Kind weather.Kind
	Date string
	Days int
}
