package chat

import "math"

// DayPart is one of four coarse buckets of the day.
type DayPart string

const (
	DayPartDawn      DayPart = "dawn"
	DayPartMorning   DayPart = "morning"
	DayPartAfternoon DayPart = "afternoon"
	DayPartNight     DayPart = "night"
)

// TimeContext describes the caller's local moment. Recomputed fresh on every
// request, never persisted.
type TimeContext struct {
	Hour    int
	DayPart DayPart
	IsDark  bool
	Symbol  string
}

// ResolveTimeContext derives the caller-local hour from the server clock and
// an optional UTC offset, then buckets it into a day part.
func ResolveTimeContext(hour int, utcOffsetSeconds *int) TimeContext {
	if utcOffsetSeconds != nil {
		shift := int(math.Round(float64(*utcOffsetSeconds) / 3600))
		hour = ((hour+shift)%24 + 24) % 24
	}

	tc := TimeContext{Hour: hour}
	switch {
	case hour >= 5 && hour <= 11:
		tc.DayPart = DayPartMorning
		tc.Symbol = "☀️"
	case hour >= 12 && hour <= 16:
		tc.DayPart = DayPartAfternoon
		tc.Symbol = "🌤️"
	case hour >= 17 && hour <= 20:
		// Dusk: night bucket but not yet dark.
		tc.DayPart = DayPartNight
		tc.Symbol = "🌆"
	case hour >= 21 && hour <= 22:
		tc.DayPart = DayPartNight
		tc.IsDark = true
		tc.Symbol = "🌙"
	default: // 23:00–04:59
		tc.DayPart = DayPartDawn
		tc.IsDark = true
		tc.Symbol = "🌙"
	}
	return tc
}

// Describe renders the context for prompt embedding.
func (tc TimeContext) Describe() string {
	switch tc.DayPart {
	case DayPartMorning:
		return "por la mañana"
	case DayPartAfternoon:
		return "por la tarde"
	case DayPartNight:
		if tc.IsDark {
			return "de noche (ya está oscuro)"
		}
		return "al atardecer"
	default:
		return "de madrugada (está oscuro)"
	}
}
