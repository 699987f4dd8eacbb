package chat

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/manuasd05/weatherbot/internal/domain/weather"
	apperrors "github.com/manuasd05/weatherbot/pkg/errors"
)

// Intent is the structured outcome of the model's resolution pass.
type Intent struct {
	NeedsWeather bool   `json:"needs_weather"`
	City         string `json:"city"`
	Type         string `json:"type"`
	DaysCount    int    `json:"days_count"`
	StartFrom    int    `json:"start_from"`
}

var (
	reIntentJSON   = regexp.MustCompile(`\{[^{}]*"needs_weather"[^{}]*\}`)
	reIntentMarker = regexp.MustCompile(`"needs_weather"`)

	genericCities = map[string]bool{
		"":          true,
		"ciudad":    true,
		"tu ciudad": true,
		"mi ciudad": true,
		"ahí":       true,
		"ahi":       true,
		"allí":      true,
		"alli":      true,
		"aquí":      true,
		"aqui":      true,
	}
)

// ParseIntent extracts the first intent object embedded in a model reply.
// Surrounding prose is permitted and ignored.
func ParseIntent(reply string) (Intent, error) {
	match := reIntentJSON.FindString(reply)
	if match == "" {
		return Intent{}, apperrors.Wrap(apperrors.CodeParse, "no intent object in model reply", nil)
	}
	var intent Intent
	if err := json.Unmarshal([]byte(match), &intent); err != nil {
		return Intent{}, apperrors.Wrap(apperrors.CodeParse, "malformed intent object", err)
	}
	if intent.Type != "forecast" {
		intent.Type = "current"
	}
	return intent, nil
}

// HasIntentMarker reports whether the reply still carries intent JSON, which
// must never be shown to the user.
func HasIntentMarker(reply string) bool {
	return reIntentMarker.MatchString(reply)
}

// StripIntentJSON removes intent objects from a reply, leaving any prose.
func StripIntentJSON(reply string) string {
	return strings.TrimSpace(reIntentJSON.ReplaceAllString(reply, ""))
}

// IsBareJSON reports whether the reply is nothing but the intent object, so
// there is no prose worth salvaging.
func IsBareJSON(reply string) bool {
	trimmed := strings.TrimSpace(reply)
	return strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")
}

// IsGenericCity reports whether the resolved city is a placeholder rather
// than a real location, meaning the user still has to be asked.
func IsGenericCity(city string) bool {
	return genericCities[strings.ToLower(strings.TrimSpace(city))]
}

// Kind maps the intent type onto the weather request kind.
func (in Intent) Kind() weather.Kind {
	if in.Type == "forecast" {
		return weather.KindForecast
	}
	return weather.KindCurrent
}
