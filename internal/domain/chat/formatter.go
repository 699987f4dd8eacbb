package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/manuasd05/weatherbot/internal/domain/weather"
)

// FormatCurrentFallback renders a current-conditions answer without the
// model. Total: never fails, never calls out.
func FormatCurrentFallback(snap *weather.Snapshot) string {
	emoji := "🌤️"
	tip := "¡Temperatura agradable! 😊"
	switch {
	case snap.Temp > 25:
		emoji = "☀️"
		tip = "¡Hace calor! 😎 Ropa ligera recomendada."
	case snap.Temp < 10:
		emoji = "❄️"
		tip = "¡Hace frío! ❄️ Abrígate bien."
	}

	return fmt.Sprintf(`%s Clima actual en %s, %s:

**Temperatura:** %.0f°C (sensación de %.0f°C)
**Clima:** %s
**Humedad:** %d%%
**Viento:** %.0f km/h

%s

¿Necesitas algo más?`,
		emoji, snap.City, snap.Country,
		snap.Temp, snap.FeelsLike, snap.Description, snap.Humidity, snap.WindSpeed, tip)
}

// FormatForecastFallback renders up to five forecast days, or just the one
// asked about.
func FormatForecastFallback(fc *weather.Forecast, singleDay bool) string {
	show := 5
	if singleDay {
		show = 1
	}
	if show > len(fc.Days) {
		show = len(fc.Days)
	}

	var lines []string
	for i := 0; i < show; i++ {
		day := fc.Days[i]
		var label string
		switch {
		case i == 0 && singleDay:
			label = "Ese día"
		case i == 0:
			label = "Hoy"
		case i == 1:
			label = "Mañana"
		default:
			label = titleCase(weekdayNames[int(time.Unix(day.Date, 0).Weekday())])
		}
		lines = append(lines, fmt.Sprintf("**%s**: %.0f°C - %.0f°C, %s (lluvia: %.0f%%)",
			label, day.TempMin, day.TempMax, day.Description, day.RainProb*100))
	}

	title := "🌤️ Pronóstico"
	if singleDay {
		title = "🌤️ Pronóstico para el día solicitado"
	}

	return fmt.Sprintf("%s en %s, %s:\n\n%s\n\n¿Necesitas más detalles?",
		title, fc.City, fc.Country, strings.Join(lines, "\n"))
}

var periodLabels = map[Period]struct {
	name string
	icon string
}{
	PeriodMorn:  {"Por la mañana", "🌅"},
	PeriodDay:   {"Por la tarde", "🌞"},
	PeriodEve:   {"Al atardecer", "🌆"},
	PeriodNight: {"Por la noche", "🌙"},
}

var periodOrder = []Period{PeriodMorn, PeriodDay, PeriodEve, PeriodNight}

// FormatPeriods renders the requested sub-periods of one forecast day.
// Deterministic: used instead of a second model call when the user asked
// about a specific part of the day.
func FormatPeriods(day weather.ForecastDay, dayLabel string, periods []Period, tc TimeContext) string {
	wanted := make(map[Period]bool, len(periods))
	for _, p := range periods {
		wanted[p] = true
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s Así estará %s:\n\n", tc.Symbol, strings.ToLower(dayLabel))
	for _, p := range periodOrder {
		if !wanted[p] {
			continue
		}
		label := periodLabels[p]
		fmt.Fprintf(&b, "%s **%s:** %.0f°C\n", label.icon, label.name, periodTemp(day.Temp, p))
	}
	fmt.Fprintf(&b, "\nEn general: %s", day.Description)

	if advisory := temperatureAdvisory(day.TempMax, day.TempMin); advisory != "" {
		b.WriteString("\n\n")
		b.WriteString(advisory)
	}

	b.WriteString("\n\n¿Quieres saber algo más? 😊")
	return b.String()
}

func periodTemp(t weather.PeriodTemps, p Period) float64 {
	switch p {
	case PeriodMorn:
		return t.Morn
	case PeriodDay:
		return t.Day
	case PeriodEve:
		return t.Eve
	default:
		return t.Night
	}
}

// First matching band wins.
func temperatureAdvisory(max, min float64) string {
	switch {
	case max > 30:
		return "🥵 Hará bastante calor, mantente hidratado y busca sombra."
	case max > 26:
		return "😎 Calor considerable, ropa ligera recomendada."
	case min < 5:
		return "🥶 Frío intenso, abrígate muy bien."
	}
	return ""
}
