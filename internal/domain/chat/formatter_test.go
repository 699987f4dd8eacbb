package chat

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/manuasd05/weatherbot/internal/domain/weather"
)

func TestFormatCurrentFallback(t *testing.T) {
	snap := &weather.Snapshot{
		City: "Talca", Country: "Chile",
		Temp: 28, FeelsLike: 30, Description: "cielo despejado",
		Humidity: 40, WindSpeed: 12,
	}
	got := FormatCurrentFallback(snap)
	require.Contains(t, got, "Talca, Chile")
	require.Contains(t, got, "28°C")
	require.Contains(t, got, "sensación de 30°C")
	require.Contains(t, got, "cielo despejado")
	require.Contains(t, got, "Hace calor")

	snap.Temp = 5
	require.Contains(t, FormatCurrentFallback(snap), "Hace frío")

	snap.Temp = 18
	require.Contains(t, FormatCurrentFallback(snap), "Temperatura agradable")
}

func TestFormatForecastFallback(t *testing.T) {
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) // a Monday
	fc := &weather.Forecast{City: "Madrid", Country: "España"}
	for i := 0; i < 7; i++ {
		fc.Days = append(fc.Days, weather.ForecastDay{
			Date:        base.AddDate(0, 0, i).Unix(),
			TempMin:     8,
			TempMax:     float64(18 + i),
			Description: "nubes dispersas",
			RainProb:    0.3,
		})
	}

	got := FormatForecastFallback(fc, false)
	require.Contains(t, got, "Madrid, España")
	require.Contains(t, got, "**Hoy**")
	require.Contains(t, got, "**Mañana**")
	require.Contains(t, got, "lluvia: 30%")
	// Five days at most.
	require.Equal(t, 5, strings.Count(got, "nubes dispersas"))

	single := FormatForecastFallback(fc, true)
	require.Contains(t, single, "el día solicitado")
	require.Contains(t, single, "**Ese día**")
	require.Equal(t, 1, strings.Count(single, "nubes dispersas"))
}

func TestFormatPeriods(t *testing.T) {
	day := weather.ForecastDay{
		Temp:        weather.PeriodTemps{Morn: 12, Day: 24, Eve: 19, Night: 9},
		TempMin:     9,
		TempMax:     24,
		Description: "cielo despejado",
	}
	tc := ResolveTimeContext(15, nil)

	got := FormatPeriods(day, "Mañana", []Period{PeriodNight}, tc)
	require.Contains(t, got, "mañana")
	require.Contains(t, got, "Por la noche:** 9°C")
	require.NotContains(t, got, "Por la mañana")
	require.Contains(t, got, "cielo despejado")
	require.Contains(t, got, "¿Quieres saber algo más?")

	// Advisory bands, first match wins.
	day.TempMax = 32
	require.Contains(t, FormatPeriods(day, "Hoy", []Period{PeriodDay}, tc), "bastante calor")

	day.TempMax = 27
	require.Contains(t, FormatPeriods(day, "Hoy", []Period{PeriodDay}, tc), "Calor considerable")

	day.TempMax = 20
	day.TempMin = 2
	require.Contains(t, FormatPeriods(day, "Hoy", []Period{PeriodDay}, tc), "Frío intenso")

	day.TempMin = 10
	require.NotContains(t, FormatPeriods(day, "Hoy", []Period{PeriodDay}, tc), "🥵")
}

func TestDayLabel(t *testing.T) {
	monday := 1
	require.Equal(t, "Hoy", dayLabel(0, monday))
	require.Equal(t, "Mañana", dayLabel(1, monday))
	require.Equal(t, "Pasado mañana", dayLabel(2, monday))
	require.Equal(t, "Jueves", dayLabel(3, monday))
	require.Equal(t, "Domingo", dayLabel(6, monday))
}
