package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveTimeContextBuckets(t *testing.T) {
	cases := []struct {
		hour    int
		part    DayPart
		dark    bool
		symbol  string
	}{
		{5, DayPartMorning, false, "☀️"},
		{11, DayPartMorning, false, "☀️"},
		{12, DayPartAfternoon, false, "🌤️"},
		{16, DayPartAfternoon, false, "🌤️"},
		{17, DayPartNight, false, "🌆"},
		{20, DayPartNight, false, "🌆"},
		{21, DayPartNight, true, "🌙"},
		{22, DayPartNight, true, "🌙"},
		{23, DayPartDawn, true, "🌙"},
		{0, DayPartDawn, true, "🌙"},
		{4, DayPartDawn, true, "🌙"},
	}
	for _, tc := range cases {
		got := ResolveTimeContext(tc.hour, nil)
		require.Equal(t, tc.part, got.DayPart, "hour=%d", tc.hour)
		require.Equal(t, tc.dark, got.IsDark, "hour=%d", tc.hour)
		require.Equal(t, tc.symbol, got.Symbol, "hour=%d", tc.hour)
	}
}

func TestResolveTimeContextOffset(t *testing.T) {
	offset := -4 * 3600
	got := ResolveTimeContext(2, &offset)
	require.Equal(t, 22, got.Hour)
	require.Equal(t, DayPartNight, got.DayPart)
	require.True(t, got.IsDark)

	// Offsets round to the nearest whole hour.
	offset = 5*3600 + 1800
	got = ResolveTimeContext(10, &offset)
	require.Equal(t, 16, got.Hour)
	require.Equal(t, DayPartAfternoon, got.DayPart)

	// Wrap past midnight.
	offset = 10 * 3600
	got = ResolveTimeContext(20, &offset)
	require.Equal(t, 6, got.Hour)
	require.Equal(t, DayPartMorning, got.DayPart)
}

func TestTimeContextDescribe(t *testing.T) {
	require.Equal(t, "por la mañana", ResolveTimeContext(9, nil).Describe())
	require.Equal(t, "al atardecer", ResolveTimeContext(18, nil).Describe())
	require.Equal(t, "de noche (ya está oscuro)", ResolveTimeContext(22, nil).Describe())
	require.Equal(t, "de madrugada (está oscuro)", ResolveTimeContext(3, nil).Describe())
}
