package chat

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/manuasd05/weatherbot/internal/domain/weather"
	"github.com/manuasd05/weatherbot/internal/infra/llm/groq"
	apperrors "github.com/manuasd05/weatherbot/pkg/errors"
	"github.com/manuasd05/weatherbot/pkg/metrics"
)

type stubChatClient struct {
	replies  []string
	usage    metrics.TokenUsage
	err      error
	calls    int
	requests []groq.ChatCompletionRequest
}

func (s *stubChatClient) Generate(_ context.Context, req groq.ChatCompletionRequest) (groq.Completion, error) {
	s.requests = append(s.requests, req)
	s.calls++
	if s.err != nil {
		return groq.Completion{}, s.err
	}
	if len(s.replies) == 0 {
		return groq.Completion{Usage: s.usage}, nil
	}
	reply := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return groq.Completion{Content: reply, Usage: s.usage}, nil
}

type stubWeatherClient struct {
	result   *weather.Result
	err      error
	calls    int
	requests []weather.Request
}

func (s *stubWeatherClient) Fetch(_ context.Context, req weather.Request) (*weather.Result, error) {
	s.requests = append(s.requests, req)
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newTestService(llm *stubChatClient, wc *stubWeatherClient) *service {
	return &service{
		cfg: Config{
			Model:             "llama-test",
			Temperature:       0.4,
			HistoryWindow:     15,
			PromptTokenBudget: 6000,
			RecencyWindow:     15 * time.Minute,
			HistoryRetention:  time.Hour,
			MaxRecentCities:   5,
			ExtremeHeatTemp:   30,
		},
		llm:     llm,
		weather: wc,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now: func() time.Time {
			return time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
		},
		rng: rand.New(rand.NewSource(1)),
	}
}

func TestRespondEmptyMessage(t *testing.T) {
	svc := newTestService(&stubChatClient{}, &stubWeatherClient{})
	_, err := svc.Respond(context.Background(), Request{Message: "   "})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalid))
}

func TestRespondFullIntentRoundTrip(t *testing.T) {
	llm := &stubChatClient{replies: []string{
		`{"needs_weather":true,"city":"Talca","type":"current"}`,
		"En Talca hay 21°C con cielo despejado. ¿Y mañana?",
	}}
	wc := &stubWeatherClient{result: &weather.Result{
		Current: &weather.Snapshot{City: "Talca", Country: "Chile", Temp: 21, Description: "cielo despejado"},
	}}
	svc := newTestService(llm, wc)

	cache := NewCache()
	resp, err := svc.Respond(context.Background(), Request{Message: "clima de Talca", Cache: cache})
	require.NoError(t, err)
	require.True(t, resp.NeedsWeather)
	require.Contains(t, resp.Message, "21°C")
	require.NotNil(t, resp.Weather)
	require.Equal(t, "Talca", resp.Weather.CityName())

	require.Equal(t, 1, wc.calls)
	require.Equal(t, weather.KindCurrent, wc.requests[0].Kind)
	require.Equal(t, 2, llm.calls)

	require.Equal(t, []string{"Talca"}, cache.RecentCities)
	require.Len(t, cache.QueryHistory, 1)
	require.Nil(t, cache.Pending)
}

func TestRespondCasualWithoutPending(t *testing.T) {
	llm := &stubChatClient{replies: []string{"¡De nada! 😊"}}
	wc := &stubWeatherClient{}
	svc := newTestService(llm, wc)

	resp, err := svc.Respond(context.Background(), Request{Message: "si", Cache: NewCache()})
	require.NoError(t, err)
	require.False(t, resp.NeedsWeather)
	require.Equal(t, "¡De nada! 😊", resp.Message)
	require.Equal(t, 0, wc.calls)
	require.Equal(t, 1, llm.calls)
	require.Equal(t, CasualSystemPrompt, llm.requests[0].Messages[0].Content)
}

func TestRespondCasualFallbackOnProviderError(t *testing.T) {
	llm := &stubChatClient{err: apperrors.Wrap(apperrors.CodeProvider, "boom", nil)}
	svc := newTestService(llm, &stubWeatherClient{})

	resp, err := svc.Respond(context.Background(), Request{Message: "gracias", Cache: NewCache()})
	require.NoError(t, err)
	require.Equal(t, msgCasualFallback, resp.Message)
}

func TestRespondPendingConfirmationYes(t *testing.T) {
	llm := &stubChatClient{replies: []string{"En Santiago hay 25°C ahora mismo. ¿Algo más?"}}
	wc := &stubWeatherClient{result: &weather.Result{
		Current: &weather.Snapshot{City: "Santiago", Country: "Chile", Temp: 25, Description: "soleado"},
	}}
	svc := newTestService(llm, wc)

	cache := NewCache()
	cache.SetPending("Santiago", time.Now())

	resp, err := svc.Respond(context.Background(), Request{Message: "sí", Cache: cache})
	require.NoError(t, err)
	require.True(t, resp.NeedsWeather)
	require.Equal(t, 1, wc.calls)
	require.Equal(t, "Santiago", wc.requests[0].City)
	require.Equal(t, weather.KindCurrent, wc.requests[0].Kind)
	require.Nil(t, cache.Pending)
}

func TestRespondPendingConfirmationNoFallsThrough(t *testing.T) {
	llm := &stubChatClient{replies: []string{"¡Entendido! Avísame si necesitas algo."}}
	wc := &stubWeatherClient{}
	svc := newTestService(llm, wc)

	cache := NewCache()
	cache.SetPending("Santiago", time.Now())

	resp, err := svc.Respond(context.Background(), Request{Message: "no, gracias", Cache: cache})
	require.NoError(t, err)
	require.False(t, resp.NeedsWeather)
	require.Nil(t, cache.Pending)
	require.Equal(t, 0, wc.calls)
	// The message still got its casual resolution after consuming the "no".
	require.Equal(t, 1, llm.calls)
}

func TestRespondPendingCityFill(t *testing.T) {
	llm := &stubChatClient{replies: []string{"Esta semana en Valdivia se esperan lluvias. ¿Algo más?"}}
	wc := &stubWeatherClient{result: forecastResult("Valdivia", 7, 0)}
	svc := newTestService(llm, wc)

	cache := NewCache()
	cache.SetPending("", time.Now())

	resp, err := svc.Respond(context.Background(), Request{Message: "Valdivia", Cache: cache})
	require.NoError(t, err)
	require.True(t, resp.NeedsWeather)
	require.Equal(t, 1, wc.calls)
	require.Equal(t, "Valdivia", wc.requests[0].City)
	require.Equal(t, weather.KindForecast, wc.requests[0].Kind)
	require.Equal(t, 7, wc.requests[0].Days)
	require.Nil(t, cache.Pending)
}

func TestRespondBareCityShortcut(t *testing.T) {
	llm := &stubChatClient{replies: []string{"Talca tendrá una semana templada. ¿Algo más?"}}
	wc := &stubWeatherClient{result: forecastResult("Talca", 7, 0)}
	svc := newTestService(llm, wc)

	cache := NewCache()
	resp, err := svc.Respond(context.Background(), Request{Message: "Talca esta semana", Cache: cache})
	require.NoError(t, err)
	require.True(t, resp.NeedsWeather)
	require.Equal(t, 1, wc.calls)
	require.Equal(t, "Talca", wc.requests[0].City)
	require.Equal(t, weather.KindForecast, wc.requests[0].Kind)
}

func TestRespondStartOffsetOutOfRange(t *testing.T) {
	llm := &stubChatClient{replies: []string{
		`{"needs_weather":true,"city":"Talca","type":"forecast","days_count":1,"start_from":9}`,
	}}
	wc := &stubWeatherClient{}
	svc := newTestService(llm, wc)

	resp, err := svc.Respond(context.Background(), Request{Message: "clima de Talca en dos semanas", Cache: NewCache()})
	require.NoError(t, err)
	require.Equal(t, msgRangeLimit, resp.Message)
	require.False(t, resp.NeedsWeather)
	require.Equal(t, 0, wc.calls)
}

func TestRespondCityBackfillFromRecent(t *testing.T) {
	llm := &stubChatClient{replies: []string{
		`{"needs_weather":true,"city":"","type":"current"}`,
		"Sigue soleado en Madrid. ¿Algo más?",
	}}
	wc := &stubWeatherClient{result: &weather.Result{
		Current: &weather.Snapshot{City: "Madrid", Country: "España", Temp: 19, Description: "soleado"},
	}}
	svc := newTestService(llm, wc)

	cache := NewCache()
	cache.RememberCity("Madrid", 5)

	resp, err := svc.Respond(context.Background(), Request{Message: "y el clima ahí?", Cache: cache})
	require.NoError(t, err)
	require.True(t, resp.NeedsWeather)
	require.Equal(t, 1, wc.calls)
	require.Equal(t, "Madrid", wc.requests[0].City)
}

func TestRespondGenericCityCreatesPending(t *testing.T) {
	llm := &stubChatClient{replies: []string{
		`{"needs_weather":true,"city":"ciudad","type":"current"}`,
	}}
	wc := &stubWeatherClient{}
	svc := newTestService(llm, wc)

	cache := NewCache()
	resp, err := svc.Respond(context.Background(), Request{Message: "dame el clima", Cache: cache})
	require.NoError(t, err)
	require.Equal(t, msgAskCity, resp.Message)
	require.Equal(t, 0, wc.calls)
	require.NotNil(t, cache.Pending)
}

func TestRespondGenericCityUsesCoordinates(t *testing.T) {
	llm := &stubChatClient{replies: []string{
		`{"needs_weather":true,"city":"","type":"current"}`,
		"Hace 17°C donde estás. ¿Algo más?",
	}}
	wc := &stubWeatherClient{result: &weather.Result{
		Current: &weather.Snapshot{City: "Curicó", Country: "Chile", Temp: 17, Description: "nublado"},
	}}
	svc := newTestService(llm, wc)

	loc := &weather.Coordinates{Lat: -34.98, Lon: -71.24}
	resp, err := svc.Respond(context.Background(), Request{Message: "dame el clima", Location: loc, Cache: NewCache()})
	require.NoError(t, err)
	require.True(t, resp.NeedsWeather)
	require.Equal(t, 1, wc.calls)
	require.NotNil(t, wc.requests[0].Coords)
	require.Equal(t, loc.Lat, wc.requests[0].Coords.Lat)
	require.Empty(t, wc.requests[0].City)
}

func TestRespondPlaceholderCityClearedOnCoordinateBackfill(t *testing.T) {
	llm := &stubChatClient{replies: []string{
		`{"needs_weather":true,"city":"ciudad","type":"current"}`,
		"Hace 17°C donde estás. ¿Algo más?",
	}}
	wc := &stubWeatherClient{result: &weather.Result{
		Current: &weather.Snapshot{Temp: 17, Description: "nublado"},
	}}
	svc := newTestService(llm, wc)

	cache := NewCache()
	loc := &weather.Coordinates{Lat: -33.45, Lon: -70.67}
	resp, err := svc.Respond(context.Background(), Request{Message: "dame el clima", Location: loc, Cache: cache})
	require.NoError(t, err)
	require.True(t, resp.NeedsWeather)
	require.Empty(t, wc.requests[0].City)
	require.NotNil(t, wc.requests[0].Coords)

	// The unresolved result must not seed the recent-city backfill.
	require.Empty(t, cache.RecentCities)
	require.Empty(t, cache.QueryHistory)
}

func TestRespondDuplicateSameTurnPair(t *testing.T) {
	llm := &stubChatClient{replies: []string{
		`{"needs_weather":true,"city":"Talca","type":"current"}`,
		"Ya tienes el clima de Talca. ¿Quieres otro día?",
	}}
	wc := &stubWeatherClient{}
	svc := newTestService(llm, wc)

	history := []Turn{
		{Role: RoleUser, Content: "clima de Talca"},
		{Role: RoleAssistant, Content: "21°C", Weather: currentResult("Talca")},
	}
	resp, err := svc.Respond(context.Background(), Request{Message: "dame el clima de Talca", History: history, Cache: NewCache()})
	require.NoError(t, err)
	require.False(t, resp.NeedsWeather)
	require.Equal(t, 0, wc.calls)
	require.Contains(t, resp.Message, "Talca")
}

func TestRespondDuplicateRecencyWindow(t *testing.T) {
	llm := &stubChatClient{replies: []string{
		`{"needs_weather":true,"city":"Talca","type":"current"}`,
	}}
	wc := &stubWeatherClient{}
	svc := newTestService(llm, wc)

	cache := NewCache()
	cache.RecordQuery("Talca", weather.KindCurrent, svc.now().Add(-5*time.Minute), time.Hour)

	resp, err := svc.Respond(context.Background(), Request{Message: "clima de Talca", Cache: cache})
	require.NoError(t, err)
	require.Equal(t, 0, wc.calls)
	require.Equal(t, 1, llm.calls)
	require.Contains(t, resp.Message, "Hace unos minutos")
}

func TestRespondCityNotFound(t *testing.T) {
	llm := &stubChatClient{replies: []string{
		`{"needs_weather":true,"city":"Xyzabc","type":"current"}`,
	}}
	wc := &stubWeatherClient{err: apperrors.Wrap(apperrors.CodeNotFound, "city not found", nil)}
	svc := newTestService(llm, wc)

	resp, err := svc.Respond(context.Background(), Request{Message: "clima de Xyzabc", Cache: NewCache()})
	require.NoError(t, err)
	require.False(t, resp.NeedsWeather)
	require.Contains(t, resp.Message, `"Xyzabc"`)
	require.Contains(t, resp.Message, "[País]")
}

func TestRespondWeatherProviderError(t *testing.T) {
	llm := &stubChatClient{replies: []string{
		`{"needs_weather":true,"city":"Talca","type":"current"}`,
	}}
	wc := &stubWeatherClient{err: apperrors.Wrap(apperrors.CodeProvider, "upstream down", nil)}
	svc := newTestService(llm, wc)

	resp, err := svc.Respond(context.Background(), Request{Message: "clima de Talca", Cache: NewCache()})
	require.NoError(t, err)
	require.Equal(t, msgProviderFallback, resp.Message)
	require.NotEmpty(t, resp.Error)
}

func TestRespondIntentWithoutWeatherNeed(t *testing.T) {
	llm := &stubChatClient{replies: []string{
		`Soy un asistente del clima, pregúntame por cualquier ciudad. {"needs_weather":false,"city":"","type":"current"}`,
	}}
	wc := &stubWeatherClient{}
	svc := newTestService(llm, wc)

	resp, err := svc.Respond(context.Background(), Request{Message: "qué tiempo podrías darme", Cache: NewCache()})
	require.NoError(t, err)
	require.False(t, resp.NeedsWeather)
	require.Equal(t, 0, wc.calls)
	require.NotContains(t, resp.Message, "needs_weather")
}

func TestRespondMetaQuestionStripsIntent(t *testing.T) {
	llm := &stubChatClient{replies: []string{
		`{"needs_weather":true,"city":"ciudad","type":"forecast","days_count":7,"start_from":0}`,
	}}
	wc := &stubWeatherClient{}
	svc := newTestService(llm, wc)

	resp, err := svc.Respond(context.Background(), Request{Message: "¿cuántos días puedes mostrar?", Cache: NewCache()})
	require.NoError(t, err)
	require.Equal(t, msgCapabilities, resp.Message)
	require.Equal(t, 0, wc.calls)
}

func TestRespondBareJSONNeverLeaks(t *testing.T) {
	llm := &stubChatClient{replies: []string{`{"searching": true}`}}
	svc := newTestService(llm, &stubWeatherClient{})

	resp, err := svc.Respond(context.Background(), Request{Message: "hola, qué puedes hacer?", Cache: NewCache()})
	require.NoError(t, err)
	require.Equal(t, msgSearchPlaceholder, resp.Message)
}

func TestRespondIntentCallConfigError(t *testing.T) {
	llm := &stubChatClient{err: apperrors.Wrap(apperrors.CodeConfig, "groq api key not configured", nil)}
	svc := newTestService(llm, &stubWeatherClient{})

	_, err := svc.Respond(context.Background(), Request{Message: "hola, qué me cuentas hoy?", Cache: NewCache()})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, apperrors.CodeConfig))
}

func TestRespondPeriodFormatterSkipsSecondCall(t *testing.T) {
	llm := &stubChatClient{replies: []string{
		`{"needs_weather":true,"city":"Talca","type":"forecast","days_count":1,"start_from":0}`,
	}}
	fc := forecastResult("Talca", 1, 0)
	fc.Forecast.Days[0].Temp = weather.PeriodTemps{Morn: 10, Day: 22, Eve: 18, Night: 8}
	fc.Forecast.Days[0].Description = "cielo despejado"
	wc := &stubWeatherClient{result: fc}
	svc := newTestService(llm, wc)

	resp, err := svc.Respond(context.Background(), Request{Message: "¿cómo estará el clima esta noche?", Cache: NewCache()})
	require.NoError(t, err)
	require.True(t, resp.NeedsWeather)
	// Only the intent call; the period formatter answered deterministically.
	require.Equal(t, 1, llm.calls)
	require.Contains(t, resp.Message, "Por la noche")
	require.Contains(t, resp.Message, "8°C")
}

func TestRespondFallbackFormatterOnSecondCallFailure(t *testing.T) {
	llm := &stubChatClient{replies: []string{
		`{"needs_weather":true,"city":"Talca","type":"current"}`,
		"", // second call yields nothing useful
	}}
	wc := &stubWeatherClient{result: &weather.Result{
		Current: &weather.Snapshot{City: "Talca", Country: "Chile", Temp: 21, Description: "cielo despejado", Humidity: 50, WindSpeed: 10},
	}}
	svc := newTestService(llm, wc)

	resp, err := svc.Respond(context.Background(), Request{Message: "clima de Talca", Cache: NewCache()})
	require.NoError(t, err)
	require.True(t, resp.NeedsWeather)
	require.Contains(t, resp.Message, "Clima actual en Talca, Chile")
	require.Contains(t, resp.Message, "21°C")
}

func TestRespondPendingSingleSlotAcrossTurns(t *testing.T) {
	llm := &stubChatClient{replies: []string{
		`{"needs_weather":true,"city":"ciudad","type":"current"}`,
		`{"needs_weather":true,"city":"tu ciudad","type":"current"}`,
	}}
	wc := &stubWeatherClient{}
	svc := newTestService(llm, wc)

	cache := NewCache()
	_, err := svc.Respond(context.Background(), Request{Message: "dame el clima", Cache: cache})
	require.NoError(t, err)
	require.NotNil(t, cache.Pending)

	// A second ambiguous message replaces, never duplicates, the slot.
	_, err = svc.Respond(context.Background(), Request{Message: "quiero saber el clima", Cache: cache})
	require.NoError(t, err)
	require.NotNil(t, cache.Pending)
	require.Equal(t, 0, wc.calls)
}

func TestRespondAggregatesTokenUsage(t *testing.T) {
	llm := &stubChatClient{
		replies: []string{
			`{"needs_weather":true,"city":"Talca","type":"current"}`,
			"En Talca hay 21°C con cielo despejado.",
		},
		usage: metrics.TokenUsage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
	}
	wc := &stubWeatherClient{result: &weather.Result{
		Current: &weather.Snapshot{City: "Talca", Temp: 21, Description: "cielo despejado"},
	}}
	svc := newTestService(llm, wc)

	resp, err := svc.Respond(context.Background(), Request{Message: "clima de Talca", Cache: NewCache()})
	require.NoError(t, err)
	require.Equal(t, 2, llm.calls)
	require.NotNil(t, resp.TokenUsage)
	require.Equal(t, 240, resp.TokenUsage.TotalTokens)
	require.Equal(t, 200, resp.TokenUsage.PromptTokens)
}

func TestRespondOmitsTokenUsageWhenUnreported(t *testing.T) {
	llm := &stubChatClient{replies: []string{"¡De nada! 😊"}}
	svc := newTestService(llm, &stubWeatherClient{})

	resp, err := svc.Respond(context.Background(), Request{Message: "gracias", Cache: NewCache()})
	require.NoError(t, err)
	require.Nil(t, resp.TokenUsage)
}
