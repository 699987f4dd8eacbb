package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/manuasd05/weatherbot/internal/domain/chat"
	"github.com/manuasd05/weatherbot/internal/domain/weather"
	"github.com/manuasd05/weatherbot/internal/infra/config"
	apperrors "github.com/manuasd05/weatherbot/pkg/errors"
)

type stubChatService struct {
	respondFn func(ctx context.Context, req chat.Request) (chat.Response, error)
}

func (s *stubChatService) Respond(ctx context.Context, req chat.Request) (chat.Response, error) {
	if s.respondFn == nil {
		return chat.Response{}, nil
	}
	return s.respondFn(ctx, req)
}

type stubWeather struct {
	fetchFn func(ctx context.Context, req weather.Request) (*weather.Result, error)
}

func (s *stubWeather) Fetch(ctx context.Context, req weather.Request) (*weather.Result, error) {
	return s.fetchFn(ctx, req)
}

type stubStore struct {
	cities []chat.TrendingCity
	err    error
}

func (s *stubStore) Get(context.Context, chat.SnapshotKey) (*weather.Result, bool, error) {
	return nil, false, nil
}
func (s *stubStore) Save(context.Context, chat.SnapshotKey, *weather.Result, time.Duration) error {
	return nil
}
func (s *stubStore) IncrementCity(context.Context, string) error { return nil }
func (s *stubStore) TopCities(context.Context, int) ([]chat.TrendingCity, error) {
	return s.cities, s.err
}

type stubQueryLog struct {
	cities []chat.TrendingCity
	err    error
	counts int
}

func (s *stubQueryLog) Record(context.Context, string, weather.Kind, time.Time) error { return nil }
func (s *stubQueryLog) CountSince(context.Context, time.Time, int) ([]chat.TrendingCity, error) {
	s.counts++
	return s.cities, s.err
}

func newRouterUnderTest(t *testing.T, svc chat.Service, wc chat.WeatherClient, store chat.SnapshotStore) http.Handler {
	t.Helper()
	return newRouterWithQueryLog(t, svc, wc, store, &stubQueryLog{})
}

func newRouterWithQueryLog(t *testing.T, svc chat.Service, wc chat.WeatherClient, store chat.SnapshotStore, queries chat.QueryLog) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(svc, wc, store, queries, logger)
	cfg := &config.Config{}
	cfg.HTTP.Address = ":0"
	return NewRouter(cfg, handler).Handler
}

func performPost(path, body string, router http.Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)
	return recorder
}

func TestRouter_ChatSuccess(t *testing.T) {
	svc := &stubChatService{
		respondFn: func(_ context.Context, req chat.Request) (chat.Response, error) {
			require.Equal(t, "clima de Talca", req.Message)
			req.Cache.RememberCity("Talca", 5)
			return chat.Response{Message: "21°C en Talca", NeedsWeather: true}, nil
		},
	}
	router := newRouterUnderTest(t, svc, &stubWeather{}, &stubStore{})

	recorder := performPost("/api/v1/chat", `{"message":"clima de Talca"}`, router)
	require.Equal(t, http.StatusOK, recorder.Code)

	var got chatResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, "21°C en Talca", got.Message)
	require.True(t, got.NeedsWeather)
	// The mutated cache rides back to the caller.
	require.NotNil(t, got.Cache)
	require.Equal(t, []string{"Talca"}, got.Cache.RecentCities)
}

func TestRouter_ChatEmptyMessage(t *testing.T) {
	svc := &stubChatService{
		respondFn: func(context.Context, chat.Request) (chat.Response, error) {
			return chat.Response{}, apperrors.Wrap(apperrors.CodeInvalid, "message must not be empty", nil)
		},
	}
	router := newRouterUnderTest(t, svc, &stubWeather{}, &stubStore{})

	recorder := performPost("/api/v1/chat", `{"message":""}`, router)
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	var got chatResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, "El mensaje no puede estar vacío", got.Error)
}

func TestRouter_ChatConfigError(t *testing.T) {
	svc := &stubChatService{
		respondFn: func(context.Context, chat.Request) (chat.Response, error) {
			return chat.Response{}, apperrors.Wrap(apperrors.CodeConfig, "groq api key not configured", nil)
		},
	}
	router := newRouterUnderTest(t, svc, &stubWeather{}, &stubStore{})

	recorder := performPost("/api/v1/chat", `{"message":"hola"}`, router)
	require.Equal(t, http.StatusInternalServerError, recorder.Code)

	var got chatResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.Equal(t, "Error de configuración del servidor", got.Message)
}

func TestRouter_WeatherSuccess(t *testing.T) {
	wc := &stubWeather{
		fetchFn: func(_ context.Context, req weather.Request) (*weather.Result, error) {
			require.Equal(t, "Talca", req.City)
			require.Equal(t, weather.KindForecast, req.Kind)
			require.Equal(t, 7, req.Days)
			return &weather.Result{Forecast: &weather.Forecast{City: "Talca", Country: "Chile"}}, nil
		},
	}
	router := newRouterUnderTest(t, &stubChatService{}, wc, &stubStore{})

	recorder := performPost("/api/v1/weather", `{"city":"Talca","type":"forecast"}`, router)
	require.Equal(t, http.StatusOK, recorder.Code)

	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &got))
	require.JSONEq(t, "true", string(got["success"]))
}

func TestRouter_WeatherCityNotFound(t *testing.T) {
	wc := &stubWeather{
		fetchFn: func(context.Context, weather.Request) (*weather.Result, error) {
			return nil, apperrors.Wrap(apperrors.CodeNotFound, "city not found", nil)
		},
	}
	router := newRouterUnderTest(t, &stubChatService{}, wc, &stubStore{})

	recorder := performPost("/api/v1/weather", `{"city":"Xyzabc","type":"current"}`, router)
	require.Equal(t, http.StatusNotFound, recorder.Code)
	require.Contains(t, recorder.Body.String(), "Xyzabc")
}

func TestRouter_WeatherStartFromOutOfRange(t *testing.T) {
	wc := &stubWeather{
		fetchFn: func(context.Context, weather.Request) (*weather.Result, error) {
			t.Fatal("fetch must not be called")
			return nil, nil
		},
	}
	router := newRouterUnderTest(t, &stubChatService{}, wc, &stubStore{})

	recorder := performPost("/api/v1/weather", `{"city":"Talca","type":"forecast","startFrom":9}`, router)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestRouter_TrendingCities(t *testing.T) {
	store := &stubStore{cities: []chat.TrendingCity{{City: "Talca", Count: 4}, {City: "Madrid", Count: 2}}}
	router := newRouterUnderTest(t, &stubChatService{}, &stubWeather{}, store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cities/trending", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Contains(t, recorder.Body.String(), "Talca")
	require.Contains(t, recorder.Body.String(), `"count":4`)
}

func TestRouter_TrendingFallsBackToQueryLog(t *testing.T) {
	queries := &stubQueryLog{cities: []chat.TrendingCity{{City: "Valdivia", Count: 6}}}
	router := newRouterWithQueryLog(t, &stubChatService{}, &stubWeather{}, &stubStore{}, queries)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cities/trending", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, 1, queries.counts)
	require.Contains(t, recorder.Body.String(), "Valdivia")
	require.Contains(t, recorder.Body.String(), `"count":6`)
}

func TestRouter_TrendingPrefersLiveCounters(t *testing.T) {
	store := &stubStore{cities: []chat.TrendingCity{{City: "Talca", Count: 4}}}
	queries := &stubQueryLog{cities: []chat.TrendingCity{{City: "Valdivia", Count: 6}}}
	router := newRouterWithQueryLog(t, &stubChatService{}, &stubWeather{}, store, queries)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cities/trending", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	require.Zero(t, queries.counts)
	require.Contains(t, recorder.Body.String(), "Talca")
}

func TestRouter_Healthz(t *testing.T) {
	router := newRouterUnderTest(t, &stubChatService{}, &stubWeather{}, &stubStore{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
}
