package chat

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/manuasd05/weatherbot/internal/domain/weather"
	"github.com/manuasd05/weatherbot/internal/infra/llm/groq"
	apperrors "github.com/manuasd05/weatherbot/pkg/errors"
	"github.com/manuasd05/weatherbot/pkg/metrics"
	"github.com/manuasd05/weatherbot/pkg/util"
)

// Service resolves one conversation turn into a response, mutating the
// caller-owned cache along the way.
type Service interface {
	Respond(ctx context.Context, req Request) (Response, error)
}

type ChatClient interface {
	Generate(ctx context.Context, req groq.ChatCompletionRequest) (groq.Completion, error)
}

type WeatherClient interface {
	Fetch(ctx context.Context, req weather.Request) (*weather.Result, error)
}

// QueryLog records fetch outcomes and aggregates them for the trending
// surface. Write failures are logged and swallowed; the conversation never
// depends on it.
type QueryLog interface {
	Record(ctx context.Context, city string, kind weather.Kind, at time.Time) error
	CountSince(ctx context.Context, cutoff time.Time, limit int) ([]TrendingCity, error)
}

type service struct {
	cfg     Config
	llm     ChatClient
	weather WeatherClient
	queries QueryLog
	logger  *slog.Logger
	now     func() time.Time
	rng     *rand.Rand
}

// NewService wires up the dialogue engine.
func NewService(cfg Config, llm ChatClient, weatherClient WeatherClient, queries QueryLog, logger *slog.Logger) Service {
	return &service{
		cfg:     cfg,
		llm:     llm,
		weather: weatherClient,
		queries: queries,
		logger:  logger.With("component", "chat.service"),
		now:     util.NowUTC,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

const (
	msgCasualFallback     = "¡Entendido! ¿En qué más puedo ayudarte? 😊"
	msgAskCity            = "Claro, ¿de qué ciudad quieres saber el clima? 🌍"
	msgRangeLimit         = "Solo tengo pronóstico para los próximos 7 días. ¿Quieres saber el clima de otro día? 🤔"
	msgCapabilities       = "Puedo darte el pronóstico de los próximos 7 días. ¿De qué ciudad quieres saber? 😊"
	msgDuplicateFallback  = "Ya te di el clima de esa ciudad. ¿Quieres saber de otro día? 😊"
	msgSearchPlaceholder  = "Buscando la información del clima... 🌦️"
	msgProviderFallback   = "Lo siento, tuve un problema. ¿Podrías intentarlo de nuevo?"
	msgRecentDuplicateFmt = "Hace unos minutos te di el clima de %s. ¿Quieres otra ciudad, otro día o más detalles? 😊"
	msgCityNotFoundFmt    = "No encontré información sobre \"%s\". 🤔\n\n¿Podrías especificar mejor? Por ejemplo: \"%s, [País]\""
)

func (s *service) Respond(ctx context.Context, req Request) (Response, error) {
	usage := &metrics.TokenUsage{}
	resp, err := s.respond(ctx, req, usage)
	if err == nil && !usage.IsZero() {
		resp.TokenUsage = usage
	}
	return resp, err
}

func (s *service) respond(ctx context.Context, req Request, usage *metrics.TokenUsage) (Response, error) {
	if strings.TrimSpace(req.Message) == "" {
		return Response{}, apperrors.Wrap(apperrors.CodeInvalid, "message must not be empty", nil)
	}
	if req.Cache == nil {
		req.Cache = NewCache()
	}

	now := s.now()
	tc := ResolveTimeContext(now.Hour(), req.Cache.Preferences.UTCOffsetSeconds)

	// Pending clarification resolution comes before anything else.
	if req.Cache.Pending != nil {
		switch ClassifyConfirmation(req.Message) {
		case ConfirmationYes:
			if city := req.Cache.Pending.City; city != "" {
				s.logger.Info("pending confirmed", "city", city)
				return s.fetchAndRespond(ctx, req, weather.Request{
					City: city,
					Kind: weather.KindCurrent,
				}, now, tc, usage)
			}
		case ConfirmationNo:
			// The "no" consumes the clarification; the rest of the message
			// still gets a normal resolution pass.
			req.Cache.ClearPending()
		default:
			if city, ok := ExtractBareCity(req.Message); ok && !IsCasualReply(req.Message) {
				s.logger.Info("pending city filled", "city", city)
				req.Cache.Pending.City = city
				return s.fetchAndRespond(ctx, req, weather.Request{
					City: city,
					Kind: weather.KindForecast,
					Days: 7,
				}, now, tc, usage)
			}
		}
	}

	if req.Cache.Pending == nil {
		if city, ok := ExtractBareCity(req.Message); ok && IsWeatherRequest(req.Message) {
			s.logger.Info("bare city shortcut", "city", city)
			return s.fetchAndRespond(ctx, req, weather.Request{
				City: city,
				Kind: weather.KindForecast,
				Days: 7,
			}, now, tc, usage)
		}
	}

	if IsCasualReply(req.Message) {
		return s.casualReply(ctx, req, usage), nil
	}

	return s.resolveIntent(ctx, req, now, tc, usage)
}

func (s *service) casualReply(ctx context.Context, req Request, usage *metrics.TokenUsage) Response {
	messages := append([]groq.Message{{Role: "system", Content: CasualSystemPrompt}}, TailMessages(req.History, 4)...)
	messages = append(messages, groq.Message{Role: "user", Content: req.Message})

	out, err := s.llm.Generate(ctx, groq.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   500,
	})
	usage.Add(out.Usage)
	if err != nil || strings.TrimSpace(out.Content) == "" {
		if err != nil {
			s.logger.Warn("casual reply generation failed", "error", err)
		}
		return Response{Message: msgCasualFallback}
	}
	return Response{Message: out.Content}
}

func (s *service) resolveIntent(ctx context.Context, req Request, now time.Time, tc TimeContext, usage *metrics.TokenUsage) (Response, error) {
	messages := BuildMessages(SystemPrompt(now), req.History, s.cfg.HistoryWindow, req.Message, s.cfg.PromptTokenBudget)

	out, err := s.llm.Generate(ctx, groq.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Messages:    messages,
		Temperature: s.cfg.Temperature,
		MaxTokens:   1500,
		TopP:        0.85,
	})
	if err != nil {
		return Response{}, err
	}
	usage.Add(out.Usage)
	reply := out.Content

	if !HasIntentMarker(reply) {
		if IsBareJSON(reply) {
			// A naked JSON object must never reach the user.
			return Response{Message: msgSearchPlaceholder}, nil
		}
		return Response{Message: reply}, nil
	}

	// The model is eager to emit intents; a second opinion from the cheap
	// heuristics keeps meta questions and small talk conversational.
	if !IsWeatherRequest(req.Message) {
		clean := StripIntentJSON(reply)
		if len(clean) < 10 {
			return Response{Message: msgCapabilities}, nil
		}
		return Response{Message: clean}, nil
	}

	intent, err := ParseIntent(reply)
	if err != nil {
		s.logger.Warn("intent parse failed", "error", err)
		return Response{Message: reply}, nil
	}

	if !intent.NeedsWeather {
		prose := StripIntentJSON(reply)
		if prose == "" {
			prose = msgCasualFallback
		}
		return Response{Message: prose}, nil
	}

	wreq := weather.Request{
		City:        strings.TrimSpace(intent.City),
		Kind:        intent.Kind(),
		Days:        intent.DaysCount,
		StartOffset: intent.StartFrom,
	}
	if wreq.Kind == weather.KindForecast && wreq.Days <= 0 {
		wreq.Days = 7
	}

	if IsGenericCity(wreq.City) {
		switch {
		case req.Cache.LastCity() != "":
			wreq.City = req.Cache.LastCity()
		case req.Location != nil:
			// The placeholder must not travel: the fetch is keyed by the
			// coordinates alone.
			wreq.City = ""
			wreq.Coords = req.Location
		default:
			req.Cache.SetPending("", now)
			return Response{Message: msgAskCity}, nil
		}
	}

	if wreq.StartOffset < 0 || wreq.StartOffset > 6 {
		return Response{Message: msgRangeLimit}, nil
	}

	if prev := LastWeatherResult(req.History); SameQuery(prev, wreq) {
		s.logger.Info("duplicate query blocked", "city", wreq.City)
		return s.duplicateClarification(ctx, req, wreq.City, now, usage), nil
	}

	if RecentDuplicate(req.Cache, wreq.City, wreq.Kind, now, s.cfg.RecencyWindow) {
		s.logger.Info("recent duplicate blocked", "city", wreq.City)
		return Response{Message: fmt.Sprintf(msgRecentDuplicateFmt, wreq.City)}, nil
	}

	return s.fetchAndRespond(ctx, req, wreq, now, tc, usage)
}

func (s *service) duplicateClarification(ctx context.Context, req Request, city string, now time.Time, usage *metrics.TokenUsage) Response {
	messages := append([]groq.Message{{Role: "system", Content: SystemPrompt(now)}}, TailMessages(req.History, 4)...)
	messages = append(messages, groq.Message{Role: "user", Content: ClarificationPrompt(city, req.Message)})

	out, err := s.llm.Generate(ctx, groq.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Messages:    messages,
		Temperature: 0.8,
		MaxTokens:   300,
	})
	usage.Add(out.Usage)
	if err != nil || strings.TrimSpace(out.Content) == "" {
		if err != nil {
			s.logger.Warn("clarification generation failed", "error", err)
		}
		return Response{Message: msgDuplicateFallback}
	}
	return Response{Message: out.Content}
}

func (s *service) fetchAndRespond(ctx context.Context, req Request, wreq weather.Request, now time.Time, tc TimeContext, usage *metrics.TokenUsage) (Response, error) {
	result, err := s.weather.Fetch(ctx, wreq)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			return Response{Message: fmt.Sprintf(msgCityNotFoundFmt, wreq.City, wreq.City)}, nil
		}
		s.logger.Error("weather fetch failed", "city", wreq.City, "error", err)
		return Response{Message: msgProviderFallback, Error: "weather provider unavailable"}, nil
	}

	result.StartOffset = wreq.StartOffset
	if wreq.Kind == weather.KindForecast {
		result.RequestedDays = wreq.Days
	}

	// An unresolved or placeholder name must not seep into the recent-city
	// backfill or the trending counters.
	city := result.CityName()
	if !IsGenericCity(city) {
		req.Cache.RecordQuery(city, wreq.Kind, now, s.cfg.HistoryRetention)
		req.Cache.RememberCity(city, s.cfg.MaxRecentCities)

		if s.queries != nil {
			if err := s.queries.Record(ctx, city, wreq.Kind, now); err != nil {
				s.logger.Warn("query log write failed", "error", err)
			}
		}
	}
	req.Cache.ClearPending()

	message := s.composeWeatherMessage(ctx, req, wreq, result, now, tc, usage)
	return Response{Message: message, NeedsWeather: true, Weather: result}, nil
}

func (s *service) composeWeatherMessage(ctx context.Context, req Request, wreq weather.Request, result *weather.Result, now time.Time, tc TimeContext, usage *metrics.TokenUsage) string {
	city := result.CityName()
	today := int(now.Weekday())

	if result.IsForecast() && len(result.Forecast.Days) > 0 {
		if periods, ok := DetectPeriods(req.Message); ok {
			return FormatPeriods(result.Forecast.Days[0], dayLabel(wreq.StartOffset, today), periods, tc)
		}
	}

	suggestions := Suggestions(SuggestionInput{
		Kind:        wreq.Kind,
		Days:        wreq.Days,
		StartOffset: wreq.StartOffset,
		MaxTemp:     maxTemperature(result),
		HeatTemp:    s.cfg.ExtremeHeatTemp,
	}, now, s.rng)

	rc := ResponseContext{
		PlansMentioned: MentionsPlans(req.Message),
		TimeContext:    tc,
		Suggestions:    suggestions,
	}

	var prompt string
	var maxTokens int
	if result.IsForecast() {
		prompt = ForecastResponsePrompt(result.Forecast, city, req.Message, wreq.Days, wreq.StartOffset, now, rc)
		maxTokens = 1200
	} else {
		prompt = CurrentResponsePrompt(result.Current, city, req.Message, rc)
		maxTokens = 800
	}

	messages := append([]groq.Message{{Role: "system", Content: SystemPrompt(now)}}, TailMessages(req.History, 4)...)
	messages = append(messages, groq.Message{Role: "user", Content: prompt})

	out, err := s.llm.Generate(ctx, groq.ChatCompletionRequest{
		Model:       s.cfg.Model,
		Messages:    messages,
		Temperature: 0.8,
		MaxTokens:   maxTokens,
	})
	usage.Add(out.Usage)
	if err == nil && strings.TrimSpace(out.Content) != "" && !HasIntentMarker(out.Content) {
		return out.Content
	}
	if err != nil {
		s.logger.Warn("response generation failed, using fallback", "city", city, "error", err)
	}

	if result.IsForecast() {
		return FormatForecastFallback(result.Forecast, wreq.Days == 1)
	}
	return FormatCurrentFallback(result.Current)
}

func maxTemperature(result *weather.Result) float64 {
	if result.IsForecast() {
		var max float64
		for _, day := range result.Forecast.Days {
			if day.TempMax > max {
				max = day.TempMax
			}
		}
		return max
	}
	if result.Current != nil {
		return result.Current.Temp
	}
	return 0
}
