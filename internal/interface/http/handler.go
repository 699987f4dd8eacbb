package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/manuasd05/weatherbot/internal/domain/chat"
	"github.com/manuasd05/weatherbot/internal/domain/weather"
	apperrors "github.com/manuasd05/weatherbot/pkg/errors"
	"github.com/manuasd05/weatherbot/pkg/metrics"
	"github.com/manuasd05/weatherbot/pkg/util"
)

// Handler wires the HTTP transport to domain services.
type Handler struct {
	chatSvc       chat.Service
	weatherClient chat.WeatherClient
	store         chat.SnapshotStore
	queries       chat.QueryLog
	logger        *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(chatSvc chat.Service, weatherClient chat.WeatherClient, store chat.SnapshotStore, queries chat.QueryLog, logger *slog.Logger) *Handler {
	return &Handler{
		chatSvc:       chatSvc,
		weatherClient: weatherClient,
		store:         store,
		queries:       queries,
		logger:        logger.With("component", "http.handler"),
	}
}

type chatResponse struct {
	Message      string              `json:"message"`
	NeedsWeather bool                `json:"needsWeather"`
	Weather      *weather.Result     `json:"weatherData,omitempty"`
	Cache        *chat.Cache         `json:"cache"`
	TokenUsage   *metrics.TokenUsage `json:"tokenUsage,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// Chat resolves one conversation turn. The conversation cache travels with
// the request and comes back mutated; the server keeps no per-user state.
func (h *Handler) Chat(c *gin.Context) {
	var req chat.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, chatResponse{Message: "Error", Error: "cuerpo de la petición inválido"})
		return
	}
	if req.Cache == nil {
		req.Cache = chat.NewCache()
	}

	resp, err := h.chatSvc.Respond(c.Request.Context(), req)
	if err != nil {
		switch {
		case apperrors.IsCode(err, apperrors.CodeInvalid):
			c.JSON(http.StatusBadRequest, chatResponse{Message: "Error", Error: "El mensaje no puede estar vacío"})
		case apperrors.IsCode(err, apperrors.CodeConfig):
			h.logger.Error("chat request failed", "error", err)
			c.JSON(http.StatusInternalServerError, chatResponse{Message: "Error de configuración del servidor", Error: err.Error()})
		default:
			h.logger.Error("chat request failed", "error", err)
			c.JSON(http.StatusInternalServerError, chatResponse{
				Message: "Lo siento, tuve un problema. ¿Podrías intentarlo de nuevo?",
				Error:   err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		Message:      resp.Message,
		NeedsWeather: resp.NeedsWeather,
		Weather:      resp.Weather,
		Cache:        req.Cache,
		TokenUsage:   resp.TokenUsage,
		Error:        resp.Error,
	})
}

type weatherRequest struct {
	City      string   `json:"city"`
	Lat       *float64 `json:"lat,omitempty"`
	Lon       *float64 `json:"lon,omitempty"`
	Type      string   `json:"type"`
	Days      int      `json:"days"`
	StartFrom int      `json:"startFrom"`
}

// Weather serves raw provider data for callers that do not need the
// conversational layer.
func (h *Handler) Weather(c *gin.Context) {
	var req weatherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "cuerpo de la petición inválido"})
		return
	}

	kind := weather.KindCurrent
	if req.Type == "forecast" {
		kind = weather.KindForecast
	}
	days := req.Days
	if kind == weather.KindForecast && days <= 0 {
		days = 7
	}
	if req.StartFrom < 0 || req.StartFrom > 6 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "startFrom debe estar entre 0 y 6"})
		return
	}

	wreq := weather.Request{City: req.City, Kind: kind, Days: days, StartOffset: req.StartFrom}
	if req.Lat != nil && req.Lon != nil {
		wreq.Coords = &weather.Coordinates{Lat: *req.Lat, Lon: *req.Lon}
	}

	result, err := h.weatherClient.Fetch(c.Request.Context(), wreq)
	if err != nil {
		switch {
		case apperrors.IsCode(err, apperrors.CodeInvalid):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "se requiere una ciudad o coordenadas"})
		case apperrors.IsCode(err, apperrors.CodeNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "No se encontró la ciudad \"" + req.City + "\". Intenta con \"Ciudad, País\""})
		default:
			h.logger.Error("weather request failed", "city", req.City, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "No se pudo obtener el clima"})
		}
		return
	}

	result.StartOffset = req.StartFrom
	if kind == weather.KindForecast {
		result.RequestedDays = days
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

// TrendingCities lists the most requested places.
func (h *Handler) TrendingCities(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	items, err := h.store.TopCities(c.Request.Context(), limit)
	if err != nil || len(items) == 0 {
		// The live counters reset with the store; the query log is the
		// durable record.
		if err != nil {
			h.logger.Warn("trending counters unavailable, using query log", "error", err)
		}
		cutoff := util.NowUTC().Add(-24 * time.Hour)
		items, err = h.queries.CountSince(c.Request.Context(), cutoff, limit)
		if err != nil {
			abortWithError(c, NewHTTPError(http.StatusInternalServerError, "trending_failed", errMessage(err), err))
			return
		}
	}
	if items == nil {
		items = []chat.TrendingCity{}
	}
	c.JSON(http.StatusOK, gin.H{"cities": items})
}

// Healthz reports liveness.
func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
