package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/manuasd05/weatherbot/internal/domain/chat"
	"github.com/manuasd05/weatherbot/internal/infra/config"
	"github.com/manuasd05/weatherbot/internal/infra/histstore"
	"github.com/manuasd05/weatherbot/internal/infra/llm/groq"
	"github.com/manuasd05/weatherbot/internal/infra/querylog"
	"github.com/manuasd05/weatherbot/internal/infra/weather/openmeteo"
)

func provideChatConfig(cfg *config.Config) chat.Config {
	return chat.Config{
		Model:             cfg.LLM.Model,
		Temperature:       cfg.LLM.Temperature,
		HistoryWindow:     cfg.Chat.HistoryWindow,
		PromptTokenBudget: cfg.Chat.PromptTokenBudget,
		RecencyWindow:     cfg.Chat.RecencyWindow,
		HistoryRetention:  cfg.Chat.HistoryRetention,
		MaxRecentCities:   cfg.Chat.MaxRecentCities,
		ExtremeHeatTemp:   cfg.Chat.ExtremeHeatTemp,
		CurrentTTL:        cfg.Cache.CurrentTTL,
		ForecastTTL:       cfg.Cache.ForecastTTL,
	}
}

func provideGroqClient(cfg *config.Config) *groq.Client {
	return groq.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL)
}

func provideOpenMeteoClient(cfg *config.Config) *openmeteo.Client {
	return openmeteo.NewClient(cfg.Weather.GeocodingURL, cfg.Weather.ForecastURL)
}

func provideSnapshotStore(cfg *config.Config, logger *slog.Logger) chat.SnapshotStore {
	if cfg.Cache.Valkey.Enabled {
		opt, err := buildValkeyOptions(cfg)
		if err != nil {
			logger.Error("invalid valkey configuration, falling back to memory store", "error", err)
			return histstore.NewMemoryStore()
		}
		client, err := valkey.NewClient(opt)
		if err != nil {
			logger.Error("failed to create valkey client, falling back to memory store", "error", err)
			return histstore.NewMemoryStore()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
			logger.Error("valkey ping failed, falling back to memory store", "error", err)
		} else {
			logger.Info("valkey snapshot store enabled", "addr", cfg.Cache.Valkey.Addr)
			return histstore.NewValkeyStore(client, "weather")
		}
	}
	return histstore.NewMemoryStore()
}

func provideQueryLog(cfg *config.Config, logger *slog.Logger) chat.QueryLog {
	fallback := querylog.NewMemoryLog()
	dsn := strings.TrimSpace(cfg.Cache.Postgres.DSN)
	if dsn == "" {
		logger.Info("query log postgres dsn not set, using memory log")
		return fallback
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory log", "error", err)
		return fallback
	}
	if cfg.Cache.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Cache.Postgres.MaxConns
	}
	if cfg.Cache.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Cache.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory log", "error", err)
		return fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory log", "error", err)
		pool.Close()
		return fallback
	}
	logger.Info("postgres query log enabled")
	return querylog.NewPostgresLog(pool)
}

func provideWeatherClient(cfg *config.Config, provider *openmeteo.Client, store chat.SnapshotStore, logger *slog.Logger) chat.WeatherClient {
	return histstore.NewCachedClient(provider, store, cfg.Cache.CurrentTTL, cfg.Cache.ForecastTTL, logger)
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.Cache.Valkey.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.Cache.Valkey.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.Cache.Valkey.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}
