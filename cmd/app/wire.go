//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/manuasd05/weatherbot/internal/bootstrap"
	"github.com/manuasd05/weatherbot/internal/domain/chat"
	"github.com/manuasd05/weatherbot/internal/infra/config"
	"github.com/manuasd05/weatherbot/internal/infra/llm/groq"
	httpiface "github.com/manuasd05/weatherbot/internal/interface/http"
	"github.com/manuasd05/weatherbot/pkg/logger"
)

func initializeApp() (*bootstrap.App, error) {
	wire.Build(
		config.Load,
		logger.New,
		provideChatConfig,
		provideGroqClient,
		provideOpenMeteoClient,
		provideSnapshotStore,
		provideQueryLog,
		provideWeatherClient,
		chat.NewService,
		wire.Bind(new(chat.ChatClient), new(*groq.Client)),
		httpiface.NewHandler,
		httpiface.NewRouter,
		bootstrap.NewApp,
	)
	return nil, nil
}
