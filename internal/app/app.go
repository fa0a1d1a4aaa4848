// Package app wires configuration, storage, backends and features into
// a running application.
package app

import (
	"context"
	"fmt"

	"github.com/vyomlabs/vyom/internal/backend"
	"github.com/vyomlabs/vyom/internal/config"
	"github.com/vyomlabs/vyom/internal/credential"
	"github.com/vyomlabs/vyom/internal/feature"
	"github.com/vyomlabs/vyom/internal/log"
	"github.com/vyomlabs/vyom/internal/observability"
	"github.com/vyomlabs/vyom/internal/session"
)

// App holds the assembled application components.
type App struct {
	Config   *config.Config
	Logger   log.Logger
	Creds    *credential.Store
	Sessions *session.Store
	Selector *session.Selector
	Registry *feature.Registry

	shutdownTracing func(context.Context) error
}

// Setup validates cfg and builds every component. Features whose
// backend has no API key configured are not registered; the server
// still runs with the rest.
func Setup(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})

	shutdownTracing, err := observability.Setup(ctx, cfg.Tracing, logger)
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}

	sessions, err := session.NewStore(cfg.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}

	chatClient := backend.NewChatClient(cfg.Chat, logger)
	hfClient := backend.NewHFClient(cfg.HF, logger)

	var gemini *backend.GeminiClient
	if cfg.Gemini.APIKey != "" {
		gemini, err = backend.NewGeminiClient(ctx, cfg.Gemini, logger)
		if err != nil {
			return nil, fmt.Errorf("creating gemini client: %w", err)
		}
	}

	adapters := []feature.Adapter{
		feature.NewChat(chatClient),
	}
	if gemini != nil {
		adapters = append(adapters,
			feature.NewImageChat(gemini),
			feature.NewPDFChat(gemini),
			feature.NewText2Image(hfClient, gemini),
		)
	} else {
		logger.Warn("gemini API key not set, image chat and PDF chat disabled")
		adapters = append(adapters, feature.NewText2Image(hfClient, nil))
	}
	adapters = append(adapters,
		feature.NewText2Audio(hfClient, chatClient),
		feature.NewAudioClassify(hfClient),
	)

	registry := feature.NewRegistry(adapters...)
	logger.Info("features registered", "features", registry.Names())

	return &App{
		Config:          cfg,
		Logger:          logger,
		Creds:           credential.NewStore(cfg.CredentialsFile, cfg.BcryptCost, logger),
		Sessions:        sessions,
		Selector:        session.NewSelector(sessions),
		Registry:        registry,
		shutdownTracing: shutdownTracing,
	}, nil
}

// Close flushes pending telemetry.
func (a *App) Close(ctx context.Context) error {
	if a.shutdownTracing != nil {
		return a.shutdownTracing(ctx)
	}
	return nil
}
