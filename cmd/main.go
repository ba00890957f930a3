package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alabobai/media-bridge/config"
	"github.com/alabobai/media-bridge/internal/backend"
	"github.com/alabobai/media-bridge/internal/gateway"
	"github.com/alabobai/media-bridge/internal/handler"
	"github.com/alabobai/media-bridge/internal/httpserver"
	"github.com/alabobai/media-bridge/internal/metrics"
	"github.com/alabobai/media-bridge/internal/routing"
	"github.com/alabobai/media-bridge/internal/webhook"
	"github.com/alabobai/media-bridge/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	collector := metrics.NewCollector(cfg.Metrics.BufferSize, log)
	collector.Start(ctx)

	gw := gateway.New(cfg.Gateway, collector, log)
	bridge := buildBridge(cfg, gw, log)

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(bridge, collector))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	log.Info("media bridge listening",
		slog.String("address", cfg.Server.Address),
		slog.String("environment", cfg.Server.Environment))

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting media bridge", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func buildBridge(cfg *config.Config, gw *gateway.Gateway, log *slog.Logger) *handler.Bridge {
	backends := cfg.Backends

	return handler.NewBridge(handler.Deps{
		Gateway: gw,
		Ollama: backend.NewOllama(backends.Ollama.URL,
			config.MustDuration(backends.Ollama.Timeout, 3*time.Minute), log),
		Moonshot: backend.NewMoonshot(backends.Moonshot.URL, backends.Moonshot.APIKey,
			config.MustDuration(backends.Moonshot.Timeout, 5*time.Minute), log),
		Image: backend.NewImageBackend(backends.Image.URL,
			config.MustDuration(backends.Image.Timeout, 90*time.Second), log),
		Video: backend.NewVideoBackend(backends.Video.URL,
			config.MustDuration(backends.Video.Timeout, 2*time.Minute), log),
		Pollinations: backend.NewPollinations("", "", 30*time.Second),
		Router:       routing.NewRouter(backends.Moonshot.APIKey != ""),
		Webhooks:     webhook.NewStore(),
		Config:       cfg,
		Logger:       log,
	})
}
