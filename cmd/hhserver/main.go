package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/hhsynth/internal/backend"
	"github.com/dukerupert/hhsynth/internal/config"
	"github.com/dukerupert/hhsynth/internal/generator"
	"github.com/dukerupert/hhsynth/internal/logging"
	"github.com/dukerupert/hhsynth/internal/server"
	"github.com/dukerupert/hhsynth/internal/telemetry"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName:    "hhsynth",
		ServiceVersion: version,
		Environment:    cfg.Environment,
		Endpoint:       cfg.OTLPEndpoint,
		Insecure:       cfg.OTLPInsecure,
		SampleRate:     cfg.SampleRate,
	}, logger.With("component", "telemetry"))
	if err != nil {
		logger.Error("failed to set up telemetry", "error", err)
		os.Exit(1)
	}

	b, err := backend.Open(ctx, cfg, logger.With("component", "backend"))
	if err != nil {
		logger.Error("failed to open backend", "error", err)
		os.Exit(1)
	}
	defer b.Close()

	pipeline := generator.New(b.Provider, logger,
		generator.WithMaxBatch(cfg.MaxBatch),
		generator.WithWorkers(cfg.Workers),
	)

	srv := server.New(server.Options{
		DB:             b.HealthDB(),
		Pipeline:       pipeline,
		Provider:       b.Provider,
		Catalog:        b.Catalog,
		APIKeys:        b.APIKeys,
		RequireAPIKey:  cfg.RequireAPIKey,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		DefaultRegion:  cfg.DefaultRegion,
		DefaultPeriod:  cfg.DefaultPeriod,
		OriginPatterns: cfg.OriginPatterns(),
	}, logger)

	cleanupStop := make(chan struct{})
	go srv.RateLimiter().RunCleanup(time.Minute, 10*time.Minute, cleanupStop)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("hhsynth listening", "addr", httpServer.Addr, "provider", cfg.Provider, "require_api_key", cfg.RequireAPIKey)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("server error", "error", err)
		}
	}

	logger.Info("shutting down")
	close(cleanupStop)
	srv.Hub().Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown", "error", err)
	}
}
