package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/incident-map-engine/internal/adapter/catalog"
	"github.com/couchcryptid/incident-map-engine/internal/adapter/feed"
	"github.com/couchcryptid/incident-map-engine/internal/adapter/httpapi"
	"github.com/couchcryptid/incident-map-engine/internal/config"
	"github.com/couchcryptid/incident-map-engine/internal/engine"
	"github.com/couchcryptid/incident-map-engine/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clk := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Boundary data is loaded once and is static for the session.
	loader := catalog.NewLoader(cfg.CatalogTimeout, logger, metrics)
	regions, err := loader.Load(ctx, cfg.CatalogSource)
	if err != nil {
		logger.Error("failed to load region catalog", "error", err)
		os.Exit(1)
	}

	controller := engine.NewController(engine.ControllerConfig{
		DebounceWindow:   cfg.Engine.DebounceWindow,
		BaseResolutionKm: cfg.Engine.BaseResolutionKm,
		MinResolutionKm:  cfg.Engine.MinResolutionKm,
		Grid:             cfg.GridSpec(),
		Thresholds:       cfg.Severity,
	}, regions, clk, logger, metrics)

	pulse := engine.NewPulseController(engine.PulseConfig{
		TickInterval:   cfg.Pulse.TickInterval,
		HighPeriod:     cfg.Pulse.HighPeriod,
		CriticalPeriod: cfg.Pulse.CriticalPeriod,
	}, clk, metrics)

	composer := engine.NewComposer(cfg.Palette, cfg.Severity, regions, pulse)
	controller.SetOnResult(func(res engine.Result) { composer.OnResult(res) })

	incidentFeed := feed.NewKafkaFeed(cfg, controller, clk, logger, metrics)

	srv := httpapi.NewServer(cfg.HTTPAddr, composer, controller, controller, cfg.Engine.SelectToleranceKm, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := incidentFeed.Run(ctx); err != nil {
			logger.Error("incident feed error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := incidentFeed.Close(); err != nil {
		logger.Error("incident feed close error", "error", err)
	}
	controller.Close()
	pulse.Release()

	logger.Info("shutdown complete")
}
