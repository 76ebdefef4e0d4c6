// Package main runs the record service: an HTTP API over an in-memory record store.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "net/http/pprof"

	"github.com/abgdnv/recordstore/internal/config"
	"github.com/abgdnv/recordstore/internal/platform/logger"
	"github.com/abgdnv/recordstore/internal/platform/server"
	"github.com/abgdnv/recordstore/internal/platform/telemetry"
	"github.com/abgdnv/recordstore/internal/record/app"
	"golang.org/x/sync/errgroup"
)

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run loads the configuration, sets up telemetry and starts the HTTP, pprof and metrics servers.
func run(ctx context.Context) error {
	cfg, cfgErr := config.Load()
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	appLogger := logger.NewLogger(cfg.Log.Level)
	slog.SetDefault(appLogger)

	// Meter provider must be installed before the service creates its counters.
	var metrics *telemetry.Metrics
	if cfg.Metrics.Enabled {
		m, err := telemetry.NewMetrics(app.ServiceName)
		if err != nil {
			return fmt.Errorf("failed to set up metrics: %w", err)
		}
		metrics = m
		defer shutdownProvider(appLogger, "meter", cfg, m.Provider.Shutdown)
	}
	if cfg.Telemetry.Traces.Enabled {
		tp, err := telemetry.NewTracerProvider(ctx, app.ServiceName, cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("failed to set up tracing: %w", err)
		}
		defer shutdownProvider(appLogger, "tracer", cfg, tp.Shutdown)
	}

	deps := app.SetupDependencies(appLogger)
	httpServer := app.SetupHttpServer(deps, cfg)

	g, gCtx := errgroup.WithContext(ctx)

	serve(gCtx, g, appLogger, cfg, "HTTP", httpServer)

	// pprof handlers are registered on http.DefaultServeMux
	if cfg.PProf.Enabled {
		pprofServer := server.NewAdminServer(cfg.PProf.Addr, nil, cfg.HTTPServer.Timeout.ReadHeader)
		serve(gCtx, g, appLogger, cfg, "pprof", pprofServer)
	} else {
		appLogger.Info("Pprof server is disabled")
	}

	if metrics != nil {
		metricsServer := app.SetupMetricsServer(metrics.Handler, cfg)
		serve(gCtx, g, appLogger, cfg, "metrics", metricsServer)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}

// serve starts srv in the group and shuts it down gracefully once ctx is cancelled.
func serve(ctx context.Context, g *errgroup.Group, logger *slog.Logger, cfg *config.Config, name string, srv *http.Server) {
	g.Go(func() error {
		logger.Info(name+" server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s server failed: %w", name, err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down " + name + " server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

func shutdownProvider(logger *slog.Logger, name string, cfg *config.Config, shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		logger.Error("Failed to shut down "+name+" provider", "error", err)
	}
}
