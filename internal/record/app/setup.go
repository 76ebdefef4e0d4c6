// Package app contains the application setup for the record service.
package app

import (
	"log/slog"
	"net/http"

	"github.com/abgdnv/recordstore/internal/config"
	"github.com/abgdnv/recordstore/internal/platform/server"
	"github.com/abgdnv/recordstore/internal/record/handler"
	"github.com/abgdnv/recordstore/internal/record/service"
	"github.com/abgdnv/recordstore/internal/record/store"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ServiceName identifies the service in logs, metrics and traces.
const ServiceName = "recordstore"

type Dependencies struct {
	RecordService service.RecordService
	Logger        *slog.Logger
}

// SetupDependencies builds the service graph over a fresh in-memory store.
func SetupDependencies(logger *slog.Logger) *Dependencies {
	rService := service.NewService(store.NewInMemoryStore())

	return &Dependencies{
		RecordService: rService,
		Logger:        logger,
	}
}

// SetupHttpHandler initializes the routes and middleware for the record service.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return otelhttp.NewHandler(mux, ServiceName)
}

// wireRoutes sets up the HTTP routes for the record service.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	recordHandler := handler.NewHandler(deps.RecordService, deps.Logger)
	recordHandler.RegisterRoutes(mux)
}

// SetupHttpServer creates and configures the public HTTP server.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {

	mux := SetupHttpHandler(deps)
	return server.NewHTTPServer(cfg.HTTPServer, mux)
}

// SetupMetricsServer creates the Prometheus scrape server exposing metricsHandler on /metrics.
func SetupMetricsServer(metricsHandler http.Handler, cfg *config.Config) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsHandler)
	return server.NewAdminServer(cfg.Metrics.Addr, mux, cfg.HTTPServer.Timeout.ReadHeader)
}
