// Package api assembles the HTTP surface: handlers, middleware, and
// the operational endpoints.
package api

import (
	"net/http"

	"github.com/citycal/server/internal/api/handlers"
	"github.com/citycal/server/internal/api/middleware"
	"github.com/citycal/server/internal/auth"
	"github.com/citycal/server/internal/config"
	"github.com/citycal/server/internal/domain/events"
	"github.com/citycal/server/internal/metrics"
	"github.com/citycal/server/internal/shortener"
	"github.com/citycal/server/internal/storage/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// NewRouter wires repositories, services, and handlers into the full
// request-handling chain.
func NewRouter(cfg config.Config, logger zerolog.Logger, pool *pgxpool.Pool) http.Handler {
	repo := postgres.NewEventsRepository(pool, postgres.Options{CurrentGrace: cfg.Events.CurrentGrace})
	service := events.NewService(repo)

	short := shortener.NewClient(
		cfg.Shortener.Endpoint,
		cfg.Shortener.AccessToken,
		shortener.WithTimeout(cfg.Shortener.Timeout),
	)
	creator := events.NewCreateService(repo, short, cfg.Server.BaseURL)

	manager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry)

	mux := http.NewServeMux()
	handlers.NewEventsHandler(service, creator).Mount(mux)
	mux.Handle("GET /healthz", handlers.Healthz())
	mux.Handle("GET /readyz", handlers.Readyz(pool.Ping))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	var handler http.Handler = mux
	handler = middleware.Identity(manager)(handler)
	handler = middleware.Metrics()(handler)
	handler = middleware.RequestLogging()(handler)
	handler = middleware.CorrelationID(logger)(handler)
	return handler
}
