package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Fantasim/dropmint/internal/api/handlers"
	"github.com/Fantasim/dropmint/internal/api/middleware"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Deps are the read-side services the status server exposes.
type Deps struct {
	Runs    handlers.RunStore
	Health  handlers.HealthSource // nil when the server has no RPC connection
	Metrics http.Handler          // nil disables /metrics
}

// NewRouter creates the status API router. Every route is read-only and
// bound to loopback hosts.
func NewRouter(deps Deps) chi.Router {
	r := chi.NewRouter()

	// Middleware stack (order matters)
	r.Use(middleware.RequestLogging)
	r.Use(middleware.LocalOnly)
	r.Use(middleware.CORS)
	r.Use(middleware.ReadOnly)

	slog.Info("router initialized",
		"middleware", []string{"requestLogging", "localOnly", "cors", "readOnly"},
		"metrics", deps.Metrics != nil,
	)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.HealthHandler(deps.Health, Version))
		r.Get("/runs", handlers.ListRuns(deps.Runs))
		r.Get("/runs/{id}", handlers.GetRun(deps.Runs))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	return r
}
