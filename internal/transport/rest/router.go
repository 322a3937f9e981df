package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/heartmarshall/myquran/internal/transport/middleware"
)

// RouterDeps carries everything the sync API router mounts.
type RouterDeps struct {
	Logger *slog.Logger
	Health *HealthHandler
	Sync   *SyncHandler
	// Auth validates bearer tokens on /v1.
	Auth middleware.Middleware
	// CORS and RateLimit are optional.
	CORS      middleware.Middleware
	RateLimit middleware.Middleware
}

// NewRouter builds the sync API. Health probes stay unauthenticated.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID(), middleware.Logger(deps.Logger), middleware.Recovery(deps.Logger))
	if deps.CORS != nil {
		r.Use(deps.CORS)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/live", deps.Health.Live)
	r.Get("/ready", deps.Health.Ready)
	r.Get("/health", deps.Health.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Use(deps.Auth)
		if deps.RateLimit != nil {
			r.Use(deps.RateLimit)
		}
		deps.Sync.Routes(r)
	})

	return r
}
