// internal/api/router.go
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"micropatrons/internal/api/handler"
)

// RouterConfig carries the mount point and limits for NewRouter.
type RouterConfig struct {
	BasePath string
	Timeout  time.Duration
	// Metrics is served at /metrics when set.
	Metrics http.Handler
}

// NewRouter sets up and returns a new HTTP router.
func NewRouter(ledgerHandler *handler.LedgerHandler, cfg RouterConfig) http.Handler {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = handler.DefaultTimeout
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/api"
	}

	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Get("/health", ledgerHandler.Health)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route(basePath, func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Get("/", ledgerHandler.ListUsers)
			r.Get("/{username}", ledgerHandler.GetUser)
			r.Get("/{username}/activity", ledgerHandler.GetUserActivity)
		})
		r.Get("/activity", ledgerHandler.ListActivity)
		r.Get("/activity/stats", ledgerHandler.ActivityStats)
		r.Get("/leaderboard", ledgerHandler.Leaderboard)
		r.Get("/victims", ledgerHandler.Victims)

		r.Post("/transfer", ledgerHandler.Transfer)
		r.Post("/opsec/report", ledgerHandler.ReportOpSec)
	})

	return r
}
