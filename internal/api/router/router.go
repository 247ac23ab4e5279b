package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/chittyos/registry-sync/internal/api/handlers"
	"github.com/chittyos/registry-sync/internal/api/middleware"
	"github.com/chittyos/registry-sync/internal/config"
	"github.com/chittyos/registry-sync/internal/pkg/logger"
	"github.com/chittyos/registry-sync/internal/pkg/metrics"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Health  *handlers.HealthHandler
	Status  *handlers.StatusHandler
	Webhook *handlers.WebhookHandler
	Sync    *handlers.SyncHandler
}

// New builds the HTTP routing tree with the full middleware chain.
func New(cfg *config.Config, log *logger.Logger, h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(metrics.Middleware)
	r.Use(middleware.DefaultCORS(cfg.Server.AllowedOrigin))
	r.Use(middleware.NewRateLimiter(50, 100).Middleware)

	r.Get("/health", h.Health.Health)
	r.Get("/status", h.Status.Status)
	r.Get("/metrics", metrics.Handler().ServeHTTP)

	r.Route("/webhook", func(r chi.Router) {
		r.Post("/cloudflare", h.Webhook.Handle)
		r.Post("/manual-sync/{resourceType}", h.Sync.Trigger)
	})

	return r
}
