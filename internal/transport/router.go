// Package transport holds the HTTP plumbing shared by the catalog and
// circulation handlers: routing, JSON encoding, error mapping and rate
// limiting.
package transport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"
)

// Registrar adds its routes to a router.
type Registrar interface {
	Register(r chi.Router)
}

// RouterConfig configures NewRouter.
type RouterConfig struct {
	Logger *slog.Logger
	// Limiter throttles every route except /healthz. Nil disables it.
	Limiter *rate.Limiter
	// Health is called by GET /healthz. Nil always reports healthy.
	Health func(ctx context.Context) error
}

// NewRouter builds the HTTP handler with the standard middleware stack.
func NewRouter(cfg RouterConfig, registrars ...Registrar) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Health != nil {
			if err := cfg.Health(r.Context()); err != nil {
				logger.WarnContext(r.Context(), "health check failed", "error", err)
				WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(RateLimit(cfg.Limiter))
		for _, reg := range registrars {
			reg.Register(r)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusNotFound, ErrorResponse{Error: "route not found", Code: "NOT_FOUND"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "method not allowed", Code: "METHOD_NOT_ALLOWED"})
	})

	return r
}

// NewLimiter returns a token bucket for rps and burst, or nil when rps <= 0.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
