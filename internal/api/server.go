// Package api wires the Chi router, middleware, and handlers for the read
// API over the player store.
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"

	"github.com/courtline/courtline-data/internal/api/handler"
	"github.com/courtline/courtline-data/internal/config"
	"github.com/courtline/courtline-data/internal/store"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(st store.Store, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "Cache-Control"},
		ExposedHeaders:   []string{"X-Process-Time", "Link"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(st)

	// --- Routes ---

	r.Get("/", h.Root)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/players", h.SearchPlayer)
		r.Get("/players/random", h.RandomPlayers)
		r.Get("/players/{playerID}", h.GetPlayer)
		r.Get("/players/{playerID}/seasons", h.GetPlayerSeasons)
	})

	return r
}
