package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/aiox-platform/autopilot/internal/middleware"
)

// HandlerSet holds handler functions injected from main.go to avoid import cycles.
type HandlerSet struct {
	// Pattern handlers
	ListPatterns      http.HandlerFunc
	GetPattern        http.HandlerFunc
	DeletePattern     http.HandlerFunc
	MatchPattern      http.HandlerFunc
	ListPatternEvents http.HandlerFunc

	// Automation handlers
	SubmitAutomation  http.HandlerFunc
	RespondToGuidance http.HandlerFunc

	// Training handlers
	StartTraining    http.HandlerFunc
	GetTraining      http.HandlerFunc
	RequestSelection http.HandlerFunc
	ConfirmSelection http.HandlerFunc
	CancelSelection  http.HandlerFunc
	EndTraining      http.HandlerFunc

	AuthMiddleware func(http.Handler) http.Handler
}

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	RateLimiter        func(http.Handler) http.Handler
	// Checks are probed by /health/ready, keyed by dependency name.
	Checks map[string]HealthCheck
}

func NewRouter(cfg RouterConfig, h HandlerSet) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{"status": "healthy"}
		status := http.StatusOK

		for name, check := range cfg.Checks {
			if err := check(r.Context()); err != nil {
				health[name] = "unhealthy"
				health["status"] = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			health[name] = "healthy"
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.AuthMiddleware)
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter)
		}

		r.Route("/patterns", func(r chi.Router) {
			r.Get("/", h.ListPatterns)
			r.Post("/match", h.MatchPattern)

			r.Route("/{patternID}", func(r chi.Router) {
				r.Get("/", h.GetPattern)
				r.Delete("/", h.DeletePattern)
				r.Get("/events", h.ListPatternEvents)
			})
		})

		r.Route("/automation", func(r chi.Router) {
			r.Post("/requests", h.SubmitAutomation)
			r.Post("/guidance-responses", h.RespondToGuidance)
		})

		r.Route("/training/sessions", func(r chi.Router) {
			r.Post("/", h.StartTraining)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", h.GetTraining)
				r.Delete("/", h.EndTraining)
				r.Post("/selection", h.RequestSelection)
				r.Post("/confirm", h.ConfirmSelection)
				r.Post("/cancel", h.CancelSelection)
			})
		})
	})

	return r
}
