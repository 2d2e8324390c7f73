package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/dtiscope/internal/interfaces/http/handlers"
	"github.com/turtacn/dtiscope/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// route tree.  Nil handlers leave their routes unmounted.
type RouterConfig struct {
	SessionHandler *handlers.SessionHandler
	HealthHandler  *handlers.HealthHandler

	CORS      *middleware.CORSConfig
	Logging   middleware.LoggingConfig
	RateLimit *RateLimitSetup

	// MaxBodySize caps API request bodies; zero leaves them unbounded
	// apart from the handlers' own limit.
	MaxBodySize int64

	Logger         logging.Logger
	Metrics        *prometheus.AppMetrics
	MetricsHandler http.Handler
	MetricsPath    string
}

// RateLimitSetup pairs a limiter with its middleware options.
type RateLimitSetup struct {
	Limiter middleware.RateLimiter
	Config  middleware.RateLimitConfig
}

// NewRouter constructs the complete HTTP route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if cfg.CORS != nil {
		r.Use(middleware.CORS(*cfg.CORS))
	}
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.Logging))
	if cfg.Metrics != nil {
		r.Use(middleware.RequestMetrics(cfg.Metrics))
	}
	if cfg.RateLimit != nil {
		r.Use(middleware.RateLimit(cfg.RateLimit.Limiter, cfg.RateLimit.Config))
	}

	// --- Probes ---
	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}

	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsHandler)
	}

	// --- API v1 ---
	r.Route("/api/v1", func(api chi.Router) {
		if cfg.MaxBodySize > 0 {
			api.Use(chimw.RequestSize(cfg.MaxBodySize))
		}
		registerSessionRoutes(api, cfg.SessionHandler)
	})

	return r
}

// registerSessionRoutes mounts the session endpoints under /sessions.
func registerSessionRoutes(r chi.Router, h *handlers.SessionHandler) {
	if h == nil {
		return
	}
	r.Route("/sessions", func(sr chi.Router) {
		sr.Post("/", h.Create)

		sr.Route("/{sessionID}", func(item chi.Router) {
			item.Get("/", h.Get)
			item.Delete("/", h.Delete)
			item.Post("/analyze", h.Analyze)
			item.Get("/ws", h.Stream)

			item.Route("/{kind}", func(kr chi.Router) {
				kr.Post("/query", h.Query)
				kr.Post("/select", h.Select)
				kr.Post("/mode", h.ToggleMode)
				kr.Put("/manual", h.SetManual)
				kr.Post("/manual/submit", h.SubmitManual)
			})
		})
	})
}

//Personal.AI order the ending
