package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinic-booking/internal/clinic"
	httpmiddleware "github.com/wolfman30/clinic-booking/internal/http/middleware"
	"github.com/wolfman30/clinic-booking/internal/session"
	"github.com/wolfman30/clinic-booking/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	CatalogHandler     *clinic.Handler
	SessionHandler     *session.Handler
	MetricsHandler     http.Handler
	StatsHandler       http.Handler
	RateLimiter        *httpmiddleware.RateLimiter
	CORSAllowedOrigins []string

	// Ready reports whether the service can take traffic. Optional.
	Ready func() error
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	r.Group(func(public chi.Router) {
		public.Get("/health", health)
		public.Get("/ready", ready(cfg.Ready, cfg.Logger))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Route("/api", func(api chi.Router) {
		if cfg.RateLimiter != nil {
			api.Use(cfg.RateLimiter.Middleware)
		}
		if cfg.StatsHandler != nil {
			api.With(middleware.Compress(5)).Handle("/stats", cfg.StatsHandler)
		}
		if cfg.CatalogHandler != nil {
			api.With(middleware.Compress(5)).Mount("/catalog", cfg.CatalogHandler.Routes())
		}
		if cfg.SessionHandler != nil {
			api.Mount("/sessions", cfg.SessionHandler.Routes())
			api.Mount("/bookings", cfg.SessionHandler.BookingRoutes())
		}
	})

	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, http.StatusOK, map[string]string{"status": "ok"})
}

func ready(check func() error, logger *logging.Logger) http.HandlerFunc {
	if logger == nil {
		logger = logging.Default()
	}
	return func(w http.ResponseWriter, _ *http.Request) {
		if check != nil {
			if err := check(); err != nil {
				logger.Warn("readiness check failed", "error", err)
				writeStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeStatus(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeStatus(w http.ResponseWriter, status int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
