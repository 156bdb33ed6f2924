package bootstrap

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-booking/internal/api/router"
	"github.com/wolfman30/clinic-booking/internal/booking"
	"github.com/wolfman30/clinic-booking/internal/clinic"
	appconfig "github.com/wolfman30/clinic-booking/internal/config"
	"github.com/wolfman30/clinic-booking/internal/demo"
	httpmiddleware "github.com/wolfman30/clinic-booking/internal/http/middleware"
	"github.com/wolfman30/clinic-booking/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking/internal/session"
	"github.com/wolfman30/clinic-booking/pkg/logging"
)

const (
	sessionSweepInterval = time.Minute
	limiterEvictInterval = 5 * time.Minute
)

// App is the wired coordinator: HTTP handler plus the background loops that
// keep it healthy.
type App struct {
	Handler   http.Handler
	Directory *clinic.Directory
	Sessions  *session.Store
	Metrics   *metrics.BookingMetrics

	cfg     *appconfig.Config
	logger  *logging.Logger
	limiter *httpmiddleware.RateLimiter
	redis   *redis.Client
}

// Options overrides pieces of the default wiring. Zero values use defaults.
type Options struct {
	Registry    *prometheus.Registry
	RedisClient *redis.Client
}

// Build wires the coordinator from configuration.
func Build(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, opts Options) *App {
	if logger == nil {
		logger = logging.Default()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	m := metrics.NewBookingMetrics(reg)

	redisClient := opts.RedisClient
	if redisClient == nil {
		redisClient = BuildRedisClient(ctx, cfg, logger, true)
	}

	client := BuildCatalogClient(cfg, logger, m)
	dir, _ := BuildDirectory(ctx, client, redisClient, cfg, logger)

	store := session.NewStore(session.Deps{
		Resolver:  booking.NewResolver(client, m, logger),
		Gateway:   client,
		Directory: dir,
		Metrics:   m,
		Logger:    logger,
		TTL:       cfg.SessionTTL,
	})
	limiter := httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	handler := router.New(&router.Config{
		Logger:             logger,
		CatalogHandler:     clinic.NewHandler(dir, client, logger),
		SessionHandler:     session.NewHandler(store, client, logger),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		StatsHandler:       metrics.NewStatsHandler(reg),
		RateLimiter:        limiter,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Ready: func() error {
			_, err := dir.Current()
			return err
		},
	})

	return &App{
		Handler:   handler,
		Directory: dir,
		Sessions:  store,
		Metrics:   m,
		cfg:       cfg,
		logger:    logger,
		limiter:   limiter,
		redis:     redisClient,
	}
}

// Run drives the directory refresh, session expiry and rate-limiter eviction
// loops until ctx is done, then closes every session and the Redis client.
func (a *App) Run(ctx context.Context) {
	var wg sync.WaitGroup
	loops := []func(context.Context){
		func(ctx context.Context) { a.Directory.Run(ctx, a.cfg.CatalogRefreshInterval) },
		func(ctx context.Context) { a.Sessions.Run(ctx, sessionSweepInterval) },
		func(ctx context.Context) { a.limiter.Run(ctx, limiterEvictInterval) },
	}
	for _, loop := range loops {
		wg.Add(1)
		go func() {
			defer wg.Done()
			loop(ctx)
		}()
	}
	wg.Wait()

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("redis close failed", "error", err)
		}
	}
	a.logger.Info("background loops stopped")
}

// DemoServer serves the fake clinic API under /api/v1 on addr.
func DemoServer(addr string, logger *logging.Logger, opts ...demo.Option) *http.Server {
	r := chi.NewRouter()
	r.Use(httpmiddleware.RequestLogger(logger))
	r.Mount("/api/v1", demo.NewBackend(logger, opts...).Routes())
	return &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
