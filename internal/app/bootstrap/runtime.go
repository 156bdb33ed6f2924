package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/clinic-booking/internal/catalog"
	"github.com/wolfman30/clinic-booking/internal/clinic"
	appconfig "github.com/wolfman30/clinic-booking/internal/config"
	"github.com/wolfman30/clinic-booking/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available; clinic directory will not be cached", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildCatalogClient creates the remote clinic API client.
func BuildCatalogClient(cfg *appconfig.Config, logger *logging.Logger, observer catalog.RequestObserver) *catalog.Client {
	opts := []catalog.Option{catalog.WithTimeout(cfg.RequestTimeout)}
	if key := strings.TrimSpace(cfg.ClinicAPIKey); key != "" {
		opts = append(opts, catalog.WithAPIKey(key))
	}
	if observer != nil {
		opts = append(opts, catalog.WithObserver(observer))
	}
	return catalog.NewClient(cfg.ClinicAPIBaseURL, logger, opts...)
}

// BuildDirectory creates the clinic directory, cached in Redis when a client
// is given, and attempts the initial load. A failed load is logged and
// returned; the directory stays usable and retries on its refresh loop.
func BuildDirectory(ctx context.Context, source clinic.Source, redisClient *redis.Client, cfg *appconfig.Config, logger *logging.Logger) (*clinic.Directory, error) {
	var cache clinic.Cache
	if redisClient != nil {
		cache = clinic.NewRedisCache(redisClient, cfg.CatalogCacheTTL)
	}
	dir := clinic.NewDirectory(source, cache, logger)
	if err := dir.Load(ctx); err != nil {
		logger.Warn("clinic directory not loaded at startup", "error", err)
		return dir, err
	}
	snap := dir.Snapshot()
	logger.Info("clinic directory loaded", "branches", len(snap.Branches), "services", len(snap.Services))
	return dir, nil
}
