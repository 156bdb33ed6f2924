package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Remote clinic API
	ClinicAPIBaseURL string
	ClinicAPIKey     string
	RequestTimeout   time.Duration

	// Clinic directory cache
	RedisAddr              string
	RedisPassword          string
	RedisTLS               bool
	CatalogCacheTTL        time.Duration
	CatalogRefreshInterval time.Duration

	// Booking sessions
	SessionTTL time.Duration

	// HTTP surface
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	// Demo backend (in-memory fake of the clinic API)
	DemoBackend     bool
	DemoBackendAddr string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ClinicAPIBaseURL: strings.TrimRight(getEnv("CLINIC_API_BASE_URL", "http://localhost:8090/api/v1"), "/"),
		ClinicAPIKey:     getEnv("CLINIC_API_KEY", ""),
		RequestTimeout:   getEnvAsDuration("REQUEST_TIMEOUT", 12*time.Second),

		RedisAddr:              getEnv("REDIS_ADDR", ""),
		RedisPassword:          getEnv("REDIS_PASSWORD", ""),
		RedisTLS:               getEnvAsBool("REDIS_TLS", false),
		CatalogCacheTTL:        getEnvAsDuration("CATALOG_CACHE_TTL", 10*time.Minute),
		CatalogRefreshInterval: getEnvAsDuration("CATALOG_REFRESH_INTERVAL", 15*time.Minute),

		SessionTTL: getEnvAsDuration("SESSION_TTL", 30*time.Minute),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 10),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),

		DemoBackend:     getEnvAsBool("DEMO_BACKEND", false),
		DemoBackendAddr: getEnv("DEMO_BACKEND_ADDR", ":8090"),
	}
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blank entries.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
