package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds everything the card pipeline consumes from the environment.
// The core components never read env vars themselves; they receive values
// from here so tests can construct independent instances.
type Config struct {
	// FACEIT Data API
	FaceitAPIKey  string
	FaceitBaseURL string

	// Outbound request budget
	RequestsPerSecond float64
	MaxRetries        int
	RetryBaseDelay    time.Duration

	// Rendering
	TemplateDir     string
	PoolSize        int
	CheckoutTimeout time.Duration

	// Card cache
	CacheTTL      time.Duration
	CacheCapacity int

	// Upstream response cache (optional; empty URL disables Redis)
	RedisURL         string
	ResponseCacheTTL time.Duration

	// Defaults for requests
	WindowSize      int
	DefaultTemplate string

	// Servers
	RESTPort string
	WSPort   string

	LogLevel string
}

// Load reads configuration from a .env file (if present) and the environment.
func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		FaceitAPIKey:      getEnv("FACEIT_API_KEY", ""),
		FaceitBaseURL:     getEnv("FACEIT_BASE_URL", "https://open.faceit.com/data/v4"),
		RequestsPerSecond: getEnvFloat("FACEIT_RPS", 4),
		MaxRetries:        getEnvInt("FACEIT_MAX_RETRIES", 3),
		RetryBaseDelay:    getEnvDuration("FACEIT_RETRY_BASE_DELAY", time.Second),
		TemplateDir:       getEnv("TEMPLATE_DIR", "templates"),
		PoolSize:          getEnvInt("RENDER_POOL_SIZE", 3),
		CheckoutTimeout:   getEnvDuration("RENDER_CHECKOUT_TIMEOUT", 10*time.Second),
		CacheTTL:          getEnvDuration("CARD_CACHE_TTL", 5*time.Minute),
		CacheCapacity:     getEnvInt("CARD_CACHE_CAPACITY", 256),
		RedisURL:          getEnv("REDIS_URL", ""),
		ResponseCacheTTL:  getEnvDuration("RESPONSE_CACHE_TTL", 5*time.Minute),
		WindowSize:        getEnvInt("MATCH_WINDOW_SIZE", 20),
		DefaultTemplate:   getEnv("DEFAULT_TEMPLATE", "classic"),
		RESTPort:          getEnv("REST_PORT", "8080"),
		WSPort:            getEnv("WS_PORT", "8081"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}

	if cfg.FaceitAPIKey == "" {
		return nil, fmt.Errorf("FACEIT_API_KEY is required")
	}
	if cfg.PoolSize < 1 {
		return nil, fmt.Errorf("RENDER_POOL_SIZE must be at least 1, got %d", cfg.PoolSize)
	}
	if cfg.WindowSize < 1 {
		return nil, fmt.Errorf("MATCH_WINDOW_SIZE must be at least 1, got %d", cfg.WindowSize)
	}

	logger.Info().
		Float64("rps", cfg.RequestsPerSecond).
		Int("pool_size", cfg.PoolSize).
		Int("window_size", cfg.WindowSize).
		Dur("cache_ttl", cfg.CacheTTL).
		Str("template_dir", cfg.TemplateDir).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
