package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the service.
type Config struct {
	Addr        string
	Env         string // development | production
	LogLevel    string
	DatabaseURL string

	// Hosted identity provider.
	IdentityURL    string
	IdentityAPIKey string

	// Local token signing.
	JWTSecret   string
	JWTTokenTTL time.Duration

	// Hosted object store.
	StorageURL        string
	StorageBucket     string
	StorageServiceKey string

	RateLimit RateLimitConfig
	Upload    UploadConfig
}

// RateLimitConfig holds sliding-window parameters for per-IP rate limiting.
type RateLimitConfig struct {
	Window time.Duration
	Max    int
}

// UploadConfig bounds file uploads before they reach the object store.
type UploadConfig struct {
	MaxFileBytes int64
	MaxFiles     int
}

// Load reads configuration from environment variables, falling back to
// defaults. It fails rather than start with a placeholder JWT secret in
// production.
func Load() (Config, error) {
	cfg := Config{
		Addr:        envOr("ADDR", ":8080"),
		Env:         envOr("ENV", "development"),
		LogLevel:    envOr("LOG_LEVEL", "info"),
		DatabaseURL: envOr("DATABASE_URL", "postgres://localhost:5432/crownkeys?sslmode=disable"),

		IdentityURL:    envOr("IDENTITY_URL", "http://localhost:9999"),
		IdentityAPIKey: envOr("IDENTITY_API_KEY", ""),

		JWTSecret:   envOr("JWT_SECRET", "change-me"),
		JWTTokenTTL: envDuration("JWT_TOKEN_TTL", 7*24*time.Hour),

		StorageURL:        envOr("STORAGE_URL", "http://localhost:9998"),
		StorageBucket:     envOr("STORAGE_BUCKET", "crown-keys"),
		StorageServiceKey: envOr("STORAGE_SERVICE_KEY", ""),

		RateLimit: RateLimitConfig{
			Window: envDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
			Max:    envInt("RATE_LIMIT_MAX", 100),
		},
		Upload: UploadConfig{
			MaxFileBytes: int64(envInt("UPLOAD_MAX_FILE_BYTES", 5<<20)),
			MaxFiles:     envInt("UPLOAD_MAX_FILES", 10),
		},
	}

	if cfg.Env == "production" && (cfg.JWTSecret == "" || cfg.JWTSecret == "change-me") {
		return Config{}, errors.New("JWT_SECRET must be set in production")
	}
	if cfg.RateLimit.Max < 1 {
		return Config{}, fmt.Errorf("RATE_LIMIT_MAX must be positive, got %d", cfg.RateLimit.Max)
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}
		return n
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}
		return d
	}
	return fallback
}
