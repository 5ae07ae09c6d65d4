// Package config loads server configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all runtime configuration for the server.
type Config struct {
	// Addr is the listen address for the HTTP server (e.g. ":8080").
	Addr string

	// DBPath is the filesystem path of the SQLite database.
	DBPath string

	// JWTSecret signs session tokens. Required unless APP_ENV=dev,
	// in which case an insecure development secret is used.
	JWTSecret string

	// TokenTTL is how long issued tokens remain valid.
	TokenTTL time.Duration

	// WarnRatio is the budget consumption fraction at which a warning
	// alert fires. Must be strictly between 0 and 1.
	WarnRatio decimal.Decimal

	// RolloverInterval is how often recurring budget windows are checked
	// for expiry.
	RolloverInterval time.Duration
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Addr:   getEnv("ADDR", ":8080"),
		DBPath: getEnv("DB_PATH", "./data/expenses.db"),
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		if os.Getenv("APP_ENV") != "dev" {
			return nil, fmt.Errorf("JWT_SECRET is not set")
		}
		cfg.JWTSecret = "insecure-dev-secret"
	}

	ttl, err := time.ParseDuration(getEnv("TOKEN_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}
	cfg.TokenTTL = ttl

	warn, err := decimal.NewFromString(getEnv("BUDGET_WARN_RATIO", "0.8"))
	if err != nil {
		return nil, fmt.Errorf("invalid BUDGET_WARN_RATIO: %w", err)
	}
	if warn.LessThanOrEqual(decimal.Zero) || warn.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("BUDGET_WARN_RATIO must be between 0 and 1, got %s", warn)
	}
	cfg.WarnRatio = warn

	rollover, err := time.ParseDuration(getEnv("ROLLOVER_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid ROLLOVER_INTERVAL: %w", err)
	}
	cfg.RolloverInterval = rollover

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
