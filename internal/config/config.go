// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config carries everything the server needs to start.
type Config struct {
	Port      int
	DBPath    string
	JWTSecret string
	TokenTTL  time.Duration

	// Fee percentages applied when a settlement request omits them.
	// Whole percents: 4 means 4%.
	DefaultPlatformFeePct decimal.Decimal
	DefaultCommissionPct  decimal.Decimal

	// Seed credentials for the first admin operator, created only when
	// the operators table is empty.
	AdminEmail    string
	AdminName     string
	AdminPassword string

	// SeedPath points at demo order data loaded when the DB is empty.
	// Empty disables seeding.
	SeedPath string
}

// Load reads configuration from environment variables, applying defaults
// for everything except secrets in production use.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:        getEnv("DB_PATH", "./data/settlements.db"),
		JWTSecret:     getEnv("JWT_SECRET", "dev-only-insecure-secret"),
		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@buildmandi.in"),
		AdminName:     getEnv("ADMIN_NAME", "Admin"),
		AdminPassword: getEnv("ADMIN_PASSWORD", "changeme-now"),
		SeedPath:      getEnv("SEED_PATH", "testdata/orders.json"),
	}

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	cfg.Port = port

	ttl, err := time.ParseDuration(getEnv("TOKEN_DURATION", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_DURATION: %w", err)
	}
	cfg.TokenTTL = ttl

	if cfg.DefaultPlatformFeePct, err = decimal.NewFromString(getEnv("DEFAULT_PLATFORM_FEE_PCT", "4")); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_PLATFORM_FEE_PCT: %w", err)
	}
	if cfg.DefaultCommissionPct, err = decimal.NewFromString(getEnv("DEFAULT_COMMISSION_PCT", "1")); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_COMMISSION_PCT: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
