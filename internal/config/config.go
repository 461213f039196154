// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/ingest.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Table names — single source of truth, matches the bootstrap schema
// --------------------------------------------------------------------------

const (
	PlayersTable = "players"
	SeasonsTable = "seasons"
)

// CurrentSeasonCutoff is the first season of the "current" window used by
// identity reconciliation: a player name seen under multiple source IDs is
// only a merge candidate if one of those IDs appears at or after this year.
// It doubles as the default split point for merges.
const CurrentSeasonCutoff = 2024

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production

	// CORS
	CORSAllowOrigins []string

	// API rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Remote stats source
	StatsBaseURL      string
	RequestsPerMinute int
	RequestTimeout    time.Duration
	MaxRetries        int

	// Fetch pacing and budgets
	PaceMaxRequests  int
	PaceResetSeconds int
	DailyLimit       int

	// Incremental update
	ProgressFile   string
	UpdateCooldown time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", envOr("COURTLINE_DATABASE_URL", ""))
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL or COURTLINE_DATABASE_URL must be set")
	}

	return &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		StatsBaseURL:      envOr("STATS_BASE_URL", "https://stats.nba.com/stats"),
		RequestsPerMinute: envInt("STATS_REQUESTS_PER_MINUTE", 30),
		RequestTimeout:    time.Duration(envInt("STATS_REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
		MaxRetries:        envInt("STATS_MAX_RETRIES", 5),

		PaceMaxRequests:  envInt("PACE_MAX_REQUESTS", 25),
		PaceResetSeconds: envInt("PACE_RESET_SECONDS", 60),
		DailyLimit:       envInt("DAILY_REQUEST_LIMIT", 300),

		ProgressFile:   envOr("PROGRESS_FILE", "update_progress.json"),
		UpdateCooldown: time.Duration(envInt("UPDATE_COOLDOWN_MINUTES", 60)) * time.Minute,
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
