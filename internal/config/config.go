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
// Table names, matching the migrations
// --------------------------------------------------------------------------

const (
	PlayersTable    = "players"
	ScrapeRunsTable = "scrape_runs"
)

// PlayersChangedChannel is the NOTIFY channel ingest signals after it
// changes the players collection.
const PlayersChangedChannel = "players_changed"

// DefaultScrapeURL is the market page scraped when SCRAPE_URL is unset.
const DefaultScrapeURL = "https://www.futbolfantasy.com/analytics/laliga-fantasy/mercado"

// --------------------------------------------------------------------------
// Config struct, populated from environment variables
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
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Cache
	CacheEnabled bool
	CacheTTL     time.Duration

	// Scraping
	ScrapeURL         string
	ScrapeMode        string // static, browser
	ScrapeSource      string
	ContentMarker     string
	ConsentLabel      string
	MaxPages          int
	Threshold         int
	ChunkSize         int
	RunTimeout        time.Duration
	Schedule          string
	RequestsPerMinute int
	ChromeHeadless    bool
	ChromeExecPath    string
	RunLogLimit       int
}

// Load reads configuration from environment variables with sensible defaults.
// DATABASE_URL is not validated here; commands that need the store call
// RequireDatabase.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    envOr("DATABASE_URL", ""),
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		CacheEnabled: envBool("CACHE_ENABLED", true),
		CacheTTL:     envDuration("CACHE_TTL", 5*time.Minute),

		ScrapeURL:         envOr("SCRAPE_URL", DefaultScrapeURL),
		ScrapeMode:        envOr("SCRAPE_MODE", "browser"),
		ScrapeSource:      envOr("SCRAPE_SOURCE", "laliga-fantasy"),
		ContentMarker:     envOr("SCRAPE_CONTENT_MARKER", ".elemento_jugador"),
		ConsentLabel:      envOr("SCRAPE_CONSENT_LABEL", "ACEPTO"),
		MaxPages:          envInt("SCRAPE_MAX_PAGES", 50),
		Threshold:         envInt("SCRAPE_THRESHOLD", 10),
		ChunkSize:         envInt("SCRAPE_CHUNK_SIZE", 500),
		RunTimeout:        time.Duration(envInt("SCRAPE_RUN_TIMEOUT_SECONDS", 300)) * time.Second,
		Schedule:          envOr("SCRAPE_SCHEDULE", "@every 12h"),
		RequestsPerMinute: envInt("SCRAPE_REQUESTS_PER_MINUTE", 30),
		ChromeHeadless:    envBool("CHROME_HEADLESS", true),
		ChromeExecPath:    envOr("CHROME_PATH", ""),
		RunLogLimit:       envInt("RUN_LOG_LIMIT", 50),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the scrape settings. Commands call it again after applying
// flag overrides.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 || c.ChunkSize > 500 {
		return fmt.Errorf("SCRAPE_CHUNK_SIZE must be between 1 and 500, got %d", c.ChunkSize)
	}
	if c.MaxPages <= 0 {
		return fmt.Errorf("SCRAPE_MAX_PAGES must be positive, got %d", c.MaxPages)
	}
	if c.Threshold <= 0 {
		return fmt.Errorf("SCRAPE_THRESHOLD must be positive, got %d", c.Threshold)
	}
	return nil
}

// RequireDatabase reports an error when no database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set")
	}
	return nil
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

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
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
