// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"dealer_hunt/internal/source"
)

// Supported storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the application configuration.
type Config struct {
	DBDriver     string
	DatabasePath string
	DatabaseURL  string
	RedisURL     string

	SearchAPIURL string
	SearchAPIKey string

	TelegramBotToken string
	AlertChatID      int64
	AllowedUsers     []int64

	HTTPAddr        string
	HuntCron        string
	HuntConcurrency int
	HuntResultLimit int
	MinTier1Yield   int
	FetchDelay      time.Duration
	SourcesFile     string

	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		DBDriver:         envOr("DB_DRIVER", DriverSQLite),
		DatabasePath:     envOr("DATABASE_PATH", "./data/hunter.db"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		SearchAPIURL:     envOr("SEARCH_API_URL", "https://api.firecrawl.dev"),
		SearchAPIKey:     os.Getenv("SEARCH_API_KEY"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		HTTPAddr:         envOr("HTTP_ADDR", ":8080"),
		HuntCron:         envOr("HUNT_CRON", "@every 6h"),
		SourcesFile:      os.Getenv("SOURCES_FILE"),
		LogLevel:         envOr("LOG_LEVEL", "info"),
		LogFile:          os.Getenv("LOG_FILE"),
	}

	switch cfg.DBDriver {
	case DriverSQLite:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when DB_DRIVER=%s", DriverPostgres)
		}
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER %q, use: %s, %s", cfg.DBDriver, DriverSQLite, DriverPostgres)
	}

	var err error
	if cfg.AlertChatID, err = envInt64("ALERT_CHAT_ID", 0); err != nil {
		return nil, err
	}
	if cfg.HuntConcurrency, err = envPositiveInt("HUNT_CONCURRENCY", 2); err != nil {
		return nil, err
	}
	if cfg.HuntResultLimit, err = envPositiveInt("HUNT_RESULT_LIMIT", 10); err != nil {
		return nil, err
	}
	if cfg.MinTier1Yield, err = envPositiveInt("MIN_TIER1_YIELD", 3); err != nil {
		return nil, err
	}
	if cfg.FetchDelay, err = envDuration("FETCH_DELAY", 1500*time.Millisecond); err != nil {
		return nil, err
	}

	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			cfg.AllowedUsers = append(cfg.AllowedUsers, uid)
		}
	}

	return cfg, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// Catalog returns the source catalog from SOURCES_FILE, or the built-in one.
func (c *Config) Catalog() (*source.Catalog, error) {
	if c.SourcesFile == "" {
		return source.Default(), nil
	}
	return source.Load(c.SourcesFile)
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt64(key string, def int64) (int64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}

func envPositiveInt(key string, def int) (int, error) {
	n, err := envInt64(key, int64(def))
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("%s must be at least 1, got %d", key, n)
	}
	return int(n), nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s cannot be negative", key)
	}
	return d, nil
}
