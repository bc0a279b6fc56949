package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var allKeys = []string{
	"DB_DRIVER", "DATABASE_PATH", "DATABASE_URL", "REDIS_URL",
	"SEARCH_API_URL", "SEARCH_API_KEY", "TELEGRAM_BOT_TOKEN", "ALERT_CHAT_ID",
	"ALLOWED_USERS", "HTTP_ADDR", "HUNT_CRON", "HUNT_CONCURRENCY",
	"HUNT_RESULT_LIMIT", "MIN_TIER1_YIELD", "FETCH_DELAY", "SOURCES_FILE",
	"LOG_LEVEL", "LOG_FILE",
}

func defaults() *Config {
	return &Config{
		DBDriver:        DriverSQLite,
		DatabasePath:    "./data/hunter.db",
		SearchAPIURL:    "https://api.firecrawl.dev",
		HTTPAddr:        ":8080",
		HuntCron:        "@every 6h",
		HuntConcurrency: 2,
		HuntResultLimit: 10,
		MinTier1Yield:   3,
		FetchDelay:      1500 * time.Millisecond,
		LogLevel:        "info",
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    func() *Config
		wantErr bool
	}{
		{
			name: "defaults applied",
			env:  map[string]string{},
			want: defaults,
		},
		{
			name: "all values set",
			env: map[string]string{
				"DB_DRIVER":          "postgres",
				"DATABASE_URL":       "postgres://hunter@localhost/hunter",
				"REDIS_URL":          "redis://localhost:6379/0",
				"SEARCH_API_URL":     "http://search.local",
				"SEARCH_API_KEY":     "fc-key",
				"TELEGRAM_BOT_TOKEN": "tok",
				"ALERT_CHAT_ID":      "-100123",
				"ALLOWED_USERS":      "111,222,333",
				"HTTP_ADDR":          ":9090",
				"HUNT_CRON":          "0 */4 * * *",
				"HUNT_CONCURRENCY":   "4",
				"HUNT_RESULT_LIMIT":  "20",
				"MIN_TIER1_YIELD":    "1",
				"FETCH_DELAY":        "250ms",
				"SOURCES_FILE":       "/etc/hunter/sources.yaml",
				"LOG_LEVEL":          "debug",
				"LOG_FILE":           "/var/log/hunter.log",
			},
			want: func() *Config {
				return &Config{
					DBDriver:         DriverPostgres,
					DatabasePath:     "./data/hunter.db",
					DatabaseURL:      "postgres://hunter@localhost/hunter",
					RedisURL:         "redis://localhost:6379/0",
					SearchAPIURL:     "http://search.local",
					SearchAPIKey:     "fc-key",
					TelegramBotToken: "tok",
					AlertChatID:      -100123,
					AllowedUsers:     []int64{111, 222, 333},
					HTTPAddr:         ":9090",
					HuntCron:         "0 */4 * * *",
					HuntConcurrency:  4,
					HuntResultLimit:  20,
					MinTier1Yield:    1,
					FetchDelay:       250 * time.Millisecond,
					SourcesFile:      "/etc/hunter/sources.yaml",
					LogLevel:         "debug",
					LogFile:          "/var/log/hunter.log",
				}
			},
		},
		{
			name: "allowed users with spaces",
			env:  map[string]string{"ALLOWED_USERS": " 10 , 20 , "},
			want: func() *Config {
				c := defaults()
				c.AllowedUsers = []int64{10, 20}
				return c
			},
		},
		{
			name:    "invalid user id",
			env:     map[string]string{"ALLOWED_USERS": "123,abc"},
			wantErr: true,
		},
		{
			name:    "unknown driver",
			env:     map[string]string{"DB_DRIVER": "mysql"},
			wantErr: true,
		},
		{
			name:    "postgres without url",
			env:     map[string]string{"DB_DRIVER": "postgres"},
			wantErr: true,
		},
		{
			name:    "zero concurrency",
			env:     map[string]string{"HUNT_CONCURRENCY": "0"},
			wantErr: true,
		},
		{
			name:    "bad fetch delay",
			env:     map[string]string{"FETCH_DELAY": "soon"},
			wantErr: true,
		},
		{
			name:    "bad chat id",
			env:     map[string]string{"ALERT_CHAT_ID": "general"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range allKeys {
				t.Setenv(key, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want(), got); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIsUserAllowed(t *testing.T) {
	tests := []struct {
		name         string
		allowedUsers []int64
		userID       int64
		want         bool
	}{
		{
			name:         "empty list allows everyone",
			allowedUsers: nil,
			userID:       42,
			want:         true,
		},
		{
			name:         "user in list",
			allowedUsers: []int64{10, 20, 30},
			userID:       20,
			want:         true,
		},
		{
			name:         "user not in list",
			allowedUsers: []int64{10, 20, 30},
			userID:       99,
			want:         false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{AllowedUsers: tt.allowedUsers}
			got := cfg.IsUserAllowed(tt.userID)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("IsUserAllowed() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCatalog(t *testing.T) {
	cat, err := (&Config{}).Catalog()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	if cat.Lookup("pickles.com.au") == nil {
		t.Error("default catalog missing pickles")
	}

	path := filepath.Join(t.TempDir(), "sources.yaml")
	body := `sources:
  - name: slattery
    domains: [slatteryauctions.com.au]
    tier: 1
    kind: auction
    detailPatterns: ['^/lot/(\d+)']
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cat, err = (&Config{SourcesFile: path}).Catalog()
	if err != nil {
		t.Fatalf("file catalog: %v", err)
	}
	if cat.Lookup("slatteryauctions.com.au") == nil || cat.Lookup("pickles.com.au") != nil {
		t.Error("file catalog should replace the built-in sources")
	}

	if _, err := (&Config{SourcesFile: filepath.Join(t.TempDir(), "missing.yaml")}).Catalog(); err == nil {
		t.Error("expected error for missing sources file")
	}
}
