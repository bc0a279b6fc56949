package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"dealer_hunt/internal/bot"
	"dealer_hunt/internal/config"
	"dealer_hunt/internal/hunt"
	"dealer_hunt/internal/lock"
	"dealer_hunt/internal/provider"
	"dealer_hunt/internal/scheduler"
	"dealer_hunt/internal/server"
	"dealer_hunt/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel, cfg.LogFile)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("hunter stopped", "error", err)
		os.Exit(1)
	}
	log.Info("hunter stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	catalog, err := cfg.Catalog()
	if err != nil {
		return err
	}

	locker := lock.Locker(lock.NewLocal())
	if cfg.RedisURL != "" {
		rc, err := lock.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer func() { _ = rc.Close() }()
		locker = lock.NewRedis(rc, "dealer_hunt:lock:", 30*time.Minute)
		log.Info("using redis run lock")
	}

	httpClient := &http.Client{Timeout: 60 * time.Second}
	deps := hunt.Deps{
		Store:    store,
		Feeds:    provider.NewFeedReader(httpClient),
		Catalog:  catalog,
		Throttle: provider.NewThrottle(cfg.FetchDelay),
		Locker:   locker,
		Notifier: hunt.LogNotifier{Logger: log.With("component", "alerts")},
		Logger:   log.With("component", "hunt"),
	}
	client, err := provider.NewClient(httpClient, cfg.SearchAPIURL, cfg.SearchAPIKey)
	switch {
	case errors.Is(err, provider.ErrMissingAPIKey):
		log.Warn("SEARCH_API_KEY is not set, runs will fail until it is configured")
	case err != nil:
		return err
	default:
		deps.Search = client
		deps.Scrape = client
	}

	runner := hunt.NewRunner(deps, hunt.Config{
		ResultLimit:   cfg.HuntResultLimit,
		MinTier1Yield: cfg.MinTier1Yield,
	})

	var b *bot.Bot
	if cfg.TelegramBotToken != "" {
		b, err = bot.New(cfg.TelegramBotToken, store, runner, cfg, log.With("component", "bot"))
		if err != nil {
			return err
		}
		if cfg.AlertChatID != 0 {
			runner.Notifier = b
		} else {
			log.Warn("ALERT_CHAT_ID is not set, alerts go to the log")
		}
	}

	srv := server.New(store, runner, log.With("component", "http"))
	sched := scheduler.New(store, runner, log.With("component", "scheduler"),
		cfg.HuntCron, cfg.HuntConcurrency, cfg.HuntResultLimit)

	errc := make(chan error, 2)
	go func() { errc <- sched.Run(ctx) }()
	go func() { errc <- srv.Listen(cfg.HTTPAddr) }()
	if b != nil {
		go b.Run(ctx)
	}

	log.Info("hunter started", "http_addr", cfg.HTTPAddr, "db_driver", cfg.DBDriver)

	select {
	case <-ctx.Done():
	case err = <-errc:
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		log.Error("shutdown http server", "error", serr)
	}
	return err
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	if cfg.DBDriver == config.DriverPostgres {
		return storage.NewPostgres(ctx, cfg.DatabaseURL)
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create data directory %s: %w", dir, err)
		}
	}
	return storage.NewSQLite(cfg.DatabasePath)
}

func newLogger(level, file string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	var out io.Writer = os.Stderr
	if file != "" {
		out = &lumberjack.Logger{
			Filename:   file,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		}
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: lvl}))
}
