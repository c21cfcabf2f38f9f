package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/amirulm/aidlog/internal/api"
	"github.com/amirulm/aidlog/internal/config"
	"github.com/amirulm/aidlog/internal/dialogue"
	"github.com/amirulm/aidlog/internal/geocode"
	"github.com/amirulm/aidlog/internal/objstore"
	"github.com/amirulm/aidlog/internal/recap"
	"github.com/amirulm/aidlog/internal/sqlite"
	"github.com/amirulm/aidlog/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := run(cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return fmt.Errorf("preparing database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	if err := db.RunMigrations(); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	activityRepo := sqlite.NewActivityRepository(db)

	transport, err := telegram.New(cfg.Telegram.Token, logger)
	if err != nil {
		return err
	}

	geocoder := geocode.New(cfg.Geocode.BaseURL, cfg.Geocode.UserAgent, cfg.Geocode.Timeout.Std())

	var uploader dialogue.Uploader
	if cfg.ObjectStore.Enabled() {
		up, err := objstore.New(cfg.ObjectStore)
		if err != nil {
			return fmt.Errorf("configuring object store: %w", err)
		}
		uploader = up
		logger.Info("object store enabled", "bucket", cfg.ObjectStore.Bucket)
	}

	engine := dialogue.NewEngine(
		activityRepo,
		transport,
		geocoder,
		uploader,
		dialogue.NewAllowlist(cfg.Telegram.AllowedUserIDs),
		cfg.Telegram.ChannelID,
		logger,
	)

	recapSched := recap.NewScheduler(activityRepo, transport, cfg.Telegram.AdminChatID, cfg.Telegram.ChannelID, logger)
	engine.RegisterCallbackHandler(recapSched)
	if err := recapSched.Start(cfg.Recap.Schedule); err != nil {
		return err
	}
	defer recapSched.Stop()

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: api.NewRouter(activityRepo, logger),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("polling for updates")
		return telegram.NewPoller(transport, engine).Run(ctx)
	})

	g.Go(func() error {
		logger.Info("http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if timeout := cfg.Session.IdleTimeout.Std(); timeout > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					engine.CancelIdleSessions(ctx, timeout)
				}
			}
		})
	}

	logger.Info("aidlog started")
	return g.Wait()
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
