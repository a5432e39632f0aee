package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"saucery/internal/cache"
	"saucery/internal/config"
	"saucery/internal/engine"
	"saucery/internal/fetch"
	"saucery/internal/orchestrator"
	"saucery/internal/prefs"
	"saucery/internal/provider"
	"saucery/internal/search"
	"saucery/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configFlag)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg)

	engines := engine.NewFromConfig(cfg, logger)
	if len(engines) == 0 {
		return errors.New("no search engines are enabled")
	}
	providers := provider.NewFromConfig(cfg, logger)

	archive, closeArchive, err := buildArchive(cfg, logger)
	if err != nil {
		return err
	}
	defer closeArchive()

	store, err := prefs.Open(cfg.Prefs.Path)
	if err != nil {
		return fmt.Errorf("open preference store: %w", err)
	}
	defer func() { _ = store.Close() }()

	svc := search.New(search.Options{
		Archive: archive,
		Orchestrator: orchestrator.New(
			engines, providers, cfg.Search.Concurrency, logger),
		Fetcher: fetch.New(cfg.Search.FetchMaxBytes),
		Logger:  logger,
	})

	srv := server.New(server.Options{
		Search:  svc,
		Prefs:   store,
		Engines: engines,
		Logger:  logger,
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("serving", "bind", cfg.Server.Bind, "engines", len(engines))
		if err := srv.Start(cfg.Server.Bind); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// buildArchive connects the duplicate-detection archive, or returns nil when
// it is disabled. The returned closer is always safe to call.
func buildArchive(cfg *config.Config, logger *slog.Logger) (*cache.Archive, func(), error) {
	if !cfg.Archive.Enabled {
		return nil, func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	archive := cache.NewArchive(cache.ArchiveOptions{
		Client:      client,
		MaxDistance: cfg.Archive.MaxDistance,
		MaxResults:  cfg.Archive.MaxResults,
		TTL:         time.Duration(cfg.Archive.TTLDays) * 24 * time.Hour,
		Logger:      logger,
	})
	return archive, func() { _ = client.Close() }, nil
}
