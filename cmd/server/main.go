// Package main provides the entry point for the entity cache service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scholarly/openalex-cache/internal/cache"
	"github.com/scholarly/openalex-cache/internal/config"
	"github.com/scholarly/openalex-cache/internal/entities"
	"github.com/scholarly/openalex-cache/internal/observability"
	"github.com/scholarly/openalex-cache/internal/openalex"
	httpserver "github.com/scholarly/openalex-cache/internal/server/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg.LoggingConfigFor())
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("openalex-cache server starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics.Namespace)
	}

	client := openalex.New(openalex.Config{
		BaseURL:         cfg.API.BaseURL,
		Email:           cfg.API.Email,
		APIKey:          cfg.API.APIKey,
		Timeout:         cfg.API.Timeout,
		RateLimit:       cfg.API.RateLimit,
		BurstSize:       cfg.API.BurstSize,
		MaxRetries:      cfg.API.MaxRetries,
		RetryDelay:      cfg.API.RetryDelay,
		BreakerFailures: cfg.API.BreakerFailures,
	}, metrics)

	codec, err := cache.CodecByName(cfg.Cache.Codec)
	if err != nil {
		return fmt.Errorf("resolve cache codec: %w", err)
	}

	evictor := cache.NewEvictor(cache.Limits{
		MaxStoragePercent: cfg.Cache.MaxStoragePercent,
		MaxFiles:          cfg.Cache.MaxFiles,
		MaxBytes:          cfg.Cache.MaxBytes,
		MinFiles:          cfg.Cache.MinFiles,
		MinBytes:          cfg.Cache.MinBytes,
	}, codec.Extension(), logger, metrics)

	store := cache.NewStore(cache.StoreConfig{
		Dir:        cfg.Cache.Dir,
		MaxAgeDays: cfg.Cache.MaxAgeDays,
	}, codec, evictor, logger, metrics)

	service := entities.NewService(client, store, entities.ServiceConfig{
		PerPage:            cfg.Fetch.PerPage,
		DefaultMaxEntities: cfg.Fetch.DefaultMaxEntities,
	}, logger, metrics)

	httpSrv := httpserver.NewServer(httpserver.Config{
		Address:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MetricsEnabled:  cfg.Metrics.Enabled,
	}, service, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	logger.Info().
		Str("http_address", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort)).
		Str("cache_dir", cfg.Cache.Dir).
		Str("codec", codec.Name()).
		Msg("openalex-cache is ready")

	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	logger.Info().Msg("shutting down openalex-cache")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	logger.Info().Msg("openalex-cache stopped")
	return nil
}
