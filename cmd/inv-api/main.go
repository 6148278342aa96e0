package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tuanvumaihuynh/inventory-service/internal/config"
	"github.com/tuanvumaihuynh/inventory-service/internal/http"
	"github.com/tuanvumaihuynh/inventory-service/internal/log"
	"github.com/tuanvumaihuynh/inventory-service/internal/repository"
	"github.com/tuanvumaihuynh/inventory-service/internal/service"
	"github.com/tuanvumaihuynh/inventory-service/internal/telemetry"
	"github.com/tuanvumaihuynh/inventory-service/pkg/cmdutil"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("error running api application: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	time.Local = time.UTC

	type Config struct {
		App      config.App
		Log      config.Log
		Store    config.Store
		Mongo    config.Mongo
		Postgres config.Postgres
		HTTP     config.HTTP
		Otel     config.Otel
	}
	cfg, err := config.New[Config]()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logger := log.NewSlogLogger(cfg.Log)

	cleanupTracer, err := telemetry.InitTracer(ctx, cfg.Otel)
	if err != nil {
		return fmt.Errorf("error initializing tracer: %w", err)
	}
	defer func() {
		if err := cleanupTracer(ctx); err != nil {
			logger.ErrorContext(ctx, "error cleaning up tracer", slog.Any("error", err))
		}
	}()

	store, closeStore, err := repository.OpenStore(ctx, repository.StoreConfig{
		Store:    cfg.Store,
		Mongo:    cfg.Mongo,
		Postgres: cfg.Postgres,
	})
	if err != nil {
		return fmt.Errorf("error opening store: %w", err)
	}
	defer func() {
		if err := closeStore(ctx); err != nil {
			logger.ErrorContext(ctx, "error closing store", slog.Any("error", err))
		}
	}()

	httpSvc, err := http.New(cfg.HTTP, cfg.App, logger, service.NewProductService(store), store)
	if err != nil {
		return fmt.Errorf("error creating http service: %w", err)
	}

	errChan := make(chan error, 1)
	shutdownChan := cmdutil.ShutdownChan(errChan, logger)

	cleanup, err := httpSvc.Run(ctx, errChan)
	if err != nil {
		return fmt.Errorf("error running http service: %w", err)
	}
	logger.InfoContext(ctx, "http service started", slog.String("address", fmt.Sprintf(":%d", cfg.HTTP.Port)))

	<-shutdownChan
	disarm := cmdutil.ForceExitAfter(cfg.App.ShutdownTimeout, logger)
	defer disarm()

	logger.InfoContext(ctx, "http service is shutting down")
	if err := cleanup(ctx); err != nil {
		logger.ErrorContext(ctx, "error shutting down http service", slog.Any("error", err))
	}
	logger.InfoContext(ctx, "http service is stopped")

	return nil
}
