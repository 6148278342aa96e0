package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tuanvumaihuynh/inventory-service/internal/config"
	"github.com/tuanvumaihuynh/inventory-service/internal/log"
	"github.com/tuanvumaihuynh/inventory-service/internal/storage/db"
	"github.com/tuanvumaihuynh/inventory-service/internal/storage/mongodb"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("error running migrate application: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	time.Local = time.UTC

	type Config struct {
		Log      config.Log
		Store    config.Store
		Mongo    config.Mongo
		Postgres config.Postgres
	}
	cfg, err := config.New[Config]()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logger := log.NewSlogLogger(cfg.Log)
	logger.InfoContext(ctx, "starting database migration", slog.String("driver", cfg.Store.Driver.String()))

	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		err = migratePostgres(ctx, cfg.Postgres)
	case config.StoreDriverMongo:
		err = migrateMongo(ctx, cfg.Mongo)
	default:
		err = fmt.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
	if err != nil {
		return fmt.Errorf("error migrating database: %w", err)
	}

	logger.InfoContext(ctx, "database migration completed successfully")

	return nil
}

func migratePostgres(ctx context.Context, cfg config.Postgres) error {
	pgxPool, err := db.NewPgxPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create pgx pool: %w", err)
	}
	defer pgxPool.Close()

	return db.Migrate(pgxPool)
}

func migrateMongo(ctx context.Context, cfg config.Mongo) error {
	client, err := mongodb.NewClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create mongo client: %w", err)
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()

	return mongodb.EnsureIndexes(ctx, client.Database(cfg.DB))
}
