package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/tuanvumaihuynh/inventory-service/internal/config"
	"github.com/tuanvumaihuynh/inventory-service/internal/storage/db"
	"github.com/tuanvumaihuynh/inventory-service/internal/storage/mongodb"
)

type StoreConfig struct {
	Store    config.Store
	Mongo    config.Mongo
	Postgres config.Postgres
}

// CloseFunc releases the store client.
type CloseFunc func(ctx context.Context) error

// OpenStore connects the configured backend. The returned CloseFunc must be
// called on shutdown.
func OpenStore(ctx context.Context, cfg StoreConfig) (Store, CloseFunc, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		pool, err := db.NewPgxPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("create pgx pool: %w", err)
		}

		closeFunc := func(context.Context) error {
			pool.Close()
			return nil
		}
		return NewPgStore(db.NewClient(pool)), closeFunc, nil

	case config.StoreDriverMongo:
		client, err := mongodb.NewClient(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, fmt.Errorf("create mongo client: %w", err)
		}

		closeFunc := func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return client.Disconnect(ctx)
		}
		return NewMongoStore(client, cfg.Mongo.DB, cfg.Mongo.Transactions), closeFunc, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
