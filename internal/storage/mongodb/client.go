package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/tuanvumaihuynh/inventory-service/internal/config"
)

const (
	ProductCollection   = "products"
	OutboxMsgCollection = "outbox_messages"
)

// CaseInsensitiveCollation compares strings ignoring case and is shared by
// the unique name index and the queries that must use it.
func CaseInsensitiveCollation() *options.Collation {
	return &options.Collation{Locale: "en", Strength: 2}
}

// NewClient connects to MongoDB and verifies the connection with a ping.
// The caller owns the client and must Disconnect it on shutdown.
func NewClient(ctx context.Context, cfg config.Mongo) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetAppName("inventory-service")

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return client, nil
}
