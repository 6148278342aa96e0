package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the repositories rely on. It is
// idempotent: existing indexes with the same keys and options are left alone.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	products := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "name", Value: 1}},
			Options: options.Index().
				SetName("name_ci_unique").
				SetUnique(true).
				SetCollation(CaseInsensitiveCollation()),
		},
		{
			Keys:    bson.D{{Key: "category", Value: 1}, {Key: "isActive", Value: 1}},
			Options: options.Index().SetName("category_active"),
		},
		{
			Keys:    bson.D{{Key: "isActive", Value: 1}, {Key: "stock", Value: 1}},
			Options: options.Index().SetName("active_stock"),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("created_at"),
		},
	}
	if _, err := db.Collection(ProductCollection).Indexes().CreateMany(ctx, products); err != nil {
		return fmt.Errorf("create product indexes: %w", err)
	}

	outbox := mongo.IndexModel{
		Keys:    bson.D{{Key: "processedAt", Value: 1}, {Key: "createdAt", Value: 1}},
		Options: options.Index().SetName("unprocessed"),
	}
	if _, err := db.Collection(OutboxMsgCollection).Indexes().CreateOne(ctx, outbox); err != nil {
		return fmt.Errorf("create outbox message indexes: %w", err)
	}

	return nil
}
