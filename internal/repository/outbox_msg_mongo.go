package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tuanvumaihuynh/inventory-service/internal/storage/mongodb"
)

type mongoOutboxMsg struct {
	ID           string            `bson:"_id"`
	Topic        string            `bson:"topic"`
	Headers      map[string]string `bson:"headers,omitempty"`
	Payload      []byte            `bson:"payload"`
	PartitionKey *string           `bson:"partitionKey,omitempty"`
	CreatedAt    time.Time         `bson:"createdAt"`
	ProcessedAt  *time.Time        `bson:"processedAt"`
	Error        *string           `bson:"error"`
}

type mongoOutboxMsgRepository struct {
	collection *mongo.Collection
}

func NewMongoOutboxMsgRepository(db *mongo.Database) OutboxMsgRepository {
	return &mongoOutboxMsgRepository{
		collection: db.Collection(mongodb.OutboxMsgCollection),
	}
}

func (r mongoOutboxMsgRepository) CreateOutboxMsg(ctx context.Context, params CreateOutboxMsgParams) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate uuid v7: %w", err)
	}

	if _, err := r.collection.InsertOne(ctx, mongoOutboxMsg{
		ID:           id.String(),
		Topic:        params.Topic,
		Headers:      params.Headers,
		Payload:      params.Payload,
		PartitionKey: params.PartitionKey,
		CreatedAt:    mongoNow(),
	}); err != nil {
		return fmt.Errorf("insert outbox msg: %w", err)
	}

	return nil
}

func (r mongoOutboxMsgRepository) ListUnprocessedOutboxMsgs(ctx context.Context, params ListUnprocessedOutboxMsgsParams) ([]ListUnprocessedOutboxMsgsResult, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(params.BatchSize))

	cursor, err := r.collection.Find(ctx, bson.M{"processedAt": nil}, opts)
	if err != nil {
		return nil, fmt.Errorf("find unprocessed outbox msgs: %w", err)
	}
	defer cursor.Close(ctx)

	var msgs []mongoOutboxMsg
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("decode outbox msgs: %w", err)
	}

	results := make([]ListUnprocessedOutboxMsgsResult, 0, len(msgs))
	for _, msg := range msgs {
		id, err := uuid.Parse(msg.ID)
		if err != nil {
			return nil, fmt.Errorf("parse outbox msg id %q: %w", msg.ID, err)
		}

		headers := msg.Headers
		if headers == nil {
			headers = map[string]string{}
		}

		results = append(results, ListUnprocessedOutboxMsgsResult{
			ID:           id,
			Topic:        msg.Topic,
			Headers:      headers,
			Payload:      msg.Payload,
			PartitionKey: msg.PartitionKey,
		})
	}

	return results, nil
}

func (r mongoOutboxMsgRepository) BulkUpdateOutboxMsgs(ctx context.Context, params BulkUpdateOutboxMsgsParams) error {
	if len(params.Items) == 0 {
		return nil
	}

	now := mongoNow()
	models := make([]mongo.WriteModel, 0, len(params.Items))
	for _, item := range params.Items {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": item.ID.String()}).
			SetUpdate(bson.M{"$set": bson.M{
				"processedAt": now,
				"error":       item.Error,
			}}))
	}

	if _, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("bulk update outbox msgs: %w", err)
	}

	return nil
}
