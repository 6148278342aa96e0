package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var _ Store = (*MongoStore)(nil)

type MongoStore struct {
	client       *mongo.Client
	transactions bool

	products   ProductRepository
	outboxMsgs OutboxMsgRepository
}

// NewMongoStore wraps a connected client. With transactions disabled
// WithTx runs the callback directly and the writes are not atomic.
func NewMongoStore(client *mongo.Client, dbName string, transactions bool) *MongoStore {
	db := client.Database(dbName)
	return &MongoStore{
		client:       client,
		transactions: transactions,
		products:     NewMongoProductRepository(db),
		outboxMsgs:   NewMongoOutboxMsgRepository(db),
	}
}

func (s *MongoStore) Products() ProductRepository {
	return s.products
}

func (s *MongoStore) OutboxMsgs() OutboxMsgRepository {
	return s.outboxMsgs
}

func (s *MongoStore) WithTx(ctx context.Context, txFunc func(ctx context.Context, store Store) error) error {
	if !s.transactions {
		return txFunc(ctx, s)
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	if _, err := sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, txFunc(sc, s)
	}); err != nil {
		return err
	}

	return nil
}

func (s *MongoStore) IsHealthy(ctx context.Context) (bool, error) {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return false, fmt.Errorf("ping mongodb: %w", err)
	}
	return true, nil
}
