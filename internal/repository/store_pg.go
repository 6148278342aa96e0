package repository

import (
	"context"
	"errors"

	"github.com/tuanvumaihuynh/inventory-service/internal/storage/db"
)

var _ Store = (*PgStore)(nil)

type PgStore struct {
	db db.DB
}

func NewPgStore(db db.DB) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Products() ProductRepository {
	return NewPgProductRepository(s.db)
}

func (s *PgStore) OutboxMsgs() OutboxMsgRepository {
	return NewPgOutboxMsgRepository(s.db)
}

func (s *PgStore) WithTx(ctx context.Context, txFunc func(ctx context.Context, store Store) error) error {
	return s.db.WithTx(ctx, func(ctx context.Context, tx db.DB) error {
		return txFunc(ctx, &PgStore{db: tx})
	})
}

func (s *PgStore) IsHealthy(ctx context.Context) (bool, error) {
	hc, ok := s.db.(db.HealthChecker)
	if !ok {
		return false, errors.New("health check is not supported inside a transaction")
	}
	return hc.IsHealthy(ctx)
}
