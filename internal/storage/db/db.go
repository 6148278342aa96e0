package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the query surface shared by the pool and an open transaction.
type DB interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row

	// WithTx runs txFunc in a read committed transaction. On a
	// transaction handle it joins the open transaction instead.
	WithTx(ctx context.Context, txFunc func(ctx context.Context, tx DB) error) error
}

type HealthChecker interface {
	IsHealthy(ctx context.Context) (bool, error)
}

var (
	_ DB            = (*Client)(nil)
	_ HealthChecker = (*Client)(nil)
	_ DB            = (*txClient)(nil)
)

var txOptions = pgx.TxOptions{
	IsoLevel:   pgx.ReadCommitted,
	AccessMode: pgx.ReadWrite,
}

type Client struct {
	*pgxpool.Pool
}

// NewClient wraps a pool; the caller keeps ownership of the pool.
func NewClient(pool *pgxpool.Pool) *Client {
	return &Client{pool}
}

// WithTx commits when txFunc returns nil and rolls back otherwise.
func (c *Client) WithTx(ctx context.Context, txFunc func(ctx context.Context, tx DB) error) error {
	err := pgx.BeginTxFunc(ctx, c.Pool, txOptions, func(tx pgx.Tx) error {
		return txFunc(ctx, &txClient{Tx: tx})
	})
	if err != nil {
		return fmt.Errorf("run transaction: %w", err)
	}
	return nil
}

func (c *Client) IsHealthy(ctx context.Context) (bool, error) {
	if err := c.Ping(ctx); err != nil {
		return false, fmt.Errorf("ping database: %w", err)
	}
	return true, nil
}

type txClient struct {
	pgx.Tx
}

func (t *txClient) WithTx(ctx context.Context, txFunc func(ctx context.Context, tx DB) error) error {
	return txFunc(ctx, t)
}
