//go:build integration

package repository_test

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tuanvumaihuynh/inventory-service/internal/config"
	"github.com/tuanvumaihuynh/inventory-service/internal/model"
	"github.com/tuanvumaihuynh/inventory-service/internal/repository"
	"github.com/tuanvumaihuynh/inventory-service/internal/storage/db"
	"github.com/tuanvumaihuynh/inventory-service/pkg/ptr"
)

func newPgStore(t *testing.T) (*repository.PgStore, *pgxpool.Pool) {
	t.Helper()
	skipIfNoDocker(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "inventory",
				"POSTGRES_PASSWORD": "inventory",
				"POSTGRES_DB":       "inventory_test",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	pool, err := db.NewPgxPool(ctx, config.Postgres{
		Host:            host,
		Port:            port.Int(),
		User:            "inventory",
		Password:        "inventory",
		DB:              "inventory_test",
		SSLMode:         "disable",
		MaxConns:        4,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(pool))

	return repository.NewPgStore(db.NewClient(pool)), pool
}

func TestPgProductRepository(t *testing.T) {
	store, _ := newPgStore(t)
	repo := store.Products()
	ctx := context.Background()

	created, err := repo.CreateProduct(ctx, newProduct("Robot", 5))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.InDelta(t, 4.5, created.Price, 1e-9)

	t.Run("price keeps two decimals", func(t *testing.T) {
		p := newProduct("Abacus", 1)
		p.Price = 19.99
		abacus, err := repo.CreateProduct(ctx, p)
		require.NoError(t, err)
		assert.InDelta(t, 19.99, abacus.Price, 1e-9)
		require.NoError(t, repo.HardDeleteProduct(ctx, abacus.ID))
	})

	t.Run("unique name ignores case", func(t *testing.T) {
		_, err := repo.CreateProduct(ctx, newProduct("ROBOT", 1))
		assert.ErrorIs(t, err, repository.ErrDuplicateName)

		exists, err := repo.ExistsByName(ctx, "robot", "")
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = repo.ExistsByName(ctx, "robot", created.ID)
		require.NoError(t, err)
		assert.False(t, exists)

		found, err := repo.GetProductByName(ctx, "rObOt")
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)

		_, err = repo.GetProductByName(ctx, "robo")
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("invalid and missing ids", func(t *testing.T) {
		_, err := repo.GetProductByID(ctx, "nope")
		assert.ErrorIs(t, err, repository.ErrInvalidID)

		_, err = repo.GetProductByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("guarded stock increment", func(t *testing.T) {
		updated, err := repo.IncrementStock(ctx, created.ID, -5)
		require.NoError(t, err)
		assert.Zero(t, updated.Stock)

		_, err = repo.IncrementStock(ctx, created.ID, -1)
		assert.ErrorIs(t, err, repository.ErrInsufficientStock)

		_, err = repo.IncrementStock(ctx, created.ID, math.MinInt)
		assert.ErrorIs(t, err, repository.ErrInsufficientStock)

		updated, err = repo.IncrementStock(ctx, created.ID, repository.MaxStock)
		require.NoError(t, err)
		assert.Equal(t, repository.MaxStock, updated.Stock)

		_, err = repo.IncrementStock(ctx, created.ID, 1)
		assert.ErrorIs(t, err, repository.ErrStockLimit)

		_, err = repo.IncrementStock(ctx, created.ID, math.MaxInt)
		assert.ErrorIs(t, err, repository.ErrStockLimit)

		updated, err = repo.IncrementStock(ctx, created.ID, -repository.MaxStock)
		require.NoError(t, err)
		assert.Zero(t, updated.Stock)

		_, err = repo.IncrementStock(ctx, uuid.NewString(), -1)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("partial update and soft delete", func(t *testing.T) {
		updated, err := repo.UpdateProduct(ctx, created.ID, repository.UpdateProductParams{Price: ptr.New(9.0)})
		require.NoError(t, err)
		assert.Equal(t, 9.0, updated.Price)
		assert.Equal(t, "Robot", updated.Name)

		deleted, err := repo.SoftDeleteProduct(ctx, created.ID)
		require.NoError(t, err)
		assert.False(t, deleted.IsActive)

		products, err := repo.ListProductsByCategory(ctx, model.CategoryToys)
		require.NoError(t, err)
		assert.Empty(t, products)
	})

	t.Run("list with filters", func(t *testing.T) {
		for i := range 3 {
			_, err := repo.CreateProduct(ctx, newProduct(fmt.Sprintf("Kite %d", i), i))
			require.NoError(t, err)
		}

		result, err := repo.ListProducts(ctx, repository.ListProductsParams{
			Page:      1,
			Limit:     2,
			SortBy:    repository.SortFieldStock,
			SortOrder: repository.SortOrderAsc,
			Search:    "kite",
		})
		require.NoError(t, err)
		assert.EqualValues(t, 3, result.Total)
		require.Len(t, result.Products, 2)
		assert.Equal(t, "Kite 0", result.Products[0].Name)

		result, err = repo.ListProducts(ctx, repository.ListProductsParams{Page: 1, Limit: 10, Search: "k%e"})
		require.NoError(t, err)
		assert.Zero(t, result.Total)

		result, err = repo.ListProducts(ctx, repository.ListProductsParams{Page: math.MaxInt, Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, result.Products)
		assert.EqualValues(t, 4, result.Total)

		lowStock, err := repo.ListLowStockProducts(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, lowStock, 2)
	})

	t.Run("hard delete", func(t *testing.T) {
		require.NoError(t, repo.HardDeleteProduct(ctx, created.ID))
		assert.ErrorIs(t, repo.HardDeleteProduct(ctx, created.ID), repository.ErrNotFound)
	})
}

func TestPgOutboxMsgRepository(t *testing.T) {
	store, pool := newPgStore(t)
	ctx := context.Background()

	for _, key := range []string{"p1", "p2"} {
		err := store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
			return tx.OutboxMsgs().CreateOutboxMsg(ctx, repository.CreateOutboxMsgParams{
				Topic:        "product.created",
				Headers:      map[string]string{"X-Correlation-ID": "c-" + key},
				Payload:      []byte(`{"productId":"` + key + `"}`),
				PartitionKey: ptr.New(key),
			})
		})
		require.NoError(t, err)
	}

	var first, second []repository.ListUnprocessedOutboxMsgsResult
	err := store.WithTx(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		first, err = tx.OutboxMsgs().ListUnprocessedOutboxMsgs(ctx, repository.ListUnprocessedOutboxMsgsParams{BatchSize: 1})
		if err != nil {
			return err
		}

		// A second relay skips the row locked above.
		return store.WithTx(context.Background(), func(ctx context.Context, other repository.Store) error {
			second, err = other.OutboxMsgs().ListUnprocessedOutboxMsgs(ctx, repository.ListUnprocessedOutboxMsgsParams{BatchSize: 10})
			return err
		})
	})
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.NotEqual(t, first[0].ID, second[0].ID)
	assert.Equal(t, "c-p1", first[0].Headers["X-Correlation-ID"])
	require.NotNil(t, first[0].PartitionKey)
	assert.Equal(t, "p1", *first[0].PartitionKey)

	require.NoError(t, store.OutboxMsgs().BulkUpdateOutboxMsgs(ctx, repository.BulkUpdateOutboxMsgsParams{
		Items: []repository.BulkUpdateOutboxMsgsItem{
			{ID: first[0].ID},
			{ID: second[0].ID, Error: ptr.New("broker unavailable")},
		},
	}))

	msgs, err := store.OutboxMsgs().ListUnprocessedOutboxMsgs(ctx, repository.ListUnprocessedOutboxMsgsParams{BatchSize: 10})
	require.NoError(t, err)
	assert.Empty(t, msgs)

	var recorded *string
	require.NoError(t, pool.QueryRow(ctx, "SELECT error FROM outbox_messages WHERE id = $1", second[0].ID).Scan(&recorded))
	require.NotNil(t, recorded)
	assert.Equal(t, "broker unavailable", *recorded)

	healthy, err := store.IsHealthy(ctx)
	require.NoError(t, err)
	assert.True(t, healthy)
}
