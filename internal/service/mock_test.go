package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tuanvumaihuynh/inventory-service/internal/model"
	"github.com/tuanvumaihuynh/inventory-service/internal/repository"
	"github.com/tuanvumaihuynh/inventory-service/internal/repository/repositorytest"
)

// mockStore serves products from a mock and keeps the outbox in memory.
type mockStore struct {
	*repositorytest.MemoryStore
	products *mockProductRepository
}

func newMockStore() *mockStore {
	return &mockStore{
		MemoryStore: repositorytest.NewMemoryStore(),
		products:    &mockProductRepository{},
	}
}

func (s *mockStore) Products() repository.ProductRepository {
	return s.products
}

func (s *mockStore) WithTx(ctx context.Context, txFunc func(ctx context.Context, store repository.Store) error) error {
	return txFunc(ctx, s)
}

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) CreateProduct(ctx context.Context, product model.Product) (model.Product, error) {
	args := m.Called(ctx, product)
	return args.Get(0).(model.Product), args.Error(1)
}

func (m *mockProductRepository) ListProducts(ctx context.Context, params repository.ListProductsParams) (repository.ListProductsResult, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(repository.ListProductsResult), args.Error(1)
}

func (m *mockProductRepository) ListAllProducts(ctx context.Context) ([]model.Product, error) {
	args := m.Called(ctx)
	products, _ := args.Get(0).([]model.Product)
	return products, args.Error(1)
}

func (m *mockProductRepository) GetProductByID(ctx context.Context, id string) (model.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Product), args.Error(1)
}

func (m *mockProductRepository) GetProductByName(ctx context.Context, name string) (model.Product, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(model.Product), args.Error(1)
}

func (m *mockProductRepository) UpdateProduct(ctx context.Context, id string, params repository.UpdateProductParams) (model.Product, error) {
	args := m.Called(ctx, id, params)
	return args.Get(0).(model.Product), args.Error(1)
}

func (m *mockProductRepository) SoftDeleteProduct(ctx context.Context, id string) (model.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Product), args.Error(1)
}

func (m *mockProductRepository) HardDeleteProduct(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockProductRepository) ListProductsByCategory(ctx context.Context, category model.Category) ([]model.Product, error) {
	args := m.Called(ctx, category)
	products, _ := args.Get(0).([]model.Product)
	return products, args.Error(1)
}

func (m *mockProductRepository) ListLowStockProducts(ctx context.Context, threshold int) ([]model.Product, error) {
	args := m.Called(ctx, threshold)
	products, _ := args.Get(0).([]model.Product)
	return products, args.Error(1)
}

func (m *mockProductRepository) IncrementStock(ctx context.Context, id string, delta int) (model.Product, error) {
	args := m.Called(ctx, id, delta)
	return args.Get(0).(model.Product), args.Error(1)
}

func (m *mockProductRepository) ExistsByName(ctx context.Context, name string, excludeID string) (bool, error) {
	args := m.Called(ctx, name, excludeID)
	return args.Bool(0), args.Error(1)
}
