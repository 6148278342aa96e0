package repository

import (
	"context"
	"encoding/json"
	"errors"
	"math"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/inventory-service/internal/model"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInvalidID         = errors.New("invalid id")
	ErrDuplicateName     = errors.New("duplicate product name")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrStockLimit        = errors.New("stock limit exceeded")
)

// MaxStock is the largest stock a product may hold, the range of the
// Postgres INTEGER column.
const MaxStock = math.MaxInt32

// Store groups the repositories of one backend behind a transaction
// boundary. Repositories returned from the Store passed to txFunc take part
// in the transaction; ctx must be the one handed to txFunc.
type Store interface {
	Products() ProductRepository
	OutboxMsgs() OutboxMsgRepository
	WithTx(ctx context.Context, txFunc func(ctx context.Context, store Store) error) error
	IsHealthy(ctx context.Context) (bool, error)
}

type SortField string

const (
	SortFieldName      SortField = "name"
	SortFieldPrice     SortField = "price"
	SortFieldStock     SortField = "stock"
	SortFieldCategory  SortField = "category"
	SortFieldCreatedAt SortField = "createdAt"
	SortFieldUpdatedAt SortField = "updatedAt"
)

type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

type ListProductsParams struct {
	Page      int
	Limit     int
	SortBy    SortField
	SortOrder SortOrder

	Category *model.Category
	IsActive *bool
	MinPrice *float64
	MaxPrice *float64
	// Search matches a case-insensitive substring of name or description.
	Search string
}

// stockBoundErr names the bound an increment by delta ran into.
func stockBoundErr(delta int) error {
	if delta < 0 {
		return ErrInsufficientStock
	}
	return ErrStockLimit
}

// Skip is the number of records before the requested page. It saturates at
// math.MaxInt so a far out page reads as empty.
func (p ListProductsParams) Skip() int {
	if p.Page < 1 || p.Limit < 1 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

type ListProductsResult struct {
	Products []model.Product
	Total    int64
}

// UpdateProductParams holds a partial update; nil fields are left as is.
type UpdateProductParams struct {
	Name        *string
	Description *string
	Price       *float64
	Category    *model.Category
	Stock       *int
}

type ProductRepository interface {
	CreateProduct(ctx context.Context, product model.Product) (model.Product, error)
	ListProducts(ctx context.Context, params ListProductsParams) (ListProductsResult, error)
	ListAllProducts(ctx context.Context) ([]model.Product, error)
	GetProductByID(ctx context.Context, id string) (model.Product, error)
	GetProductByName(ctx context.Context, name string) (model.Product, error)
	UpdateProduct(ctx context.Context, id string, params UpdateProductParams) (model.Product, error)
	SoftDeleteProduct(ctx context.Context, id string) (model.Product, error)
	HardDeleteProduct(ctx context.Context, id string) error
	ListProductsByCategory(ctx context.Context, category model.Category) ([]model.Product, error)
	ListLowStockProducts(ctx context.Context, threshold int) ([]model.Product, error)
	// IncrementStock adds delta to the stock in a single guarded write. It
	// fails with ErrInsufficientStock when the result would be negative and
	// with ErrStockLimit when it would exceed MaxStock.
	IncrementStock(ctx context.Context, id string, delta int) (model.Product, error)
	// ExistsByName matches name ignoring case. A non-empty excludeID skips
	// that product.
	ExistsByName(ctx context.Context, name string, excludeID string) (bool, error)
}

type CreateOutboxMsgParams struct {
	Topic        string
	Headers      map[string]string
	Payload      json.RawMessage
	PartitionKey *string
}

type ListUnprocessedOutboxMsgsParams struct {
	BatchSize int32
}

type ListUnprocessedOutboxMsgsResult struct {
	ID           uuid.UUID
	Topic        string
	Headers      map[string]string
	Payload      json.RawMessage
	PartitionKey *string
}

type BulkUpdateOutboxMsgsItem struct {
	ID    uuid.UUID
	Error *string
}

type BulkUpdateOutboxMsgsParams struct {
	Items []BulkUpdateOutboxMsgsItem
}

type OutboxMsgRepository interface {
	CreateOutboxMsg(ctx context.Context, params CreateOutboxMsgParams) error
	ListUnprocessedOutboxMsgs(ctx context.Context, params ListUnprocessedOutboxMsgsParams) ([]ListUnprocessedOutboxMsgsResult, error)
	BulkUpdateOutboxMsgs(ctx context.Context, params BulkUpdateOutboxMsgsParams) error
}
