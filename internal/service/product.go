package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"github.com/tuanvumaihuynh/inventory-service/internal/apperr"
	"github.com/tuanvumaihuynh/inventory-service/internal/event"
	"github.com/tuanvumaihuynh/inventory-service/internal/model"
	"github.com/tuanvumaihuynh/inventory-service/internal/repository"
	"github.com/tuanvumaihuynh/inventory-service/pkg/outbox"
	"github.com/tuanvumaihuynh/inventory-service/pkg/validator"
)

const (
	// MinPrice is the lowest price a product may be sold for.
	MinPrice = 0.01
	// MaxPrice and PriceDecimals match the NUMERIC(12, 2) price column.
	MaxPrice      = 9999999999.99
	PriceDecimals = 2
	// DefaultLowStockThreshold applies to the low-stock lookup and statistics.
	DefaultLowStockThreshold = 10
)

type CreateProductParams struct {
	Name        string
	Description string
	Price       float64
	Category    model.Category
	Stock       int
}

// UpdateProductParams holds a partial update; nil fields are left as is.
type UpdateProductParams struct {
	Name        *string
	Description *string
	Price       *float64
	Category    *model.Category
	Stock       *int
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
	HasMore    bool  `json:"hasMore"`
}

type ListProductsResult struct {
	Products   []model.Product `json:"products"`
	Pagination Pagination      `json:"pagination"`
}

type ProductService interface {
	CreateProduct(ctx context.Context, params CreateProductParams) (model.Product, error)
	ListProducts(ctx context.Context, params repository.ListProductsParams) (ListProductsResult, error)
	GetProduct(ctx context.Context, id string) (model.Product, error)
	UpdateProduct(ctx context.Context, id string, params UpdateProductParams) (model.Product, error)
	// DeleteProduct deactivates the product and returns it.
	DeleteProduct(ctx context.Context, id string) (model.Product, error)
	DeleteProductPermanently(ctx context.Context, id string) error
	AdjustStock(ctx context.Context, id string, delta int) (model.Product, error)
	ListProductsByCategory(ctx context.Context, category string) ([]model.Product, error)
	ListLowStockProducts(ctx context.Context, threshold int) ([]model.Product, error)
	GetStatistics(ctx context.Context) (model.ProductStatistics, error)
}

type productService struct {
	store repository.Store
}

func NewProductService(store repository.Store) ProductService {
	return &productService{store: store}
}

func (s *productService) CreateProduct(ctx context.Context, params CreateProductParams) (model.Product, error) {
	name := normalizeName(params.Name)
	if err := checkPrice(params.Price); err != nil {
		return model.Product{}, err
	}
	if err := params.Category.Validate(); err != nil {
		return model.Product{}, apperr.InvalidCategoryErr.WrapParent(err)
	}
	if err := checkStock(params.Stock); err != nil {
		return model.Product{}, err
	}

	var created model.Product
	if err := s.store.WithTx(ctx, func(ctx context.Context, store repository.Store) error {
		exists, err := store.Products().ExistsByName(ctx, name, "")
		if err != nil {
			return fmt.Errorf("product repository exists by name: %w", err)
		}
		if exists {
			return apperr.ProductNameConflictErr
		}

		created, err = store.Products().CreateProduct(ctx, model.Product{
			Name:        name,
			Description: strings.TrimSpace(params.Description),
			Price:       params.Price,
			Category:    params.Category,
			Stock:       params.Stock,
			IsActive:    true,
		})
		if err != nil {
			return fmt.Errorf("product repository create product: %w", translateRepoErr(err))
		}

		return publish(ctx, store, event.TopicProductCreated, event.NewProductEvent(created))
	}); err != nil {
		return model.Product{}, fmt.Errorf("create product: %w", err)
	}

	return created, nil
}

func (s *productService) ListProducts(ctx context.Context, params repository.ListProductsParams) (ListProductsResult, error) {
	result, err := s.store.Products().ListProducts(ctx, params)
	if err != nil {
		return ListProductsResult{}, fmt.Errorf("product repository list products: %w", err)
	}

	return ListProductsResult{
		Products:   result.Products,
		Pagination: newPagination(params, len(result.Products), result.Total),
	}, nil
}

func newPagination(params repository.ListProductsParams, returned int, total int64) Pagination {
	p := Pagination{
		Page:    params.Page,
		Limit:   params.Limit,
		Total:   total,
		HasMore: int64(params.Skip()+returned) < total,
	}
	if params.Limit > 0 {
		p.TotalPages = int(math.Ceil(float64(total) / float64(params.Limit)))
	}
	return p
}

func (s *productService) GetProduct(ctx context.Context, id string) (model.Product, error) {
	product, err := s.store.Products().GetProductByID(ctx, id)
	if err != nil {
		return model.Product{}, fmt.Errorf("product repository get product by id: %w", translateRepoErr(err))
	}

	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, id string, params UpdateProductParams) (model.Product, error) {
	update := repository.UpdateProductParams{
		Price:    params.Price,
		Category: params.Category,
		Stock:    params.Stock,
	}
	if params.Name != nil {
		name := normalizeName(*params.Name)
		update.Name = &name
	}
	if params.Description != nil {
		description := strings.TrimSpace(*params.Description)
		update.Description = &description
	}
	if params.Price != nil {
		if err := checkPrice(*params.Price); err != nil {
			return model.Product{}, err
		}
	}
	if params.Category != nil {
		if err := params.Category.Validate(); err != nil {
			return model.Product{}, apperr.InvalidCategoryErr.WrapParent(err)
		}
	}
	if params.Stock != nil {
		if err := checkStock(*params.Stock); err != nil {
			return model.Product{}, err
		}
	}

	var updated model.Product
	if err := s.store.WithTx(ctx, func(ctx context.Context, store repository.Store) error {
		current, err := store.Products().GetProductByID(ctx, id)
		if err != nil {
			return fmt.Errorf("product repository get product by id: %w", translateRepoErr(err))
		}

		if update.Name != nil {
			existing, err := store.Products().GetProductByName(ctx, *update.Name)
			switch {
			case errors.Is(err, repository.ErrNotFound):
			case err != nil:
				return fmt.Errorf("product repository get product by name: %w", err)
			case existing.ID != current.ID:
				return apperr.ProductNameConflictErr
			}
		}

		updated, err = store.Products().UpdateProduct(ctx, id, update)
		if err != nil {
			return fmt.Errorf("product repository update product: %w", translateRepoErr(err))
		}

		return publish(ctx, store, event.TopicProductUpdated, event.NewProductEvent(updated))
	}); err != nil {
		return model.Product{}, fmt.Errorf("update product: %w", err)
	}

	return updated, nil
}

func (s *productService) DeleteProduct(ctx context.Context, id string) (model.Product, error) {
	var deleted model.Product
	if err := s.store.WithTx(ctx, func(ctx context.Context, store repository.Store) error {
		product, err := store.Products().GetProductByID(ctx, id)
		if err != nil {
			return fmt.Errorf("product repository get product by id: %w", translateRepoErr(err))
		}
		if !product.IsActive {
			return apperr.ProductInactiveErr
		}

		deleted, err = store.Products().SoftDeleteProduct(ctx, id)
		if err != nil {
			return fmt.Errorf("product repository soft delete product: %w", translateRepoErr(err))
		}

		return publish(ctx, store, event.TopicProductDeactivated, event.NewProductEvent(deleted))
	}); err != nil {
		return model.Product{}, fmt.Errorf("delete product: %w", err)
	}

	return deleted, nil
}

func (s *productService) DeleteProductPermanently(ctx context.Context, id string) error {
	if err := s.store.WithTx(ctx, func(ctx context.Context, store repository.Store) error {
		product, err := store.Products().GetProductByID(ctx, id)
		if err != nil {
			return fmt.Errorf("product repository get product by id: %w", translateRepoErr(err))
		}

		if err := store.Products().HardDeleteProduct(ctx, id); err != nil {
			return fmt.Errorf("product repository hard delete product: %w", translateRepoErr(err))
		}

		return publish(ctx, store, event.TopicProductDeleted, event.NewProductEvent(product))
	}); err != nil {
		return fmt.Errorf("delete product permanently: %w", err)
	}

	return nil
}

func (s *productService) AdjustStock(ctx context.Context, id string, delta int) (model.Product, error) {
	if delta < -repository.MaxStock || delta > repository.MaxStock {
		return model.Product{}, apperr.ValidationErr.
			WithMsg(fmt.Sprintf("quantity must be between %d and %d", -repository.MaxStock, repository.MaxStock))
	}

	var adjusted model.Product
	if err := s.store.WithTx(ctx, func(ctx context.Context, store repository.Store) error {
		var err error
		adjusted, err = store.Products().IncrementStock(ctx, id, delta)
		if err != nil {
			return fmt.Errorf("product repository increment stock: %w", translateRepoErr(err))
		}

		ev := event.NewProductEvent(adjusted)
		ev.StockDelta = &delta
		return publish(ctx, store, event.TopicProductStockAdjusted, ev)
	}); err != nil {
		return model.Product{}, fmt.Errorf("adjust stock: %w", err)
	}

	return adjusted, nil
}

func (s *productService) ListProductsByCategory(ctx context.Context, category string) ([]model.Product, error) {
	c, err := model.ParseCategory(category)
	if err != nil {
		return nil, apperr.InvalidCategoryErr.
			WithMsg(fmt.Sprintf("category must be one of [%s]", strings.Join(model.CategoryNames(), " "))).
			WrapParent(err)
	}

	products, err := s.store.Products().ListProductsByCategory(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("product repository list products by category: %w", err)
	}

	return products, nil
}

func (s *productService) ListLowStockProducts(ctx context.Context, threshold int) ([]model.Product, error) {
	if threshold < 0 {
		return nil, apperr.ValidationErr.WithMsg("threshold must be greater than or equal to 0")
	}

	products, err := s.store.Products().ListLowStockProducts(ctx, threshold)
	if err != nil {
		return nil, fmt.Errorf("product repository list low stock products: %w", err)
	}

	return products, nil
}

func (s *productService) GetStatistics(ctx context.Context) (model.ProductStatistics, error) {
	products, err := s.store.Products().ListAllProducts(ctx)
	if err != nil {
		return model.ProductStatistics{}, fmt.Errorf("product repository list all products: %w", err)
	}

	return computeStatistics(products, DefaultLowStockThreshold), nil
}

func computeStatistics(products []model.Product, lowStockThreshold int) model.ProductStatistics {
	stats := model.ProductStatistics{
		TotalProducts:  len(products),
		CategoryCounts: make(map[model.Category]int, len(model.Categories)),
	}
	for _, c := range model.Categories {
		stats.CategoryCounts[c] = 0
	}

	var value float64
	for _, p := range products {
		if p.IsActive {
			stats.ActiveProducts++
			if p.Stock <= lowStockThreshold {
				stats.LowStockProducts++
			}
		} else {
			stats.InactiveProducts++
		}
		value += p.InventoryValue()
		stats.CategoryCounts[p.Category]++
	}
	stats.TotalInventoryValue = math.Round(value*100) / 100

	return stats
}

// normalizeName trims the name and upper-cases its first letter.
func normalizeName(name string) string {
	name = strings.TrimSpace(name)
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return name
	}
	return string(unicode.ToUpper(r)) + name[size:]
}

func checkPrice(price float64) error {
	if price < MinPrice {
		return apperr.PriceTooLowErr
	}
	if price > MaxPrice || validator.DecimalPlaces(price) > PriceDecimals {
		return apperr.InvalidPriceErr
	}
	return nil
}

func checkStock(stock int) error {
	if stock < 0 || stock > repository.MaxStock {
		return apperr.ValidationErr.
			WithMsg(fmt.Sprintf("stock must be between 0 and %d", repository.MaxStock))
	}
	return nil
}

func publish(ctx context.Context, store repository.Store, topic string, ev event.ProductEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	if err := store.OutboxMsgs().CreateOutboxMsg(ctx, repository.CreateOutboxMsgParams{
		Topic:        topic,
		Headers:      outbox.BuildHeaders(ctx),
		Payload:      payload,
		PartitionKey: &ev.ProductID,
	}); err != nil {
		return fmt.Errorf("outbox msg repository create outbox msg: %w", err)
	}

	return nil
}

// translateRepoErr maps store sentinels to application errors and leaves
// anything else untouched.
func translateRepoErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.ProductNotFoundErr.WrapParent(err)
	case errors.Is(err, repository.ErrInvalidID):
		return apperr.InvalidProductIDErr.WrapParent(err)
	case errors.Is(err, repository.ErrDuplicateName):
		return apperr.ProductNameConflictErr.WrapParent(err)
	case errors.Is(err, repository.ErrInsufficientStock):
		return apperr.InsufficientStockErr.WrapParent(err)
	case errors.Is(err, repository.ErrStockLimit):
		return apperr.StockLimitErr.WrapParent(err)
	default:
		return err
	}
}
