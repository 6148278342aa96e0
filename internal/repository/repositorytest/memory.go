// Package repositorytest provides an in-memory repository.Store for tests.
package repositorytest

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tuanvumaihuynh/inventory-service/internal/model"
	"github.com/tuanvumaihuynh/inventory-service/internal/repository"
)

var _ repository.Store = (*MemoryStore)(nil)

// OutboxMsg is an outbox message kept by MemoryStore.
type OutboxMsg struct {
	ID          uuid.UUID
	Params      repository.CreateOutboxMsgParams
	ProcessedAt *time.Time
	Error       *string
}

// MemoryStore mirrors the semantics of the real stores closely enough for
// service and handler tests. WithTx restores the previous state when the
// callback fails.
type MemoryStore struct {
	mu       sync.Mutex
	products map[string]model.Product
	outbox   []OutboxMsg
	now      func() time.Time

	// OutboxErr, when set, is returned by CreateOutboxMsg.
	OutboxErr error
	// Unhealthy makes IsHealthy report a failure.
	Unhealthy bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]model.Product),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Products() repository.ProductRepository {
	return memoryProducts{s}
}

func (s *MemoryStore) OutboxMsgs() repository.OutboxMsgRepository {
	return memoryOutboxMsgs{s}
}

func (s *MemoryStore) WithTx(ctx context.Context, txFunc func(ctx context.Context, store repository.Store) error) error {
	s.mu.Lock()
	products := maps.Clone(s.products)
	outbox := slices.Clone(s.outbox)
	s.mu.Unlock()

	if err := txFunc(ctx, s); err != nil {
		s.mu.Lock()
		s.products = products
		s.outbox = outbox
		s.mu.Unlock()
		return err
	}

	return nil
}

func (s *MemoryStore) IsHealthy(context.Context) (bool, error) {
	if s.Unhealthy {
		return false, errors.New("store unavailable")
	}
	return true, nil
}

// Outbox returns a copy of the recorded outbox messages in insertion order.
func (s *MemoryStore) Outbox() []OutboxMsg {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.outbox)
}

// Seed stores products as they are, assigning ids and timestamps when
// missing. It bypasses every business rule.
func (s *MemoryStore) Seed(products ...model.Product) []model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	seeded := make([]model.Product, 0, len(products))
	for _, p := range products {
		if p.ID == "" {
			p.ID = uuid.Must(uuid.NewV7()).String()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = s.now()
			p.UpdatedAt = p.CreatedAt
		}
		s.products[p.ID] = p
		seeded = append(seeded, p)
	}
	return seeded
}

type memoryProducts struct {
	s *MemoryStore
}

func checkID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", repository.ErrInvalidID, id)
	}
	return nil
}

func (r memoryProducts) nameTaken(name, excludeID string) bool {
	for _, p := range r.s.products {
		if p.ID != excludeID && strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

func (r memoryProducts) CreateProduct(_ context.Context, product model.Product) (model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.nameTaken(product.Name, "") {
		return model.Product{}, fmt.Errorf("insert product: %w", repository.ErrDuplicateName)
	}

	product.ID = uuid.Must(uuid.NewV7()).String()
	product.CreatedAt = r.s.now()
	product.UpdatedAt = product.CreatedAt
	r.s.products[product.ID] = product

	return product, nil
}

func (r memoryProducts) ListProducts(_ context.Context, params repository.ListProductsParams) (repository.ListProductsResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	matched := r.filter(func(p model.Product) bool {
		switch {
		case params.Category != nil && p.Category != *params.Category:
			return false
		case params.IsActive != nil && p.IsActive != *params.IsActive:
			return false
		case params.MinPrice != nil && p.Price < *params.MinPrice:
			return false
		case params.MaxPrice != nil && p.Price > *params.MaxPrice:
			return false
		case params.Search != "":
			search := strings.ToLower(params.Search)
			return strings.Contains(strings.ToLower(p.Name), search) ||
				strings.Contains(strings.ToLower(p.Description), search)
		}
		return true
	})

	slices.SortStableFunc(matched, func(a, b model.Product) int {
		c := compareBy(params.SortBy, a, b)
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		if params.SortOrder != repository.SortOrderAsc {
			c = -c
		}
		return c
	})

	total := int64(len(matched))
	skip := min(params.Skip(), len(matched))
	end := min(skip+params.Limit, len(matched))

	return repository.ListProductsResult{
		Products: matched[skip:end],
		Total:    total,
	}, nil
}

func compareBy(field repository.SortField, a, b model.Product) int {
	switch field {
	case repository.SortFieldName:
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	case repository.SortFieldPrice:
		return cmp.Compare(a.Price, b.Price)
	case repository.SortFieldStock:
		return cmp.Compare(a.Stock, b.Stock)
	case repository.SortFieldCategory:
		return cmp.Compare(a.Category, b.Category)
	case repository.SortFieldUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func (r memoryProducts) ListAllProducts(context.Context) ([]model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	all := r.filter(func(model.Product) bool { return true })
	slices.SortFunc(all, func(a, b model.Product) int { return cmp.Compare(a.ID, b.ID) })
	return all, nil
}

func (r memoryProducts) GetProductByID(_ context.Context, id string) (model.Product, error) {
	if err := checkID(id); err != nil {
		return model.Product{}, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return model.Product{}, fmt.Errorf("find product: %w", repository.ErrNotFound)
	}
	return p, nil
}

func (r memoryProducts) GetProductByName(_ context.Context, name string) (model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.products {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return model.Product{}, fmt.Errorf("find product: %w", repository.ErrNotFound)
}

func (r memoryProducts) UpdateProduct(_ context.Context, id string, params repository.UpdateProductParams) (model.Product, error) {
	if err := checkID(id); err != nil {
		return model.Product{}, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return model.Product{}, fmt.Errorf("update product: %w", repository.ErrNotFound)
	}

	if params.Name != nil {
		if r.nameTaken(*params.Name, id) {
			return model.Product{}, fmt.Errorf("update product: %w", repository.ErrDuplicateName)
		}
		p.Name = *params.Name
	}
	if params.Description != nil {
		p.Description = *params.Description
	}
	if params.Price != nil {
		p.Price = *params.Price
	}
	if params.Category != nil {
		p.Category = *params.Category
	}
	if params.Stock != nil {
		p.Stock = *params.Stock
	}
	p.UpdatedAt = r.s.now()
	r.s.products[id] = p

	return p, nil
}

func (r memoryProducts) SoftDeleteProduct(_ context.Context, id string) (model.Product, error) {
	if err := checkID(id); err != nil {
		return model.Product{}, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return model.Product{}, fmt.Errorf("update product: %w", repository.ErrNotFound)
	}
	p.IsActive = false
	p.UpdatedAt = r.s.now()
	r.s.products[id] = p

	return p, nil
}

func (r memoryProducts) HardDeleteProduct(_ context.Context, id string) error {
	if err := checkID(id); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.products[id]; !ok {
		return fmt.Errorf("delete product %s: %w", id, repository.ErrNotFound)
	}
	delete(r.s.products, id)

	return nil
}

func (r memoryProducts) ListProductsByCategory(_ context.Context, category model.Category) ([]model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	matched := r.filter(func(p model.Product) bool {
		return p.IsActive && p.Category == category
	})
	slices.SortFunc(matched, func(a, b model.Product) int {
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return matched, nil
}

func (r memoryProducts) ListLowStockProducts(_ context.Context, threshold int) ([]model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	matched := r.filter(func(p model.Product) bool {
		return p.IsActive && p.Stock <= threshold
	})
	slices.SortFunc(matched, func(a, b model.Product) int {
		if c := cmp.Compare(a.Stock, b.Stock); c != 0 {
			return c
		}
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return matched, nil
}

func (r memoryProducts) IncrementStock(_ context.Context, id string, delta int) (model.Product, error) {
	if err := checkID(id); err != nil {
		return model.Product{}, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id]
	if !ok {
		return model.Product{}, fmt.Errorf("increment stock %s: %w", id, repository.ErrNotFound)
	}
	switch {
	case delta < 0 && (delta < -repository.MaxStock || p.Stock+delta < 0):
		return model.Product{}, fmt.Errorf("increment stock %s: %w", id, repository.ErrInsufficientStock)
	case delta > 0 && (delta > repository.MaxStock || p.Stock+delta > repository.MaxStock):
		return model.Product{}, fmt.Errorf("increment stock %s: %w", id, repository.ErrStockLimit)
	}
	p.Stock += delta
	p.UpdatedAt = r.s.now()
	r.s.products[id] = p

	return p, nil
}

func (r memoryProducts) ExistsByName(_ context.Context, name string, excludeID string) (bool, error) {
	if excludeID != "" {
		if err := checkID(excludeID); err != nil {
			return false, err
		}
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.nameTaken(name, excludeID), nil
}

func (r memoryProducts) filter(keep func(model.Product) bool) []model.Product {
	matched := make([]model.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		if keep(p) {
			matched = append(matched, p)
		}
	}
	return matched
}

type memoryOutboxMsgs struct {
	s *MemoryStore
}

func (r memoryOutboxMsgs) CreateOutboxMsg(_ context.Context, params repository.CreateOutboxMsgParams) error {
	if r.s.OutboxErr != nil {
		return r.s.OutboxErr
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.outbox = append(r.s.outbox, OutboxMsg{
		ID:     uuid.Must(uuid.NewV7()),
		Params: params,
	})
	return nil
}

func (r memoryOutboxMsgs) ListUnprocessedOutboxMsgs(_ context.Context, params repository.ListUnprocessedOutboxMsgsParams) ([]repository.ListUnprocessedOutboxMsgsResult, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	results := make([]repository.ListUnprocessedOutboxMsgsResult, 0)
	for _, msg := range r.s.outbox {
		if len(results) >= int(params.BatchSize) {
			break
		}
		if msg.ProcessedAt != nil {
			continue
		}
		results = append(results, repository.ListUnprocessedOutboxMsgsResult{
			ID:           msg.ID,
			Topic:        msg.Params.Topic,
			Headers:      msg.Params.Headers,
			Payload:      msg.Params.Payload,
			PartitionKey: msg.Params.PartitionKey,
		})
	}
	return results, nil
}

func (r memoryOutboxMsgs) BulkUpdateOutboxMsgs(_ context.Context, params repository.BulkUpdateOutboxMsgsParams) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	for _, item := range params.Items {
		for i := range r.s.outbox {
			if r.s.outbox[i].ID == item.ID {
				r.s.outbox[i].ProcessedAt = &now
				r.s.outbox[i].Error = item.Error
			}
		}
	}
	return nil
}
