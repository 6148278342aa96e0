package event

import (
	"context"
	"log/slog"
	"time"

	"github.com/tuanvumaihuynh/inventory-service/internal/model"
)

const (
	TopicProductCreated       = "product.created"
	TopicProductUpdated       = "product.updated"
	TopicProductStockAdjusted = "product.stock_adjusted"
	TopicProductDeactivated   = "product.deactivated"
	TopicProductDeleted       = "product.deleted"
)

// ProductTopics lists every topic the product service publishes to.
var ProductTopics = []string{
	TopicProductCreated,
	TopicProductUpdated,
	TopicProductStockAdjusted,
	TopicProductDeactivated,
	TopicProductDeleted,
}

// ProductEvent is the payload of every product topic. StockDelta is only
// set on stock adjustments.
type ProductEvent struct {
	ProductID  string    `json:"productId"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Price      float64   `json:"price"`
	Stock      int       `json:"stock"`
	IsActive   bool      `json:"isActive"`
	StockDelta *int      `json:"stockDelta,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

func NewProductEvent(p model.Product) ProductEvent {
	return ProductEvent{
		ProductID:  p.ID,
		Name:       p.Name,
		Category:   string(p.Category),
		Price:      p.Price,
		Stock:      p.Stock,
		IsActive:   p.IsActive,
		OccurredAt: time.Now().UTC(),
	}
}

func (s *Service) handleProductEvent(ctx context.Context, topic string, ev ProductEvent) error {
	attrs := []any{
		slog.String("topic", topic),
		slog.String("product_id", ev.ProductID),
		slog.Int("stock", ev.Stock),
	}
	if ev.StockDelta != nil {
		attrs = append(attrs, slog.Int("stock_delta", *ev.StockDelta))
	}

	s.logger.InfoContext(ctx, "handling product event", attrs...)
	return nil
}
