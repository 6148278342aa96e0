package model

import (
	"time"
)

// Product is an inventory record. ID is opaque and assigned by the store.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Category    Category  `json:"category"`
	Stock       int       `json:"stock"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// InventoryValue is price times units in stock.
func (p Product) InventoryValue() float64 {
	return p.Price * float64(p.Stock)
}
