package model

// ProductStatistics aggregates the whole catalogue, inactive records
// included unless a field says otherwise.
type ProductStatistics struct {
	TotalProducts    int `json:"totalProducts"`
	ActiveProducts   int `json:"activeProducts"`
	InactiveProducts int `json:"inactiveProducts"`
	// LowStockProducts counts active products at or under the low-stock threshold.
	LowStockProducts    int              `json:"lowStockProducts"`
	TotalInventoryValue float64          `json:"totalInventoryValue"`
	CategoryCounts      map[Category]int `json:"categoryCounts"`
}
