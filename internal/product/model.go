package product

import "github.com/shopspring/decimal"

type Product struct {
	ID            uint            `json:"id"`
	FarmerID      uint            `json:"farmerId"`
	Name          string          `json:"name"`
	Description   *string         `json:"description,omitempty"`
	Category      string          `json:"category"`
	Unit          string          `json:"unit"`
	Price         decimal.Decimal `json:"price"`
	Stock         int             `json:"stock"`
	ImageURL      *string         `json:"imageUrl,omitempty"`
	AverageRating float64         `json:"averageRating"`
	TotalReviews  int             `json:"totalReviews"`
}

// InventoryStats summarizes a farmer's listings for the dashboard.
type InventoryStats struct {
	FarmerID      uint `json:"farmerId"`
	TotalProducts int  `json:"totalProducts"`
	LowStockCount int  `json:"lowStockCount"`
}

// Viewer is the caller of an inventory read.
type Viewer struct {
	ID     uint
	Admin  bool
	Farmer bool
}
