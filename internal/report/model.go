// Package report serves the read-only analytics endpoints. Every query
// aggregates over completed sales or current stock; nothing here mutates
// state, so the queries run on a sqlx handle instead of the transactional
// pool.
package report

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// DateRange bounds a report period: From inclusive, To exclusive.
type DateRange struct {
	From time.Time
	To   time.Time
}

type SalesSummary struct {
	From              time.Time       `json:"from"`
	To                time.Time       `json:"to"`
	SaleCount         int64           `json:"saleCount" db:"sale_count"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue" db:"total_revenue"`
	TotalCost         decimal.Decimal `json:"totalCost" db:"total_cost"`
	GrossProfit       decimal.Decimal `json:"grossProfit" db:"gross_profit"`
	ProfitMargin      decimal.Decimal `json:"profitMargin"`
	AverageOrderValue decimal.Decimal `json:"averageOrderValue" db:"average_order_value"`
}

type TopProduct struct {
	ProductID   uuid.UUID       `json:"productId" db:"product_id"`
	ProductName string          `json:"productName" db:"product_name"`
	UnitsSold   int64           `json:"unitsSold" db:"units_sold"`
	Revenue     decimal.Decimal `json:"revenue" db:"revenue"`
}

type CategoryRevenue struct {
	Category  string          `json:"category" db:"category"`
	UnitsSold int64           `json:"unitsSold" db:"units_sold"`
	Revenue   decimal.Decimal `json:"revenue" db:"revenue"`
}

// LowStockEntry is the replenishment view of one product: how far the
// quantity on hand has fallen relative to its thresholds.
type LowStockEntry struct {
	ProductID     uuid.UUID `json:"productId" db:"product_id"`
	SKU           string    `json:"sku" db:"sku"`
	Name          string    `json:"name" db:"name"`
	Category      string    `json:"category" db:"category"`
	StockQuantity int       `json:"stockQuantity" db:"stock_quantity"`
	MinStockLevel int       `json:"minStockLevel" db:"min_stock_level"`
	ReorderPoint  int       `json:"reorderPoint" db:"reorder_point"`
	NeedsReorder  bool      `json:"needsReorder" db:"needs_reorder"`
}
