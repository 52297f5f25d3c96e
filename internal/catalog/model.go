package catalog

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/hamza-damra/sales-management-backend/internal/money"
)

// Product is the catalog entry together with its stock-ledger state. The
// quantity on hand changes only through ledger operations that also write a
// StockMovement row inside the same transaction.
type Product struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	SKU             string          `json:"sku" db:"sku"`
	Name            string          `json:"name" db:"name"`
	Description     string          `json:"description,omitempty" db:"description"`
	Category        string          `json:"category" db:"category"`
	UnitPrice       decimal.Decimal `json:"unitPrice" db:"unit_price"`
	CostPrice       decimal.Decimal `json:"costPrice" db:"cost_price"`
	StockQuantity   int             `json:"stockQuantity" db:"stock_quantity"`
	MinStockLevel   int             `json:"minStockLevel" db:"min_stock_level"`
	ReorderPoint    int             `json:"reorderPoint" db:"reorder_point"`
	TotalSold       int             `json:"totalSold" db:"total_sold"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue" db:"total_revenue"`
	Active          bool            `json:"active" db:"active"`
	LastRestockedAt *time.Time      `json:"lastRestockedAt,omitempty" db:"last_restocked_at"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`
}

// IsLowStock reports whether the quantity on hand has reached the minimum
// stock level.
func (p *Product) IsLowStock() bool {
	return p.StockQuantity <= p.MinStockLevel
}

// NeedsReorder reports whether the quantity on hand has reached the reorder
// point.
func (p *Product) NeedsReorder() bool {
	return p.StockQuantity <= p.ReorderPoint
}

// ProfitMarginPercent returns (unitPrice - costPrice) / costPrice * 100.
// A zero cost price yields zero, not an error.
func (p *Product) ProfitMarginPercent() decimal.Decimal {
	return money.RatioPercent(p.UnitPrice.Sub(p.CostPrice), p.CostPrice)
}

// MovementReason classifies a stock-ledger mutation.
type MovementReason string

const (
	MovementSale             MovementReason = "SALE"
	MovementSaleCancelled    MovementReason = "SALE_CANCELLED"
	MovementReturnRestock    MovementReason = "RETURN_RESTOCK"
	MovementPurchaseReceipt  MovementReason = "PURCHASE_RECEIPT"
	MovementManualAdjustment MovementReason = "MANUAL_ADJUSTMENT"
)

func (r MovementReason) String() string {
	return string(r)
}

// IsValid reports whether the reason is one of the known movement reasons.
func (r MovementReason) IsValid() bool {
	switch r {
	case MovementSale, MovementSaleCancelled, MovementReturnRestock,
		MovementPurchaseReceipt, MovementManualAdjustment:
		return true
	}
	return false
}

// StockMovement is the append-only audit record of one quantity change.
// Rows are written in the same transaction as the product update and are
// never modified afterwards.
type StockMovement struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	ProductID   uuid.UUID      `json:"productId" db:"product_id"`
	Delta       int            `json:"delta" db:"delta"`
	Reason      MovementReason `json:"reason" db:"reason"`
	ReferenceID *uuid.UUID     `json:"referenceId,omitempty" db:"reference_id"`
	Note        string         `json:"note,omitempty" db:"note"`
	CreatedAt   time.Time      `json:"createdAt" db:"created_at"`
}

// ListFilter narrows product listings.
type ListFilter struct {
	Category   string
	ActiveOnly bool
	Limit      int
	Offset     int
}
