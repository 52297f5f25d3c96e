package purchase

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/hamza-damra/sales-management-backend/internal/money"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusSent      Status = "SENT"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

// Cancellation is possible only before the order goes out; once SENT the
// order can only run to delivery.
var allowedTransitions = map[Status][]Status{
	StatusPending:   {StatusApproved, StatusCancelled},
	StatusApproved:  {StatusSent, StatusCancelled},
	StatusSent:      {StatusDelivered},
	StatusDelivered: {},
	StatusCancelled: {},
}

func (s Status) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range allowedTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0
}

type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid purchase order status transition from %s to %s", e.From, e.To)
}

type Item struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	OrderID          uuid.UUID       `json:"orderId" db:"order_id"`
	ProductID        uuid.UUID       `json:"productId" db:"product_id"`
	ProductName      string          `json:"productName" db:"product_name"`
	Quantity         int             `json:"quantity" db:"quantity"`
	UnitCost         decimal.Decimal `json:"unitCost" db:"unit_cost"`
	TotalPrice       decimal.Decimal `json:"totalPrice" db:"total_price"`
	ReceivedQuantity int             `json:"receivedQuantity" db:"received_quantity"`
}

func (it *Item) Recalculate() {
	it.TotalPrice = money.Amount(it.UnitCost.Mul(decimal.NewFromInt(int64(it.Quantity))))
}

func (it *Item) IsFullyReceived() bool {
	return it.ReceivedQuantity >= it.Quantity
}

// Receive records up to quantity units against the line, clamps at the
// ordered quantity and returns how many units were actually accepted.
func (it *Item) Receive(quantity int) int {
	accepted := quantity
	if remaining := it.Quantity - it.ReceivedQuantity; accepted > remaining {
		accepted = remaining
	}
	if accepted < 0 {
		accepted = 0
	}
	it.ReceivedQuantity += accepted
	return accepted
}

type PurchaseOrder struct {
	ID         uuid.UUID `json:"id" db:"id"`
	Number     string    `json:"number" db:"number"`
	SupplierID uuid.UUID `json:"supplierId" db:"supplier_id"`
	Status     Status    `json:"status" db:"status"`

	Items []Item `json:"items"`

	Subtotal       decimal.Decimal `json:"subtotal" db:"subtotal"`
	TaxRate        decimal.Decimal `json:"taxRate" db:"tax_rate"`
	TaxAmount      decimal.Decimal `json:"taxAmount" db:"tax_amount"`
	ShippingCost   decimal.Decimal `json:"shippingCost" db:"shipping_cost"`
	DiscountAmount decimal.Decimal `json:"discountAmount" db:"discount_amount"`
	TotalAmount    decimal.Decimal `json:"totalAmount" db:"total_amount"`

	ExpectedDelivery *time.Time `json:"expectedDelivery" db:"expected_delivery"`
	DeliveredAt      *time.Time `json:"deliveredAt" db:"delivered_at"`
	Notes            string     `json:"notes" db:"notes"`
	CreatedAt        time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time  `json:"updatedAt" db:"updated_at"`
}

// CalculateTotals recomputes every line and the order totals:
//
//	subtotal    = sum of item.totalPrice
//	taxAmount   = subtotal * taxRate/100 when a rate is set, else zero
//	totalAmount = subtotal + taxAmount + shippingCost - discountAmount,
//	              floored at zero
func (po *PurchaseOrder) CalculateTotals() {
	subtotal := decimal.Zero
	for i := range po.Items {
		po.Items[i].Recalculate()
		subtotal = subtotal.Add(po.Items[i].TotalPrice)
	}
	po.Subtotal = money.Amount(subtotal)

	if po.TaxRate.IsPositive() {
		po.TaxAmount = money.PercentOf(po.Subtotal, po.TaxRate)
	} else {
		po.TaxAmount = decimal.Zero
	}

	total := po.Subtotal.
		Add(po.TaxAmount).
		Add(po.ShippingCost).
		Sub(po.DiscountAmount)
	po.TotalAmount = money.NonNegative(money.Amount(total))
}

// CanBeModified reports whether lines and amounts may still change.
func (po *PurchaseOrder) CanBeModified() bool {
	return po.Status == StatusPending
}

// IsOverdue reports whether an expected delivery date has passed while the
// order is still in transit.
func (po *PurchaseOrder) IsOverdue(now time.Time) bool {
	return po.ExpectedDelivery != nil &&
		po.ExpectedDelivery.Before(now) &&
		po.Status == StatusSent
}

// ReceivingProgress is the received share of all ordered units, in percent.
func (po *PurchaseOrder) ReceivingProgress() decimal.Decimal {
	var ordered, received int
	for _, it := range po.Items {
		ordered += it.Quantity
		received += it.ReceivedQuantity
	}
	return money.RatioPercent(decimal.NewFromInt(int64(received)), decimal.NewFromInt(int64(ordered)))
}

// IsFullyReceived requires every line individually complete.
func (po *PurchaseOrder) IsFullyReceived() bool {
	if len(po.Items) == 0 {
		return false
	}
	for _, it := range po.Items {
		if !it.IsFullyReceived() {
			return false
		}
	}
	return true
}
