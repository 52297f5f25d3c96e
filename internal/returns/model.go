package returns

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
	StatusRefunded  Status = "REFUNDED"
	StatusExchanged Status = "EXCHANGED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

var allowedTransitions = map[Status][]Status{
	StatusPending:   {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:  {StatusRefunded, StatusExchanged},
	StatusRefunded:  {},
	StatusExchanged: {},
	StatusRejected:  {},
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
	return fmt.Sprintf("invalid return status transition from %s to %s", e.From, e.To)
}

// Reason captures why the customer sent the goods back.
type Reason string

const (
	ReasonDefective         Reason = "DEFECTIVE"
	ReasonDamagedInShipping Reason = "DAMAGED_IN_SHIPPING"
	ReasonWrongItem         Reason = "WRONG_ITEM"
	ReasonNotAsDescribed    Reason = "NOT_AS_DESCRIBED"
	ReasonChangedMind       Reason = "CHANGED_MIND"
	ReasonOther             Reason = "OTHER"
)

func (r Reason) IsValid() bool {
	switch r {
	case ReasonDefective, ReasonDamagedInShipping, ReasonWrongItem,
		ReasonNotAsDescribed, ReasonChangedMind, ReasonOther:
		return true
	}
	return false
}

// ItemCondition grades the physical state of a returned unit.
type ItemCondition string

const (
	ConditionNew       ItemCondition = "NEW"
	ConditionLikeNew   ItemCondition = "LIKE_NEW"
	ConditionGood      ItemCondition = "GOOD"
	ConditionFair      ItemCondition = "FAIR"
	ConditionDamaged   ItemCondition = "DAMAGED"
	ConditionDefective ItemCondition = "DEFECTIVE"
)

func (c ItemCondition) IsValid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood,
		ConditionFair, ConditionDamaged, ConditionDefective:
		return true
	}
	return false
}

// CanBeRestocked reports whether a unit in this condition goes back to
// sellable inventory. FAIR units do not; they need inspection first.
func (c ItemCondition) CanBeRestocked() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood:
		return true
	}
	return false
}

// Item is one returned line, priced from the original sale line.
type Item struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	ReturnID      uuid.UUID       `json:"returnId" db:"return_id"`
	SaleItemID    uuid.UUID       `json:"saleItemId" db:"sale_item_id"`
	ProductID     uuid.UUID       `json:"productId" db:"product_id"`
	ProductName   string          `json:"productName" db:"product_name"`
	Quantity      int             `json:"quantity" db:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice" db:"unit_price"`
	Condition     ItemCondition   `json:"condition" db:"condition"`
	RestockingFee decimal.Decimal `json:"restockingFee" db:"restocking_fee"`
	RefundAmount  decimal.Decimal `json:"refundAmount" db:"refund_amount"`
	Restocked     bool            `json:"restocked" db:"restocked"`
}

// CalculateRefund sets the line refund:
//
//	refundAmount = unitPrice * quantity - restockingFee, floored at zero
func (it *Item) CalculateRefund() {
	refund := it.UnitPrice.
		Mul(decimal.NewFromInt(int64(it.Quantity))).
		Sub(it.RestockingFee)
	it.RefundAmount = money.NonNegative(money.Amount(refund))
}

// Return is a customer return against one sale.
type Return struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	Number     string     `json:"number" db:"number"`
	SaleID     uuid.UUID  `json:"saleId" db:"sale_id"`
	CustomerID *uuid.UUID `json:"customerId" db:"customer_id"`
	Status     Status     `json:"status" db:"status"`
	Reason     Reason     `json:"reason" db:"reason"`

	Items []Item `json:"items"`

	TotalRefundAmount decimal.Decimal `json:"totalRefundAmount" db:"total_refund_amount"`
	Notes             string          `json:"notes" db:"notes"`

	ProcessedAt *time.Time `json:"processedAt" db:"processed_at"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

// CalculateTotals recomputes every line refund and their sum.
func (ret *Return) CalculateTotals() {
	total := decimal.Zero
	for i := range ret.Items {
		ret.Items[i].CalculateRefund()
		total = total.Add(ret.Items[i].RefundAmount)
	}
	ret.TotalRefundAmount = money.Amount(total)
}

// RestockableQuantities aggregates, per product, the units whose condition
// allows restocking.
func (ret *Return) RestockableQuantities() map[uuid.UUID]int {
	out := make(map[uuid.UUID]int)
	for _, it := range ret.Items {
		if it.Condition.CanBeRestocked() {
			out[it.ProductID] += it.Quantity
		}
	}
	return out
}
