package sale

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
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

var allowedTransitions = map[Status][]Status{
	StatusPending:   {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
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

// IsTerminal reports whether the status admits no further transitions.
// Totals and items are frozen once a sale reaches a terminal status.
func (s Status) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0
}

// InvalidTransitionError reports a status change the state machine forbids.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid sale status transition from %s to %s", e.From, e.To)
}

type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "PENDING"
	PaymentPaid              PaymentStatus = "PAID"
	PaymentPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
	PaymentRefunded          PaymentStatus = "REFUNDED"
)

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodCard         PaymentMethod = "CARD"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodOther        PaymentMethod = "OTHER"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case MethodCash, MethodCard, MethodBankTransfer, MethodOther:
		return true
	}
	return false
}

// DeliveryStatus tracks fulfilment separately from the sale status; a
// completed sale may still be waiting on shipment.
type DeliveryStatus string

const (
	DeliveryNotShipped DeliveryStatus = "NOT_SHIPPED"
	DeliveryShipped    DeliveryStatus = "SHIPPED"
	DeliveryDelivered  DeliveryStatus = "DELIVERED"
)

var deliveryRank = map[DeliveryStatus]int{
	DeliveryNotShipped: 0,
	DeliveryShipped:    1,
	DeliveryDelivered:  2,
}

func (d DeliveryStatus) IsValid() bool {
	_, ok := deliveryRank[d]
	return ok
}

// CanAdvanceTo allows forward movement only. Skipping SHIPPED is allowed
// for in-store handover.
func (d DeliveryStatus) CanAdvanceTo(target DeliveryStatus) bool {
	return deliveryRank[target] > deliveryRank[d]
}

// SaleItem is one product line. Name, category and prices are snapshots
// taken at sale time so later catalog edits do not rewrite history.
type SaleItem struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	SaleID           uuid.UUID       `json:"saleId" db:"sale_id"`
	ProductID        uuid.UUID       `json:"productId" db:"product_id"`
	ProductName      string          `json:"productName" db:"product_name"`
	Category         string          `json:"category" db:"category"`
	Quantity         int             `json:"quantity" db:"quantity"`
	UnitPrice        decimal.Decimal `json:"unitPrice" db:"unit_price"`
	CostPrice        decimal.Decimal `json:"costPrice" db:"cost_price"`
	DiscountPercent  decimal.Decimal `json:"discountPercent" db:"discount_percent"`
	DiscountAmount   decimal.Decimal `json:"discountAmount" db:"discount_amount"`
	TaxPercent       decimal.Decimal `json:"taxPercent" db:"tax_percent"`
	TaxAmount        decimal.Decimal `json:"taxAmount" db:"tax_amount"`
	Subtotal         decimal.Decimal `json:"subtotal" db:"subtotal"`
	TotalPrice       decimal.Decimal `json:"totalPrice" db:"total_price"`
	ReturnedQuantity int             `json:"returnedQuantity" db:"returned_quantity"`
}

// Recalculate derives the line's monetary fields:
//
//	subtotal   = unitPrice * quantity
//	discount   = subtotal * discountPercent/100 when a percentage is set,
//	             otherwise the caller-supplied amount stands
//	taxAmount  = (subtotal - discount) * taxPercent/100 when a rate is set
//	totalPrice = (subtotal - discount) + taxAmount
//
// Each derived field is rounded to 2 decimals as it is produced.
func (it *SaleItem) Recalculate() {
	it.Subtotal = money.Amount(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	if it.DiscountPercent.IsPositive() {
		it.DiscountAmount = money.PercentOf(it.Subtotal, it.DiscountPercent)
	} else {
		it.DiscountAmount = money.Amount(it.DiscountAmount)
	}
	afterDiscount := it.Subtotal.Sub(it.DiscountAmount)
	if it.TaxPercent.IsPositive() {
		it.TaxAmount = money.PercentOf(afterDiscount, it.TaxPercent)
	} else {
		it.TaxAmount = money.Amount(it.TaxAmount)
	}
	it.TotalPrice = money.Amount(afterDiscount.Add(it.TaxAmount))
}

// RemainingReturnable is how many units of this line can still be returned.
func (it *SaleItem) RemainingReturnable() int {
	return it.Quantity - it.ReturnedQuantity
}

func (it *SaleItem) IsFullyReturned() bool {
	return it.ReturnedQuantity >= it.Quantity
}

// AppliedPromotion is the immutable audit record written when a promotion is
// accepted onto a sale. Reversal removes the record, it never edits one.
type AppliedPromotion struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	SaleID          uuid.UUID       `json:"saleId" db:"sale_id"`
	PromotionID     uuid.UUID       `json:"promotionId" db:"promotion_id"`
	PromotionName   string          `json:"promotionName" db:"promotion_name"`
	CouponCode      string          `json:"couponCode" db:"coupon_code"`
	DiscountAmount  decimal.Decimal `json:"discountAmount" db:"discount_amount"`
	DiscountPercent decimal.Decimal `json:"discountPercent" db:"discount_percent"`
	OriginalAmount  decimal.Decimal `json:"originalAmount" db:"original_amount"`
	FinalAmount     decimal.Decimal `json:"finalAmount" db:"final_amount"`
	FreeShipping    bool            `json:"freeShipping" db:"free_shipping"`
	AutoApplied     bool            `json:"autoApplied" db:"auto_applied"`
	AppliedAt       time.Time       `json:"appliedAt" db:"applied_at"`
}

type Sale struct {
	ID             uuid.UUID      `json:"id" db:"id"`
	Number         string         `json:"number" db:"number"`
	CustomerID     *uuid.UUID     `json:"customerId" db:"customer_id"`
	Status         Status         `json:"status" db:"status"`
	PaymentStatus  PaymentStatus  `json:"paymentStatus" db:"payment_status"`
	PaymentMethod  PaymentMethod  `json:"paymentMethod" db:"payment_method"`
	PaymentDate    *time.Time     `json:"paymentDate" db:"payment_date"`
	DeliveryStatus DeliveryStatus `json:"deliveryStatus" db:"delivery_status"`

	Items      []SaleItem         `json:"items"`
	Promotions []AppliedPromotion `json:"promotions"`

	Subtotal                decimal.Decimal `json:"subtotal" db:"subtotal"`
	DiscountAmount          decimal.Decimal `json:"discountAmount" db:"discount_amount"`
	PromotionDiscountAmount decimal.Decimal `json:"promotionDiscountAmount" db:"promotion_discount_amount"`
	TaxAmount               decimal.Decimal `json:"taxAmount" db:"tax_amount"`
	ShippingCost            decimal.Decimal `json:"shippingCost" db:"shipping_cost"`
	TotalAmount             decimal.Decimal `json:"totalAmount" db:"total_amount"`
	CostOfGoodsSold         decimal.Decimal `json:"costOfGoodsSold" db:"cost_of_goods_sold"`
	ProfitMargin            decimal.Decimal `json:"profitMargin" db:"profit_margin"`

	Notes     string    `json:"notes" db:"notes"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// HasFreeShipping reports whether any applied promotion waives shipping.
func (s *Sale) HasFreeShipping() bool {
	for _, p := range s.Promotions {
		if p.FreeShipping {
			return true
		}
	}
	return false
}

// MerchandiseTotal is the pre-adjustment base of the order total: the sum of
// line totals, each already net of its own line-level discount and tax.
func (s *Sale) MerchandiseTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range s.Items {
		total = total.Add(it.TotalPrice)
	}
	return money.Amount(total)
}

// CalculateTotals recomputes every line and every aggregate field. With no
// items it resets subtotal, total, cost of goods sold and profit margin to
// zero rather than leaving stale values.
//
//	subtotal    = sum of item.subtotal
//	totalAmount = sum of item.totalPrice - discountAmount - promotionDiscountAmount
//	              + taxAmount + shippingCost, floored at zero
//
// Shipping drops out of the total while a free-shipping promotion is applied.
func (s *Sale) CalculateTotals() {
	if len(s.Items) == 0 {
		s.Subtotal = decimal.Zero
		s.TotalAmount = decimal.Zero
		s.CostOfGoodsSold = decimal.Zero
		s.ProfitMargin = decimal.Zero
		return
	}

	subtotal := decimal.Zero
	lineTotal := decimal.Zero
	cogs := decimal.Zero
	for i := range s.Items {
		s.Items[i].Recalculate()
		subtotal = subtotal.Add(s.Items[i].Subtotal)
		lineTotal = lineTotal.Add(s.Items[i].TotalPrice)
		cogs = cogs.Add(s.Items[i].CostPrice.Mul(decimal.NewFromInt(int64(s.Items[i].Quantity))))
	}

	promoDiscount := decimal.Zero
	for _, p := range s.Promotions {
		promoDiscount = promoDiscount.Add(p.DiscountAmount)
	}
	s.PromotionDiscountAmount = money.Amount(promoDiscount)

	shipping := s.ShippingCost
	if s.HasFreeShipping() {
		shipping = decimal.Zero
	}

	s.Subtotal = money.Amount(subtotal)
	total := lineTotal.
		Sub(s.DiscountAmount).
		Sub(s.PromotionDiscountAmount).
		Add(s.TaxAmount).
		Add(shipping)
	s.TotalAmount = money.NonNegative(money.Amount(total))

	s.CostOfGoodsSold = money.Amount(cogs)
	s.ProfitMargin = money.RatioPercent(s.TotalAmount.Sub(s.CostOfGoodsSold), s.TotalAmount)
}

// LoyaltyPointsEarned is the award granted on completion: one point per full
// ten currency units of the final total.
func (s *Sale) LoyaltyPointsEarned() int {
	return int(s.TotalAmount.Div(decimal.NewFromInt(10)).IntPart())
}

// MarkPaid stamps the payment sub-status. Re-invocation overwrites the
// payment date.
func (s *Sale) MarkPaid(now time.Time) {
	s.PaymentStatus = PaymentPaid
	s.PaymentDate = &now
}
