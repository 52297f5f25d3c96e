package promotion

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/hamza-damra/sales-management-backend/internal/customer"
	"github.com/hamza-damra/sales-management-backend/internal/money"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED_AMOUNT"
	DiscountFreeShip   DiscountType = "FREE_SHIPPING"
	DiscountBuyXGetY   DiscountType = "BUY_X_GET_Y"
)

func (t DiscountType) IsValid() bool {
	switch t {
	case DiscountPercentage, DiscountFixed, DiscountFreeShip, DiscountBuyXGetY:
		return true
	}
	return false
}

// Eligibility restricts a promotion to a slice of the customer base.
type Eligibility string

const (
	EligibilityAll       Eligibility = "ALL"
	EligibilityVIP       Eligibility = "VIP_ONLY"
	EligibilityNew       Eligibility = "NEW_CUSTOMERS"
	EligibilityReturning Eligibility = "RETURNING_CUSTOMERS"
	EligibilityPremium   Eligibility = "PREMIUM_ONLY"
)

func (e Eligibility) IsValid() bool {
	switch e {
	case EligibilityAll, EligibilityVIP, EligibilityNew, EligibilityReturning, EligibilityPremium:
		return true
	}
	return false
}

// Rejections raised while evaluating a promotion against an order. The
// promotion itself is well-formed; the order does not qualify.
var (
	ErrPromotionInactive   = errors.New("promotion is not active")
	ErrUsageLimitReached   = errors.New("promotion usage limit reached")
	ErrNotApplicable       = errors.New("promotion does not apply to any item in the order")
	ErrCustomerNotEligible = errors.New("customer is not eligible for this promotion")
	ErrUnsupportedType     = errors.New("promotion type cannot be applied to an order total")
	ErrMinPurchaseNotMet   = errors.New("order subtotal is below the promotion minimum")
)

type Promotion struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	Name              string          `json:"name" db:"name"`
	Description       string          `json:"description" db:"description"`
	CouponCode        string          `json:"couponCode" db:"coupon_code"`
	Type              DiscountType    `json:"type" db:"type"`
	DiscountValue     decimal.Decimal `json:"discountValue" db:"discount_value"`
	MinPurchaseAmount decimal.Decimal `json:"minPurchaseAmount" db:"min_purchase_amount"`
	// MaxDiscountAmount caps the computed discount. Zero means no cap.
	MaxDiscountAmount    decimal.Decimal `json:"maxDiscountAmount" db:"max_discount_amount"`
	Eligibility          Eligibility     `json:"eligibility" db:"eligibility"`
	StartDate            time.Time       `json:"startDate" db:"start_date"`
	EndDate              time.Time       `json:"endDate" db:"end_date"`
	Active               bool            `json:"active" db:"active"`
	AutoApply            bool            `json:"autoApply" db:"auto_apply"`
	UsageLimit           int             `json:"usageLimit" db:"usage_limit"`
	TimesUsed            int             `json:"timesUsed" db:"times_used"`
	ApplicableCategories []string        `json:"applicableCategories" db:"applicable_categories"`
	CreatedAt            time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time       `json:"updatedAt" db:"updated_at"`
}

// Line is the slice of an order a promotion is judged against: one entry per
// sale item, carrying the item's category and its pre-discount line total.
type Line struct {
	Category string
	Amount   decimal.Decimal
}

// Evaluation is the outcome of matching one promotion against an order.
// FreeShipping marks promotions whose benefit is waived shipping rather than
// an amount off the merchandise total.
type Evaluation struct {
	Promotion    *Promotion
	Discount     decimal.Decimal
	FreeShipping bool
}

func (p *Promotion) IsActiveAt(now time.Time) bool {
	return p.Active && !now.Before(p.StartDate) && !now.After(p.EndDate)
}

// UsageAvailable reports whether the promotion can still be redeemed.
// A zero usage limit means unlimited.
func (p *Promotion) UsageAvailable() bool {
	return p.UsageLimit == 0 || p.TimesUsed < p.UsageLimit
}

// IsApplicableToCustomer gates on the promotion's eligibility tier.
// A nil customer is a walk-in sale and qualifies only for ALL.
func (p *Promotion) IsApplicableToCustomer(c *customer.Customer) bool {
	switch p.Eligibility {
	case "", EligibilityAll:
		return true
	case EligibilityVIP:
		return c != nil && c.Type == customer.TypeVIP
	case EligibilityPremium:
		return c != nil && c.Type == customer.TypePremium
	case EligibilityNew:
		return c != nil && c.TotalPurchases == 0
	case EligibilityReturning:
		return c != nil && c.TotalPurchases > 0
	}
	return false
}

func (p *Promotion) appliesToCategory(category string) bool {
	if len(p.ApplicableCategories) == 0 {
		return true
	}
	for _, c := range p.ApplicableCategories {
		if c == category {
			return true
		}
	}
	return false
}

// EligibleAmount sums the line totals the promotion's category filter admits.
// With no category filter the whole order is eligible.
func (p *Promotion) EligibleAmount(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		if p.appliesToCategory(l.Category) {
			total = total.Add(l.Amount)
		}
	}
	return money.Amount(total)
}

// Evaluate checks every qualification gate and computes the benefit the
// promotion grants on the given order lines. The subtotal is the order's full
// pre-discount merchandise total; the minimum-purchase gate reads it, while
// the discount itself is computed on the category-eligible portion only.
func (p *Promotion) Evaluate(lines []Line, subtotal decimal.Decimal, cust *customer.Customer, now time.Time) (Evaluation, error) {
	ev := Evaluation{Promotion: p, Discount: decimal.Zero}

	if !p.IsActiveAt(now) {
		return ev, ErrPromotionInactive
	}
	if !p.UsageAvailable() {
		return ev, ErrUsageLimitReached
	}
	if !p.IsApplicableToCustomer(cust) {
		return ev, ErrCustomerNotEligible
	}
	if subtotal.LessThan(p.MinPurchaseAmount) {
		return ev, fmt.Errorf("%w: subtotal %s, minimum %s",
			ErrMinPurchaseNotMet, subtotal, p.MinPurchaseAmount)
	}

	eligible := p.EligibleAmount(lines)
	if eligible.IsZero() {
		return ev, ErrNotApplicable
	}

	switch p.Type {
	case DiscountPercentage:
		ev.Discount = money.PercentOf(eligible, p.DiscountValue)
	case DiscountFixed:
		// A fixed discount never exceeds the amount it applies to.
		if p.DiscountValue.GreaterThan(eligible) {
			ev.Discount = eligible
		} else {
			ev.Discount = money.Amount(p.DiscountValue)
		}
	case DiscountFreeShip:
		// Benefit is waived shipping, applied by the order, not an amount
		// off the merchandise total.
		ev.FreeShipping = true
	case DiscountBuyXGetY:
		return ev, ErrUnsupportedType
	default:
		return ev, fmt.Errorf("unknown discount type %q", p.Type)
	}

	if p.MaxDiscountAmount.IsPositive() && ev.Discount.GreaterThan(p.MaxDiscountAmount) {
		ev.Discount = money.Amount(p.MaxDiscountAmount)
	}
	return ev, nil
}

// SelectBest evaluates every candidate and returns the single promotion that
// grants the largest monetary discount. Ties break toward the earlier end
// date, so the promotion about to expire gets spent first. Candidates that
// fail a gate or grant no amount off the total are skipped, not reported;
// a nil result means nothing qualified.
func SelectBest(candidates []Promotion, lines []Line, subtotal decimal.Decimal, cust *customer.Customer, now time.Time) *Evaluation {
	var best *Evaluation
	for i := range candidates {
		p := &candidates[i]
		ev, err := p.Evaluate(lines, subtotal, cust, now)
		if err != nil || ev.Discount.IsZero() {
			continue
		}
		if best == nil ||
			ev.Discount.GreaterThan(best.Discount) ||
			(ev.Discount.Equal(best.Discount) && p.EndDate.Before(best.Promotion.EndDate)) {
			best = &ev
		}
	}
	return best
}
