package sale

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/hamza-damra/sales-management-backend/internal/catalog"
	"github.com/hamza-damra/sales-management-backend/internal/customer"
	"github.com/hamza-damra/sales-management-backend/internal/money"
	"github.com/hamza-damra/sales-management-backend/internal/promotion"
	"github.com/hamza-damra/sales-management-backend/internal/sequence"
)

// numberPrefix starts every sale number; the full format is
// SALE-{epochMillis}-{sequence}-{4 random chars}.
const numberPrefix = "SALE"

type ItemInput struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
	// UnitPrice overrides the catalog price when positive; zero means
	// "charge the current catalog price".
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	// DiscountAmount is honored only when DiscountPercent is zero.
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TaxPercent     decimal.Decimal `json:"taxPercent"`
}

type CreateInput struct {
	CustomerID     *uuid.UUID      `json:"customerId"`
	PaymentMethod  PaymentMethod   `json:"paymentMethod"`
	Items          []ItemInput     `json:"items"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	ShippingCost   decimal.Decimal `json:"shippingCost"`
	// CouponCode applies a specific promotion. When empty, active
	// auto-apply promotions are scanned and the best one is taken.
	CouponCode string `json:"couponCode"`
	Notes      string `json:"notes"`
}

type Service interface {
	Create(ctx context.Context, input CreateInput) (*Sale, error)
	Get(ctx context.Context, id uuid.UUID) (*Sale, error)
	GetByNumber(ctx context.Context, number string) (*Sale, error)
	List(ctx context.Context, filter ListFilter) ([]Sale, error)
	Complete(ctx context.Context, id uuid.UUID) (*Sale, error)
	Cancel(ctx context.Context, id uuid.UUID) (*Sale, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (*Sale, error)
	UpdateDelivery(ctx context.Context, id uuid.UUID, target DeliveryStatus) (*Sale, error)
	ApplyCoupon(ctx context.Context, saleID uuid.UUID, code string) (*Sale, error)
	// ApplyAuto rescans active auto-apply promotions for an existing sale
	// and applies the best eligible one.
	ApplyAuto(ctx context.Context, saleID uuid.UUID) (*Sale, error)
	RemovePromotion(ctx context.Context, saleID, promotionID uuid.UUID) (*Sale, error)
}

type service struct {
	repo       Repository
	products   catalog.Repository
	customers  customer.Repository
	promotions promotion.Repository
	seq        sequence.Generator
}

func NewService(repo Repository, products catalog.Repository, customers customer.Repository, promotions promotion.Repository, seq sequence.Generator) Service {
	return &service{
		repo:       repo,
		products:   products,
		customers:  customers,
		promotions: promotions,
		seq:        seq,
	}
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Sale, error) {
	if err := validateCreateInput(&input); err != nil {
		return nil, err
	}

	var cust *customer.Customer
	if input.CustomerID != nil {
		var err error
		cust, err = s.customers.GetByID(ctx, *input.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("service: create sale: %w", err)
		}
	}

	sl := &Sale{
		CustomerID:     input.CustomerID,
		Status:         StatusPending,
		PaymentStatus:  PaymentPending,
		PaymentMethod:  input.PaymentMethod,
		DeliveryStatus: DeliveryNotShipped,
		DiscountAmount: money.Amount(input.DiscountAmount),
		TaxAmount:      money.Amount(input.TaxAmount),
		ShippingCost:   money.Amount(input.ShippingCost),
		Notes:          strings.TrimSpace(input.Notes),
	}

	for _, in := range input.Items {
		product, err := s.products.GetByID(ctx, in.ProductID)
		if err != nil {
			return nil, fmt.Errorf("service: create sale: %w", err)
		}
		if !product.Active {
			return nil, fmt.Errorf("%w: product %s is not active", ErrValidation, product.ID)
		}

		unitPrice := in.UnitPrice
		if unitPrice.IsZero() {
			unitPrice = product.UnitPrice
		}

		sl.Items = append(sl.Items, SaleItem{
			ProductID:       product.ID,
			ProductName:     product.Name,
			Category:        product.Category,
			Quantity:        in.Quantity,
			UnitPrice:       money.Amount(unitPrice),
			CostPrice:       product.CostPrice,
			DiscountPercent: money.Rate(in.DiscountPercent),
			DiscountAmount:  money.Amount(in.DiscountAmount),
			TaxPercent:      money.Rate(in.TaxPercent),
		})
	}
	sl.CalculateTotals()

	now := time.Now().UTC()
	if input.CouponCode != "" {
		promo, err := s.promotions.GetByCoupon(ctx, strings.TrimSpace(input.CouponCode))
		if err != nil {
			return nil, fmt.Errorf("service: create sale: %w", err)
		}
		ev, err := promo.Evaluate(promoLines(sl.Items), sl.MerchandiseTotal(), cust, now)
		if err != nil {
			return nil, fmt.Errorf("service: apply coupon %q: %w", input.CouponCode, err)
		}
		sl.Promotions = append(sl.Promotions, newApplied(&ev, sl.MerchandiseTotal(), false, now))
		sl.CalculateTotals()
	} else if best := s.bestAutoApply(ctx, sl, cust, now); best != nil {
		sl.Promotions = append(sl.Promotions, newApplied(best, sl.MerchandiseTotal(), true, now))
		sl.CalculateTotals()
	}

	sl.Number = sequence.Number(numberPrefix, s.seq)

	if err := s.repo.Create(ctx, sl); err != nil {
		return nil, fmt.Errorf("service: create sale: %w", err)
	}

	log.Info().
		Stringer("sale_id", sl.ID).
		Str("number", sl.Number).
		Int("items", len(sl.Items)).
		Str("total", sl.TotalAmount.String()).
		Msg("sale created")

	return sl, nil
}

// bestAutoApply scans active auto-apply promotions and picks the one
// granting the largest discount. Failures here never block the sale.
func (s *service) bestAutoApply(ctx context.Context, sl *Sale, cust *customer.Customer, now time.Time) *promotion.Evaluation {
	candidates, err := s.promotions.ListAutoApply(ctx, now)
	if err != nil {
		log.Warn().Err(err).Msg("auto-apply promotion scan failed")
		return nil
	}
	return promotion.SelectBest(candidates, promoLines(sl.Items), sl.MerchandiseTotal(), cust, now)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Sale, error) {
	sl, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: get sale: %w", err)
	}
	return sl, nil
}

func (s *service) GetByNumber(ctx context.Context, number string) (*Sale, error) {
	sl, err := s.repo.GetByNumber(ctx, strings.TrimSpace(number))
	if err != nil {
		return nil, fmt.Errorf("service: get sale by number: %w", err)
	}
	return sl, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]Sale, error) {
	sales, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service: list sales: %w", err)
	}
	return sales, nil
}

func (s *service) Complete(ctx context.Context, id uuid.UUID) (*Sale, error) {
	sl, err := s.repo.Complete(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: complete sale: %w", err)
	}

	log.Info().
		Stringer("sale_id", id).
		Str("number", sl.Number).
		Int("loyalty_points", sl.LoyaltyPointsEarned()).
		Msg("sale completed")

	return sl, nil
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID) (*Sale, error) {
	sl, err := s.repo.Cancel(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: cancel sale: %w", err)
	}

	log.Info().
		Stringer("sale_id", id).
		Str("number", sl.Number).
		Msg("sale cancelled, stock restored")

	return sl, nil
}

func (s *service) MarkPaid(ctx context.Context, id uuid.UUID) (*Sale, error) {
	sl, err := s.repo.MarkPaid(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: mark sale paid: %w", err)
	}
	return sl, nil
}

func (s *service) UpdateDelivery(ctx context.Context, id uuid.UUID, target DeliveryStatus) (*Sale, error) {
	if !target.IsValid() {
		return nil, fmt.Errorf("%w: unknown delivery status %q", ErrValidation, target)
	}

	sl, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: update delivery: %w", err)
	}
	if sl.Status == StatusCancelled {
		return nil, ErrSaleNotModifiable
	}
	if !sl.DeliveryStatus.CanAdvanceTo(target) {
		return nil, fmt.Errorf("%w: delivery cannot move from %s to %s", ErrValidation, sl.DeliveryStatus, target)
	}

	updated, err := s.repo.UpdateDelivery(ctx, id, target)
	if err != nil {
		return nil, fmt.Errorf("service: update delivery: %w", err)
	}

	log.Info().
		Stringer("sale_id", id).
		Str("delivery_status", string(target)).
		Msg("delivery status updated")

	return updated, nil
}

func (s *service) ApplyCoupon(ctx context.Context, saleID uuid.UUID, code string) (*Sale, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: coupon code is required", ErrValidation)
	}

	sl, err := s.repo.GetByID(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("service: apply coupon: %w", err)
	}
	if sl.Status.IsTerminal() {
		return nil, ErrSaleNotModifiable
	}
	if len(sl.Promotions) > 0 {
		return nil, ErrPromotionAlreadyApplied
	}

	promo, err := s.promotions.GetByCoupon(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("service: apply coupon: %w", err)
	}

	var cust *customer.Customer
	if sl.CustomerID != nil {
		cust, err = s.customers.GetByID(ctx, *sl.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("service: apply coupon: %w", err)
		}
	}

	now := time.Now().UTC()
	original := sl.MerchandiseTotal()
	ev, err := promo.Evaluate(promoLines(sl.Items), original, cust, now)
	if err != nil {
		return nil, fmt.Errorf("service: apply coupon %q: %w", code, err)
	}

	applied := newApplied(&ev, original, false, now)
	sl.Promotions = append(sl.Promotions, applied)
	sl.CalculateTotals()

	if err := s.repo.ApplyPromotion(ctx, sl, &applied); err != nil {
		return nil, fmt.Errorf("service: apply coupon: %w", err)
	}

	log.Info().
		Stringer("sale_id", saleID).
		Stringer("promotion_id", applied.PromotionID).
		Str("discount", applied.DiscountAmount.String()).
		Msg("promotion applied")

	return s.repo.GetByID(ctx, saleID)
}

func (s *service) ApplyAuto(ctx context.Context, saleID uuid.UUID) (*Sale, error) {
	sl, err := s.repo.GetByID(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("service: auto-apply promotion: %w", err)
	}
	if sl.Status.IsTerminal() {
		return nil, ErrSaleNotModifiable
	}
	if len(sl.Promotions) > 0 {
		return nil, ErrPromotionAlreadyApplied
	}

	var cust *customer.Customer
	if sl.CustomerID != nil {
		cust, err = s.customers.GetByID(ctx, *sl.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("service: auto-apply promotion: %w", err)
		}
	}

	now := time.Now().UTC()
	candidates, err := s.promotions.ListAutoApply(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("service: auto-apply promotion: %w", err)
	}

	original := sl.MerchandiseTotal()
	best := promotion.SelectBest(candidates, promoLines(sl.Items), original, cust, now)
	if best == nil {
		return nil, ErrNoEligiblePromotion
	}

	applied := newApplied(best, original, true, now)
	sl.Promotions = append(sl.Promotions, applied)
	sl.CalculateTotals()

	if err := s.repo.ApplyPromotion(ctx, sl, &applied); err != nil {
		return nil, fmt.Errorf("service: auto-apply promotion: %w", err)
	}

	log.Info().
		Stringer("sale_id", saleID).
		Stringer("promotion_id", applied.PromotionID).
		Str("discount", applied.DiscountAmount.String()).
		Msg("promotion auto-applied")

	return s.repo.GetByID(ctx, saleID)
}

func (s *service) RemovePromotion(ctx context.Context, saleID, promotionID uuid.UUID) (*Sale, error) {
	sl, err := s.repo.GetByID(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("service: remove promotion: %w", err)
	}
	if sl.Status.IsTerminal() {
		return nil, ErrSaleNotModifiable
	}

	kept := sl.Promotions[:0]
	found := false
	for _, ap := range sl.Promotions {
		if ap.PromotionID == promotionID {
			found = true
			continue
		}
		kept = append(kept, ap)
	}
	if !found {
		return nil, ErrPromotionNotApplied
	}
	sl.Promotions = kept
	sl.CalculateTotals()

	if err := s.repo.RemovePromotion(ctx, sl, promotionID); err != nil {
		return nil, fmt.Errorf("service: remove promotion: %w", err)
	}

	log.Info().
		Stringer("sale_id", saleID).
		Stringer("promotion_id", promotionID).
		Msg("promotion removed")

	return s.repo.GetByID(ctx, saleID)
}

func promoLines(items []SaleItem) []promotion.Line {
	lines := make([]promotion.Line, len(items))
	for i, it := range items {
		lines[i] = promotion.Line{Category: it.Category, Amount: it.TotalPrice}
	}
	return lines
}

func newApplied(ev *promotion.Evaluation, original decimal.Decimal, auto bool, now time.Time) AppliedPromotion {
	return AppliedPromotion{
		PromotionID:     ev.Promotion.ID,
		PromotionName:   ev.Promotion.Name,
		CouponCode:      ev.Promotion.CouponCode,
		DiscountAmount:  ev.Discount,
		DiscountPercent: money.RatioPercent(ev.Discount, original),
		OriginalAmount:  original,
		FinalAmount:     money.Amount(original.Sub(ev.Discount)),
		FreeShipping:    ev.FreeShipping,
		AutoApplied:     auto,
		AppliedAt:       now,
	}
}

func validateCreateInput(input *CreateInput) error {
	if len(input.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	if input.PaymentMethod == "" {
		input.PaymentMethod = MethodCash
	}
	if !input.PaymentMethod.IsValid() {
		return fmt.Errorf("%w: unknown payment method %q", ErrValidation, input.PaymentMethod)
	}
	if input.DiscountAmount.IsNegative() {
		return fmt.Errorf("%w: discount amount must not be negative", ErrValidation)
	}
	if input.TaxAmount.IsNegative() {
		return fmt.Errorf("%w: tax amount must not be negative", ErrValidation)
	}
	if input.ShippingCost.IsNegative() {
		return fmt.Errorf("%w: shipping cost must not be negative", ErrValidation)
	}

	for i, it := range input.Items {
		if it.ProductID == uuid.Nil {
			return fmt.Errorf("%w: item %d: product id is required", ErrValidation, i)
		}
		if it.Quantity < 1 {
			return fmt.Errorf("%w: item %d: quantity must be at least 1", ErrValidation, i)
		}
		if it.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: item %d: unit price must not be negative", ErrValidation, i)
		}
		if it.DiscountPercent.IsNegative() || it.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
			return fmt.Errorf("%w: item %d: discount percent must be between 0 and 100", ErrValidation, i)
		}
		if it.DiscountAmount.IsNegative() {
			return fmt.Errorf("%w: item %d: discount amount must not be negative", ErrValidation, i)
		}
		if it.TaxPercent.IsNegative() || it.TaxPercent.GreaterThan(decimal.NewFromInt(100)) {
			return fmt.Errorf("%w: item %d: tax percent must be between 0 and 100", ErrValidation, i)
		}
	}
	return nil
}
