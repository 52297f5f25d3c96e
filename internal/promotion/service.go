package promotion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/hamza-damra/sales-management-backend/internal/money"
)

type Service interface {
	Create(ctx context.Context, promotion *Promotion) (*Promotion, error)
	Get(ctx context.Context, id uuid.UUID) (*Promotion, error)
	GetByCoupon(ctx context.Context, code string) (*Promotion, error)
	List(ctx context.Context, includeInactive bool) ([]Promotion, error)
	ListAutoApply(ctx context.Context, at time.Time) ([]Promotion, error)
	Update(ctx context.Context, promotion *Promotion) (*Promotion, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

var oneHundred = decimal.NewFromInt(100)

func (s *service) Create(ctx context.Context, promotion *Promotion) (*Promotion, error) {
	normalize(promotion)
	if err := validatePromotion(promotion); err != nil {
		return nil, err
	}

	id, err := s.repo.Create(ctx, promotion)
	if err != nil {
		return nil, fmt.Errorf("service: create promotion: %w", err)
	}

	log.Info().
		Stringer("promotion_id", id).
		Str("coupon_code", promotion.CouponCode).
		Str("type", string(promotion.Type)).
		Msg("promotion created")

	return s.repo.GetByID(ctx, id)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Promotion, error) {
	promotion, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: get promotion: %w", err)
	}
	return promotion, nil
}

// GetByCoupon resolves a coupon code with an exact, case-sensitive match.
func (s *service) GetByCoupon(ctx context.Context, code string) (*Promotion, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, fmt.Errorf("%w: coupon code is required", ErrValidation)
	}
	promotion, err := s.repo.GetByCoupon(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("service: get promotion by coupon: %w", err)
	}
	return promotion, nil
}

func (s *service) List(ctx context.Context, includeInactive bool) ([]Promotion, error) {
	promotions, err := s.repo.List(ctx, includeInactive)
	if err != nil {
		return nil, fmt.Errorf("service: list promotions: %w", err)
	}
	return promotions, nil
}

func (s *service) ListAutoApply(ctx context.Context, at time.Time) ([]Promotion, error) {
	promotions, err := s.repo.ListAutoApply(ctx, at)
	if err != nil {
		return nil, fmt.Errorf("service: list auto-apply promotions: %w", err)
	}
	return promotions, nil
}

func (s *service) Update(ctx context.Context, promotion *Promotion) (*Promotion, error) {
	if promotion.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: promotion id is required", ErrValidation)
	}
	normalize(promotion)
	if err := validatePromotion(promotion); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, promotion); err != nil {
		return nil, fmt.Errorf("service: update promotion: %w", err)
	}
	return s.repo.GetByID(ctx, promotion.ID)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("service: delete promotion: %w", err)
	}
	log.Info().Stringer("promotion_id", id).Msg("promotion deleted")
	return nil
}

func normalize(p *Promotion) {
	p.Name = strings.TrimSpace(p.Name)
	// Coupon codes match case-sensitively, so only surrounding noise is
	// stripped.
	p.CouponCode = strings.TrimSpace(p.CouponCode)
	p.DiscountValue = money.Amount(p.DiscountValue)
	p.MinPurchaseAmount = money.Amount(p.MinPurchaseAmount)
	p.MaxDiscountAmount = money.Amount(p.MaxDiscountAmount)
	if p.Eligibility == "" {
		p.Eligibility = EligibilityAll
	}
	for i, c := range p.ApplicableCategories {
		p.ApplicableCategories[i] = strings.TrimSpace(c)
	}
}

func validatePromotion(p *Promotion) error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if p.CouponCode == "" && !p.AutoApply {
		return fmt.Errorf("%w: coupon code is required unless the promotion auto-applies", ErrValidation)
	}
	if !p.Type.IsValid() {
		return fmt.Errorf("%w: unknown discount type %q", ErrValidation, p.Type)
	}
	if !p.Eligibility.IsValid() {
		return fmt.Errorf("%w: unknown eligibility %q", ErrValidation, p.Eligibility)
	}
	if p.Type != DiscountFreeShip && !p.DiscountValue.IsPositive() {
		return fmt.Errorf("%w: discount value must be positive", ErrValidation)
	}
	if p.Type == DiscountPercentage && p.DiscountValue.GreaterThan(oneHundred) {
		return fmt.Errorf("%w: percentage discount must not exceed 100", ErrValidation)
	}
	if p.MinPurchaseAmount.IsNegative() {
		return fmt.Errorf("%w: minimum purchase amount must not be negative", ErrValidation)
	}
	if p.MaxDiscountAmount.IsNegative() {
		return fmt.Errorf("%w: maximum discount amount must not be negative", ErrValidation)
	}
	if p.EndDate.Before(p.StartDate) {
		return fmt.Errorf("%w: end date must not precede start date", ErrValidation)
	}
	if p.UsageLimit < 0 {
		return fmt.Errorf("%w: usage limit must not be negative", ErrValidation)
	}
	return nil
}
