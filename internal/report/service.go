package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hamza-damra/sales-management-backend/internal/money"
)

var ErrValidation = errors.New("report validation failed")

// defaultPeriod backfills an open date range: the last 30 days.
const defaultPeriod = 30 * 24 * time.Hour

type Service interface {
	SalesSummary(ctx context.Context, r DateRange) (*SalesSummary, error)
	TopProducts(ctx context.Context, r DateRange, limit int) ([]TopProduct, error)
	RevenueByCategory(ctx context.Context, r DateRange) ([]CategoryRevenue, error)
	LowStock(ctx context.Context) ([]LowStockEntry, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) SalesSummary(ctx context.Context, r DateRange) (*SalesSummary, error) {
	r, err := normalizeRange(r)
	if err != nil {
		return nil, err
	}

	summary, err := s.repo.SalesSummary(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("service: sales summary: %w", err)
	}

	// AVG comes back at the engine's full precision; round it like every
	// other derived amount. The margin is derived here, not in SQL.
	summary.AverageOrderValue = money.Amount(summary.AverageOrderValue)
	summary.ProfitMargin = money.RatioPercent(summary.GrossProfit, summary.TotalRevenue)
	return summary, nil
}

func (s *service) TopProducts(ctx context.Context, r DateRange, limit int) ([]TopProduct, error) {
	r, err := normalizeRange(r)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	products, err := s.repo.TopProducts(ctx, r, limit)
	if err != nil {
		return nil, fmt.Errorf("service: top products: %w", err)
	}
	return products, nil
}

func (s *service) RevenueByCategory(ctx context.Context, r DateRange) ([]CategoryRevenue, error) {
	r, err := normalizeRange(r)
	if err != nil {
		return nil, err
	}

	categories, err := s.repo.RevenueByCategory(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("service: revenue by category: %w", err)
	}
	return categories, nil
}

func (s *service) LowStock(ctx context.Context) ([]LowStockEntry, error) {
	entries, err := s.repo.LowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: low stock: %w", err)
	}
	return entries, nil
}

func normalizeRange(r DateRange) (DateRange, error) {
	if r.To.IsZero() {
		r.To = time.Now().UTC()
	}
	if r.From.IsZero() {
		r.From = r.To.Add(-defaultPeriod)
	}
	if !r.From.Before(r.To) {
		return r, fmt.Errorf("%w: date range start %s is not before end %s",
			ErrValidation, r.From.Format(time.RFC3339), r.To.Format(time.RFC3339))
	}
	return r, nil
}
