package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hamza-damra/sales-management-backend/internal/money"
)

type Service interface {
	Create(ctx context.Context, product *Product) (*Product, error)
	Get(ctx context.Context, id uuid.UUID) (*Product, error)
	GetBySKU(ctx context.Context, sku string) (*Product, error)
	List(ctx context.Context, filter ListFilter) ([]Product, error)
	LowStock(ctx context.Context) ([]Product, error)
	Update(ctx context.Context, product *Product) (*Product, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AdjustStock(ctx context.Context, productID uuid.UUID, delta int, note string) (*Product, error)
	Movements(ctx context.Context, productID uuid.UUID, limit int) ([]StockMovement, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, product *Product) (*Product, error) {
	normalize(product)
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	if product.StockQuantity < 0 {
		return nil, fmt.Errorf("%w: stock quantity must not be negative", ErrValidation)
	}

	id, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("service: create product: %w", err)
	}

	log.Info().
		Stringer("product_id", id).
		Str("sku", product.SKU).
		Msg("product created")

	return s.repo.GetByID(ctx, id)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: get product: %w", err)
	}
	return product, nil
}

func (s *service) GetBySKU(ctx context.Context, sku string) (*Product, error) {
	product, err := s.repo.GetBySKU(ctx, strings.TrimSpace(sku))
	if err != nil {
		return nil, fmt.Errorf("service: get product by sku: %w", err)
	}
	return product, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	products, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service: list products: %w", err)
	}
	return products, nil
}

func (s *service) LowStock(ctx context.Context) ([]Product, error) {
	products, err := s.repo.ListLowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("service: list low-stock products: %w", err)
	}
	return products, nil
}

func (s *service) Update(ctx context.Context, product *Product) (*Product, error) {
	if product.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: product id is required", ErrValidation)
	}
	normalize(product)
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("service: update product: %w", err)
	}
	return s.repo.GetByID(ctx, product.ID)
}

func (s *service) Deactivate(ctx context.Context, id uuid.UUID) (*Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: deactivate product: %w", err)
	}
	if !product.Active {
		return product, nil
	}

	product.Active = false
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("service: deactivate product: %w", err)
	}

	log.Info().Stringer("product_id", id).Msg("product deactivated")
	return product, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("service: delete product: %w", err)
	}
	log.Info().Stringer("product_id", id).Msg("product deleted")
	return nil
}

func (s *service) AdjustStock(ctx context.Context, productID uuid.UUID, delta int, note string) (*Product, error) {
	if delta == 0 {
		return nil, fmt.Errorf("%w: stock adjustment delta must not be zero", ErrValidation)
	}

	product, err := s.repo.AdjustStock(ctx, productID, delta, MovementManualAdjustment, nil, note)
	if err != nil {
		return nil, fmt.Errorf("service: adjust stock: %w", err)
	}

	log.Info().
		Stringer("product_id", productID).
		Int("delta", delta).
		Int("stock_quantity", product.StockQuantity).
		Msg("stock adjusted")

	return product, nil
}

func (s *service) Movements(ctx context.Context, productID uuid.UUID, limit int) ([]StockMovement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	movements, err := s.repo.Movements(ctx, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("service: list stock movements: %w", err)
	}
	return movements, nil
}

func normalize(p *Product) {
	p.SKU = strings.TrimSpace(p.SKU)
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	p.UnitPrice = money.Amount(p.UnitPrice)
	p.CostPrice = money.Amount(p.CostPrice)
}

func validateProduct(p *Product) error {
	if p.SKU == "" {
		return fmt.Errorf("%w: sku is required", ErrValidation)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if p.UnitPrice.IsNegative() {
		return fmt.Errorf("%w: unit price must not be negative", ErrValidation)
	}
	if p.CostPrice.IsNegative() {
		return fmt.Errorf("%w: cost price must not be negative", ErrValidation)
	}
	if p.MinStockLevel < 0 {
		return fmt.Errorf("%w: min stock level must not be negative", ErrValidation)
	}
	if p.ReorderPoint < 0 {
		return fmt.Errorf("%w: reorder point must not be negative", ErrValidation)
	}
	return nil
}
