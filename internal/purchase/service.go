package purchase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/hamza-damra/sales-management-backend/internal/catalog"
	"github.com/hamza-damra/sales-management-backend/internal/money"
	"github.com/hamza-damra/sales-management-backend/internal/sequence"
	"github.com/hamza-damra/sales-management-backend/internal/supplier"
)

const numberPrefix = "PO"

// ItemInput is one requested order line. UnitCost left at zero resolves
// to the product's current cost price.
type ItemInput struct {
	ProductID uuid.UUID       `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unitCost"`
}

type CreateInput struct {
	SupplierID       uuid.UUID       `json:"supplierId"`
	Items            []ItemInput     `json:"items"`
	TaxRate          decimal.Decimal `json:"taxRate"`
	ShippingCost     decimal.Decimal `json:"shippingCost"`
	DiscountAmount   decimal.Decimal `json:"discountAmount"`
	ExpectedDelivery *time.Time      `json:"expectedDelivery"`
	Notes            string          `json:"notes"`
}

type UpdateInput struct {
	SupplierID       uuid.UUID       `json:"supplierId"`
	Items            []ItemInput     `json:"items"`
	TaxRate          decimal.Decimal `json:"taxRate"`
	ShippingCost     decimal.Decimal `json:"shippingCost"`
	DiscountAmount   decimal.Decimal `json:"discountAmount"`
	ExpectedDelivery *time.Time      `json:"expectedDelivery"`
	Notes            string          `json:"notes"`
}

type Service interface {
	Create(ctx context.Context, input CreateInput) (*PurchaseOrder, error)
	Get(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)
	GetByNumber(ctx context.Context, number string) (*PurchaseOrder, error)
	List(ctx context.Context, filter ListFilter) ([]PurchaseOrder, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*PurchaseOrder, error)
	Approve(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)
	Send(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)
	Cancel(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)
	Receive(ctx context.Context, id uuid.UUID, receipts []Receipt) (*PurchaseOrder, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo      Repository
	products  catalog.Repository
	suppliers supplier.Repository
	seq       sequence.Generator
}

func NewService(repo Repository, products catalog.Repository, suppliers supplier.Repository, seq sequence.Generator) Service {
	return &service{repo: repo, products: products, suppliers: suppliers, seq: seq}
}

func (s *service) Create(ctx context.Context, input CreateInput) (*PurchaseOrder, error) {
	po, err := s.buildOrder(ctx, input.SupplierID, input.Items, input.TaxRate,
		input.ShippingCost, input.DiscountAmount, input.ExpectedDelivery, input.Notes)
	if err != nil {
		return nil, err
	}
	po.Number = sequence.Number(numberPrefix, s.seq)
	po.Status = StatusPending

	if err := s.repo.Create(ctx, po); err != nil {
		return nil, fmt.Errorf("service: create purchase order: %w", err)
	}

	log.Info().
		Stringer("id", po.ID).
		Str("number", po.Number).
		Stringer("supplier_id", po.SupplierID).
		Int("items", len(po.Items)).
		Stringer("total", po.TotalAmount).
		Msg("purchase order created")
	return po, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error) {
	po, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: get purchase order: %w", err)
	}
	return po, nil
}

func (s *service) GetByNumber(ctx context.Context, number string) (*PurchaseOrder, error) {
	po, err := s.repo.GetByNumber(ctx, strings.TrimSpace(number))
	if err != nil {
		return nil, fmt.Errorf("service: get purchase order by number: %w", err)
	}
	return po, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]PurchaseOrder, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	orders, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service: list purchase orders: %w", err)
	}
	return orders, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*PurchaseOrder, error) {
	po, err := s.buildOrder(ctx, input.SupplierID, input.Items, input.TaxRate,
		input.ShippingCost, input.DiscountAmount, input.ExpectedDelivery, input.Notes)
	if err != nil {
		return nil, err
	}
	po.ID = id

	if err := s.repo.Update(ctx, po); err != nil {
		return nil, fmt.Errorf("service: update purchase order: %w", err)
	}
	updated, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: reload purchase order: %w", err)
	}
	return updated, nil
}

func (s *service) Approve(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error) {
	return s.transition(ctx, id, StatusApproved)
}

func (s *service) Send(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error) {
	return s.transition(ctx, id, StatusSent)
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error) {
	return s.transition(ctx, id, StatusCancelled)
}

func (s *service) transition(ctx context.Context, id uuid.UUID, target Status) (*PurchaseOrder, error) {
	po, err := s.repo.Transition(ctx, id, target)
	if err != nil {
		return nil, fmt.Errorf("service: transition purchase order: %w", err)
	}

	log.Info().
		Stringer("id", po.ID).
		Str("number", po.Number).
		Str("status", string(po.Status)).
		Msg("purchase order status changed")
	return po, nil
}

func (s *service) Receive(ctx context.Context, id uuid.UUID, receipts []Receipt) (*PurchaseOrder, error) {
	if len(receipts) == 0 {
		return nil, fmt.Errorf("%w: at least one receipt is required", ErrValidation)
	}
	for _, rc := range receipts {
		if rc.ItemID == uuid.Nil {
			return nil, fmt.Errorf("%w: receipt item id is required", ErrValidation)
		}
		if rc.Quantity <= 0 {
			return nil, fmt.Errorf("%w: receipt quantity must be positive", ErrValidation)
		}
	}

	po, err := s.repo.Receive(ctx, id, receipts)
	if err != nil {
		return nil, fmt.Errorf("service: receive purchase order: %w", err)
	}

	log.Info().
		Stringer("id", po.ID).
		Str("number", po.Number).
		Str("status", string(po.Status)).
		Stringer("progress_pct", po.ReceivingProgress()).
		Msg("purchase order receipt recorded")
	return po, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("service: delete purchase order: %w", err)
	}

	log.Info().Stringer("id", id).Msg("purchase order deleted")
	return nil
}

// buildOrder resolves products and supplier, snapshots names and costs and
// computes amounts. Shared by Create and Update.
func (s *service) buildOrder(ctx context.Context, supplierID uuid.UUID, items []ItemInput,
	taxRate, shippingCost, discountAmount decimal.Decimal, expectedDelivery *time.Time, notes string) (*PurchaseOrder, error) {

	if err := validateOrderInput(supplierID, items, taxRate, shippingCost, discountAmount); err != nil {
		return nil, err
	}

	sup, err := s.suppliers.GetByID(ctx, supplierID)
	if err != nil {
		return nil, fmt.Errorf("service: resolve supplier: %w", err)
	}
	if !sup.Active {
		return nil, fmt.Errorf("%w: supplier %s is inactive", ErrValidation, sup.Name)
	}

	po := &PurchaseOrder{
		SupplierID:       supplierID,
		TaxRate:          money.Rate(taxRate),
		ShippingCost:     money.Amount(shippingCost),
		DiscountAmount:   money.Amount(discountAmount),
		ExpectedDelivery: expectedDelivery,
		Notes:            strings.TrimSpace(notes),
		Items:            make([]Item, 0, len(items)),
	}

	for _, in := range items {
		p, err := s.products.GetByID(ctx, in.ProductID)
		if err != nil {
			return nil, fmt.Errorf("service: resolve product %s: %w", in.ProductID, err)
		}

		unitCost := money.Amount(in.UnitCost)
		if unitCost.IsZero() {
			unitCost = p.CostPrice
		}
		if !unitCost.IsPositive() {
			return nil, fmt.Errorf("%w: unit cost for product %s must be positive", ErrValidation, p.SKU)
		}

		item := Item{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    in.Quantity,
			UnitCost:    unitCost,
		}
		item.Recalculate()
		po.Items = append(po.Items, item)
	}

	po.CalculateTotals()
	return po, nil
}

func validateOrderInput(supplierID uuid.UUID, items []ItemInput,
	taxRate, shippingCost, discountAmount decimal.Decimal) error {

	if supplierID == uuid.Nil {
		return fmt.Errorf("%w: supplier is required", ErrValidation)
	}
	if len(items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	if taxRate.IsNegative() {
		return fmt.Errorf("%w: tax rate cannot be negative", ErrValidation)
	}
	if shippingCost.IsNegative() {
		return fmt.Errorf("%w: shipping cost cannot be negative", ErrValidation)
	}
	if discountAmount.IsNegative() {
		return fmt.Errorf("%w: discount amount cannot be negative", ErrValidation)
	}
	for _, in := range items {
		if in.ProductID == uuid.Nil {
			return fmt.Errorf("%w: item product id is required", ErrValidation)
		}
		if in.Quantity < 1 {
			return fmt.Errorf("%w: item quantity must be at least 1", ErrValidation)
		}
		if in.UnitCost.IsNegative() {
			return fmt.Errorf("%w: item unit cost cannot be negative", ErrValidation)
		}
	}
	return nil
}
