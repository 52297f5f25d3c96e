package returns

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/hamza-damra/sales-management-backend/internal/money"
	"github.com/hamza-damra/sales-management-backend/internal/sale"
	"github.com/hamza-damra/sales-management-backend/internal/sequence"
)

const numberPrefix = "RET"

type ItemInput struct {
	SaleItemID    uuid.UUID       `json:"saleItemId"`
	Quantity      int             `json:"quantity"`
	Condition     ItemCondition   `json:"condition"`
	RestockingFee decimal.Decimal `json:"restockingFee"`
}

type CreateInput struct {
	SaleID uuid.UUID   `json:"saleId"`
	Reason Reason      `json:"reason"`
	Notes  string      `json:"notes"`
	Items  []ItemInput `json:"items"`
}

type Service interface {
	Create(ctx context.Context, input CreateInput) (*Return, error)
	Get(ctx context.Context, id uuid.UUID) (*Return, error)
	GetByNumber(ctx context.Context, number string) (*Return, error)
	List(ctx context.Context, filter ListFilter) ([]Return, error)
	Approve(ctx context.Context, id uuid.UUID) (*Return, error)
	Reject(ctx context.Context, id uuid.UUID) (*Return, error)
	Cancel(ctx context.Context, id uuid.UUID) (*Return, error)
	// Refund processes an approved return, restocks what condition allows
	// and adjusts the sale's payment status.
	Refund(ctx context.Context, id uuid.UUID) (*Return, error)
	// Exchange processes an approved return with restocking but leaves the
	// sale's payment status alone; the replacement goods go out as a new
	// sale.
	Exchange(ctx context.Context, id uuid.UUID) (*Return, error)
}

type service struct {
	repo  Repository
	sales sale.Repository
	seq   sequence.Generator
}

func NewService(repo Repository, sales sale.Repository, seq sequence.Generator) Service {
	return &service{repo: repo, sales: sales, seq: seq}
}

func (s *service) Create(ctx context.Context, input CreateInput) (*Return, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	sl, err := s.sales.GetByID(ctx, input.SaleID)
	if err != nil {
		return nil, fmt.Errorf("service: resolve sale: %w", err)
	}
	if sl.Status != sale.StatusCompleted {
		return nil, fmt.Errorf("service: sale %s: %w", sl.Number, ErrSaleNotReturnable)
	}

	saleItems := make(map[uuid.UUID]*sale.SaleItem, len(sl.Items))
	for i := range sl.Items {
		saleItems[sl.Items[i].ID] = &sl.Items[i]
	}

	ret := &Return{
		SaleID:     sl.ID,
		CustomerID: sl.CustomerID,
		Status:     StatusPending,
		Reason:     input.Reason,
		Notes:      strings.TrimSpace(input.Notes),
		Items:      make([]Item, 0, len(input.Items)),
	}

	for _, in := range input.Items {
		si, ok := saleItems[in.SaleItemID]
		if !ok {
			return nil, fmt.Errorf("%w: sale item %s does not belong to sale %s",
				ErrValidation, in.SaleItemID, sl.Number)
		}
		if available := si.RemainingReturnable(); in.Quantity > available {
			return nil, &OverReturnError{SaleItemID: si.ID, Requested: in.Quantity, Available: available}
		}

		ret.Items = append(ret.Items, Item{
			SaleItemID:    si.ID,
			ProductID:     si.ProductID,
			ProductName:   si.ProductName,
			Quantity:      in.Quantity,
			UnitPrice:     si.UnitPrice,
			Condition:     in.Condition,
			RestockingFee: money.Amount(in.RestockingFee),
		})
	}

	ret.CalculateTotals()
	ret.Number = sequence.Number(numberPrefix, s.seq)

	if err := s.repo.Create(ctx, ret); err != nil {
		return nil, fmt.Errorf("service: create return: %w", err)
	}

	log.Info().
		Stringer("id", ret.ID).
		Str("number", ret.Number).
		Str("sale_number", sl.Number).
		Int("items", len(ret.Items)).
		Stringer("refund", ret.TotalRefundAmount).
		Msg("return created")
	return ret, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Return, error) {
	ret, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: get return: %w", err)
	}
	return ret, nil
}

func (s *service) GetByNumber(ctx context.Context, number string) (*Return, error) {
	ret, err := s.repo.GetByNumber(ctx, strings.TrimSpace(number))
	if err != nil {
		return nil, fmt.Errorf("service: get return by number: %w", err)
	}
	return ret, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]Return, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	out, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service: list returns: %w", err)
	}
	return out, nil
}

func (s *service) Approve(ctx context.Context, id uuid.UUID) (*Return, error) {
	return s.transition(ctx, id, StatusApproved)
}

func (s *service) Reject(ctx context.Context, id uuid.UUID) (*Return, error) {
	return s.transition(ctx, id, StatusRejected)
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID) (*Return, error) {
	return s.transition(ctx, id, StatusCancelled)
}

func (s *service) transition(ctx context.Context, id uuid.UUID, target Status) (*Return, error) {
	ret, err := s.repo.Transition(ctx, id, target)
	if err != nil {
		return nil, fmt.Errorf("service: transition return: %w", err)
	}

	log.Info().
		Stringer("id", ret.ID).
		Str("number", ret.Number).
		Str("status", string(ret.Status)).
		Msg("return status changed")
	return ret, nil
}

func (s *service) Refund(ctx context.Context, id uuid.UUID) (*Return, error) {
	return s.process(ctx, id, StatusRefunded)
}

func (s *service) Exchange(ctx context.Context, id uuid.UUID) (*Return, error) {
	return s.process(ctx, id, StatusExchanged)
}

func (s *service) process(ctx context.Context, id uuid.UUID, outcome Status) (*Return, error) {
	ret, err := s.repo.Process(ctx, id, outcome)
	if err != nil {
		return nil, fmt.Errorf("service: process return: %w", err)
	}

	log.Info().
		Stringer("id", ret.ID).
		Str("number", ret.Number).
		Str("status", string(ret.Status)).
		Stringer("refund", ret.TotalRefundAmount).
		Msg("return processed")
	return ret, nil
}

func validateCreateInput(input CreateInput) error {
	if input.SaleID == uuid.Nil {
		return fmt.Errorf("%w: sale id is required", ErrValidation)
	}
	if !input.Reason.IsValid() {
		return fmt.Errorf("%w: unknown return reason %q", ErrValidation, input.Reason)
	}
	if len(input.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	for _, in := range input.Items {
		if in.SaleItemID == uuid.Nil {
			return fmt.Errorf("%w: item sale item id is required", ErrValidation)
		}
		if in.Quantity < 1 {
			return fmt.Errorf("%w: item quantity must be at least 1", ErrValidation)
		}
		if !in.Condition.IsValid() {
			return fmt.Errorf("%w: unknown item condition %q", ErrValidation, in.Condition)
		}
		if in.RestockingFee.IsNegative() {
			return fmt.Errorf("%w: restocking fee cannot be negative", ErrValidation)
		}
	}
	return nil
}
