package supplier

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

type Service interface {
	Create(ctx context.Context, supplier *Supplier) (*Supplier, error)
	Get(ctx context.Context, id uuid.UUID) (*Supplier, error)
	List(ctx context.Context, activeOnly bool) ([]Supplier, error)
	Update(ctx context.Context, supplier *Supplier) (*Supplier, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, supplier *Supplier) (*Supplier, error) {
	supplier.Name = strings.TrimSpace(supplier.Name)
	if supplier.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	id, err := s.repo.Create(ctx, supplier)
	if err != nil {
		return nil, fmt.Errorf("service: create supplier: %w", err)
	}

	log.Info().Stringer("supplier_id", id).Str("name", supplier.Name).Msg("supplier created")
	return s.repo.GetByID(ctx, id)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Supplier, error) {
	supplier, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: get supplier: %w", err)
	}
	return supplier, nil
}

func (s *service) List(ctx context.Context, activeOnly bool) ([]Supplier, error) {
	suppliers, err := s.repo.List(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("service: list suppliers: %w", err)
	}
	return suppliers, nil
}

func (s *service) Update(ctx context.Context, supplier *Supplier) (*Supplier, error) {
	if supplier.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: supplier id is required", ErrValidation)
	}
	supplier.Name = strings.TrimSpace(supplier.Name)
	if supplier.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}

	if err := s.repo.Update(ctx, supplier); err != nil {
		return nil, fmt.Errorf("service: update supplier: %w", err)
	}
	return s.repo.GetByID(ctx, supplier.ID)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("service: delete supplier: %w", err)
	}
	log.Info().Stringer("supplier_id", id).Msg("supplier deleted")
	return nil
}
