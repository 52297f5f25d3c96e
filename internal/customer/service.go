package customer

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

type Service interface {
	Create(ctx context.Context, customer *Customer) (*Customer, error)
	Get(ctx context.Context, id uuid.UUID) (*Customer, error)
	GetByEmail(ctx context.Context, email string) (*Customer, error)
	List(ctx context.Context, filter ListFilter) ([]Customer, error)
	Update(ctx context.Context, customer *Customer) (*Customer, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, customer *Customer) (*Customer, error) {
	normalize(customer)
	if customer.Type == "" {
		customer.Type = TypeRegular
	}
	if err := validateCustomer(customer); err != nil {
		return nil, err
	}

	id, err := s.repo.Create(ctx, customer)
	if err != nil {
		return nil, fmt.Errorf("service: create customer: %w", err)
	}

	log.Info().
		Stringer("customer_id", id).
		Str("email", customer.Email).
		Msg("customer created")

	return s.repo.GetByID(ctx, id)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Customer, error) {
	customer, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service: get customer: %w", err)
	}
	return customer, nil
}

func (s *service) GetByEmail(ctx context.Context, email string) (*Customer, error) {
	customer, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("service: get customer by email: %w", err)
	}
	return customer, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]Customer, error) {
	if filter.Type != "" && !filter.Type.IsValid() {
		return nil, fmt.Errorf("%w: unknown customer type %q", ErrValidation, filter.Type)
	}
	customers, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("service: list customers: %w", err)
	}
	return customers, nil
}

func (s *service) Update(ctx context.Context, customer *Customer) (*Customer, error) {
	if customer.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: customer id is required", ErrValidation)
	}
	normalize(customer)
	if err := validateCustomer(customer); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, customer); err != nil {
		return nil, fmt.Errorf("service: update customer: %w", err)
	}
	return s.repo.GetByID(ctx, customer.ID)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("service: delete customer: %w", err)
	}
	log.Info().Stringer("customer_id", id).Msg("customer deleted")
	return nil
}

func normalize(c *Customer) {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address = strings.TrimSpace(c.Address)
}

func validateCustomer(c *Customer) error {
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if c.Email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !c.Type.IsValid() {
		return fmt.Errorf("%w: unknown customer type %q", ErrValidation, c.Type)
	}
	return nil
}
