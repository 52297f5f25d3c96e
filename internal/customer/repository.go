package customer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrEmailExists        = errors.New("customer email already exists")
	ErrCustomerReferenced = errors.New("customer is still referenced by sales or returns")

	ErrValidation = errors.New("customer validation failed")
)

type Repository interface {
	Create(ctx context.Context, customer *Customer) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	GetByEmail(ctx context.Context, email string) (*Customer, error)
	List(ctx context.Context, filter ListFilter) ([]Customer, error)
	Update(ctx context.Context, customer *Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const customerColumns = `id, name, email, phone, address, type,
	total_purchases, total_spent, loyalty_points, created_at, updated_at`

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	err := row.Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Type,
		&c.TotalPurchases, &c.TotalSpent, &c.LoyaltyPoints,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *postgresRepository) Create(ctx context.Context, customer *Customer) (uuid.UUID, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, fmt.Errorf("customer: generate id: %w", err)
	}

	now := time.Now().UTC()
	customer.ID = id
	customer.CreatedAt = now
	customer.UpdatedAt = now

	query := `
		INSERT INTO customers (id, name, email, phone, address, type,
			total_purchases, total_spent, loyalty_points, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.db.Exec(ctx, query,
		customer.ID, customer.Name, customer.Email, customer.Phone, customer.Address,
		customer.Type, customer.TotalPurchases, customer.TotalSpent, customer.LoyaltyPoints,
		customer.CreatedAt, customer.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return uuid.Nil, ErrEmailExists
		}
		return uuid.Nil, fmt.Errorf("customer: insert: %w", err)
	}

	return id, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	customer, err := scanCustomer(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("customer: select %s: %w", id, err)
	}
	return customer, nil
}

func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (*Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE email = $1`

	customer, err := scanCustomer(r.db.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("customer: select by email %q: %w", email, err)
	}
	return customer, nil
}

func (r *postgresRepository) List(ctx context.Context, filter ListFilter) ([]Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers`
	var (
		conds []string
		args  []interface{}
	)
	if filter.Type != "" {
		args = append(args, filter.Type)
		conds = append(conds, "type = $"+strconv.Itoa(len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := strconv.Itoa(len(args))
		conds = append(conds, "(name ILIKE $"+n+" OR email ILIKE $"+n+")")
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY name"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += " OFFSET $" + strconv.Itoa(len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("customer: list: %w", err)
	}
	defer rows.Close()

	customers := make([]Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("customer: scan: %w", err)
		}
		customers = append(customers, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("customer: iterate: %w", err)
	}
	return customers, nil
}

func (r *postgresRepository) Update(ctx context.Context, customer *Customer) error {
	query := `
		UPDATE customers
		SET name = $1, email = $2, phone = $3, address = $4, type = $5, updated_at = $6
		WHERE id = $7
	`
	cmdTag, err := r.db.Exec(ctx, query,
		customer.Name, customer.Email, customer.Phone, customer.Address, customer.Type,
		time.Now().UTC(), customer.ID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrEmailExists
		}
		return fmt.Errorf("customer: update %s: %w", customer.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrCustomerReferenced
		}
		return fmt.Errorf("customer: delete %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCustomerNotFound
	}
	return nil
}
