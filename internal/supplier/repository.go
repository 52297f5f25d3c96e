package supplier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrSupplierNotFound   = errors.New("supplier not found")
	ErrSupplierReferenced = errors.New("supplier is still referenced by purchase orders")

	ErrValidation = errors.New("supplier validation failed")
)

type Repository interface {
	Create(ctx context.Context, supplier *Supplier) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Supplier, error)
	List(ctx context.Context, activeOnly bool) ([]Supplier, error)
	Update(ctx context.Context, supplier *Supplier) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const supplierColumns = `id, name, contact_name, email, phone, address, active, created_at, updated_at`

func scanSupplier(row pgx.Row) (*Supplier, error) {
	var s Supplier
	err := row.Scan(
		&s.ID, &s.Name, &s.ContactName, &s.Email, &s.Phone, &s.Address,
		&s.Active, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *postgresRepository) Create(ctx context.Context, supplier *Supplier) (uuid.UUID, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, fmt.Errorf("supplier: generate id: %w", err)
	}

	now := time.Now().UTC()
	supplier.ID = id
	supplier.CreatedAt = now
	supplier.UpdatedAt = now

	query := `
		INSERT INTO suppliers (id, name, contact_name, email, phone, address, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.db.Exec(ctx, query,
		supplier.ID, supplier.Name, supplier.ContactName, supplier.Email,
		supplier.Phone, supplier.Address, supplier.Active,
		supplier.CreatedAt, supplier.UpdatedAt,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("supplier: insert: %w", err)
	}

	return id, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers WHERE id = $1`

	supplier, err := scanSupplier(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSupplierNotFound
		}
		return nil, fmt.Errorf("supplier: select %s: %w", id, err)
	}
	return supplier, nil
}

func (r *postgresRepository) List(ctx context.Context, activeOnly bool) ([]Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM suppliers`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("supplier: list: %w", err)
	}
	defer rows.Close()

	suppliers := make([]Supplier, 0)
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, fmt.Errorf("supplier: scan: %w", err)
		}
		suppliers = append(suppliers, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("supplier: iterate: %w", err)
	}
	return suppliers, nil
}

func (r *postgresRepository) Update(ctx context.Context, supplier *Supplier) error {
	query := `
		UPDATE suppliers
		SET name = $1, contact_name = $2, email = $3, phone = $4, address = $5, active = $6, updated_at = $7
		WHERE id = $8
	`
	cmdTag, err := r.db.Exec(ctx, query,
		supplier.Name, supplier.ContactName, supplier.Email, supplier.Phone,
		supplier.Address, supplier.Active, time.Now().UTC(), supplier.ID,
	)
	if err != nil {
		return fmt.Errorf("supplier: update %s: %w", supplier.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrSupplierNotFound
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM suppliers WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrSupplierReferenced
		}
		return fmt.Errorf("supplier: delete %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrSupplierNotFound
	}
	return nil
}
