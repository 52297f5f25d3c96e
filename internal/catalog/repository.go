package catalog

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
	ErrProductNotFound   = errors.New("product not found")
	ErrSKUExists         = errors.New("product sku already exists")
	ErrProductReferenced = errors.New("product is still referenced by sales, purchase orders or returns")

	// ErrValidation marks rejections of malformed or out-of-range input.
	ErrValidation = errors.New("product validation failed")
)

// InsufficientStockError is returned when a requested decrement exceeds the
// quantity on hand. The transaction that produced it is rolled back whole.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// StockBelowZeroError is returned when an adjustment would take the quantity
// on hand negative.
type StockBelowZeroError struct {
	ProductID uuid.UUID
	Current   int
	Delta     int
}

func (e *StockBelowZeroError) Error() string {
	return fmt.Sprintf("stock adjustment for product %s would go below zero: current %d, delta %d",
		e.ProductID, e.Current, e.Delta)
}

type Repository interface {
	Create(ctx context.Context, product *Product) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	GetBySKU(ctx context.Context, sku string) (*Product, error)
	List(ctx context.Context, filter ListFilter) ([]Product, error)
	ListLowStock(ctx context.Context) ([]Product, error)
	Update(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	AdjustStock(ctx context.Context, productID uuid.UUID, delta int, reason MovementReason, referenceID *uuid.UUID, note string) (*Product, error)
	Movements(ctx context.Context, productID uuid.UUID, limit int) ([]StockMovement, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const productColumns = `id, sku, name, description, category, unit_price, cost_price,
	stock_quantity, min_stock_level, reorder_point, total_sold, total_revenue,
	active, last_restocked_at, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.SKU, &p.Name, &p.Description, &p.Category,
		&p.UnitPrice, &p.CostPrice,
		&p.StockQuantity, &p.MinStockLevel, &p.ReorderPoint,
		&p.TotalSold, &p.TotalRevenue,
		&p.Active, &p.LastRestockedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepository) Create(ctx context.Context, product *Product) (uuid.UUID, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, fmt.Errorf("catalog: generate product id: %w", err)
	}

	now := time.Now().UTC()
	product.ID = id
	product.CreatedAt = now
	product.UpdatedAt = now

	query := `
		INSERT INTO products (id, sku, name, description, category, unit_price, cost_price,
			stock_quantity, min_stock_level, reorder_point, total_sold, total_revenue,
			active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = r.db.Exec(ctx, query,
		product.ID, product.SKU, product.Name, product.Description, product.Category,
		product.UnitPrice, product.CostPrice,
		product.StockQuantity, product.MinStockLevel, product.ReorderPoint,
		product.TotalSold, product.TotalRevenue,
		product.Active, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return uuid.Nil, ErrSKUExists
		}
		return uuid.Nil, fmt.Errorf("catalog: insert product: %w", err)
	}

	return id, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("catalog: select product %s: %w", id, err)
	}
	return product, nil
}

func (r *postgresRepository) GetBySKU(ctx context.Context, sku string) (*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE sku = $1`

	product, err := scanProduct(r.db.QueryRow(ctx, query, sku))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("catalog: select product by sku %q: %w", sku, err)
	}
	return product, nil
}

func (r *postgresRepository) List(ctx context.Context, filter ListFilter) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products`
	var (
		conds []string
		args  []interface{}
	)
	if filter.Category != "" {
		args = append(args, filter.Category)
		conds = append(conds, "category = $"+strconv.Itoa(len(args)))
	}
	if filter.ActiveOnly {
		conds = append(conds, "active")
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
		return nil, fmt.Errorf("catalog: list products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

func (r *postgresRepository) ListLowStock(ctx context.Context) ([]Product, error) {
	query := `SELECT ` + productColumns + ` FROM products
		WHERE active AND stock_quantity <= min_stock_level
		ORDER BY stock_quantity`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("catalog: list low-stock products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate products: %w", err)
	}
	return products, nil
}

func (r *postgresRepository) Update(ctx context.Context, product *Product) error {
	query := `
		UPDATE products
		SET sku = $1, name = $2, description = $3, category = $4,
			unit_price = $5, cost_price = $6,
			min_stock_level = $7, reorder_point = $8, active = $9, updated_at = $10
		WHERE id = $11
	`
	cmdTag, err := r.db.Exec(ctx, query,
		product.SKU, product.Name, product.Description, product.Category,
		product.UnitPrice, product.CostPrice,
		product.MinStockLevel, product.ReorderPoint, product.Active, time.Now().UTC(),
		product.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSKUExists
		}
		return fmt.Errorf("catalog: update product %s: %w", product.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrProductReferenced
		}
		return fmt.Errorf("catalog: delete product %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *postgresRepository) AdjustStock(ctx context.Context, productID uuid.UUID, delta int, reason MovementReason, referenceID *uuid.UUID, note string) (product *Product, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: begin stock adjustment: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	product, err = lockProduct(ctx, tx, productID)
	if err != nil {
		return nil, err
	}

	if product.StockQuantity+delta < 0 {
		return nil, &StockBelowZeroError{ProductID: productID, Current: product.StockQuantity, Delta: delta}
	}

	now := time.Now().UTC()
	product.StockQuantity += delta
	if delta > 0 {
		product.LastRestockedAt = &now
	}
	product.UpdatedAt = now

	_, err = tx.Exec(ctx, `
		UPDATE products
		SET stock_quantity = $1, last_restocked_at = $2, updated_at = $3
		WHERE id = $4
	`, product.StockQuantity, product.LastRestockedAt, product.UpdatedAt, productID)
	if err != nil {
		return nil, fmt.Errorf("catalog: update stock for product %s: %w", productID, err)
	}

	if err = insertMovement(ctx, tx, productID, delta, reason, referenceID, note, now); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("catalog: commit stock adjustment: %w", err)
	}
	return product, nil
}

func (r *postgresRepository) Movements(ctx context.Context, productID uuid.UUID, limit int) ([]StockMovement, error) {
	query := `
		SELECT id, product_id, delta, reason, reference_id, note, created_at
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("catalog: list stock movements for product %s: %w", productID, err)
	}
	defer rows.Close()

	movements := make([]StockMovement, 0)
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Delta, &m.Reason, &m.ReferenceID, &m.Note, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("catalog: scan stock movement: %w", err)
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate stock movements: %w", err)
	}
	return movements, nil
}

// lockProduct reads a product row under FOR UPDATE so concurrent ledger
// mutations for the same product serialize on the row lock.
func lockProduct(ctx context.Context, tx pgx.Tx, productID uuid.UUID) (*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 FOR UPDATE`

	product, err := scanProduct(tx.QueryRow(ctx, query, productID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("catalog: lock product %s: %w", productID, err)
	}
	return product, nil
}

func insertMovement(ctx context.Context, tx pgx.Tx, productID uuid.UUID, delta int, reason MovementReason, referenceID *uuid.UUID, note string, at time.Time) error {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("catalog: generate movement id: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO stock_movements (id, product_id, delta, reason, reference_id, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, productID, delta, string(reason), referenceID, note, at)
	if err != nil {
		return fmt.Errorf("catalog: insert stock movement for product %s: %w", productID, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}
