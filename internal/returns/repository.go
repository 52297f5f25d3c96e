package returns

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hamza-damra/sales-management-backend/internal/catalog"
	"github.com/hamza-damra/sales-management-backend/internal/sale"
)

var (
	ErrReturnNotFound = errors.New("return not found")

	// ErrSaleNotReturnable rejects returns against sales that never
	// completed.
	ErrSaleNotReturnable = errors.New("sale is not eligible for returns")

	ErrValidation = errors.New("return validation failed")
)

// OverReturnError reports an attempt to send back more units than the sale
// line still holds.
type OverReturnError struct {
	SaleItemID uuid.UUID
	Requested  int
	Available  int
}

func (e *OverReturnError) Error() string {
	return fmt.Sprintf("sale item %s: cannot return %d units, only %d remain returnable",
		e.SaleItemID, e.Requested, e.Available)
}

type ListFilter struct {
	SaleID *uuid.UUID
	Status Status
	Limit  int
	Offset int
}

type Repository interface {
	// Create validates every line against the sale's remaining returnable
	// quantities under lock, then persists the return as PENDING. Stock and
	// sale bookkeeping stay untouched until the return is processed.
	Create(ctx context.Context, ret *Return) error
	GetByID(ctx context.Context, id uuid.UUID) (*Return, error)
	GetByNumber(ctx context.Context, number string) (*Return, error)
	List(ctx context.Context, filter ListFilter) ([]Return, error)
	// Transition moves the return between bookkeeping-free states
	// (approve, reject, cancel).
	Transition(ctx context.Context, id uuid.UUID, target Status) (*Return, error)
	// Process finishes an APPROVED return as REFUNDED or EXCHANGED: it
	// re-validates quantities, bumps the sale lines' returned counts,
	// restocks what condition allows and, for refunds, moves the sale's
	// payment status. One transaction covers all of it.
	Process(ctx context.Context, id uuid.UUID, outcome Status) (*Return, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const returnColumns = `id, number, sale_id, customer_id, status, reason,
	total_refund_amount, notes, processed_at, created_at, updated_at`

const itemColumns = `id, return_id, sale_item_id, product_id, product_name,
	quantity, unit_price, condition, restocking_fee, refund_amount, restocked`

func scanReturn(row pgx.Row) (*Return, error) {
	var ret Return
	err := row.Scan(
		&ret.ID, &ret.Number, &ret.SaleID, &ret.CustomerID, &ret.Status, &ret.Reason,
		&ret.TotalRefundAmount, &ret.Notes, &ret.ProcessedAt, &ret.CreatedAt, &ret.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &ret, nil
}

func (r *postgresRepository) Create(ctx context.Context, ret *Return) error {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("returns: generate id: %w", err)
	}

	now := time.Now().UTC()
	ret.ID = id
	ret.CreatedAt = now
	ret.UpdatedAt = now

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("returns: begin create: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := validateAgainstSale(ctx, tx, ret); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO returns (id, number, sale_id, customer_id, status, reason,
			total_refund_amount, notes, processed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		ret.ID, ret.Number, ret.SaleID, ret.CustomerID, ret.Status, ret.Reason,
		ret.TotalRefundAmount, ret.Notes, ret.ProcessedAt, ret.CreatedAt, ret.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("returns: insert: %w", err)
	}

	for i := range ret.Items {
		itemID, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("returns: generate item id: %w", err)
		}
		it := &ret.Items[i]
		it.ID = itemID
		it.ReturnID = ret.ID

		_, err = tx.Exec(ctx, `
			INSERT INTO return_items (id, return_id, sale_item_id, product_id, product_name,
				quantity, unit_price, condition, restocking_fee, refund_amount, restocked, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`,
			it.ID, it.ReturnID, it.SaleItemID, it.ProductID, it.ProductName,
			it.Quantity, it.UnitPrice, it.Condition, it.RestockingFee, it.RefundAmount, it.Restocked, i,
		)
		if err != nil {
			return fmt.Errorf("returns: insert item for sale item %s: %w", it.SaleItemID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("returns: commit create: %w", err)
	}
	return nil
}

// validateAgainstSale locks the sale row and checks every return line
// against quantity - returned_quantity on its sale item. Pending returns do
// not reserve quantity; the same check runs again when the return is
// processed.
func validateAgainstSale(ctx context.Context, tx pgx.Tx, ret *Return) error {
	var status sale.Status
	err := tx.QueryRow(ctx, `SELECT status FROM sales WHERE id = $1 FOR UPDATE`, ret.SaleID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("returns: sale %s: %w", ret.SaleID, sale.ErrSaleNotFound)
		}
		return fmt.Errorf("returns: lock sale %s: %w", ret.SaleID, err)
	}
	if status != sale.StatusCompleted {
		return ErrSaleNotReturnable
	}

	for i := range ret.Items {
		it := &ret.Items[i]

		var quantity, returned int
		err := tx.QueryRow(ctx,
			`SELECT quantity, returned_quantity FROM sale_items WHERE id = $1 AND sale_id = $2`,
			it.SaleItemID, ret.SaleID,
		).Scan(&quantity, &returned)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: sale item %s does not belong to sale %s",
					ErrValidation, it.SaleItemID, ret.SaleID)
			}
			return fmt.Errorf("returns: select sale item %s: %w", it.SaleItemID, err)
		}

		if available := quantity - returned; it.Quantity > available {
			return &OverReturnError{SaleItemID: it.SaleItemID, Requested: it.Quantity, Available: available}
		}
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Return, error) {
	query := `SELECT ` + returnColumns + ` FROM returns WHERE id = $1`

	ret, err := scanReturn(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReturnNotFound
		}
		return nil, fmt.Errorf("returns: select %s: %w", id, err)
	}
	if err := loadItems(ctx, r.db, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (r *postgresRepository) GetByNumber(ctx context.Context, number string) (*Return, error) {
	query := `SELECT ` + returnColumns + ` FROM returns WHERE number = $1`

	ret, err := scanReturn(r.db.QueryRow(ctx, query, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReturnNotFound
		}
		return nil, fmt.Errorf("returns: select by number %q: %w", number, err)
	}
	if err := loadItems(ctx, r.db, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (r *postgresRepository) List(ctx context.Context, filter ListFilter) ([]Return, error) {
	query := `SELECT ` + returnColumns + ` FROM returns`
	var (
		conds []string
		args  []any
	)
	if filter.SaleID != nil {
		args = append(args, *filter.SaleID)
		conds = append(conds, "sale_id = $"+strconv.Itoa(len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, "status = $"+strconv.Itoa(len(args)))
	}
	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}
	query += " ORDER BY created_at DESC"
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
		return nil, fmt.Errorf("returns: list: %w", err)
	}
	defer rows.Close()

	out := make([]Return, 0)
	for rows.Next() {
		ret, err := scanReturn(rows)
		if err != nil {
			return nil, fmt.Errorf("returns: scan: %w", err)
		}
		out = append(out, *ret)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("returns: iterate: %w", err)
	}
	return out, nil
}

func (r *postgresRepository) Transition(ctx context.Context, id uuid.UUID, target Status) (*Return, error) {
	if target == StatusRefunded || target == StatusExchanged {
		return nil, fmt.Errorf("%w: %s requires processing", ErrValidation, target)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("returns: begin transition: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ret, err := lockReturn(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !ret.Status.CanTransitionTo(target) {
		return nil, &InvalidTransitionError{From: ret.Status, To: target}
	}

	now := time.Now().UTC()
	_, err = tx.Exec(ctx,
		`UPDATE returns SET status = $1, updated_at = $2 WHERE id = $3`,
		target, now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("returns: transition %s to %s: %w", id, target, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("returns: commit transition: %w", err)
	}

	ret.Status = target
	ret.UpdatedAt = now
	return ret, nil
}

func (r *postgresRepository) Process(ctx context.Context, id uuid.UUID, outcome Status) (*Return, error) {
	if outcome != StatusRefunded && outcome != StatusExchanged {
		return nil, fmt.Errorf("%w: processing outcome must be %s or %s",
			ErrValidation, StatusRefunded, StatusExchanged)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("returns: begin process: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ret, err := lockReturn(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !ret.Status.CanTransitionTo(outcome) {
		return nil, &InvalidTransitionError{From: ret.Status, To: outcome}
	}

	if err := validateAgainstSale(ctx, tx, ret); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	for i := range ret.Items {
		it := &ret.Items[i]
		_, err = tx.Exec(ctx, `
			UPDATE sale_items
			SET returned_quantity = returned_quantity + $1
			WHERE id = $2
		`, it.Quantity, it.SaleItemID)
		if err != nil {
			return nil, fmt.Errorf("returns: bump returned quantity on sale item %s: %w", it.SaleItemID, err)
		}
	}

	if err := restock(ctx, tx, ret, now); err != nil {
		return nil, err
	}

	if outcome == StatusRefunded {
		if err := updateSalePaymentStatus(ctx, tx, ret.SaleID, now); err != nil {
			return nil, err
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE returns SET status = $1, processed_at = $2, updated_at = $2 WHERE id = $3`,
		outcome, now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("returns: finalize %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("returns: commit process: %w", err)
	}

	ret.Status = outcome
	ret.ProcessedAt = &now
	ret.UpdatedAt = now
	for i := range ret.Items {
		if ret.Items[i].Condition.CanBeRestocked() {
			ret.Items[i].Restocked = true
		}
	}
	return ret, nil
}

// restock credits sellable units back to their products and records the
// movements. Products are locked in a fixed order.
func restock(ctx context.Context, tx pgx.Tx, ret *Return, now time.Time) error {
	restockable := ret.RestockableQuantities()
	if len(restockable) == 0 {
		return nil
	}

	productIDs := make([]uuid.UUID, 0, len(restockable))
	for pid := range restockable {
		productIDs = append(productIDs, pid)
	}
	sort.Slice(productIDs, func(i, j int) bool {
		return bytes.Compare(productIDs[i].Bytes(), productIDs[j].Bytes()) < 0
	})

	for _, pid := range productIDs {
		var stock int
		err := tx.QueryRow(ctx,
			`SELECT stock_quantity FROM products WHERE id = $1 FOR UPDATE`, pid,
		).Scan(&stock)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("returns: product %s: %w", pid, catalog.ErrProductNotFound)
			}
			return fmt.Errorf("returns: lock product %s: %w", pid, err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE products
			SET stock_quantity = stock_quantity + $1, last_restocked_at = $2, updated_at = $2
			WHERE id = $3
		`, restockable[pid], now, pid)
		if err != nil {
			return fmt.Errorf("returns: restock product %s: %w", pid, err)
		}

		movementID, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("returns: generate movement id: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO stock_movements (id, product_id, delta, reason, reference_id, note, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, movementID, pid, restockable[pid], string(catalog.MovementReturnRestock), ret.ID, "return "+ret.Number, now)
		if err != nil {
			return fmt.Errorf("returns: insert stock movement for product %s: %w", pid, err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE return_items SET restocked = TRUE WHERE return_id = $1 AND product_id = $2
		`, ret.ID, pid)
		if err != nil {
			return fmt.Errorf("returns: mark items restocked for product %s: %w", pid, err)
		}
	}
	return nil
}

// updateSalePaymentStatus moves the sale to REFUNDED once every line is
// fully returned, PARTIALLY_REFUNDED otherwise.
func updateSalePaymentStatus(ctx context.Context, tx pgx.Tx, saleID uuid.UUID, now time.Time) error {
	var open int
	err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM sale_items WHERE sale_id = $1 AND returned_quantity < quantity`,
		saleID,
	).Scan(&open)
	if err != nil {
		return fmt.Errorf("returns: count open sale items for %s: %w", saleID, err)
	}

	status := sale.PaymentPartiallyRefunded
	if open == 0 {
		status = sale.PaymentRefunded
	}
	_, err = tx.Exec(ctx,
		`UPDATE sales SET payment_status = $1, updated_at = $2 WHERE id = $3`,
		status, now, saleID,
	)
	if err != nil {
		return fmt.Errorf("returns: update payment status for sale %s: %w", saleID, err)
	}
	return nil
}

func lockReturn(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*Return, error) {
	query := `SELECT ` + returnColumns + ` FROM returns WHERE id = $1 FOR UPDATE`

	ret, err := scanReturn(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReturnNotFound
		}
		return nil, fmt.Errorf("returns: lock %s: %w", id, err)
	}
	if err := loadItems(ctx, tx, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadItems(ctx context.Context, q querier, ret *Return) error {
	rows, err := q.Query(ctx,
		`SELECT `+itemColumns+` FROM return_items WHERE return_id = $1 ORDER BY position`, ret.ID)
	if err != nil {
		return fmt.Errorf("returns: load items for %s: %w", ret.ID, err)
	}
	defer rows.Close()

	ret.Items = make([]Item, 0)
	for rows.Next() {
		var it Item
		err := rows.Scan(
			&it.ID, &it.ReturnID, &it.SaleItemID, &it.ProductID, &it.ProductName,
			&it.Quantity, &it.UnitPrice, &it.Condition, &it.RestockingFee, &it.RefundAmount, &it.Restocked,
		)
		if err != nil {
			return fmt.Errorf("returns: scan item: %w", err)
		}
		ret.Items = append(ret.Items, it)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("returns: iterate items: %w", err)
	}
	return nil
}
