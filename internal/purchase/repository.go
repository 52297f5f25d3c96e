package purchase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hamza-damra/sales-management-backend/internal/catalog"
)

var (
	ErrOrderNotFound = errors.New("purchase order not found")

	// ErrOrderNotModifiable guards line and amount edits once the order
	// leaves PENDING.
	ErrOrderNotModifiable = errors.New("purchase order can no longer be modified")

	// ErrNotReceivable rejects receipts against an order that is not in
	// transit.
	ErrNotReceivable = errors.New("purchase order is not awaiting delivery")

	ErrValidation = errors.New("purchase order validation failed")
)

// Receipt records delivered units against one order line.
type Receipt struct {
	ItemID   uuid.UUID `json:"itemId"`
	Quantity int       `json:"quantity"`
}

type ListFilter struct {
	Status     Status
	SupplierID *uuid.UUID
	Limit      int
	Offset     int
}

type Repository interface {
	Create(ctx context.Context, po *PurchaseOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)
	GetByNumber(ctx context.Context, number string) (*PurchaseOrder, error)
	// List returns order headers only; items are loaded by Get.
	List(ctx context.Context, filter ListFilter) ([]PurchaseOrder, error)
	// Update replaces the order's lines and amounts. Only PENDING orders
	// may change.
	Update(ctx context.Context, po *PurchaseOrder) error
	Transition(ctx context.Context, id uuid.UUID, target Status) (*PurchaseOrder, error)
	// Receive clamps each receipt to the line's open quantity, credits
	// stock for what was accepted and flips the order to DELIVERED once
	// every line is complete, all in one transaction.
	Receive(ctx context.Context, id uuid.UUID, receipts []Receipt) (*PurchaseOrder, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const orderColumns = `id, number, supplier_id, status, subtotal, tax_rate, tax_amount,
	shipping_cost, discount_amount, total_amount, expected_delivery, delivered_at,
	notes, created_at, updated_at`

const itemColumns = `id, order_id, product_id, product_name, quantity, unit_cost,
	total_price, received_quantity`

func scanOrder(row pgx.Row) (*PurchaseOrder, error) {
	var po PurchaseOrder
	err := row.Scan(
		&po.ID, &po.Number, &po.SupplierID, &po.Status, &po.Subtotal, &po.TaxRate, &po.TaxAmount,
		&po.ShippingCost, &po.DiscountAmount, &po.TotalAmount, &po.ExpectedDelivery, &po.DeliveredAt,
		&po.Notes, &po.CreatedAt, &po.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *postgresRepository) Create(ctx context.Context, po *PurchaseOrder) error {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("purchase: generate id: %w", err)
	}

	now := time.Now().UTC()
	po.ID = id
	po.CreatedAt = now
	po.UpdatedAt = now

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("purchase: begin create: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO purchase_orders (id, number, supplier_id, status, subtotal, tax_rate, tax_amount,
			shipping_cost, discount_amount, total_amount, expected_delivery, delivered_at,
			notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		po.ID, po.Number, po.SupplierID, po.Status, po.Subtotal, po.TaxRate, po.TaxAmount,
		po.ShippingCost, po.DiscountAmount, po.TotalAmount, po.ExpectedDelivery, po.DeliveredAt,
		po.Notes, po.CreatedAt, po.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: order references a missing supplier", ErrValidation)
		}
		return fmt.Errorf("purchase: insert: %w", err)
	}

	if err := insertItems(ctx, tx, po); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("purchase: commit create: %w", err)
	}
	return nil
}

func insertItems(ctx context.Context, tx pgx.Tx, po *PurchaseOrder) error {
	for i := range po.Items {
		itemID, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("purchase: generate item id: %w", err)
		}
		it := &po.Items[i]
		it.ID = itemID
		it.OrderID = po.ID

		_, err = tx.Exec(ctx, `
			INSERT INTO purchase_order_items (id, order_id, product_id, product_name, quantity,
				unit_cost, total_price, received_quantity, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			it.ID, it.OrderID, it.ProductID, it.ProductName, it.Quantity,
			it.UnitCost, it.TotalPrice, it.ReceivedQuantity, i,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: item references a missing product", ErrValidation)
			}
			return fmt.Errorf("purchase: insert item for product %s: %w", it.ProductID, err)
		}
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM purchase_orders WHERE id = $1`

	po, err := scanOrder(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("purchase: select %s: %w", id, err)
	}
	if err := loadItems(ctx, r.db, po); err != nil {
		return nil, err
	}
	return po, nil
}

func (r *postgresRepository) GetByNumber(ctx context.Context, number string) (*PurchaseOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM purchase_orders WHERE number = $1`

	po, err := scanOrder(r.db.QueryRow(ctx, query, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("purchase: select by number %q: %w", number, err)
	}
	if err := loadItems(ctx, r.db, po); err != nil {
		return nil, err
	}
	return po, nil
}

func (r *postgresRepository) List(ctx context.Context, filter ListFilter) ([]PurchaseOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM purchase_orders`
	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.SupplierID != nil {
		args = append(args, *filter.SupplierID)
		conds = append(conds, "supplier_id = $"+strconv.Itoa(len(args)))
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
		return nil, fmt.Errorf("purchase: list: %w", err)
	}
	defer rows.Close()

	orders := make([]PurchaseOrder, 0)
	for rows.Next() {
		po, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("purchase: scan: %w", err)
		}
		orders = append(orders, *po)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("purchase: iterate: %w", err)
	}
	return orders, nil
}

func (r *postgresRepository) Update(ctx context.Context, po *PurchaseOrder) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("purchase: begin update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := lockOrder(ctx, tx, po.ID)
	if err != nil {
		return err
	}
	if !current.CanBeModified() {
		return ErrOrderNotModifiable
	}

	now := time.Now().UTC()
	_, err = tx.Exec(ctx, `
		UPDATE purchase_orders
		SET supplier_id = $1, subtotal = $2, tax_rate = $3, tax_amount = $4,
			shipping_cost = $5, discount_amount = $6, total_amount = $7,
			expected_delivery = $8, notes = $9, updated_at = $10
		WHERE id = $11
	`,
		po.SupplierID, po.Subtotal, po.TaxRate, po.TaxAmount,
		po.ShippingCost, po.DiscountAmount, po.TotalAmount,
		po.ExpectedDelivery, po.Notes, now, po.ID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: order references a missing supplier", ErrValidation)
		}
		return fmt.Errorf("purchase: update %s: %w", po.ID, err)
	}

	// Lines are replaced whole; a PENDING order has no received quantities
	// to preserve.
	if _, err := tx.Exec(ctx, `DELETE FROM purchase_order_items WHERE order_id = $1`, po.ID); err != nil {
		return fmt.Errorf("purchase: clear items for %s: %w", po.ID, err)
	}
	if err := insertItems(ctx, tx, po); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("purchase: commit update: %w", err)
	}
	po.UpdatedAt = now
	return nil
}

func (r *postgresRepository) Transition(ctx context.Context, id uuid.UUID, target Status) (*PurchaseOrder, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("purchase: begin transition: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	po, err := lockOrder(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !po.Status.CanTransitionTo(target) {
		return nil, &InvalidTransitionError{From: po.Status, To: target}
	}

	now := time.Now().UTC()
	var deliveredAt *time.Time
	if target == StatusDelivered {
		deliveredAt = &now
	} else {
		deliveredAt = po.DeliveredAt
	}

	_, err = tx.Exec(ctx,
		`UPDATE purchase_orders SET status = $1, delivered_at = $2, updated_at = $3 WHERE id = $4`,
		target, deliveredAt, now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("purchase: transition %s to %s: %w", id, target, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("purchase: commit transition: %w", err)
	}

	po.Status = target
	po.DeliveredAt = deliveredAt
	po.UpdatedAt = now
	return po, nil
}

func (r *postgresRepository) Receive(ctx context.Context, id uuid.UUID, receipts []Receipt) (*PurchaseOrder, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("purchase: begin receive: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	po, err := lockOrder(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if po.Status != StatusSent {
		return nil, ErrNotReceivable
	}

	itemsByID := make(map[uuid.UUID]*Item, len(po.Items))
	for i := range po.Items {
		itemsByID[po.Items[i].ID] = &po.Items[i]
	}

	now := time.Now().UTC()
	credited := make(map[uuid.UUID]int)
	for _, rc := range receipts {
		it, ok := itemsByID[rc.ItemID]
		if !ok {
			return nil, fmt.Errorf("%w: item %s is not part of this order", ErrValidation, rc.ItemID)
		}
		accepted := it.Receive(rc.Quantity)
		if accepted == 0 {
			continue
		}

		_, err = tx.Exec(ctx,
			`UPDATE purchase_order_items SET received_quantity = $1 WHERE id = $2`,
			it.ReceivedQuantity, it.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("purchase: update received quantity for item %s: %w", it.ID, err)
		}
		credited[it.ProductID] += accepted
	}

	// Credit stock per product in a fixed lock order.
	productIDs := make([]uuid.UUID, 0, len(credited))
	for pid := range credited {
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
				return nil, fmt.Errorf("purchase: product %s: %w", pid, catalog.ErrProductNotFound)
			}
			return nil, fmt.Errorf("purchase: lock product %s: %w", pid, err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE products
			SET stock_quantity = stock_quantity + $1, last_restocked_at = $2, updated_at = $2
			WHERE id = $3
		`, credited[pid], now, pid)
		if err != nil {
			return nil, fmt.Errorf("purchase: credit stock for product %s: %w", pid, err)
		}

		movementID, err := uuid.NewV4()
		if err != nil {
			return nil, fmt.Errorf("purchase: generate movement id: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO stock_movements (id, product_id, delta, reason, reference_id, note, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, movementID, pid, credited[pid], string(catalog.MovementPurchaseReceipt), po.ID, "purchase order "+po.Number, now)
		if err != nil {
			return nil, fmt.Errorf("purchase: insert stock movement for product %s: %w", pid, err)
		}
	}

	status := po.Status
	deliveredAt := po.DeliveredAt
	if po.IsFullyReceived() {
		status = StatusDelivered
		deliveredAt = &now
	}
	_, err = tx.Exec(ctx,
		`UPDATE purchase_orders SET status = $1, delivered_at = $2, updated_at = $3 WHERE id = $4`,
		status, deliveredAt, now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("purchase: finalize receive for %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("purchase: commit receive: %w", err)
	}

	po.Status = status
	po.DeliveredAt = deliveredAt
	po.UpdatedAt = now
	return po, nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("purchase: begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	po, err := lockOrder(ctx, tx, id)
	if err != nil {
		return err
	}
	if !po.CanBeModified() {
		return ErrOrderNotModifiable
	}

	if _, err := tx.Exec(ctx, `DELETE FROM purchase_orders WHERE id = $1`, id); err != nil {
		return fmt.Errorf("purchase: delete %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("purchase: commit delete: %w", err)
	}
	return nil
}

func lockOrder(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*PurchaseOrder, error) {
	query := `SELECT ` + orderColumns + ` FROM purchase_orders WHERE id = $1 FOR UPDATE`

	po, err := scanOrder(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("purchase: lock %s: %w", id, err)
	}
	if err := loadItems(ctx, tx, po); err != nil {
		return nil, err
	}
	return po, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadItems(ctx context.Context, q querier, po *PurchaseOrder) error {
	rows, err := q.Query(ctx,
		`SELECT `+itemColumns+` FROM purchase_order_items WHERE order_id = $1 ORDER BY position`, po.ID)
	if err != nil {
		return fmt.Errorf("purchase: load items for %s: %w", po.ID, err)
	}
	defer rows.Close()

	po.Items = make([]Item, 0)
	for rows.Next() {
		var it Item
		err := rows.Scan(
			&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity,
			&it.UnitCost, &it.TotalPrice, &it.ReceivedQuantity,
		)
		if err != nil {
			return fmt.Errorf("purchase: scan item: %w", err)
		}
		po.Items = append(po.Items, it)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("purchase: iterate items: %w", err)
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}
