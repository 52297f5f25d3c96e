package sale

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
	"github.com/hamza-damra/sales-management-backend/internal/promotion"
)

var (
	ErrSaleNotFound = errors.New("sale not found")

	// ErrSaleNotModifiable guards every mutation of a sale in a terminal
	// status. Totals, items and promotions freeze once the sale completes
	// or is cancelled.
	ErrSaleNotModifiable = errors.New("sale is in a terminal status and cannot be modified")

	// ErrPromotionAlreadyApplied enforces the no-stacking policy: one
	// promotion per sale, removal before replacement.
	ErrPromotionAlreadyApplied = errors.New("sale already has a promotion applied")

	ErrPromotionNotApplied = errors.New("promotion is not applied to this sale")

	// ErrNoEligiblePromotion is returned by auto-apply when no active
	// auto-apply promotion passes the eligibility gates for the sale.
	ErrNoEligiblePromotion = errors.New("no eligible promotion for this sale")

	ErrValidation = errors.New("sale validation failed")
)

type ListFilter struct {
	Status     Status
	CustomerID *uuid.UUID
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}

type Repository interface {
	// Create persists the sale, its items and any pre-applied promotions,
	// and decrements stock for every line, all in one transaction. Stock
	// rows are locked in a fixed order; the whole transaction aborts on the
	// first insufficient line.
	Create(ctx context.Context, s *Sale) error
	GetByID(ctx context.Context, id uuid.UUID) (*Sale, error)
	GetByNumber(ctx context.Context, number string) (*Sale, error)
	// List returns sale headers only; items and promotions are loaded by Get.
	List(ctx context.Context, filter ListFilter) ([]Sale, error)
	// Complete finalizes a pending sale: product sales counters and the
	// customer's purchase, spend and loyalty balances move in the same
	// transaction as the status flip.
	Complete(ctx context.Context, id uuid.UUID) (*Sale, error)
	// Cancel restores the stock decremented at creation by re-reading the
	// sale's own items, and releases promotion usage.
	Cancel(ctx context.Context, id uuid.UUID) (*Sale, error)
	MarkPaid(ctx context.Context, id uuid.UUID) (*Sale, error)
	UpdateDelivery(ctx context.Context, id uuid.UUID, status DeliveryStatus) (*Sale, error)
	// ApplyPromotion persists the applied-promotion record, bumps the
	// promotion's usage and stores the recomputed totals carried on s.
	ApplyPromotion(ctx context.Context, s *Sale, applied *AppliedPromotion) error
	// RemovePromotion deletes the record, releases usage and stores the
	// recomputed totals carried on s.
	RemovePromotion(ctx context.Context, s *Sale, promotionID uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const saleColumns = `id, number, customer_id, status, payment_status, payment_method, payment_date,
	delivery_status, subtotal, discount_amount, promotion_discount_amount, tax_amount, shipping_cost,
	total_amount, cost_of_goods_sold, profit_margin, notes, created_at, updated_at`

const itemColumns = `id, sale_id, product_id, product_name, category, quantity,
	unit_price, cost_price, discount_percent, discount_amount, tax_percent, tax_amount,
	subtotal, total_price, returned_quantity`

const appliedColumns = `id, sale_id, promotion_id, promotion_name, coupon_code,
	discount_amount, discount_percent, original_amount, final_amount,
	free_shipping, auto_applied, applied_at`

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func scanSale(row pgx.Row) (*Sale, error) {
	var s Sale
	err := row.Scan(
		&s.ID, &s.Number, &s.CustomerID, &s.Status, &s.PaymentStatus, &s.PaymentMethod, &s.PaymentDate,
		&s.DeliveryStatus, &s.Subtotal, &s.DiscountAmount, &s.PromotionDiscountAmount, &s.TaxAmount, &s.ShippingCost,
		&s.TotalAmount, &s.CostOfGoodsSold, &s.ProfitMargin, &s.Notes, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// lineQuantities aggregates item quantities per product and returns the
// product ids in byte order. Locking rows in one fixed order keeps
// concurrent sales over the same products from deadlocking.
func lineQuantities(items []SaleItem) ([]uuid.UUID, map[uuid.UUID]int) {
	quantities := make(map[uuid.UUID]int, len(items))
	ids := make([]uuid.UUID, 0, len(items))
	for _, it := range items {
		if _, seen := quantities[it.ProductID]; !seen {
			ids = append(ids, it.ProductID)
		}
		quantities[it.ProductID] += it.Quantity
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i].Bytes(), ids[j].Bytes()) < 0
	})
	return ids, quantities
}

func (r *postgresRepository) Create(ctx context.Context, s *Sale) error {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("sale: generate id: %w", err)
	}

	now := time.Now().UTC()
	s.ID = id
	s.CreatedAt = now
	s.UpdatedAt = now

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("sale: begin create: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ids, quantities := lineQuantities(s.Items)
	for _, pid := range ids {
		var available int
		var active bool
		err := tx.QueryRow(ctx,
			`SELECT stock_quantity, active FROM products WHERE id = $1 FOR UPDATE`, pid,
		).Scan(&available, &active)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("sale: product %s: %w", pid, catalog.ErrProductNotFound)
			}
			return fmt.Errorf("sale: lock product %s: %w", pid, err)
		}
		if !active {
			return fmt.Errorf("%w: product %s is not active", ErrValidation, pid)
		}
		if quantities[pid] > available {
			return &catalog.InsufficientStockError{
				ProductID: pid,
				Requested: quantities[pid],
				Available: available,
			}
		}

		_, err = tx.Exec(ctx,
			`UPDATE products SET stock_quantity = stock_quantity - $1, updated_at = $2 WHERE id = $3`,
			quantities[pid], now, pid,
		)
		if err != nil {
			return fmt.Errorf("sale: decrement stock for product %s: %w", pid, err)
		}
		if err := insertMovement(ctx, tx, pid, -quantities[pid], catalog.MovementSale, s.ID, "sale "+s.Number, now); err != nil {
			return err
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO sales (id, number, customer_id, status, payment_status, payment_method, payment_date,
			delivery_status, subtotal, discount_amount, promotion_discount_amount, tax_amount, shipping_cost,
			total_amount, cost_of_goods_sold, profit_margin, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`,
		s.ID, s.Number, s.CustomerID, s.Status, s.PaymentStatus, s.PaymentMethod, s.PaymentDate,
		s.DeliveryStatus, s.Subtotal, s.DiscountAmount, s.PromotionDiscountAmount, s.TaxAmount, s.ShippingCost,
		s.TotalAmount, s.CostOfGoodsSold, s.ProfitMargin, s.Notes, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("sale: duplicate sale number %q: %w", s.Number, err)
		}
		return fmt.Errorf("sale: insert: %w", err)
	}

	for i := range s.Items {
		itemID, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("sale: generate item id: %w", err)
		}
		it := &s.Items[i]
		it.ID = itemID
		it.SaleID = s.ID

		_, err = tx.Exec(ctx, `
			INSERT INTO sale_items (id, sale_id, product_id, product_name, category, quantity,
				unit_price, cost_price, discount_percent, discount_amount, tax_percent, tax_amount,
				subtotal, total_price, returned_quantity, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		`,
			it.ID, it.SaleID, it.ProductID, it.ProductName, it.Category, it.Quantity,
			it.UnitPrice, it.CostPrice, it.DiscountPercent, it.DiscountAmount, it.TaxPercent, it.TaxAmount,
			it.Subtotal, it.TotalPrice, it.ReturnedQuantity, i,
		)
		if err != nil {
			return fmt.Errorf("sale: insert item for product %s: %w", it.ProductID, err)
		}
	}

	for i := range s.Promotions {
		if err := insertApplied(ctx, tx, s.ID, &s.Promotions[i]); err != nil {
			return err
		}
		if err := bumpPromotionUsage(ctx, tx, s.Promotions[i].PromotionID, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("sale: commit create: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`

	s, err := scanSale(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSaleNotFound
		}
		return nil, fmt.Errorf("sale: select %s: %w", id, err)
	}
	if err := r.loadChildren(ctx, r.db, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *postgresRepository) GetByNumber(ctx context.Context, number string) (*Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE number = $1`

	s, err := scanSale(r.db.QueryRow(ctx, query, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSaleNotFound
		}
		return nil, fmt.Errorf("sale: select by number %q: %w", number, err)
	}
	if err := r.loadChildren(ctx, r.db, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *postgresRepository) List(ctx context.Context, filter ListFilter) ([]Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales`
	var (
		conds []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		conds = append(conds, "customer_id = $"+strconv.Itoa(len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conds = append(conds, "created_at >= $"+strconv.Itoa(len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conds = append(conds, "created_at < $"+strconv.Itoa(len(args)))
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
		return nil, fmt.Errorf("sale: list: %w", err)
	}
	defer rows.Close()

	sales := make([]Sale, 0)
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("sale: scan: %w", err)
		}
		sales = append(sales, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sale: iterate: %w", err)
	}
	return sales, nil
}

func (r *postgresRepository) Complete(ctx context.Context, id uuid.UUID) (*Sale, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("sale: begin complete: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	s, err := r.lockSale(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !s.Status.CanTransitionTo(StatusCompleted) {
		return nil, &InvalidTransitionError{From: s.Status, To: StatusCompleted}
	}

	now := time.Now().UTC()
	_, err = tx.Exec(ctx,
		`UPDATE sales SET status = $1, updated_at = $2 WHERE id = $3`,
		StatusCompleted, now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("sale: mark completed: %w", err)
	}

	for _, it := range s.Items {
		_, err = tx.Exec(ctx, `
			UPDATE products
			SET total_sold = total_sold + $1, total_revenue = total_revenue + $2, updated_at = $3
			WHERE id = $4
		`, it.Quantity, it.TotalPrice, now, it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("sale: update sales counters for product %s: %w", it.ProductID, err)
		}
	}

	if s.CustomerID != nil {
		_, err = tx.Exec(ctx, `
			UPDATE customers
			SET total_purchases = total_purchases + 1,
				total_spent = total_spent + $1,
				loyalty_points = loyalty_points + $2,
				updated_at = $3
			WHERE id = $4
		`, s.TotalAmount, s.LoyaltyPointsEarned(), now, *s.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("sale: update customer counters: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("sale: commit complete: %w", err)
	}

	s.Status = StatusCompleted
	s.UpdatedAt = now
	return s, nil
}

func (r *postgresRepository) Cancel(ctx context.Context, id uuid.UUID) (*Sale, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("sale: begin cancel: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	s, err := r.lockSale(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if !s.Status.CanTransitionTo(StatusCancelled) {
		return nil, &InvalidTransitionError{From: s.Status, To: StatusCancelled}
	}

	now := time.Now().UTC()

	// Restoration re-reads the sale's own items; the ledger keeps no
	// separate memory of what this sale took.
	ids, quantities := lineQuantities(s.Items)
	for _, pid := range ids {
		_, err = tx.Exec(ctx, `
			UPDATE products
			SET stock_quantity = stock_quantity + $1, last_restocked_at = $2, updated_at = $2
			WHERE id = $3
		`, quantities[pid], now, pid)
		if err != nil {
			return nil, fmt.Errorf("sale: restore stock for product %s: %w", pid, err)
		}
		if err := insertMovement(ctx, tx, pid, quantities[pid], catalog.MovementSaleCancelled, s.ID, "sale "+s.Number+" cancelled", now); err != nil {
			return nil, err
		}
	}

	for _, ap := range s.Promotions {
		_, err = tx.Exec(ctx,
			`UPDATE promotions SET times_used = GREATEST(times_used - 1, 0), updated_at = $1 WHERE id = $2`,
			now, ap.PromotionID,
		)
		if err != nil {
			return nil, fmt.Errorf("sale: release promotion usage: %w", err)
		}
	}

	_, err = tx.Exec(ctx,
		`UPDATE sales SET status = $1, updated_at = $2 WHERE id = $3`,
		StatusCancelled, now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("sale: mark cancelled: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("sale: commit cancel: %w", err)
	}

	s.Status = StatusCancelled
	s.UpdatedAt = now
	return s, nil
}

func (r *postgresRepository) MarkPaid(ctx context.Context, id uuid.UUID) (*Sale, error) {
	now := time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE sales SET payment_status = $1, payment_date = $2, updated_at = $2 WHERE id = $3`,
		PaymentPaid, now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("sale: mark paid: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, ErrSaleNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *postgresRepository) UpdateDelivery(ctx context.Context, id uuid.UUID, status DeliveryStatus) (*Sale, error) {
	now := time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE sales SET delivery_status = $1, updated_at = $2 WHERE id = $3`,
		status, now, id,
	)
	if err != nil {
		return nil, fmt.Errorf("sale: update delivery status: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return nil, ErrSaleNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *postgresRepository) ApplyPromotion(ctx context.Context, s *Sale, applied *AppliedPromotion) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("sale: begin apply promotion: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := r.lockSale(ctx, tx, s.ID)
	if err != nil {
		return err
	}
	if current.Status.IsTerminal() {
		return ErrSaleNotModifiable
	}

	if err := insertApplied(ctx, tx, s.ID, applied); err != nil {
		return err
	}
	now := time.Now().UTC()
	if err := bumpPromotionUsage(ctx, tx, applied.PromotionID, now); err != nil {
		return err
	}
	if err := updateTotals(ctx, tx, s, now); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("sale: commit apply promotion: %w", err)
	}
	return nil
}

func (r *postgresRepository) RemovePromotion(ctx context.Context, s *Sale, promotionID uuid.UUID) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("sale: begin remove promotion: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := r.lockSale(ctx, tx, s.ID)
	if err != nil {
		return err
	}
	if current.Status.IsTerminal() {
		return ErrSaleNotModifiable
	}

	cmdTag, err := tx.Exec(ctx,
		`DELETE FROM sale_promotions WHERE sale_id = $1 AND promotion_id = $2`,
		s.ID, promotionID,
	)
	if err != nil {
		return fmt.Errorf("sale: delete applied promotion: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrPromotionNotApplied
	}

	now := time.Now().UTC()
	_, err = tx.Exec(ctx,
		`UPDATE promotions SET times_used = GREATEST(times_used - 1, 0), updated_at = $1 WHERE id = $2`,
		now, promotionID,
	)
	if err != nil {
		return fmt.Errorf("sale: release promotion usage: %w", err)
	}
	if err := updateTotals(ctx, tx, s, now); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("sale: commit remove promotion: %w", err)
	}
	return nil
}

// lockSale reads the sale header under FOR UPDATE and loads items and
// promotions so status guards and stock restoration see a stable snapshot.
func (r *postgresRepository) lockSale(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1 FOR UPDATE`

	s, err := scanSale(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSaleNotFound
		}
		return nil, fmt.Errorf("sale: lock %s: %w", id, err)
	}
	if err := r.loadChildren(ctx, tx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *postgresRepository) loadChildren(ctx context.Context, q querier, s *Sale) error {
	rows, err := q.Query(ctx,
		`SELECT `+itemColumns+` FROM sale_items WHERE sale_id = $1 ORDER BY position`, s.ID)
	if err != nil {
		return fmt.Errorf("sale: load items for %s: %w", s.ID, err)
	}
	defer rows.Close()

	s.Items = make([]SaleItem, 0)
	for rows.Next() {
		var it SaleItem
		err := rows.Scan(
			&it.ID, &it.SaleID, &it.ProductID, &it.ProductName, &it.Category, &it.Quantity,
			&it.UnitPrice, &it.CostPrice, &it.DiscountPercent, &it.DiscountAmount, &it.TaxPercent, &it.TaxAmount,
			&it.Subtotal, &it.TotalPrice, &it.ReturnedQuantity,
		)
		if err != nil {
			return fmt.Errorf("sale: scan item: %w", err)
		}
		s.Items = append(s.Items, it)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sale: iterate items: %w", err)
	}
	rows.Close()

	promoRows, err := q.Query(ctx,
		`SELECT `+appliedColumns+` FROM sale_promotions WHERE sale_id = $1 ORDER BY applied_at`, s.ID)
	if err != nil {
		return fmt.Errorf("sale: load promotions for %s: %w", s.ID, err)
	}
	defer promoRows.Close()

	s.Promotions = make([]AppliedPromotion, 0)
	for promoRows.Next() {
		var ap AppliedPromotion
		err := promoRows.Scan(
			&ap.ID, &ap.SaleID, &ap.PromotionID, &ap.PromotionName, &ap.CouponCode,
			&ap.DiscountAmount, &ap.DiscountPercent, &ap.OriginalAmount, &ap.FinalAmount,
			&ap.FreeShipping, &ap.AutoApplied, &ap.AppliedAt,
		)
		if err != nil {
			return fmt.Errorf("sale: scan applied promotion: %w", err)
		}
		s.Promotions = append(s.Promotions, ap)
	}
	if err := promoRows.Err(); err != nil {
		return fmt.Errorf("sale: iterate applied promotions: %w", err)
	}
	return nil
}

func updateTotals(ctx context.Context, tx pgx.Tx, s *Sale, now time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE sales
		SET subtotal = $1, discount_amount = $2, promotion_discount_amount = $3,
			tax_amount = $4, shipping_cost = $5, total_amount = $6,
			cost_of_goods_sold = $7, profit_margin = $8, updated_at = $9
		WHERE id = $10
	`,
		s.Subtotal, s.DiscountAmount, s.PromotionDiscountAmount,
		s.TaxAmount, s.ShippingCost, s.TotalAmount,
		s.CostOfGoodsSold, s.ProfitMargin, now, s.ID,
	)
	if err != nil {
		return fmt.Errorf("sale: update totals for %s: %w", s.ID, err)
	}
	return nil
}

func insertApplied(ctx context.Context, tx pgx.Tx, saleID uuid.UUID, ap *AppliedPromotion) error {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("sale: generate applied promotion id: %w", err)
	}
	ap.ID = id
	ap.SaleID = saleID

	_, err = tx.Exec(ctx, `
		INSERT INTO sale_promotions (id, sale_id, promotion_id, promotion_name, coupon_code,
			discount_amount, discount_percent, original_amount, final_amount,
			free_shipping, auto_applied, applied_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		ap.ID, ap.SaleID, ap.PromotionID, ap.PromotionName, ap.CouponCode,
		ap.DiscountAmount, ap.DiscountPercent, ap.OriginalAmount, ap.FinalAmount,
		ap.FreeShipping, ap.AutoApplied, ap.AppliedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrPromotionAlreadyApplied
		}
		return fmt.Errorf("sale: insert applied promotion: %w", err)
	}
	return nil
}

// bumpPromotionUsage increments times_used with the limit re-checked in SQL,
// so two concurrent redemptions cannot race past the last slot.
func bumpPromotionUsage(ctx context.Context, tx pgx.Tx, promotionID uuid.UUID, now time.Time) error {
	cmdTag, err := tx.Exec(ctx, `
		UPDATE promotions
		SET times_used = times_used + 1, updated_at = $1
		WHERE id = $2 AND (usage_limit = 0 OR times_used < usage_limit)
	`, now, promotionID)
	if err != nil {
		return fmt.Errorf("sale: increment promotion usage: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return promotion.ErrUsageLimitReached
	}
	return nil
}

func insertMovement(ctx context.Context, tx pgx.Tx, productID uuid.UUID, delta int, reason catalog.MovementReason, referenceID uuid.UUID, note string, at time.Time) error {
	id, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("sale: generate movement id: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO stock_movements (id, product_id, delta, reason, reference_id, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, id, productID, delta, string(reason), referenceID, note, at)
	if err != nil {
		return fmt.Errorf("sale: insert stock movement for product %s: %w", productID, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
