package promotion

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
	ErrPromotionNotFound   = errors.New("promotion not found")
	ErrCouponExists        = errors.New("coupon code already exists")
	ErrPromotionReferenced = errors.New("promotion is still referenced by sales")

	ErrValidation = errors.New("promotion validation failed")
)

type Repository interface {
	Create(ctx context.Context, promotion *Promotion) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Promotion, error)
	GetByCoupon(ctx context.Context, code string) (*Promotion, error)
	List(ctx context.Context, includeInactive bool) ([]Promotion, error)
	ListAutoApply(ctx context.Context, at time.Time) ([]Promotion, error)
	Update(ctx context.Context, promotion *Promotion) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

const promotionColumns = `id, name, description, coupon_code, type, discount_value,
	min_purchase_amount, max_discount_amount, eligibility, start_date, end_date,
	active, auto_apply, usage_limit, times_used, applicable_categories,
	created_at, updated_at`

func scanPromotion(row pgx.Row) (*Promotion, error) {
	var p Promotion
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.CouponCode, &p.Type, &p.DiscountValue,
		&p.MinPurchaseAmount, &p.MaxDiscountAmount, &p.Eligibility, &p.StartDate, &p.EndDate,
		&p.Active, &p.AutoApply, &p.UsageLimit, &p.TimesUsed, &p.ApplicableCategories,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postgresRepository) Create(ctx context.Context, promotion *Promotion) (uuid.UUID, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, fmt.Errorf("promotion: generate id: %w", err)
	}

	now := time.Now().UTC()
	promotion.ID = id
	promotion.CreatedAt = now
	promotion.UpdatedAt = now

	query := `
		INSERT INTO promotions (id, name, description, coupon_code, type, discount_value,
			min_purchase_amount, max_discount_amount, eligibility, start_date, end_date,
			active, auto_apply, usage_limit, times_used, applicable_categories,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err = r.db.Exec(ctx, query,
		promotion.ID, promotion.Name, promotion.Description, promotion.CouponCode,
		promotion.Type, promotion.DiscountValue, promotion.MinPurchaseAmount,
		promotion.MaxDiscountAmount, promotion.Eligibility,
		promotion.StartDate, promotion.EndDate, promotion.Active, promotion.AutoApply,
		promotion.UsageLimit, promotion.TimesUsed, promotion.ApplicableCategories,
		promotion.CreatedAt, promotion.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return uuid.Nil, ErrCouponExists
		}
		return uuid.Nil, fmt.Errorf("promotion: insert: %w", err)
	}

	return id, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE id = $1`

	promotion, err := scanPromotion(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPromotionNotFound
		}
		return nil, fmt.Errorf("promotion: select %s: %w", id, err)
	}
	return promotion, nil
}

func (r *postgresRepository) GetByCoupon(ctx context.Context, code string) (*Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE coupon_code = $1`

	promotion, err := scanPromotion(r.db.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPromotionNotFound
		}
		return nil, fmt.Errorf("promotion: select by coupon %q: %w", code, err)
	}
	return promotion, nil
}

func (r *postgresRepository) List(ctx context.Context, includeInactive bool) ([]Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions`
	if !includeInactive {
		query += ` WHERE active`
	}
	query += ` ORDER BY end_date`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("promotion: list: %w", err)
	}
	defer rows.Close()

	return collectPromotions(rows)
}

func (r *postgresRepository) ListAutoApply(ctx context.Context, at time.Time) ([]Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions
		WHERE active AND auto_apply
			AND start_date <= $1 AND end_date >= $1
			AND (usage_limit = 0 OR times_used < usage_limit)
		ORDER BY end_date`

	rows, err := r.db.Query(ctx, query, at)
	if err != nil {
		return nil, fmt.Errorf("promotion: list auto-apply: %w", err)
	}
	defer rows.Close()

	return collectPromotions(rows)
}

func collectPromotions(rows pgx.Rows) ([]Promotion, error) {
	promotions := make([]Promotion, 0)
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, fmt.Errorf("promotion: scan: %w", err)
		}
		promotions = append(promotions, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("promotion: iterate: %w", err)
	}
	return promotions, nil
}

func (r *postgresRepository) Update(ctx context.Context, promotion *Promotion) error {
	query := `
		UPDATE promotions
		SET name = $1, description = $2, coupon_code = $3, type = $4, discount_value = $5,
			min_purchase_amount = $6, max_discount_amount = $7, eligibility = $8,
			start_date = $9, end_date = $10, active = $11, auto_apply = $12,
			usage_limit = $13, applicable_categories = $14, updated_at = $15
		WHERE id = $16
	`
	cmdTag, err := r.db.Exec(ctx, query,
		promotion.Name, promotion.Description, promotion.CouponCode, promotion.Type,
		promotion.DiscountValue, promotion.MinPurchaseAmount,
		promotion.MaxDiscountAmount, promotion.Eligibility,
		promotion.StartDate, promotion.EndDate, promotion.Active, promotion.AutoApply,
		promotion.UsageLimit, promotion.ApplicableCategories,
		time.Now().UTC(), promotion.ID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrCouponExists
		}
		return fmt.Errorf("promotion: update %s: %w", promotion.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrPromotionNotFound
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM promotions WHERE id = $1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrPromotionReferenced
		}
		return fmt.Errorf("promotion: delete %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrPromotionNotFound
	}
	return nil
}
