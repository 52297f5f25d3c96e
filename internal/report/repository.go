package report

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	SalesSummary(ctx context.Context, r DateRange) (*SalesSummary, error)
	TopProducts(ctx context.Context, r DateRange, limit int) ([]TopProduct, error)
	RevenueByCategory(ctx context.Context, r DateRange) ([]CategoryRevenue, error)
	LowStock(ctx context.Context) ([]LowStockEntry, error)
}

type sqlxRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &sqlxRepository{db: db}
}

// Only completed sales count toward revenue; pending sales may still be
// cancelled and cancelled ones never happened.
func (r *sqlxRepository) SalesSummary(ctx context.Context, dr DateRange) (*SalesSummary, error) {
	query := `
		SELECT COUNT(*) AS sale_count,
			COALESCE(SUM(total_amount), 0) AS total_revenue,
			COALESCE(SUM(cost_of_goods_sold), 0) AS total_cost,
			COALESCE(SUM(total_amount - cost_of_goods_sold), 0) AS gross_profit,
			COALESCE(AVG(total_amount), 0) AS average_order_value
		FROM sales
		WHERE status = 'COMPLETED' AND created_at >= $1 AND created_at < $2
	`
	var summary SalesSummary
	if err := r.db.GetContext(ctx, &summary, query, dr.From, dr.To); err != nil {
		return nil, fmt.Errorf("report: sales summary: %w", err)
	}
	summary.From = dr.From
	summary.To = dr.To
	return &summary, nil
}

func (r *sqlxRepository) TopProducts(ctx context.Context, dr DateRange, limit int) ([]TopProduct, error) {
	query := `
		SELECT si.product_id, si.product_name,
			SUM(si.quantity) AS units_sold,
			SUM(si.total_price) AS revenue
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		WHERE s.status = 'COMPLETED' AND s.created_at >= $1 AND s.created_at < $2
		GROUP BY si.product_id, si.product_name
		ORDER BY units_sold DESC, revenue DESC
		LIMIT $3
	`
	products := make([]TopProduct, 0)
	if err := r.db.SelectContext(ctx, &products, query, dr.From, dr.To, limit); err != nil {
		return nil, fmt.Errorf("report: top products: %w", err)
	}
	return products, nil
}

func (r *sqlxRepository) RevenueByCategory(ctx context.Context, dr DateRange) ([]CategoryRevenue, error) {
	query := `
		SELECT si.category,
			SUM(si.quantity) AS units_sold,
			SUM(si.total_price) AS revenue
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		WHERE s.status = 'COMPLETED' AND s.created_at >= $1 AND s.created_at < $2
		GROUP BY si.category
		ORDER BY revenue DESC
	`
	categories := make([]CategoryRevenue, 0)
	if err := r.db.SelectContext(ctx, &categories, query, dr.From, dr.To); err != nil {
		return nil, fmt.Errorf("report: revenue by category: %w", err)
	}
	return categories, nil
}

func (r *sqlxRepository) LowStock(ctx context.Context) ([]LowStockEntry, error) {
	query := `
		SELECT id AS product_id, sku, name, category,
			stock_quantity, min_stock_level, reorder_point,
			(stock_quantity <= reorder_point) AS needs_reorder
		FROM products
		WHERE active AND stock_quantity <= min_stock_level
		ORDER BY stock_quantity, sku
	`
	entries := make([]LowStockEntry, 0)
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("report: low stock: %w", err)
	}
	return entries, nil
}
