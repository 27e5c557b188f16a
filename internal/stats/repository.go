package stats

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PgRepository runs the aggregate queries against PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PgRepository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// SalesSummary aggregates sold units and revenue per product.
func (r *PgRepository) SalesSummary(ctx context.Context, filter SummaryFilter) (Summary, error) {
	where := " WHERE 1=1"
	args := []any{}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += " AND s.created_at >= $" + strconv.Itoa(len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += " AND s.created_at < $" + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, `SELECT si.product_id, p.name, SUM(si.quantity), SUM(si.line_total)
FROM sale_items si
JOIN sales s ON s.id = si.sale_id
JOIN products p ON p.id = si.product_id`+where+`
GROUP BY si.product_id, p.name
ORDER BY SUM(si.line_total) DESC`, args...)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()

	summary := Summary{Items: []ProductSales{}, Revenue: decimal.Zero}
	for rows.Next() {
		var ps ProductSales
		if err := rows.Scan(&ps.ProductID, &ps.Name, &ps.Units, &ps.Revenue); err != nil {
			return Summary{}, err
		}
		summary.Revenue = summary.Revenue.Add(ps.Revenue)
		summary.Items = append(summary.Items, ps)
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}

	err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales s`+where, args...).Scan(&summary.Sales)
	return summary, err
}

// SalesForDay aggregates one calendar day of sales per product.
func (r *PgRepository) SalesForDay(ctx context.Context, day time.Time) (DayBreakdown, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	rows, err := r.pool.Query(ctx, `SELECT si.product_id, p.name, SUM(si.quantity), SUM(si.line_total)
FROM sale_items si
JOIN sales s ON s.id = si.sale_id
JOIN products p ON p.id = si.product_id
WHERE s.created_at >= $1 AND s.created_at < $2
GROUP BY si.product_id, p.name
ORDER BY p.name ASC`, start, end)
	if err != nil {
		return DayBreakdown{}, err
	}
	defer rows.Close()

	breakdown := DayBreakdown{Date: start.Format("2006-01-02"), Items: []ProductSales{}, Total: decimal.Zero}
	for rows.Next() {
		var ps ProductSales
		if err := rows.Scan(&ps.ProductID, &ps.Name, &ps.Units, &ps.Revenue); err != nil {
			return DayBreakdown{}, err
		}
		breakdown.Total = breakdown.Total.Add(ps.Revenue)
		breakdown.Items = append(breakdown.Items, ps)
	}
	return breakdown, rows.Err()
}
