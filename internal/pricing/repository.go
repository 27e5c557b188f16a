package pricing

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists price history in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends a price change.
func (r *Repository) Insert(ctx context.Context, change Change) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO price_history (product_id, price, changed_at)
VALUES ($1, $2, $3)`, change.ProductID, change.Price, change.ChangedAt)
	return err
}

// History lists price changes for a product in the given direction.
func (r *Repository) History(ctx context.Context, productID int64, dir SortDir) ([]Change, error) {
	order := "DESC"
	if dir == Asc {
		order = "ASC"
	}
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, price, changed_at
FROM price_history WHERE product_id = $1
ORDER BY changed_at `+order+`, id `+order, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := []Change{}
	for rows.Next() {
		var c Change
		if err := rows.Scan(&c.ID, &c.ProductID, &c.Price, &c.ChangedAt); err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}
