package stock

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists stock data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service. The
// sales module reuses the same interface so a sale's decrements share one
// transaction with the sale insert.
type TxRepository interface {
	GetEntryForUpdate(ctx context.Context, productID, locationID int64) (Entry, error)
	UpsertEntry(ctx context.Context, entry Entry) error
	InsertMovement(ctx context.Context, movement Movement) error
	AdjustProductQuantity(ctx context.Context, productID, delta int64) error
}

// TxRepo binds stock operations to an open pgx transaction.
type TxRepo struct {
	tx pgx.Tx
}

// NewTxRepo wraps an existing transaction.
func NewTxRepo(tx pgx.Tx) *TxRepo {
	return &TxRepo{tx: tx}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("stock repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &TxRepo{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// Entries lists per-location quantities for a product.
func (r *Repository) Entries(ctx context.Context, productID int64) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id, location_id, quantity, updated_at
FROM stock_entries WHERE product_id = $1 ORDER BY location_id ASC`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ProductID, &e.LocationID, &e.Quantity, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// TotalStock sums quantities across locations.
func (r *Repository) TotalStock(ctx context.Context, productID int64) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM stock_entries WHERE product_id = $1`, productID).Scan(&total)
	return total, err
}

// Movements lists the movement log, newest first.
func (r *Repository) Movements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	query := `SELECT id, product_id, location_id, type, delta, reference_id, actor_id, created_at
FROM stock_movements WHERE 1=1`
	args := []any{}
	if filter.ProductID != 0 {
		args = append(args, filter.ProductID)
		query += ` AND product_id = $1`
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		query += ` AND type = $` + strconv.Itoa(len(args))
	}
	args = append(args, filter.Limit)
	query += ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	movements := []Movement{}
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.LocationID, &m.Type, &m.Delta, &m.ReferenceID, &m.ActorID, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// ProductTotals returns every active product with its summed quantity.
func (r *Repository) ProductTotals(ctx context.Context) ([]ProductStock, error) {
	rows, err := r.pool.Query(ctx, `SELECT p.id, p.sku, p.name, p.price, COALESCE(SUM(se.quantity), 0)
FROM products p
LEFT JOIN stock_entries se ON se.product_id = p.id
WHERE p.is_active
GROUP BY p.id, p.sku, p.name, p.price
ORDER BY p.name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	totals := []ProductStock{}
	for rows.Next() {
		var ps ProductStock
		if err := rows.Scan(&ps.ProductID, &ps.SKU, &ps.Name, &ps.Price, &ps.Total); err != nil {
			return nil, err
		}
		totals = append(totals, ps)
	}
	return totals, rows.Err()
}

// GetEntryForUpdate locks the entry row for the duration of the transaction.
func (r *TxRepo) GetEntryForUpdate(ctx context.Context, productID, locationID int64) (Entry, error) {
	var e Entry
	err := r.tx.QueryRow(ctx, `SELECT product_id, location_id, quantity, updated_at
FROM stock_entries WHERE product_id = $1 AND location_id = $2 FOR UPDATE`, productID, locationID).
		Scan(&e.ProductID, &e.LocationID, &e.Quantity, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{ProductID: productID, LocationID: locationID}, ErrEntryNotFound
		}
		return Entry{}, err
	}
	return e, nil
}

// UpsertEntry writes the new quantity.
func (r *TxRepo) UpsertEntry(ctx context.Context, entry Entry) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO stock_entries (product_id, location_id, quantity, updated_at)
VALUES ($1,$2,$3,NOW())
ON CONFLICT (product_id, location_id) DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW()`,
		entry.ProductID, entry.LocationID, entry.Quantity)
	return err
}

// InsertMovement appends to the movement log.
func (r *TxRepo) InsertMovement(ctx context.Context, m Movement) error {
	at := m.CreatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := r.tx.Exec(ctx, `INSERT INTO stock_movements (product_id, location_id, type, delta, reference_id, actor_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		m.ProductID, m.LocationID, string(m.Type), m.Delta, m.ReferenceID, nullInt(m.ActorID), at)
	return err
}

// AdjustProductQuantity keeps the denormalized products.quantity total in sync.
func (r *TxRepo) AdjustProductQuantity(ctx context.Context, productID, delta int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE products SET quantity = quantity + $1, updated_at = NOW() WHERE id = $2`, delta, productID)
	return err
}

func nullInt(value int64) any {
	if value == 0 {
		return nil
	}
	return value
}
