package sales

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-pos/meridian-pos/internal/shared"
	"github.com/meridian-pos/meridian-pos/internal/stock"
)

// Repository persists sales in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx    pgx.Tx
	stock *stock.TxRepo
}

// WithTx runs the callback inside one repeatable-read transaction that spans
// both the sale rows and the stock ledger.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("sales repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepo{tx: tx, stock: stock.NewTxRepo(tx)}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (t *txRepo) Stock() stock.TxRepository {
	return t.stock
}

func (t *txRepo) ProductsForSale(ctx context.Context, ids []int64) (map[int64]ProductInfo, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, name, price, is_active
FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	products := make(map[int64]ProductInfo, len(ids))
	for rows.Next() {
		var p ProductInfo
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.IsActive); err != nil {
			return nil, err
		}
		products[p.ID] = p
	}
	return products, rows.Err()
}

func (t *txRepo) InsertSale(ctx context.Context, sale *Sale) error {
	return t.tx.QueryRow(ctx, `INSERT INTO sales (reference, client_id, total, created_by, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`, sale.Reference, sale.ClientID, sale.Total, sale.CreatedBy, sale.CreatedAt).Scan(&sale.ID)
}

func (t *txRepo) InsertLineItems(ctx context.Context, lines []LineItem) error {
	for i := range lines {
		err := t.tx.QueryRow(ctx, `INSERT INTO sale_items (sale_id, product_id, quantity, unit_price, line_total)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`, lines[i].SaleID, lines[i].ProductID, lines[i].Quantity, lines[i].UnitPrice, lines[i].LineTotal).Scan(&lines[i].ID)
		if err != nil {
			return err
		}
	}
	return nil
}

const saleColumns = "id, reference, client_id, total, created_by, created_at"

// List returns sale headers newest first, plus the unpaged total.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Sale, int64, error) {
	where := " WHERE 1=1"
	args := []any{}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		where += " AND client_id = $" + strconv.Itoa(len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += " AND created_at >= $" + strconv.Itoa(len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += " AND created_at < $" + strconv.Itoa(len(args))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM sales"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset())
	query := fmt.Sprintf("SELECT %s FROM sales%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		saleColumns, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	sales := []Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, 0, err
		}
		sales = append(sales, sale)
	}
	return sales, total, rows.Err()
}

// Get returns one sale header.
func (r *Repository) Get(ctx context.Context, id int64) (Sale, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+saleColumns+" FROM sales WHERE id = $1", id)
	sale, err := scanSale(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Sale{}, shared.ErrNotFound
	}
	return sale, err
}

// Details returns a sale joined with its line items and product names.
func (r *Repository) Details(ctx context.Context, id int64) (SaleDetails, error) {
	sale, err := r.Get(ctx, id)
	if err != nil {
		return SaleDetails{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT si.id, si.sale_id, si.product_id, p.name, si.quantity, si.unit_price, si.line_total
FROM sale_items si
JOIN products p ON p.id = si.product_id
WHERE si.sale_id = $1
ORDER BY si.id ASC`, id)
	if err != nil {
		return SaleDetails{}, err
	}
	defer rows.Close()

	lines := []LineItem{}
	for rows.Next() {
		var li LineItem
		if err := rows.Scan(&li.ID, &li.SaleID, &li.ProductID, &li.ProductName, &li.Quantity, &li.UnitPrice, &li.LineTotal); err != nil {
			return SaleDetails{}, err
		}
		lines = append(lines, li)
	}
	if err := rows.Err(); err != nil {
		return SaleDetails{}, err
	}
	return SaleDetails{Sale: sale, Lines: lines}, nil
}

func scanSale(row pgx.Row) (Sale, error) {
	var s Sale
	err := row.Scan(&s.ID, &s.Reference, &s.ClientID, &s.Total, &s.CreatedBy, &s.CreatedAt)
	return s, err
}
