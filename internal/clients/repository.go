package clients

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// Repository persists clients in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const clientColumns = "id, name, email, phone, address, is_active, created_at, updated_at"

// Create inserts a client.
func (r *Repository) Create(ctx context.Context, client *Client) error {
	err := r.pool.QueryRow(ctx, `INSERT INTO clients (name, email, phone, address, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`, client.Name, client.Email, client.Phone, client.Address, client.IsActive, client.CreatedAt, client.UpdatedAt).
		Scan(&client.ID)
	return mapUniqueViolation(err)
}

// Update replaces the mutable fields of a client.
func (r *Repository) Update(ctx context.Context, client *Client) error {
	tag, err := r.pool.Exec(ctx, `UPDATE clients
SET name = $1, email = $2, phone = $3, address = $4, updated_at = $5
WHERE id = $6 AND is_active`, client.Name, client.Email, client.Phone, client.Address, client.UpdatedAt, client.ID)
	if err != nil {
		return mapUniqueViolation(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Deactivate soft-deletes a client. Returns false when already inactive.
func (r *Repository) Deactivate(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE clients SET is_active = FALSE, updated_at = NOW()
WHERE id = $1 AND is_active`, id)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM clients WHERE id = $1)`, id).Scan(&exists); err != nil {
			return false, err
		}
		if !exists {
			return false, shared.ErrNotFound
		}
		return false, nil
	}
	return true, nil
}

// Get returns one client by id.
func (r *Repository) Get(ctx context.Context, id int64) (Client, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+clientColumns+" FROM clients WHERE id = $1", id)
	client, err := scanClient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, shared.ErrNotFound
	}
	return client, err
}

// List returns clients matching the filters plus the unpaged total.
func (r *Repository) List(ctx context.Context, filters shared.ListFilters) ([]Client, int64, error) {
	where := " WHERE 1=1"
	args := []any{}
	if filters.IsActive != nil {
		args = append(args, *filters.IsActive)
		where += " AND is_active = $" + strconv.Itoa(len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		n := strconv.Itoa(len(args))
		where += " AND (name ILIKE $" + n + " OR email ILIKE $" + n + " OR phone ILIKE $" + n + ")"
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM clients"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filters.Limit, filters.Offset())
	query := fmt.Sprintf("SELECT %s FROM clients%s ORDER BY name ASC LIMIT $%d OFFSET $%d",
		clientColumns, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Client{}
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, client)
	}
	return out, total, rows.Err()
}

func scanClient(row pgx.Row) (Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", shared.ErrConflict, pgErr.ConstraintName)
	}
	return err
}
