package users

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

// Repository persists users in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = "id, name, email, role, password_hash, is_active, created_at, updated_at"

// Create inserts a user.
func (r *Repository) Create(ctx context.Context, user *User) error {
	err := r.pool.QueryRow(ctx, `INSERT INTO users (name, email, role, password_hash, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id`, user.Name, user.Email, user.Role, user.PasswordHash, user.IsActive, user.CreatedAt, user.UpdatedAt).
		Scan(&user.ID)
	return mapUniqueViolation(err)
}

// Update replaces the mutable fields of a user.
func (r *Repository) Update(ctx context.Context, user *User) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users
SET name = $1, email = $2, role = $3, password_hash = $4, updated_at = $5
WHERE id = $6 AND is_active`, user.Name, user.Email, user.Role, user.PasswordHash, user.UpdatedAt, user.ID)
	if err != nil {
		return mapUniqueViolation(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Deactivate soft-deletes a user. Returns false when already inactive.
func (r *Repository) Deactivate(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = FALSE, updated_at = NOW()
WHERE id = $1 AND is_active`, id)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
			return false, err
		}
		if !exists {
			return false, shared.ErrNotFound
		}
		return false, nil
	}
	return true, nil
}

// Get returns one user by id.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	return r.getBy(ctx, "id = $1", id)
}

// GetByEmail returns one user by email, for credential checks.
func (r *Repository) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.getBy(ctx, "email = $1", email)
}

func (r *Repository) getBy(ctx context.Context, cond string, arg any) (User, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE "+cond, arg)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, shared.ErrNotFound
	}
	return user, err
}

// List returns users matching the filters plus the unpaged total.
func (r *Repository) List(ctx context.Context, filters shared.ListFilters) ([]User, int64, error) {
	where := " WHERE 1=1"
	args := []any{}
	if filters.IsActive != nil {
		args = append(args, *filters.IsActive)
		where += " AND is_active = $" + strconv.Itoa(len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		n := strconv.Itoa(len(args))
		where += " AND (name ILIKE $" + n + " OR email ILIKE $" + n + ")"
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM users"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filters.Limit, filters.Offset())
	query := fmt.Sprintf("SELECT %s FROM users%s ORDER BY name ASC LIMIT $%d OFFSET $%d",
		userColumns, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, user)
	}
	return out, total, rows.Err()
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", shared.ErrConflict, pgErr.ConstraintName)
	}
	return err
}
