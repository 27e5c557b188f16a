package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-pos/meridian-pos/internal/shared"
)

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL-backed catalog repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const productColumns = `id, sku, barcode, name, description, category_id, price, quantity, image, is_active, created_at, updated_at`

func (r *repository) CreateProduct(ctx context.Context, p Product) (Product, error) {
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx, `INSERT INTO products (sku, barcode, name, description, category_id, price, quantity, image, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10) RETURNING id`,
		p.SKU, p.Barcode, p.Name, p.Description, p.CategoryID, p.Price, p.Quantity, p.Image, p.IsActive, now).Scan(&p.ID)
	if err != nil {
		return Product{}, mapUniqueViolation(err)
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return p, nil
}

func (r *repository) GetProduct(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := r.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.SKU, &p.Barcode, &p.Name, &p.Description, &p.CategoryID, &p.Price, &p.Quantity, &p.Image, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
		}
		return Product{}, err
	}
	return p, nil
}

func (r *repository) ListProducts(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.CategoryID != nil {
		argCount++
		where += ` AND category_id = $` + strconv.Itoa(argCount)
		args = append(args, *filters.CategoryID)
	}
	if filters.Search != "" {
		argCount++
		where += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR sku ILIKE $` + strconv.Itoa(argCount) + ` OR barcode ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.IsActive != nil {
		argCount++
		where += ` AND is_active = $` + strconv.Itoa(argCount)
		args = append(args, *filters.IsActive)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY ` + productSortOrder(filters.SortBy, filters.SortDir)
	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, filters.Limit)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, filters.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Barcode, &p.Name, &p.Description, &p.CategoryID, &p.Price, &p.Quantity, &p.Image, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *repository) UpdateProduct(ctx context.Context, p Product) error {
	tag, err := r.db.Exec(ctx, `UPDATE products SET barcode = $1, name = $2, description = $3, category_id = $4, price = $5, image = $6, updated_at = $7 WHERE id = $8`,
		p.Barcode, p.Name, p.Description, p.CategoryID, p.Price, p.Image, time.Now().UTC(), p.ID)
	if err != nil {
		return mapUniqueViolation(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %d", shared.ErrNotFound, p.ID)
	}
	return nil
}

func (r *repository) DeactivateProduct(ctx context.Context, id int64) (bool, error) {
	var existed, wasActive bool
	err := r.db.QueryRow(ctx, `SELECT true, is_active FROM products WHERE id = $1`, id).Scan(&existed, &wasActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("%w: product %d", shared.ErrNotFound, id)
		}
		return false, err
	}
	if !wasActive {
		return false, nil
	}
	_, err = r.db.Exec(ctx, `UPDATE products SET is_active = false, updated_at = $1 WHERE id = $2`, time.Now().UTC(), id)
	return err == nil, err
}

func (r *repository) CreateCategory(ctx context.Context, c Category) (Category, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO categories (name, description) VALUES ($1, $2) RETURNING id`, c.Name, c.Description).Scan(&c.ID)
	if err != nil {
		return Category{}, mapUniqueViolation(err)
	}
	return c, nil
}

func (r *repository) GetCategory(ctx context.Context, id int64) (Category, error) {
	var c Category
	err := r.db.QueryRow(ctx, `SELECT id, name, description FROM categories WHERE id = $1`, id).Scan(&c.ID, &c.Name, &c.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Category{}, fmt.Errorf("%w: category %d", shared.ErrNotFound, id)
		}
		return Category{}, err
	}
	return c, nil
}

func (r *repository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, description FROM categories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *repository) DeleteCategory(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: category %d", shared.ErrNotFound, id)
	}
	return nil
}

func (r *repository) CountProductsInCategory(ctx context.Context, id int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE category_id = $1 AND is_active`, id).Scan(&count)
	return count, err
}

const providerColumns = `id, name, address, phone, email, is_active, created_at, updated_at`

func (r *repository) CreateProvider(ctx context.Context, p Provider) (Provider, error) {
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx, `INSERT INTO providers (name, address, phone, email, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$6) RETURNING id`,
		p.Name, p.Address, p.Phone, p.Email, p.IsActive, now).Scan(&p.ID)
	if err != nil {
		return Provider{}, mapUniqueViolation(err)
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return p, nil
}

func (r *repository) GetProvider(ctx context.Context, id int64) (Provider, error) {
	var p Provider
	err := r.db.QueryRow(ctx, `SELECT `+providerColumns+` FROM providers WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Address, &p.Phone, &p.Email, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Provider{}, fmt.Errorf("%w: provider %d", shared.ErrNotFound, id)
		}
		return Provider{}, err
	}
	return p, nil
}

func (r *repository) ListProviders(ctx context.Context, filters shared.ListFilters) ([]Provider, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		where += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR email ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}
	if filters.IsActive != nil {
		argCount++
		where += ` AND is_active = $` + strconv.Itoa(argCount)
		args = append(args, *filters.IsActive)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM providers`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + providerColumns + ` FROM providers` + where + ` ORDER BY name ASC`
	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, filters.Limit)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, filters.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var providers []Provider
	for rows.Next() {
		var p Provider
		if err := rows.Scan(&p.ID, &p.Name, &p.Address, &p.Phone, &p.Email, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		providers = append(providers, p)
	}
	return providers, total, rows.Err()
}

func (r *repository) UpdateProvider(ctx context.Context, p Provider) error {
	tag, err := r.db.Exec(ctx, `UPDATE providers SET name = $1, address = $2, phone = $3, email = $4, updated_at = $5 WHERE id = $6`,
		p.Name, p.Address, p.Phone, p.Email, time.Now().UTC(), p.ID)
	if err != nil {
		return mapUniqueViolation(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: provider %d", shared.ErrNotFound, p.ID)
	}
	return nil
}

func (r *repository) DeactivateProvider(ctx context.Context, id int64) (bool, error) {
	var wasActive bool
	err := r.db.QueryRow(ctx, `SELECT is_active FROM providers WHERE id = $1`, id).Scan(&wasActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("%w: provider %d", shared.ErrNotFound, id)
		}
		return false, err
	}
	if !wasActive {
		return false, nil
	}
	_, err = r.db.Exec(ctx, `UPDATE providers SET is_active = false, updated_at = $1 WHERE id = $2`, time.Now().UTC(), id)
	return err == nil, err
}

func productSortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "sku":
		return "sku " + dir
	case "price":
		return "price " + dir
	case "quantity":
		return "quantity " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "name " + dir
	}
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", shared.ErrConflict, pgErr.ConstraintName)
	}
	return err
}
