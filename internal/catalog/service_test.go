package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-pos/meridian-pos/internal/shared"
)

type memRepo struct {
	products   map[int64]Product
	categories map[int64]Category
	providers  map[int64]Provider
	nextID     int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		products:   map[int64]Product{},
		categories: map[int64]Category{},
		providers:  map[int64]Provider{},
	}
}

func (m *memRepo) CreateProduct(ctx context.Context, p Product) (Product, error) {
	for _, existing := range m.products {
		if existing.IsActive && existing.SKU == p.SKU {
			return Product{}, shared.ErrConflict
		}
	}
	m.nextID++
	p.ID = m.nextID
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	m.products[p.ID] = p
	return p, nil
}

func (m *memRepo) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *memRepo) ListProducts(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	out := []Product{}
	for _, p := range m.products {
		if filters.IsActive != nil && p.IsActive != *filters.IsActive {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *memRepo) UpdateProduct(ctx context.Context, p Product) error {
	if _, ok := m.products[p.ID]; !ok {
		return shared.ErrNotFound
	}
	m.products[p.ID] = p
	return nil
}

func (m *memRepo) DeactivateProduct(ctx context.Context, id int64) (bool, error) {
	p, ok := m.products[id]
	if !ok {
		return false, shared.ErrNotFound
	}
	if !p.IsActive {
		return false, nil
	}
	p.IsActive = false
	m.products[id] = p
	return true, nil
}

func (m *memRepo) CreateCategory(ctx context.Context, c Category) (Category, error) {
	m.nextID++
	c.ID = m.nextID
	m.categories[c.ID] = c
	return c, nil
}

func (m *memRepo) GetCategory(ctx context.Context, id int64) (Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return Category{}, shared.ErrNotFound
	}
	return c, nil
}

func (m *memRepo) ListCategories(ctx context.Context) ([]Category, error) {
	out := []Category{}
	for _, c := range m.categories {
		out = append(out, c)
	}
	return out, nil
}

func (m *memRepo) DeleteCategory(ctx context.Context, id int64) error {
	delete(m.categories, id)
	return nil
}

func (m *memRepo) CountProductsInCategory(ctx context.Context, id int64) (int, error) {
	count := 0
	for _, p := range m.products {
		if p.CategoryID != nil && *p.CategoryID == id && p.IsActive {
			count++
		}
	}
	return count, nil
}

func (m *memRepo) CreateProvider(ctx context.Context, p Provider) (Provider, error) {
	m.nextID++
	p.ID = m.nextID
	m.providers[p.ID] = p
	return p, nil
}

func (m *memRepo) GetProvider(ctx context.Context, id int64) (Provider, error) {
	p, ok := m.providers[id]
	if !ok {
		return Provider{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *memRepo) ListProviders(ctx context.Context, filters shared.ListFilters) ([]Provider, int, error) {
	out := []Provider{}
	for _, p := range m.providers {
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *memRepo) UpdateProvider(ctx context.Context, p Provider) error {
	if _, ok := m.providers[p.ID]; !ok {
		return shared.ErrNotFound
	}
	m.providers[p.ID] = p
	return nil
}

func (m *memRepo) DeactivateProvider(ctx context.Context, id int64) (bool, error) {
	p, ok := m.providers[id]
	if !ok {
		return false, shared.ErrNotFound
	}
	if !p.IsActive {
		return false, nil
	}
	p.IsActive = false
	m.providers[id] = p
	return true, nil
}

type stockCall struct {
	productID, locationID, qty, actorID int64
}

type memStock struct {
	calls []stockCall
}

func (m *memStock) RecordPurchase(ctx context.Context, productID, locationID, qty, actorID int64) error {
	m.calls = append(m.calls, stockCall{productID, locationID, qty, actorID})
	return nil
}

type priceCall struct {
	productID int64
	price     decimal.Decimal
}

type memPrices struct {
	calls []priceCall
}

func (m *memPrices) RecordChange(ctx context.Context, productID int64, price decimal.Decimal, at time.Time) error {
	m.calls = append(m.calls, priceCall{productID, price})
	return nil
}

func strp(s string) *string { return &s }

func TestCreateProductRecordsOpeningStock(t *testing.T) {
	repo := newMemRepo()
	stk := &memStock{}
	svc := NewService(repo, stk, nil, nil, 3)

	product, err := svc.CreateProduct(context.Background(), CreateProductRequest{
		SKU:      "SKU-1",
		Name:     "Coffee 500g",
		Price:    decimal.NewFromFloat(12.50),
		Quantity: 10,
	}, 7)
	require.NoError(t, err)
	assert.True(t, product.IsActive)

	require.Len(t, stk.calls, 1)
	assert.Equal(t, stockCall{product.ID, 3, 10, 7}, stk.calls[0])
}

func TestCreateProductZeroQuantitySkipsStock(t *testing.T) {
	repo := newMemRepo()
	stk := &memStock{}
	svc := NewService(repo, stk, nil, nil, 1)

	_, err := svc.CreateProduct(context.Background(), CreateProductRequest{
		SKU:   "SKU-2",
		Name:  "Grinder",
		Price: decimal.NewFromInt(3500),
	}, 1)
	require.NoError(t, err)
	assert.Empty(t, stk.calls)
}

func TestCreateProductValidation(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil, nil, 1)

	_, err := svc.CreateProduct(context.Background(), CreateProductRequest{
		Price: decimal.NewFromInt(-5),
	}, 1)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "sku")
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "price")
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil, nil, 1)

	req := CreateProductRequest{SKU: "SKU-1", Name: "Coffee", Price: decimal.NewFromInt(10)}
	_, err := svc.CreateProduct(context.Background(), req, 1)
	require.NoError(t, err)

	_, err = svc.CreateProduct(context.Background(), req, 1)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestUpdateProductPriceChangeRecordsHistory(t *testing.T) {
	repo := newMemRepo()
	prices := &memPrices{}
	svc := NewService(repo, nil, prices, nil, 1)

	product, err := svc.CreateProduct(context.Background(), CreateProductRequest{
		SKU: "SKU-1", Name: "Coffee", Price: decimal.NewFromFloat(10),
	}, 1)
	require.NoError(t, err)

	newPrice := decimal.NewFromFloat(12.75)
	updated, err := svc.UpdateProduct(context.Background(), product.ID, UpdateProductRequest{Price: &newPrice}, 1)
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(newPrice))

	require.Len(t, prices.calls, 1)
	assert.Equal(t, product.ID, prices.calls[0].productID)
	assert.True(t, prices.calls[0].price.Equal(newPrice), "history must carry the new price")
}

func TestUpdateProductSamePriceNoHistory(t *testing.T) {
	repo := newMemRepo()
	prices := &memPrices{}
	svc := NewService(repo, nil, prices, nil, 1)

	product, err := svc.CreateProduct(context.Background(), CreateProductRequest{
		SKU: "SKU-1", Name: "Coffee", Price: decimal.NewFromFloat(10),
	}, 1)
	require.NoError(t, err)

	samePrice := decimal.NewFromFloat(10)
	_, err = svc.UpdateProduct(context.Background(), product.ID, UpdateProductRequest{
		Name:  strp("Coffee Beans"),
		Price: &samePrice,
	}, 1)
	require.NoError(t, err)
	assert.Empty(t, prices.calls)
}

func TestUpdateInactiveProductIsNotFound(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, nil, nil, 1)

	product, err := svc.CreateProduct(context.Background(), CreateProductRequest{
		SKU: "SKU-1", Name: "Coffee", Price: decimal.NewFromInt(10),
	}, 1)
	require.NoError(t, err)
	require.NoError(t, svc.DeactivateProduct(context.Background(), product.ID, 1))

	_, err = svc.UpdateProduct(context.Background(), product.ID, UpdateProductRequest{Name: strp("x")}, 1)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeactivateProductIsIdempotent(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, nil, nil, 1)

	product, err := svc.CreateProduct(context.Background(), CreateProductRequest{
		SKU: "SKU-1", Name: "Coffee", Price: decimal.NewFromInt(10),
	}, 1)
	require.NoError(t, err)

	require.NoError(t, svc.DeactivateProduct(context.Background(), product.ID, 1))
	require.NoError(t, svc.DeactivateProduct(context.Background(), product.ID, 1))
}

func TestDeleteCategoryRestrictedWhileReferenced(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, nil, nil, 1)

	category, err := svc.CreateCategory(context.Background(), CreateCategoryRequest{Name: "Beverages"}, 1)
	require.NoError(t, err)

	_, err = svc.CreateProduct(context.Background(), CreateProductRequest{
		SKU: "SKU-1", Name: "Coffee", Price: decimal.NewFromInt(10), CategoryID: &category.ID,
	}, 1)
	require.NoError(t, err)

	err = svc.DeleteCategory(context.Background(), category.ID, 1)
	require.ErrorIs(t, err, shared.ErrConflict)

	// Deactivating the referencing product releases the category.
	products, _, err := svc.ListProducts(context.Background(), shared.ListFilters{})
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.NoError(t, svc.DeactivateProduct(context.Background(), products[0].ID, 1))
	require.NoError(t, svc.DeleteCategory(context.Background(), category.ID, 1))
}

func TestCreateProviderValidatesEmail(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil, nil, 1)

	_, err := svc.CreateProvider(context.Background(), CreateProviderRequest{
		Name:  "Acme",
		Email: strp("not-an-email"),
	}, 1)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")
}
