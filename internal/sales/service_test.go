package sales

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-pos/meridian-pos/internal/shared"
	"github.com/meridian-pos/meridian-pos/internal/stock"
)

type entryKey struct {
	productID  int64
	locationID int64
}

// memRepo is an in-memory RepositoryPort. WithTx serializes callers and
// commits the staged state only when the callback succeeds, mirroring how
// row locks and transactions behave against PostgreSQL.
type memRepo struct {
	mu        sync.Mutex
	products  map[int64]ProductInfo
	entries   map[entryKey]stock.Entry
	movements []stock.Movement
	sales     []Sale
	items     []LineItem
	nextSale  int64
	nextItem  int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		products: map[int64]ProductInfo{},
		entries:  map[entryKey]stock.Entry{},
	}
}

func (m *memRepo) addProduct(id int64, name string, price decimal.Decimal, active bool, qty int64) {
	m.products[id] = ProductInfo{ID: id, Name: name, Price: price, IsActive: active}
	if qty > 0 {
		m.entries[entryKey{id, 1}] = stock.Entry{ProductID: id, LocationID: 1, Quantity: qty}
	}
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{repo: m, entries: map[entryKey]stock.Entry{}}
	for k, v := range m.entries {
		tx.entries[k] = v
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	m.entries = tx.entries
	m.movements = append(m.movements, tx.movements...)
	m.sales = append(m.sales, tx.sales...)
	m.items = append(m.items, tx.items...)
	return nil
}

func (m *memRepo) List(ctx context.Context, filter ListFilter) ([]Sale, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Sale{}, m.sales...), int64(len(m.sales)), nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sales {
		if s.ID == id {
			return s, nil
		}
	}
	return Sale{}, shared.ErrNotFound
}

func (m *memRepo) Details(ctx context.Context, id int64) (SaleDetails, error) {
	sale, err := m.Get(ctx, id)
	if err != nil {
		return SaleDetails{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	details := SaleDetails{Sale: sale}
	for _, li := range m.items {
		if li.SaleID == id {
			details.Lines = append(details.Lines, li)
		}
	}
	return details, nil
}

type memTx struct {
	repo      *memRepo
	entries   map[entryKey]stock.Entry
	movements []stock.Movement
	sales     []Sale
	items     []LineItem
}

func (t *memTx) Stock() stock.TxRepository { return t }

func (t *memTx) ProductsForSale(ctx context.Context, ids []int64) (map[int64]ProductInfo, error) {
	out := map[int64]ProductInfo{}
	for _, id := range ids {
		if p, ok := t.repo.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (t *memTx) InsertSale(ctx context.Context, sale *Sale) error {
	t.repo.nextSale++
	sale.ID = t.repo.nextSale
	t.sales = append(t.sales, *sale)
	return nil
}

func (t *memTx) InsertLineItems(ctx context.Context, lines []LineItem) error {
	for i := range lines {
		t.repo.nextItem++
		lines[i].ID = t.repo.nextItem
	}
	t.items = append(t.items, lines...)
	return nil
}

func (t *memTx) GetEntryForUpdate(ctx context.Context, productID, locationID int64) (stock.Entry, error) {
	entry, ok := t.entries[entryKey{productID, locationID}]
	if !ok {
		return stock.Entry{}, stock.ErrEntryNotFound
	}
	return entry, nil
}

func (t *memTx) UpsertEntry(ctx context.Context, entry stock.Entry) error {
	t.entries[entryKey{entry.ProductID, entry.LocationID}] = entry
	return nil
}

func (t *memTx) InsertMovement(ctx context.Context, movement stock.Movement) error {
	t.movements = append(t.movements, movement)
	return nil
}

func (t *memTx) AdjustProductQuantity(ctx context.Context, productID, delta int64) error {
	return nil
}

func price(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func TestFinalizeCommitsSaleAndStock(t *testing.T) {
	repo := newMemRepo()
	repo.addProduct(1, "Coffee 500g", price(12.50), true, 10)
	repo.addProduct(2, "Grinder", price(3500), true, 4)
	svc := NewService(repo, nil, nil, nil, 1)

	details, err := svc.Finalize(context.Background(), FinalizeSaleRequest{
		Lines: []FinalizeLine{
			{ProductID: 1, Quantity: 3},
			{ProductID: 2, Quantity: 1},
		},
	}, "", 7)
	require.NoError(t, err)

	assert.True(t, details.Sale.Total.Equal(price(3537.50)), "total was %s", details.Sale.Total)
	assert.NotEqual(t, int64(0), details.Sale.ID)
	require.Len(t, details.Lines, 2)
	assert.Equal(t, details.Sale.ID, details.Lines[0].SaleID)

	assert.Equal(t, int64(7), repo.entries[entryKey{1, 1}].Quantity)
	assert.Equal(t, int64(3), repo.entries[entryKey{2, 1}].Quantity)
	require.Len(t, repo.movements, 2)
	for _, mv := range repo.movements {
		assert.Equal(t, stock.MovementSale, mv.Type)
		require.NotNil(t, mv.ReferenceID)
		assert.Equal(t, details.Sale.ID, *mv.ReferenceID)
	}
}

func TestFinalizeRejectsEmptyCart(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil, nil, 1)

	_, err := svc.Finalize(context.Background(), FinalizeSaleRequest{}, "", 1)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "lines")
}

func TestFinalizeRejectsUnknownOrInactiveProduct(t *testing.T) {
	repo := newMemRepo()
	repo.addProduct(1, "Discontinued", price(5), false, 50)
	svc := NewService(repo, nil, nil, nil, 1)

	_, err := svc.Finalize(context.Background(), FinalizeSaleRequest{
		Lines: []FinalizeLine{
			{ProductID: 1, Quantity: 1},
			{ProductID: 99, Quantity: 1},
		},
	}, "", 1)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)
	assert.Empty(t, repo.sales)
	assert.Equal(t, int64(50), repo.entries[entryKey{1, 1}].Quantity)
}

func TestFinalizeRejectsTotalMismatch(t *testing.T) {
	repo := newMemRepo()
	repo.addProduct(1, "Coffee 500g", price(12.50), true, 10)
	svc := NewService(repo, nil, nil, nil, 1)

	_, err := svc.Finalize(context.Background(), FinalizeSaleRequest{
		Total: price(99),
		Lines: []FinalizeLine{{ProductID: 1, Quantity: 2}},
	}, "", 1)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "total")
	assert.Empty(t, repo.sales)
}

func TestFinalizeAcceptsTotalWithinTolerance(t *testing.T) {
	repo := newMemRepo()
	repo.addProduct(1, "Coffee 500g", price(12.50), true, 10)
	svc := NewService(repo, nil, nil, nil, 1)

	_, err := svc.Finalize(context.Background(), FinalizeSaleRequest{
		Total: price(25.004),
		Lines: []FinalizeLine{{ProductID: 1, Quantity: 2}},
	}, "", 1)
	require.NoError(t, err)
}

func TestFinalizeInsufficientStockRollsBackEverything(t *testing.T) {
	repo := newMemRepo()
	repo.addProduct(1, "Coffee 500g", price(12.50), true, 10)
	repo.addProduct(2, "Grinder", price(3500), true, 0)
	svc := NewService(repo, nil, nil, nil, 1)

	_, err := svc.Finalize(context.Background(), FinalizeSaleRequest{
		Lines: []FinalizeLine{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
	}, "", 1)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	// product 1 was decremented before product 2 failed; the rollback
	// must restore it.
	assert.Equal(t, int64(10), repo.entries[entryKey{1, 1}].Quantity)
	assert.Empty(t, repo.sales)
	assert.Empty(t, repo.items)
	assert.Empty(t, repo.movements)
}

func TestFinalizeConcurrentOnLastUnit(t *testing.T) {
	repo := newMemRepo()
	repo.addProduct(1, "Last one", price(40), true, 1)
	svc := NewService(repo, nil, nil, nil, 1)

	results := make(chan error, 2)
	var g errgroup.Group
	for i := 0; i < 2; i++ {
		g.Go(func() error {
			_, err := svc.Finalize(context.Background(), FinalizeSaleRequest{
				Lines: []FinalizeLine{{ProductID: 1, Quantity: 1}},
			}, "", 1)
			results <- err
			return nil
		})
	}
	require.NoError(t, g.Wait())
	close(results)

	var successes, insufficient int
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, shared.ErrInsufficientStock):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, int64(0), repo.entries[entryKey{1, 1}].Quantity)
	assert.Len(t, repo.sales, 1)
}

func TestFinalizeAggregatesDuplicateLines(t *testing.T) {
	repo := newMemRepo()
	repo.addProduct(1, "Coffee 500g", price(10), true, 5)
	svc := NewService(repo, nil, nil, nil, 1)

	details, err := svc.Finalize(context.Background(), FinalizeSaleRequest{
		Lines: []FinalizeLine{
			{ProductID: 1, Quantity: 2},
			{ProductID: 1, Quantity: 2},
		},
	}, "", 1)
	require.NoError(t, err)

	require.Len(t, details.Lines, 2)
	assert.Equal(t, int64(1), repo.entries[entryKey{1, 1}].Quantity)
	require.Len(t, repo.movements, 1)
	assert.Equal(t, int64(-4), repo.movements[0].Delta)
}

type memIdem struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memIdem) CheckAndInsert(ctx context.Context, key, module string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = map[string]bool{}
	}
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memIdem) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

func TestFinalizeIdempotencyKey(t *testing.T) {
	repo := newMemRepo()
	repo.addProduct(1, "Coffee 500g", price(10), true, 10)
	idem := &memIdem{}
	svc := NewService(repo, idem, nil, nil, 1)

	req := FinalizeSaleRequest{Lines: []FinalizeLine{{ProductID: 1, Quantity: 1}}}

	_, err := svc.Finalize(context.Background(), req, "k-1", 1)
	require.NoError(t, err)

	_, err = svc.Finalize(context.Background(), req, "k-1", 1)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	assert.Len(t, repo.sales, 1)
}

func TestFinalizeFailureReleasesIdempotencyKey(t *testing.T) {
	repo := newMemRepo()
	repo.addProduct(1, "Coffee 500g", price(10), true, 0)
	idem := &memIdem{}
	svc := NewService(repo, idem, nil, nil, 1)

	req := FinalizeSaleRequest{Lines: []FinalizeLine{{ProductID: 1, Quantity: 1}}}

	_, err := svc.Finalize(context.Background(), req, "k-2", 1)
	require.ErrorIs(t, err, shared.ErrInsufficientStock)

	// key released, a retry with corrected stock must not 409
	repo.addProduct(1, "Coffee 500g", price(10), true, 3)
	_, err = svc.Finalize(context.Background(), req, "k-2", 1)
	require.NoError(t, err)
}
