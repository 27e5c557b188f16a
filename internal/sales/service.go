package sales

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-pos/meridian-pos/internal/shared"
	"github.com/meridian-pos/meridian-pos/internal/stock"
)

// TxRepository exposes the operations available inside a sale transaction.
// Stock hands out the stock ledger bound to the same transaction, so the
// decrements and the sale rows commit or roll back together.
type TxRepository interface {
	ProductsForSale(ctx context.Context, ids []int64) (map[int64]ProductInfo, error)
	InsertSale(ctx context.Context, sale *Sale) error
	InsertLineItems(ctx context.Context, lines []LineItem) error
	Stock() stock.TxRepository
}

// RepositoryPort is the persistence surface the service depends on.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, filter ListFilter) ([]Sale, int64, error)
	Get(ctx context.Context, id int64) (Sale, error)
	Details(ctx context.Context, id int64) (SaleDetails, error)
}

// IdempotencyPort guards against double submission of the same cart.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// AuditPort records sale events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// StatsInvalidator drops cached sales aggregates after a commit.
type StatsInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Service implements the sale workflow.
type Service struct {
	repo            RepositoryPort
	idempotency     IdempotencyPort
	audit           AuditPort
	stats           StatsInvalidator
	defaultLocation int64
}

// NewService constructs the sales service. idempotency, audit and stats may
// be nil.
func NewService(repo RepositoryPort, idempotency IdempotencyPort, audit AuditPort, stats StatsInvalidator, defaultLocation int64) *Service {
	if defaultLocation <= 0 {
		defaultLocation = 1
	}
	return &Service{repo: repo, idempotency: idempotency, audit: audit, stats: stats, defaultLocation: defaultLocation}
}

// Finalize commits a full sale in a single transaction: it validates every
// cart line, locks and decrements the stock rows in deterministic order,
// then inserts the sale header, its line items and one sale movement per
// product. Any failure rolls the whole sale back, including the stock rows
// already decremented.
func (s *Service) Finalize(ctx context.Context, req FinalizeSaleRequest, idemKey string, actorID int64) (SaleDetails, error) {
	if err := s.validate(req); err != nil {
		return SaleDetails{}, err
	}
	locationID := req.LocationID
	if locationID <= 0 {
		locationID = s.defaultLocation
	}

	if s.idempotency != nil && idemKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, idemKey, "sales"); err != nil {
			return SaleDetails{}, err
		}
	}

	var details SaleDetails
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		products, err := tx.ProductsForSale(ctx, productIDs(req.Lines))
		if err != nil {
			return fmt.Errorf("load products: %w", err)
		}

		lines := make([]LineItem, 0, len(req.Lines))
		perProduct := map[int64]int64{}
		total := decimal.Zero
		verr := shared.NewValidationError()
		for i, line := range req.Lines {
			product, ok := products[line.ProductID]
			field := "lines[" + strconv.Itoa(i) + "]"
			if !ok || !product.IsActive {
				verr.Add(field+".product_id", "product does not exist or is inactive")
				continue
			}
			unitPrice := line.UnitPrice
			if unitPrice.IsZero() {
				unitPrice = product.Price
			}
			if unitPrice.IsNegative() {
				verr.Add(field+".unit_price", "must not be negative")
				continue
			}
			lineTotal := unitPrice.Mul(decimal.NewFromInt(line.Quantity))
			total = total.Add(lineTotal)
			perProduct[line.ProductID] += line.Quantity
			lines = append(lines, LineItem{
				ProductID:   line.ProductID,
				ProductName: product.Name,
				Quantity:    line.Quantity,
				UnitPrice:   unitPrice,
				LineTotal:   lineTotal,
			})
		}
		if !verr.Empty() {
			return verr.Err()
		}
		if !req.Total.IsZero() && total.Sub(req.Total).Abs().GreaterThan(totalTolerance) {
			verr.Add("total", fmt.Sprintf("does not match line items, expected %s", total.String()))
			return verr.Err()
		}

		sale := Sale{
			Reference: uuid.New(),
			ClientID:  req.ClientID,
			Total:     total,
			CreatedBy: actorID,
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.InsertSale(ctx, &sale); err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}

		if err := s.consumeStock(ctx, tx.Stock(), perProduct, locationID, sale.ID, actorID); err != nil {
			return err
		}

		for i := range lines {
			lines[i].SaleID = sale.ID
		}
		if err := tx.InsertLineItems(ctx, lines); err != nil {
			return fmt.Errorf("insert line items: %w", err)
		}
		details = SaleDetails{Sale: sale, Lines: lines}
		return nil
	})
	if err != nil {
		if s.idempotency != nil && idemKey != "" && !errors.Is(err, shared.ErrIdempotencyConflict) {
			_ = s.idempotency.Delete(ctx, idemKey)
		}
		return SaleDetails{}, err
	}

	s.auditRecord(ctx, details.Sale, actorID)
	if s.stats != nil {
		_ = s.stats.Invalidate(ctx)
	}
	return details, nil
}

// consumeStock locks and decrements the stock row of every sold product in
// ascending product order, so concurrent finalizations always acquire row
// locks in the same sequence.
func (s *Service) consumeStock(ctx context.Context, st stock.TxRepository, perProduct map[int64]int64, locationID, saleID, actorID int64) error {
	ids := make([]int64, 0, len(perProduct))
	for id := range perProduct {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, productID := range ids {
		qty := perProduct[productID]
		entry, err := st.GetEntryForUpdate(ctx, productID, locationID)
		if err != nil {
			if errors.Is(err, stock.ErrEntryNotFound) {
				return fmt.Errorf("%w: product %d has no stock at location %d", shared.ErrInsufficientStock, productID, locationID)
			}
			return err
		}
		if entry.Quantity < qty {
			return fmt.Errorf("%w: product %d has %d, requested %d", shared.ErrInsufficientStock, productID, entry.Quantity, qty)
		}
		entry.Quantity -= qty
		entry.UpdatedAt = time.Now().UTC()
		if err := st.UpsertEntry(ctx, entry); err != nil {
			return err
		}
		refID := saleID
		if err := st.InsertMovement(ctx, stock.Movement{
			ProductID:   productID,
			LocationID:  locationID,
			Type:        stock.MovementSale,
			Delta:       -qty,
			ReferenceID: &refID,
			ActorID:     actorID,
			CreatedAt:   time.Now().UTC(),
		}); err != nil {
			return err
		}
		if err := st.AdjustProductQuantity(ctx, productID, -qty); err != nil {
			return err
		}
	}
	return nil
}

// List returns committed sales, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Sale, int64, error) {
	filter.Normalize()
	return s.repo.List(ctx, filter)
}

// Get returns a single sale header.
func (s *Service) Get(ctx context.Context, id int64) (Sale, error) {
	return s.repo.Get(ctx, id)
}

// Details returns a sale with its line items.
func (s *Service) Details(ctx context.Context, id int64) (SaleDetails, error) {
	return s.repo.Details(ctx, id)
}

func (s *Service) validate(req FinalizeSaleRequest) error {
	if err := shared.ValidateStruct(req); err != nil {
		return err
	}
	if req.Total.IsNegative() {
		verr := shared.NewValidationError()
		verr.Add("total", "must not be negative")
		return verr.Err()
	}
	return nil
}

func (s *Service) auditRecord(ctx context.Context, sale Sale, actorID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "sale.finalize",
		Entity:   "sale",
		EntityID: strconv.FormatInt(sale.ID, 10),
		Meta: map[string]any{
			"reference": sale.Reference.String(),
			"total":     sale.Total.String(),
		},
		At: time.Now().UTC(),
	})
}

func productIDs(lines []FinalizeLine) []int64 {
	seen := map[int64]struct{}{}
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	return ids
}
