package stock

import (
	"context"
	"errors"
	"fmt"

	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Entries(ctx context.Context, productID int64) ([]Entry, error)
	TotalStock(ctx context.Context, productID int64) (int64, error)
	Movements(ctx context.Context, filter MovementFilter) ([]Movement, error)
	ProductTotals(ctx context.Context) ([]ProductStock, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service maintains non-negative per-location quantities and the movement log.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service. audit may be nil.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Adjust applies a relative quantity change as a single atomic unit: the
// entry row is locked, the new quantity computed and checked, and the
// movement appended, all inside one transaction.
func (s *Service) Adjust(ctx context.Context, input AdjustInput) (Entry, error) {
	if input.ProductID == 0 || input.LocationID == 0 {
		return Entry{}, errors.New("stock: product and location required")
	}
	if input.Delta == 0 {
		return Entry{}, ErrInvalidDelta
	}
	if input.Type == "" {
		input.Type = MovementAdjustment
	}

	var result Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntryForUpdate(ctx, input.ProductID, input.LocationID)
		if err != nil && !errors.Is(err, ErrEntryNotFound) {
			return err
		}
		newQty := entry.Quantity + input.Delta
		if newQty < 0 {
			return fmt.Errorf("%w: product %d at location %d has %d, requested %d",
				shared.ErrInsufficientStock, input.ProductID, input.LocationID, entry.Quantity, -input.Delta)
		}
		entry.ProductID = input.ProductID
		entry.LocationID = input.LocationID
		entry.Quantity = newQty
		if err := tx.UpsertEntry(ctx, entry); err != nil {
			return err
		}
		if err := tx.InsertMovement(ctx, Movement{
			ProductID:   input.ProductID,
			LocationID:  input.LocationID,
			Type:        input.Type,
			Delta:       input.Delta,
			ReferenceID: input.ReferenceID,
			ActorID:     input.ActorID,
		}); err != nil {
			return err
		}
		// Keep the denormalized product total in step with the ledger.
		if err := tx.AdjustProductQuantity(ctx, input.ProductID, input.Delta); err != nil {
			return err
		}
		result = entry
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	s.auditRecord(ctx, input)
	return result, nil
}

// Set replaces the on-hand quantity at a location with an absolute value,
// recorded as an adjustment movement carrying the computed delta.
func (s *Service) Set(ctx context.Context, productID, locationID, quantity, actorID int64) (Entry, error) {
	if productID == 0 || locationID == 0 {
		return Entry{}, errors.New("stock: product and location required")
	}
	if quantity < 0 {
		return Entry{}, fmt.Errorf("%w: quantity must not be negative", shared.ErrInsufficientStock)
	}

	var result Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntryForUpdate(ctx, productID, locationID)
		if err != nil && !errors.Is(err, ErrEntryNotFound) {
			return err
		}
		delta := quantity - entry.Quantity
		if delta == 0 {
			result = entry
			return nil
		}
		entry.ProductID = productID
		entry.LocationID = locationID
		entry.Quantity = quantity
		if err := tx.UpsertEntry(ctx, entry); err != nil {
			return err
		}
		if err := tx.InsertMovement(ctx, Movement{
			ProductID:  productID,
			LocationID: locationID,
			Type:       MovementAdjustment,
			Delta:      delta,
			ActorID:    actorID,
		}); err != nil {
			return err
		}
		if err := tx.AdjustProductQuantity(ctx, productID, delta); err != nil {
			return err
		}
		result = entry
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return result, nil
}

// RecordPurchase posts an inbound movement, used for opening stock and
// restocking. Satisfies the catalog.StockRecorder port.
func (s *Service) RecordPurchase(ctx context.Context, productID, locationID, qty, actorID int64) error {
	if qty <= 0 {
		return ErrInvalidDelta
	}
	_, err := s.Adjust(ctx, AdjustInput{
		ProductID:  productID,
		LocationID: locationID,
		Delta:      qty,
		Type:       MovementPurchase,
		ActorID:    actorID,
	})
	return err
}

// Entries lists per-location quantities for a product.
func (s *Service) Entries(ctx context.Context, productID int64) ([]Entry, error) {
	if productID <= 0 {
		return nil, shared.ErrNotFound
	}
	return s.repo.Entries(ctx, productID)
}

// TotalStock sums quantity across all locations. Display only; the write
// path checks each location independently.
func (s *Service) TotalStock(ctx context.Context, productID int64) (int64, error) {
	return s.repo.TotalStock(ctx, productID)
}

// Movements lists the append-only movement log.
func (s *Service) Movements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	if filter.Limit <= 0 {
		filter.Limit = 200
	}
	return s.repo.Movements(ctx, filter)
}

// LowStockProducts returns active products classified as low on stock.
func (s *Service) LowStockProducts(ctx context.Context) ([]ProductStock, error) {
	totals, err := s.repo.ProductTotals(ctx)
	if err != nil {
		return nil, err
	}
	low := make([]ProductStock, 0)
	for _, ps := range totals {
		if IsLowStock(ps.Total, ps.Price) {
			low = append(low, ps)
		}
	}
	return low, nil
}

func (s *Service) auditRecord(ctx context.Context, input AdjustInput) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  input.ActorID,
		Action:   fmt.Sprintf("stock:%s", input.Type),
		Entity:   "stock_entry",
		EntityID: fmt.Sprintf("%d:%d", input.ProductID, input.LocationID),
		Meta: map[string]any{
			"product_id":  input.ProductID,
			"location_id": input.LocationID,
			"delta":       input.Delta,
		},
	})
}
