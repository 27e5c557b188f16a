package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// RepositoryPort is the persistence surface the service depends on.
type RepositoryPort interface {
	Insert(ctx context.Context, change Change) error
	History(ctx context.Context, productID int64, dir SortDir) ([]Change, error)
}

// Service records and serves product price history.
type Service struct {
	repo RepositoryPort
}

// NewService constructs the pricing service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// RecordChange appends the price a product just changed to. Satisfies the
// catalog module's price recorder port.
func (s *Service) RecordChange(ctx context.Context, productID int64, price decimal.Decimal, at time.Time) error {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return s.repo.Insert(ctx, Change{ProductID: productID, Price: price, ChangedAt: at})
}

// History lists the price changes of a product. An invalid direction falls
// back to newest first.
func (s *Service) History(ctx context.Context, productID int64, dir SortDir) ([]Change, error) {
	if !dir.valid() {
		dir = Desc
	}
	return s.repo.History(ctx, productID, dir)
}
