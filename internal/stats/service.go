package stats

import (
	"context"
	"time"
)

// Repository is the query surface the service depends on.
type Repository interface {
	SalesSummary(ctx context.Context, filter SummaryFilter) (Summary, error)
	SalesForDay(ctx context.Context, day time.Time) (DayBreakdown, error)
}

// Service serves sales statistics through the versioned cache.
type Service struct {
	repo  Repository
	cache *Cache
}

// NewService constructs the stats service. cache may be nil, in which case
// every call hits the database.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

// SalesSummary returns per-product sales aggregates for the window.
func (s *Service) SalesSummary(ctx context.Context, filter SummaryFilter) (Summary, error) {
	key, err := s.cache.BuildKey(ctx, "stats", "summary", boundPart(filter.From), boundPart(filter.To))
	if err != nil {
		return Summary{}, err
	}
	var summary Summary
	err = s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (interface{}, error) {
		return s.repo.SalesSummary(ctx, filter)
	})
	return summary, err
}

// SalesToday returns the register-close breakdown for the given day,
// defaulting to the current UTC day.
func (s *Service) SalesToday(ctx context.Context, day time.Time) (DayBreakdown, error) {
	if day.IsZero() {
		day = time.Now().UTC()
	}
	day = day.Truncate(24 * time.Hour)

	key, err := s.cache.BuildKey(ctx, "stats", "today", day.Format("2006-01-02"))
	if err != nil {
		return DayBreakdown{}, err
	}
	var breakdown DayBreakdown
	err = s.cache.FetchJSON(ctx, key, &breakdown, func(ctx context.Context) (interface{}, error) {
		return s.repo.SalesForDay(ctx, day)
	})
	return breakdown, err
}

// Invalidate bumps the cache version. Called after every committed sale.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func boundPart(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format("2006-01-02T15:04:05")
}
