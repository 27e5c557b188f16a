package stats

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type mockRepo struct {
	summary      Summary
	summaryCalls int
	day          DayBreakdown
	dayCalls     int
}

func (m *mockRepo) SalesSummary(ctx context.Context, filter SummaryFilter) (Summary, error) {
	m.summaryCalls++
	return m.summary, nil
}

func (m *mockRepo) SalesForDay(ctx context.Context, day time.Time) (DayBreakdown, error) {
	m.dayCalls++
	return m.day, nil
}

func newTestService(t *testing.T, repo Repository) (*Service, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, time.Minute)
	svc := NewService(repo, cache)
	return svc, func() {
		_ = client.Close()
		mr.Close()
	}
}

func TestSalesSummaryCaches(t *testing.T) {
	repo := &mockRepo{
		summary: Summary{
			Items: []ProductSales{
				{ProductID: 1, Name: "Coffee 500g", Units: 12, Revenue: decimal.NewFromFloat(150)},
			},
			Revenue: decimal.NewFromFloat(150),
			Sales:   4,
		},
	}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	ctx := context.Background()
	summary, err := svc.SalesSummary(ctx, SummaryFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !summary.Revenue.Equal(decimal.NewFromFloat(150)) {
		t.Fatalf("expected revenue 150 got %s", summary.Revenue)
	}
	if repo.summaryCalls != 1 {
		t.Fatalf("expected 1 repo call, got %d", repo.summaryCalls)
	}

	// Second call should hit cache.
	if _, err := svc.SalesSummary(ctx, SummaryFilter{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.summaryCalls != 1 {
		t.Fatalf("expected cached result, repo called %d times", repo.summaryCalls)
	}

	// A committed sale bumps the version and forces a reload.
	if err := svc.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	repo.summary.Sales = 5
	summary, err = svc.SalesSummary(ctx, SummaryFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Sales != 5 {
		t.Fatalf("expected refreshed sale count 5 got %d", summary.Sales)
	}
	if repo.summaryCalls != 2 {
		t.Fatalf("expected repo to refresh, calls %d", repo.summaryCalls)
	}
}

func TestSalesSummaryWindowsGetDistinctKeys(t *testing.T) {
	repo := &mockRepo{}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	ctx := context.Background()
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.SalesSummary(ctx, SummaryFilter{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.SalesSummary(ctx, SummaryFilter{From: &from}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.summaryCalls != 2 {
		t.Fatalf("expected one repo call per window, got %d", repo.summaryCalls)
	}
}

func TestSalesTodayDefaultsToCurrentDay(t *testing.T) {
	repo := &mockRepo{
		day: DayBreakdown{
			Date:  time.Now().UTC().Format("2006-01-02"),
			Items: []ProductSales{{ProductID: 2, Name: "Grinder", Units: 1, Revenue: decimal.NewFromFloat(3500)}},
			Total: decimal.NewFromFloat(3500),
		},
	}
	svc, cleanup := newTestService(t, repo)
	defer cleanup()

	breakdown, err := svc.SalesToday(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.dayCalls != 1 {
		t.Fatalf("expected 1 repo call, got %d", repo.dayCalls)
	}
	if !breakdown.Total.Equal(decimal.NewFromFloat(3500)) {
		t.Fatalf("expected total 3500 got %s", breakdown.Total)
	}
}
