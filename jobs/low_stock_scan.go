package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-pos/meridian-pos/internal/stock"
)

// LowStockLister is the slice of the stock module the scan needs.
type LowStockLister interface {
	LowStockProducts(ctx context.Context) ([]stock.ProductStock, error)
}

// LowStockScanJob sweeps the catalog for products that dropped under their
// restock threshold and logs them for the purchasing workflow.
type LowStockScanJob struct {
	Stock  LowStockLister
	Logger *slog.Logger
}

// NewLowStockScanJob initialises the low-stock handler.
func NewLowStockScanJob(stockSvc LowStockLister, logger *slog.Logger) *LowStockScanJob {
	return &LowStockScanJob{Stock: stockSvc, Logger: logger}
}

// Handle executes the sweep.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Stock == nil {
		return errors.New("low stock scan: handler not configured")
	}
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	low, err := j.Stock.LowStockProducts(ctx)
	if err != nil {
		return err
	}
	if payload.Limit > 0 && len(low) > payload.Limit {
		low = low[:payload.Limit]
	}
	for _, p := range low {
		j.Logger.Warn("product low on stock",
			slog.Int64("product_id", p.ProductID),
			slog.String("sku", p.SKU),
			slog.String("name", p.Name),
			slog.Int64("total", p.Total),
			slog.String("price", p.Price.String()))
	}
	j.Logger.Info("low stock scan finished", slog.Int("flagged", len(low)))
	return nil
}
