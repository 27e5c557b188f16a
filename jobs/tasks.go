package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockScan is the task type for the periodic low-stock sweep.
	TaskLowStockScan = "stock:low_scan"
	// TaskIdempotencyCleanup is the task type for expiring old idempotency keys.
	TaskIdempotencyCleanup = "idempotency:cleanup"
)

// LowStockScanPayload tunes the low-stock sweep.
type LowStockScanPayload struct {
	// Limit caps reported products, zero means all.
	Limit int `json:"limit,omitempty"`
}

// NewLowStockScanTask constructs the low-stock scan task.
func NewLowStockScanTask(payload LowStockScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, data), nil
}

// IdempotencyCleanupPayload tunes the idempotency key expiry job.
type IdempotencyCleanupPayload struct {
	// RetentionHours overrides the configured retention, zero keeps it.
	RetentionHours int `json:"retention_hours,omitempty"`
}

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(payload IdempotencyCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIdempotencyCleanup, data), nil
}
