package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// IdempotencyCleanupJob expires idempotency keys past their retention window.
type IdempotencyCleanupJob struct {
	Store     *shared.IdempotencyStore
	Logger    *slog.Logger
	Retention time.Duration
}

// NewIdempotencyCleanupJob initialises the cleanup handler.
func NewIdempotencyCleanupJob(store *shared.IdempotencyStore, logger *slog.Logger, retention time.Duration) *IdempotencyCleanupJob {
	if retention <= 0 {
		retention = 168 * time.Hour
	}
	return &IdempotencyCleanupJob{Store: store, Logger: logger, Retention: retention}
}

// Handle executes the cleanup.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	var payload IdempotencyCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	retention := j.Retention
	if payload.RetentionHours > 0 {
		retention = time.Duration(payload.RetentionHours) * time.Hour
	}
	if err := j.Store.Cleanup(ctx, retention); err != nil {
		return err
	}
	j.Logger.Info("idempotency cleanup finished", slog.Duration("retention", retention))
	return nil
}
