package audit

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// Filter narrows the audit log listing.
type Filter struct {
	Entity  string
	Action  string
	ActorID int64
	Page    int
	Limit   int
}

func (f *Filter) normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 50
	}
	if f.Limit > 500 {
		f.Limit = 500
	}
}

// Repository reads the audit trail. Writes go through shared.AuditLogger.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns audit entries newest first plus the unpaged total.
func (r *Repository) List(ctx context.Context, filter Filter) ([]shared.AuditLog, int64, error) {
	filter.normalize()

	where := " WHERE 1=1"
	args := []any{}
	if filter.Entity != "" {
		args = append(args, filter.Entity)
		where += " AND entity = $" + strconv.Itoa(len(args))
	}
	if filter.Action != "" {
		args = append(args, filter.Action)
		where += " AND action = $" + strconv.Itoa(len(args))
	}
	if filter.ActorID > 0 {
		args = append(args, filter.ActorID)
		where += " AND actor_id = $" + strconv.Itoa(len(args))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM audit_logs"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	query := "SELECT id, actor_id, action, entity, entity_id, meta, occurred_at FROM audit_logs" + where +
		" ORDER BY occurred_at DESC, id DESC LIMIT $" + strconv.Itoa(len(args)-1) + " OFFSET $" + strconv.Itoa(len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	logs := []shared.AuditLog{}
	for rows.Next() {
		var log shared.AuditLog
		var meta []byte
		if err := rows.Scan(&log.ID, &log.ActorID, &log.Action, &log.Entity, &log.EntityID, &meta, &log.At); err != nil {
			return nil, 0, err
		}
		if len(meta) > 0 {
			_ = json.Unmarshal(meta, &log.Meta)
		}
		logs = append(logs, log)
	}
	return logs, total, rows.Err()
}
