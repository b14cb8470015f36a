package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pressroom/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TransitionPatch is the set of columns a conditional status transition may
// touch. Nil fields leave the stored value unchanged; RetryAfter is written
// unconditionally so a transition out of the retry window clears it.
type TransitionPatch struct {
	Status            model.ItemStatus
	IncrementAttempts bool
	RetryAfter        *time.Time
	LastError         *string
	ErrorKind         *string
	Result            *string
	QueuedAt          *time.Time
	StartedAt         *time.Time
	CompletedAt       *time.Time
}

// QueueRepository persists publishing queue items. ConditionalTransition and
// PromoteIfDue are the only mutation paths for status and are atomic on
// (id, current status); a false return means the condition no longer held.
type QueueRepository interface {
	Insert(ctx context.Context, item *model.QueueItem) error
	GetByID(ctx context.Context, id string) (*model.QueueItem, error)
	ListByTenant(ctx context.Context, tenantID string, status *model.ItemStatus, limit, offset int) ([]model.QueueItem, error)
	FindDueRetries(ctx context.Context, platform string, limit int) ([]model.QueueItem, error)
	FindDueScheduled(ctx context.Context, platform string, limit int) ([]model.QueueItem, error)
	FindStaleQueued(ctx context.Context, olderThan time.Time, limit int) ([]model.QueueItem, error)
	ConditionalTransition(ctx context.Context, id string, from model.ItemStatus, patch TransitionPatch) (bool, error)
	PromoteIfDue(ctx context.Context, id string) (bool, error)
	SoftDelete(ctx context.Context, id string) error
}

type queueRepo struct {
	pool *pgxpool.Pool
}

// NewQueueRepo creates a new QueueRepository.
func NewQueueRepo(pool *pgxpool.Pool) QueueRepository {
	return &queueRepo{pool: pool}
}

const queueItemColumns = `
	id, tenant_id, content_id, platform, status, attempts,
	last_error, error_kind, scheduled_for, retry_after, result,
	created_at, updated_at, queued_at, started_at, completed_at, deleted_at
`

func scanQueueItem(row pgx.Row) (*model.QueueItem, error) {
	var it model.QueueItem
	err := row.Scan(
		&it.ID,
		&it.TenantID,
		&it.ContentID,
		&it.Platform,
		&it.Status,
		&it.Attempts,
		&it.LastError,
		&it.ErrorKind,
		&it.ScheduledFor,
		&it.RetryAfter,
		&it.Result,
		&it.CreatedAt,
		&it.UpdatedAt,
		&it.QueuedAt,
		&it.StartedAt,
		&it.CompletedAt,
		&it.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *queueRepo) Insert(ctx context.Context, item *model.QueueItem) error {
	const q = `
        INSERT INTO publish_queue_items (id, tenant_id, content_id, platform, status, scheduled_for)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING created_at, updated_at
    `
	err := r.pool.QueryRow(ctx, q,
		item.ID, item.TenantID, item.ContentID, item.Platform, item.Status, item.ScheduledFor,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert queue item for tenant %s: %w", item.TenantID, err)
	}
	return nil
}

func (r *queueRepo) GetByID(ctx context.Context, id string) (*model.QueueItem, error) {
	q := `SELECT ` + queueItemColumns + ` FROM publish_queue_items WHERE id = $1 AND deleted_at IS NULL`
	it, err := scanQueueItem(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch queue item %s: %w", id, err)
	}
	return it, nil
}

func (r *queueRepo) ListByTenant(ctx context.Context, tenantID string, status *model.ItemStatus, limit, offset int) ([]model.QueueItem, error) {
	q := `SELECT ` + queueItemColumns + `
        FROM publish_queue_items
        WHERE tenant_id = $1 AND deleted_at IS NULL AND ($2::text IS NULL OR status = $2)
        ORDER BY created_at DESC
        LIMIT $3 OFFSET $4`
	rows, err := r.pool.Query(ctx, q, tenantID, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query queue items for tenant %s: %w", tenantID, err)
	}
	defer rows.Close()
	return collectQueueItems(rows)
}

// FindDueRetries selects pending items whose retry window has elapsed,
// oldest-due first. An empty platform matches all platforms.
func (r *queueRepo) FindDueRetries(ctx context.Context, platform string, limit int) ([]model.QueueItem, error) {
	q := `SELECT ` + queueItemColumns + `
        FROM publish_queue_items
        WHERE status = 'pending'
          AND retry_after IS NOT NULL
          AND retry_after <= NOW()
          AND deleted_at IS NULL
          AND ($1 = '' OR platform = $1)
        ORDER BY retry_after ASC
        LIMIT $2`
	rows, err := r.pool.Query(ctx, q, platform, limit)
	if err != nil {
		return nil, fmt.Errorf("query due retries: %w", err)
	}
	defer rows.Close()
	return collectQueueItems(rows)
}

// FindDueScheduled selects pending items whose activation time has arrived.
// Items with no scheduled_for are never returned; they take the
// immediate-dispatch path at enqueue time.
func (r *queueRepo) FindDueScheduled(ctx context.Context, platform string, limit int) ([]model.QueueItem, error) {
	q := `SELECT ` + queueItemColumns + `
        FROM publish_queue_items
        WHERE status = 'pending'
          AND scheduled_for IS NOT NULL
          AND scheduled_for <= NOW()
          AND deleted_at IS NULL
          AND ($1 = '' OR platform = $1)
        ORDER BY scheduled_for ASC
        LIMIT $2`
	rows, err := r.pool.Query(ctx, q, platform, limit)
	if err != nil {
		return nil, fmt.Errorf("query due scheduled items: %w", err)
	}
	defer rows.Close()
	return collectQueueItems(rows)
}

// FindStaleQueued selects queued items whose dispatch notification apparently
// went unanswered: still queued well past their promotion time. Oldest first,
// so repeated sweeps drain the backlog in order.
func (r *queueRepo) FindStaleQueued(ctx context.Context, olderThan time.Time, limit int) ([]model.QueueItem, error) {
	q := `SELECT ` + queueItemColumns + `
        FROM publish_queue_items
        WHERE status = 'queued'
          AND queued_at IS NOT NULL
          AND queued_at <= $1
          AND deleted_at IS NULL
        ORDER BY queued_at ASC
        LIMIT $2`
	rows, err := r.pool.Query(ctx, q, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("query stale queued items: %w", err)
	}
	defer rows.Close()
	return collectQueueItems(rows)
}

func collectQueueItems(rows pgx.Rows) ([]model.QueueItem, error) {
	var items []model.QueueItem
	for rows.Next() {
		it, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queue item row: %w", err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("queue item row iteration: %w", err)
	}
	return items, nil
}

// ConditionalTransition applies patch only while the row still holds the
// expected status. The WHERE guard on (id, status) is the concurrency-safety
// mechanism for the whole queue: a lost race updates zero rows.
func (r *queueRepo) ConditionalTransition(ctx context.Context, id string, from model.ItemStatus, patch TransitionPatch) (bool, error) {
	if !from.CanTransitionTo(patch.Status) {
		return false, fmt.Errorf("illegal transition %s -> %s for item %s", from, patch.Status, id)
	}
	attemptDelta := 0
	if patch.IncrementAttempts {
		attemptDelta = 1
	}
	const q = `
        UPDATE publish_queue_items
        SET status = $3,
            attempts = attempts + $4,
            retry_after = $5,
            last_error = COALESCE($6, last_error),
            error_kind = COALESCE($7, error_kind),
            result = COALESCE($8, result),
            queued_at = COALESCE($9, queued_at),
            started_at = COALESCE($10, started_at),
            completed_at = COALESCE($11, completed_at),
            updated_at = NOW()
        WHERE id = $1 AND status = $2 AND deleted_at IS NULL
    `
	tag, err := r.pool.Exec(ctx, q,
		id, from, patch.Status, attemptDelta, patch.RetryAfter,
		patch.LastError, patch.ErrorKind, patch.Result,
		patch.QueuedAt, patch.StartedAt, patch.CompletedAt,
	)
	if err != nil {
		return false, fmt.Errorf("transition queue item %s to %s: %w", id, patch.Status, err)
	}
	return tag.RowsAffected() == 1, nil
}

// PromoteIfDue activates a scheduled item: pending -> queued, but only while
// the row is still pending and its scheduled_for has arrived. Safe under
// concurrent duplicate invocation; the loser observes false.
func (r *queueRepo) PromoteIfDue(ctx context.Context, id string) (bool, error) {
	const q = `
        UPDATE publish_queue_items
        SET status = 'queued', queued_at = NOW(), updated_at = NOW()
        WHERE id = $1
          AND status = 'pending'
          AND scheduled_for IS NOT NULL
          AND scheduled_for <= NOW()
          AND deleted_at IS NULL
    `
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, fmt.Errorf("promote queue item %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *queueRepo) SoftDelete(ctx context.Context, id string) error {
	const q = `UPDATE publish_queue_items SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.pool.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("soft delete queue item %s: %w", id, err)
	}
	return nil
}
