package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pressroom/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WebhookRepository persists webhook subscriptions. The dispatcher only
// touches the failure counter and status; everything else is management.
type WebhookRepository interface {
	Insert(ctx context.Context, sub *model.WebhookSubscription) error
	GetByID(ctx context.Context, id string) (*model.WebhookSubscription, error)
	ListByTenant(ctx context.Context, tenantID string) ([]model.WebhookSubscription, error)
	ListActiveByEvent(ctx context.Context, tenantID, eventType string) ([]model.WebhookSubscription, error)
	IncrementFailureCount(ctx context.Context, id string) (int, error)
	ResetFailureCount(ctx context.Context, id string) error
	SetStatus(ctx context.Context, id string, status model.SubscriptionStatus) error
	Reactivate(ctx context.Context, id string) error
	SoftDelete(ctx context.Context, id string) error
}

type webhookRepo struct {
	pool *pgxpool.Pool
}

// NewWebhookRepo creates a new WebhookRepository.
func NewWebhookRepo(pool *pgxpool.Pool) WebhookRepository {
	return &webhookRepo{pool: pool}
}

const subscriptionColumns = `
	id, tenant_id, url, secret, event_types, status, failure_count,
	custom_headers, created_at, updated_at, deleted_at
`

func scanSubscription(row pgx.Row) (*model.WebhookSubscription, error) {
	var sub model.WebhookSubscription
	var rawHeaders []byte
	err := row.Scan(
		&sub.ID,
		&sub.TenantID,
		&sub.URL,
		&sub.Secret,
		&sub.EventTypes,
		&sub.Status,
		&sub.FailureCount,
		&rawHeaders,
		&sub.CreatedAt,
		&sub.UpdatedAt,
		&sub.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(rawHeaders) > 0 {
		if err := json.Unmarshal(rawHeaders, &sub.CustomHeaders); err != nil {
			return nil, fmt.Errorf("unmarshal custom_headers for subscription %s: %w", sub.ID, err)
		}
	}
	return &sub, nil
}

func (r *webhookRepo) Insert(ctx context.Context, sub *model.WebhookSubscription) error {
	headers, err := json.Marshal(sub.CustomHeaders)
	if err != nil {
		return fmt.Errorf("marshal custom_headers: %w", err)
	}
	const q = `
        INSERT INTO webhook_subscriptions (id, tenant_id, url, secret, event_types, status, custom_headers)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING created_at, updated_at
    `
	err = r.pool.QueryRow(ctx, q,
		sub.ID, sub.TenantID, sub.URL, sub.Secret, sub.EventTypes, sub.Status, headers,
	).Scan(&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert webhook subscription for tenant %s: %w", sub.TenantID, err)
	}
	return nil
}

func (r *webhookRepo) GetByID(ctx context.Context, id string) (*model.WebhookSubscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM webhook_subscriptions WHERE id = $1 AND deleted_at IS NULL`
	sub, err := scanSubscription(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch webhook subscription %s: %w", id, err)
	}
	return sub, nil
}

func (r *webhookRepo) ListByTenant(ctx context.Context, tenantID string) ([]model.WebhookSubscription, error) {
	q := `SELECT ` + subscriptionColumns + `
        FROM webhook_subscriptions
        WHERE tenant_id = $1 AND deleted_at IS NULL
        ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, q, tenantID)
	if err != nil {
		return nil, fmt.Errorf("query webhook subscriptions for tenant %s: %w", tenantID, err)
	}
	defer rows.Close()
	return collectSubscriptions(rows)
}

// ListActiveByEvent returns the active subscriptions for a tenant whose
// event_types include eventType.
func (r *webhookRepo) ListActiveByEvent(ctx context.Context, tenantID, eventType string) ([]model.WebhookSubscription, error) {
	q := `SELECT ` + subscriptionColumns + `
        FROM webhook_subscriptions
        WHERE tenant_id = $1
          AND status = 'active'
          AND $2 = ANY(event_types)
          AND deleted_at IS NULL`
	rows, err := r.pool.Query(ctx, q, tenantID, eventType)
	if err != nil {
		return nil, fmt.Errorf("query active subscriptions for tenant %s event %s: %w", tenantID, eventType, err)
	}
	defer rows.Close()
	return collectSubscriptions(rows)
}

func collectSubscriptions(rows pgx.Rows) ([]model.WebhookSubscription, error) {
	var subs []model.WebhookSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan webhook subscription row: %w", err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("webhook subscription row iteration: %w", err)
	}
	return subs, nil
}

// IncrementFailureCount bumps the consecutive-failure counter and returns the
// new value so the caller can apply the auto-disable threshold.
func (r *webhookRepo) IncrementFailureCount(ctx context.Context, id string) (int, error) {
	const q = `
        UPDATE webhook_subscriptions
        SET failure_count = failure_count + 1, updated_at = NOW()
        WHERE id = $1 AND deleted_at IS NULL
        RETURNING failure_count
    `
	var count int
	if err := r.pool.QueryRow(ctx, q, id).Scan(&count); err != nil {
		return 0, fmt.Errorf("increment failure count for subscription %s: %w", id, err)
	}
	return count, nil
}

func (r *webhookRepo) ResetFailureCount(ctx context.Context, id string) error {
	const q = `
        UPDATE webhook_subscriptions
        SET failure_count = 0, updated_at = NOW()
        WHERE id = $1 AND deleted_at IS NULL
    `
	if _, err := r.pool.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("reset failure count for subscription %s: %w", id, err)
	}
	return nil
}

func (r *webhookRepo) SetStatus(ctx context.Context, id string, status model.SubscriptionStatus) error {
	const q = `
        UPDATE webhook_subscriptions
        SET status = $2, updated_at = NOW()
        WHERE id = $1 AND deleted_at IS NULL
    `
	if _, err := r.pool.Exec(ctx, q, id, status); err != nil {
		return fmt.Errorf("set status %s for subscription %s: %w", status, id, err)
	}
	return nil
}

// Reactivate re-enables a disabled subscription and clears its failure
// counter. Auto-disabled subscriptions only come back through this path.
func (r *webhookRepo) Reactivate(ctx context.Context, id string) error {
	const q = `
        UPDATE webhook_subscriptions
        SET status = 'active', failure_count = 0, updated_at = NOW()
        WHERE id = $1 AND deleted_at IS NULL
    `
	if _, err := r.pool.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("reactivate subscription %s: %w", id, err)
	}
	return nil
}

func (r *webhookRepo) SoftDelete(ctx context.Context, id string) error {
	const q = `UPDATE webhook_subscriptions SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	if _, err := r.pool.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("soft delete subscription %s: %w", id, err)
	}
	return nil
}
