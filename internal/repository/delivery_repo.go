package repository

import (
	"context"
	"errors"
	"fmt"

	"pressroom/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DeliveryLogRepository persists webhook delivery attempts. The table is
// append-only; there is no update path.
type DeliveryLogRepository interface {
	Insert(ctx context.Context, log *model.DeliveryLog) error
	GetByID(ctx context.Context, id string) (*model.DeliveryLog, error)
	ListBySubscription(ctx context.Context, subscriptionID string, limit, offset int) ([]model.DeliveryLog, error)
}

type deliveryLogRepo struct {
	pool *pgxpool.Pool
}

// NewDeliveryLogRepo creates a new DeliveryLogRepository.
func NewDeliveryLogRepo(pool *pgxpool.Pool) DeliveryLogRepository {
	return &deliveryLogRepo{pool: pool}
}

func (r *deliveryLogRepo) Insert(ctx context.Context, log *model.DeliveryLog) error {
	const q = `
        INSERT INTO webhook_delivery_logs
            (id, subscription_id, event_type, payload, status_code, response_body, success, error_message, duration_ms)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING created_at
    `
	err := r.pool.QueryRow(ctx, q,
		log.ID,
		log.SubscriptionID,
		log.EventType,
		log.Payload,
		log.StatusCode,
		log.ResponseBody,
		log.Success,
		log.ErrorMessage,
		log.DurationMs,
	).Scan(&log.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert delivery log for subscription %s: %w", log.SubscriptionID, err)
	}
	return nil
}

func (r *deliveryLogRepo) GetByID(ctx context.Context, id string) (*model.DeliveryLog, error) {
	const q = `
        SELECT id, subscription_id, event_type, payload, status_code, response_body, success, error_message, duration_ms, created_at
        FROM webhook_delivery_logs
        WHERE id = $1
    `
	var l model.DeliveryLog
	err := r.pool.QueryRow(ctx, q, id).Scan(
		&l.ID,
		&l.SubscriptionID,
		&l.EventType,
		&l.Payload,
		&l.StatusCode,
		&l.ResponseBody,
		&l.Success,
		&l.ErrorMessage,
		&l.DurationMs,
		&l.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch delivery log %s: %w", id, err)
	}
	return &l, nil
}

func (r *deliveryLogRepo) ListBySubscription(ctx context.Context, subscriptionID string, limit, offset int) ([]model.DeliveryLog, error) {
	const q = `
        SELECT id, subscription_id, event_type, payload, status_code, response_body, success, error_message, duration_ms, created_at
        FROM webhook_delivery_logs
        WHERE subscription_id = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3
    `
	rows, err := r.pool.Query(ctx, q, subscriptionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query delivery logs for subscription %s: %w", subscriptionID, err)
	}
	defer rows.Close()

	var logs []model.DeliveryLog
	for rows.Next() {
		var l model.DeliveryLog
		if err := rows.Scan(
			&l.ID,
			&l.SubscriptionID,
			&l.EventType,
			&l.Payload,
			&l.StatusCode,
			&l.ResponseBody,
			&l.Success,
			&l.ErrorMessage,
			&l.DurationMs,
			&l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan delivery log row: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delivery log row iteration: %w", err)
	}
	return logs, nil
}
