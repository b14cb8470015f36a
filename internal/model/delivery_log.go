package model

import "time"

// DeliveryLog is one immutable record of a webhook delivery attempt.
// Rows are append-only: a retried delivery creates a new record.
type DeliveryLog struct {
	ID             string    `db:"id"`
	SubscriptionID string    `db:"subscription_id"`
	EventType      string    `db:"event_type"`
	Payload        string    `db:"payload"` // the serialized envelope, JSON
	StatusCode     *int      `db:"status_code"`
	ResponseBody   *string   `db:"response_body"`
	Success        bool      `db:"success"`
	ErrorMessage   *string   `db:"error_message"`
	DurationMs     int64     `db:"duration_ms"`
	CreatedAt      time.Time `db:"created_at"`
}
