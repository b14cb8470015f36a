package dto

import (
	"time"

	"pressroom/internal/model"
)

// EnqueueRequestDTO is the body of a publish enqueue request.
type EnqueueRequestDTO struct {
	ContentID    string     `json:"content_id" validate:"required"`
	Platform     string     `json:"platform" validate:"required"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
}

// QueueItemResponseDTO is returned for a single queue item.
type QueueItemResponseDTO struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	ContentID    string     `json:"content_id"`
	Platform     string     `json:"platform"`
	Status       string     `json:"status"`
	Attempts     int        `json:"attempts"`
	LastError    *string    `json:"last_error,omitempty"`
	ErrorKind    *string    `json:"error_kind,omitempty"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
	RetryAfter   *time.Time `json:"retry_after,omitempty"`
	Result       *string    `json:"result,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	QueuedAt     *time.Time `json:"queued_at,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// NewQueueItemResponse maps a queue item onto its response DTO.
func NewQueueItemResponse(it *model.QueueItem) QueueItemResponseDTO {
	return QueueItemResponseDTO{
		ID:           it.ID,
		TenantID:     it.TenantID,
		ContentID:    it.ContentID,
		Platform:     it.Platform,
		Status:       string(it.Status),
		Attempts:     it.Attempts,
		LastError:    it.LastError,
		ErrorKind:    it.ErrorKind,
		ScheduledFor: it.ScheduledFor,
		RetryAfter:   it.RetryAfter,
		Result:       it.Result,
		CreatedAt:    it.CreatedAt,
		UpdatedAt:    it.UpdatedAt,
		QueuedAt:     it.QueuedAt,
		StartedAt:    it.StartedAt,
		CompletedAt:  it.CompletedAt,
	}
}
