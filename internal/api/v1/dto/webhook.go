package dto

import (
	"time"

	"pressroom/internal/model"
)

// WebhookCreateRequestDTO is the body of a subscription creation request.
type WebhookCreateRequestDTO struct {
	URL           string            `json:"url" validate:"required,url"`
	EventTypes    []string          `json:"event_types" validate:"required,min=1,dive,required"`
	CustomHeaders map[string]string `json:"custom_headers,omitempty"`
}

// WebhookResponseDTO is returned for a subscription. The signing secret is
// never included; see WebhookCreateResponseDTO.
type WebhookResponseDTO struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	URL          string    `json:"url"`
	EventTypes   []string  `json:"event_types"`
	Status       string    `json:"status"`
	FailureCount int       `json:"failure_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// WebhookCreateResponseDTO is returned once, at creation time; it is the only
// place the signing secret ever appears.
type WebhookCreateResponseDTO struct {
	WebhookResponseDTO
	Secret string `json:"secret"`
}

// NewWebhookResponse maps a subscription onto its response DTO.
func NewWebhookResponse(sub *model.WebhookSubscription) WebhookResponseDTO {
	return WebhookResponseDTO{
		ID:           sub.ID,
		TenantID:     sub.TenantID,
		URL:          sub.URL,
		EventTypes:   sub.EventTypes,
		Status:       string(sub.Status),
		FailureCount: sub.FailureCount,
		CreatedAt:    sub.CreatedAt,
		UpdatedAt:    sub.UpdatedAt,
	}
}

// DeliveryLogResponseDTO is returned for a delivery log entry.
type DeliveryLogResponseDTO struct {
	ID             string    `json:"id"`
	SubscriptionID string    `json:"subscription_id"`
	EventType      string    `json:"event_type"`
	StatusCode     *int      `json:"status_code,omitempty"`
	ResponseBody   *string   `json:"response_body,omitempty"`
	Success        bool      `json:"success"`
	ErrorMessage   *string   `json:"error_message,omitempty"`
	DurationMs     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewDeliveryLogResponse maps a delivery log onto its response DTO.
func NewDeliveryLogResponse(l *model.DeliveryLog) DeliveryLogResponseDTO {
	return DeliveryLogResponseDTO{
		ID:             l.ID,
		SubscriptionID: l.SubscriptionID,
		EventType:      l.EventType,
		StatusCode:     l.StatusCode,
		ResponseBody:   l.ResponseBody,
		Success:        l.Success,
		ErrorMessage:   l.ErrorMessage,
		DurationMs:     l.DurationMs,
		CreatedAt:      l.CreatedAt,
	}
}
