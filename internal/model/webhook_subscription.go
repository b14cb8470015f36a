package model

import "time"

// SubscriptionStatus is the state of a webhook subscription.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionDisabled SubscriptionStatus = "disabled"
)

// WebhookSubscription is a tenant-configured endpoint that receives signed
// event notifications. The secret is generated once at creation and is never
// returned by read operations.
type WebhookSubscription struct {
	ID            string             `db:"id"`
	TenantID      string             `db:"tenant_id"`
	URL           string             `db:"url"`
	Secret        string             `db:"secret"`
	EventTypes    []string           `db:"event_types"`
	Status        SubscriptionStatus `db:"status"`
	FailureCount  int                `db:"failure_count"`
	CustomHeaders map[string]string  `db:"custom_headers"`
	CreatedAt     time.Time          `db:"created_at"`
	UpdatedAt     time.Time          `db:"updated_at"`
	DeletedAt     *time.Time         `db:"deleted_at"`
}

// SubscribedTo reports whether the subscription listens for eventType.
func (s *WebhookSubscription) SubscribedTo(eventType string) bool {
	for _, et := range s.EventTypes {
		if et == eventType {
			return true
		}
	}
	return false
}
