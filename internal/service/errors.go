package service

import "fmt"

// ValidationError is a synchronously rejected bad input. It is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
	}
	return "validation: " + e.Message
}

// InvalidStateError is an illegal state-machine transition attempt.
type InvalidStateError struct {
	ItemID string
	Status string
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state: cannot %s item %s in status %s", e.Op, e.ItemID, e.Status)
}

// DeliveryError is a failed webhook call. It is always recorded in the
// delivery log and never propagated out of TriggerWebhooks.
type DeliveryError struct {
	SubscriptionID string
	StatusCode     int // zero when the call never completed
	Err            error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("delivery to subscription %s failed with status %d", e.SubscriptionID, e.StatusCode)
	}
	return fmt.Sprintf("delivery to subscription %s failed: %v", e.SubscriptionID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
