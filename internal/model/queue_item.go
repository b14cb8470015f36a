package model

import "time"

// ItemStatus is the lifecycle state of a publishing queue item.
type ItemStatus string

const (
	StatusPending    ItemStatus = "pending"
	StatusQueued     ItemStatus = "queued"
	StatusPublishing ItemStatus = "publishing"
	StatusPublished  ItemStatus = "published"
	StatusFailed     ItemStatus = "failed"
	StatusCancelled  ItemStatus = "cancelled"
)

// transitions encodes the legal edges of the item state machine.
// publishing -> pending is the retry edge.
var transitions = map[ItemStatus][]ItemStatus{
	StatusPending:    {StatusQueued, StatusCancelled},
	StatusQueued:     {StatusPublishing, StatusCancelled},
	StatusPublishing: {StatusPublished, StatusFailed, StatusPending},
}

// CanTransitionTo reports whether moving from s to next is a legal edge.
// Terminal states (published, failed, cancelled) have no outgoing edges.
func (s ItemStatus) CanTransitionTo(next ItemStatus) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status never mutates again.
func (s ItemStatus) Terminal() bool {
	return s == StatusPublished || s == StatusFailed || s == StatusCancelled
}

// QueueItem is one unit of deferred work: publish this content to this platform.
type QueueItem struct {
	ID           string     `db:"id"`
	TenantID     string     `db:"tenant_id"`
	ContentID    string     `db:"content_id"`
	Platform     string     `db:"platform"`
	Status       ItemStatus `db:"status"`
	Attempts     int        `db:"attempts"`
	LastError    *string    `db:"last_error"`
	ErrorKind    *string    `db:"error_kind"`
	ScheduledFor *time.Time `db:"scheduled_for"`
	RetryAfter   *time.Time `db:"retry_after"`
	Result       *string    `db:"result"` // JSON result metadata, e.g. remote URL
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	QueuedAt     *time.Time `db:"queued_at"`
	StartedAt    *time.Time `db:"started_at"`
	CompletedAt  *time.Time `db:"completed_at"`
	DeletedAt    *time.Time `db:"deleted_at"`
}
