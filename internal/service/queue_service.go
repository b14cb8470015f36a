package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pressroom/internal/model"
	"pressroom/internal/publish"
	"pressroom/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DispatchNotifier announces a freshly queued item so the immediate-dispatch
// path picks it up. Implemented over the Pub/Sub dispatch topic.
type DispatchNotifier interface {
	NotifyQueued(ctx context.Context, itemID string) error
}

// QueueConfig are the state-machine knobs, passed in explicitly so the core
// stays testable without environment mutation.
type QueueConfig struct {
	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// EnqueueOptions are the optional parts of an enqueue request.
type EnqueueOptions struct {
	ScheduledFor *time.Time
}

// QueueService owns the queue item state machine. All status mutations go
// through the repository's atomic conditional transitions.
type QueueService interface {
	Enqueue(ctx context.Context, tenantID, contentID, platform string, opts EnqueueOptions) (*model.QueueItem, error)
	Cancel(ctx context.Context, id string) error
	GetItem(ctx context.Context, id string) (*model.QueueItem, error)
	ListItems(ctx context.Context, tenantID string, status *model.ItemStatus, limit, offset int) ([]model.QueueItem, error)
	PromoteIfDue(ctx context.Context, id string) (bool, error)
	ReannounceStale(ctx context.Context, olderThan time.Time, limit int) (int, error)
	MarkStarted(ctx context.Context, id string) (bool, error)
	MarkCompleted(ctx context.Context, id string, result *publish.Result) (bool, error)
	MarkFailed(ctx context.Context, item *model.QueueItem, cause error, cls publish.Classification) (model.ItemStatus, error)
	Backoff(attempt int) time.Duration
}

type queueService struct {
	repo     repository.QueueRepository
	notifier DispatchNotifier
	cfg      QueueConfig
	logger   zerolog.Logger
}

// NewQueueService creates a new QueueService.
func NewQueueService(repo repository.QueueRepository, notifier DispatchNotifier, cfg QueueConfig, logger zerolog.Logger) QueueService {
	return &queueService{
		repo:     repo,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.With().Str("service", "queue").Logger(),
	}
}

func (s *queueService) Enqueue(ctx context.Context, tenantID, contentID, platform string, opts EnqueueOptions) (*model.QueueItem, error) {
	if tenantID == "" {
		return nil, &ValidationError{Field: "tenant_id", Message: "is required"}
	}
	if contentID == "" {
		return nil, &ValidationError{Field: "content_id", Message: "is required"}
	}
	if platform == "" {
		return nil, &ValidationError{Field: "platform", Message: "is required"}
	}

	now := time.Now()
	item := &model.QueueItem{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		ContentID: contentID,
		Platform:  platform,
		Status:    model.StatusPending,
	}
	scheduled := opts.ScheduledFor != nil && opts.ScheduledFor.After(now)
	if scheduled {
		item.ScheduledFor = opts.ScheduledFor
	}
	if err := s.repo.Insert(ctx, item); err != nil {
		return nil, err
	}

	// Unscheduled items skip the activation worker: promote immediately and
	// announce on the dispatch topic.
	if !scheduled {
		queuedAt := time.Now()
		ok, err := s.repo.ConditionalTransition(ctx, item.ID, model.StatusPending, repository.TransitionPatch{
			Status:   model.StatusQueued,
			QueuedAt: &queuedAt,
		})
		if err != nil {
			return nil, err
		}
		if ok {
			item.Status = model.StatusQueued
			item.QueuedAt = &queuedAt
			if err := s.notifier.NotifyQueued(ctx, item.ID); err != nil {
				// The item stays queued; the stale sweep will re-announce it.
				s.logger.Error().Err(err).Str("item_id", item.ID).Msg("Failed to notify dispatch topic")
			}
		}
	}
	s.logger.Info().
		Str("item_id", item.ID).
		Str("tenant_id", tenantID).
		Str("platform", platform).
		Bool("scheduled", scheduled).
		Msg("Enqueued publish item")
	return item, nil
}

func (s *queueService) Cancel(ctx context.Context, id string) error {
	item, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if item == nil {
		return &ValidationError{Field: "id", Message: "queue item not found"}
	}
	if item.Status != model.StatusPending && item.Status != model.StatusQueued {
		return &InvalidStateError{ItemID: id, Status: string(item.Status), Op: "cancel"}
	}
	ok, err := s.repo.ConditionalTransition(ctx, id, item.Status, repository.TransitionPatch{
		Status: model.StatusCancelled,
	})
	if err != nil {
		return err
	}
	if !ok {
		// Lost a race with a worker; the item moved on while we looked at it.
		return &InvalidStateError{ItemID: id, Status: string(item.Status), Op: "cancel"}
	}
	s.logger.Info().Str("item_id", id).Msg("Cancelled publish item")
	return nil
}

func (s *queueService) GetItem(ctx context.Context, id string) (*model.QueueItem, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *queueService) ListItems(ctx context.Context, tenantID string, status *model.ItemStatus, limit, offset int) ([]model.QueueItem, error) {
	return s.repo.ListByTenant(ctx, tenantID, status, limit, offset)
}

// PromoteIfDue activates a due scheduled item and announces it for dispatch.
// A false return is a benign skip (not due, already promoted, or cancelled).
func (s *queueService) PromoteIfDue(ctx context.Context, id string) (bool, error) {
	ok, err := s.repo.PromoteIfDue(ctx, id)
	if err != nil || !ok {
		return false, err
	}
	if err := s.notifier.NotifyQueued(ctx, id); err != nil {
		s.logger.Error().Err(err).Str("item_id", id).Msg("Failed to notify dispatch topic after promotion")
	}
	return true, nil
}

// ReannounceStale republishes the dispatch notification for items stuck in
// queued past olderThan, typically because the original notification was lost
// or its publish failed. Re-announcing an item that is merely slow is
// harmless: dispatch claims items with a conditional transition, so the
// duplicate consumer loses the race and acks. Returns the number of items
// successfully re-announced.
func (s *queueService) ReannounceStale(ctx context.Context, olderThan time.Time, limit int) (int, error) {
	items, err := s.repo.FindStaleQueued(ctx, olderThan, limit)
	if err != nil {
		return 0, err
	}
	announced := 0
	for i := range items {
		if err := s.notifier.NotifyQueued(ctx, items[i].ID); err != nil {
			s.logger.Error().Err(err).Str("item_id", items[i].ID).Msg("Failed to re-announce stale queued item")
			continue
		}
		announced++
	}
	if announced > 0 {
		s.logger.Info().Int("reannounced", announced).Msg("Re-announced stale queued items")
	}
	return announced, nil
}

func (s *queueService) MarkStarted(ctx context.Context, id string) (bool, error) {
	startedAt := time.Now()
	return s.repo.ConditionalTransition(ctx, id, model.StatusQueued, repository.TransitionPatch{
		Status:    model.StatusPublishing,
		StartedAt: &startedAt,
	})
}

func (s *queueService) MarkCompleted(ctx context.Context, id string, result *publish.Result) (bool, error) {
	completedAt := time.Now()
	patch := repository.TransitionPatch{
		Status:      model.StatusPublished,
		CompletedAt: &completedAt,
	}
	if result != nil {
		raw, err := json.Marshal(result)
		if err != nil {
			return false, fmt.Errorf("marshal publish result for item %s: %w", id, err)
		}
		s := string(raw)
		patch.Result = &s
	}
	return s.repo.ConditionalTransition(ctx, id, model.StatusPublishing, patch)
}

// MarkFailed applies the classifier's verdict to a publishing item: terminal
// failures (or exhausted attempts) end in failed; retriable failures take the
// retry edge back to pending with an incremented attempt count and a future
// retry_after. Returns the status the item moved to.
func (s *queueService) MarkFailed(ctx context.Context, item *model.QueueItem, cause error, cls publish.Classification) (model.ItemStatus, error) {
	msg := cause.Error()
	kind := string(cls.Kind)

	maxAttempts := s.cfg.MaxAttempts
	if cls.AttemptCap > 0 && cls.AttemptCap < maxAttempts {
		maxAttempts = cls.AttemptCap
	}

	if cls.Kind == publish.KindTerminal || item.Attempts >= maxAttempts {
		ok, err := s.repo.ConditionalTransition(ctx, item.ID, model.StatusPublishing, repository.TransitionPatch{
			Status:    model.StatusFailed,
			LastError: &msg,
			ErrorKind: &kind,
		})
		if err != nil {
			return "", err
		}
		if !ok {
			return "", &InvalidStateError{ItemID: item.ID, Status: string(item.Status), Op: "fail"}
		}
		s.logger.Warn().
			Str("item_id", item.ID).
			Int("attempts", item.Attempts).
			Str("error_kind", kind).
			Msg("Publish item terminally failed")
		return model.StatusFailed, nil
	}

	retryAfter := time.Now().Add(s.Backoff(item.Attempts + 1))
	ok, err := s.repo.ConditionalTransition(ctx, item.ID, model.StatusPublishing, repository.TransitionPatch{
		Status:            model.StatusPending,
		IncrementAttempts: true,
		RetryAfter:        &retryAfter,
		LastError:         &msg,
		ErrorKind:         &kind,
	})
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &InvalidStateError{ItemID: item.ID, Status: string(item.Status), Op: "reschedule"}
	}
	s.logger.Info().
		Str("item_id", item.ID).
		Int("attempt", item.Attempts+1).
		Time("retry_after", retryAfter).
		Msg("Publish item rescheduled for retry")
	return model.StatusPending, nil
}

// Backoff is min(base * 2^(n-1), max) for the n-th attempt; monotone
// non-decreasing and bounded.
func (s *queueService) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := s.cfg.BackoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= s.cfg.BackoffMax {
			return s.cfg.BackoffMax
		}
	}
	if d > s.cfg.BackoffMax {
		return s.cfg.BackoffMax
	}
	return d
}
