package service

import (
	"context"
	"time"

	"pressroom/internal/model"
	"pressroom/internal/publish"
	"pressroom/internal/repository"

	"github.com/rs/zerolog"
)

// DispatchService executes the publish step for a queued item: it claims the
// item, resolves the content snapshot, invokes the platform adapter and
// applies the classifier's verdict. It is invoked by the Pub/Sub push
// endpoint for fresh items and by the retry worker for due retries.
type DispatchService interface {
	// Execute runs the publish attempt for a queued item and returns the
	// status the item ended the attempt in. A zero status with nil error
	// means the item was not claimable (benign skip under at-least-once
	// notification delivery).
	Execute(ctx context.Context, itemID string) (model.ItemStatus, error)
	// ExecuteRetry re-enters a due pending item through the publish path.
	// The false return mirrors Promote-if-due: the claim was lost.
	ExecuteRetry(ctx context.Context, item *model.QueueItem) (model.ItemStatus, bool, error)
}

type dispatchService struct {
	queue    QueueService
	queueRep repository.QueueRepository
	content  ContentService
	registry *publish.Registry
	webhooks WebhookService
	logger   zerolog.Logger
}

// NewDispatchService creates a new DispatchService.
func NewDispatchService(queue QueueService, queueRep repository.QueueRepository, content ContentService, registry *publish.Registry, webhooks WebhookService, logger zerolog.Logger) DispatchService {
	return &dispatchService{
		queue:    queue,
		queueRep: queueRep,
		content:  content,
		registry: registry,
		webhooks: webhooks,
		logger:   logger.With().Str("service", "dispatch").Logger(),
	}
}

func (s *dispatchService) Execute(ctx context.Context, itemID string) (model.ItemStatus, error) {
	item, err := s.queue.GetItem(ctx, itemID)
	if err != nil {
		return "", err
	}
	if item == nil {
		s.logger.Warn().Str("item_id", itemID).Msg("Dispatch notification for unknown item; skipping")
		return "", nil
	}

	started, err := s.queue.MarkStarted(ctx, itemID)
	if err != nil {
		return "", err
	}
	if !started {
		// Duplicate notification or a concurrent claim won; nothing to do.
		s.logger.Debug().Str("item_id", itemID).Str("status", string(item.Status)).Msg("Item not claimable; skipping")
		return "", nil
	}

	result, pubErr := s.attempt(ctx, item)
	if pubErr != nil {
		cls := publish.Classify(pubErr)
		status, err := s.queue.MarkFailed(ctx, item, pubErr, cls)
		if err != nil {
			return "", err
		}
		if status == model.StatusFailed {
			s.webhooks.TriggerWebhooks(ctx, item.TenantID, EventContentPublishFailed, map[string]any{
				"item_id":    item.ID,
				"content_id": item.ContentID,
				"platform":   item.Platform,
				"error":      pubErr.Error(),
				"error_kind": string(cls.Kind),
			})
		}
		return status, nil
	}

	completed, err := s.queue.MarkCompleted(ctx, itemID, result)
	if err != nil {
		return "", err
	}
	if !completed {
		// Should not happen: we hold the publishing claim.
		s.logger.Error().Str("item_id", itemID).Msg("Completed publish but item left publishing state")
		return "", nil
	}
	s.webhooks.TriggerWebhooks(ctx, item.TenantID, EventContentPublished, map[string]any{
		"item_id":    item.ID,
		"content_id": item.ContentID,
		"platform":   item.Platform,
		"remote_id":  result.RemoteID,
		"remote_url": result.RemoteURL,
	})
	return model.StatusPublished, nil
}

// attempt resolves the snapshot and invokes the adapter. All errors flow to
// the classifier.
func (s *dispatchService) attempt(ctx context.Context, item *model.QueueItem) (*publish.Result, error) {
	snapshot, err := s.content.ResolveSnapshot(ctx, item.ContentID)
	if err != nil {
		return nil, err
	}
	adapter, err := s.registry.Resolve(item.Platform)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	result, err := adapter.Publish(ctx, item, snapshot)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("item_id", item.ID).
		Str("platform", item.Platform).
		Str("duration", time.Since(start).String()).
		Msg("Platform publish succeeded")
	if result == nil {
		result = &publish.Result{}
	}
	return result, nil
}

func (s *dispatchService) ExecuteRetry(ctx context.Context, item *model.QueueItem) (model.ItemStatus, bool, error) {
	queuedAt := time.Now()
	ok, err := s.queueRep.ConditionalTransition(ctx, item.ID, model.StatusPending, repository.TransitionPatch{
		Status:   model.StatusQueued,
		QueuedAt: &queuedAt,
	})
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	status, err := s.Execute(ctx, item.ID)
	return status, true, err
}
