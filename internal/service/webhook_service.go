package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"pressroom/internal/model"
	"pressroom/internal/repository"
	"pressroom/internal/webhook"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Domain event types carried to webhook subscribers.
const (
	EventContentPublished     = "content.published"
	EventContentPublishFailed = "content.publish_failed"
	EventItemCancelled        = "queue_item.cancelled"
)

// responseBodyCap bounds stored response body excerpts.
const responseBodyCap = 10000

// WebhookConfig are the dispatcher knobs.
type WebhookConfig struct {
	// FailureThreshold is the consecutive-failure count at which a
	// subscription is auto-disabled.
	FailureThreshold int
	// DeliveryTimeout bounds one outbound call.
	DeliveryTimeout time.Duration
}

// Envelope is the wire format sent to subscribers.
type Envelope struct {
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	Timestamp string         `json:"timestamp"` // ISO-8601
	TenantID  string         `json:"tenant_id"`
	Data      map[string]any `json:"data"`
}

// DeliveryResult is the outcome of one delivery attempt.
type DeliveryResult struct {
	Success    bool
	StatusCode *int
	Err        error
}

// TriggerSummary aggregates a fan-out to all matching subscriptions.
type TriggerSummary struct {
	Triggered int `json:"triggered"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// WebhookService manages subscriptions and delivers signed event
// notifications, recording every attempt in the delivery log.
type WebhookService interface {
	CreateSubscription(ctx context.Context, tenantID, url string, eventTypes []string, customHeaders map[string]string) (*model.WebhookSubscription, error)
	GetSubscription(ctx context.Context, id string) (*model.WebhookSubscription, error)
	ListSubscriptions(ctx context.Context, tenantID string) ([]model.WebhookSubscription, error)
	DeleteSubscription(ctx context.Context, id string) error
	ReactivateSubscription(ctx context.Context, id string) error
	Deliver(ctx context.Context, sub *model.WebhookSubscription, eventType string, data map[string]any) DeliveryResult
	TriggerWebhooks(ctx context.Context, tenantID, eventType string, data map[string]any) (TriggerSummary, error)
	RetryDelivery(ctx context.Context, deliveryLogID string) (DeliveryResult, error)
	ListDeliveries(ctx context.Context, subscriptionID string, limit, offset int) ([]model.DeliveryLog, error)
}

type webhookService struct {
	subs    repository.WebhookRepository
	logs    repository.DeliveryLogRepository
	secrets WebhookSecretStore
	client  *http.Client
	cfg     WebhookConfig
	logger  zerolog.Logger
}

// NewWebhookService creates a new WebhookService.
func NewWebhookService(subs repository.WebhookRepository, logs repository.DeliveryLogRepository, secrets WebhookSecretStore, cfg WebhookConfig, logger zerolog.Logger) WebhookService {
	return &webhookService{
		subs:    subs,
		logs:    logs,
		secrets: secrets,
		client:  &http.Client{Timeout: cfg.DeliveryTimeout},
		cfg:     cfg,
		logger:  logger.With().Str("service", "webhook").Logger(),
	}
}

func (s *webhookService) CreateSubscription(ctx context.Context, tenantID, url string, eventTypes []string, customHeaders map[string]string) (*model.WebhookSubscription, error) {
	if tenantID == "" {
		return nil, &ValidationError{Field: "tenant_id", Message: "is required"}
	}
	if url == "" {
		return nil, &ValidationError{Field: "url", Message: "is required"}
	}
	if len(eventTypes) == 0 {
		return nil, &ValidationError{Field: "event_types", Message: "at least one event type is required"}
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("generate webhook secret: %w", err)
	}
	secret := "whsec_" + hex.EncodeToString(raw)

	sub := &model.WebhookSubscription{
		ID:            uuid.NewString(),
		TenantID:      tenantID,
		URL:           url,
		Secret:        secret,
		EventTypes:    eventTypes,
		Status:        model.SubscriptionActive,
		CustomHeaders: customHeaders,
	}
	if err := s.subs.Insert(ctx, sub); err != nil {
		return nil, err
	}
	if err := s.secrets.Store(ctx, sub.ID, secret); err != nil {
		return nil, fmt.Errorf("store webhook secret for subscription %s: %w", sub.ID, err)
	}
	s.logger.Info().
		Str("subscription_id", sub.ID).
		Str("tenant_id", tenantID).
		Strs("event_types", eventTypes).
		Msg("Created webhook subscription")
	return sub, nil
}

func (s *webhookService) GetSubscription(ctx context.Context, id string) (*model.WebhookSubscription, error) {
	return s.subs.GetByID(ctx, id)
}

func (s *webhookService) ListSubscriptions(ctx context.Context, tenantID string) ([]model.WebhookSubscription, error) {
	return s.subs.ListByTenant(ctx, tenantID)
}

func (s *webhookService) DeleteSubscription(ctx context.Context, id string) error {
	if err := s.subs.SoftDelete(ctx, id); err != nil {
		return err
	}
	if err := s.secrets.Delete(ctx, id); err != nil {
		s.logger.Warn().Err(err).Str("subscription_id", id).Msg("Failed to delete stored webhook secret")
	}
	return nil
}

func (s *webhookService) ReactivateSubscription(ctx context.Context, id string) error {
	return s.subs.Reactivate(ctx, id)
}

// Deliver signs and posts one envelope to one subscription, always writing a
// delivery log row, then applies the failure-counter protocol. Failures
// before the outbound call (marshal, secret resolution, request build) take
// the same record path as failed calls.
func (s *webhookService) Deliver(ctx context.Context, sub *model.WebhookSubscription, eventType string, data map[string]any) DeliveryResult {
	env := Envelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		TenantID:  sub.TenantID,
		Data:      data,
	}
	result := DeliveryResult{}
	logRow := &model.DeliveryLog{
		ID:             uuid.NewString(),
		SubscriptionID: sub.ID,
		EventType:      eventType,
	}

	payload, err := json.Marshal(env)
	if err != nil {
		result.Err = fmt.Errorf("marshal webhook envelope: %w", err)
		return s.record(ctx, sub, logRow, result)
	}
	logRow.Payload = string(payload)

	secret, err := s.secrets.Resolve(ctx, sub)
	if err != nil {
		result.Err = &DeliveryError{SubscriptionID: sub.ID, Err: err}
		return s.record(ctx, sub, logRow, result)
	}
	tsMillis := time.Now().UnixMilli()
	signature := webhook.WireSignature(payload, []byte(secret), tsMillis)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(payload))
	if err != nil {
		result.Err = &DeliveryError{SubscriptionID: sub.ID, Err: fmt.Errorf("build webhook request: %w", err)}
		return s.record(ctx, sub, logRow, result)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Event", eventType)
	req.Header.Set("X-Webhook-ID", env.EventID)
	req.Header.Set("X-Webhook-Timestamp", fmt.Sprintf("%d", tsMillis))
	req.Header.Set("X-Webhook-Signature", signature)
	for k, v := range sub.CustomHeaders {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	logRow.DurationMs = time.Since(start).Milliseconds()

	if err != nil {
		result.Err = &DeliveryError{SubscriptionID: sub.ID, Err: err}
	} else {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyCap))
		resp.Body.Close()
		code := resp.StatusCode
		excerpt := string(body)
		logRow.StatusCode = &code
		logRow.ResponseBody = &excerpt
		result.StatusCode = &code
		if code >= 200 && code <= 299 {
			result.Success = true
			logRow.Success = true
		} else {
			result.Err = &DeliveryError{SubscriptionID: sub.ID, StatusCode: code}
		}
	}
	return s.record(ctx, sub, logRow, result)
}

// record writes the delivery log row and applies the failure-counter
// protocol: reset on success, increment and disable at the threshold on any
// failure. Every delivery attempt ends here.
func (s *webhookService) record(ctx context.Context, sub *model.WebhookSubscription, logRow *model.DeliveryLog, result DeliveryResult) DeliveryResult {
	if result.Err != nil && logRow.ErrorMessage == nil {
		msg := result.Err.Error()
		logRow.ErrorMessage = &msg
	}
	if err := s.logs.Insert(ctx, logRow); err != nil {
		s.logger.Error().Err(err).Str("subscription_id", sub.ID).Msg("Failed to record delivery log")
	}

	if result.Success {
		if err := s.subs.ResetFailureCount(ctx, sub.ID); err != nil {
			s.logger.Error().Err(err).Str("subscription_id", sub.ID).Msg("Failed to reset failure count")
		}
		return result
	}

	count, err := s.subs.IncrementFailureCount(ctx, sub.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("subscription_id", sub.ID).Msg("Failed to increment failure count")
		return result
	}
	if count >= s.cfg.FailureThreshold {
		if err := s.subs.SetStatus(ctx, sub.ID, model.SubscriptionDisabled); err != nil {
			s.logger.Error().Err(err).Str("subscription_id", sub.ID).Msg("Failed to disable subscription")
		} else {
			s.logger.Warn().
				Str("subscription_id", sub.ID).
				Int("failure_count", count).
				Msg("Webhook subscription disabled after sustained failure")
		}
	}
	return result
}

// TriggerWebhooks fans one event out to every active matching subscription
// concurrently. One slow or failing subscriber never blocks or fails the
// others; individual outcomes only show up in the aggregated counts.
func (s *webhookService) TriggerWebhooks(ctx context.Context, tenantID, eventType string, data map[string]any) (TriggerSummary, error) {
	subs, err := s.subs.ListActiveByEvent(ctx, tenantID, eventType)
	if err != nil {
		return TriggerSummary{}, err
	}
	summary := TriggerSummary{Triggered: len(subs)}
	if len(subs) == 0 {
		return summary, nil
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for i := range subs {
		sub := subs[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := s.Deliver(ctx, &sub, eventType, data)
			mu.Lock()
			defer mu.Unlock()
			if res.Success {
				summary.Succeeded++
			} else {
				summary.Failed++
			}
		}()
	}
	wg.Wait()

	s.logger.Info().
		Str("tenant_id", tenantID).
		Str("event_type", eventType).
		Int("triggered", summary.Triggered).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Msg("Webhook fan-out complete")
	return summary, nil
}

// RetryDelivery re-delivers the payload of a past delivery attempt with a
// fresh envelope id, timestamp and signature.
func (s *webhookService) RetryDelivery(ctx context.Context, deliveryLogID string) (DeliveryResult, error) {
	logRow, err := s.logs.GetByID(ctx, deliveryLogID)
	if err != nil {
		return DeliveryResult{}, err
	}
	if logRow == nil {
		return DeliveryResult{}, &ValidationError{Field: "delivery_log_id", Message: "delivery log not found"}
	}
	sub, err := s.subs.GetByID(ctx, logRow.SubscriptionID)
	if err != nil {
		return DeliveryResult{}, err
	}
	if sub == nil {
		return DeliveryResult{}, &ValidationError{Field: "delivery_log_id", Message: "subscription no longer exists"}
	}

	var env Envelope
	if err := json.Unmarshal([]byte(logRow.Payload), &env); err != nil {
		return DeliveryResult{}, fmt.Errorf("unmarshal logged envelope %s: %w", deliveryLogID, err)
	}
	return s.Deliver(ctx, sub, logRow.EventType, env.Data), nil
}

func (s *webhookService) ListDeliveries(ctx context.Context, subscriptionID string, limit, offset int) ([]model.DeliveryLog, error) {
	return s.logs.ListBySubscription(ctx, subscriptionID, limit, offset)
}
