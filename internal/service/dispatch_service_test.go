package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"pressroom/internal/model"
	"pressroom/internal/publish"

	"github.com/rs/zerolog"
)

// fakeContentSvc resolves every content id to the same snapshot.
type fakeContentSvc struct {
	snapshot *model.ContentSnapshot
	err      error
}

func (f *fakeContentSvc) ResolveSnapshot(ctx context.Context, contentID string) (*model.ContentSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshot, nil
}

// adapterFunc lets a test supply an adapter inline.
type adapterFunc func(ctx context.Context, item *model.QueueItem, content *model.ContentSnapshot) (*publish.Result, error)

func (f adapterFunc) Publish(ctx context.Context, item *model.QueueItem, content *model.ContentSnapshot) (*publish.Result, error) {
	return f(ctx, item, content)
}

// fakeWebhookTrigger records TriggerWebhooks calls; the embedded interface
// panics on anything else, which no dispatch path should reach.
type fakeWebhookTrigger struct {
	WebhookService
	mu     sync.Mutex
	events []string
}

func (f *fakeWebhookTrigger) TriggerWebhooks(ctx context.Context, tenantID, eventType string, data map[string]any) (TriggerSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType)
	return TriggerSummary{}, nil
}

type dispatchFixture struct {
	repo     *fakeQueueRepo
	queue    QueueService
	webhooks *fakeWebhookTrigger
	svc      DispatchService
}

func newDispatchFixture(t *testing.T, adapter publish.Adapter) *dispatchFixture {
	t.Helper()
	repo := newFakeQueueRepo()
	queue := newTestQueueService(repo, &fakeNotifier{})
	registry := publish.NewRegistry()
	registry.Register("linkedin", adapter)
	webhooks := &fakeWebhookTrigger{}
	content := &fakeContentSvc{snapshot: &model.ContentSnapshot{ID: "content-1", Title: "hello"}}
	svc := NewDispatchService(queue, repo, content, registry, webhooks, zerolog.Nop())
	return &dispatchFixture{repo: repo, queue: queue, webhooks: webhooks, svc: svc}
}

func queuedItem(id string) *model.QueueItem {
	now := time.Now()
	return &model.QueueItem{
		ID:        id,
		TenantID:  "tenant-1",
		ContentID: "content-1",
		Platform:  "linkedin",
		Status:    model.StatusQueued,
		QueuedAt:  &now,
	}
}

func TestExecutePublishesQueuedItem(t *testing.T) {
	fx := newDispatchFixture(t, adapterFunc(func(ctx context.Context, item *model.QueueItem, content *model.ContentSnapshot) (*publish.Result, error) {
		return &publish.Result{RemoteID: "r-1", RemoteURL: "https://example.com/p/1"}, nil
	}))
	fx.repo.items["it-1"] = queuedItem("it-1")

	status, err := fx.svc.Execute(context.Background(), "it-1")
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if status != model.StatusPublished {
		t.Fatalf("expected %s, got %s", model.StatusPublished, status)
	}

	got := fx.repo.items["it-1"]
	if got.Result == nil {
		t.Error("expected publish result to be stored")
	}
	if got.StartedAt == nil || got.CompletedAt == nil {
		t.Error("expected started_at and completed_at to be stamped")
	}
	if len(fx.webhooks.events) != 1 || fx.webhooks.events[0] != EventContentPublished {
		t.Errorf("expected %s event, got %v", EventContentPublished, fx.webhooks.events)
	}
}

func TestExecuteTerminalAdapterErrorFailsItem(t *testing.T) {
	fx := newDispatchFixture(t, adapterFunc(func(ctx context.Context, item *model.QueueItem, content *model.ContentSnapshot) (*publish.Result, error) {
		return nil, &publish.HTTPError{StatusCode: 403}
	}))
	fx.repo.items["it-1"] = queuedItem("it-1")

	status, err := fx.svc.Execute(context.Background(), "it-1")
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if status != model.StatusFailed {
		t.Fatalf("expected %s, got %s", model.StatusFailed, status)
	}
	if len(fx.webhooks.events) != 1 || fx.webhooks.events[0] != EventContentPublishFailed {
		t.Errorf("expected %s event, got %v", EventContentPublishFailed, fx.webhooks.events)
	}
}

func TestExecuteRetriableAdapterErrorReschedules(t *testing.T) {
	fx := newDispatchFixture(t, adapterFunc(func(ctx context.Context, item *model.QueueItem, content *model.ContentSnapshot) (*publish.Result, error) {
		return nil, &publish.HTTPError{StatusCode: 503}
	}))
	fx.repo.items["it-1"] = queuedItem("it-1")

	status, err := fx.svc.Execute(context.Background(), "it-1")
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if status != model.StatusPending {
		t.Fatalf("expected retry edge to %s, got %s", model.StatusPending, status)
	}
	got := fx.repo.items["it-1"]
	if got.Attempts != 1 || got.RetryAfter == nil {
		t.Errorf("expected attempts 1 and retry_after set, got attempts=%d retry_after=%v", got.Attempts, got.RetryAfter)
	}
	if len(fx.webhooks.events) != 0 {
		t.Errorf("a retried failure must not emit a webhook, got %v", fx.webhooks.events)
	}
}

func TestExecuteUnknownPlatformIsTerminal(t *testing.T) {
	fx := newDispatchFixture(t, adapterFunc(func(ctx context.Context, item *model.QueueItem, content *model.ContentSnapshot) (*publish.Result, error) {
		return &publish.Result{}, nil
	}))
	item := queuedItem("it-1")
	item.Platform = "myspace"
	fx.repo.items["it-1"] = item

	status, err := fx.svc.Execute(context.Background(), "it-1")
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if status != model.StatusFailed {
		t.Errorf("unknown platform should fail terminally, got %s", status)
	}
}

func TestExecuteSkipsUnknownItem(t *testing.T) {
	fx := newDispatchFixture(t, adapterFunc(func(ctx context.Context, item *model.QueueItem, content *model.ContentSnapshot) (*publish.Result, error) {
		t.Error("adapter must not be invoked for an unknown item")
		return nil, nil
	}))

	status, err := fx.svc.Execute(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if status != "" {
		t.Errorf("expected benign skip, got %s", status)
	}
}

func TestExecuteSkipsUnclaimableItem(t *testing.T) {
	fx := newDispatchFixture(t, adapterFunc(func(ctx context.Context, item *model.QueueItem, content *model.ContentSnapshot) (*publish.Result, error) {
		t.Error("adapter must not be invoked when the claim is lost")
		return nil, nil
	}))
	item := queuedItem("it-1")
	item.Status = model.StatusPublished
	fx.repo.items["it-1"] = item

	status, err := fx.svc.Execute(context.Background(), "it-1")
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if status != "" {
		t.Errorf("expected benign skip on duplicate notification, got %s", status)
	}
}

func TestExecuteRetryClaimsPendingItem(t *testing.T) {
	fx := newDispatchFixture(t, adapterFunc(func(ctx context.Context, item *model.QueueItem, content *model.ContentSnapshot) (*publish.Result, error) {
		return &publish.Result{RemoteID: "r-1"}, nil
	}))
	past := time.Now().Add(-time.Minute)
	fx.repo.items["it-1"] = &model.QueueItem{
		ID:         "it-1",
		TenantID:   "tenant-1",
		ContentID:  "content-1",
		Platform:   "linkedin",
		Status:     model.StatusPending,
		Attempts:   1,
		RetryAfter: &past,
	}

	status, claimed, err := fx.svc.ExecuteRetry(context.Background(), fx.repo.items["it-1"])
	if err != nil {
		t.Fatalf("ExecuteRetry returned error: %v", err)
	}
	if !claimed {
		t.Fatal("expected the retry claim to succeed")
	}
	if status != model.StatusPublished {
		t.Errorf("expected %s, got %s", model.StatusPublished, status)
	}
}

func TestExecuteRetryLostClaim(t *testing.T) {
	fx := newDispatchFixture(t, adapterFunc(func(ctx context.Context, item *model.QueueItem, content *model.ContentSnapshot) (*publish.Result, error) {
		t.Error("adapter must not be invoked when the claim is lost")
		return nil, nil
	}))
	item := queuedItem("it-1")
	fx.repo.items["it-1"] = item

	// Another run already moved the item out of pending.
	_, claimed, err := fx.svc.ExecuteRetry(context.Background(), item)
	if err != nil {
		t.Fatalf("ExecuteRetry returned error: %v", err)
	}
	if claimed {
		t.Error("expected lost claim on a non-pending item")
	}
}
