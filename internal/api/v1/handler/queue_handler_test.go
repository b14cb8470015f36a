package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"pressroom/internal/api/v1/dto"
	"pressroom/internal/middleware"
	"pressroom/internal/model"
	"pressroom/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// fakeQueueService scripts the handler-facing queue operations; the embedded
// interface panics on anything the handlers should not reach.
type fakeQueueService struct {
	service.QueueService
	items     map[string]*model.QueueItem
	enqueued  []string
	cancelErr error
}

func (f *fakeQueueService) Enqueue(ctx context.Context, tenantID, contentID, platform string, opts service.EnqueueOptions) (*model.QueueItem, error) {
	f.enqueued = append(f.enqueued, contentID)
	item := &model.QueueItem{ID: "it-new", TenantID: tenantID, ContentID: contentID, Platform: platform, Status: model.StatusQueued}
	return item, nil
}

func (f *fakeQueueService) GetItem(ctx context.Context, id string) (*model.QueueItem, error) {
	return f.items[id], nil
}

func (f *fakeQueueService) Cancel(ctx context.Context, id string) error {
	if f.cancelErr != nil {
		return f.cancelErr
	}
	f.items[id].Status = model.StatusCancelled
	return nil
}

// fakeWebhookService records triggered events.
type fakeWebhookService struct {
	service.WebhookService
	events []string
}

func (f *fakeWebhookService) TriggerWebhooks(ctx context.Context, tenantID, eventType string, data map[string]any) (service.TriggerSummary, error) {
	f.events = append(f.events, eventType)
	return service.TriggerSummary{}, nil
}

func authedRequest(method, target string, body []byte) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), middleware.TenantContextKey, "tenant-1")
	return req.WithContext(ctx)
}

func newQueueHandlerFixture(queue *fakeQueueService, webhooks *fakeWebhookService) *QueueHandler {
	return NewQueueHandler(queue, webhooks, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())
}

func TestEnqueueEndpoint(t *testing.T) {
	queue := &fakeQueueService{items: map[string]*model.QueueItem{}}
	h := newQueueHandlerFixture(queue, &fakeWebhookService{})

	body, _ := json.Marshal(dto.EnqueueRequestDTO{ContentID: "content-1", Platform: "linkedin"})
	rec := httptest.NewRecorder()
	h.handleCollection(rec, authedRequest(http.MethodPost, "/queue", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
	}
	var resp dto.QueueItemResponseDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != string(model.StatusQueued) {
		t.Errorf("response status = %q", resp.Status)
	}
}

func TestEnqueueEndpointRejectsMissingFields(t *testing.T) {
	queue := &fakeQueueService{items: map[string]*model.QueueItem{}}
	h := newQueueHandlerFixture(queue, &fakeWebhookService{})

	body, _ := json.Marshal(map[string]string{"platform": "linkedin"})
	rec := httptest.NewRecorder()
	h.handleCollection(rec, authedRequest(http.MethodPost, "/queue", body))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if len(queue.enqueued) != 0 {
		t.Errorf("invalid request must not reach the service, got %v", queue.enqueued)
	}
}

func TestEnqueueEndpointRequiresAuth(t *testing.T) {
	h := newQueueHandlerFixture(&fakeQueueService{items: map[string]*model.QueueItem{}}, &fakeWebhookService{})

	body, _ := json.Marshal(dto.EnqueueRequestDTO{ContentID: "c", Platform: "p"})
	req := httptest.NewRequest(http.MethodPost, "/queue", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.handleCollection(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestCancelEndpointEmitsCancelledEvent(t *testing.T) {
	queue := &fakeQueueService{items: map[string]*model.QueueItem{
		"it-1": {ID: "it-1", TenantID: "tenant-1", ContentID: "content-1", Platform: "linkedin", Status: model.StatusPending},
	}}
	webhooks := &fakeWebhookService{}
	h := newQueueHandlerFixture(queue, webhooks)

	rec := httptest.NewRecorder()
	h.handleItem(rec, authedRequest(http.MethodPost, "/queue/it-1/cancel", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body.String())
	}
	if queue.items["it-1"].Status != model.StatusCancelled {
		t.Errorf("item status = %s", queue.items["it-1"].Status)
	}
	if len(webhooks.events) != 1 || webhooks.events[0] != service.EventItemCancelled {
		t.Errorf("expected %s event, got %v", service.EventItemCancelled, webhooks.events)
	}
}

func TestCancelEndpointConflictOnInvalidState(t *testing.T) {
	queue := &fakeQueueService{
		items: map[string]*model.QueueItem{
			"it-1": {ID: "it-1", TenantID: "tenant-1", Status: model.StatusPublished},
		},
		cancelErr: &service.InvalidStateError{ItemID: "it-1", Status: "published", Op: "cancel"},
	}
	webhooks := &fakeWebhookService{}
	h := newQueueHandlerFixture(queue, webhooks)

	rec := httptest.NewRecorder()
	h.handleItem(rec, authedRequest(http.MethodPost, "/queue/it-1/cancel", nil))

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
	if len(webhooks.events) != 0 {
		t.Errorf("failed cancel must not emit events, got %v", webhooks.events)
	}
}

func TestGetItemEnforcesTenantOwnership(t *testing.T) {
	queue := &fakeQueueService{items: map[string]*model.QueueItem{
		"it-1": {ID: "it-1", TenantID: "other-tenant", Status: model.StatusQueued},
	}}
	h := newQueueHandlerFixture(queue, &fakeWebhookService{})

	rec := httptest.NewRecorder()
	h.handleItem(rec, authedRequest(http.MethodGet, "/queue/it-1", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign tenant's item must read as not found, got %d", rec.Code)
	}
}
