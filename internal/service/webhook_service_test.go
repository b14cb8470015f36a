package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"pressroom/internal/model"
	"pressroom/internal/webhook"

	"github.com/rs/zerolog"
)

// fakeWebhookRepo is an in-memory WebhookRepository.
type fakeWebhookRepo struct {
	mu   sync.Mutex
	subs map[string]*model.WebhookSubscription
}

func newFakeWebhookRepo() *fakeWebhookRepo {
	return &fakeWebhookRepo{subs: map[string]*model.WebhookSubscription{}}
}

func (r *fakeWebhookRepo) Insert(ctx context.Context, sub *model.WebhookSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	sub.CreatedAt = now
	sub.UpdatedAt = now
	cp := *sub
	r.subs[sub.ID] = &cp
	return nil
}

func (r *fakeWebhookRepo) GetByID(ctx context.Context, id string) (*model.WebhookSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return nil, nil
	}
	cp := *sub
	return &cp, nil
}

func (r *fakeWebhookRepo) ListByTenant(ctx context.Context, tenantID string) ([]model.WebhookSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.WebhookSubscription
	for _, sub := range r.subs {
		if sub.TenantID == tenantID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (r *fakeWebhookRepo) ListActiveByEvent(ctx context.Context, tenantID, eventType string) ([]model.WebhookSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.WebhookSubscription
	for _, sub := range r.subs {
		if sub.TenantID != tenantID || sub.Status != model.SubscriptionActive {
			continue
		}
		if sub.SubscribedTo(eventType) {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (r *fakeWebhookRepo) IncrementFailureCount(ctx context.Context, id string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok {
		return 0, errors.New("subscription not found")
	}
	sub.FailureCount++
	return sub.FailureCount, nil
}

func (r *fakeWebhookRepo) ResetFailureCount(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub, ok := r.subs[id]; ok {
		sub.FailureCount = 0
	}
	return nil
}

func (r *fakeWebhookRepo) SetStatus(ctx context.Context, id string, status model.SubscriptionStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub, ok := r.subs[id]; ok {
		sub.Status = status
	}
	return nil
}

func (r *fakeWebhookRepo) Reactivate(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub, ok := r.subs[id]; ok {
		sub.Status = model.SubscriptionActive
		sub.FailureCount = 0
	}
	return nil
}

func (r *fakeWebhookRepo) SoftDelete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, id)
	return nil
}

// fakeDeliveryLogRepo is an in-memory, append-only DeliveryLogRepository.
type fakeDeliveryLogRepo struct {
	mu   sync.Mutex
	rows []model.DeliveryLog
}

func (r *fakeDeliveryLogRepo) Insert(ctx context.Context, log *model.DeliveryLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	log.CreatedAt = time.Now()
	r.rows = append(r.rows, *log)
	return nil
}

func (r *fakeDeliveryLogRepo) GetByID(ctx context.Context, id string) (*model.DeliveryLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == id {
			cp := r.rows[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeDeliveryLogRepo) ListBySubscription(ctx context.Context, subscriptionID string, limit, offset int) ([]model.DeliveryLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.DeliveryLog
	for i := range r.rows {
		if r.rows[i].SubscriptionID == subscriptionID {
			out = append(out, r.rows[i])
		}
	}
	return out, nil
}

func newTestWebhookService(subs *fakeWebhookRepo, logs *fakeDeliveryLogRepo) WebhookService {
	return NewWebhookService(subs, logs, NewRowSecretStore(), WebhookConfig{
		FailureThreshold: 5,
		DeliveryTimeout:  5 * time.Second,
	}, zerolog.Nop())
}

func activeSub(id, url string) *model.WebhookSubscription {
	return &model.WebhookSubscription{
		ID:         id,
		TenantID:   "tenant-1",
		URL:        url,
		Secret:     "whsec_testsecret",
		EventTypes: []string{EventContentPublished, EventContentPublishFailed},
		Status:     model.SubscriptionActive,
	}
}

func TestCreateSubscriptionGeneratesSecret(t *testing.T) {
	subs := newFakeWebhookRepo()
	svc := newTestWebhookService(subs, &fakeDeliveryLogRepo{})

	sub, err := svc.CreateSubscription(context.Background(), "tenant-1", "https://example.com/hook", []string{EventContentPublished}, nil)
	if err != nil {
		t.Fatalf("CreateSubscription returned error: %v", err)
	}
	if !strings.HasPrefix(sub.Secret, "whsec_") {
		t.Errorf("secret should carry the whsec_ prefix, got %q", sub.Secret)
	}
	if len(sub.Secret) != len("whsec_")+64 {
		t.Errorf("secret should encode 32 random bytes, got length %d", len(sub.Secret))
	}
	if sub.Status != model.SubscriptionActive {
		t.Errorf("new subscriptions start active, got %s", sub.Status)
	}
}

func TestDeliverSignsAndRecordsSuccess(t *testing.T) {
	subs := newFakeWebhookRepo()
	logs := &fakeDeliveryLogRepo{}
	svc := newTestWebhookService(subs, logs)

	var (
		gotEvent, gotID, gotTS, gotSig string
		gotBody                        []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEvent = r.Header.Get("X-Webhook-Event")
		gotID = r.Header.Get("X-Webhook-ID")
		gotTS = r.Header.Get("X-Webhook-Timestamp")
		gotSig = r.Header.Get("X-Webhook-Signature")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sub := activeSub("sub-1", srv.URL)
	subs.subs["sub-1"] = sub

	res := svc.Deliver(context.Background(), sub, EventContentPublished, map[string]any{"item_id": "it-1"})
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if gotEvent != EventContentPublished {
		t.Errorf("X-Webhook-Event = %q", gotEvent)
	}
	if gotID == "" {
		t.Error("X-Webhook-ID missing")
	}
	ts, err := strconv.ParseInt(gotTS, 10, 64)
	if err != nil {
		t.Fatalf("X-Webhook-Timestamp not epoch millis: %q", gotTS)
	}
	if !webhook.Verify(gotBody, gotSig, []byte(sub.Secret), ts) {
		t.Error("signature did not verify against the received body and timestamp")
	}

	if len(logs.rows) != 1 {
		t.Fatalf("expected one delivery log row, got %d", len(logs.rows))
	}
	row := logs.rows[0]
	if !row.Success || row.StatusCode == nil || *row.StatusCode != http.StatusOK {
		t.Errorf("log row = %+v", row)
	}
}

func TestDeliverSuccessResetsFailureCount(t *testing.T) {
	subs := newFakeWebhookRepo()
	svc := newTestWebhookService(subs, &fakeDeliveryLogRepo{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sub := activeSub("sub-1", srv.URL)
	sub.FailureCount = 3
	subs.subs["sub-1"] = sub

	res := svc.Deliver(context.Background(), sub, EventContentPublished, nil)
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if subs.subs["sub-1"].FailureCount != 0 {
		t.Errorf("expected counter reset, got %d", subs.subs["sub-1"].FailureCount)
	}
}

func TestDeliverFailureDisablesAtThreshold(t *testing.T) {
	subs := newFakeWebhookRepo()
	logs := &fakeDeliveryLogRepo{}
	svc := newTestWebhookService(subs, logs)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sub := activeSub("sub-1", srv.URL)
	subs.subs["sub-1"] = sub

	for i := 1; i <= 4; i++ {
		svc.Deliver(context.Background(), sub, EventContentPublished, nil)
		if subs.subs["sub-1"].Status != model.SubscriptionActive {
			t.Fatalf("subscription disabled after %d failures, threshold is 5", i)
		}
	}
	svc.Deliver(context.Background(), sub, EventContentPublished, nil)
	if subs.subs["sub-1"].Status != model.SubscriptionDisabled {
		t.Errorf("expected disabled after 5 consecutive failures, got %s", subs.subs["sub-1"].Status)
	}
	if len(logs.rows) != 5 {
		t.Errorf("every attempt must be logged, got %d rows", len(logs.rows))
	}
}

func TestDeliverSecretFailureIsRecordedAndCounted(t *testing.T) {
	subs := newFakeWebhookRepo()
	logs := &fakeDeliveryLogRepo{}
	svc := newTestWebhookService(subs, logs)

	sub := activeSub("sub-1", "https://example.com/hook")
	sub.Secret = "" // row store cannot resolve an empty secret
	subs.subs["sub-1"] = sub

	res := svc.Deliver(context.Background(), sub, EventContentPublished, nil)
	if res.Success {
		t.Fatal("expected failure when the signing secret cannot be resolved")
	}
	if len(logs.rows) != 1 {
		t.Fatalf("a failed attempt before the outbound call must still be logged, got %d rows", len(logs.rows))
	}
	row := logs.rows[0]
	if row.Success || row.StatusCode != nil {
		t.Errorf("log row = %+v, want failure with no status code", row)
	}
	if row.ErrorMessage == nil || *row.ErrorMessage == "" {
		t.Error("expected the resolution error recorded on the log row")
	}
	if subs.subs["sub-1"].FailureCount != 1 {
		t.Errorf("failure count = %d, want 1", subs.subs["sub-1"].FailureCount)
	}

	// Pre-flight failures drive auto-disable like any other failure.
	for i := 0; i < 4; i++ {
		svc.Deliver(context.Background(), sub, EventContentPublished, nil)
	}
	if subs.subs["sub-1"].Status != model.SubscriptionDisabled {
		t.Errorf("expected disabled after 5 pre-flight failures, got %s", subs.subs["sub-1"].Status)
	}
	if len(logs.rows) != 5 {
		t.Errorf("every attempt must be logged, got %d rows", len(logs.rows))
	}
}

func TestDeliverTruncatesResponseBody(t *testing.T) {
	subs := newFakeWebhookRepo()
	logs := &fakeDeliveryLogRepo{}
	svc := newTestWebhookService(subs, logs)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(strings.Repeat("x", 25000)))
	}))
	defer srv.Close()

	sub := activeSub("sub-1", srv.URL)
	subs.subs["sub-1"] = sub

	svc.Deliver(context.Background(), sub, EventContentPublished, nil)
	if len(logs.rows) != 1 {
		t.Fatalf("expected one log row, got %d", len(logs.rows))
	}
	body := logs.rows[0].ResponseBody
	if body == nil {
		t.Fatal("expected response body excerpt")
	}
	if len(*body) != responseBodyCap {
		t.Errorf("expected excerpt capped at %d bytes, got %d", responseBodyCap, len(*body))
	}
}

func TestDeliverSendsCustomHeaders(t *testing.T) {
	subs := newFakeWebhookRepo()
	svc := newTestWebhookService(subs, &fakeDeliveryLogRepo{})

	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Custom-Token")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sub := activeSub("sub-1", srv.URL)
	sub.CustomHeaders = map[string]string{"X-Custom-Token": "abc123"}
	subs.subs["sub-1"] = sub

	svc.Deliver(context.Background(), sub, EventContentPublished, nil)
	if gotHeader != "abc123" {
		t.Errorf("custom header not forwarded, got %q", gotHeader)
	}
}

func TestTriggerWebhooksNoSubscribers(t *testing.T) {
	subs := newFakeWebhookRepo()
	svc := newTestWebhookService(subs, &fakeDeliveryLogRepo{})

	summary, err := svc.TriggerWebhooks(context.Background(), "tenant-1", EventContentPublished, nil)
	if err != nil {
		t.Fatalf("TriggerWebhooks returned error: %v", err)
	}
	if summary.Triggered != 0 || summary.Succeeded != 0 || summary.Failed != 0 {
		t.Errorf("expected zero summary, got %+v", summary)
	}
}

func TestTriggerWebhooksFansOutAndIsolatesFailures(t *testing.T) {
	subs := newFakeWebhookRepo()
	logs := &fakeDeliveryLogRepo{}
	svc := newTestWebhookService(subs, logs)

	okSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer okSrv.Close()
	badSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer badSrv.Close()

	subs.subs["sub-ok"] = activeSub("sub-ok", okSrv.URL)
	subs.subs["sub-bad"] = activeSub("sub-bad", badSrv.URL)
	disabled := activeSub("sub-off", okSrv.URL)
	disabled.Status = model.SubscriptionDisabled
	subs.subs["sub-off"] = disabled
	other := activeSub("sub-other", okSrv.URL)
	other.EventTypes = []string{EventItemCancelled}
	subs.subs["sub-other"] = other

	summary, err := svc.TriggerWebhooks(context.Background(), "tenant-1", EventContentPublished, map[string]any{"item_id": "it-1"})
	if err != nil {
		t.Fatalf("TriggerWebhooks returned error: %v", err)
	}
	if summary.Triggered != 2 {
		t.Errorf("expected 2 triggered (disabled and non-matching excluded), got %d", summary.Triggered)
	}
	if summary.Succeeded != 1 || summary.Failed != 1 {
		t.Errorf("expected one success and one failure, got %+v", summary)
	}
}

func TestRetryDeliveryRedelivers(t *testing.T) {
	subs := newFakeWebhookRepo()
	logs := &fakeDeliveryLogRepo{}
	svc := newTestWebhookService(subs, logs)

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sub := activeSub("sub-1", srv.URL)
	subs.subs["sub-1"] = sub

	first := svc.Deliver(context.Background(), sub, EventContentPublished, map[string]any{"item_id": "it-1"})
	if first.Success {
		t.Fatal("first delivery should have failed")
	}
	if len(logs.rows) != 1 {
		t.Fatalf("expected one log row, got %d", len(logs.rows))
	}

	res, err := svc.RetryDelivery(context.Background(), logs.rows[0].ID)
	if err != nil {
		t.Fatalf("RetryDelivery returned error: %v", err)
	}
	if !res.Success {
		t.Errorf("expected redelivery to succeed, got %+v", res)
	}
	if len(logs.rows) != 2 {
		t.Errorf("redelivery must append a new log row, got %d", len(logs.rows))
	}
}

func TestRetryDeliveryUnknownLog(t *testing.T) {
	svc := newTestWebhookService(newFakeWebhookRepo(), &fakeDeliveryLogRepo{})
	_, err := svc.RetryDelivery(context.Background(), "nope")
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Errorf("expected ValidationError, got %v", err)
	}
}
