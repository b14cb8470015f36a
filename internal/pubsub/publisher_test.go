package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

// fakePublisher records published payloads per topic.
type fakePublisher struct {
	topic   string
	payload []byte
	err     error
}

func (f *fakePublisher) Publish(ctx context.Context, topic string, payload []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.topic = topic
	f.payload = payload
	return "msg-1", nil
}

func TestNotifyQueuedPublishesNotification(t *testing.T) {
	pub := &fakePublisher{}
	n := NewDispatchNotifier(pub, "publish_dispatch")

	if err := n.NotifyQueued(context.Background(), "it-42"); err != nil {
		t.Fatalf("NotifyQueued returned error: %v", err)
	}
	if pub.topic != "publish_dispatch" {
		t.Errorf("published to topic %q", pub.topic)
	}
	var msg DispatchNotification
	if err := json.Unmarshal(pub.payload, &msg); err != nil {
		t.Fatalf("payload is not a dispatch notification: %v", err)
	}
	if msg.ItemID != "it-42" {
		t.Errorf("item_id = %q, want it-42", msg.ItemID)
	}
}

func TestNotifyQueuedPropagatesPublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("topic gone")}
	n := NewDispatchNotifier(pub, "publish_dispatch")

	if err := n.NotifyQueued(context.Background(), "it-42"); err == nil {
		t.Fatal("expected publish failure to propagate")
	}
}
