package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/mercatohq/stockroom-backend/pkg/config"
)

type fakePublisher struct {
	channel  string
	payloads [][]byte
	fail     bool
	deadline bool
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, payload any) error {
	if f.fail {
		return fmt.Errorf("connection refused")
	}
	if _, ok := ctx.Deadline(); ok {
		f.deadline = true
	}
	f.channel = channel
	f.payloads = append(f.payloads, payload.([]byte))
	return nil
}

func TestNotifyPublishesEnvelope(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	n := New(pub, config.NotificationsConfig{Channel: "events", Timeout: time.Second}, nil)

	n.Notify(context.Background(), "order.created", map[string]string{"id": "abc"})

	if pub.channel != "events" {
		t.Fatalf("unexpected channel: %s", pub.channel)
	}
	if len(pub.payloads) != 1 {
		t.Fatalf("expected one publish, got %d", len(pub.payloads))
	}
	if !pub.deadline {
		t.Fatal("expected a bounded deadline on the publish context")
	}

	var msg message
	if err := json.Unmarshal(pub.payloads[0], &msg); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if msg.Event != "order.created" || msg.OccurredAt.IsZero() {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestNotifySwallowsFailures(t *testing.T) {
	t.Parallel()

	n := New(&fakePublisher{fail: true}, config.NotificationsConfig{Channel: "events"}, nil)

	// Must not panic or propagate.
	n.Notify(context.Background(), "order.cancelled", nil)
}

func TestNilPublisherIsNoop(t *testing.T) {
	t.Parallel()

	n := New(nil, config.NotificationsConfig{}, nil)
	n.Notify(context.Background(), "anything", nil)
}
