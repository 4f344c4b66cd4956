package notifications

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mercatohq/stockroom-backend/pkg/config"
	"github.com/mercatohq/stockroom-backend/pkg/logger"
)

type publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

// Notifier fans events out over the redis pub/sub channel. Delivery is best
// effort with a bounded timeout; a publish failure is logged and swallowed so
// it can never fail the operation that triggered it.
type Notifier struct {
	pub     publisher
	channel string
	timeout time.Duration
	logg    *logger.Logger
}

type message struct {
	Event      string    `json:"event"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

// New builds a notifier from the notifications config. A nil publisher yields
// a no-op notifier.
func New(pub publisher, cfg config.NotificationsConfig, logg *logger.Logger) *Notifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Notifier{
		pub:     pub,
		channel: cfg.Channel,
		timeout: timeout,
		logg:    logg,
	}
}

// Notify publishes the event. The caller's context deadline is tightened to
// the configured timeout but its cancellation still applies.
func (n *Notifier) Notify(ctx context.Context, event string, payload any) {
	if n == nil || n.pub == nil {
		return
	}

	body, err := json.Marshal(message{
		Event:      event,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		n.warn(ctx, event, err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	if err := n.pub.Publish(ctx, n.channel, body); err != nil {
		n.warn(ctx, event, err)
	}
}

func (n *Notifier) warn(ctx context.Context, event string, err error) {
	if n.logg == nil {
		return
	}
	logCtx := n.logg.WithFields(ctx, map[string]any{
		"event": event,
	})
	n.logg.Warn(logCtx, "notification dropped: "+err.Error())
}
