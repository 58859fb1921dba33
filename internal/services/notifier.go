package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/campus-events/apiserver/types"
)

// Publisher sends an encoded notification to the message queue.
type Publisher interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error)
}

// Notifier announces committed registrations and payments. Delivery is best
// effort: a failure is logged and never reaches the caller.
type Notifier interface {
	Notify(ctx context.Context, n types.Notification)
}

type nopNotifier struct{}

// NopNotifier drops every notification.
func NopNotifier() Notifier {
	return nopNotifier{}
}

func (nopNotifier) Notify(context.Context, types.Notification) {}

// defaultPublishTimeout bounds how long a committed request waits on the broker.
const defaultPublishTimeout = 5 * time.Second

// QueueNotifier publishes notifications as JSON.
type QueueNotifier struct {
	publisher Publisher
	logger    *slog.Logger
	timeout   time.Duration
}

func NewQueueNotifier(publisher Publisher, logger *slog.Logger) *QueueNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueueNotifier{publisher: publisher, logger: logger, timeout: defaultPublishTimeout}
}

func (q *QueueNotifier) Notify(ctx context.Context, n types.Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		q.logger.ErrorContext(ctx, "failed to encode notification", "kind", n.Kind, "error", err)
		return
	}

	// The request may be cancelled once its response is written; the publish
	// still gets its own deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), q.timeout)
	defer cancel()
	id, err := q.publisher.Publish(ctx, data, map[string]string{"kind": n.Kind})
	if err != nil {
		q.logger.WarnContext(ctx, "failed to publish notification",
			"kind", n.Kind,
			"registration_id", n.RegistrationID,
			"error", err,
		)
		return
	}
	q.logger.DebugContext(ctx, "notification published", "kind", n.Kind, "message_id", id)
}
