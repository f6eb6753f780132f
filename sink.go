package stoat

import (
	"context"

	"github.com/AshkanYarmoradi/go-stoat/adapters"
)

// EventSink receives events after they have been durably appended and folded
// into state. Publication is fire-and-forget from the worker's perspective:
// it never blocks the reply to the caller, and failures are logged, not
// retried. The relay/kafka package provides a Kafka-backed implementation.
//
// Sinks are called from background goroutines and must be safe for
// concurrent use across aggregate workers.
type EventSink interface {
	Publish(ctx context.Context, streamID string, events []adapters.StoredEvent) error
}
