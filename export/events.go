package export

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// DonationCreatedEvent is published after the CRM has confirmed a
// donation. Subscribers use it to feed the outcome back into the
// submission and its order; the CRM already holds the canonical record,
// so a lost or duplicated delivery is not fatal to data correctness.
type DonationCreatedEvent struct {
	SubmissionID string
	Kind         DonationKind
	Data         json.RawMessage
	Ack          json.RawMessage
}

// EventBus publishes domain events to external subscribers.
type EventBus interface {
	Publish(ctx context.Context, event DonationCreatedEvent)
}

// DonationCreatedHandler reacts to a confirmed donation.
type DonationCreatedHandler func(ctx context.Context, event DonationCreatedEvent) error

// Dispatcher is a synchronous in-process event bus. Handler errors are
// logged, never propagated; the publish itself is not retried.
type Dispatcher struct {
	Log      *zap.Logger
	handlers []DonationCreatedHandler
}

// Subscribe registers a handler for donation created events.
func (d *Dispatcher) Subscribe(handler DonationCreatedHandler) {
	d.handlers = append(d.handlers, handler)
}

// Publish delivers the event to every subscriber in registration order.
func (d *Dispatcher) Publish(ctx context.Context, event DonationCreatedEvent) {
	for _, handler := range d.handlers {
		if err := handler(ctx, event); err != nil {
			d.Log.Error("donation created subscriber failed",
				zap.String("submission_id", event.SubmissionID),
				zap.Error(err))
		}
	}
}
