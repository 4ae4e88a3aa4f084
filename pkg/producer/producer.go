// Package producer wraps messages in envelopes and places them on queues.
package producer

import (
	"context"
	"time"

	"github.com/krancour/porter/pkg/events"
	"github.com/krancour/porter/pkg/messaging"
	"github.com/pkg/errors"
)

// Producer enqueues messages and publishes a produce event for every envelope
// it enqueues.
type Producer struct {
	dispatcher events.Dispatcher
}

// New returns a new Producer. A nil dispatcher discards all events.
func New(dispatcher events.Dispatcher) *Producer {
	if dispatcher == nil {
		dispatcher = events.NopDispatcher{}
	}
	return &Producer{
		dispatcher: dispatcher,
	}
}

// Produce wraps the message in a new envelope and enqueues it for immediate
// delivery.
func (p *Producer) Produce(
	ctx context.Context,
	queue messaging.Queue,
	message messaging.Message,
) (messaging.Envelope, error) {
	return p.produce(ctx, queue, messaging.NewEnvelope(message))
}

// ProduceAt wraps the message in a new envelope and enqueues it for delivery
// at or after the specified time.
func (p *Producer) ProduceAt(
	ctx context.Context,
	queue messaging.Queue,
	message messaging.Message,
	handleTime time.Time,
) (messaging.Envelope, error) {
	return p.produce(
		ctx,
		queue,
		messaging.NewScheduledEnvelope(message, handleTime),
	)
}

func (p *Producer) produce(
	ctx context.Context,
	queue messaging.Queue,
	envelope messaging.Envelope,
) (messaging.Envelope, error) {
	if envelope.Message().Name == "" {
		return nil, errors.New("message name must not be empty")
	}
	if err := queue.Enqueue(ctx, envelope); err != nil {
		return nil, errors.Wrapf(
			err,
			"error enqueuing message %q on queue %q",
			envelope.Message().Name,
			queue.Name(),
		)
	}
	p.dispatcher.Dispatch(
		ctx,
		events.TopicProduce,
		events.NewEnvelopeEvent(envelope, queue),
	)
	return envelope, nil
}
