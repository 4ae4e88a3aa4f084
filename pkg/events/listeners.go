package events

import (
	"context"

	"github.com/golang/glog"
)

// Subscriber is implemented by dispatchers that accept listeners.
type Subscriber interface {
	Subscribe(topic Topic, listener ListenerFn)
}

// LogListener writes a log line for lifecycle events. Pings and produced
// envelopes are only logged at verbosity 2 and above.
func LogListener(subscriber Subscriber) {
	subscriber.Subscribe(TopicPing, func(_ context.Context, event interface{}) {
		if e, ok := event.(*PingEvent); ok {
			glog.V(2).Infof("polling queue %q", e.Queue.Name())
		}
	})
	subscriber.Subscribe(TopicInvoke, func(_ context.Context, event interface{}) {
		if e, ok := event.(*EnvelopeEvent); ok {
			glog.Infof(
				"invoking handler for message %q in envelope %q from queue %q",
				e.Envelope.Message().Name,
				e.Envelope.ID(),
				e.Queue.Name(),
			)
		}
	})
	subscriber.Subscribe(
		TopicAcknowledge,
		func(_ context.Context, event interface{}) {
			if e, ok := event.(*EnvelopeEvent); ok {
				glog.Infof(
					"acknowledged envelope %q from queue %q",
					e.Envelope.ID(),
					e.Queue.Name(),
				)
			}
		},
	)
	subscriber.Subscribe(TopicReject, func(_ context.Context, event interface{}) {
		if e, ok := event.(*RejectEvent); ok {
			glog.Errorf(
				"rejected envelope %q from queue %q: %s",
				e.Envelope.ID(),
				e.Queue.Name(),
				e.Err,
			)
		}
	})
	subscriber.Subscribe(TopicProduce, func(_ context.Context, event interface{}) {
		if e, ok := event.(*EnvelopeEvent); ok {
			glog.V(2).Infof(
				"produced envelope %q on queue %q",
				e.Envelope.ID(),
				e.Queue.Name(),
			)
		}
	})
}

// RejectPolicy releases rejected envelopes back to their queue. If requeue is
// true they are made available for redelivery, otherwise they are discarded.
// Failures to release are logged; they never reach the consumer.
func RejectPolicy(subscriber Subscriber, requeue bool) {
	subscriber.Subscribe(TopicReject, func(ctx context.Context, event interface{}) {
		e, ok := event.(*RejectEvent)
		if !ok {
			return
		}
		if err := e.Queue.Reject(ctx, e.Envelope, requeue); err != nil {
			glog.Errorf(
				"error releasing rejected envelope %q to queue %q: %s",
				e.Envelope.ID(),
				e.Queue.Name(),
				err,
			)
		}
	})
}
