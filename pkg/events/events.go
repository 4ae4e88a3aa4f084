// Package events defines the lifecycle topics published by porter consumers
// and producers, the payload published on each, and an in-process dispatcher
// that delivers them to subscribed listeners.
package events

import "github.com/krancour/porter/pkg/messaging"

// Topic identifies a lifecycle extension point.
type Topic string

const (
	// TopicPing is published with a *PingEvent before every dequeue attempt.
	TopicPing Topic = "porter.ping"
	// TopicInvoke is published with an *EnvelopeEvent before a handler runs.
	TopicInvoke Topic = "porter.invoke"
	// TopicAcknowledge is published with an *EnvelopeEvent after a handler
	// succeeded and the envelope was acknowledged.
	TopicAcknowledge Topic = "porter.acknowledge"
	// TopicReject is published with a *RejectEvent after any handler failure.
	TopicReject Topic = "porter.reject"
	// TopicProduce is published with an *EnvelopeEvent after a producer has
	// enqueued an envelope.
	TopicProduce Topic = "porter.produce"
)

// Topics returns every known topic.
func Topics() []Topic {
	return []Topic{
		TopicPing,
		TopicInvoke,
		TopicAcknowledge,
		TopicReject,
		TopicProduce,
	}
}

// PingEvent is the payload of TopicPing.
type PingEvent struct {
	Queue messaging.Queue
}

// NewPingEvent returns a new *PingEvent.
func NewPingEvent(queue messaging.Queue) *PingEvent {
	return &PingEvent{
		Queue: queue,
	}
}

// EnvelopeEvent is the payload of TopicInvoke, TopicAcknowledge and
// TopicProduce.
type EnvelopeEvent struct {
	Envelope messaging.Envelope
	Queue    messaging.Queue
}

// NewEnvelopeEvent returns a new *EnvelopeEvent.
func NewEnvelopeEvent(
	envelope messaging.Envelope,
	queue messaging.Queue,
) *EnvelopeEvent {
	return &EnvelopeEvent{
		Envelope: envelope,
		Queue:    queue,
	}
}

// RejectEvent is the payload of TopicReject. Err is the failure that caused
// the rejection.
type RejectEvent struct {
	EnvelopeEvent
	Err error
}

// NewRejectEvent returns a new *RejectEvent.
func NewRejectEvent(
	envelope messaging.Envelope,
	queue messaging.Queue,
	err error,
) *RejectEvent {
	return &RejectEvent{
		EnvelopeEvent: EnvelopeEvent{
			Envelope: envelope,
			Queue:    queue,
		},
		Err: err,
	}
}
