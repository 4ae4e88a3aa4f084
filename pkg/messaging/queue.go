package messaging

import "context"

// Queue is an interface for any component that stores envelopes until a
// consumer is ready to handle them.
type Queue interface {
	// Name returns the name of the queue.
	Name() string
	// Enqueue adds an Envelope to the queue.
	Enqueue(context.Context, Envelope) error
	// Dequeue removes the next available Envelope from the queue and holds it
	// until it is acknowledged or rejected. If no Envelope becomes available
	// within the queue's own wait period, Dequeue returns nil and a nil error.
	// An empty queue is never an error.
	Dequeue(context.Context) (Envelope, error)
	// Acknowledge permanently removes a dequeued Envelope from the queue.
	Acknowledge(context.Context, Envelope) error
	// Reject releases a dequeued Envelope. If requeue is true, the Envelope is
	// made available for delivery again. Otherwise it is discarded.
	Reject(ctx context.Context, envelope Envelope, requeue bool) error
	// Close releases any resources held by the queue.
	Close(context.Context) error
}

// Counter is an interface optionally implemented by Queues that can report
// how many envelopes are awaiting delivery.
type Counter interface {
	Count(context.Context) (int64, error)
}
