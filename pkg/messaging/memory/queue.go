// Package memory provides an in-process implementation of the
// messaging.Queue interface. It is useful for tests and for single process
// deployments where envelopes need not survive a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/krancour/porter/pkg/messaging"
	"github.com/pkg/errors"
)

var (
	// ErrClosed is returned by operations on a closed queue.
	ErrClosed = errors.New("queue is closed")
	// ErrNotInFlight is returned when acknowledging or rejecting an envelope
	// that was not dequeued from the queue or was already released.
	ErrNotInFlight = errors.New("envelope is not in flight")
)

// QueueOptions represents configuration options for a Queue.
type QueueOptions struct {
	// DequeueTimeout specifies how long Dequeue waits for an envelope to become
	// available before reporting an empty queue. Zero means Dequeue never waits.
	DequeueTimeout time.Duration
}

// Queue is an in-process implementation of the messaging.Queue interface.
type Queue struct {
	name     string
	options  QueueOptions
	mu       sync.Mutex
	pending  []messaging.Envelope
	inFlight map[string]messaging.Envelope
	closed   bool
	// notifyCh is signaled whenever an envelope becomes available.
	notifyCh chan struct{}
	now      func() time.Time
}

// NewQueue returns a new, empty Queue.
func NewQueue(name string, options *QueueOptions) *Queue {
	if options == nil {
		options = &QueueOptions{}
	}
	return &Queue{
		name:     name,
		options:  *options,
		inFlight: map[string]messaging.Envelope{},
		notifyCh: make(chan struct{}, 1),
		now:      time.Now,
	}
}

func (q *Queue) Name() string {
	return q.name
}

func (q *Queue) Enqueue(_ context.Context, envelope messaging.Envelope) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return errors.Wrapf(ErrClosed, "error enqueuing to queue %q", q.name)
	}
	q.pending = append(q.pending, envelope)
	q.notify()
	return nil
}

func (q *Queue) Dequeue(ctx context.Context) (messaging.Envelope, error) {
	var timeoutCh <-chan time.Time
	if q.options.DequeueTimeout > 0 {
		timer := time.NewTimer(q.options.DequeueTimeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}
	for {
		envelope, err := q.take()
		if err != nil || envelope != nil {
			return envelope, err
		}
		if timeoutCh == nil {
			return nil, nil
		}
		select {
		case <-q.notifyCh:
		case <-timeoutCh:
			return q.take()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// take moves the first envelope that is due from the pending list to the
// in-flight set. It returns nil if no envelope is due.
func (q *Queue) take() (messaging.Envelope, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, errors.Wrapf(ErrClosed, "error dequeuing from queue %q", q.name)
	}
	now := q.now()
	for i, envelope := range q.pending {
		if handleTime := envelope.HandleTime(); handleTime != nil &&
			handleTime.After(now) {
			continue
		}
		q.pending = append(q.pending[:i], q.pending[i+1:]...)
		q.inFlight[envelope.ID()] = envelope
		return envelope, nil
	}
	return nil, nil
}

func (q *Queue) Acknowledge(
	_ context.Context,
	envelope messaging.Envelope,
) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.inFlight[envelope.ID()]; !ok {
		return errors.Wrapf(
			ErrNotInFlight,
			"error acknowledging envelope %q on queue %q",
			envelope.ID(),
			q.name,
		)
	}
	delete(q.inFlight, envelope.ID())
	return nil
}

func (q *Queue) Reject(
	_ context.Context,
	envelope messaging.Envelope,
	requeue bool,
) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.inFlight[envelope.ID()]; !ok {
		return errors.Wrapf(
			ErrNotInFlight,
			"error rejecting envelope %q on queue %q",
			envelope.ID(),
			q.name,
		)
	}
	delete(q.inFlight, envelope.ID())
	if requeue && !q.closed {
		q.pending = append(q.pending, envelope)
		q.notify()
	}
	return nil
}

// Count returns the number of envelopes awaiting delivery, including those
// scheduled for the future.
func (q *Queue) Count(context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.pending)), nil
}

// InFlight returns the number of envelopes dequeued but not yet acknowledged
// or rejected.
func (q *Queue) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.inFlight)
}

func (q *Queue) Close(context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

func (q *Queue) notify() {
	select {
	case q.notifyCh <- struct{}{}:
	default:
	}
}
