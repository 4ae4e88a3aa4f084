package mongodb

import "time"

// QueueOptions represents configuration options for a Queue.
type QueueOptions struct {
	// CollectionName specifies the collection envelopes are stored in. Many
	// queues may share one collection.
	// Default: envelopes
	CollectionName string

	// DequeueTimeout specifies how long a dequeue attempt keeps polling for an
	// envelope before reporting an empty queue.
	// Min: 0
	// Max: 1 minute
	// Default: 5 seconds
	DequeueTimeout *time.Duration

	// PollInterval specifies the pause between polls within a single dequeue
	// attempt.
	// Min: 100 milliseconds
	// Max: 10 seconds
	// Default: 500 milliseconds
	PollInterval *time.Duration
}

func (q *QueueOptions) applyDefaults() {
	if q.CollectionName == "" {
		q.CollectionName = "envelopes"
	}

	var minDequeueTimeout time.Duration
	maxDequeueTimeout := time.Minute
	defaultDequeueTimeout := 5 * time.Second
	if q.DequeueTimeout == nil {
		q.DequeueTimeout = &defaultDequeueTimeout
	} else if *q.DequeueTimeout < minDequeueTimeout {
		q.DequeueTimeout = &minDequeueTimeout
	} else if *q.DequeueTimeout > maxDequeueTimeout {
		q.DequeueTimeout = &maxDequeueTimeout
	}

	minPollInterval := 100 * time.Millisecond
	maxPollInterval := 10 * time.Second
	defaultPollInterval := 500 * time.Millisecond
	if q.PollInterval == nil {
		q.PollInterval = &defaultPollInterval
	} else if *q.PollInterval < minPollInterval {
		q.PollInterval = &minPollInterval
	} else if *q.PollInterval > maxPollInterval {
		q.PollInterval = &maxPollInterval
	}
}
