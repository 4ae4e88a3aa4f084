package redis

import "time"

// QueueOptions represents configuration options for a Queue.
type QueueOptions struct {
	// RedisPrefix specifies a prefix for all Redis keys to effect some
	// rudimentary namespacing within a single Redis database.
	RedisPrefix string

	// DequeueTimeout specifies how long a dequeue attempt blocks waiting for an
	// envelope before reporting an empty queue. Redis only supports whole
	// seconds here.
	// Min: 1 second
	// Max: 1 minute
	// Default: 5 seconds
	DequeueTimeout *time.Duration

	// SchedulerBatchSize specifies the maximum number of scheduled envelopes
	// that become due which are moved to the pending list per dequeue attempt.
	// Min: 1
	// Max: 255
	// Default: 50
	SchedulerBatchSize *uint8
}

func (q *QueueOptions) applyDefaults() {
	minDequeueTimeout := time.Second
	maxDequeueTimeout := time.Minute
	defaultDequeueTimeout := 5 * time.Second
	if q.DequeueTimeout == nil {
		q.DequeueTimeout = &defaultDequeueTimeout
	} else if *q.DequeueTimeout < minDequeueTimeout {
		q.DequeueTimeout = &minDequeueTimeout
	} else if *q.DequeueTimeout > maxDequeueTimeout {
		q.DequeueTimeout = &maxDequeueTimeout
	}

	var minSchedulerBatchSize uint8 = 1
	var defaultSchedulerBatchSize uint8 = 50
	if q.SchedulerBatchSize == nil {
		q.SchedulerBatchSize = &defaultSchedulerBatchSize
	} else if *q.SchedulerBatchSize < minSchedulerBatchSize {
		q.SchedulerBatchSize = &minSchedulerBatchSize
	}
}
