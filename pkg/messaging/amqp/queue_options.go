package amqp

import "time"

// QueueOptions represents configuration options for a Queue.
type QueueOptions struct {
	// DequeueTimeout specifies how long a dequeue attempt waits for a message
	// before reporting an empty queue.
	// Min: 100 milliseconds
	// Max: 1 minute
	// Default: 5 seconds
	DequeueTimeout *time.Duration

	// ConnectAttempts specifies how many times dialing the broker is attempted
	// before giving up.
	// Min: 1
	// Default: 10
	ConnectAttempts *uint8

	// MaxConnectBackoff specifies the maximum delay between attempts to dial
	// the broker.
	// Min: 1 second
	// Max: 1 minute
	// Default: 10 seconds
	MaxConnectBackoff *time.Duration
}

func (q *QueueOptions) applyDefaults() {
	minDequeueTimeout := 100 * time.Millisecond
	maxDequeueTimeout := time.Minute
	defaultDequeueTimeout := 5 * time.Second
	if q.DequeueTimeout == nil {
		q.DequeueTimeout = &defaultDequeueTimeout
	} else if *q.DequeueTimeout < minDequeueTimeout {
		q.DequeueTimeout = &minDequeueTimeout
	} else if *q.DequeueTimeout > maxDequeueTimeout {
		q.DequeueTimeout = &maxDequeueTimeout
	}

	var minConnectAttempts uint8 = 1
	var defaultConnectAttempts uint8 = 10
	if q.ConnectAttempts == nil {
		q.ConnectAttempts = &defaultConnectAttempts
	} else if *q.ConnectAttempts < minConnectAttempts {
		q.ConnectAttempts = &minConnectAttempts
	}

	minMaxConnectBackoff := time.Second
	maxMaxConnectBackoff := time.Minute
	defaultMaxConnectBackoff := 10 * time.Second
	if q.MaxConnectBackoff == nil {
		q.MaxConnectBackoff = &defaultMaxConnectBackoff
	} else if *q.MaxConnectBackoff < minMaxConnectBackoff {
		q.MaxConnectBackoff = &minMaxConnectBackoff
	} else if *q.MaxConnectBackoff > maxMaxConnectBackoff {
		q.MaxConnectBackoff = &maxMaxConnectBackoff
	}
}
