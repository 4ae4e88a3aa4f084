package consumer

import "time"

// Options represents the run options of a Consumer. A zero value field means
// "not set" and leaves the corresponding default in place.
type Options struct {
	// MaxRuntime specifies how long the consumer may run before it stops. Zero
	// or a negative value means unbounded.
	MaxRuntime time.Duration
	// MaxMessages specifies how many envelopes the consumer may process before
	// it stops. Zero or a negative value means unbounded.
	MaxMessages int
	// StopWhenEmpty specifies that the consumer should stop, rather than idle,
	// when the queue has no envelopes available.
	StopWhenEmpty bool
	// StopOnError specifies that a handler failure should stop the consumer and
	// be returned to the caller rather than being absorbed.
	StopOnError bool
}

// DefaultOptions returns the options a Consumer uses when the caller overrides
// nothing.
func DefaultOptions() Options {
	return Options{}
}

// merge returns a copy of o with every non-zero field of overrides applied.
func (o Options) merge(overrides Options) Options {
	if overrides.MaxRuntime != 0 {
		o.MaxRuntime = overrides.MaxRuntime
	}
	if overrides.MaxMessages != 0 {
		o.MaxMessages = overrides.MaxMessages
	}
	if overrides.StopWhenEmpty {
		o.StopWhenEmpty = true
	}
	if overrides.StopOnError {
		o.StopOnError = true
	}
	return o
}

func (o Options) messagesBounded() bool {
	return o.MaxMessages > 0
}
