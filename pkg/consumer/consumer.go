// Package consumer implements the control loop of a porter worker. A Consumer
// repeatedly dequeues envelopes from a messaging.Queue, routes each to a
// handler and honors lifecycle requests (shutdown, pause, resume) delivered
// asynchronously by process signals or any other control surface.
//
// Lifecycle requests are cooperative. They are observed at the top of the next
// Tick and never interrupt a handler that is already running.
package consumer

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/krancour/porter/pkg/events"
	"github.com/krancour/porter/pkg/messaging"
	"github.com/pkg/errors"
)

// Consumer dequeues envelopes one at a time and hands them to the handlers
// selected by a messaging.Router.
//
// Options are frozen by the first call to Tick and the message budget is never
// replenished. A Consumer therefore represents a single run. Construct a new
// one for every call to Consume.
type Consumer struct {
	router     messaging.Router
	dispatcher events.Dispatcher

	// The following are accessed atomically. Lifecycle mutators may be invoked
	// from any goroutine.
	shutdown   int32
	paused     int32
	configured int32
	// budgeted is 1 when MaxMessages is bounded, in which case remaining holds
	// the number of envelopes left to process.
	budgeted  int32
	remaining int64
	// deadline is the absolute deadline in Unix nanoseconds. Zero means none.
	deadline int64

	// options is written once by the first Tick and only read by the goroutine
	// running the loop thereafter.
	options Options

	// All of the following behaviors can be overridden for testing purposes
	now           func() time.Time
	bindSignals   func() (unbind func())
	pauseInterval time.Duration
}

// State is a point-in-time snapshot of a Consumer's lifecycle flags.
type State struct {
	Configured        bool       `json:"configured"`
	Paused            bool       `json:"paused"`
	ShutDown          bool       `json:"shutDown"`
	Deadline          *time.Time `json:"deadline,omitempty"`
	RemainingMessages *int64     `json:"remainingMessages,omitempty"`
}

// NewConsumer returns a new Consumer that routes envelopes using the provided
// router and publishes lifecycle events to the provided dispatcher. A nil
// dispatcher discards all events.
func NewConsumer(
	router messaging.Router,
	dispatcher events.Dispatcher,
) *Consumer {
	if dispatcher == nil {
		dispatcher = events.NopDispatcher{}
	}
	c := &Consumer{
		router:        router,
		dispatcher:    dispatcher,
		options:       DefaultOptions(),
		now:           time.Now,
		pauseInterval: time.Second,
	}
	c.bindSignals = c.defaultBindSignals
	return c
}

// Consume binds process signals to the Consumer's lifecycle mutators and calls
// Tick until it reports that the run is over. Cancelation of ctx is treated as
// a shutdown request. Consume returns nil when the run ends gracefully and a
// non-nil error when a handler failure was escalated (StopOnError) or the
// queue itself failed.
func (c *Consumer) Consume(
	ctx context.Context,
	queue messaging.Queue,
	options Options,
) error {
	unbind := c.bindSignals()
	defer unbind()

	doneCh := make(chan struct{})
	defer close(doneCh)
	go func() {
		select {
		case <-ctx.Done():
			c.Shutdown()
		case <-doneCh:
		}
	}()

	for {
		ok, err := c.Tick(ctx, queue, options)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if c.isPaused() {
			select {
			case <-time.After(c.pauseInterval):
			case <-ctx.Done():
			}
		}
	}
}

// Tick performs one step of the consumption loop and reports whether the loop
// should continue. The options argument is only honored by the first call;
// later calls reuse the options frozen at that time. A non-nil error is only
// ever returned together with false.
func (c *Consumer) Tick(
	ctx context.Context,
	queue messaging.Queue,
	options Options,
) (bool, error) {
	c.configure(options)

	if atomic.LoadInt32(&c.shutdown) == 1 {
		return false, nil
	}

	if deadline := atomic.LoadInt64(&c.deadline); deadline != 0 &&
		c.now().UnixNano() > deadline {
		return false, nil
	}

	if c.isPaused() {
		return true, nil
	}

	c.dispatch(ctx, events.TopicPing, events.NewPingEvent(queue))

	envelope, err := queue.Dequeue(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// We were asked to stop while waiting for work.
			return false, nil
		}
		return false, errors.Wrapf(
			err,
			"error dequeuing from queue %q",
			queue.Name(),
		)
	}
	if envelope == nil {
		return !c.options.StopWhenEmpty, nil
	}

	if err := c.Invoke(ctx, envelope, queue); err != nil &&
		c.options.StopOnError {
		return false, err
	}

	if atomic.LoadInt32(&c.budgeted) == 0 {
		return true, nil
	}
	return atomic.AddInt64(&c.remaining, -1) > 0, nil
}

// Invoke handles a single envelope. On success the envelope is acknowledged
// and an acknowledge event is published. On failure a reject event carrying
// the error is published and the error (*HandlerError or *FaultError) is
// returned. Invoke never decides whether a failure is fatal. That decision
// belongs to Tick.
func (c *Consumer) Invoke(
	ctx context.Context,
	envelope messaging.Envelope,
	queue messaging.Queue,
) error {
	c.dispatch(
		ctx,
		events.TopicInvoke,
		events.NewEnvelopeEvent(envelope, queue),
	)

	if err := c.handle(ctx, envelope); err != nil {
		return c.reject(ctx, envelope, queue, err)
	}

	if err := queue.Acknowledge(ctx, envelope); err != nil {
		return c.reject(
			ctx,
			envelope,
			queue,
			&FaultError{
				EnvelopeID: envelope.ID(),
				Err: errors.Wrapf(
					err,
					"error acknowledging envelope on queue %q",
					queue.Name(),
				),
			},
		)
	}

	c.dispatch(
		ctx,
		events.TopicAcknowledge,
		events.NewEnvelopeEvent(envelope, queue),
	)
	return nil
}

// Shutdown requests that the Consumer stop at the top of its next Tick. It is
// irreversible.
func (c *Consumer) Shutdown() {
	atomic.StoreInt32(&c.shutdown, 1)
}

// Pause requests that the Consumer stop dequeuing until Resume is called.
func (c *Consumer) Pause() {
	atomic.StoreInt32(&c.paused, 1)
}

// Resume reverses Pause.
func (c *Consumer) Resume() {
	atomic.StoreInt32(&c.paused, 0)
}

// State returns a snapshot of the Consumer's lifecycle flags.
func (c *Consumer) State() State {
	state := State{
		Configured: atomic.LoadInt32(&c.configured) == 1,
		Paused:     c.isPaused(),
		ShutDown:   atomic.LoadInt32(&c.shutdown) == 1,
	}
	if deadline := atomic.LoadInt64(&c.deadline); deadline != 0 {
		t := time.Unix(0, deadline).UTC()
		state.Deadline = &t
	}
	if atomic.LoadInt32(&c.budgeted) == 1 {
		remaining := atomic.LoadInt64(&c.remaining)
		state.RemainingMessages = &remaining
	}
	return state
}

func (c *Consumer) isPaused() bool {
	return atomic.LoadInt32(&c.paused) == 1
}

// configure freezes the run options. Only the first call has any effect.
func (c *Consumer) configure(overrides Options) {
	if atomic.LoadInt32(&c.configured) == 1 {
		return
	}
	c.options = c.options.merge(overrides)
	if c.options.MaxRuntime > 0 {
		atomic.StoreInt64(
			&c.deadline,
			c.now().Add(c.options.MaxRuntime).UnixNano(),
		)
	}
	if c.options.messagesBounded() {
		atomic.StoreInt64(&c.remaining, int64(c.options.MaxMessages))
		atomic.StoreInt32(&c.budgeted, 1)
	}
	atomic.StoreInt32(&c.configured, 1)
}

// handle routes the envelope and executes the selected handler. Panics in
// either step are recovered and reported as a *FaultError.
func (c *Consumer) handle(
	ctx context.Context,
	envelope messaging.Envelope,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &FaultError{
				EnvelopeID: envelope.ID(),
				Err:        errors.Errorf("handler panicked: %v", r),
			}
		}
	}()
	handler, err := c.router.Route(envelope)
	if err != nil {
		return &FaultError{
			EnvelopeID: envelope.ID(),
			Err:        errors.Wrap(err, "error routing envelope"),
		}
	}
	if err := handler(ctx, envelope.Message()); err != nil {
		return &HandlerError{
			EnvelopeID: envelope.ID(),
			Err:        err,
		}
	}
	return nil
}

func (c *Consumer) reject(
	ctx context.Context,
	envelope messaging.Envelope,
	queue messaging.Queue,
	err error,
) error {
	c.dispatch(
		ctx,
		events.TopicReject,
		events.NewRejectEvent(envelope, queue, err),
	)
	return err
}

// dispatch publishes an event. A misbehaving dispatcher must not be able to
// alter the outcome of a Tick.
func (c *Consumer) dispatch(
	ctx context.Context,
	topic events.Topic,
	event interface{},
) {
	defer func() {
		recover() // nolint: errcheck
	}()
	c.dispatcher.Dispatch(ctx, topic, event)
}
