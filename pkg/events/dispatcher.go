package events

import (
	"context"
	"sync"

	"github.com/golang/glog"
)

// Dispatcher is an interface for components that publish lifecycle events.
// Dispatch must never alter the control flow of its caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, topic Topic, event interface{})
}

// ListenerFn is the signature for functions that receive published events.
// event is one of *PingEvent, *EnvelopeEvent or *RejectEvent depending on the
// topic.
type ListenerFn func(ctx context.Context, event interface{})

// EventDispatcher is a synchronous, in-process Dispatcher. Listeners are
// invoked in the order they subscribed, on the dispatching goroutine.
type EventDispatcher struct {
	listeners map[Topic][]ListenerFn
	mu        sync.RWMutex
}

// NewDispatcher returns a new EventDispatcher with no listeners.
func NewDispatcher() *EventDispatcher {
	return &EventDispatcher{
		listeners: map[Topic][]ListenerFn{},
	}
}

// Subscribe registers a listener for the specified topic.
func (e *EventDispatcher) Subscribe(topic Topic, listener ListenerFn) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners[topic] = append(e.listeners[topic], listener)
}

// Dispatch delivers the event to every listener subscribed to the topic. A
// listener that panics is logged and skipped.
func (e *EventDispatcher) Dispatch(
	ctx context.Context,
	topic Topic,
	event interface{},
) {
	e.mu.RLock()
	listeners := make([]ListenerFn, len(e.listeners[topic]))
	copy(listeners, e.listeners[topic])
	e.mu.RUnlock()
	for _, listener := range listeners {
		e.notify(ctx, topic, event, listener)
	}
}

func (e *EventDispatcher) notify(
	ctx context.Context,
	topic Topic,
	event interface{},
	listener ListenerFn,
) {
	defer func() {
		if r := recover(); r != nil {
			glog.Errorf("listener for topic %q panicked: %v", topic, r)
		}
	}()
	listener(ctx, event)
}

// NopDispatcher is a Dispatcher that discards every event.
type NopDispatcher struct{}

// Dispatch does nothing.
func (NopDispatcher) Dispatch(context.Context, Topic, interface{}) {}
