package messaging

import "sync"

// Router is an interface for components that map an Envelope to the function
// that should handle its Message.
type Router interface {
	Route(Envelope) (HandlerFn, error)
}

// MapRouter is a Router that selects handlers by message name.
type MapRouter struct {
	handlers map[string]HandlerFn
	mu       sync.RWMutex
}

// NewRouter returns a new, empty MapRouter.
func NewRouter() *MapRouter {
	return &MapRouter{
		handlers: map[string]HandlerFn{},
	}
}

// Add registers a handler for messages with the specified name, replacing any
// handler previously registered for that name.
func (m *MapRouter) Add(name string, handler HandlerFn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[name] = handler
}

// Route returns the handler registered for the envelope's message name or a
// *NoRouteError if there is none.
func (m *MapRouter) Route(envelope Envelope) (HandlerFn, error) {
	name := envelope.Message().Name
	m.mu.RLock()
	defer m.mu.RUnlock()
	handler, ok := m.handlers[name]
	if !ok || handler == nil {
		return nil, &NoRouteError{Name: name}
	}
	return handler, nil
}
