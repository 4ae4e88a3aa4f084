package consumer

import "fmt"

// HandlerError represents a failure returned by a message handler.
type HandlerError struct {
	EnvelopeID string
	Err        error
}

func (h *HandlerError) Error() string {
	return fmt.Sprintf("handler failed for envelope %q: %s", h.EnvelopeID, h.Err)
}

// Cause returns the underlying error. It satisfies the causer interface used
// by github.com/pkg/errors.
func (h *HandlerError) Cause() error {
	return h.Err
}

// Unwrap returns the underlying error.
func (h *HandlerError) Unwrap() error {
	return h.Err
}

// FaultError represents an unexpected failure while routing, executing or
// acknowledging an envelope. This includes handler panics.
type FaultError struct {
	EnvelopeID string
	Err        error
}

func (f *FaultError) Error() string {
	return fmt.Sprintf(
		"fault while processing envelope %q: %s",
		f.EnvelopeID,
		f.Err,
	)
}

// Cause returns the underlying error.
func (f *FaultError) Cause() error {
	return f.Err
}

// Unwrap returns the underlying error.
func (f *FaultError) Unwrap() error {
	return f.Err
}
