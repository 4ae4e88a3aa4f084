package messaging

import "fmt"

// NoRouteError represents an error wherein a Router has no handler for a
// message name.
type NoRouteError struct {
	Name string `json:"name"`
}

func (e *NoRouteError) Error() string {
	return fmt.Sprintf("no handler is registered for message %q", e.Name)
}
