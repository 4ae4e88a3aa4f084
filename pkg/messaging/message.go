package messaging

// Message is the payload carried by an Envelope. Name is the logical message
// type a Router uses to select a handler. Body is opaque to porter.
type Message struct {
	Name string `json:"name"`
	Body []byte `json:"body,omitempty"`
}

// NewMessage returns a new Message.
func NewMessage(name string, body []byte) Message {
	return Message{
		Name: name,
		Body: body,
	}
}
