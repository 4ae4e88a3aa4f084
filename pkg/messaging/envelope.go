package messaging

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	"github.com/xeipuuv/gojsonschema"
)

// Envelope is an interface to be implemented by types that wrap a single
// Message with delivery metadata. Envelopes are read-only once created.
type Envelope interface {
	// ID returns the unique envelope identifier.
	ID() string
	// Message returns the payload.
	Message() Message
	// Timestamp returns the time at which the envelope was created.
	Timestamp() time.Time
	// HandleTime returns the time the envelope indicates it should be handled at
	// or after, if any.
	HandleTime() *time.Time
	// ToJSON returns a []byte containing a JSON representation of the Envelope.
	ToJSON() ([]byte, error)
}

type envelope struct {
	IDAttr         string     `json:"id"`
	MessageAttr    Message    `json:"message"`
	TimestampAttr  time.Time  `json:"timestamp"`
	HandleTimeAttr *time.Time `json:"handleTime,omitempty"`
}

// NewEnvelope returns a new Envelope wrapping the provided Message.
func NewEnvelope(message Message) Envelope {
	return &envelope{
		IDAttr:        uuid.NewV4().String(),
		MessageAttr:   message,
		TimestampAttr: time.Now().UTC(),
	}
}

// NewScheduledEnvelope returns a new Envelope that should be handled at or
// after a specified time.
func NewScheduledEnvelope(message Message, handleTime time.Time) Envelope {
	e := NewEnvelope(message).(*envelope)
	handleTime = handleTime.UTC()
	e.HandleTimeAttr = &handleTime
	return e
}

// NewDelayedEnvelope returns a new Envelope that should be handled after a
// specified duration.
func NewDelayedEnvelope(message Message, delay time.Duration) Envelope {
	return NewScheduledEnvelope(message, time.Now().Add(delay))
}

// NewEnvelopeFromJSON returns a new Envelope unmarshalled from the provided
// []byte. The JSON is validated against the envelope schema first.
func NewEnvelopeFromJSON(jsonBytes []byte) (Envelope, error) {
	if err := validate(envelopeSchemaLoader, jsonBytes); err != nil {
		return nil, errors.Wrap(err, "invalid envelope")
	}
	e := &envelope{}
	if err := json.Unmarshal(jsonBytes, e); err != nil {
		return nil, errors.Wrap(err, "error unmarshaling envelope")
	}
	return e, nil
}

// NewMessagesFromJSON returns the Messages unmarshalled from a JSON array. The
// JSON is validated against the message list schema first.
func NewMessagesFromJSON(jsonBytes []byte) ([]Message, error) {
	if err := validate(messagesSchemaLoader, jsonBytes); err != nil {
		return nil, errors.Wrap(err, "invalid message list")
	}
	messages := []Message{}
	if err := json.Unmarshal(jsonBytes, &messages); err != nil {
		return nil, errors.Wrap(err, "error unmarshaling messages")
	}
	return messages, nil
}

func (e *envelope) ID() string {
	return e.IDAttr
}

func (e *envelope) Message() Message {
	m := e.MessageAttr
	if m.Body != nil {
		m.Body = append([]byte(nil), m.Body...)
	}
	return m
}

func (e *envelope) Timestamp() time.Time {
	return e.TimestampAttr
}

func (e *envelope) HandleTime() *time.Time {
	if e.HandleTimeAttr == nil {
		return nil
	}
	t := *e.HandleTimeAttr
	return &t
}

func (e *envelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func validate(schemaLoader gojsonschema.JSONLoader, jsonBytes []byte) error {
	result, err := gojsonschema.Validate(
		schemaLoader,
		gojsonschema.NewBytesLoader(jsonBytes),
	)
	if err != nil {
		return errors.Wrap(err, "error validating JSON")
	}
	if !result.Valid() {
		// Report only the first problem. It's usually the most useful one.
		return errors.New(result.Errors()[0].String())
	}
	return nil
}
