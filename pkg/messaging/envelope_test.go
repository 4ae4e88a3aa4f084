package messaging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	message := NewMessage("greet", []byte("hello"))
	e := NewEnvelope(message)
	require.NotEmpty(t, e.ID())
	require.Equal(t, message, e.Message())
	require.False(t, e.Timestamp().IsZero())
	require.Nil(t, e.HandleTime())
}

func TestNewEnvelopeIDsAreUnique(t *testing.T) {
	e1 := NewEnvelope(NewMessage("greet", nil))
	e2 := NewEnvelope(NewMessage("greet", nil))
	require.NotEqual(t, e1.ID(), e2.ID())
}

func TestNewDelayedEnvelope(t *testing.T) {
	before := time.Now()
	e := NewDelayedEnvelope(NewMessage("greet", nil), time.Minute)
	require.NotNil(t, e.HandleTime())
	require.True(t, e.HandleTime().After(before.Add(59*time.Second)))
}

func TestEnvelopeMessageIsACopy(t *testing.T) {
	e := NewEnvelope(NewMessage("greet", []byte("hello")))
	m := e.Message()
	m.Body[0] = 'j'
	m.Name = "other"
	require.Equal(t, "greet", e.Message().Name)
	require.Equal(t, []byte("hello"), e.Message().Body)
}

func TestNewEnvelopeFromJSON(t *testing.T) {
	testCases := []struct {
		name       string
		json       []byte
		assertions func(Envelope, error)
	}{
		{
			name: "not JSON",
			json: []byte("foo"),
			assertions: func(e Envelope, err error) {
				require.Error(t, err)
				require.Nil(t, e)
			},
		},
		{
			name: "missing message",
			json: []byte(
				`{"id":"123","timestamp":"2020-02-20T12:00:00Z"}`,
			),
			assertions: func(e Envelope, err error) {
				require.Error(t, err)
				require.Contains(t, err.Error(), "invalid envelope")
				require.Nil(t, e)
			},
		},
		{
			name: "empty message name",
			json: []byte(
				`{"id":"123","message":{"name":""},"timestamp":"2020-02-20T12:00:00Z"}`, // nolint: lll
			),
			assertions: func(e Envelope, err error) {
				require.Error(t, err)
				require.Nil(t, e)
			},
		},
		{
			name: "valid",
			json: []byte(
				`{"id":"123","message":{"name":"greet","body":"aGVsbG8="},"timestamp":"2020-02-20T12:00:00Z"}`, // nolint: lll
			),
			assertions: func(e Envelope, err error) {
				require.NoError(t, err)
				require.Equal(t, "123", e.ID())
				require.Equal(t, "greet", e.Message().Name)
				require.Equal(t, []byte("hello"), e.Message().Body)
				require.Nil(t, e.HandleTime())
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			testCase.assertions(NewEnvelopeFromJSON(testCase.json))
		})
	}
}

func TestEnvelopeJSONRoundTrip(t *testing.T) {
	original := NewDelayedEnvelope(NewMessage("greet", []byte("hi")), time.Hour)
	jsonBytes, err := original.ToJSON()
	require.NoError(t, err)
	e, err := NewEnvelopeFromJSON(jsonBytes)
	require.NoError(t, err)
	require.Equal(t, original.ID(), e.ID())
	require.Equal(t, original.Message(), e.Message())
	require.True(t, original.Timestamp().Equal(e.Timestamp()))
	require.True(t, original.HandleTime().Equal(*e.HandleTime()))
}

func TestNewMessagesFromJSON(t *testing.T) {
	messages, err := NewMessagesFromJSON(
		[]byte(`[{"name":"greet","body":"aGk="},{"name":"noop"}]`),
	)
	require.NoError(t, err)
	require.Equal(
		t,
		[]Message{
			{Name: "greet", Body: []byte("hi")},
			{Name: "noop"},
		},
		messages,
	)

	_, err = NewMessagesFromJSON([]byte(`[{"body":"aGk="}]`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid message list")
}
