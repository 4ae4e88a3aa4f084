package main

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/krancour/porter/pkg/messaging"
	"github.com/krancour/porter/pkg/messaging/memory"
	"github.com/stretchr/testify/require"
)

func TestNewQueue(t *testing.T) {
	testCases := []struct {
		name       string
		backend    string
		queueName  string
		assertions func(messaging.Queue, error)
	}{
		{
			name:      "memory",
			backend:   backendMemory,
			queueName: "jobs",
			assertions: func(queue messaging.Queue, err error) {
				require.NoError(t, err)
				require.IsType(t, &memory.Queue{}, queue)
				require.Equal(t, "jobs", queue.Name())
			},
		},
		{
			name:      "unknown backend",
			backend:   "carrier-pigeon",
			queueName: "jobs",
			assertions: func(_ messaging.Queue, err error) {
				require.Error(t, err)
				require.Contains(t, err.Error(), "unknown backend")
			},
		},
		{
			name:      "empty queue name",
			backend:   backendMemory,
			queueName: "",
			assertions: func(_ messaging.Queue, err error) {
				require.Error(t, err)
				require.Contains(t, err.Error(), "must not be empty")
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			testCase.assertions(
				newQueue(context.Background(), testCase.backend, testCase.queueName),
			)
		})
	}
}

func TestRouter(t *testing.T) {
	router := newRouter()
	ctx := context.Background()

	testCases := []struct {
		name       string
		message    messaging.Message
		assertions func(error)
	}{
		{
			name:    "echo",
			message: messaging.NewMessage(handlerEcho, []byte("hello")),
			assertions: func(err error) {
				require.NoError(t, err)
			},
		},
		{
			name:    "noop",
			message: messaging.NewMessage(handlerNoop, nil),
			assertions: func(err error) {
				require.NoError(t, err)
			},
		},
		{
			name:    "fail",
			message: messaging.NewMessage(handlerFail, []byte("because")),
			assertions: func(err error) {
				require.Error(t, err)
				require.Contains(t, err.Error(), "because")
			},
		},
		{
			name:    "sleep",
			message: messaging.NewMessage(handlerSleep, []byte("1ms")),
			assertions: func(err error) {
				require.NoError(t, err)
			},
		},
		{
			name:    "sleep with bad duration",
			message: messaging.NewMessage(handlerSleep, []byte("forever")),
			assertions: func(err error) {
				require.Error(t, err)
				require.Contains(t, err.Error(), "error parsing sleep duration")
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			handler, err := router.Route(messaging.NewEnvelope(testCase.message))
			require.NoError(t, err)
			testCase.assertions(handler(ctx, testCase.message))
		})
	}

	_, err := router.Route(
		messaging.NewEnvelope(messaging.NewMessage("unknown", nil)),
	)
	require.Error(t, err)
}

func TestHandleSleepCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := handleSleep(ctx, messaging.NewMessage(handlerSleep, []byte("1h")))
	require.Equal(t, context.Canceled, err)
}

func TestMessagesFromInputs(t *testing.T) {
	dir, err := ioutil.TempDir("", "porter")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	validFile := filepath.Join(dir, "valid.json")
	require.NoError(
		t,
		ioutil.WriteFile(
			validFile,
			[]byte(`[{"name":"echo","body":"aGk="},{"name":"noop"}]`),
			0644,
		),
	)
	invalidFile := filepath.Join(dir, "invalid.json")
	require.NoError(
		t,
		ioutil.WriteFile(invalidFile, []byte(`[{"body":"aGk="}]`), 0644),
	)

	testCases := []struct {
		name       string
		msgName    string
		body       string
		filename   string
		assertions func([]messaging.Message, error)
	}{
		{
			name:    "name and body",
			msgName: "echo",
			body:    "hi",
			assertions: func(messages []messaging.Message, err error) {
				require.NoError(t, err)
				require.Equal(
					t,
					[]messaging.Message{messaging.NewMessage("echo", []byte("hi"))},
					messages,
				)
			},
		},
		{
			name:    "name only",
			msgName: "noop",
			assertions: func(messages []messaging.Message, err error) {
				require.NoError(t, err)
				require.Len(t, messages, 1)
				require.Nil(t, messages[0].Body)
			},
		},
		{
			name: "neither name nor file",
			assertions: func(_ []messaging.Message, err error) {
				require.Error(t, err)
				require.Contains(t, err.Error(), "--name or --file")
			},
		},
		{
			name:     "valid file",
			msgName:  "ignored",
			filename: validFile,
			assertions: func(messages []messaging.Message, err error) {
				require.NoError(t, err)
				require.Len(t, messages, 2)
				require.Equal(t, "echo", messages[0].Name)
				require.Equal(t, []byte("hi"), messages[0].Body)
				require.Equal(t, "noop", messages[1].Name)
			},
		},
		{
			name:     "invalid file",
			filename: invalidFile,
			assertions: func(_ []messaging.Message, err error) {
				require.Error(t, err)
				require.Contains(t, err.Error(), "error parsing messages file")
			},
		},
		{
			name:     "missing file",
			filename: filepath.Join(dir, "missing.json"),
			assertions: func(_ []messaging.Message, err error) {
				require.Error(t, err)
				require.Contains(t, err.Error(), "error reading messages file")
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			testCase.assertions(
				messagesFromInputs(testCase.msgName, testCase.body, testCase.filename),
			)
		})
	}
}

func TestEnvelopesTable(t *testing.T) {
	handleTime := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	immediate := messaging.NewEnvelope(messaging.NewMessage("echo", nil))
	scheduled := messaging.NewScheduledEnvelope(
		messaging.NewMessage("noop", nil),
		handleTime,
	)
	output := envelopesTable(
		[]messaging.Envelope{immediate, scheduled},
	).String()
	lines := strings.Split(output, "\n")
	require.Len(t, lines, 3)
	require.Contains(t, lines[0], "HANDLE AT")
	require.Contains(t, lines[1], immediate.ID())
	require.Contains(t, lines[1], "now")
	require.Contains(t, lines[2], scheduled.ID())
	require.Contains(t, lines[2], "2030-01-02T03:04:05Z")
}

type uncountableQueue struct {
	messaging.Queue
}

func TestQueueDepth(t *testing.T) {
	ctx := context.Background()
	queue := memory.NewQueue("jobs", nil)
	require.NoError(
		t,
		queue.Enqueue(
			ctx,
			messaging.NewEnvelope(messaging.NewMessage("echo", nil)),
		),
	)
	depth, err := queueDepth(ctx, queue)
	require.NoError(t, err)
	require.Equal(t, "1", depth)

	depth, err = queueDepth(ctx, uncountableQueue{queue})
	require.NoError(t, err)
	require.Equal(t, "unknown", depth)
}
