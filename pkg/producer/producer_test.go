package producer

import (
	"context"
	"testing"
	"time"

	"github.com/krancour/porter/pkg/events"
	"github.com/krancour/porter/pkg/messaging"
	"github.com/krancour/porter/pkg/messaging/memory"
	"github.com/stretchr/testify/require"
)

func TestProduce(t *testing.T) {
	ctx := context.Background()
	dispatcher := events.NewDispatcher()
	produced := []*events.EnvelopeEvent{}
	dispatcher.Subscribe(
		events.TopicProduce,
		func(_ context.Context, event interface{}) {
			produced = append(produced, event.(*events.EnvelopeEvent))
		},
	)
	q := memory.NewQueue("test", nil)
	p := New(dispatcher)

	envelope, err := p.Produce(ctx, q, messaging.NewMessage("greet", []byte("hi")))
	require.NoError(t, err)
	require.Len(t, produced, 1)
	require.Equal(t, envelope.ID(), produced[0].Envelope.ID())
	require.Equal(t, q, produced[0].Queue)

	dequeued, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, envelope.ID(), dequeued.ID())
	require.Equal(t, "greet", dequeued.Message().Name)
}

func TestProduceAt(t *testing.T) {
	ctx := context.Background()
	q := memory.NewQueue("test", nil)
	handleTime := time.Now().Add(time.Hour)
	envelope, err := New(nil).ProduceAt(
		ctx,
		q,
		messaging.NewMessage("greet", nil),
		handleTime,
	)
	require.NoError(t, err)
	require.NotNil(t, envelope.HandleTime())
	require.True(t, handleTime.Equal(*envelope.HandleTime()))

	// Not due yet
	dequeued, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Nil(t, dequeued)
}

func TestProduceErrors(t *testing.T) {
	ctx := context.Background()
	dispatcher := events.NewDispatcher()
	var produced int
	dispatcher.Subscribe(
		events.TopicProduce,
		func(context.Context, interface{}) {
			produced++
		},
	)
	p := New(dispatcher)

	q := memory.NewQueue("test", nil)
	_, err := p.Produce(ctx, q, messaging.NewMessage("", nil))
	require.Error(t, err)

	require.NoError(t, q.Close(ctx))
	_, err = p.Produce(ctx, q, messaging.NewMessage("greet", nil))
	require.Error(t, err)
	require.Contains(t, err.Error(), `on queue "test"`)
	require.Equal(t, 0, produced)
}
