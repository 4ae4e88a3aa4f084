package main

import (
	"context"
	"fmt"

	"github.com/gosuri/uitable"
	"github.com/krancour/porter/pkg/messaging"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

func queues(c *cli.Context) error {
	// Inputs
	if len(c.Args()) == 0 {
		return errors.New("queues requires at least one QUEUE argument")
	}
	backend := c.GlobalString(flagBackend)

	ctx := context.Background()
	table := uitable.New()
	table.AddRow("QUEUE", "DEPTH")
	for _, queueName := range c.Args() {
		queue, err := newQueue(ctx, backend, queueName)
		if err != nil {
			return err
		}
		depth, err := queueDepth(ctx, queue)
		queue.Close(ctx) // nolint: errcheck
		if err != nil {
			return err
		}
		table.AddRow(queueName, depth)
	}
	fmt.Println(table)
	return nil
}

// queueDepth returns the number of envelopes awaiting delivery on the queue
// as a string, or "unknown" if the queue cannot count them.
func queueDepth(ctx context.Context, queue messaging.Queue) (string, error) {
	counter, ok := queue.(messaging.Counter)
	if !ok {
		return "unknown", nil
	}
	count, err := counter.Count(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", count), nil
}
