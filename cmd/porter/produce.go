package main

import (
	"context"
	"fmt"
	"io/ioutil"
	"time"

	"github.com/gosuri/uitable"
	"github.com/krancour/porter/pkg/events"
	"github.com/krancour/porter/pkg/messaging"
	"github.com/krancour/porter/pkg/producer"
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

func produce(c *cli.Context) error {
	// Inputs
	if len(c.Args()) != 1 {
		return errors.New("produce requires exactly one QUEUE argument")
	}
	queueName := c.Args()[0]
	backend := c.GlobalString(flagBackend)
	delay := c.Duration(flagDelay)

	messages, err := messagesFromInputs(
		c.String(flagName),
		c.String(flagBody),
		c.String(flagFile),
	)
	if err != nil {
		return err
	}

	ctx := context.Background()
	queue, err := newQueue(ctx, backend, queueName)
	if err != nil {
		return err
	}
	defer queue.Close(ctx) // nolint: errcheck

	dispatcher := events.NewDispatcher()
	events.LogListener(dispatcher)
	p := producer.New(dispatcher)

	envelopes := make([]messaging.Envelope, len(messages))
	for i, message := range messages {
		if delay > 0 {
			envelopes[i], err =
				p.ProduceAt(ctx, queue, message, time.Now().Add(delay))
		} else {
			envelopes[i], err = p.Produce(ctx, queue, message)
		}
		if err != nil {
			return err
		}
	}

	fmt.Println(envelopesTable(envelopes))
	return nil
}

// messagesFromInputs returns the messages described by a JSON file, if one is
// specified, or else the single message described by name and body.
func messagesFromInputs(
	name string,
	body string,
	filename string,
) ([]messaging.Message, error) {
	if filename == "" {
		if name == "" {
			return nil, errors.New("one of --name or --file must be specified")
		}
		var bodyBytes []byte
		if body != "" {
			bodyBytes = []byte(body)
		}
		return []messaging.Message{messaging.NewMessage(name, bodyBytes)}, nil
	}
	filename, err := homedir.Expand(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "error resolving path %s", filename)
	}
	bytes, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading messages file %s", filename)
	}
	messages, err := messaging.NewMessagesFromJSON(bytes)
	if err != nil {
		return nil, errors.Wrapf(err, "error parsing messages file %s", filename)
	}
	return messages, nil
}

func envelopesTable(envelopes []messaging.Envelope) *uitable.Table {
	table := uitable.New()
	table.AddRow("ID", "NAME", "HANDLE AT")
	for _, envelope := range envelopes {
		handleAt := "now"
		if handleTime := envelope.HandleTime(); handleTime != nil {
			handleAt = handleTime.Format(time.RFC3339)
		}
		table.AddRow(envelope.ID(), envelope.Message().Name, handleAt)
	}
	return table
}
