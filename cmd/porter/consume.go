package main

import (
	"context"

	"github.com/golang/glog"
	"github.com/krancour/porter/internal/control"
	"github.com/krancour/porter/pkg/consumer"
	"github.com/krancour/porter/pkg/events"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

func consume(c *cli.Context) error {
	// Inputs
	if len(c.Args()) != 1 {
		return errors.New("consume requires exactly one QUEUE argument")
	}
	queueName := c.Args()[0]
	backend := c.GlobalString(flagBackend)
	options := consumer.Options{
		MaxRuntime:    c.Duration(flagMaxRuntime),
		MaxMessages:   c.Int(flagMaxMessages),
		StopWhenEmpty: c.Bool(flagStopWhenEmpty),
		StopOnError:   c.Bool(flagStopOnError),
	}
	requeueOnReject := c.Bool(flagRequeueOnReject)
	controlAddress := c.String(flagControlAddress)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue, err := newQueue(ctx, backend, queueName)
	if err != nil {
		return err
	}
	defer func() {
		if err := queue.Close(context.Background()); err != nil {
			glog.Error(err)
		}
	}()

	dispatcher := events.NewDispatcher()
	events.LogListener(dispatcher)
	events.RejectPolicy(dispatcher, requeueOnReject)

	cons := consumer.NewConsumer(newRouter(), dispatcher)

	if controlAddress != "" {
		server := control.NewServer(controlAddress, cons)
		go func() {
			if err := server.ListenAndServe(ctx); err != nil {
				glog.Error(err)
			}
		}()
	}

	glog.Infof(
		"consuming from queue %q using the %s backend",
		queueName,
		backend,
	)
	if err := cons.Consume(ctx, queue, options); err != nil {
		return errors.Wrapf(err, "error consuming from queue %q", queueName)
	}
	glog.Infof("stopped consuming from queue %q", queueName)
	return nil
}
