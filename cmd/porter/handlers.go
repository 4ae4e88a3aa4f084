package main

import (
	"context"
	"time"

	"github.com/golang/glog"
	"github.com/krancour/porter/pkg/messaging"
	"github.com/pkg/errors"
)

const (
	handlerEcho  = "echo"
	handlerFail  = "fail"
	handlerNoop  = "noop"
	handlerSleep = "sleep"
)

// newRouter returns the router for the built-in handlers.
func newRouter() *messaging.MapRouter {
	router := messaging.NewRouter()
	router.Add(handlerEcho, handleEcho)
	router.Add(handlerFail, handleFail)
	router.Add(handlerNoop, handleNoop)
	router.Add(handlerSleep, handleSleep)
	return router
}

func handleEcho(_ context.Context, message messaging.Message) error {
	glog.Infof("echo: %s", string(message.Body))
	return nil
}

func handleFail(_ context.Context, message messaging.Message) error {
	return errors.Errorf("failing as requested: %s", string(message.Body))
}

func handleNoop(context.Context, messaging.Message) error {
	return nil
}

// handleSleep sleeps for the duration held in the message body, e.g. "2s".
func handleSleep(ctx context.Context, message messaging.Message) error {
	d, err := time.ParseDuration(string(message.Body))
	if err != nil {
		return errors.Wrapf(err, "error parsing sleep duration %q", message.Body)
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}
