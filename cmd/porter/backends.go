package main

import (
	"context"

	"github.com/krancour/porter/pkg/messaging"
	"github.com/krancour/porter/pkg/messaging/amqp"
	"github.com/krancour/porter/pkg/messaging/memory"
	"github.com/krancour/porter/pkg/messaging/mongodb"
	"github.com/krancour/porter/pkg/messaging/redis"
	"github.com/pkg/errors"
)

const (
	backendAMQP    = "amqp"
	backendMemory  = "memory"
	backendMongoDB = "mongodb"
	backendRedis   = "redis"
)

// newQueue returns a Queue for the named backend. All backends other than
// memory take their connection settings from the environment. The memory
// backend lives only as long as the process.
func newQueue(
	ctx context.Context,
	backend string,
	queueName string,
) (messaging.Queue, error) {
	if queueName == "" {
		return nil, errors.New("queue name must not be empty")
	}
	switch backend {
	case backendMemory:
		return memory.NewQueue(queueName, nil), nil
	case backendRedis:
		return redis.NewQueueFromEnvironment(queueName)
	case backendMongoDB:
		return mongodb.NewQueueFromEnvironment(ctx, queueName)
	case backendAMQP:
		return amqp.NewQueueFromEnvironment(ctx, queueName)
	default:
		return nil, errors.Errorf("unknown backend %q", backend)
	}
}
