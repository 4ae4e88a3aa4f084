package amqp

import (
	"context"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const envconfigPrefix = "AMQP"

// config represents common configuration options for an AMQP connection
type config struct {
	Address  string `envconfig:"ADDRESS" required:"true"`
	Username string `envconfig:"USERNAME" required:"true"`
	Password string `envconfig:"PASSWORD" required:"true"`
}

func getConfigFromEnvironment() (config, error) {
	c := config{}
	err := envconfig.Process(envconfigPrefix, &c)
	return c, errors.Wrap(
		err,
		"error getting amqp configuration from environment",
	)
}

// NewQueueFromEnvironment returns a Queue backed by an AMQP 1.0 broker
// specified by environment variables.
func NewQueueFromEnvironment(
	ctx context.Context,
	queueName string,
) (*Queue, error) {
	c, err := getConfigFromEnvironment()
	if err != nil {
		return nil, err
	}
	return NewQueue(
		ctx,
		c.Address,
		c.Username,
		c.Password,
		queueName,
		nil,
	)
}
