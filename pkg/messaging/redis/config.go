package redis

import (
	"crypto/tls"
	"fmt"

	"github.com/go-redis/redis"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

const envconfigPrefix = "REDIS"

// config represents common configuration options for a Redis connection
type config struct {
	Host      string `envconfig:"HOST" required:"true"`
	Port      int    `envconfig:"PORT" default:"6379"`
	Password  string `envconfig:"PASSWORD"`
	DB        int    `envconfig:"DB"`
	EnableTLS bool   `envconfig:"ENABLE_TLS"`
	Prefix    string `envconfig:"PREFIX"`
}

func getConfigFromEnvironment() (config, error) {
	c := config{}
	err := envconfig.Process(envconfigPrefix, &c)
	return c, errors.Wrap(
		err,
		"error getting redis configuration from environment",
	)
}

func (c config) clientOptions() *redis.Options {
	redisOpts := &redis.Options{
		Addr:       fmt.Sprintf("%s:%d", c.Host, c.Port),
		Password:   c.Password,
		DB:         c.DB,
		MaxRetries: 5,
	}
	if c.EnableTLS {
		redisOpts.TLSConfig = &tls.Config{
			ServerName: c.Host,
		}
	}
	return redisOpts
}

// Client returns a connection to a Redis database specified by environment
// variables
func Client() (*redis.Client, error) {
	c, err := getConfigFromEnvironment()
	if err != nil {
		return nil, err
	}
	return redis.NewClient(c.clientOptions()), nil
}

// NewQueueFromEnvironment returns a Queue backed by a Redis database specified
// by environment variables.
func NewQueueFromEnvironment(queueName string) (*Queue, error) {
	c, err := getConfigFromEnvironment()
	if err != nil {
		return nil, err
	}
	return NewQueue(
		redis.NewClient(c.clientOptions()),
		queueName,
		&QueueOptions{
			RedisPrefix: c.Prefix,
		},
	), nil
}
