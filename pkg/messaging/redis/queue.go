// Package redis provides a Redis-based implementation of the messaging.Queue
// interface.
//
// Envelopes are stored in a hash indexed by envelope ID. IDs of envelopes that
// are ready to be handled wait in a pending list. IDs of envelopes scheduled
// for the future wait in a sorted set scored by handle time and are moved to
// the pending list once due. Dequeuing atomically moves an ID from the pending
// list to an active list belonging to the dequeuing Queue instance, where it
// remains until acknowledged or rejected.
package redis

import (
	"context"
	"time"

	"github.com/go-redis/redis"
	"github.com/golang/glog"
	"github.com/krancour/porter/pkg/messaging"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
)

// Queue is a Redis-based implementation of the messaging.Queue interface.
type Queue struct {
	id          string
	name        string
	redisClient *redis.Client
	options     QueueOptions
	// pendingListKey is the key for the global list of IDs for envelopes ready
	// to be handled.
	pendingListKey string
	// envelopesHashKey is the key for the global hash of envelopes indexed by
	// envelope ID.
	envelopesHashKey string
	// scheduledSetKey is the key for the global sorted set of IDs for envelopes
	// to be handled at or after some envelope-specific time in the future.
	scheduledSetKey string
	// activeListKey is the key for the list of IDs of envelopes dequeued by
	// this Queue instance and not yet acknowledged or rejected.
	activeListKey string

	now func() time.Time
}

// NewQueue returns a new Redis-based implementation of the messaging.Queue
// interface.
func NewQueue(
	redisClient *redis.Client,
	queueName string,
	options *QueueOptions,
) *Queue {
	if options == nil {
		options = &QueueOptions{}
	}
	options.applyDefaults()
	id := uuid.NewV4().String()
	return &Queue{
		id:               id,
		name:             queueName,
		redisClient:      redisClient,
		options:          *options,
		pendingListKey:   pendingListKey(options.RedisPrefix, queueName),
		envelopesHashKey: envelopesHashKey(options.RedisPrefix, queueName),
		scheduledSetKey:  scheduledSetKey(options.RedisPrefix, queueName),
		activeListKey:    activeListKey(options.RedisPrefix, queueName, id),
		now:              time.Now,
	}
}

func (q *Queue) Name() string {
	return q.name
}

func (q *Queue) Enqueue(_ context.Context, envelope messaging.Envelope) error {
	envelopeJSON, err := envelope.ToJSON()
	if err != nil {
		return errors.Wrapf(err, "error encoding envelope %q", envelope.ID())
	}

	pipeline := q.redisClient.TxPipeline()
	pipeline.HSet(q.envelopesHashKey, envelope.ID(), envelopeJSON)

	if envelope.HandleTime() == nil {
		pipeline.LPush(q.pendingListKey, envelope.ID())
	} else {
		pipeline.ZAdd(
			q.scheduledSetKey,
			redis.Z{
				Score:  float64(envelope.HandleTime().Unix()),
				Member: envelope.ID(),
			},
		)
	}

	if _, err := pipeline.Exec(); err != nil {
		return errors.Wrapf(
			err,
			"error enqueuing envelope %q on queue %q",
			envelope.ID(),
			q.name,
		)
	}
	return nil
}

func (q *Queue) Dequeue(ctx context.Context) (messaging.Envelope, error) {
	if err := schedulerScript.Run(
		q.redisClient,
		[]string{q.scheduledSetKey, q.pendingListKey},
		q.now().Unix(),
		int(*q.options.SchedulerBatchSize),
	).Err(); err != nil && err != redis.Nil {
		return nil, errors.Wrapf(
			err,
			"error moving due envelopes to queue %q",
			q.name,
		)
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		envelopeID, err := q.redisClient.BRPopLPush(
			q.pendingListKey,
			q.activeListKey,
			*q.options.DequeueTimeout,
		).Result()
		if err == redis.Nil {
			return nil, nil
		}
		if err != nil {
			return nil, errors.Wrapf(
				err,
				"error receiving envelope ID from queue %q",
				q.name,
			)
		}
		envelope, err := q.getEnvelope(envelopeID)
		if err != nil {
			return nil, err
		}
		if envelope != nil {
			return envelope, nil
		}
		// The envelope was missing or malformed and has been discarded. Try
		// again.
	}
}

// getEnvelope retrieves and decodes the envelope with the specified ID. If it
// is missing or malformed, it is removed from the queue and nil is returned.
// No other consumer is going to be able to process it either and there is no
// sense treating this as a fatal condition.
func (q *Queue) getEnvelope(envelopeID string) (messaging.Envelope, error) {
	envelopeJSON, err :=
		q.redisClient.HGet(q.envelopesHashKey, envelopeID).Bytes()
	if err == redis.Nil {
		glog.Warningf(
			"envelope %q was missing from queue %q and has been discarded",
			envelopeID,
			q.name,
		)
		return nil, q.remove(envelopeID)
	}
	if err != nil {
		return nil, errors.Wrapf(
			err,
			"error retrieving envelope %q from queue %q",
			envelopeID,
			q.name,
		)
	}
	envelope, err := messaging.NewEnvelopeFromJSON(envelopeJSON)
	if err != nil {
		glog.Warningf(
			"envelope %q from queue %q was malformed and has been discarded: %s",
			envelopeID,
			q.name,
			err,
		)
		return nil, q.remove(envelopeID)
	}
	return envelope, nil
}

func (q *Queue) Acknowledge(
	_ context.Context,
	envelope messaging.Envelope,
) error {
	return errors.Wrapf(
		q.remove(envelope.ID()),
		"error acknowledging envelope %q",
		envelope.ID(),
	)
}

func (q *Queue) Reject(
	_ context.Context,
	envelope messaging.Envelope,
	requeue bool,
) error {
	if !requeue {
		return errors.Wrapf(
			q.remove(envelope.ID()),
			"error rejecting envelope %q",
			envelope.ID(),
		)
	}
	pipeline := q.redisClient.TxPipeline()
	pipeline.LRem(q.activeListKey, -1, envelope.ID())
	pipeline.LPush(q.pendingListKey, envelope.ID())
	if _, err := pipeline.Exec(); err != nil {
		return errors.Wrapf(
			err,
			"error requeuing envelope %q on queue %q",
			envelope.ID(),
			q.name,
		)
	}
	return nil
}

// Count returns the number of envelopes awaiting delivery, including those
// scheduled for the future.
func (q *Queue) Count(context.Context) (int64, error) {
	pipeline := q.redisClient.TxPipeline()
	pending := pipeline.LLen(q.pendingListKey)
	scheduled := pipeline.ZCard(q.scheduledSetKey)
	if _, err := pipeline.Exec(); err != nil {
		return 0, errors.Wrapf(err, "error counting envelopes on queue %q", q.name)
	}
	return pending.Val() + scheduled.Val(), nil
}

// Close closes the underlying Redis client.
func (q *Queue) Close(context.Context) error {
	return errors.Wrapf(
		q.redisClient.Close(),
		"error closing redis client for queue %q",
		q.name,
	)
}

// remove deletes an envelope from this instance's active list and from the
// global envelopes hash.
func (q *Queue) remove(envelopeID string) error {
	pipeline := q.redisClient.TxPipeline()
	pipeline.LRem(q.activeListKey, -1, envelopeID)
	pipeline.HDel(q.envelopesHashKey, envelopeID)
	if _, err := pipeline.Exec(); err != nil {
		return errors.Wrapf(
			err,
			"error removing envelope %q from queue %q",
			envelopeID,
			q.name,
		)
	}
	return nil
}
