// Package mongodb provides a MongoDB-based implementation of the
// messaging.Queue interface. Each envelope is a single document. Dequeuing
// atomically claims the oldest due pending document for the dequeuing Queue
// instance.
package mongodb

import (
	"context"
	"time"

	"github.com/krancour/porter/pkg/messaging"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	statePending = "pending"
	stateActive  = "active"
)

// envelopeDocument is the stored representation of an envelope.
type envelopeDocument struct {
	ID    string `bson:"_id"`
	Queue string `bson:"queue"`
	// Envelope is the JSON encoded envelope.
	Envelope string `bson:"envelope"`
	State    string `bson:"state"`
	// Owner is the ID of the Queue instance that dequeued the envelope.
	Owner string `bson:"owner,omitempty"`
	// DueTime is the time at or after which the envelope may be dequeued.
	DueTime  time.Time  `bson:"dueTime"`
	Enqueued time.Time  `bson:"enqueued"`
	Dequeued *time.Time `bson:"dequeued,omitempty"`
}

// Queue is a MongoDB-based implementation of the messaging.Queue interface.
type Queue struct {
	id         string
	name       string
	collection *mongo.Collection
	options    QueueOptions

	now func() time.Time
}

// NewQueue returns a new MongoDB-based implementation of the messaging.Queue
// interface. Indexes supporting the queue's queries are created if they do
// not already exist.
func NewQueue(
	ctx context.Context,
	database *mongo.Database,
	queueName string,
	options *QueueOptions,
) (*Queue, error) {
	if options == nil {
		options = &QueueOptions{}
	}
	options.applyDefaults()
	q := &Queue{
		id:         uuid.NewV4().String(),
		name:       queueName,
		collection: database.Collection(options.CollectionName),
		options:    *options,
		now:        time.Now,
	}
	if _, err := q.collection.Indexes().CreateOne(
		ctx,
		mongo.IndexModel{
			Keys: bson.D{
				{Key: "queue", Value: 1},
				{Key: "state", Value: 1},
				{Key: "dueTime", Value: 1},
				{Key: "enqueued", Value: 1},
			},
		},
	); err != nil {
		return nil, errors.Wrapf(
			err,
			"error adding indexes to envelopes collection for queue %q",
			queueName,
		)
	}
	return q, nil
}

func (q *Queue) Name() string {
	return q.name
}

func (q *Queue) Enqueue(ctx context.Context, envelope messaging.Envelope) error {
	doc, err := q.newDocument(envelope)
	if err != nil {
		return err
	}
	if _, err := q.collection.InsertOne(ctx, doc); err != nil {
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
	timer := time.NewTimer(*q.options.DequeueTimeout)
	defer timer.Stop()
	for {
		envelope, err := q.claim(ctx)
		if err != nil || envelope != nil {
			return envelope, err
		}
		select {
		case <-timer.C:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(*q.options.PollInterval):
		}
	}
}

// claim marks the oldest due pending envelope as active and owned by this
// Queue instance. It returns nil if there is no such envelope.
func (q *Queue) claim(ctx context.Context) (messaging.Envelope, error) {
	now := q.now().UTC()
	res := q.collection.FindOneAndUpdate(
		ctx,
		q.claimFilter(now),
		bson.M{
			"$set": bson.M{
				"state":    stateActive,
				"owner":    q.id,
				"dequeued": now,
			},
		},
		options.FindOneAndUpdate().SetSort(
			bson.D{
				{Key: "dueTime", Value: 1},
				{Key: "enqueued", Value: 1},
			},
		).SetReturnDocument(options.After),
	)
	if res.Err() == mongo.ErrNoDocuments {
		return nil, nil
	}
	if res.Err() != nil {
		return nil, errors.Wrapf(
			res.Err(),
			"error claiming envelope from queue %q",
			q.name,
		)
	}
	doc := envelopeDocument{}
	if err := res.Decode(&doc); err != nil {
		return nil, errors.Wrapf(
			err,
			"error decoding envelope document from queue %q",
			q.name,
		)
	}
	envelope, err := messaging.NewEnvelopeFromJSON([]byte(doc.Envelope))
	if err != nil {
		// A malformed envelope can never be handled. Remove it and report an
		// empty poll.
		if _, derr := q.collection.DeleteOne(
			ctx,
			bson.M{"_id": doc.ID},
		); derr != nil {
			return nil, errors.Wrapf(
				derr,
				"error removing malformed envelope %q from queue %q",
				doc.ID,
				q.name,
			)
		}
		return nil, nil
	}
	return envelope, nil
}

func (q *Queue) Acknowledge(
	ctx context.Context,
	envelope messaging.Envelope,
) error {
	res, err := q.collection.DeleteOne(ctx, q.ownedFilter(envelope.ID()))
	if err != nil {
		return errors.Wrapf(
			err,
			"error acknowledging envelope %q on queue %q",
			envelope.ID(),
			q.name,
		)
	}
	if res.DeletedCount == 0 {
		return errors.Errorf(
			"envelope %q is not in flight on queue %q",
			envelope.ID(),
			q.name,
		)
	}
	return nil
}

func (q *Queue) Reject(
	ctx context.Context,
	envelope messaging.Envelope,
	requeue bool,
) error {
	if !requeue {
		if _, err := q.collection.DeleteOne(
			ctx,
			q.ownedFilter(envelope.ID()),
		); err != nil {
			return errors.Wrapf(
				err,
				"error rejecting envelope %q on queue %q",
				envelope.ID(),
				q.name,
			)
		}
		return nil
	}
	if _, err := q.collection.UpdateOne(
		ctx,
		q.ownedFilter(envelope.ID()),
		bson.M{
			"$set": bson.M{
				"state": statePending,
			},
			"$unset": bson.M{
				"owner":    "",
				"dequeued": "",
			},
		},
	); err != nil {
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
func (q *Queue) Count(ctx context.Context) (int64, error) {
	count, err := q.collection.CountDocuments(
		ctx,
		bson.M{
			"queue": q.name,
			"state": statePending,
		},
	)
	return count, errors.Wrapf(
		err,
		"error counting envelopes on queue %q",
		q.name,
	)
}

// Close disconnects the underlying MongoDB client.
func (q *Queue) Close(ctx context.Context) error {
	return errors.Wrapf(
		q.collection.Database().Client().Disconnect(ctx),
		"error disconnecting mongo client for queue %q",
		q.name,
	)
}

func (q *Queue) newDocument(
	envelope messaging.Envelope,
) (envelopeDocument, error) {
	envelopeJSON, err := envelope.ToJSON()
	if err != nil {
		return envelopeDocument{}, errors.Wrapf(
			err,
			"error encoding envelope %q",
			envelope.ID(),
		)
	}
	dueTime := envelope.Timestamp()
	if handleTime := envelope.HandleTime(); handleTime != nil {
		dueTime = *handleTime
	}
	return envelopeDocument{
		ID:       envelope.ID(),
		Queue:    q.name,
		Envelope: string(envelopeJSON),
		State:    statePending,
		DueTime:  dueTime.UTC(),
		Enqueued: q.now().UTC(),
	}, nil
}

func (q *Queue) claimFilter(now time.Time) bson.M {
	return bson.M{
		"queue": q.name,
		"state": statePending,
		"dueTime": bson.M{
			"$lte": now,
		},
	}
}

func (q *Queue) ownedFilter(envelopeID string) bson.M {
	return bson.M{
		"_id":   envelopeID,
		"queue": q.name,
		"state": stateActive,
		"owner": q.id,
	}
}
