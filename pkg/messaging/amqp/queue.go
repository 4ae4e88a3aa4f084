// Package amqp provides an AMQP 1.0 implementation of the messaging.Queue
// interface. Each envelope travels as the data section of one durable AMQP
// message. Envelopes scheduled for later delivery carry broker scheduling
// annotations; delivery time is enforced by the broker.
package amqp

import (
	"context"
	"sync"
	"time"

	amqp "github.com/Azure/go-amqp"
	"github.com/golang/glog"
	"github.com/krancour/porter/internal/retries"
	"github.com/krancour/porter/pkg/messaging"
	"github.com/pkg/errors"
)

const (
	// Azure Service Bus
	scheduledEnqueueTimeAnnotation = "x-opt-scheduled-enqueue-time"
	// ActiveMQ Artemis
	deliveryTimeAnnotation = "x-opt-delivery-time"
)

// settler is the subset of *amqp.Message used to settle a delivery.
type settler interface {
	Accept() error
	Release() error
	Reject(*amqp.Error) error
}

// Queue is an AMQP 1.0 implementation of the messaging.Queue interface.
type Queue struct {
	name     string
	address  string
	dialOpts []amqp.ConnOption
	options  QueueOptions

	amqpClient   *amqp.Client
	amqpSession  *amqp.Session
	amqpReceiver *amqp.Receiver
	amqpSender   *amqp.Sender
	amqpMu       *sync.Mutex

	// inFlight holds deliveries that were dequeued but not yet settled, indexed
	// by envelope ID.
	inFlight   map[string]settler
	inFlightMu *sync.Mutex

	// All of the following behaviors can be overridden for testing purposes
	connectFn func(context.Context) error
}

// NewQueue returns an AMQP 1.0 implementation of the messaging.Queue
// interface. The broker is dialed, with retries, before NewQueue returns.
// Links to the broker's queue are established on first use.
func NewQueue(
	ctx context.Context,
	address string,
	username string,
	password string,
	queueName string,
	options *QueueOptions,
) (*Queue, error) {
	q := newQueue(address, username, password, queueName, options)
	if err := q.connectFn(ctx); err != nil {
		return nil, err
	}
	return q, nil
}

func newQueue(
	address string,
	username string,
	password string,
	queueName string,
	options *QueueOptions,
) *Queue {
	if options == nil {
		options = &QueueOptions{}
	}
	options.applyDefaults()
	q := &Queue{
		name:    queueName,
		address: address,
		dialOpts: []amqp.ConnOption{
			amqp.ConnSASLPlain(username, password),
		},
		options:    *options,
		amqpMu:     &sync.Mutex{},
		inFlight:   map[string]settler{},
		inFlightMu: &sync.Mutex{},
	}
	q.connectFn = q.connect
	return q
}

// connect (re)dials the broker. Any existing links are discarded. It must be
// called with amqpMu held or before the Queue is shared.
func (q *Queue) connect(ctx context.Context) error {
	return retries.ManageRetries(
		ctx,
		"connect to amqp broker",
		*q.options.ConnectAttempts,
		*q.options.MaxConnectBackoff,
		func() (bool, error) {
			if q.amqpClient != nil {
				q.amqpClient.Close() // nolint: errcheck
			}
			q.amqpSession = nil
			q.amqpReceiver = nil
			q.amqpSender = nil
			var err error
			if q.amqpClient, err = amqp.Dial(q.address, q.dialOpts...); err != nil {
				return true, errors.Wrap(err, "error dialing endpoint")
			}
			return false, nil
		},
	)
}

// session returns the current session, creating one (and reconnecting if
// necessary) when none exists. It must be called with amqpMu held.
func (q *Queue) session(ctx context.Context) (*amqp.Session, error) {
	if q.amqpSession != nil {
		return q.amqpSession, nil
	}
	for {
		var err error
		if q.amqpSession, err = q.amqpClient.NewSession(); err == nil {
			return q.amqpSession, nil
		}
		glog.Warningf(
			"error creating amqp session for queue %q; reconnecting: %s",
			q.name,
			err,
		)
		if err = q.connectFn(ctx); err != nil {
			return nil, err
		}
	}
}

func (q *Queue) receiver(ctx context.Context) (*amqp.Receiver, error) {
	q.amqpMu.Lock()
	defer q.amqpMu.Unlock()
	if q.amqpReceiver != nil {
		return q.amqpReceiver, nil
	}
	linkOpts := []amqp.LinkOption{
		amqp.LinkSourceAddress(q.name),
		// Link credit is 1 because we're a "slow" consumer. We do not want
		// messages piling up in a client-side buffer, knowing that it could be
		// some time before we can process them.
		amqp.LinkCredit(1),
	}
	for {
		session, err := q.session(ctx)
		if err != nil {
			return nil, err
		}
		if q.amqpReceiver, err = session.NewReceiver(linkOpts...); err == nil {
			return q.amqpReceiver, nil
		}
		glog.Warningf(
			"error creating amqp receiver for queue %q; reconnecting: %s",
			q.name,
			err,
		)
		if err = q.connectFn(ctx); err != nil {
			return nil, err
		}
	}
}

func (q *Queue) sender(ctx context.Context) (*amqp.Sender, error) {
	q.amqpMu.Lock()
	defer q.amqpMu.Unlock()
	if q.amqpSender != nil {
		return q.amqpSender, nil
	}
	for {
		session, err := q.session(ctx)
		if err != nil {
			return nil, err
		}
		if q.amqpSender, err = session.NewSender(
			amqp.LinkTargetAddress(q.name),
		); err == nil {
			return q.amqpSender, nil
		}
		glog.Warningf(
			"error creating amqp sender for queue %q; reconnecting: %s",
			q.name,
			err,
		)
		if err = q.connectFn(ctx); err != nil {
			return nil, err
		}
	}
}

func (q *Queue) Name() string {
	return q.name
}

func (q *Queue) Enqueue(ctx context.Context, envelope messaging.Envelope) error {
	msg, err := newAMQPMessage(envelope)
	if err != nil {
		return err
	}
	sender, err := q.sender(ctx)
	if err != nil {
		return err
	}
	if err := sender.Send(ctx, msg); err != nil {
		return errors.Wrapf(
			err,
			"error sending amqp message for envelope %q on queue %q",
			envelope.ID(),
			q.name,
		)
	}
	return nil
}

func (q *Queue) Dequeue(ctx context.Context) (messaging.Envelope, error) {
	receiver, err := q.receiver(ctx)
	if err != nil {
		return nil, err
	}
	receiveCtx, cancel := context.WithTimeout(ctx, *q.options.DequeueTimeout)
	defer cancel()
	amqpMsg, err := receiver.Receive(receiveCtx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if receiveCtx.Err() == context.DeadlineExceeded {
			return nil, nil
		}
		return nil, errors.Wrapf(
			err,
			"error receiving amqp message for queue %q",
			q.name,
		)
	}
	return q.track(amqpMsg.GetData(), amqpMsg)
}

// track decodes an envelope from a received delivery and records the delivery
// as in flight. Undecodable deliveries are rejected and reported as an empty
// poll.
func (q *Queue) track(
	data []byte,
	delivery settler,
) (messaging.Envelope, error) {
	envelope, err := messaging.NewEnvelopeFromJSON(data)
	if err != nil {
		glog.Warningf(
			"rejecting malformed amqp message on queue %q: %s",
			q.name,
			err,
		)
		if rerr := delivery.Reject(
			&amqp.Error{
				Condition:   amqp.ErrorDecodeError,
				Description: err.Error(),
			},
		); rerr != nil {
			return nil, errors.Wrapf(
				rerr,
				"error rejecting malformed amqp message on queue %q",
				q.name,
			)
		}
		return nil, nil
	}
	q.inFlightMu.Lock()
	defer q.inFlightMu.Unlock()
	q.inFlight[envelope.ID()] = delivery
	return envelope, nil
}

// settle removes the delivery for the given envelope from the in flight set
// and returns it.
func (q *Queue) settle(envelopeID string) (settler, error) {
	q.inFlightMu.Lock()
	defer q.inFlightMu.Unlock()
	delivery, ok := q.inFlight[envelopeID]
	if !ok {
		return nil, errors.Errorf(
			"envelope %q is not in flight on queue %q",
			envelopeID,
			q.name,
		)
	}
	delete(q.inFlight, envelopeID)
	return delivery, nil
}

func (q *Queue) Acknowledge(
	_ context.Context,
	envelope messaging.Envelope,
) error {
	delivery, err := q.settle(envelope.ID())
	if err != nil {
		return err
	}
	return errors.Wrapf(
		delivery.Accept(),
		"error accepting amqp message for envelope %q on queue %q",
		envelope.ID(),
		q.name,
	)
}

func (q *Queue) Reject(
	_ context.Context,
	envelope messaging.Envelope,
	requeue bool,
) error {
	delivery, err := q.settle(envelope.ID())
	if err != nil {
		return err
	}
	if requeue {
		return errors.Wrapf(
			delivery.Release(),
			"error releasing amqp message for envelope %q on queue %q",
			envelope.ID(),
			q.name,
		)
	}
	return errors.Wrapf(
		delivery.Reject(nil),
		"error rejecting amqp message for envelope %q on queue %q",
		envelope.ID(),
		q.name,
	)
}

// Close releases any unsettled deliveries, then closes all links and the
// connection to the broker.
func (q *Queue) Close(ctx context.Context) error {
	q.inFlightMu.Lock()
	for id, delivery := range q.inFlight {
		if err := delivery.Release(); err != nil {
			glog.Warningf(
				"error releasing amqp message for envelope %q on queue %q: %s",
				id,
				q.name,
				err,
			)
		}
		delete(q.inFlight, id)
	}
	q.inFlightMu.Unlock()

	q.amqpMu.Lock()
	defer q.amqpMu.Unlock()
	if q.amqpReceiver != nil {
		if err := q.amqpReceiver.Close(ctx); err != nil {
			return errors.Wrapf(
				err,
				"error closing amqp receiver for queue %q",
				q.name,
			)
		}
	}
	if q.amqpSender != nil {
		if err := q.amqpSender.Close(ctx); err != nil {
			return errors.Wrapf(
				err,
				"error closing amqp sender for queue %q",
				q.name,
			)
		}
	}
	if q.amqpSession != nil {
		if err := q.amqpSession.Close(ctx); err != nil {
			return errors.Wrapf(
				err,
				"error closing amqp session for queue %q",
				q.name,
			)
		}
	}
	if q.amqpClient != nil {
		if err := q.amqpClient.Close(); err != nil {
			return errors.Wrapf(
				err,
				"error closing amqp client for queue %q",
				q.name,
			)
		}
	}
	return nil
}

func newAMQPMessage(envelope messaging.Envelope) (*amqp.Message, error) {
	envelopeJSON, err := envelope.ToJSON()
	if err != nil {
		return nil, errors.Wrapf(
			err,
			"error encoding envelope %q",
			envelope.ID(),
		)
	}
	msg := &amqp.Message{
		Header: &amqp.MessageHeader{
			Durable: true,
		},
		Properties: &amqp.MessageProperties{
			MessageID: envelope.ID(),
			Subject:   envelope.Message().Name,
		},
		Data: [][]byte{
			envelopeJSON,
		},
	}
	if handleTime := envelope.HandleTime(); handleTime != nil &&
		handleTime.After(time.Now()) {
		msg.Annotations = amqp.Annotations{
			scheduledEnqueueTimeAnnotation: handleTime.UTC(),
			deliveryTimeAnnotation:         handleTime.UnixNano() / int64(time.Millisecond),
		}
	}
	return msg, nil
}
