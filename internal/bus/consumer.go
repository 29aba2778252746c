package bus

import (
	"context"
	"time"

	"waxworks/internal/types"
	"waxworks/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one delivery. A nil return ACKs the message — the
// handler is expected to treat poison input (bad JSON, missing id) and
// hash-equal skips as handled. A non-nil return means the write failed:
// the consumer NACKs with requeue on the first delivery and dead-letters
// on redelivery.
type Handler func(ctx context.Context, delivery amqp.Delivery) error

// Consumer drains one catalog stream for one sink, strictly serially. It
// supervises its own channel: when the broker connection drops it backs
// off and re-subscribes until the context is cancelled.
type Consumer struct {
	bus      *Bus
	sinkName string
	kind     types.EntityKind
	handler  Handler
	log      logger.Logger
}

func NewConsumer(bus *Bus, sinkName string, kind types.EntityKind, handler Handler) *Consumer {
	return &Consumer{
		bus:      bus,
		sinkName: sinkName,
		kind:     kind,
		handler:  handler,
		log:      logger.New("bus").With("queue", QueueName(sinkName, kind)),
	}
}

// Run consumes until ctx is cancelled. Each reconnect attempt backs off
// exponentially and the backoff resets after a healthy session.
func (c *Consumer) Run(ctx context.Context) error {
	log := c.log.Function("Run")

	reconnect := backoff.NewExponentialBackOff()
	reconnect.InitialInterval = time.Second
	reconnect.MaxInterval = 30 * time.Second
	reconnect.MaxElapsedTime = 0 // retry for the life of the process

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := c.consumeSession(ctx)
		if err == nil || ctx.Err() != nil {
			return ctx.Err()
		}

		wait := reconnect.NextBackOff()
		log.Warn("Consumer session ended, reconnecting", "error", err, "wait", wait.String())

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// consumeSession runs one subscribe-and-drain cycle. It returns nil only
// when the context ended; any other exit is a broken session the caller
// retries.
func (c *Consumer) consumeSession(ctx context.Context) error {
	log := c.log.Function("consumeSession")

	channel, err := c.bus.Channel(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = channel.Close() }()

	if err := DeclareTopology(channel); err != nil {
		return log.Err("failed to declare topology", err)
	}

	queue, err := DeclareSinkQueue(channel, c.sinkName, c.kind)
	if err != nil {
		return log.Err("failed to declare sink queue", err)
	}

	if err := channel.Qos(Prefetch, 0, false); err != nil {
		return log.Err("failed to set channel prefetch", err)
	}

	deliveries, err := channel.Consume(
		queue.Name,
		"",    // consumer tag (server-generated)
		false, // autoAck — every message is acked explicitly
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return log.Err("failed to start consuming", err)
	}

	log.Info("Consuming", "kind", string(c.kind))

	for {
		select {
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return log.ErrMsg("delivery channel closed")
			}
			c.dispatch(ctx, delivery)
		}
	}
}

// dispatch applies the ack policy: handled → ACK; failed → NACK, requeued
// once, dead-lettered on the second failure.
func (c *Consumer) dispatch(ctx context.Context, delivery amqp.Delivery) {
	log := c.log.Function("dispatch")

	if err := c.handler(ctx, delivery); err != nil {
		requeue := !delivery.Redelivered
		log.Er("Message processing failed", err,
			"routingKey", delivery.RoutingKey,
			"redelivered", delivery.Redelivered,
			"requeue", requeue,
		)
		if nackErr := delivery.Nack(false, requeue); nackErr != nil {
			log.Er("Failed to NACK message", nackErr, "routingKey", delivery.RoutingKey)
		}
		return
	}

	if ackErr := delivery.Ack(false); ackErr != nil {
		log.Er("Failed to ACK message", ackErr, "routingKey", delivery.RoutingKey)
	}
}
