package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"waxworks/internal/types"
	"waxworks/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// Exchange carries every catalog message. Routing keys are
	// `{type}.{processing_run_id}` for records and `{type}.changes` for
	// change hooks.
	Exchange = "discogsography-exchange"

	// DeadLetterExchange receives messages a sink gave up on after a
	// redelivery already failed.
	DeadLetterExchange = "discogsography-dlx"

	// DeadLetterQueue holds dead-lettered messages for inspection.
	DeadLetterQueue = "discogsography-dead-letters"

	// Prefetch bounds how many unacked messages the broker pipelines to
	// one consumer. Processing stays strictly serial regardless.
	Prefetch = 100
)

// QueueName builds the durable queue name one sink owns for one catalog
// stream, e.g. "discogsography-graph-sink-artists".
func QueueName(sinkName string, kind types.EntityKind) string {
	return fmt.Sprintf("discogsography-%s-%s", sinkName, kind)
}

// BindingPattern is the topic pattern a sink queue binds with. It matches
// both record keys and change-hook keys for the stream; change hooks carry
// no record id and fall through the sinks' poison handling.
func BindingPattern(kind types.EntityKind) string {
	return fmt.Sprintf("%s.*", kind)
}

// ChangesKey is the routing key for change-hook messages of a stream.
func ChangesKey(kind types.EntityKind) string {
	return fmt.Sprintf("%s.changes", kind)
}

// Bus owns one AMQP connection and re-dials it on demand. Channels are
// cheap and callers open their own; the connection is the shared resource.
type Bus struct {
	url  string
	log  logger.Logger
	mu   sync.Mutex
	conn *amqp.Connection
}

func New(url string) *Bus {
	return &Bus{
		url: url,
		log: logger.New("bus"),
	}
}

// Connection returns the live connection, dialing with backoff when the
// previous one is gone.
func (b *Bus) Connection(ctx context.Context) (*amqp.Connection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil && !b.conn.IsClosed() {
		return b.conn, nil
	}

	log := b.log.Function("Connection")

	var conn *amqp.Connection
	dial := func() error {
		var err error
		conn, err = amqp.Dial(b.url)
		if err != nil {
			log.Warn("AMQP dial failed, retrying", "error", err)
			return err
		}
		return nil
	}

	if err := backoff.Retry(dial, backoff.WithContext(connectBackoff(), ctx)); err != nil {
		return nil, log.Err("failed to connect to AMQP broker", err)
	}

	log.Info("Connected to AMQP broker")
	b.conn = conn
	return conn, nil
}

// Channel opens a fresh channel on the live connection.
func (b *Bus) Channel(ctx context.Context) (*amqp.Channel, error) {
	conn, err := b.Connection(ctx)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		return nil, b.log.Function("Channel").Err("failed to open AMQP channel", err)
	}

	return channel, nil
}

// Healthy reports whether the connection is currently open.
func (b *Bus) Healthy() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil && !b.conn.IsClosed()
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil || b.conn.IsClosed() {
		return nil
	}

	return b.conn.Close()
}

// DeclareTopology declares the exchange, the dead-letter exchange, and the
// dead-letter queue. Declarations are idempotent; every binary that touches
// the bus runs this on startup.
func DeclareTopology(channel *amqp.Channel) error {
	if err := channel.ExchangeDeclare(
		Exchange,
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", Exchange, err)
	}

	if err := channel.ExchangeDeclare(
		DeadLetterExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", DeadLetterExchange, err)
	}

	if _, err := channel.QueueDeclare(
		DeadLetterQueue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", DeadLetterQueue, err)
	}

	if err := channel.QueueBind(DeadLetterQueue, "#", DeadLetterExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", DeadLetterQueue, err)
	}

	return nil
}

// DeclareSinkQueue declares one sink's durable queue for a catalog stream
// and binds it to the exchange. Failed messages route to the dead-letter
// exchange when NACK'd without requeue.
func DeclareSinkQueue(
	channel *amqp.Channel,
	sinkName string,
	kind types.EntityKind,
) (amqp.Queue, error) {
	name := QueueName(sinkName, kind)

	queue, err := channel.QueueDeclare(
		name,
		true,
		false,
		false,
		false,
		amqp.Table{"x-dead-letter-exchange": DeadLetterExchange},
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("failed to declare queue %s: %w", name, err)
	}

	if err := channel.QueueBind(name, BindingPattern(kind), Exchange, false, nil); err != nil {
		return amqp.Queue{}, fmt.Errorf("failed to bind queue %s: %w", name, err)
	}

	return queue, nil
}

// connectBackoff is the dial retry policy: exponential from 500ms capped
// at 30s, five attempts total.
func connectBackoff() backoff.BackOff {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 500 * time.Millisecond
	expBackoff.MaxInterval = 30 * time.Second
	expBackoff.MaxElapsedTime = 0
	return backoff.WithMaxRetries(expBackoff, 4)
}
