package bus

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"waxworks/internal/types"
	"waxworks/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher emits change-hook messages. It keeps one channel and reopens
// it lazily when the connection was lost. Publish failures are the
// caller's to classify — the sinks log them and move on, because a change
// hook must never fail the catalog write it describes.
type Publisher struct {
	bus     *Bus
	log     logger.Logger
	mu      sync.Mutex
	channel *amqp.Channel
}

func NewPublisher(bus *Bus) *Publisher {
	return &Publisher{
		bus: bus,
		log: logger.New("bus").File("publisher"),
	}
}

// PublishChange sends a change event to `{type}.changes` on the exchange.
func (p *Publisher) PublishChange(ctx context.Context, event types.ChangeEvent) error {
	kind, ok := types.ParseEntityKind(event.DataType)
	if !ok {
		return p.log.Error("unknown change event data type", "dataType", event.DataType)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return p.log.Err("failed to marshal change event", err)
	}

	return p.Publish(ctx, ChangesKey(kind), body)
}

// Publish sends one persistent JSON message to the exchange. A failed
// publish invalidates the cached channel so the next call redials.
func (p *Publisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	channel, err := p.ensureChannel(ctx)
	if err != nil {
		return err
	}

	err = channel.PublishWithContext(ctx,
		Exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		p.invalidateChannel()
		return p.log.Err("failed to publish message", err, "routingKey", routingKey)
	}

	return nil
}

func (p *Publisher) ensureChannel(ctx context.Context) (*amqp.Channel, error) {
	if p.channel != nil && !p.channel.IsClosed() {
		return p.channel, nil
	}

	channel, err := p.bus.Channel(ctx)
	if err != nil {
		return nil, err
	}

	if err := DeclareTopology(channel); err != nil {
		_ = channel.Close()
		return nil, p.log.Err("failed to declare topology", err)
	}

	p.channel = channel
	return channel, nil
}

func (p *Publisher) invalidateChannel() {
	if p.channel != nil {
		_ = p.channel.Close()
		p.channel = nil
	}
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invalidateChannel()
}
