package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"waxworks/config"
	"waxworks/internal/types"
	"waxworks/pkg/logger"

	"github.com/google/uuid"
	"github.com/valkey-io/valkey-go"
)

type Channel string

func (c Channel) String() string {
	return string(c)
}

const (
	// SYNC_CHANNEL carries sync lifecycle events to websocket hubs on every
	// API instance.
	SYNC_CHANNEL Channel = "sync"

	// CACHE_CHANNEL carries invalidation notices to in-process caches.
	CACHE_CHANNEL Channel = "cache"
)

type MessageType string

const (
	SYNC_STARTED     MessageType = MessageType(types.SyncStarted)
	SYNC_COMPLETED   MessageType = MessageType(types.SyncCompleted)
	SYNC_FAILED      MessageType = MessageType(types.SyncFailed)
	CACHE_INVALIDATE MessageType = "cache.invalidate"
)

// Event is the envelope published to valkey pub/sub. Instances subscribed
// to the same channel all receive it, local handlers included.
type Event struct {
	ID        string         `json:"id"`
	Type      MessageType    `json:"type"`
	Channel   Channel        `json:"channel"`
	UserID    *uuid.UUID     `json:"user_id,omitempty"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
}

type EventHandler func(event Event) error

type EventBus struct {
	client    valkey.Client
	logger    logger.Logger
	config    config.Config
	handlers  map[Channel][]EventHandler
	listening map[Channel]bool
	mutex     sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
}

func New(client valkey.Client, config config.Config) *EventBus {
	ctx, cancel := context.WithCancel(context.Background())

	return &EventBus{
		client:    client,
		logger:    logger.New("eventBus"),
		config:    config,
		handlers:  make(map[Channel][]EventHandler),
		listening: make(map[Channel]bool),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (eb *EventBus) Publish(channel Channel, event Event) error {
	log := eb.logger.Function("Publish")

	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if event.Channel == "" {
		event.Channel = channel
	}

	eventData, err := json.Marshal(event)
	if err != nil {
		return log.Err("failed to marshal event", err, "eventID", event.ID)
	}

	ctx, cancel := context.WithTimeout(eb.ctx, 5*time.Second)
	defer cancel()

	err = eb.client.Do(ctx, eb.client.B().Publish().Channel(channel.String()).Message(string(eventData)).Build()).
		Error()
	if err != nil {
		return log.Err("failed to publish event to valkey", err, "channel", channel, "eventID", event.ID)
	}

	log.Debug("Event published", "channel", channel, "eventID", event.ID, "eventType", event.Type)
	return nil
}

// Subscribe registers a handler; the first handler on a channel starts the
// pub/sub listener for it.
func (eb *EventBus) Subscribe(channel Channel, handler EventHandler) error {
	log := eb.logger.Function("Subscribe")

	eb.mutex.Lock()
	eb.handlers[channel] = append(eb.handlers[channel], handler)
	startListener := !eb.listening[channel]
	eb.listening[channel] = true
	eb.mutex.Unlock()

	if startListener {
		go eb.listenToChannel(channel)
	}

	log.Info("Handler subscribed to channel", "channel", channel)
	return nil
}

func (eb *EventBus) notifyLocalHandlers(channel Channel, event Event) {
	log := eb.logger.Function("notifyLocalHandlers")

	eb.mutex.RLock()
	handlers := eb.handlers[channel]
	eb.mutex.RUnlock()

	for i, handler := range handlers {
		go func(h EventHandler, handlerIndex int) {
			if err := h(event); err != nil {
				log.Er("handler failed", err,
					"channel", channel,
					"eventID", event.ID,
					"handlerIndex", handlerIndex,
				)
			}
		}(handler, i)
	}
}

func (eb *EventBus) listenToChannel(channel Channel) {
	log := eb.logger.Function("listenToChannel")

	ctx, cancel := context.WithCancel(eb.ctx)
	defer cancel()

	log.Info("Starting to listen to channel", "channel", channel)

	err := eb.client.Receive(
		ctx,
		eb.client.B().Subscribe().Channel(channel.String()).Build(),
		func(msg valkey.PubSubMessage) {
			var event Event
			if err := json.Unmarshal([]byte(msg.Message), &event); err != nil {
				log.Er("failed to unmarshal event", err, "channel", channel, "message", msg.Message)
				return
			}

			eb.notifyLocalHandlers(channel, event)
		},
	)
	if err != nil && eb.ctx.Err() == nil {
		log.Er("failed to listen to channel", err, "channel", channel)
	}
}

func (eb *EventBus) Close() error {
	log := eb.logger.Function("Close")

	eb.cancel()

	log.Info("EventBus closed")
	return nil
}

// PublishSyncEvent fans a sync lifecycle transition out to every API
// instance. Publish failures are logged by the caller; a lost notification
// never fails the sync itself.
func (eb *EventBus) PublishSyncEvent(eventType types.SyncEventType, event types.SyncEvent) error {
	var userID *uuid.UUID
	if parsed, err := uuid.Parse(event.UserID); err == nil {
		userID = &parsed
	}

	return eb.Publish(SYNC_CHANNEL, Event{
		Type:   MessageType(eventType),
		UserID: userID,
		Data:   event.ToMap(),
	})
}

// PublishCacheInvalidation tells every instance to drop cached entries
// matching the pattern.
func (eb *EventBus) PublishCacheInvalidation(pattern string) error {
	return eb.Publish(CACHE_CHANNEL, Event{
		Type: CACHE_INVALIDATE,
		Data: map[string]any{"pattern": pattern},
	})
}
