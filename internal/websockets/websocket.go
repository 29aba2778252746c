package websockets

import (
	"time"

	"waxworks/config"
	"waxworks/internal/events"
	"waxworks/internal/repositories"
	"waxworks/internal/services"
	"waxworks/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	MESSAGE_TYPE_AUTH_REQUEST  = "auth_request"
	MESSAGE_TYPE_AUTH_RESPONSE = "auth_response"
	MESSAGE_TYPE_AUTH_SUCCESS  = "auth_success"
	MESSAGE_TYPE_AUTH_FAILURE  = "auth_failure"

	PING_INTERVAL     = 30 * time.Second
	PONG_TIMEOUT      = 60 * time.Second
	WRITE_TIMEOUT     = 10 * time.Second
	AUTH_TIMEOUT      = 10 * time.Second
	MAX_MESSAGE_SIZE  = 64 * 1024
	SEND_CHANNEL_SIZE = 64
)

type ClientStatus int

const (
	StatusPending ClientStatus = iota
	StatusAuthenticated
)

type Message struct {
	ID        string         `json:"id,omitempty"`
	Type      string         `json:"type"`
	Channel   string         `json:"channel,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

type Client struct {
	ID         string
	UserID     uuid.UUID
	Connection *websocket.Conn
	Manager    *Manager
	Status     ClientStatus
	send       chan Message
	closed     bool
}

// Manager owns the hub and pushes sync lifecycle events from the event bus
// out to each user's authenticated sockets. Connections start unauthenticated
// and must answer the auth challenge with a bearer token before they receive
// anything.
type Manager struct {
	hub         *Hub
	config      config.Config
	log         logger.Logger
	eventBus    *events.EventBus
	authService *services.AuthService
	userRepo    repositories.UserRepository
}

func New(
	eventBus *events.EventBus,
	config config.Config,
	authService *services.AuthService,
	userRepo repositories.UserRepository,
) (*Manager, error) {
	log := logger.New("websockets")

	manager := &Manager{
		hub:         newHub(),
		config:      config,
		log:         log,
		eventBus:    eventBus,
		authService: authService,
		userRepo:    userRepo,
	}

	go manager.hub.run(manager)

	if err := manager.subscribeToSyncEvents(); err != nil {
		return nil, log.Err("failed to subscribe to sync events", err)
	}

	log.Info("Websocket manager initialized")
	return manager, nil
}

// HandleWebSocket runs for the lifetime of one connection. It must not return
// until the socket is done; fiber closes the connection when it does.
func (m *Manager) HandleWebSocket(c *websocket.Conn) {
	client := &Client{
		ID:         uuid.New().String(),
		Connection: c,
		Manager:    m,
		Status:     StatusPending,
		send:       make(chan Message, SEND_CHANNEL_SIZE),
	}

	m.hub.register <- client

	m.sendAuthRequest(client)
	go m.startAuthTimeout(client)

	go client.writePump()
	client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.Manager.hub.unregister <- c
		_ = c.Connection.Close()
	}()

	c.Connection.SetReadLimit(MAX_MESSAGE_SIZE)
	_ = c.Connection.SetReadDeadline(time.Now().Add(PONG_TIMEOUT))
	c.Connection.SetPongHandler(func(string) error {
		return c.Connection.SetReadDeadline(time.Now().Add(PONG_TIMEOUT))
	})

	for {
		var message Message
		if err := c.Connection.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(
				err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
			) {
				c.Manager.log.Warn("unexpected websocket close", "clientID", c.ID, "error", err)
			}
			return
		}

		c.Manager.routeMessage(c, message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(PING_INTERVAL)
	defer func() {
		ticker.Stop()
		_ = c.Connection.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.Connection.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT))
			if !ok {
				_ = c.Connection.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Connection.WriteJSON(message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Connection.SetWriteDeadline(time.Now().Add(WRITE_TIMEOUT))
			if err := c.Connection.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (m *Manager) routeMessage(client *Client, message Message) {
	switch message.Type {
	case MESSAGE_TYPE_AUTH_RESPONSE:
		m.handleAuthResponse(client, message)
	default:
		m.log.Debug("ignoring unexpected websocket message", "type", message.Type, "clientID", client.ID)
	}
}

// queueMessage places a message on the client's send buffer without ever
// blocking the caller. Returns false when the client is gone or its buffer
// is full; a full buffer means the client is too slow and the message is
// dropped rather than stalling the hub.
func (m *Manager) queueMessage(client *Client, message Message) bool {
	m.hub.mutex.RLock()
	defer m.hub.mutex.RUnlock()

	if client.closed {
		return false
	}

	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// subscribeToSyncEvents relays sync lifecycle events published on the event
// bus to the owning user's open sockets. Events without a user are internal
// and never leave the server.
func (m *Manager) subscribeToSyncEvents() error {
	return m.eventBus.Subscribe(events.SYNC_CHANNEL, func(event events.Event) error {
		if event.UserID == nil {
			return nil
		}

		m.hub.SendMessageToUser(*event.UserID, Message{
			ID:        event.ID,
			Type:      string(event.Type),
			Channel:   string(event.Channel),
			Data:      event.Data,
			Timestamp: event.Timestamp,
		})
		return nil
	})
}
