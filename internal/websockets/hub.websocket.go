package websockets

import (
	"sync"

	"github.com/google/uuid"
)

// Hub tracks every open connection. Registration and teardown flow through
// channels so the run loop is the only writer of the client map's lifecycle;
// the mutex covers readers and the per-client closed flag.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	clients    map[string]*Client
	mutex      sync.RWMutex
}

func newHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string]*Client),
	}
}

func (h *Hub) run(m *Manager) {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client, m)
		case client := <-h.unregister:
			h.unregisterClient(client, m)
		}
	}
}

func (h *Hub) registerClient(client *Client, m *Manager) {
	h.mutex.Lock()
	h.clients[client.ID] = client
	count := len(h.clients)
	h.mutex.Unlock()

	m.log.Info("websocket client connected", "clientID", client.ID, "totalClients", count)
}

func (h *Hub) unregisterClient(client *Client, m *Manager) {
	h.mutex.Lock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
	}
	if !client.closed {
		client.closed = true
		close(client.send)
	}
	count := len(h.clients)
	h.mutex.Unlock()

	m.log.Info("websocket client disconnected", "clientID", client.ID, "totalClients", count)
}

// authenticate promotes a client after a successful token check. Guarded by
// the hub mutex so SendMessageToUser never observes a half-written identity.
func (h *Hub) authenticate(client *Client, userID uuid.UUID) {
	h.mutex.Lock()
	client.UserID = userID
	client.Status = StatusAuthenticated
	h.mutex.Unlock()
}

func (h *Hub) isAuthenticated(client *Client) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return client.Status == StatusAuthenticated
}

// SendMessageToUser queues a message on every authenticated socket the user
// has open. Slow clients have the message dropped instead of blocking the
// caller, which runs on the event bus dispatch goroutine.
func (h *Hub) SendMessageToUser(userID uuid.UUID, message Message) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for _, client := range h.clients {
		if client.closed || client.Status != StatusAuthenticated || client.UserID != userID {
			continue
		}
		select {
		case client.send <- message:
		default:
		}
	}
}
