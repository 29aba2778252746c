package websockets

import (
	"context"
	"time"

	"github.com/google/uuid"
)

func (m *Manager) sendAuthRequest(client *Client) {
	m.queueMessage(client, Message{
		ID:        uuid.New().String(),
		Type:      MESSAGE_TYPE_AUTH_REQUEST,
		Timestamp: time.Now(),
	})
}

// startAuthTimeout drops connections that never complete the token handshake.
func (m *Manager) startAuthTimeout(client *Client) {
	time.Sleep(AUTH_TIMEOUT)

	if !m.hub.isAuthenticated(client) {
		m.log.Info("closing unauthenticated websocket", "clientID", client.ID)
		_ = client.Connection.Close()
	}
}

// handleAuthResponse validates the access token a client sent back for the
// auth challenge. The same token checks as the HTTP middleware apply: the
// signature and expiry must hold, the jti must not be revoked, and the
// subject must still resolve to a user row.
func (m *Manager) handleAuthResponse(client *Client, message Message) {
	log := m.log.Function("handleAuthResponse")
	ctx := context.Background()

	token, _ := message.Data["token"].(string)
	if token == "" {
		m.sendAuthFailure(client, "Missing authentication token")
		return
	}

	claims, err := m.authService.ValidateToken(ctx, token)
	if err != nil {
		log.Warn("websocket token rejected", "clientID", client.ID, "error", err)
		m.sendAuthFailure(client, "Invalid or expired token")
		return
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		m.sendAuthFailure(client, "Invalid or expired token")
		return
	}

	user, err := m.userRepo.GetByID(ctx, userID)
	if err != nil {
		log.Warn("websocket token resolved to no user", "clientID", client.ID, "userID", userID)
		m.sendAuthFailure(client, "User not found")
		return
	}

	m.hub.authenticate(client, user.ID)
	log.Info("websocket client authenticated", "clientID", client.ID, "userID", user.ID)

	m.queueMessage(client, Message{
		ID:        uuid.New().String(),
		Type:      MESSAGE_TYPE_AUTH_SUCCESS,
		Data:      map[string]any{"user_id": user.ID.String()},
		Timestamp: time.Now(),
	})
}

func (m *Manager) sendAuthFailure(client *Client, reason string) {
	m.queueMessage(client, Message{
		ID:        uuid.New().String(),
		Type:      MESSAGE_TYPE_AUTH_FAILURE,
		Data:      map[string]any{"reason": reason},
		Timestamp: time.Now(),
	})

	// Give the write pump a beat to flush the failure before dropping the
	// socket; the read deadline still bounds the wait if the client stalls.
	time.AfterFunc(time.Second, func() {
		_ = client.Connection.Close()
	})
}
