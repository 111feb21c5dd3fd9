package http

import (
	"context"
	"sync"
	"time"

	"secure-auth/internal/auth/domain/model"
	"secure-auth/internal/auth/usecase"
	"secure-auth/internal/shared/eventbus"
	"secure-auth/internal/shared/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

// Session event message types.
const (
	EventConnected      = "connected"
	EventSessionRevoked = "session.revoked"
)

const (
	eventsSendBuffer   = 16
	eventsWriteTimeout = 10 * time.Second
	eventsPingInterval = 30 * time.Second
	eventsPongWait     = 60 * time.Second
)

// SessionEvent is the JSON message pushed to a connected client.
type SessionEvent struct {
	Type       string    `json:"type"`
	SessionID  string    `json:"sessionId,omitempty"`
	SessionIDs []string  `json:"sessionIds,omitempty"`
	AllExcept  string    `json:"allExcept,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Count      int64     `json:"count,omitempty"`
	Current    bool      `json:"current"`
	At         time.Time `json:"at"`
}

type eventClient struct {
	sessionID string
	send      chan SessionEvent
}

// SessionEventsHandler pushes revocations to the websocket connections of the affected user.
// A connection whose own session is revoked receives the event and is then closed.
type SessionEventsHandler struct {
	log         logger.Logger
	mu          sync.RWMutex
	clients     map[string]map[*eventClient]struct{}
	unsubscribe func()
}

// NewSessionEventsHandler subscribes to session revocations on bus.
func NewSessionEventsHandler(bus eventbus.EventBusInterface, log logger.Logger) *SessionEventsHandler {
	if log == nil {
		log = logger.Nop()
	}
	h := &SessionEventsHandler{
		log:     log.WithComponent("session_events_ws"),
		clients: make(map[string]map[*eventClient]struct{}),
	}
	h.unsubscribe = bus.Subscribe(eventbus.EventTypeSessionRevoked, h.onRevoked)
	return h
}

// Close stops receiving revocations. Open connections are left to drain.
func (h *SessionEventsHandler) Close() {
	h.unsubscribe()
}

// Upgrade rejects requests that are not websocket upgrades.
func (h *SessionEventsHandler) Upgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// Handle serves an upgraded connection. It expects Protect to have stored the session in Locals.
func (h *SessionEventsHandler) Handle() fiber.Handler {
	return websocket.New(h.serve)
}

// ClientCount returns the number of open connections for userID.
func (h *SessionEventsHandler) ClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *SessionEventsHandler) onRevoked(_ context.Context, event eventbus.Event) error {
	rev, ok := event.Data().(usecase.Revocation)
	if !ok {
		return nil
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[rev.UserID] {
		msg := SessionEvent{
			Type:       EventSessionRevoked,
			SessionID:  client.sessionID,
			SessionIDs: rev.SessionIDs,
			AllExcept:  rev.AllExcept,
			Reason:     rev.Reason,
			Count:      rev.Count,
			Current:    rev.Affects(client.sessionID),
			At:         rev.At,
		}
		select {
		case client.send <- msg:
		default:
			h.log.Warnf("Dropping session event for slow client of session %s", client.sessionID)
		}
	}
	return nil
}

func (h *SessionEventsHandler) register(userID string, client *eventClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[userID]
	if !ok {
		set = make(map[*eventClient]struct{})
		h.clients[userID] = set
	}
	set[client] = struct{}{}
}

func (h *SessionEventsHandler) unregister(userID string, client *eventClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[userID]
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, userID)
	}
}

func (h *SessionEventsHandler) serve(conn *websocket.Conn) {
	session, ok := conn.Locals(LocalsSession).(*model.Session)
	if !ok || session == nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, MsgNoToken))
		return
	}

	client := &eventClient{sessionID: session.SessionID, send: make(chan SessionEvent, eventsSendBuffer)}
	h.register(session.UserID, client)
	defer h.unregister(session.UserID, client)

	log := h.log.WithFields(map[string]interface{}{
		"userID":    session.UserID,
		"sessionID": session.SessionID,
	})
	log.Debug("Session events connection opened")
	defer log.Debug("Session events connection closed")

	// Reads only detect disconnects and process pongs.
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = conn.SetReadDeadline(time.Now().Add(eventsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(eventsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warnf("Session events read error: %v", err)
				}
				return
			}
		}
	}()

	if err := h.write(conn, SessionEvent{Type: EventConnected, SessionID: session.SessionID, At: time.Now()}); err != nil {
		return
	}

	ticker := time.NewTicker(eventsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case msg := <-client.send:
			if err := h.write(conn, msg); err != nil {
				return
			}
			if msg.Current {
				_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteTimeout))
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.ClosePolicyViolation, msg.Reason))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *SessionEventsHandler) write(conn *websocket.Conn, msg SessionEvent) error {
	_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		h.log.Debugf("Session events write failed: %v", err)
		return err
	}
	return nil
}
