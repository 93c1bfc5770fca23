package sandbox

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Change is the notification broadcast after every appointment mutation.
// Subscribers only learn that an id changed, not what changed; they react by
// invalidating and refetching, which keeps them on canonical server state.
type Change struct {
	Action        string    `json:"action"` // created, updated, deleted
	AppointmentID uuid.UUID `json:"appointment_id"`
}

// Hub fans appointment changes out to connected websocket clients.
type Hub struct {
	mu     sync.Mutex
	conns  map[*gorillawebsocket.Conn]struct{}
	logger zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		conns:  make(map[*gorillawebsocket.Conn]struct{}),
		logger: logger.With().Str("component", "sandbox.hub").Logger(),
	}
}

// Broadcast sends a change to every connected client. Clients whose write
// fails are dropped.
func (h *Hub) Broadcast(change Change) {
	payload, err := json.Marshal(change)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteMessage(gorillawebsocket.TextMessage, payload); err != nil {
			h.logger.Debug().Err(err).Msg("dropping websocket client")
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

var upgrader = gorillawebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The sandbox is a local dev tool; cross-origin consoles are expected.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Handler upgrades the request and keeps the connection registered until
// the client goes away.
func (h *Hub) Handler(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	// Drain inbound frames; the read loop ends when the peer closes.
	go func() {
		defer func() {
			h.mu.Lock()
			delete(h.conns, conn)
			h.mu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	return nil
}

// ClientCount reports connected clients, for tests and the health endpoint.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
