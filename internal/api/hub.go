package api

import (
	"context"
	"sync"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/shriniketh555/medcare/internal/notify"
)

// Hub pushes notification events to every connected WebSocket client. It is
// itself a notification sink, so the browser gets the same reminders the
// caregiver channels do.
type Hub struct {
	logger *zap.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]bool
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger: logger,
		conns:  make(map[*websocket.Conn]bool),
	}
}

// handleConn holds the connection open until the client disconnects. Clients
// only listen; inbound messages are drained and discarded.
func (h *Hub) handleConn(c *websocket.Conn) {
	h.mu.Lock()
	h.conns[c] = true
	total := len(h.conns)
	h.mu.Unlock()

	h.logger.Debug("WebSocket client connected", zap.Int("clients", total))

	defer func() {
		h.mu.Lock()
		delete(h.conns, c)
		h.mu.Unlock()
		c.Close()
	}()

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			return
		}
	}
}

// Send implements notify.Notifier. A write failure drops that client and
// never fails the fan-out.
func (h *Hub) Send(ctx context.Context, event notify.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.conns {
		if err := conn.WriteJSON(event); err != nil {
			h.logger.Debug("WebSocket write failed, dropping client", zap.Error(err))
			conn.Close()
			delete(h.conns, conn)
		}
	}
	return nil
}

// Clients reports how many clients are connected.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		conn.Close()
		delete(h.conns, conn)
	}
}
