package websockets

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// Hub fans messages out to websocket connections held by this process. It
// serves the local development server.
type Hub struct {
	mu    sync.Mutex
	conns map[string]*hubConn
}

type hubConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]*hubConn)}
}

var _ Publisher = (*Hub)(nil)

func (h *Hub) Attach(id string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[id] = &hubConn{conn: conn}
}

func (h *Hub) Detach(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, id)
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Publish writes message to every attached connection. Connections that fail
// to accept the write are dropped.
func (h *Hub) Publish(_ context.Context, message Message) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	h.mu.Lock()
	targets := make(map[string]*hubConn, len(h.conns))
	for id, c := range h.conns {
		targets[id] = c
	}
	h.mu.Unlock()

	for id, c := range targets {
		c.mu.Lock()
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := c.conn.WriteMessage(websocket.TextMessage, payload)
		c.mu.Unlock()
		if err != nil {
			slog.Info("dropping local connection", "connectionId", id, "error", err)
			h.Detach(id)
		}
	}
	return nil
}
