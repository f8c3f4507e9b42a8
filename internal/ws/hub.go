// Package ws streams pipeline refresh and alert events to NOC
// dashboards over WebSocket.
package ws

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"
)

const (
	// sendBuffer sizes each client's outbound queue. A refresh pass
	// emits a handful of messages, so a dashboard has to stall for
	// many passes before it starts losing events.
	sendBuffer = 256

	// writeTimeout bounds a single frame write to one client.
	writeTimeout = 5 * time.Second
)

// Client is one connected dashboard. The subject comes from the access
// token, or "anonymous" when auth is disabled.
type Client struct {
	conn    *websocket.Conn
	subject string
	send    chan Message
	logger  *zap.Logger
}

func newClient(conn *websocket.Conn, subject string, logger *zap.Logger) *Client {
	return &Client{
		conn:    conn,
		subject: subject,
		send:    make(chan Message, sendBuffer),
		logger:  logger,
	}
}

// Hub tracks connected dashboards and fans pipeline events out to them.
// Delivery is best effort: a client that cannot drain its queue misses
// events instead of stalling the rest.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the broadcast set.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("dashboard connected",
		zap.String("subject", c.subject),
		zap.Int("clients", n),
	)
}

// Unregister removes a client and closes its queue so the write pump
// exits. Safe to call for clients the hub never owned, and safe to call
// twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, owned := h.clients[c]
	if owned {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if owned {
		h.logger.Debug("dashboard disconnected",
			zap.String("subject", c.subject),
			zap.Int("clients", n),
		)
	}
}

// Broadcast queues msg for every connected client and returns how many
// accepted it. Clients with a full queue are skipped.
func (h *Hub) Broadcast(msg Message) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for c := range h.clients {
		select {
		case c.send <- msg:
			delivered++
		default:
			h.logger.Warn("dashboard not draining, event dropped",
				zap.String("subject", c.subject),
				zap.String("type", string(msg.Type)),
			)
		}
	}
	return delivered
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// writePump drains the client's queue onto the wire. Exits when the hub
// closes the queue, the connection dies, or ctx is canceled.
func (c *Client) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.writeFrame(ctx, msg); err != nil {
				c.logger.Debug("websocket write failed",
					zap.String("subject", c.subject),
					zap.Error(err),
				)
				return
			}
		}
	}
}

func (c *Client) writeFrame(ctx context.Context, msg Message) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, c.conn, msg)
}

// readPump drains inbound frames until the peer goes away. The stream
// is one-way; anything the client sends is discarded.
func (c *Client) readPump(ctx context.Context) {
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return
		}
	}
}
