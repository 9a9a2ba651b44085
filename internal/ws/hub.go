// Package ws is the realtime gateway: a websocket hub that forwards
// aggregated notification batches to every connected client.
package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/devlinkhq/backend/internal/notify"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const writeTimeout = 10 * time.Second

// event is the wire frame sent to clients, mirroring a topic-style socket
// emit: one named event with a payload.
type event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// client pairs a connection with its write lock. gorilla/websocket allows at
// most one concurrent writer per connection, and broadcasts can arrive from
// independent flush goroutines.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(frame any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(frame)
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	_ = c.conn.Close()
}

// Hub tracks connected websocket clients and broadcasts events to all of
// them. It implements notify.Publisher, so the batcher can push straight to
// connected clients.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]*client
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			// The boundary's auth middleware guards the route; the origin
			// policy matches the permissive CORS of the HTTP surface.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:  logger.Named("ws"),
		clients: make(map[*websocket.Conn]*client),
	}
}

// Handle upgrades an HTTP request to a websocket connection and keeps it
// registered until the client goes away.
func (h *Hub) Handle(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	h.mu.Lock()
	h.clients[conn] = &client{conn: conn}
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("client connected", zap.String("remote", conn.RemoteAddr().String()), zap.Int("clients", total))

	// Drain client frames; the hub is broadcast-only. The read loop ends
	// when the peer closes or errors, which unregisters the connection.
	go h.readLoop(conn)

	return nil
}

func (h *Hub) readLoop(conn *websocket.Conn) {
	defer h.drop(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
	_ = conn.Close()
}

// Publish broadcasts one aggregated batch as a "new-<channel>" event to every
// connected client. Dead connections are dropped along the way.
func (h *Hub) Publish(_ context.Context, channel string, batch *notify.Batch) error {
	h.broadcast("new-"+channel, batch)
	return nil
}

func (h *Hub) broadcast(name string, payload any) {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for _, cl := range h.clients {
		targets = append(targets, cl)
	}
	h.mu.Unlock()

	frame := event{Event: name, Data: payload}
	for _, cl := range targets {
		if err := cl.write(frame); err != nil {
			h.logger.Warn("dropping unresponsive client",
				zap.String("remote", cl.conn.RemoteAddr().String()), zap.Error(err))
			h.drop(cl.conn)
		}
	}
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients))
	for _, cl := range h.clients {
		targets = append(targets, cl)
	}
	h.clients = make(map[*websocket.Conn]*client)
	h.mu.Unlock()

	for _, cl := range targets {
		cl.close()
	}
}
