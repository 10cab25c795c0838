// Package realtime pushes in-app notification events to connected browsers
// over WebSockets. Delivery here is best-effort: a slow or absent consumer
// never blocks the coordination commands that produce events.
package realtime

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/calebmorten/shiftrelief/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096
	sendBufferSize = 32
)

// Event is the JSON payload delivered to connected clients.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Hub fans notification events out to every open connection of a user.
type Hub struct {
	mu       sync.RWMutex
	byUser   map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewHub constructs a realtime hub.
func NewHub() *Hub {
	return &Hub{
		byUser: make(map[string]map[*client]struct{}),
		log:    logger.WithModule("realtime"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return hostOf(origin) == hostOf("//"+r.Host) || isLoopback(hostOf(origin))
			},
		},
	}
}

// Serve upgrades the HTTP connection to a WebSocket and pumps events for the
// authenticated user until the peer disconnects.
func (h *Hub) Serve(userID string, w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.Error(err))
		return
	}

	c := &client{hub: h, socket: conn, userID: userID, send: make(chan Event, sendBufferSize)}
	h.register(c)

	go c.writeLoop()
	c.readLoop()
}

// Publish delivers an event to every open connection of the given user.
// Events for users with no open connection are dropped silently.
func (h *Hub) Publish(userID string, event Event) {
	if userID == "" {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.byUser[userID] {
		select {
		case c.send <- event:
		default:
			// Backpressured consumer; drop the connection rather than block.
			h.log.Warn("dropping slow realtime client", zap.String("user_id", userID))
			c.close()
		}
	}
}

// close tears the connection down. The send channel is never closed; both
// loops exit once the underlying socket errors.
func (c *client) close() {
	c.once.Do(func() {
		_ = c.socket.Close()
	})
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.byUser[c.userID] == nil {
		h.byUser[c.userID] = make(map[*client]struct{})
	}
	h.byUser[c.userID][c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := h.byUser[c.userID]
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.byUser, c.userID)
	}
}

type client struct {
	hub    *Hub
	socket *websocket.Conn
	userID string
	send   chan Event
	once   sync.Once
}

func (c *client) readLoop() {
	defer func() {
		c.hub.unregister(c)
		c.close()
	}()

	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Inbound frames are ignored; the stream is one-way.
	for {
		if _, _, err := c.socket.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case event := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
