package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/playmatatu/billiards/internal/logging"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // origins are checked by middleware.WebSocketCORSCheck
	},
}

// logger is created on use so it picks up the level set by logging.Setup.
func logger() *log.Logger { return logging.For("ws") }

// Client is the controlling connection of one session.
type Client struct {
	hub          *Hub
	conn         *websocket.Conn
	sessionToken string
	send         chan []byte
	// registered is closed once the hub has taken the client
	registered chan struct{}
}

// Hub maps each session to its one connected client. A newer connection
// for a session replaces the older one.
type Hub struct {
	clients    map[string]*Client // session token -> Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub. Call Run in its own goroutine.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run handles registrations until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if old, exists := h.clients[client.sessionToken]; exists {
				logger().Info("session reconnecting, closing old connection", "session", client.sessionToken)
				if err := old.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced by new connection"),
					time.Now().Add(time.Second)); err != nil {
					logger().Debug("close control to old client failed", "session", old.sessionToken, "err", err)
				}
				close(old.send)
			}
			h.clients[client.sessionToken] = client
			h.mu.Unlock()
			if client.registered != nil {
				close(client.registered)
			}
			logger().Info("client connected", "session", client.sessionToken)

		case client := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[client.sessionToken]; ok && cur == client {
				delete(h.clients, client.sessionToken)
				close(client.send)
				logger().Info("client disconnected", "session", client.sessionToken)
			}
			h.mu.Unlock()
		}
	}
}

// Connected reports whether a session has a client on this instance.
func (h *Hub) Connected(sessionToken string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[sessionToken]
	return ok
}

// SendToSession queues a message for the session's client. It never blocks;
// a full buffer drops the message.
func (h *Hub) SendToSession(sessionToken string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		logger().Error("marshal message", "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if client, exists := h.clients[sessionToken]; exists {
		client.deliver(data)
	}
}

// sendTo queues data for c if c is still the registered client.
func (h *Hub) sendTo(c *Client, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if cur, ok := h.clients[c.sessionToken]; ok && cur == c {
		c.deliver(data)
	}
}

// CloseSession sends a final message and then closes the session's
// connection.
func (h *Hub) CloseSession(sessionToken string, final interface{}) {
	data, err := json.Marshal(final)
	if err != nil {
		logger().Error("marshal message", "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	client, exists := h.clients[sessionToken]
	if !exists {
		return
	}
	client.deliver(data)
	delete(h.clients, sessionToken)
	close(client.send)
}

// deliver must be called with the hub lock held and c registered.
func (c *Client) deliver(data []byte) {
	select {
	case c.send <- data:
	default:
		logger().Warn("client send buffer full, dropping message", "session", c.sessionToken)
	}
}

// WSMessage is a client message.
type WSMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// OutMessage is a server message.
type OutMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// writePump writes messages to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// replaced, closed or unregistered
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger().Debug("write error", "session", c.sessionToken, "err", err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger().Debug("ping error", "session", c.sessionToken, "err", err)
				return
			}
		}
	}
}

// sendError sends an error message to the client
func (c *Client) sendError(message string) {
	data, _ := json.Marshal(map[string]interface{}{
		"type":    "error",
		"message": message,
	})
	c.hub.sendTo(c, data)
}

func (c *Client) sendJSON(msg OutMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger().Error("marshal message", "type", msg.Type, "err", err)
		return
	}
	c.hub.sendTo(c, data)
}
