package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/support-chat/backend/internal/chat"
)

// Client represents a single WebSocket connection.
type Client struct {
	conn     *websocket.Conn
	identity chat.Identity
	send     chan []byte
	mu       sync.Mutex
	closed   bool
}

// NewClient creates a new WebSocket client.
func NewClient(conn *websocket.Conn, identity chat.Identity) *Client {
	return &Client{
		conn:     conn,
		identity: identity,
		send:     make(chan []byte, 256),
	}
}

// Send queues a message to be sent to the client.
func (c *Client) Send(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		// Buffer full, close the client
		c.closeLocked()
	}
}

// Close closes the client connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// IsClosed returns true if the client is closed.
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Identity returns the identity resolved for this connection.
func (c *Client) Identity() chat.Identity {
	return c.identity
}

// Conn returns the underlying WebSocket connection.
func (c *Client) Conn() *websocket.Conn {
	return c.conn
}

// SendChan returns the send channel for the client.
func (c *Client) SendChan() <-chan []byte {
	return c.send
}

// Gateway tracks all live connections and implements the chat.Transport
// send primitives over them.
type Gateway struct {
	mu      sync.RWMutex
	clients map[string]*Client
	log     *logrus.Entry
}

// NewGateway creates a new Gateway.
func NewGateway(logger *logrus.Logger) *Gateway {
	return &Gateway{
		clients: make(map[string]*Client),
		log:     logger.WithField("component", "gateway"),
	}
}

// Register adds a client to the gateway.
func (g *Gateway) Register(client *Client) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clients[client.identity.ConnectionID] = client
}

// Unregister removes a client from the gateway and closes it.
func (g *Gateway) Unregister(client *Client) {
	g.mu.Lock()
	delete(g.clients, client.identity.ConnectionID)
	g.mu.Unlock()

	client.Close()
}

// Unicast sends a notification to a single connection. Unknown connection
// ids are silently discarded.
func (g *Gateway) Unicast(connectionID string, n chat.Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		g.log.WithError(err).Error("Failed to marshal notification")
		return
	}

	g.mu.RLock()
	client := g.clients[connectionID]
	g.mu.RUnlock()

	if client == nil {
		return
	}
	client.Send(data)
}

// BroadcastExcept sends a notification to every connection except one.
func (g *Gateway) BroadcastExcept(connectionID string, n chat.Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		g.log.WithError(err).Error("Failed to marshal notification")
		return
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	for id, client := range g.clients {
		if id == connectionID {
			continue
		}
		client.Send(data)
	}
}

// ClientCount returns the number of live connections.
func (g *Gateway) ClientCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.clients)
}

// Close closes every connection and empties the gateway.
func (g *Gateway) Close() {
	g.mu.Lock()
	clients := make([]*Client, 0, len(g.clients))
	for _, client := range g.clients {
		clients = append(clients, client)
	}
	g.clients = make(map[string]*Client)
	g.mu.Unlock()

	for _, client := range clients {
		client.Close()
	}
}
