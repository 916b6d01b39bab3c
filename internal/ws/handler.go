package ws

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/support-chat/backend/internal/chat"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking in production
		return true
	},
}

// FrameType identifies an inbound WebSocket frame.
type FrameType string

const (
	FrameTypeSendMessage FrameType = "sendMessage"
	FrameTypePing        FrameType = "ping"
	FrameTypePong        FrameType = "pong"
)

// Frame is the JSON payload clients send to the server.
type Frame struct {
	Type FrameType `json:"type"`
	Name string    `json:"name,omitempty"`
	Text string    `json:"text,omitempty"`
}

// Config holds configuration for the WebSocket handler.
type Config struct {
	// MessageRate limits sendMessage frames per connection, per second.
	MessageRate float64
	// MessageBurst is the per-connection burst allowance.
	MessageBurst int
}

// Handler handles WebSocket connections for the chat backend.
type Handler struct {
	gateway     *Gateway
	coordinator *chat.Coordinator
	router      *chat.Router
	config      Config
	log         *logrus.Entry
}

// NewHandler creates a new WebSocket handler.
func NewHandler(gateway *Gateway, coordinator *chat.Coordinator, router *chat.Router, config Config, logger *logrus.Logger) *Handler {
	if config.MessageRate == 0 {
		config.MessageRate = 5
	}
	if config.MessageBurst == 0 {
		config.MessageBurst = 10
	}
	return &Handler{
		gateway:     gateway,
		coordinator: coordinator,
		router:      router,
		config:      config,
		log:         logger.WithField("component", "ws"),
	}
}

// resolveIdentity builds the typed connection identity from the request.
// Customers supply their display name, the manager its role flag; both are
// read once here and fixed for the connection's lifetime.
func resolveIdentity(r *http.Request) chat.Identity {
	return chat.Identity{
		ConnectionID: uuid.New().String(),
		Name:         r.URL.Query().Get("name"),
		Manager:      r.URL.Query().Get("manager") == "true",
	}
}

// HandleConnection upgrades the HTTP request, registers the connection and
// starts its read and write pumps.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) error {
	identity := resolveIdentity(r)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := NewClient(conn, identity)
	h.gateway.Register(client)

	// Presence notifications go out after the connection is registered, so
	// the new connection can itself receive unicasts during reveal.
	h.coordinator.Connected(identity)

	go h.writePump(client)
	go h.readPump(client)

	return nil
}

// readPump pumps frames from the WebSocket connection into the chat core.
func (h *Handler) readPump(client *Client) {
	identity := client.Identity()

	defer func() {
		h.gateway.Unregister(client)
		h.coordinator.Disconnected(identity)
		client.Conn().Close()
	}()

	client.Conn().SetReadLimit(maxMessageSize)
	client.Conn().SetReadDeadline(time.Now().Add(pongWait))
	client.Conn().SetPongHandler(func(string) error {
		client.Conn().SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	limiter := rate.NewLimiter(rate.Limit(h.config.MessageRate), h.config.MessageBurst)

	for {
		_, message, err := client.Conn().ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.WithError(err).Warn("WebSocket read error")
			}
			break
		}

		var frame Frame
		if err := json.Unmarshal(message, &frame); err != nil {
			h.log.WithError(err).Warn("Failed to unmarshal frame")
			continue
		}

		h.handleFrame(client, identity, &frame, limiter)
	}
}

// handleFrame dispatches a single inbound frame.
func (h *Handler) handleFrame(client *Client, identity chat.Identity, frame *Frame, limiter *rate.Limiter) {
	switch frame.Type {
	case FrameTypeSendMessage:
		if !limiter.Allow() {
			h.log.WithField("connection", identity.ConnectionID).Debug("Dropping frame over message rate")
			return
		}
		h.router.Route(identity.ConnectionID, frame.Name, frame.Text)
	case FrameTypePing:
		h.handlePing(client)
	}
}

// handlePing answers an application-level keepalive.
func (h *Handler) handlePing(client *Client) {
	data, err := json.Marshal(Frame{Type: FrameTypePong})
	if err != nil {
		return
	}
	client.Send(data)
}

// writePump pumps queued notifications to the WebSocket connection.
func (h *Handler) writePump(client *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.Conn().Close()
	}()

	for {
		select {
		case message, ok := <-client.SendChan():
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The gateway closed the channel
				client.Conn().WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// Send each notification in a separate frame so clients can
			// JSON-decode them one by one.
			if err := client.Conn().WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			n := len(client.SendChan())
			for i := 0; i < n; i++ {
				queued := <-client.SendChan()
				client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.Conn().WriteMessage(websocket.TextMessage, queued); err != nil {
					return
				}
			}
		case <-ticker.C:
			client.Conn().SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.Conn().WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SetCheckOrigin sets a custom origin checker for the WebSocket upgrader.
func SetCheckOrigin(fn func(r *http.Request) bool) {
	upgrader.CheckOrigin = fn
}
