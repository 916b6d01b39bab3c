package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/support-chat/backend/internal/ws"
)

// ChatHandler exposes the WebSocket chat endpoint.
type ChatHandler struct {
	wsHandler *ws.Handler
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(wsHandler *ws.Handler) *ChatHandler {
	return &ChatHandler{wsHandler: wsHandler}
}

// Attach handles GET /api/chat - upgrades to WebSocket and joins the chat.
// Customers pass ?name=<display name>; the manager passes ?manager=true.
func (h *ChatHandler) Attach(c *gin.Context) {
	if err := h.wsHandler.HandleConnection(c.Writer, c.Request); err != nil {
		// Upgrade failures already wrote a response.
		return
	}
}

// RegisterRoutes registers the chat routes on a Gin router group.
func (h *ChatHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/chat", h.Attach)
}
