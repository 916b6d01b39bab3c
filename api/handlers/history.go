package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/support-chat/backend/internal/history"
)

// HistoryHandler handles HTTP requests for archived chat sessions.
type HistoryHandler struct {
	store *history.SQLiteStore
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(store *history.SQLiteStore) *HistoryHandler {
	return &HistoryHandler{store: store}
}

// List handles GET /api/history - lists archived sessions.
func (h *HistoryHandler) List(c *gin.Context) {
	sessions, err := h.store.ListSessions(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list history: "+err.Error())
		return
	}

	if sessions == nil {
		sessions = []history.ArchivedSession{}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// Messages handles GET /api/history/:id/messages - the transcript of one
// archived session.
func (h *HistoryHandler) Messages(c *gin.Context) {
	sessionID := c.Param("id")

	messages, err := h.store.Messages(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, history.ErrSessionNotFound) {
			sendError(c, http.StatusNotFound, "SESSION_NOT_FOUND", "Archived session "+sessionID+" not found")
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load transcript: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// RegisterRoutes registers the history routes on a Gin router group.
func (h *HistoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/history", h.List)
	rg.GET("/history/:id/messages", h.Messages)
}
