package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/support-chat/backend/internal/registry"
)

// SessionHandler handles HTTP requests for live session administration.
type SessionHandler struct {
	registry *registry.Registry
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(reg *registry.Registry) *SessionHandler {
	return &SessionHandler{registry: reg}
}

// SessionResponse represents an active session in API responses.
type SessionResponse struct {
	Name         string `json:"name"`
	StartedAt    string `json:"startedAt"`
	MessageCount int    `json:"messageCount"`
}

// EndSessionsResponse reports which sessions an end request closed.
type EndSessionsResponse struct {
	Ended []string `json:"ended"`
}

// List handles GET /api/sessions - lists the currently active sessions.
func (h *SessionHandler) List(c *gin.Context) {
	sessions := h.registry.All()

	responses := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		count := 0
		if messages, err := h.registry.Messages(s.Name); err == nil {
			count = len(messages)
		}
		responses = append(responses, SessionResponse{
			Name:         s.Name,
			StartedAt:    s.StartedAt.Format(time.RFC3339),
			MessageCount: count,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"sessions": responses,
		"count":    h.registry.Count(),
	})
}

// End handles POST /api/sessions/end - the administrative end trigger.
// An optional comma-separated names parameter selects sessions to end;
// without it every active session is ended. Unknown names are skipped,
// not errors.
func (h *SessionHandler) End(c *gin.Context) {
	var names []string
	for _, name := range strings.Split(c.Query("names"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}

	var ended []string
	if len(names) == 0 {
		for _, s := range h.registry.All() {
			ended = append(ended, s.Name)
		}
		h.registry.EndAll()
	} else {
		for _, name := range names {
			if !h.registry.IsStarted(name) {
				continue
			}
			if err := h.registry.End(name); err == nil {
				ended = append(ended, name)
			}
		}
	}

	if ended == nil {
		ended = []string{}
	}
	c.JSON(http.StatusOK, EndSessionsResponse{Ended: ended})
}

// RegisterRoutes registers the session routes on a Gin router group.
func (h *SessionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/sessions", h.List)
	rg.POST("/sessions/end", h.End)
}
