// Package history archives ended chat sessions and their messages.
package history

import (
	"errors"
	"time"

	"github.com/support-chat/backend/internal/model"
)

// ErrSessionNotFound is returned when an archived session does not exist.
var ErrSessionNotFound = errors.New("archived session not found")

// Store persists ended chat sessions. Save is invoked once per ended
// session with the full ordered message list; callers treat failures as
// fire-and-forget and never let them unwind registry state.
type Store interface {
	Save(session model.ChatSession, participantID string, messages []model.ChatMessage) error
}

// ArchivedSession is a chat session as recorded in the history store.
type ArchivedSession struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	ParticipantID string    `json:"participantId"`
	StartedAt     time.Time `json:"startedAt"`
	EndedAt       time.Time `json:"endedAt"`
	MessageCount  int       `json:"messageCount"`
}
