package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/support-chat/backend/internal/model"
)

// SQLiteStore is a Store backed by SQLite.
type SQLiteStore struct {
	db  *sql.DB
	log *logrus.Entry
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db *sql.DB, logger *logrus.Logger) *SQLiteStore {
	return &SQLiteStore{
		db:  db,
		log: logger.WithField("component", "history"),
	}
}

// hasContent reports whether at least one message carries non-blank text.
// Sessions where nothing was actually said are not worth archiving.
func hasContent(messages []model.ChatMessage) bool {
	for _, m := range messages {
		if strings.TrimSpace(m.Text) != "" {
			return true
		}
	}
	return false
}

// Save archives an ended session together with its messages. Sessions with
// no non-blank message are skipped.
func (s *SQLiteStore) Save(session model.ChatSession, participantID string, messages []model.ChatMessage) error {
	if !hasContent(messages) {
		s.log.WithField("session", session.Name).Debug("Skipping archive of session without messages")
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sessionID := uuid.New().String()

	_, err = tx.Exec(
		`INSERT INTO chat_sessions (id, name, participant_id, started_at, ended_at) VALUES (?, ?, ?, ?, ?)`,
		sessionID,
		session.Name,
		participantID,
		session.StartedAt,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to archive session: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO chat_messages (id, session_id, seq, sender, text, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare message insert: %w", err)
	}
	defer stmt.Close()

	for i, m := range messages {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		if _, err := stmt.Exec(uuid.New().String(), sessionID, i, m.Sender, m.Text, m.CreatedAt); err != nil {
			return fmt.Errorf("failed to archive message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit archive: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"session":  session.Name,
		"messages": len(messages),
	}).Info("Archived chat session")

	return nil
}

// ListSessions returns all archived sessions, most recently ended first.
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]ArchivedSession, error) {
	query := `
		SELECT s.id, s.name, s.participant_id, s.started_at, s.ended_at, COUNT(m.id)
		FROM chat_sessions s
		LEFT JOIN chat_messages m ON m.session_id = s.id
		GROUP BY s.id
		ORDER BY s.ended_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived sessions: %w", err)
	}
	defer rows.Close()

	var sessions []ArchivedSession
	for rows.Next() {
		var as ArchivedSession
		if err := rows.Scan(&as.ID, &as.Name, &as.ParticipantID, &as.StartedAt, &as.EndedAt, &as.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan archived session: %w", err)
		}
		sessions = append(sessions, as)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating archived sessions: %w", err)
	}

	return sessions, nil
}

// Messages returns the ordered messages of an archived session.
func (s *SQLiteStore) Messages(ctx context.Context, sessionID string) ([]model.ChatMessage, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM chat_sessions WHERE id = ? LIMIT 1`, sessionID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check archived session: %w", err)
	}

	query := `
		SELECT sender, text, created_at
		FROM chat_messages
		WHERE session_id = ?
		ORDER BY seq ASC
	`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived messages: %w", err)
	}
	defer rows.Close()

	var messages []model.ChatMessage
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.Sender, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan archived message: %w", err)
		}
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating archived messages: %w", err)
	}

	return messages, nil
}
