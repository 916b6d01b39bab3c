// Package registry owns all live chat session state: active sessions, their
// messages, their participant connection ids, and manager presence.
package registry

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/support-chat/backend/internal/history"
	"github.com/support-chat/backend/internal/model"
)

// Registry is the in-memory session registry. A single instance is shared by
// all connections; every operation is safe under arbitrary interleaving from
// independent goroutines. One mutex guards all five pieces of state so that
// per-name message appends, the multi-map removal in End, and the paired
// (hostID, newSessions) reset each happen in a single critical section.
type Registry struct {
	mu           sync.RWMutex
	hostID       string
	sessions     map[string]model.ChatSession
	participants map[string]string
	messages     map[string][]model.ChatMessage
	newSessions  map[string]model.ChatSession

	store history.Store
	log   *logrus.Entry
}

// New creates a new Registry. Ended sessions are handed to store; a nil
// store disables archiving.
func New(store history.Store, logger *logrus.Logger) *Registry {
	return &Registry{
		sessions:     make(map[string]model.ChatSession),
		participants: make(map[string]string),
		messages:     make(map[string][]model.ChatMessage),
		newSessions:  make(map[string]model.ChatSession),
		store:        store,
		log:          logger.WithField("component", "registry"),
	}
}

// Start begins a new chat session for the given name and participant
// connection id. Sessions that start while no manager is present are also
// recorded as new, so the next manager gets them revealed in full.
func (r *Registry) Start(name, participantID string) (model.ChatSession, error) {
	if name == "" {
		return model.ChatSession{}, model.ErrNameRequired
	}
	if participantID == "" {
		return model.ChatSession{}, model.ErrParticipantRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[name]; ok {
		return model.ChatSession{}, model.ErrSessionAlreadyStarted
	}

	session := model.ChatSession{
		Name:      name,
		StartedAt: time.Now(),
	}

	r.sessions[name] = session
	r.participants[name] = participantID
	r.messages[name] = nil

	if r.hostID == "" {
		r.newSessions[name] = session
	}

	return session, nil
}

// IsStarted reports whether a session with the given name is active.
// An empty name is simply not started.
func (r *Registry) IsStarted(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[name]
	return ok
}

// End removes the session from the registry and hands it, with its full
// message list, to the history store. Archive failures are logged and never
// propagated; the registry mutation has already happened by then.
func (r *Registry) End(name string) error {
	if name == "" {
		return model.ErrNameRequired
	}

	r.mu.Lock()
	session, ok := r.sessions[name]
	if !ok {
		r.mu.Unlock()
		return model.ErrSessionNotStarted
	}

	participant := r.participants[name]
	messages := r.messages[name]

	delete(r.sessions, name)
	delete(r.participants, name)
	delete(r.messages, name)
	delete(r.newSessions, name)
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.Save(session, participant, messages); err != nil {
			r.log.WithError(err).WithField("session", name).Warn("Failed to archive ended session")
		}
	}

	return nil
}

// EndAll ends every session active at the time of the call. Sessions
// starting concurrently during the sweep may survive it.
func (r *Registry) EndAll() {
	r.mu.RLock()
	names := make([]string, 0, len(r.sessions))
	for name := range r.sessions {
		names = append(names, name)
	}
	r.mu.RUnlock()

	for _, name := range names {
		if err := r.End(name); err != nil {
			// Raced with another End; nothing left to do for this name.
			continue
		}
	}
}

// AddMessage appends a message with a server-assigned timestamp to the named
// session. Appends to the same session are serialized; different sessions
// append in parallel from the caller's point of view.
func (r *Registry) AddMessage(name string, sender model.Sender, text string) error {
	if name == "" {
		return model.ErrNameRequired
	}
	if text == "" {
		return model.ErrMessageTextRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[name]; !ok {
		return model.ErrSessionNotStarted
	}

	r.messages[name] = append(r.messages[name], model.ChatMessage{
		Sender:    sender,
		Text:      text,
		CreatedAt: time.Now(),
	})

	return nil
}

// Messages returns a snapshot copy of the named session's messages, immune
// to concurrent later appends.
func (r *Registry) Messages(name string) ([]model.ChatMessage, error) {
	if name == "" {
		return nil, model.ErrNameRequired
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.sessions[name]; !ok {
		return nil, model.ErrSessionNotStarted
	}

	messages := make([]model.ChatMessage, len(r.messages[name]))
	copy(messages, r.messages[name])
	return messages, nil
}

// Participant returns the connection id of the customer in the named session.
func (r *Registry) Participant(name string) (string, error) {
	if name == "" {
		return "", model.ErrNameRequired
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.sessions[name]; !ok {
		return "", model.ErrSessionNotStarted
	}

	return r.participants[name], nil
}

// HostID returns the connection id of the current manager, or empty if no
// manager is connected.
func (r *Registry) HostID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hostID
}

// SetHostID assigns the manager connection id. Every assignment, including
// to empty, resets the set of new sessions: whatever was pending has either
// been revealed to the assigned manager or belongs to the next one.
func (r *Registry) SetHostID(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hostID = id
	r.newSessions = make(map[string]model.ChatSession)
}

// AssignHost installs a manager connection and returns the sessions to
// reveal to it: all active sessions when no manager slot was occupied, or
// only the new ones accumulated since the last assignment. The reveal
// snapshot, the host assignment, and the new-session reset happen in one
// critical section, so no session can slip between the snapshot and the
// reset and escape both reveal paths.
func (r *Registry) AssignHost(id string) []model.ChatSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	source := r.newSessions
	if r.hostID == "" {
		source = r.sessions
	}

	reveal := make([]model.ChatSession, 0, len(source))
	for _, session := range source {
		reveal = append(reveal, session)
	}

	r.hostID = id
	r.newSessions = make(map[string]model.ChatSession)

	return reveal
}

// All returns a snapshot of every active session.
func (r *Registry) All() []model.ChatSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]model.ChatSession, 0, len(r.sessions))
	for _, session := range r.sessions {
		sessions = append(sessions, session)
	}
	return sessions
}

// New returns a snapshot of the sessions that started while no manager was
// connected.
func (r *Registry) New() []model.ChatSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]model.ChatSession, 0, len(r.newSessions))
	for _, session := range r.newSessions {
		sessions = append(sessions, session)
	}
	return sessions
}

// Count returns the number of active sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
