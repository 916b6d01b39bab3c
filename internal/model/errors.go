package model

import "errors"

var (
	// ErrNameRequired is returned when a session name is empty.
	ErrNameRequired = errors.New("session name is required")

	// ErrParticipantRequired is returned when a participant connection id is empty.
	ErrParticipantRequired = errors.New("session participant is required")

	// ErrMessageTextRequired is returned when a message has no text.
	ErrMessageTextRequired = errors.New("message text is required")

	// ErrSessionAlreadyStarted is returned when starting a session whose name is already active.
	ErrSessionAlreadyStarted = errors.New("session with the given name has already been started")

	// ErrSessionNotStarted is returned when operating on a session that is not active.
	ErrSessionNotStarted = errors.New("session with the given name has not been started")
)
