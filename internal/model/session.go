package model

import "time"

// Sender identifies which side of a chat session authored a message.
type Sender string

const (
	SenderCustomer Sender = "customer"
	SenderManager  Sender = "manager"
)

// ChatSession represents an active conversation between one customer
// connection and the manager. Sessions are keyed by their human-readable
// name and are immutable once started.
type ChatSession struct {
	Name      string    `json:"name"`
	StartedAt time.Time `json:"startedAt"`
}

// ChatMessage is a single message within a chat session. Messages are
// append-only and retained in arrival order for the lifetime of the session.
type ChatMessage struct {
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}
