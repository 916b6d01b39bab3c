package chat

// Notification event names pushed to connected clients.
const (
	EventManagerConnected    = "onManagerConnected"
	EventManagerDisconnected = "onManagerDisconnected"
	EventClientConnected     = "onClientConnected"
	EventClientDisconnected  = "onClientDisconnected"
	EventMessageReceived     = "onMessageReceived"
)

// Notification is an outbound event frame. Name carries the session name;
// it is empty on messages delivered to a customer, who has exactly one
// counterpart.
type Notification struct {
	Event string `json:"event"`
	Name  string `json:"name,omitempty"`
	Text  string `json:"text,omitempty"`
}

// Identity describes a connection. It is resolved once at connect time from
// connection-supplied data and never changes afterwards.
type Identity struct {
	ConnectionID string
	Name         string
	Manager      bool
}

// Transport is the connection layer the coordinator and router send through.
// Sends are best-effort and fire-and-forget: a send to a departed connection
// is simply discarded.
type Transport interface {
	Unicast(connectionID string, n Notification)
	BroadcastExcept(connectionID string, n Notification)
}
