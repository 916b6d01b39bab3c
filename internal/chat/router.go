package chat

import (
	"github.com/sirupsen/logrus"

	"github.com/support-chat/backend/internal/model"
	"github.com/support-chat/backend/internal/registry"
)

// Router routes send events to the correct single counterpart and records
// them in session history.
type Router struct {
	registry  *registry.Registry
	transport Transport
	log       *logrus.Entry
}

// NewRouter creates a new Router.
func NewRouter(reg *registry.Registry, transport Transport, logger *logrus.Logger) *Router {
	return &Router{
		registry:  reg,
		transport: transport,
		log:       logger.WithField("component", "router"),
	}
}

// Route delivers a message sent on the given session. Messages arriving with
// no manager assigned, for an inactive session, or with empty text are
// dropped silently: live chat is best-effort, not queued delivery.
func (r *Router) Route(senderConnectionID, sessionName, text string) {
	hostID := r.registry.HostID()
	if hostID == "" || text == "" || !r.registry.IsStarted(sessionName) {
		return
	}

	sender := model.SenderCustomer
	if senderConnectionID == hostID {
		sender = model.SenderManager
	}

	if err := r.registry.AddMessage(sessionName, sender, text); err != nil {
		// The session ended between the check and the append; drop.
		r.log.WithError(err).WithField("session", sessionName).Debug("Dropping message")
		return
	}

	if sender == model.SenderCustomer {
		r.transport.Unicast(hostID, Notification{Event: EventMessageReceived, Name: sessionName, Text: text})
		return
	}

	participant, err := r.registry.Participant(sessionName)
	if err != nil || participant == "" {
		// Persisted to history above, but nobody live to deliver to.
		return
	}
	r.transport.Unicast(participant, Notification{Event: EventMessageReceived, Text: text})
}
