package chat

import (
	"github.com/sirupsen/logrus"

	"github.com/support-chat/backend/internal/registry"
)

// Coordinator translates raw connect/disconnect events into registry
// mutations and presence notifications.
type Coordinator struct {
	registry  *registry.Registry
	transport Transport
	log       *logrus.Entry
}

// NewCoordinator creates a new Coordinator.
func NewCoordinator(reg *registry.Registry, transport Transport, logger *logrus.Logger) *Coordinator {
	return &Coordinator{
		registry:  reg,
		transport: transport,
		log:       logger.WithField("component", "presence"),
	}
}

// Connected handles a new connection of either role.
func (c *Coordinator) Connected(id Identity) {
	if id.Manager {
		c.managerConnected(id)
		return
	}
	c.customerConnected(id)
}

// managerConnected announces the manager to everyone else, then reveals
// waiting sessions to it. AssignHost snapshots the reveal set, installs the
// host id and resets the new-session set in one step, so exactly one manager
// connection ever receives a given session's initial announcement.
func (c *Coordinator) managerConnected(id Identity) {
	c.transport.BroadcastExcept(id.ConnectionID, Notification{Event: EventManagerConnected})

	reveal := c.registry.AssignHost(id.ConnectionID)
	for _, session := range reveal {
		c.transport.Unicast(id.ConnectionID, Notification{Event: EventClientConnected, Name: session.Name})
	}

	c.log.WithFields(logrus.Fields{
		"connection": id.ConnectionID,
		"revealed":   len(reveal),
	}).Info("Manager connected")
}

// customerConnected starts a session for the customer if one is not already
// running. When a manager is present both sides learn about each other
// immediately; otherwise the session waits in the new set.
func (c *Coordinator) customerConnected(id Identity) {
	if id.Name == "" || c.registry.IsStarted(id.Name) {
		return
	}

	hostID := c.registry.HostID()

	if _, err := c.registry.Start(id.Name, id.ConnectionID); err != nil {
		// Lost a race with another connection claiming the same name.
		c.log.WithError(err).WithField("session", id.Name).Debug("Skipping session start")
		return
	}

	if hostID != "" {
		c.transport.Unicast(hostID, Notification{Event: EventClientConnected, Name: id.Name})
		c.transport.Unicast(id.ConnectionID, Notification{Event: EventManagerConnected})
	}

	c.log.WithFields(logrus.Fields{
		"session":    id.Name,
		"connection": id.ConnectionID,
	}).Info("Customer connected")
}

// Disconnected handles a departing connection. Sessions are never ended
// here: teardown needs the history store flush and is deferred to the
// explicit end-sessions trigger.
func (c *Coordinator) Disconnected(id Identity) {
	hostID := c.registry.HostID()

	if hostID != "" && id.ConnectionID == hostID {
		c.transport.BroadcastExcept(id.ConnectionID, Notification{Event: EventManagerDisconnected})
		c.registry.SetHostID("")
		c.log.WithField("connection", id.ConnectionID).Info("Manager disconnected")
		return
	}

	if id.Name == "" || !c.registry.IsStarted(id.Name) {
		return
	}

	if hostID != "" {
		c.transport.Unicast(hostID, Notification{Event: EventClientDisconnected, Name: id.Name})
	}

	c.log.WithField("session", id.Name).Info("Customer disconnected")
}
