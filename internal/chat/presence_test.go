package chat

import (
	"sync"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/support-chat/backend/internal/registry"
)

// fakeTransport records every send for assertions.
type fakeTransport struct {
	mu         sync.Mutex
	unicasts   []sentNotification
	broadcasts []sentNotification
}

type sentNotification struct {
	target string // connection id for unicasts, excluded id for broadcasts
	n      Notification
}

func (f *fakeTransport) Unicast(connectionID string, n Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unicasts = append(f.unicasts, sentNotification{target: connectionID, n: n})
}

func (f *fakeTransport) BroadcastExcept(connectionID string, n Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcasts = append(f.broadcasts, sentNotification{target: connectionID, n: n})
}

func (f *fakeTransport) unicastsTo(connectionID string) []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Notification
	for _, s := range f.unicasts {
		if s.target == connectionID {
			out = append(out, s.n)
		}
	}
	return out
}

func (f *fakeTransport) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unicasts = nil
	f.broadcasts = nil
}

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func setupCoordinator(t *testing.T) (*Coordinator, *registry.Registry, *fakeTransport) {
	t.Helper()
	reg := registry.New(nil, newTestLogger())
	transport := &fakeTransport{}
	return NewCoordinator(reg, transport, newTestLogger()), reg, transport
}

func TestCoordinator_ManagerConnect(t *testing.T) {
	t.Run("manager with no sessions receives no reveals", func(t *testing.T) {
		coord, reg, transport := setupCoordinator(t)

		coord.Connected(Identity{ConnectionID: "m1", Manager: true})

		if reg.HostID() != "m1" {
			t.Errorf("Expected host 'm1', got '%s'", reg.HostID())
		}
		if len(transport.unicastsTo("m1")) != 0 {
			t.Error("Manager should receive no reveals")
		}
		if len(transport.broadcasts) != 1 || transport.broadcasts[0].n.Event != EventManagerConnected {
			t.Errorf("Expected one manager-online broadcast, got %+v", transport.broadcasts)
		}
		if transport.broadcasts[0].target != "m1" {
			t.Error("Broadcast should exclude the manager itself")
		}
	})

	t.Run("fresh manager is shown every waiting session exactly once", func(t *testing.T) {
		coord, reg, transport := setupCoordinator(t)

		// bob connects while no manager is present.
		coord.Connected(Identity{ConnectionID: "c1", Name: "bob"})

		if len(transport.unicasts) != 0 {
			t.Fatal("No one should be notified while no manager is present")
		}
		if len(reg.New()) != 1 {
			t.Fatal("Session should be waiting in the new set")
		}

		coord.Connected(Identity{ConnectionID: "m1", Manager: true})

		reveals := transport.unicastsTo("m1")
		if len(reveals) != 1 || reveals[0].Event != EventClientConnected || reveals[0].Name != "bob" {
			t.Fatalf("Expected a single onClientConnected(bob), got %+v", reveals)
		}
		if len(reg.New()) != 0 {
			t.Error("New set should be empty after reveal")
		}

		// A second manager connection must not see bob again.
		transport.reset()
		coord.Connected(Identity{ConnectionID: "m2", Manager: true})
		if len(transport.unicastsTo("m2")) != 0 {
			t.Error("Session must not be announced twice")
		}
	})

	t.Run("manager returning after full departure sees all sessions", func(t *testing.T) {
		coord, _, transport := setupCoordinator(t)

		coord.Connected(Identity{ConnectionID: "m1", Manager: true})
		coord.Connected(Identity{ConnectionID: "c1", Name: "alice"})
		coord.Disconnected(Identity{ConnectionID: "m1", Manager: true})

		transport.reset()
		coord.Connected(Identity{ConnectionID: "m2", Manager: true})

		reveals := transport.unicastsTo("m2")
		if len(reveals) != 1 || reveals[0].Name != "alice" {
			t.Fatalf("Returning manager should be shown 'alice', got %+v", reveals)
		}
	})
}

func TestCoordinator_CustomerConnect(t *testing.T) {
	t.Run("customer with manager present notifies both sides", func(t *testing.T) {
		coord, reg, transport := setupCoordinator(t)
		coord.Connected(Identity{ConnectionID: "m1", Manager: true})
		transport.reset()

		coord.Connected(Identity{ConnectionID: "c1", Name: "alice"})

		if !reg.IsStarted("alice") {
			t.Fatal("Session should be started")
		}

		managerEvents := transport.unicastsTo("m1")
		if len(managerEvents) != 1 || managerEvents[0].Event != EventClientConnected || managerEvents[0].Name != "alice" {
			t.Errorf("Expected onClientConnected(alice) to manager, got %+v", managerEvents)
		}

		customerEvents := transport.unicastsTo("c1")
		if len(customerEvents) != 1 || customerEvents[0].Event != EventManagerConnected {
			t.Errorf("Expected onManagerConnected to customer, got %+v", customerEvents)
		}
	})

	t.Run("customer without a name is ignored", func(t *testing.T) {
		coord, reg, transport := setupCoordinator(t)

		coord.Connected(Identity{ConnectionID: "c1"})

		if reg.Count() != 0 {
			t.Error("No session should start for an unnamed customer")
		}
		if len(transport.unicasts) != 0 {
			t.Error("No notifications should be sent")
		}
	})

	t.Run("reconnect under an active name does not restart the session", func(t *testing.T) {
		coord, reg, transport := setupCoordinator(t)
		coord.Connected(Identity{ConnectionID: "m1", Manager: true})
		coord.Connected(Identity{ConnectionID: "c1", Name: "alice"})
		transport.reset()

		coord.Connected(Identity{ConnectionID: "c2", Name: "alice"})

		if len(transport.unicasts) != 0 {
			t.Error("Duplicate connect should be silent")
		}
		participant, err := reg.Participant("alice")
		if err != nil || participant != "c1" {
			t.Errorf("Participant should remain 'c1', got '%s' (%v)", participant, err)
		}
	})
}

func TestCoordinator_Disconnect(t *testing.T) {
	t.Run("manager disconnect clears host but keeps sessions", func(t *testing.T) {
		coord, reg, transport := setupCoordinator(t)
		coord.Connected(Identity{ConnectionID: "m1", Manager: true})
		coord.Connected(Identity{ConnectionID: "c1", Name: "alice"})
		transport.reset()

		coord.Disconnected(Identity{ConnectionID: "m1", Manager: true})

		if reg.HostID() != "" {
			t.Error("Host should be cleared")
		}
		if !reg.IsStarted("alice") {
			t.Error("Sessions must survive manager disconnect")
		}
		if len(transport.broadcasts) != 1 || transport.broadcasts[0].n.Event != EventManagerDisconnected {
			t.Errorf("Expected one manager-offline broadcast, got %+v", transport.broadcasts)
		}
	})

	t.Run("customer disconnect notifies manager but keeps session", func(t *testing.T) {
		coord, reg, transport := setupCoordinator(t)
		coord.Connected(Identity{ConnectionID: "m1", Manager: true})
		coord.Connected(Identity{ConnectionID: "c1", Name: "alice"})
		transport.reset()

		coord.Disconnected(Identity{ConnectionID: "c1", Name: "alice"})

		events := transport.unicastsTo("m1")
		if len(events) != 1 || events[0].Event != EventClientDisconnected || events[0].Name != "alice" {
			t.Errorf("Expected onClientDisconnected(alice), got %+v", events)
		}
		if !reg.IsStarted("alice") {
			t.Error("Session must survive customer disconnect")
		}
	})

	t.Run("customer disconnect without manager is silent", func(t *testing.T) {
		coord, _, transport := setupCoordinator(t)
		coord.Connected(Identity{ConnectionID: "c1", Name: "alice"})

		coord.Disconnected(Identity{ConnectionID: "c1", Name: "alice"})

		if len(transport.unicasts) != 0 {
			t.Error("No notifications without a manager")
		}
	})
}
