package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/support-chat/backend/internal/chat"
)

func newTestGateway() *Gateway {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewGateway(logger)
}

// registerClient adds a client with no underlying socket; only the send
// queue is exercised here.
func registerClient(g *Gateway, connID string) *Client {
	client := NewClient(nil, chat.Identity{ConnectionID: connID})
	g.Register(client)
	return client
}

func receive(t *testing.T, client *Client) chat.Notification {
	t.Helper()
	select {
	case data := <-client.SendChan():
		var n chat.Notification
		if err := json.Unmarshal(data, &n); err != nil {
			t.Fatalf("Failed to decode notification: %v", err)
		}
		return n
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Expected a notification")
		return chat.Notification{}
	}
}

func assertSilent(t *testing.T, client *Client) {
	t.Helper()
	select {
	case data := <-client.SendChan():
		t.Fatalf("Unexpected notification: %s", data)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestGateway_Unicast(t *testing.T) {
	t.Run("delivers to the addressed connection only", func(t *testing.T) {
		g := newTestGateway()
		alice := registerClient(g, "c1")
		bob := registerClient(g, "c2")

		g.Unicast("c1", chat.Notification{Event: chat.EventMessageReceived, Text: "hi"})

		n := receive(t, alice)
		if n.Event != chat.EventMessageReceived || n.Text != "hi" {
			t.Errorf("Unexpected notification: %+v", n)
		}
		assertSilent(t, bob)
	})

	t.Run("unknown connection is a no-op", func(t *testing.T) {
		g := newTestGateway()
		alice := registerClient(g, "c1")

		g.Unicast("ghost", chat.Notification{Event: chat.EventMessageReceived})

		assertSilent(t, alice)
	})

	t.Run("unregistered connection no longer receives", func(t *testing.T) {
		g := newTestGateway()
		alice := registerClient(g, "c1")

		g.Unregister(alice)
		g.Unicast("c1", chat.Notification{Event: chat.EventMessageReceived})

		if !alice.IsClosed() {
			t.Error("Unregistered client should be closed")
		}
	})
}

func TestGateway_BroadcastExcept(t *testing.T) {
	g := newTestGateway()
	manager := registerClient(g, "m1")
	alice := registerClient(g, "c1")
	bob := registerClient(g, "c2")

	g.BroadcastExcept("m1", chat.Notification{Event: chat.EventManagerConnected})

	for _, client := range []*Client{alice, bob} {
		n := receive(t, client)
		if n.Event != chat.EventManagerConnected {
			t.Errorf("Unexpected notification: %+v", n)
		}
	}
	assertSilent(t, manager)
}

func TestClient_SendAfterClose(t *testing.T) {
	client := NewClient(nil, chat.Identity{ConnectionID: "c1"})
	client.Close()

	// Must not panic on the closed channel.
	client.Send([]byte("late"))

	if !client.IsClosed() {
		t.Error("Client should be closed")
	}
}

func TestClient_FullBufferDropsClient(t *testing.T) {
	client := NewClient(nil, chat.Identity{ConnectionID: "c1"})

	for i := 0; i < 300; i++ {
		client.Send([]byte("x"))
	}

	if !client.IsClosed() {
		t.Error("Client with a full send buffer should be dropped")
	}
}

func TestGateway_Close(t *testing.T) {
	g := newTestGateway()
	alice := registerClient(g, "c1")
	bob := registerClient(g, "c2")

	g.Close()

	if g.ClientCount() != 0 {
		t.Errorf("Expected 0 clients, got %d", g.ClientCount())
	}
	if !alice.IsClosed() || !bob.IsClosed() {
		t.Error("All clients should be closed")
	}
}
