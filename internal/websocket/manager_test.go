package websocket

import (
	"encoding/json"
	"testing"
	"time"
)

func startManager(maxConnPerRemote int) *Manager {
	m := NewManager(maxConnPerRemote, time.Second, time.Second, time.Second)
	go m.Run()
	return m
}

func register(t *testing.T, m *Manager, client *Client, wantConnections int) {
	t.Helper()
	m.Register <- client
	deadline := time.Now().Add(2 * time.Second)
	for m.RemoteConnections(client.RemoteID) < wantConnections {
		if time.Now().After(deadline) {
			t.Fatalf("registration of %s timed out", client.ID)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRegisterUnregister(t *testing.T) {
	m := startManager(5)

	client := NewClient("client-1", "remote-a", nil, m)
	register(t, m, client, 1)

	m.Unregister <- client
	deadline := time.Now().Add(2 * time.Second)
	for m.RemoteConnections("remote-a") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("unregistration timed out")
		}
		time.Sleep(time.Millisecond)
	}

	if _, open := <-client.Send; open {
		t.Error("send channel must be closed on unregister")
	}
}

func TestMaxConnectionsPerRemote(t *testing.T) {
	m := startManager(1)

	first := NewClient("client-1", "remote-a", nil, m)
	register(t, m, first, 1)

	second := NewClient("client-2", "remote-a", nil, m)
	m.Register <- second

	// The rejected client gets its send channel closed instead of a slot.
	select {
	case _, open := <-second.Send:
		if open {
			t.Error("rejected client received a frame instead of a close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("rejected client was not closed")
	}

	if got := m.RemoteConnections("remote-a"); got != 1 {
		t.Errorf("RemoteConnections() = %d, want 1", got)
	}
}

func TestBroadcastSkipsExcludedRemote(t *testing.T) {
	m := startManager(5)

	origin := NewClient("client-1", "remote-a", nil, m)
	other := NewClient("client-2", "remote-b", nil, m)
	register(t, m, origin, 1)
	register(t, m, other, 1)

	msg, err := NewMessage(TypeEntries, &EntriesPayload{})
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}
	if err := m.Broadcast(msg, "remote-a"); err != nil {
		t.Fatalf("Broadcast() error = %v", err)
	}

	select {
	case raw := <-other.Send:
		var got Message
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("failed to decode frame: %v", err)
		}
		if got.Type != TypeEntries {
			t.Errorf("frame type = %s, want entries", got.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("included remote received nothing")
	}

	select {
	case <-origin.Send:
		t.Error("excluded remote must not receive the broadcast")
	default:
	}
}

func TestSendToClientUnknownID(t *testing.T) {
	m := startManager(5)

	msg, err := NewMessage(TypePong, nil)
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}
	if err := m.SendToClient("no-such-client", msg); err != nil {
		t.Errorf("SendToClient() for unknown id error = %v, want nil", err)
	}
}
