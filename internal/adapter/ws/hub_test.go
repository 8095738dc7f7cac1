package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/TEKIMAX/focus-todo-ai/internal/port/broadcast"
)

func TestNewHub(t *testing.T) {
	hub := NewHub(nil, nil)
	if hub.ConnectionCount() != 0 {
		t.Fatalf("expected 0 connections, got %d", hub.ConnectionCount())
	}
}

func TestHubBroadcastNoConnections(t *testing.T) {
	hub := NewHub(nil, nil)

	// Broadcast with no connections should not panic.
	hub.Broadcast(context.Background(), Message{Type: "test", Payload: []byte(`{"key":"value"}`)})
}

func TestHubBroadcastEventMarshalError(t *testing.T) {
	hub := NewHub(nil, nil)

	// A channel cannot be marshaled to JSON; should log, not panic.
	hub.BroadcastEvent(context.Background(), "bad", make(chan int))
}

func TestHubRemoveNonexistent(t *testing.T) {
	hub := NewHub(nil, nil)
	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub.remove(&conn{cancel: cancel})
}

func TestHubSlowClientIsDropped(t *testing.T) {
	hub := NewHub(nil, nil)
	_, cancel := context.WithCancel(context.Background())
	defer cancel()
	c := &conn{send: make(chan []byte, 1), cancel: cancel}
	hub.conns[c] = struct{}{}

	hub.Broadcast(context.Background(), Message{Type: "a"})
	hub.Broadcast(context.Background(), Message{Type: "b"})
	if hub.ConnectionCount() != 0 {
		t.Fatal("slow client should have been removed")
	}
}

func readMessage(t *testing.T, ctx context.Context, c *websocket.Conn) Message {
	t.Helper()
	_, data, err := c.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return msg
}

func TestHubGreetsAndBroadcasts(t *testing.T) {
	hub := NewHub(nil, func() (Message, bool) {
		return Message{Type: broadcast.EventSnapshot, Payload: json.RawMessage(`{"items":[]}`)}, true
	})
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()
	defer hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = client.Close(websocket.StatusNormalClosure, "") }()

	if msg := readMessage(t, ctx, client); msg.Type != broadcast.EventSnapshot {
		t.Fatalf("expected snapshot greeting, got %q", msg.Type)
	}

	hub.BroadcastEvent(ctx, broadcast.EventAIStatus, AIStatusEvent{Flow: "organize", Status: "started"})
	msg := readMessage(t, ctx, client)
	if msg.Type != broadcast.EventAIStatus {
		t.Fatalf("unexpected message type %q", msg.Type)
	}
	var ev AIStatusEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil || ev.Flow != "organize" {
		t.Fatalf("unexpected payload %s", msg.Payload)
	}
	if hub.ConnectionCount() != 1 {
		t.Fatalf("expected 1 connection, got %d", hub.ConnectionCount())
	}
}
