package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/TEKIMAX/focus-todo-ai/internal/port/broadcast"
)

var _ broadcast.Broadcaster = (*Hub)(nil)

// AIStatusEvent reports the progress of an AI flow.
type AIStatusEvent struct {
	Flow   string `json:"flow"`
	Status string `json:"status"` // "started", "succeeded", "failed" or "cancelled"
	Error  string `json:"error,omitempty"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
