// Package broadcast defines the port for pushing store changes to connected UI clients.
package broadcast

import "context"

// Event types pushed to clients.
const (
	EventSnapshot = "store.snapshot"
	EventChange   = "task.change"
	EventAIStatus = "ai.status"
)

// Broadcaster sends real-time events to all connected clients.
type Broadcaster interface {
	// BroadcastEvent sends a typed event to all connected clients.
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
