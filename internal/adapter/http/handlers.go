package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/TEKIMAX/focus-todo-ai/internal/adapter/ws"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/intent"
	"github.com/TEKIMAX/focus-todo-ai/internal/port/broadcast"
	"github.com/TEKIMAX/focus-todo-ai/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Store      *service.TaskStore
	Gateway    *service.Gateway
	Planner    *service.Planner
	Connection *service.ConnectionService
	Events     broadcast.Broadcaster // AI status events; may be nil
	Version    string
}

// Health reports liveness and the build version.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": h.Version})
}

// GetState returns the full store snapshot.
func (h *Handlers) GetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Store.Snapshot())
}

// aiStatus tells connected clients how a flow is progressing.
func (h *Handlers) aiStatus(ctx context.Context, flow service.Flow, err error) {
	if h.Events == nil {
		return
	}
	ev := ws.AIStatusEvent{Flow: string(flow), Status: "succeeded"}
	switch {
	case err == nil:
	case errors.Is(err, intent.ErrCancelled):
		ev.Status = "cancelled"
	default:
		ev.Status = "failed"
		var ge *intent.GenerationError
		if errors.As(err, &ge) {
			ev.Error = ge.Message
		} else {
			ev.Error = err.Error()
		}
	}
	h.Events.BroadcastEvent(context.WithoutCancel(ctx), broadcast.EventAIStatus, ev)
}

func (h *Handlers) aiStarted(ctx context.Context, flow service.Flow) {
	if h.Events != nil {
		h.Events.BroadcastEvent(ctx, broadcast.EventAIStatus, ws.AIStatusEvent{Flow: string(flow), Status: "started"})
	}
}
