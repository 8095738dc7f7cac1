package http

import (
	"net/http"

	"github.com/TEKIMAX/focus-todo-ai/internal/domain/plan"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/todo"
)

// ListTasks returns the task list in display order.
func (h *Handlers) ListTasks(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.Store.Tasks())
}

// AddTask appends a blank task and returns it.
func (h *Handlers) AddTask(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, h.Store.AddTask(r.Context()))
}

// SetTasks replaces the list wholesale, as a drag-and-drop reorder does.
func (h *Handlers) SetTasks(w http.ResponseWriter, r *http.Request) {
	tasks, ok := readJSON[[]todo.Task](w, r)
	if !ok {
		return
	}
	for i := range tasks {
		if err := tasks[i].Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if err := h.Store.SetTasks(r.Context(), tasks); err != nil {
		writeDomainError(w, err, "set tasks")
		return
	}
	writeJSON(w, http.StatusOK, h.Store.Tasks())
}

// ReorderTasks renumbers orders densely from 1.
func (h *Handlers) ReorderTasks(w http.ResponseWriter, r *http.Request) {
	h.Store.Reorder(r.Context())
	writeJSON(w, http.StatusOK, h.Store.Tasks())
}

type updateTaskRequest struct {
	Changes todo.Patch `json:"changes"`
	Actor   todo.Actor `json:"actor"`
	Context string     `json:"context"`
}

// UpdateTask applies a partial update and returns the change records it produced.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	req, ok := readJSON[updateTaskRequest](w, r)
	if !ok {
		return
	}
	if req.Actor == "" {
		req.Actor = todo.ActorHuman
	}
	if !req.Actor.Valid() {
		writeError(w, http.StatusBadRequest, "actor must be human or ai")
		return
	}
	if err := req.Changes.Validate(); err != nil {
		writeDomainError(w, err, "")
		return
	}

	records, found := h.Store.UpdateTask(r.Context(), id, req.Changes.Changes(), req.Actor, req.Context)
	if !found {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	if records == nil {
		records = []todo.ChangeRecord{}
	}
	task, _ := h.Store.Task(id)
	writeJSON(w, http.StatusOK, map[string]any{"task": task, "changes": records})
}

// DeleteTask removes a task.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	if !h.Store.DeleteTask(r.Context(), id) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CompleteTask sets the completion flag. An empty body completes the task.
func (h *Handlers) CompleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	completed := true
	if r.ContentLength > 0 {
		req, ok := readJSON[struct {
			Completed *bool `json:"completed"`
		}](w, r)
		if !ok {
			return
		}
		if req.Completed != nil {
			completed = *req.Completed
		}
	}
	if !h.Store.CompleteTask(r.Context(), id, completed) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	task, _ := h.Store.Task(id)
	writeJSON(w, http.StatusOK, task)
}

// StartFocus begins a focus session on a task.
func (h *Handlers) StartFocus(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	if !h.Store.StartFocus(r.Context(), id) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, h.Store.Snapshot().Session)
}

// EndFocus stops the running session and opens the completion dialog.
func (h *Handlers) EndFocus(w http.ResponseWriter, r *http.Request) {
	dlg, ok := h.Store.EndFocus(r.Context())
	if !ok {
		writeError(w, http.StatusConflict, "no focus session running")
		return
	}
	writeJSON(w, http.StatusOK, dlg)
}

type resolveFocusRequest struct {
	Completed bool   `json:"completed"`
	Notes     string `json:"notes"`
}

// ResolveFocus answers the completion dialog and suggests the next task.
func (h *Handlers) ResolveFocus(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[resolveFocusRequest](w, r)
	if !ok {
		return
	}
	next, err := h.Store.ResolveCompletion(r.Context(), req.Completed, req.Notes)
	if err != nil {
		writeDomainError(w, err, "no completion dialog open")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"next": next})
}

// SelectTask opens the detail panel for a task.
func (h *Handlers) SelectTask(w http.ResponseWriter, r *http.Request) {
	id, ok := taskID(w, r)
	if !ok {
		return
	}
	if !h.Store.OpenDetailPanel(r.Context(), id) {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearSelection closes the detail panel.
func (h *Handlers) ClearSelection(w http.ResponseWriter, r *http.Request) {
	h.Store.CloseDetailPanel(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// ResetDay wipes the day so onboarding runs again.
func (h *Handlers) ResetDay(w http.ResponseWriter, r *http.Request) {
	h.Store.ResetDay(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// StartNewDay archives the current plan and resets the day.
func (h *Handlers) StartNewDay(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.StartNewDay(r.Context()); err != nil {
		writeDomainError(w, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SkipOnboarding marks onboarding done without a plan.
func (h *Handlers) SkipOnboarding(w http.ResponseWriter, r *http.Request) {
	h.Store.SkipOnboarding(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

type planSummary struct {
	plan.DailyPlan
	Stats plan.Stats `json:"stats"`
}

// ListPlans returns archived plans, newest first, with completion stats.
func (h *Handlers) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.Store.ListDailyPlans(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	out := make([]planSummary, 0, len(plans))
	for i := range plans {
		out = append(out, planSummary{DailyPlan: plans[i], Stats: plan.Summarize(&plans[i])})
	}
	writeJSON(w, http.StatusOK, out)
}
