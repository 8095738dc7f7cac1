package http

import (
	"encoding/json"
	"net/http"

	"github.com/TEKIMAX/focus-todo-ai/internal/domain/intent"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/plan"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/settings"
	"github.com/TEKIMAX/focus-todo-ai/internal/service"
)

// generateRequest is the single-endpoint envelope: the intent name, the
// caller's provider settings, and the intent fields inline.
type generateRequest struct {
	Type        intent.Kind           `json:"type"`
	AppSettings *settings.AppSettings `json:"appSettings"`
	AISettings  *settings.AISettings  `json:"aiSettings"`
}

// Generate dispatches one intent. Provider selection comes from the
// request's appSettings; without them only the environment key is used.
func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	raw, ok := readJSON[json.RawMessage](w, r)
	if !ok {
		return
	}
	var env generateRequest
	if err := json.Unmarshal(raw, &env); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if env.Type == "" {
		writeError(w, http.StatusBadRequest, "type is required")
		return
	}
	ai := settings.DefaultAI()
	if env.AISettings != nil {
		if err := env.AISettings.Validate(); err != nil {
			writeDomainError(w, err, "")
			return
		}
		ai = *env.AISettings
	}

	res, err := h.Gateway.Dispatch(r.Context(), env.Type, raw, env.AppSettings, ai)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type organizeRequest struct {
	FocusMode intent.FocusMode `json:"focusMode"`
}

// Organize reorders the task list with the provider and commits it.
func (h *Handlers) Organize(w http.ResponseWriter, r *http.Request) {
	var req organizeRequest
	if r.ContentLength > 0 {
		var ok bool
		if req, ok = readJSON[organizeRequest](w, r); !ok {
			return
		}
	}
	if req.FocusMode != "" && !req.FocusMode.Valid() {
		writeError(w, http.StatusBadRequest, "invalid focusMode")
		return
	}

	h.aiStarted(r.Context(), service.FlowOrganize)
	out, err := h.Planner.Organize(r.Context(), req.FocusMode)
	h.aiStatus(r.Context(), service.FlowOrganize, err)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// StartOnboarding asks the provider for clarifying questions.
func (h *Handlers) StartOnboarding(w http.ResponseWriter, r *http.Request) {
	in, ok := readJSON[plan.Onboarding](w, r)
	if !ok {
		return
	}
	h.aiStarted(r.Context(), service.FlowOnboarding)
	sess, err := h.Planner.StartOnboarding(r.Context(), in)
	h.aiStatus(r.Context(), service.FlowOnboarding, err)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// GetOnboarding returns the session in progress.
func (h *Handlers) GetOnboarding(w http.ResponseWriter, _ *http.Request) {
	sess := h.Planner.Onboarding()
	if sess == nil {
		writeError(w, http.StatusNotFound, "no onboarding in progress")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type answerRequest struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

// AnswerQuestion records an answer in the onboarding session.
func (h *Handlers) AnswerQuestion(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[answerRequest](w, r)
	if !ok {
		return
	}
	if req.QuestionID == "" {
		writeError(w, http.StatusBadRequest, "questionId is required")
		return
	}
	sess, err := h.Planner.AnswerQuestion(req.QuestionID, req.Answer)
	if err != nil {
		writeDomainError(w, err, "no onboarding in progress")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// GeneratePlan drafts the day's plan from the answered questions.
func (h *Handlers) GeneratePlan(w http.ResponseWriter, r *http.Request) {
	h.aiStarted(r.Context(), service.FlowOnboarding)
	dp, err := h.Planner.GeneratePlan(r.Context())
	h.aiStatus(r.Context(), service.FlowOnboarding, err)
	if err != nil {
		writeDomainError(w, err, "no onboarding in progress")
		return
	}
	writeJSON(w, http.StatusOK, dp)
}

// CompleteOnboarding installs the draft plan, or the edited plan in the
// body, as today's plan.
func (h *Handlers) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	var dp *plan.DailyPlan
	if r.ContentLength > 0 {
		body, ok := readJSON[plan.DailyPlan](w, r)
		if !ok {
			return
		}
		dp = &body
	}
	current, err := h.Planner.CompleteOnboarding(r.Context(), dp)
	if err != nil {
		writeDomainError(w, err, "no draft plan to complete")
		return
	}
	writeJSON(w, http.StatusOK, current)
}

// Rewrite turns bullet points into a paragraph.
func (h *Handlers) Rewrite(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[intent.RewriteRequest](w, r)
	if !ok {
		return
	}
	h.aiStarted(r.Context(), service.FlowRewrite)
	res, err := h.Planner.Rewrite(r.Context(), req.BulletPoints)
	h.aiStatus(r.Context(), service.FlowRewrite, err)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Document drafts a statement of work.
func (h *Handlers) Document(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[intent.SOWRequest](w, r)
	if !ok {
		return
	}
	h.aiStarted(r.Context(), service.FlowDocument)
	res, err := h.Planner.Document(r.Context(), req.ProjectData)
	h.aiStatus(r.Context(), service.FlowDocument, err)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CancelFlow aborts the in-flight request of a flow.
func (h *Handlers) CancelFlow(w http.ResponseWriter, r *http.Request) {
	flow := service.Flow(urlParam(r, "flow"))
	if !flow.Valid() {
		writeError(w, http.StatusBadRequest, "unknown flow")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": h.Planner.Flows().Cancel(flow)})
}
