package http

import (
	"net/http"

	"github.com/TEKIMAX/focus-todo-ai/internal/domain/settings"
)

type settingsResponse struct {
	App settings.AppSettings `json:"appSettings"`
	AI  settings.AISettings  `json:"aiSettings"`
}

// GetSettings returns app and sampling settings. The API key is redacted.
func (h *Handlers) GetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, settingsResponse{
		App: h.Store.AppSettings().Redacted(),
		AI:  h.Store.AISettings(),
	})
}

// UpdateSettings merges a partial app settings update.
func (h *Handlers) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	patch, ok := readJSON[settings.Patch](w, r)
	if !ok {
		return
	}
	app, err := h.Store.SetAppSettings(r.Context(), patch)
	if err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, app)
}

// UpdateAISettings replaces the sampling parameters.
func (h *Handlers) UpdateAISettings(w http.ResponseWriter, r *http.Request) {
	ai, ok := readJSON[settings.AISettings](w, r)
	if !ok {
		return
	}
	if err := h.Store.SetAISettings(r.Context(), ai); err != nil {
		writeDomainError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, ai)
}

type connectionRequest struct {
	BaseURL string `json:"baseUrl"`
	APIKey  string `json:"apiKey"`
}

// TestLocal checks that a local provider answers at baseUrl. Failures are
// reported in the body, not as HTTP errors.
func (h *Handlers) TestLocal(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[connectionRequest](w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.Connection.TestLocalProvider(r.Context(), req.BaseURL))
}

// RefreshModels lists local models and caches them in settings.
func (h *Handlers) RefreshModels(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[connectionRequest](w, r)
	if !ok {
		return
	}
	if req.BaseURL == "" {
		req.BaseURL = h.Store.AppSettings().LocalBaseURL()
	}
	writeJSON(w, http.StatusOK, h.Connection.RefreshLocalModels(r.Context(), req.BaseURL))
}

// TestCloud validates an API key against the cloud provider.
func (h *Handlers) TestCloud(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[connectionRequest](w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.Connection.TestCloudKey(r.Context(), req.APIKey))
}
