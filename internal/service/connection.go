package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/TEKIMAX/focus-todo-ai/internal/adapter/ollama"
	"github.com/TEKIMAX/focus-todo-ai/internal/adapter/openai"
	"github.com/TEKIMAX/focus-todo-ai/internal/config"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/settings"
)

// ConnectionResult is what the settings page shows after a connection test.
type ConnectionResult struct {
	IsValid bool                  `json:"isValid"`
	Error   string                `json:"error,omitempty"`
	Models  []settings.LocalModel `json:"models,omitempty"`
}

// ModelsResult is the outcome of a model list refresh.
type ModelsResult struct {
	Success bool                  `json:"success"`
	Models  []settings.LocalModel `json:"models"`
	Error   string                `json:"error,omitempty"`
}

// ConnectionService backs the settings page: it tests provider endpoints
// and refreshes the cached local model list.
type ConnectionService struct {
	cfg   config.AI
	store *TaskStore
	group singleflight.Group
}

// NewConnectionService creates a connection service. store may be nil, in
// which case refreshed models are not cached.
func NewConnectionService(cfg config.AI, store *TaskStore) *ConnectionService {
	return &ConnectionService{cfg: cfg, store: store}
}

// TestLocalProvider checks that a local provider answers at baseURL.
func (c *ConnectionService) TestLocalProvider(ctx context.Context, baseURL string) ConnectionResult {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return ConnectionResult{Error: "Base URL is required"}
	}
	if err := settings.ValidateBaseURL(baseURL); err != nil {
		return ConnectionResult{Error: "Failed to connect to Ollama server"}
	}

	ctx, cancel := context.WithTimeout(ctx, durationOr(c.cfg.TestTimeout, 5*time.Second))
	defer cancel()

	models, err := ollama.New(baseURL).ListModels(ctx)
	if err != nil {
		slog.WarnContext(ctx, "local provider test failed", "base_url", baseURL, "error", err)
		return ConnectionResult{Error: testMessage(err)}
	}
	return ConnectionResult{IsValid: true, Models: models}
}

func testMessage(err error) string {
	var pe *ollama.ProbeError
	if !errors.As(err, &pe) {
		return "Failed to connect to Ollama server"
	}
	switch pe.Failure {
	case ollama.FailureStatus:
		return fmt.Sprintf("Ollama server responded with %d", pe.StatusCode)
	case ollama.FailureTimeout:
		return "Connection timeout - is Ollama running?"
	case ollama.FailureRefused:
		return "Connection refused - is Ollama running on this URL?"
	default:
		return "Failed to connect to Ollama server"
	}
}

// RefreshLocalModels fetches the local model list and caches it into the
// application settings. Concurrent refreshes of the same URL share one call.
func (c *ConnectionService) RefreshLocalModels(ctx context.Context, baseURL string) ModelsResult {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = settings.DefaultLocalBaseURL
	}

	v, err, _ := c.group.Do(baseURL, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), durationOr(c.cfg.RefreshTimeout, 10*time.Second))
		defer cancel()
		return ollama.New(baseURL).ListModels(rctx)
	})
	if err != nil {
		slog.WarnContext(ctx, "refresh local models failed", "base_url", baseURL, "error", err)
		return ModelsResult{Models: []settings.LocalModel{}, Error: refreshMessage(err)}
	}

	models, _ := v.([]settings.LocalModel)
	if models == nil {
		models = []settings.LocalModel{}
	}
	if c.store != nil {
		c.store.SetAvailableModels(ctx, models)
	}
	return ModelsResult{Success: true, Models: append([]settings.LocalModel{}, models...)}
}

func refreshMessage(err error) string {
	var pe *ollama.ProbeError
	if !errors.As(err, &pe) {
		return "Failed to fetch models from Ollama"
	}
	switch pe.Failure {
	case ollama.FailureStatus:
		return fmt.Sprintf("Failed to fetch models: %d %s", pe.StatusCode, statusText(pe.Status, pe.StatusCode))
	case ollama.FailureTimeout:
		return "Request timeout while fetching models"
	case ollama.FailureRefused:
		return "Cannot connect to Ollama server"
	default:
		return "Failed to fetch models from Ollama"
	}
}

// statusText strips the numeric prefix net/http puts on Response.Status.
func statusText(status string, code int) string {
	return strings.TrimSpace(strings.TrimPrefix(status, fmt.Sprintf("%d", code)))
}

// TestCloudKey validates an API key against the cloud provider's model list.
func (c *ConnectionService) TestCloudKey(ctx context.Context, apiKey string) ConnectionResult {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return ConnectionResult{Error: "API key is required"}
	}

	ctx, cancel := context.WithTimeout(ctx, durationOr(c.cfg.TestTimeout, 5*time.Second))
	defer cancel()

	client := openai.NewClient(c.cfg.CloudBaseURL, apiKey, c.cfg.Model)
	if _, err := client.ListModels(ctx); err != nil {
		slog.WarnContext(ctx, "cloud key test failed", "error", err)
		if openai.IsAuthError(err) {
			return ConnectionResult{Error: "Invalid API key"}
		}
		return ConnectionResult{Error: "Failed to validate API key"}
	}
	return ConnectionResult{IsValid: true}
}

func durationOr(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
