package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/TEKIMAX/focus-todo-ai/internal/adapter/ollama"
	"github.com/TEKIMAX/focus-todo-ai/internal/adapter/openai"
	cfotel "github.com/TEKIMAX/focus-todo-ai/internal/adapter/otel"
	"github.com/TEKIMAX/focus-todo-ai/internal/config"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/intent"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/settings"
	"github.com/TEKIMAX/focus-todo-ai/internal/port/llm"
	"github.com/TEKIMAX/focus-todo-ai/internal/resilience"
	"github.com/TEKIMAX/focus-todo-ai/internal/secrets"
)

// User-facing configuration messages.
const (
	msgNoEnvKey = "OpenAI API key not configured in environment variables"
	msgNoKey    = "OpenAI API key not configured. Please add OPENAI_API_KEY to your environment variables or configure it in settings."
)

// Resolution records which provider serves a request and why.
type Resolution struct {
	Provider llm.Provider
	// FellBack is true when a local provider was requested but its probe
	// failed and the cloud provider was used instead.
	FellBack bool
	// CloudReasoning is true for the cloud reasoning model, which takes a
	// reasoning effort instead of sampling parameters.
	CloudReasoning bool
}

// ProviderResolver picks the provider for one request.
type ProviderResolver struct {
	cfg     config.AI
	vault   *secrets.Vault
	breaker *resilience.Breaker
	metrics *cfotel.Metrics
}

// NewProviderResolver creates a resolver. breaker and metrics may be nil.
func NewProviderResolver(cfg config.AI, vault *secrets.Vault, breaker *resilience.Breaker, metrics *cfotel.Metrics) *ProviderResolver {
	return &ProviderResolver{cfg: cfg, vault: vault, breaker: breaker, metrics: metrics}
}

// Resolve applies the selection policy:
//
//  1. No settings: cloud provider with the environment key.
//  2. Local provider requested: check its base URL and probe its model
//     list; on any failure log and fall through to the cloud provider.
//  3. Cloud provider with the settings key, else the environment key.
//
// A missing key is a configuration error. The probe is the only call made.
func (r *ProviderResolver) Resolve(ctx context.Context, app *settings.AppSettings) (Resolution, error) {
	if app == nil {
		key := r.envKey()
		if key == "" {
			return Resolution{}, intent.ConfigError(msgNoEnvKey)
		}
		return r.cloud(key), nil
	}

	fellBack := false
	if app.WantsLocal() {
		local := ollama.New(app.LocalBaseURL())
		err := settings.ValidateBaseURL(app.LocalBaseURL())
		if err == nil {
			err = r.probe(ctx, local)
		}
		if err == nil {
			model := app.SelectedModel
			if model == "" {
				model = r.cfg.DefaultLocalModel
			}
			return Resolution{Provider: local.Provider(model)}, nil
		}
		if ctx.Err() != nil {
			return Resolution{}, intent.ErrCancelled
		}
		slog.WarnContext(ctx, "local provider unavailable, falling back to cloud",
			"base_url", local.BaseURL(), "error", err)
		if r.metrics != nil {
			r.metrics.ProviderFallbacks.Add(ctx, 1)
		}
		fellBack = true
	}

	key := app.OpenAIAPIKey
	if key == "" {
		key = r.envKey()
	}
	if key == "" {
		return Resolution{}, intent.ConfigError(msgNoKey)
	}
	res := r.cloud(key)
	res.FellBack = fellBack
	return res, nil
}

func (r *ProviderResolver) probe(ctx context.Context, local *ollama.Client) error {
	ctx, span := cfotel.StartProbeSpan(ctx, local.BaseURL())
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, r.probeTimeout())
	defer cancel()
	if _, err := local.ListModels(ctx); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (r *ProviderResolver) probeTimeout() time.Duration {
	if r.cfg.ProbeTimeout > 0 {
		return r.cfg.ProbeTimeout
	}
	return 10 * time.Second
}

func (r *ProviderResolver) cloud(key string) Resolution {
	opts := []openai.Option{openai.WithReasoningEffort(r.cfg.ReasoningEffort)}
	if r.breaker != nil {
		opts = append(opts, openai.WithBreaker(r.breaker))
	}
	return Resolution{
		Provider:       openai.NewClient(r.cfg.CloudBaseURL, key, r.cfg.Model, opts...),
		CloudReasoning: r.cfg.ReasoningEffort != "",
	}
}

func (r *ProviderResolver) envKey() string { return r.vault.CloudAPIKey() }
