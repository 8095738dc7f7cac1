package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/TEKIMAX/focus-todo-ai/internal/adapter/openai"
	cfotel "github.com/TEKIMAX/focus-todo-ai/internal/adapter/otel"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/intent"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/settings"
	"github.com/TEKIMAX/focus-todo-ai/internal/port/llm"
	"github.com/TEKIMAX/focus-todo-ai/internal/resilience"
)

// maxQuestions caps how many clarifying questions are kept.
const maxQuestions = 4

// Resolver selects the provider for a request.
type Resolver interface {
	Resolve(ctx context.Context, app *settings.AppSettings) (Resolution, error)
}

// Gateway turns an intent into exactly one provider call and returns a
// validated, defaulted result or a typed failure. It never retries.
type Gateway struct {
	resolver Resolver
	metrics  *cfotel.Metrics
	now      func() time.Time
	nextID   func() int64
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithGatewayMetrics records generation metrics.
func WithGatewayMetrics(m *cfotel.Metrics) GatewayOption {
	return func(g *Gateway) { g.metrics = m }
}

// WithGatewayClock replaces the clock used for defaulted timestamps.
func WithGatewayClock(now func() time.Time) GatewayOption {
	return func(g *Gateway) { g.now = now }
}

// WithGatewayIDs replaces the generator for task ids the provider omitted.
func WithGatewayIDs(next func() int64) GatewayOption {
	return func(g *Gateway) { g.nextID = next }
}

// NewGateway creates a gateway over resolver.
func NewGateway(resolver Resolver, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		resolver: resolver,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(g)
	}
	if g.nextID == nil {
		g.nextID = millisIDs(g.now)
	}
	return g
}

// Dispatch decodes payload for kind and runs the matching intent. It is the
// single entry point behind the generic generate endpoint.
func (g *Gateway) Dispatch(ctx context.Context, kind intent.Kind, payload json.RawMessage, app *settings.AppSettings, ai settings.AISettings) (any, error) {
	req, err := intent.Decode(kind, payload)
	if err != nil {
		return nil, err
	}
	switch r := req.(type) {
	case intent.OrganizeRequest:
		return g.Organize(ctx, r, app, ai)
	case intent.QuestionsRequest:
		return g.Questions(ctx, r, app, ai)
	case intent.DailyPlanRequest:
		return g.DailyPlan(ctx, r, app, ai)
	case intent.RewriteRequest:
		return g.Rewrite(ctx, r, app, ai)
	case intent.SOWRequest:
		return g.SOW(ctx, r, app, ai)
	default:
		return nil, fmt.Errorf("%w: invalid request type %q", domain.ErrValidation, kind)
	}
}

// Organize reorders and reprioritizes tasks. Order in the result follows
// the provider's array position.
func (g *Gateway) Organize(ctx context.Context, req intent.OrganizeRequest, app *settings.AppSettings, ai settings.AISettings) (*intent.OrganizeResult, error) {
	var out *intent.OrganizeResult
	err := g.run(ctx, req, app, ai, func(ctx context.Context, p llm.Provider, prompt string, opts llm.Options) (llm.Usage, error) {
		var raw intent.RawOrganize
		usage, err := generateInto(ctx, p, req.Kind(), prompt, opts, &raw)
		if err != nil {
			return usage, err
		}
		tasks, err := normalizeTasks(raw.OrganizedTodos, g.now(), g.nextID)
		if err != nil {
			return usage, intent.ValidationError("provider returned malformed tasks", err)
		}
		out = &intent.OrganizeResult{OrganizedTodos: tasks, Reasoning: raw.Reasoning}
		return usage, nil
	})
	return out, err
}

// Questions asks for clarifying questions about the user's day.
func (g *Gateway) Questions(ctx context.Context, req intent.QuestionsRequest, app *settings.AppSettings, ai settings.AISettings) (*intent.QuestionsResult, error) {
	var out *intent.QuestionsResult
	err := g.run(ctx, req, app, ai, func(ctx context.Context, p llm.Provider, prompt string, opts llm.Options) (llm.Usage, error) {
		var raw intent.RawQuestions
		usage, err := generateInto(ctx, p, req.Kind(), prompt, opts, &raw)
		if err != nil {
			return usage, err
		}
		qs := normalizeQuestions(raw.Questions)
		if len(qs) > maxQuestions {
			qs = qs[:maxQuestions]
		}
		out = &intent.QuestionsResult{Questions: qs}
		return usage, nil
	})
	return out, err
}

// DailyPlan builds the task list for a new day. The result is finalized.
func (g *Gateway) DailyPlan(ctx context.Context, req intent.DailyPlanRequest, app *settings.AppSettings, ai settings.AISettings) (*intent.DailyPlanResult, error) {
	var out *intent.DailyPlanResult
	err := g.run(ctx, req, app, ai, func(ctx context.Context, p llm.Provider, prompt string, opts llm.Options) (llm.Usage, error) {
		var raw intent.RawDailyPlan
		usage, err := generateInto(ctx, p, req.Kind(), prompt, opts, &raw)
		if err != nil {
			return usage, err
		}
		tasks, err := normalizeTasks(raw.Todos, g.now(), g.nextID)
		if err != nil {
			return usage, intent.ValidationError("provider returned malformed tasks", err)
		}
		out = &intent.DailyPlanResult{Todos: tasks, Reasoning: raw.Reasoning, IsFinalized: true}
		return usage, nil
	})
	return out, err
}

// Rewrite turns bullet points into one paragraph.
func (g *Gateway) Rewrite(ctx context.Context, req intent.RewriteRequest, app *settings.AppSettings, ai settings.AISettings) (*intent.RewriteResult, error) {
	var out *intent.RewriteResult
	err := g.run(ctx, req, app, ai, func(ctx context.Context, p llm.Provider, prompt string, opts llm.Options) (llm.Usage, error) {
		text, usage, err := generateText(ctx, p, prompt, opts)
		if err != nil {
			return usage, err
		}
		out = &intent.RewriteResult{RewrittenText: text}
		return usage, nil
	})
	return out, err
}

// SOW drafts a statement of work as HTML.
func (g *Gateway) SOW(ctx context.Context, req intent.SOWRequest, app *settings.AppSettings, ai settings.AISettings) (*intent.SOWResult, error) {
	var out *intent.SOWResult
	err := g.run(ctx, req, app, ai, func(ctx context.Context, p llm.Provider, prompt string, opts llm.Options) (llm.Usage, error) {
		text, usage, err := generateText(ctx, p, prompt, opts)
		if err != nil {
			return usage, err
		}
		out = &intent.SOWResult{Content: text}
		return usage, nil
	})
	return out, err
}

type generateFunc func(ctx context.Context, p llm.Provider, prompt string, opts llm.Options) (llm.Usage, error)

// run validates the request, resolves the provider, renders the prompt and
// calls gen once. Every failure leaves as a GenerationError or ErrCancelled.
func (g *Gateway) run(ctx context.Context, req intent.Request, app *settings.AppSettings, ai settings.AISettings, gen generateFunc) error {
	kind := req.Kind()
	if err := req.Validate(); err != nil {
		return err
	}

	ctx, span := cfotel.StartGenerationSpan(ctx, string(kind))
	defer span.End()
	start := time.Now()

	res, err := g.resolver.Resolve(ctx, app)
	if err != nil {
		return g.fail(ctx, kind, "", start, span, err)
	}
	provider := res.Provider.Name()
	span.SetAttributes(attribute.String("ai.provider", provider), attribute.Bool("ai.fallback", res.FellBack))

	prompt, err := BuildPrompt(req)
	if err != nil {
		return g.fail(ctx, kind, provider, start, span, err)
	}

	opts := llm.Options{Temperature: ai.Temperature, TopP: ai.TopP, MaxTokens: ai.MaxTokens}
	usage, err := gen(ctx, res.Provider, prompt, opts)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		return g.fail(ctx, kind, provider, start, span, classify(ctx, err))
	}

	elapsed := time.Since(start)
	slog.InfoContext(ctx, "generation succeeded",
		"intent", kind, "provider", provider, "fallback", res.FellBack,
		"duration_ms", elapsed.Milliseconds(),
		"prompt_tokens", usage.PromptTokens, "completion_tokens", usage.CompletionTokens,
	)
	if g.metrics != nil {
		attrs := metric.WithAttributes(attribute.String("intent", string(kind)), attribute.String("provider", provider))
		g.metrics.Generations.Add(ctx, 1, attrs)
		g.metrics.GenerationDuration.Record(ctx, elapsed.Seconds(), attrs)
		g.metrics.TokensUsed.Add(ctx, int64(usage.PromptTokens+usage.CompletionTokens), attrs)
	}
	return nil
}

func (g *Gateway) fail(ctx context.Context, kind intent.Kind, provider string, start time.Time, span trace.Span, err error) error {
	if errors.Is(err, intent.ErrCancelled) {
		slog.InfoContext(ctx, "generation cancelled", "intent", kind, "provider", provider)
		span.SetStatus(codes.Unset, "cancelled")
		return intent.ErrCancelled
	}

	var ge *intent.GenerationError
	if !errors.As(err, &ge) {
		ge = intent.ConnectivityError("generation failed", err)
	}
	ge.Intent = kind
	span.SetStatus(codes.Error, ge.Error())
	slog.ErrorContext(ctx, "generation failed",
		"intent", kind, "provider", provider, "kind", ge.Kind,
		"duration_ms", time.Since(start).Milliseconds(), "error", ge.Err,
	)
	if g.metrics != nil {
		g.metrics.GenerationFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("intent", string(kind)), attribute.String("kind", string(ge.Kind)),
		))
	}
	return ge
}

// classify maps a provider error onto the failure taxonomy.
func classify(ctx context.Context, err error) error {
	var ge *intent.GenerationError
	switch {
	case errors.Is(err, intent.ErrCancelled),
		errors.Is(ctx.Err(), context.Canceled):
		return intent.ErrCancelled
	case errors.As(err, &ge):
		return ge
	case errors.Is(err, llm.ErrMalformedOutput):
		return intent.ValidationError("provider returned malformed output", err)
	case openai.IsAuthError(err):
		return &intent.GenerationError{Kind: intent.ErrorConfiguration, Message: "the provider rejected the API key", Err: err}
	case errors.Is(err, resilience.ErrCircuitOpen):
		return intent.ConnectivityError("provider temporarily unavailable after repeated failures", err)
	case errors.Is(err, context.DeadlineExceeded):
		return intent.ConnectivityError("provider request timed out", err)
	default:
		return intent.ConnectivityError("provider request failed", err)
	}
}

// generateInto runs a structured generation and decodes and validates the
// result into dst.
func generateInto[T any, PT interface {
	*T
	ValidateResult() error
}](ctx context.Context, p llm.Provider, kind intent.Kind, prompt string, opts llm.Options, dst PT) (llm.Usage, error) {
	schema, err := ResponseSchema(kind)
	if err != nil {
		return llm.Usage{}, err
	}
	raw, usage, err := p.GenerateStructured(ctx, prompt, schema, opts)
	if err != nil {
		return usage, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return usage, intent.ValidationError("provider output does not match the response schema", err)
	}
	if err := dst.ValidateResult(); err != nil {
		return usage, intent.ValidationError("provider output failed validation", err)
	}
	return usage, nil
}

func generateText(ctx context.Context, p llm.Provider, prompt string, opts llm.Options) (string, llm.Usage, error) {
	text, usage, err := p.GenerateText(ctx, prompt, opts)
	if err != nil {
		return "", usage, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", usage, intent.ValidationError("provider returned empty text", nil)
	}
	return text, usage, nil
}
