// Package openai provides an HTTP client for OpenAI-compatible chat
// completion APIs. It serves both the cloud provider and any local server
// that speaks the same protocol.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/TEKIMAX/focus-todo-ai/internal/port/llm"
	"github.com/TEKIMAX/focus-todo-ai/internal/resilience"
)

// DefaultBaseURL is the public cloud endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// StatusError is returned when the API answers with a 4xx or 5xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("openai API error %d: %s", e.Code, e.Body)
}

// Client talks to a chat completions endpoint on behalf of one model.
type Client struct {
	baseURL         string
	apiKey          string
	model           string
	reasoningEffort string
	name            string
	httpClient      *http.Client
	breaker         *resilience.Breaker
}

// Option configures a Client.
type Option func(*Client)

// WithReasoningEffort sets the reasoning_effort parameter. Reasoning models
// reject custom sampling, so temperature and top_p are omitted when set.
func WithReasoningEffort(effort string) Option {
	return func(c *Client) { c.reasoningEffort = effort }
}

// WithBreaker attaches a circuit breaker to all outgoing HTTP calls.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *Client) { c.breaker = b }
}

// WithHTTPClient replaces the default traced HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithName overrides the provider name reported by Name.
func WithName(name string) Option {
	return func(c *Client) { c.name = name }
}

// NewClient creates a client for model at baseURL. The default HTTP client
// has no overall timeout: generation calls are bounded by the caller's context.
func NewClient(baseURL, apiKey, model string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		name:       "openai/" + model,
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Name identifies the provider and model.
func (c *Client) Name() string { return c.name }

// Model returns the model identifier requests are sent with.
func (c *Client) Model() string { return c.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type jsonSchemaFormat struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
	Strict bool            `json:"strict"`
}

type responseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *jsonSchemaFormat `json:"json_schema,omitempty"`
}

type chatRequest struct {
	Model           string          `json:"model"`
	Messages        []chatMessage   `json:"messages"`
	Temperature     *float64        `json:"temperature,omitempty"`
	TopP            *float64        `json:"top_p,omitempty"`
	MaxTokens       int             `json:"max_tokens,omitempty"`
	ReasoningEffort string          `json:"reasoning_effort,omitempty"`
	ResponseFormat  *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// GenerateText sends prompt as a single user message and returns the reply.
func (c *Client) GenerateText(ctx context.Context, prompt string, opts llm.Options) (string, llm.Usage, error) {
	return c.complete(ctx, c.newRequest(prompt, opts, nil))
}

// GenerateStructured requests a reply conforming to schema and returns the
// JSON object found in it. A reply that is not a JSON object yields
// llm.ErrMalformedOutput.
func (c *Client) GenerateStructured(ctx context.Context, prompt string, schema llm.Schema, opts llm.Options) (json.RawMessage, llm.Usage, error) {
	format := &responseFormat{
		Type:       "json_schema",
		JSONSchema: &jsonSchemaFormat{Name: schema.Name, Schema: schema.Doc},
	}
	text, usage, err := c.complete(ctx, c.newRequest(prompt, opts, format))
	if err != nil {
		return nil, usage, err
	}

	obj := extractJSON(text)
	if !json.Valid([]byte(obj)) || !strings.HasPrefix(obj, "{") {
		return nil, usage, fmt.Errorf("%w: %s", llm.ErrMalformedOutput, truncate(text, 200))
	}
	return json.RawMessage(obj), usage, nil
}

func (c *Client) newRequest(prompt string, opts llm.Options, format *responseFormat) chatRequest {
	req := chatRequest{
		Model:           c.model,
		Messages:        []chatMessage{{Role: "user", Content: prompt}},
		ReasoningEffort: c.reasoningEffort,
		ResponseFormat:  format,
	}
	if c.reasoningEffort == "" {
		if opts.Temperature > 0 {
			req.Temperature = &opts.Temperature
		}
		if opts.TopP > 0 {
			req.TopP = &opts.TopP
		}
		req.MaxTokens = opts.MaxTokens
	}
	return req
}

func (c *Client) complete(ctx context.Context, req chatRequest) (string, llm.Usage, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", llm.Usage{}, fmt.Errorf("marshal chat request: %w", err)
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/chat/completions", body)
	if err != nil {
		return "", llm.Usage{}, fmt.Errorf("chat completion: %w", err)
	}

	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", llm.Usage{}, fmt.Errorf("%w: decode chat response: %v", llm.ErrMalformedOutput, err)
	}
	usage := llm.Usage{PromptTokens: resp.Usage.PromptTokens, CompletionTokens: resp.Usage.CompletionTokens}
	if len(resp.Choices) == 0 {
		return "", usage, fmt.Errorf("%w: no choices in response", llm.ErrMalformedOutput)
	}
	msg := resp.Choices[0].Message
	if msg.Content == "" && msg.Refusal != "" {
		return "", usage, fmt.Errorf("%w: model refused: %s", llm.ErrMalformedOutput, msg.Refusal)
	}
	return msg.Content, usage, nil
}

// ListModels returns the model ids visible to the configured key. It is the
// cheapest authenticated call and doubles as a credential check.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/models", nil)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}

	var result struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal models: %w", err)
	}
	ids := make([]string, 0, len(result.Data))
	for _, m := range result.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var result []byte
	call := func(ctx context.Context) error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return &StatusError{Code: resp.StatusCode, Body: truncate(string(data), 500)}
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Do(ctx, call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

// IsAuthError reports whether err is a 401 or 403 from the API.
func IsAuthError(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && (se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden)
}

// extractJSON pulls a JSON object out of a model reply, tolerating markdown
// fences and leading or trailing prose.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
