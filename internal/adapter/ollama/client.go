// Package ollama talks to a locally hosted model server: the native tag
// listing used as a liveness probe and an OpenAI-compatible generation
// endpoint under /v1.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/TEKIMAX/focus-todo-ai/internal/adapter/openai"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/settings"
)

// placeholderKey is sent as the bearer token; local servers ignore it.
const placeholderKey = "ollama"

// ProbeFailure classifies why a tag listing failed.
type ProbeFailure string

const (
	FailureTimeout ProbeFailure = "timeout"
	FailureRefused ProbeFailure = "refused"
	FailureStatus  ProbeFailure = "status"
	FailureOther   ProbeFailure = "other"
)

// ProbeError describes a failed tag listing.
type ProbeError struct {
	Failure    ProbeFailure
	StatusCode int
	Status     string
	Err        error
}

func (e *ProbeError) Error() string {
	if e.Failure == FailureStatus {
		return fmt.Sprintf("ollama responded with %s", e.Status)
	}
	return fmt.Sprintf("ollama %s: %v", e.Failure, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// Client lists models on a local server and builds generation handles for it.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the server at baseURL.
func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

// BaseURL returns the server root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// ListModels calls GET /api/tags. The caller's context bounds the call, so
// probe timeouts are chosen by the caller.
func (c *Client) ListModels(ctx context.Context) ([]settings.LocalModel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return nil, &ProbeError{Failure: FailureOther, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &ProbeError{Failure: FailureStatus, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var body struct {
		Models []settings.LocalModel `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &ProbeError{Failure: FailureOther, Err: fmt.Errorf("decode tags: %w", err)}
	}
	if body.Models == nil {
		body.Models = []settings.LocalModel{}
	}
	return body.Models, nil
}

// Provider returns a generation handle for model on this server.
func (c *Client) Provider(model string, opts ...openai.Option) *openai.Client {
	opts = append([]openai.Option{openai.WithName("ollama/" + model)}, opts...)
	return openai.NewClient(c.baseURL+"/v1", placeholderKey, model, opts...)
}

func classify(ctx context.Context, err error) *ProbeError {
	var netErr net.Error
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return &ProbeError{Failure: FailureTimeout, Err: err}
	case errors.Is(err, syscall.ECONNREFUSED):
		return &ProbeError{Failure: FailureRefused, Err: err}
	default:
		return &ProbeError{Failure: FailureOther, Err: err}
	}
}
