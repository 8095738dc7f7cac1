// Package llm defines the capability every text-generation backend offers.
package llm

import (
	"context"
	"encoding/json"
	"errors"
)

// Schema is a JSON Schema document describing a structured response.
type Schema struct {
	Name string
	Doc  json.RawMessage
}

// Options are the sampling parameters forwarded with a generation.
type Options struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// Usage reports token consumption for one call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// Provider generates text from a prompt. Implementations issue exactly one
// outbound request per call and never retry.
type Provider interface {
	// Name identifies the backend and model, e.g. "openai/gpt-5".
	Name() string
	// GenerateText returns free-form text for prompt.
	GenerateText(ctx context.Context, prompt string, opts Options) (string, Usage, error)
	// GenerateStructured asks for output conforming to schema and returns the
	// raw JSON object the provider produced. Callers decode and validate it.
	GenerateStructured(ctx context.Context, prompt string, schema Schema, opts Options) (json.RawMessage, Usage, error)
}

// ErrMalformedOutput is returned when a provider answered but the reply is
// not in the requested shape.
var ErrMalformedOutput = errors.New("malformed provider output")
