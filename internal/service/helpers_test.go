package service_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/TEKIMAX/focus-todo-ai/internal/adapter/filestore"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/settings"
	"github.com/TEKIMAX/focus-todo-ai/internal/port/llm"
	"github.com/TEKIMAX/focus-todo-ai/internal/secrets"
	"github.com/TEKIMAX/focus-todo-ai/internal/service"
)

// fakeClock is a settable UTC clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// sequentialIDs hands out 1, 2, 3, ...
func sequentialIDs() func() int64 {
	var (
		mu sync.Mutex
		n  int64
	)
	return func() int64 {
		mu.Lock()
		defer mu.Unlock()
		n++
		return n
	}
}

// fakeProvider returns canned replies and records prompts.
type fakeProvider struct {
	mu         sync.Mutex
	text       string
	structured string
	err        error
	// block, when set, makes every call wait for ctx to be cancelled.
	block   bool
	prompts []string
	schemas []llm.Schema
}

func (p *fakeProvider) Name() string { return "fake/model" }

func (p *fakeProvider) record(prompt string, schema *llm.Schema) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts = append(p.prompts, prompt)
	if schema != nil {
		p.schemas = append(p.schemas, *schema)
	}
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.prompts)
}

func (p *fakeProvider) GenerateText(ctx context.Context, prompt string, _ llm.Options) (string, llm.Usage, error) {
	p.record(prompt, nil)
	if p.block {
		<-ctx.Done()
		return "", llm.Usage{}, ctx.Err()
	}
	if p.err != nil {
		return "", llm.Usage{}, p.err
	}
	return p.text, llm.Usage{PromptTokens: 10, CompletionTokens: 5}, nil
}

func (p *fakeProvider) GenerateStructured(ctx context.Context, prompt string, schema llm.Schema, _ llm.Options) (json.RawMessage, llm.Usage, error) {
	p.record(prompt, &schema)
	if p.block {
		<-ctx.Done()
		return nil, llm.Usage{}, ctx.Err()
	}
	if p.err != nil {
		return nil, llm.Usage{}, p.err
	}
	return json.RawMessage(p.structured), llm.Usage{PromptTokens: 20, CompletionTokens: 10}, nil
}

// fakeResolver always resolves to its provider, or to err.
type fakeResolver struct {
	provider llm.Provider
	err      error
}

func (r *fakeResolver) Resolve(_ context.Context, _ *settings.AppSettings) (service.Resolution, error) {
	if r.err != nil {
		return service.Resolution{}, r.err
	}
	return service.Resolution{Provider: r.provider}, nil
}

func newTestGateway(p llm.Provider, clock *fakeClock) *service.Gateway {
	return service.NewGateway(&fakeResolver{provider: p},
		service.WithGatewayClock(clock.Now),
		service.WithGatewayIDs(func() func() int64 {
			next := sequentialIDs()
			return func() int64 { return 1000 + next() }
		}()),
	)
}

func newFilePersister(t *testing.T, dir string, passphrase string) *service.BlobPersister {
	t.Helper()
	fs, err := filestore.New(dir)
	if err != nil {
		t.Fatalf("filestore.New: %v", err)
	}
	var sealer *secrets.Sealer
	if passphrase != "" {
		sealer, err = secrets.NewSealer(passphrase)
		if err != nil {
			t.Fatalf("NewSealer: %v", err)
		}
	}
	return service.NewBlobPersister(fs, sealer)
}

// recordingBroadcaster counts broadcast events.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (b *recordingBroadcaster) BroadcastEvent(_ context.Context, eventType string, _ any) {
	b.mu.Lock()
	b.events = append(b.events, eventType)
	b.mu.Unlock()
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
