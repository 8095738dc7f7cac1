package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/TEKIMAX/focus-todo-ai/internal/config"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/intent"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/settings"
	"github.com/TEKIMAX/focus-todo-ai/internal/domain/todo"
	"github.com/TEKIMAX/focus-todo-ai/internal/secrets"
	"github.com/TEKIMAX/focus-todo-ai/internal/service"
)

func testVault(t *testing.T, env map[string]string) *secrets.Vault {
	t.Helper()
	v, err := secrets.NewVault(func() (map[string]string, error) { return env, nil })
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	return v
}

func testAIConfig(cloudURL string) config.AI {
	return config.AI{
		CloudBaseURL:      cloudURL,
		Model:             "gpt-5",
		DefaultLocalModel: "llama2",
		ProbeTimeout:      2 * time.Second,
	}
}

func TestResolveWithoutSettingsNeedsEnvKey(t *testing.T) {
	r := service.NewProviderResolver(testAIConfig("http://cloud.invalid"), testVault(t, nil), nil, nil)
	_, err := r.Resolve(context.Background(), nil)
	if !intent.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "environment variables") {
		t.Fatalf("unexpected message: %v", err)
	}

	r = service.NewProviderResolver(testAIConfig("http://cloud.invalid"), testVault(t, map[string]string{secrets.CloudAPIKey: "sk-env"}), nil, nil)
	res, err := r.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Provider.Name() != "openai/gpt-5" || res.FellBack {
		t.Fatalf("unexpected resolution: %+v", res)
	}
}

func TestResolveCloudWithoutAnyKey(t *testing.T) {
	r := service.NewProviderResolver(testAIConfig("http://cloud.invalid"), testVault(t, nil), nil, nil)
	app := settings.DefaultApp()
	_, err := r.Resolve(context.Background(), &app)
	var ge *intent.GenerationError
	if !errors.As(err, &ge) || ge.Kind != intent.ErrorConfiguration {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(ge.Message, "configure it in settings") {
		t.Fatalf("unexpected message %q", ge.Message)
	}
}

func TestResolveLocalWhenProbeSucceeds(t *testing.T) {
	local := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected probe path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models":[{"name":"mistral:latest","model":"mistral:latest"}]}`))
	}))
	defer local.Close()

	r := service.NewProviderResolver(testAIConfig("http://cloud.invalid"), testVault(t, nil), nil, nil)
	app := settings.DefaultApp()
	app.AIProvider = settings.ProviderLocal
	app.UseOllama = true
	app.OllamaBaseURL = local.URL

	res, err := r.Resolve(context.Background(), &app)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Provider.Name() != "ollama/llama2" || res.FellBack {
		t.Fatalf("unexpected resolution: %+v", res)
	}
}

func TestResolveFallsBackWhenProbeFails(t *testing.T) {
	probes := 0
	local := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		probes++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer local.Close()

	cloud := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-settings" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Rewritten."}}],"usage":{"prompt_tokens":3,"completion_tokens":2}}`))
	}))
	defer cloud.Close()

	r := service.NewProviderResolver(testAIConfig(cloud.URL), testVault(t, nil), nil, nil)
	app := settings.DefaultApp()
	app.AIProvider = settings.ProviderLocal
	app.UseOllama = true
	app.OllamaBaseURL = local.URL
	app.OpenAIAPIKey = "sk-settings"

	res, err := r.Resolve(context.Background(), &app)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !res.FellBack || res.Provider.Name() != "openai/gpt-5" {
		t.Fatalf("expected cloud fallback, got %+v", res)
	}
	if probes != 1 {
		t.Fatalf("expected one probe, got %d", probes)
	}

	g := service.NewGateway(r)
	out, err := g.Rewrite(context.Background(), intent.RewriteRequest{BulletPoints: "- a"}, &app, settings.DefaultAI())
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if out.RewrittenText != "Rewritten." {
		t.Fatalf("unexpected text %q", out.RewrittenText)
	}
}

func TestOrganizeFallsBackToCloudAndNormalizes(t *testing.T) {
	local := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer local.Close()

	organized := `{"organizedTodos":[
		{"id":2,"text":"Ship fix","description":"","priority":"urgent","complexity":"simple","estimatedMinutes":20,"order":7},
		{"id":1,"text":"Write docs","description":"README","priority":"low","complexity":"moderate","estimatedMinutes":45,"order":3}
	],"reasoning":"fix first"}`
	cloud := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"role": "assistant", "content": organized}, "finish_reason": "stop"}},
			"usage":   map[string]int{"prompt_tokens": 10, "completion_tokens": 20},
		})
	}))
	defer cloud.Close()

	r := service.NewProviderResolver(testAIConfig(cloud.URL), testVault(t, nil), nil, nil)
	app := settings.DefaultApp()
	app.AIProvider = settings.ProviderLocal
	app.UseOllama = true
	app.OllamaBaseURL = local.URL
	app.OpenAIAPIKey = "sk-settings"

	now := time.Now().UTC()
	res, err := service.NewGateway(r).Organize(context.Background(), intent.OrganizeRequest{
		Todos:                 []todo.Task{todo.New(1, "Write docs", now), todo.New(2, "Ship fix", now)},
		TotalAvailableMinutes: 480,
		FocusMode:             intent.FocusUrgent,
	}, &app, settings.DefaultAI())
	if err != nil {
		t.Fatalf("Organize: %v", err)
	}
	if res.Reasoning != "fix first" || len(res.OrganizedTodos) != 2 {
		t.Fatalf("unexpected result: %+v", res)
	}
	for i, task := range res.OrganizedTodos {
		if task.Order != i+1 {
			t.Fatalf("task %d: expected order %d, got %d", task.ID, i+1, task.Order)
		}
		if task.Checked || task.IsCurrentlyActive || task.FocusTimeSpent != 0 || task.Attempts != 0 {
			t.Fatalf("task %d: optional fields not defaulted: %+v", task.ID, task)
		}
		if task.ProgressStatus != todo.StatusNotStarted || task.CreatedAt.IsZero() || task.UpdateLog == nil {
			t.Fatalf("task %d: defaults missing: %+v", task.ID, task)
		}
	}
	if res.OrganizedTodos[0].ID != 2 || res.OrganizedTodos[1].ID != 1 {
		t.Fatalf("provider order not kept: %+v", res.OrganizedTodos)
	}
}

func TestResolveInvalidLocalURLFallsBack(t *testing.T) {
	tests := []string{"ftp://localhost:11434", "not a url", "http://"}
	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			r := service.NewProviderResolver(testAIConfig("http://cloud.invalid"),
				testVault(t, map[string]string{secrets.CloudAPIKey: "sk-env"}), nil, nil)
			app := settings.DefaultApp()
			app.AIProvider = settings.ProviderLocal
			app.UseOllama = true
			app.OllamaBaseURL = raw

			res, err := r.Resolve(context.Background(), &app)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if !res.FellBack || res.Provider.Name() != "openai/gpt-5" {
				t.Fatalf("expected cloud fallback, got %+v", res)
			}
		})
	}
}

func TestLocalDisabledUsesCloud(t *testing.T) {
	r := service.NewProviderResolver(testAIConfig("http://cloud.invalid"), testVault(t, map[string]string{secrets.CloudAPIKey: "sk-env"}), nil, nil)
	app := settings.DefaultApp()
	app.AIProvider = settings.ProviderLocal
	app.UseOllama = false

	res, err := r.Resolve(context.Background(), &app)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.FellBack || !strings.HasPrefix(res.Provider.Name(), "openai/") {
		t.Fatalf("expected cloud without fallback, got %+v", res)
	}
}
