package ollama_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/TEKIMAX/focus-todo-ai/internal/adapter/ollama"
)

const tagsBody = `{"models":[{"name":"llama3:8b","model":"llama3:8b","size":4661224676,"digest":"abc",
"details":{"format":"gguf","family":"llama","families":["llama"],"parameter_size":"8B","quantization_level":"Q4_0"}}]}`

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(tagsBody))
	}))
	defer srv.Close()

	models, err := ollama.New(srv.URL + "/").ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(models) != 1 {
		t.Fatalf("expected 1 model, got %d", len(models))
	}
	m := models[0]
	if m.Name != "llama3:8b" || m.Size != 4661224676 || m.Details.ParameterSize != "8B" || m.Details.QuantizationLevel != "Q4_0" {
		t.Errorf("unexpected model: %+v", m)
	}
}

func TestListModelsStatusFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := ollama.New(srv.URL).ListModels(context.Background())
	var pe *ollama.ProbeError
	if !errors.As(err, &pe) || pe.Failure != ollama.FailureStatus || pe.StatusCode != 500 {
		t.Fatalf("expected status probe error, got %v", err)
	}
}

func TestListModelsTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := ollama.New(srv.URL).ListModels(ctx)
	var pe *ollama.ProbeError
	if !errors.As(err, &pe) || pe.Failure != ollama.FailureTimeout {
		t.Fatalf("expected timeout probe error, got %v", err)
	}
}

func TestListModelsRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := l.Addr().String()
	_ = l.Close()

	_, err = ollama.New("http://" + addr).ListModels(context.Background())
	var pe *ollama.ProbeError
	if !errors.As(err, &pe) || pe.Failure != ollama.FailureRefused {
		t.Fatalf("expected refused probe error, got %v", err)
	}
}

func TestProviderTargetsV1(t *testing.T) {
	p := ollama.New("http://localhost:11434").Provider("llama3")
	if p.Name() != "ollama/llama3" || p.Model() != "llama3" {
		t.Fatalf("unexpected provider %s / %s", p.Name(), p.Model())
	}
}
