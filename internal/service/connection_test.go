package service_test

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/TEKIMAX/focus-todo-ai/internal/config"
	"github.com/TEKIMAX/focus-todo-ai/internal/service"
)

func tagsServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models":[{"name":"llama2:latest","model":"llama2:latest","size":3826793677,"details":{"family":"llama","parameter_size":"7B"}}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// closedURL returns a URL nothing listens on.
func closedURL(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()
	return "http://" + addr
}

func TestTestLocalProvider(t *testing.T) {
	c := service.NewConnectionService(config.AI{TestTimeout: 2 * time.Second}, nil)
	ctx := context.Background()

	ok := c.TestLocalProvider(ctx, tagsServer(t, http.StatusOK).URL)
	if !ok.IsValid || len(ok.Models) != 1 || ok.Models[0].Name != "llama2:latest" {
		t.Fatalf("unexpected result: %+v", ok)
	}

	tests := []struct {
		name string
		url  string
		want string
	}{
		{"empty", "", "Base URL is required"},
		{"status", tagsServer(t, http.StatusServiceUnavailable).URL, "Ollama server responded with 503"},
		{"refused", closedURL(t), "Connection refused - is Ollama running on this URL?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := c.TestLocalProvider(ctx, tt.url)
			if res.IsValid || res.Error != tt.want {
				t.Fatalf("got %+v, want error %q", res, tt.want)
			}
		})
	}
}

func TestTestLocalProviderTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := service.NewConnectionService(config.AI{TestTimeout: 50 * time.Millisecond}, nil)
	res := c.TestLocalProvider(context.Background(), srv.URL)
	if res.Error != "Connection timeout - is Ollama running?" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRefreshLocalModelsCachesIntoSettings(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(newFakeClock())
	c := service.NewConnectionService(config.AI{}, store)

	res := c.RefreshLocalModels(ctx, tagsServer(t, http.StatusOK).URL)
	if !res.Success || len(res.Models) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if got := store.AppSettings().AvailableModels; len(got) != 1 || got[0].Details.ParameterSize != "7B" {
		t.Fatalf("models not cached: %+v", got)
	}

	res = c.RefreshLocalModels(ctx, tagsServer(t, http.StatusNotFound).URL)
	if res.Success || res.Error != "Failed to fetch models: 404 Not Found" {
		t.Fatalf("unexpected result: %+v", res)
	}
	res = c.RefreshLocalModels(ctx, closedURL(t))
	if res.Error != "Cannot connect to Ollama server" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(store.AppSettings().AvailableModels) != 1 {
		t.Fatal("failed refresh should keep the cached list")
	}
}

func TestTestCloudKey(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.Header.Get("Authorization") {
		case "Bearer sk-good":
			_, _ = w.Write([]byte(`{"data":[{"id":"gpt-5"}]}`))
		case "Bearer sk-bad":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	c := service.NewConnectionService(config.AI{CloudBaseURL: srv.URL, Model: "gpt-5"}, nil)
	ctx := context.Background()
	if res := c.TestCloudKey(ctx, "  "); res.Error != "API key is required" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if calls.Load() != 0 {
		t.Fatal("blank key must not reach the provider")
	}
	if res := c.TestCloudKey(ctx, "sk-good"); !res.IsValid {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res := c.TestCloudKey(ctx, "sk-bad"); res.Error != "Invalid API key" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res := c.TestCloudKey(ctx, "sk-other"); res.Error != "Failed to validate API key" {
		t.Fatalf("unexpected result: %+v", res)
	}
}
