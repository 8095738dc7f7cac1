package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	cfhttp "github.com/TEKIMAX/focus-todo-ai/internal/adapter/http"
	cfmcp "github.com/TEKIMAX/focus-todo-ai/internal/adapter/mcp"
	cfotel "github.com/TEKIMAX/focus-todo-ai/internal/adapter/otel"
	"github.com/TEKIMAX/focus-todo-ai/internal/adapter/ws"
	"github.com/TEKIMAX/focus-todo-ai/internal/logger"
	"github.com/TEKIMAX/focus-todo-ai/internal/middleware"
	"github.com/TEKIMAX/focus-todo-ai/internal/port/broadcast"
	"github.com/TEKIMAX/focus-todo-ai/internal/resilience"
	"github.com/TEKIMAX/focus-todo-ai/internal/secrets"
	"github.com/TEKIMAX/focus-todo-ai/internal/service"
)

// dayCheckInterval is how often the server looks for a calendar-day rollover.
const dayCheckInterval = time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP, WebSocket and MCP server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	defer logCloser.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"storage", cfg.Storage.Backend,
		"mcp", cfg.MCP.Enabled,
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Infrastructure ---

	otelShutdown, err := cfotel.Setup(ctx, cfg.OTEL)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(sctx); err != nil {
			slog.Error("otel shutdown", "error", err)
		}
	}()
	metrics, err := cfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	vault, err := secrets.NewVault(secrets.EnvLoader(secrets.CloudAPIKey, secrets.SealingKey))
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}

	persister, closeStorage, err := openPersister(ctx, cfg, vault)
	if err != nil {
		return err
	}
	defer closeStorage()

	// --- Services ---

	// The hub greets new clients with a snapshot of the store it feeds.
	loc, err := cfg.Server.Location()
	if err != nil {
		return err
	}
	var store *service.TaskStore
	hub := ws.NewHub(originPatterns(cfg.Server.CORSOrigin), func() (ws.Message, bool) {
		return snapshotMessage(store)
	})
	store = service.NewTaskStore(
		service.WithPersister(persister),
		service.WithBroadcaster(hub),
		service.WithLocation(loc),
	)
	if err := store.Load(ctx); err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	store.EnsureDay(ctx)

	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	resolver := service.NewProviderResolver(cfg.AI, vault, breaker, metrics)
	gateway := service.NewGateway(resolver, service.WithGatewayMetrics(metrics))
	planner := service.NewPlanner(store, gateway, nil)
	conn := service.NewConnectionService(cfg.AI, store)

	// --- HTTP ---

	handlers := &cfhttp.Handlers{
		Store:      store,
		Gateway:    gateway,
		Planner:    planner,
		Connection: conn,
		Events:     hub,
		Version:    version,
	}
	limiter := middleware.NewRateLimiterFromConfig(cfg.Rate)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(cfhttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cfhttp.SecurityHeaders)
	r.Use(cfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(cfotel.HTTPMiddleware(cfg.OTEL.ServiceName))

	r.Get("/ws", hub.HandleWS)
	cfhttp.MountRoutes(r, handlers, limiter)

	var mcpServer *cfmcp.Server
	if cfg.MCP.Enabled {
		mcpServer = cfmcp.NewServer(cfmcp.ServerConfig{
			Name:    "focustodo",
			Version: version,
			APIKey:  cfg.MCP.APIKey,
		}, cfmcp.ServerDeps{Store: store})
		r.Handle("/mcp", mcpServer.Handler())
		slog.Info("mcp endpoint enabled", "path", "/mcp", "auth", cfg.MCP.APIKey != "")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		limiter.RunCleanup(gctx, cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
		return nil
	})

	g.Go(func() error {
		watchDay(gctx, store)
		return nil
	})

	g.Go(func() error {
		reloadSecretsOnHUP(gctx, vault)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if mcpServer != nil {
			if err := mcpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("mcp shutdown", "error", err)
			}
		}
		hub.Close()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// snapshotMessage wraps the full store state for a new WebSocket client.
func snapshotMessage(store *service.TaskStore) (ws.Message, bool) {
	data, err := json.Marshal(store.Snapshot())
	if err != nil {
		slog.Error("marshal greeting snapshot", "error", err)
		return ws.Message{}, false
	}
	return ws.Message{Type: broadcast.EventSnapshot, Payload: data}, true
}

// watchDay drops the onboarding flag when the date changes while the
// server is running.
func watchDay(ctx context.Context, store *service.TaskStore) {
	ticker := time.NewTicker(dayCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if store.EnsureDay(ctx) {
				slog.Info("new day started; onboarding required")
			}
		}
	}
}

// reloadSecretsOnHUP re-reads environment secrets on SIGHUP.
func reloadSecretsOnHUP(ctx context.Context, vault *secrets.Vault) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			changed, err := vault.Reload()
			if err != nil {
				slog.Error("secret reload failed", "error", err)
				continue
			}
			slog.Info("secrets reloaded", "changed", changed)
		}
	}
}

// originPatterns turns the configured CORS origins into WebSocket origin
// patterns, which match on host only. A wildcard accepts any origin.
func originPatterns(origins string) []string {
	var out []string
	for o := range strings.SplitSeq(origins, ",") {
		o = strings.TrimSpace(o)
		switch {
		case o == "":
		case o == "*":
			return []string{"*"}
		default:
			if u, err := url.Parse(o); err == nil && u.Host != "" {
				o = u.Host
			}
			out = append(out, o)
		}
	}
	return out
}
