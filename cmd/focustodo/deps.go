package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/TEKIMAX/focus-todo-ai/internal/adapter/filestore"
	"github.com/TEKIMAX/focus-todo-ai/internal/adapter/natskv"
	"github.com/TEKIMAX/focus-todo-ai/internal/adapter/postgres"
	"github.com/TEKIMAX/focus-todo-ai/internal/adapter/ristretto"
	"github.com/TEKIMAX/focus-todo-ai/internal/adapter/tiered"
	"github.com/TEKIMAX/focus-todo-ai/internal/config"
	"github.com/TEKIMAX/focus-todo-ai/internal/port/blobstore"
	"github.com/TEKIMAX/focus-todo-ai/internal/secrets"
	"github.com/TEKIMAX/focus-todo-ai/internal/service"
)

// loadConfig honours --config, falling back to FOCUSTODO_CONFIG and the
// default file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

// openBlobStore opens the configured durable backend, fronted by the
// in-process cache when one is configured. The returned cleanup releases
// every connection that was opened.
func openBlobStore(ctx context.Context, cfg *config.Config) (blobstore.Store, func(), error) {
	var (
		store   blobstore.Store
		closers []func()
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
		store = postgres.NewBlobStore(pool)
	case config.BackendNATS:
		kv, err := natskv.Open(ctx, cfg.NATS.URL, cfg.NATS.Bucket)
		if err != nil {
			return nil, nil, fmt.Errorf("nats: %w", err)
		}
		closers = append(closers, func() { _ = kv.Close() })
		store = kv
	default:
		fs, err := filestore.New(cfg.Storage.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("filestore: %w", err)
		}
		store = fs
	}
	slog.Info("storage opened", "backend", cfg.Storage.Backend)

	if cfg.Storage.L1SizeMB > 0 {
		l1, err := ristretto.New(cfg.Storage.L1SizeMB << 20)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("l1 cache: %w", err)
		}
		closers = append(closers, func() {
			st := l1.Stats()
			slog.Info("l1 cache closed", "hits", st.Hits, "misses", st.Misses, "hit_ratio", st.HitRatio, "evicted", st.Evicted)
			l1.Close()
		})
		store = tiered.New(l1, store, cfg.Storage.L1TTL)
	}
	return store, cleanup, nil
}

// openSealer returns nil when no sealing key is set; the stored API key is
// then kept in plain text.
func openSealer(vault *secrets.Vault) (*secrets.Sealer, error) {
	key := vault.SealingPassphrase()
	if key == "" {
		slog.Warn("no sealing key configured; the stored API key will not be encrypted", "env", secrets.SealingKey)
		return nil, nil
	}
	return secrets.NewSealer(key)
}

// openPersister wires storage and sealing into a state persister.
func openPersister(ctx context.Context, cfg *config.Config, vault *secrets.Vault) (*service.BlobPersister, func(), error) {
	sealer, err := openSealer(vault)
	if err != nil {
		return nil, nil, fmt.Errorf("sealer: %w", err)
	}
	store, cleanup, err := openBlobStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return service.NewBlobPersister(store, sealer), cleanup, nil
}
