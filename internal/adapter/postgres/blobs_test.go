package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/TEKIMAX/focus-todo-ai/internal/adapter/postgres"
	"github.com/TEKIMAX/focus-todo-ai/internal/config"
	"github.com/TEKIMAX/focus-todo-ai/internal/port/blobstore/blobstoretest"
)

// setupBlobStore connects to DATABASE_URL, runs the embedded migrations and
// returns a ready BlobStore. The pool is closed via t.Cleanup.
func setupBlobStore(t *testing.T) *postgres.BlobStore {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("requires DATABASE_URL")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := config.Defaults().Postgres
	cfg.DSN = dsn
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	// A second run finds nothing pending.
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		t.Fatalf("rerun migrations: %v", err)
	}

	return postgres.NewBlobStore(pool)
}

func TestBlobStoreCompliance(t *testing.T) {
	blobstoretest.Run(t, setupBlobStore(t))
}
