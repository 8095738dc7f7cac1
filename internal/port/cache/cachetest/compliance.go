// Package cachetest provides a compliance suite shared by cache adapters.
package cachetest

import (
	"context"
	"testing"
	"time"

	"github.com/TEKIMAX/focus-todo-ai/internal/port/cache"
)

// Run exercises the standard cache contract against c.
func Run(t *testing.T, c cache.Cache) {
	t.Helper()
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		if err := c.Set(ctx, "state", []byte(`{"items":[]}`), time.Minute); err != nil {
			t.Fatal(err)
		}
		val, found, err := c.Get(ctx, "state")
		if err != nil {
			t.Fatal(err)
		}
		if !found || string(val) != `{"items":[]}` {
			t.Fatalf("expected cached state, got %q (found=%v)", val, found)
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		_, found, err := c.Get(ctx, "nonexistent-key")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss for nonexistent key")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = c.Set(ctx, "del-key", []byte("del-val"), time.Minute)
		if err := c.Delete(ctx, "del-key"); err != nil {
			t.Fatal(err)
		}
		if _, found, _ := c.Get(ctx, "del-key"); found {
			t.Fatal("expected miss after Delete")
		}
	})
}
