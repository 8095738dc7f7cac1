// Package blobstoretest provides a compliance suite shared by blobstore adapters.
package blobstoretest

import (
	"bytes"
	"context"
	"testing"

	"github.com/TEKIMAX/focus-todo-ai/internal/port/blobstore"
)

// Run exercises the standard blobstore contract against s.
func Run(t *testing.T, s blobstore.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("PutAndGet", func(t *testing.T) {
		if err := s.Put(ctx, "compliance-key", []byte("compliance-val")); err != nil {
			t.Fatal(err)
		}
		val, found, err := s.Get(ctx, "compliance-key")
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatal("expected found after Put")
		}
		if string(val) != "compliance-val" {
			t.Fatalf("expected compliance-val, got %s", val)
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		_, found, err := s.Get(ctx, "nonexistent-key")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss for nonexistent key")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = s.Put(ctx, "del-key", []byte("del-val"))
		if err := s.Delete(ctx, "del-key"); err != nil {
			t.Fatal(err)
		}
		_, found, err := s.Get(ctx, "del-key")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss after Delete")
		}
	})

	t.Run("DeleteNonexistent", func(t *testing.T) {
		if err := s.Delete(ctx, "never-existed"); err != nil {
			t.Fatal("Delete of nonexistent key should not error")
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		_ = s.Put(ctx, "ow-key", []byte("v1"))
		_ = s.Put(ctx, "ow-key", []byte("v2"))
		val, found, err := s.Get(ctx, "ow-key")
		if err != nil {
			t.Fatal(err)
		}
		if !found || string(val) != "v2" {
			t.Fatalf("expected v2 after overwrite, got %q (found=%v)", val, found)
		}
	})

	t.Run("BinarySafe", func(t *testing.T) {
		payload := []byte{0x00, 0xff, '{', '}', '\n'}
		if err := s.Put(ctx, "bin-key", payload); err != nil {
			t.Fatal(err)
		}
		val, _, err := s.Get(ctx, "bin-key")
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(val, payload) {
			t.Fatalf("binary payload mangled: %v", val)
		}
	})
}
