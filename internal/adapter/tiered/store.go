// Package tiered composes an in-process cache (L1) with a durable blobstore
// (L2) into a single blobstore.
package tiered

import (
	"context"
	"log/slog"
	"time"

	"github.com/TEKIMAX/focus-todo-ai/internal/port/blobstore"
	"github.com/TEKIMAX/focus-todo-ai/internal/port/cache"
)

// Store reads through L1 and writes through to L2.
// Get checks L1 first, then L2 (backfilling L1 on an L2 hit).
// Put and Delete hit L2 first so L1 never holds a value L2 rejected.
type Store struct {
	l1    cache.Cache
	l2    blobstore.Store
	l1TTL time.Duration
}

// New creates a tiered store. l1TTL bounds how long L1 entries live.
func New(l1 cache.Cache, l2 blobstore.Store, l1TTL time.Duration) *Store {
	return &Store{l1: l1, l2: l2, l1TTL: l1TTL}
}

// Get checks L1, then L2.
func (s *Store) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	val, found, err := s.l1.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		return val, true, nil
	}

	val, found, err = s.l2.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	if err := s.l1.Set(ctx, key, val, s.l1TTL); err != nil {
		slog.Warn("l1 backfill failed", "key", key, "error", err)
	}
	return val, true, nil
}

// Put writes L2, then refreshes L1.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := s.l2.Put(ctx, key, value); err != nil {
		_ = s.l1.Delete(ctx, key)
		return err
	}
	return s.l1.Set(ctx, key, value, s.l1TTL)
}

// Delete removes from L2, then L1.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.l2.Delete(ctx, key); err != nil {
		return err
	}
	return s.l1.Delete(ctx, key)
}
