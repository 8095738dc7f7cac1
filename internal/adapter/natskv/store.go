// Package natskv implements the blobstore port on a NATS JetStream
// key-value bucket.
package natskv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Store wraps a JetStream KeyValue bucket.
type Store struct {
	kv jetstream.KeyValue
	nc *nats.Conn
}

// New wraps an existing bucket. Close is a no-op for stores built this way.
func New(kv jetstream.KeyValue) *Store {
	return &Store{kv: kv}
}

// Open connects to NATS, ensures the bucket exists and returns a Store
// that owns the connection.
func Open(ctx context.Context, url, bucket string) (*Store, error) {
	nc, err := nats.Connect(url, nats.Name("focustodo"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "focus-todo persisted state",
		History:     1,
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream kv %s: %w", bucket, err)
	}

	slog.Info("nats kv ready", "url", url, "bucket", bucket)
	return &Store{kv: kv, nc: nc}, nil
}

// Get retrieves a value from the bucket.
func (s *Store) Get(ctx context.Context, key string) (data []byte, ok bool, err error) {
	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("kv get %s: %w", key, err)
	}
	return entry.Value(), true, nil
}

// Put stores a value in the bucket.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if _, err := s.kv.Put(ctx, key, value); err != nil {
		return fmt.Errorf("kv put %s: %w", key, err)
	}
	return nil
}

// Delete removes a value from the bucket.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.kv.Delete(ctx, key)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("kv delete %s: %w", key, err)
	}
	return nil
}

// Close drains the NATS connection when the store owns it.
func (s *Store) Close() error {
	if s.nc == nil {
		return nil
	}
	return s.nc.Drain()
}
