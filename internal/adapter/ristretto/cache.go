// Package ristretto implements the cache port using dgraph-io/ristretto as
// the in-process read cache in front of a durable blobstore.
package ristretto

import (
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Cache is a size-bounded L1 for persisted state blobs.
type Cache struct {
	c *ristretto.Cache[string, []byte]
}

// Stats summarises cache effectiveness since start.
type Stats struct {
	Hits     uint64
	Misses   uint64
	HitRatio float64
	Evicted  uint64
}

// New creates a cache holding at most maxBytes of values. Ristretto wants
// roughly ten counters per expected entry; state blobs average a few KiB.
func New(maxBytes int64) (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: max(maxBytes/4096*10, 1000),
		MaxCost:     maxBytes,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

// Get returns the cached value for key.
func (c *Cache) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, found := c.c.Get(key)
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Set stores a private copy of value and waits for the write buffer so a
// following Get observes it. A zero ttl keeps the entry until evicted.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	v := append([]byte(nil), value...)
	c.c.SetWithTTL(key, v, int64(len(v)), ttl)
	c.c.Wait()
	return nil
}

// Delete drops key.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.c.Del(key)
	return nil
}

// Stats reports hit and eviction counters.
func (c *Cache) Stats() Stats {
	m := c.c.Metrics
	return Stats{
		Hits:     m.Hits(),
		Misses:   m.Misses(),
		HitRatio: m.Ratio(),
		Evicted:  m.KeysEvicted(),
	}
}

// Close stops the cache's background goroutines.
func (c *Cache) Close() {
	c.c.Close()
}
