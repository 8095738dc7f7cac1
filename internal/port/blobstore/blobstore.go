// Package blobstore defines the port for durable key-value blob persistence.
package blobstore

import "context"

// Store persists opaque values by key and must survive a process restart.
type Store interface {
	// Get returns the value stored under key. ok is false on a miss.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
