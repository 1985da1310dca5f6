// Package storage defines the key-value view of the legacy month-partitioned
// blob store.
package storage

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned when a backend is selected without the
// settings it needs.
var ErrNotConfigured = errors.New("storage backend not configured")

// KeyValueStore lists and reads raw JSON documents by key.
type KeyValueStore interface {
	// ListKeys returns every key starting with prefix, sorted.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	// Get returns the document stored under key, or nil when it is absent.
	Get(ctx context.Context, key string) ([]byte, error)
}
