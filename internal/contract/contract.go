// Package contract provides interfaces and shared utilities for the cache
// server's internal architecture.
package contract

import (
	"context"
	"errors"

	"github.com/nittygritty-zzy/mcp-polygon-sub001/schema"
)

// ErrEntryNotFound is returned by MetadataStore.Get when no entry exists
// for the requested key.
var ErrEntryNotFound = errors.New("cache entry not found")

// MetadataStore defines durable storage for cache entries, keyed by
// "<tool_name>/<partition_key>". Implementations must treat a missing or
// unreadable index as an empty store, not a hard failure.
// This allows the store to be mocked for testing.
type MetadataStore interface {
	Get(key string) (*schema.CacheEntry, error)
	Set(key string, entry *schema.CacheEntry) error
	Delete(key string) error
	List() (map[string]*schema.CacheEntry, error)
	Close() error
}

// PageFunc fetches one page of a cursor-paginated data source. An empty
// cursor requests the first page; an empty next cursor ends pagination.
type PageFunc func(ctx context.Context, cursor string) (items []map[string]any, next string, err error)

// BatchConsumer accepts fetched pages in page order. ConsumeBatch is called
// with a monotonically increasing zero-based index and returns the paths it
// wrote. Implementations may be invoked from multiple goroutines, but never
// twice for the same index.
type BatchConsumer interface {
	ConsumeBatch(ctx context.Context, index int, items []map[string]any) ([]string, error)
}

// BatchConsumerFunc adapts a function to the BatchConsumer interface.
type BatchConsumerFunc func(ctx context.Context, index int, items []map[string]any) ([]string, error)

// ConsumeBatch calls f.
func (f BatchConsumerFunc) ConsumeBatch(ctx context.Context, index int, items []map[string]any) ([]string, error) {
	return f(ctx, index, items)
}
