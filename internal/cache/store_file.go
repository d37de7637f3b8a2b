// Package cache manages partitioned parquet persistence and the metadata
// index that locates cached partitions.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/contract"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/schema"
)

// MetadataFileName is the JSON index written at the cache root by the
// default file backend.
const MetadataFileName = "_metadata.json"

// FileStore is the default metadata backend: a single JSON file at the
// cache root mapping "<tool>/<partition_key>" to entries. A missing or
// corrupt file reads as an empty store.
type FileStore struct {
	path string
	mu   sync.Mutex
}

var _ contract.MetadataStore = &FileStore{} // Compile-time check

// NewFileStore returns a file-backed metadata store rooted at cacheRoot.
func NewFileStore(cacheRoot string) (*FileStore, error) {
	if err := os.MkdirAll(cacheRoot, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache root %q: %w", cacheRoot, err)
	}
	return &FileStore{path: filepath.Join(cacheRoot, MetadataFileName)}, nil
}

// Get returns the entry for key, or contract.ErrEntryNotFound.
func (s *FileStore) Get(key string) (*schema.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()
	entry, ok := entries[key]
	if !ok {
		return nil, contract.ErrEntryNotFound
	}
	return entry, nil
}

// Set inserts or replaces the entry for key.
func (s *FileStore) Set(key string, entry *schema.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()
	entries[key] = entry
	return s.save(entries)
}

// Delete removes the entry for key. Deleting an absent key is a no-op.
func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return s.save(entries)
}

// List returns all entries keyed by "<tool>/<partition_key>".
func (s *FileStore) List() (map[string]*schema.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(), nil
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() error {
	return nil
}

// load reads the index from disk. Any read or decode failure yields an
// empty map so a damaged index never blocks cache writes.
func (s *FileStore) load() map[string]*schema.CacheEntry {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			contract.LogWarn("reading metadata index", err)
		}
		return make(map[string]*schema.CacheEntry)
	}

	var entries map[string]*schema.CacheEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		contract.LogWarn("decoding metadata index, starting empty", err)
		return make(map[string]*schema.CacheEntry)
	}
	if entries == nil {
		entries = make(map[string]*schema.CacheEntry)
	}
	return entries
}

// save atomically rewrites the whole index.
func (s *FileStore) save(entries map[string]*schema.CacheEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata index: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata index: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to publish metadata index: %w", err)
	}
	return nil
}
