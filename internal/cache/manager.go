package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/contract"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/parquet"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/partition"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/schema"
)

// Manager owns the cache directory layout and the metadata index. Batch
// files are written by BatchWriter; Manager finalizes partitions, answers
// lookups, and services maintenance operations.
type Manager struct {
	cfg   *contract.Config
	store contract.MetadataStore
}

// NewManager returns a Manager over the configured root and store.
func NewManager(cfg *contract.Config, store contract.MetadataStore) *Manager {
	return &Manager{cfg: cfg, store: store}
}

// Store exposes the metadata store, mainly for maintenance commands.
func (m *Manager) Store() contract.MetadataStore { return m.store }

// Root returns the absolute cache root directory.
func (m *Manager) Root() string { return m.cfg.CacheRoot }

// EntryKey builds the metadata key for a tool's partition.
func EntryKey(tool, partitionKey string) string {
	return tool + "/" + partitionKey
}

// PartitionDir maps a tool and partition key to its directory on disk.
// Slashes in the key become nested directories.
func (m *Manager) PartitionDir(tool, partitionKey string) string {
	return filepath.Join(m.cfg.CacheRoot, tool, filepath.FromSlash(partitionKey))
}

// GlobFor returns the glob pattern covering every batch file of a
// partition. Sub-partitioned tools get the recursive form.
func (m *Manager) GlobFor(spec *partition.Spec, partitionKey string) string {
	dir := m.PartitionDir(spec.Tool, partitionKey)
	if spec.Recursive() {
		return filepath.ToSlash(dir) + "/**/*" + schema.BatchFileExt
	}
	return filepath.ToSlash(dir) + "/*" + schema.BatchFileExt
}

// Lookup returns cache metadata for a prior identical call if the entry is
// still fresh, letting the tool skip the fetch entirely. The second return
// is false when there is no usable entry.
func (m *Manager) Lookup(spec *partition.Spec, params map[string]any) (*schema.CacheMetadata, bool) {
	key := spec.Key(params)
	entry, err := m.store.Get(EntryKey(spec.Tool, key))
	if err != nil {
		return nil, false
	}
	if m.cfg.FreshFor > 0 && time.Since(entry.UpdatedAt) > m.cfg.FreshFor {
		return nil, false
	}
	return entryMetadata(entry), true
}

// Finalize records a completed fetch in the metadata store and returns the
// metadata handed back to the caller. Batch files from a prior, longer run
// are dropped first, and the recorded counts are measured from the files on
// disk. CreatedAt survives re-fetches of the same partition.
func (m *Manager) Finalize(spec *partition.Spec, params map[string]any, w *BatchWriter) (*schema.CacheMetadata, error) {
	key := w.PartitionKey()
	dir := m.PartitionDir(spec.Tool, key)

	if err := w.removeStale(); err != nil {
		return nil, fmt.Errorf("failed to drop stale batch files in %q: %w", dir, err)
	}
	rowCount, size, err := partitionStats(dir)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry := &schema.CacheEntry{
		ToolName:      spec.Tool,
		PartitionKey:  key,
		Columns:       w.Columns(),
		RowCount:      rowCount,
		FilePath:      m.GlobFor(spec, key),
		FileSizeBytes: size,
		Parameters:    params,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if prev, err := m.store.Get(EntryKey(spec.Tool, key)); err == nil {
		entry.CreatedAt = prev.CreatedAt
	}

	if err := m.store.Set(EntryKey(spec.Tool, key), entry); err != nil {
		return nil, fmt.Errorf("failed to record cache entry for %s/%s: %w", spec.Tool, key, err)
	}
	return entryMetadata(entry), nil
}

// entryMetadata converts a stored entry into the caller-facing form.
func entryMetadata(entry *schema.CacheEntry) *schema.CacheMetadata {
	return &schema.CacheMetadata{
		Cached:        true,
		CacheLocation: entry.FilePath,
		PartitionKey:  entry.PartitionKey,
		RowCount:      entry.RowCount,
		Columns:       entry.Columns,
		FileSizeBytes: entry.FileSizeBytes,
		CachedAt:      entry.UpdatedAt.Format(time.RFC3339),
	}
}

// partitionStats measures a partition from the batch files on disk: the sum
// of their parquet row counts and their byte sizes. Reading the counts back
// keeps the recorded metadata honest about what a query will actually see.
func partitionStats(dir string) (int64, int64, error) {
	var rowCount, size int64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, schema.BatchFileExt) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rows, err := parquet.CountRows(path)
		if err != nil {
			return err
		}
		rowCount += rows
		size += info.Size()
		return nil
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to measure partition %q: %w", dir, err)
	}
	return rowCount, size, nil
}

// QueryExamples builds ready-to-run statements for a finalized partition:
// a full scan, a row count, and a recency sort when the data is timestamped.
func QueryExamples(glob string, columns []string) []string {
	examples := []string{
		fmt.Sprintf("SELECT * FROM read_parquet('%s') LIMIT 10", glob),
		fmt.Sprintf("SELECT COUNT(*) FROM read_parquet('%s')", glob),
	}
	for _, col := range columns {
		if col == "timestamp" || strings.HasSuffix(col, "_utc") || strings.HasSuffix(col, "_timestamp") {
			examples = append(examples,
				fmt.Sprintf("SELECT * FROM read_parquet('%s') ORDER BY %s DESC LIMIT 10", glob, col))
			break
		}
	}
	return examples
}

// PartitionInfo reports what is cached for one tool. A tool with no cached
// partitions yields Exists false, not an error.
func (m *Manager) PartitionInfo(tool string) (*schema.PartitionInfo, error) {
	entries, err := m.store.List()
	if err != nil {
		return nil, err
	}

	info := &schema.PartitionInfo{ToolName: tool}
	prefix := tool + "/"
	for key, entry := range entries {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		info.Partitions = append(info.Partitions, entry.PartitionKey)
	}
	if len(info.Partitions) == 0 {
		return info, nil
	}
	sort.Strings(info.Partitions)
	info.Exists = true
	info.GlobPattern = filepath.ToSlash(filepath.Join(m.cfg.CacheRoot, tool)) + "/**/*" + schema.BatchFileExt

	toolDir := filepath.Join(m.cfg.CacheRoot, tool)
	if err := filepath.WalkDir(toolDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() && strings.HasSuffix(path, schema.BatchFileExt) {
			info.FileCount++
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to scan partitions for %s: %w", tool, err)
	}
	return info, nil
}

// Entries returns all cache entries sorted by tool then partition key.
func (m *Manager) Entries() ([]schema.CacheEntry, error) {
	byKey, err := m.store.List()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries := make([]schema.CacheEntry, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, *byKey[key])
	}
	return entries, nil
}

// Status reports aggregate cache statistics.
func (m *Manager) Status() (*schema.CacheStatus, error) {
	entries, err := m.store.List()
	if err != nil {
		return nil, err
	}

	status := &schema.CacheStatus{Backend: string(m.cfg.MetadataBackend)}
	if status.Backend == "" {
		status.Backend = string(schema.FileBackend)
	}
	for _, entry := range entries {
		status.TotalEntries++
		status.TotalSizeBytes += entry.FileSizeBytes
		if entry.UpdatedAt.After(status.LastEntryTime) {
			status.LastEntryTime = entry.UpdatedAt
		}
		if status.OldestEntry.IsZero() || entry.CreatedAt.Before(status.OldestEntry) {
			status.OldestEntry = entry.CreatedAt
		}
	}
	return status, nil
}

// Clear removes cached data. With a tool name it clears that tool's
// partitions; with an empty tool it clears the entire cache.
func (m *Manager) Clear(tool string) (int, error) {
	entries, err := m.store.List()
	if err != nil {
		return 0, err
	}

	removed := 0
	for key, entry := range entries {
		if tool != "" && entry.ToolName != tool {
			continue
		}
		dir := m.PartitionDir(entry.ToolName, entry.PartitionKey)
		if err := os.RemoveAll(dir); err != nil {
			return removed, fmt.Errorf("failed to remove partition %q: %w", dir, err)
		}
		if err := m.store.Delete(key); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// Prune removes partitions whose last update is older than maxAge.
// The cache never evicts on its own; this is the explicit maintenance path.
func (m *Manager) Prune(maxAge time.Duration) (int, error) {
	entries, err := m.store.List()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for key, entry := range entries {
		if entry.UpdatedAt.After(cutoff) {
			continue
		}
		dir := m.PartitionDir(entry.ToolName, entry.PartitionKey)
		if err := os.RemoveAll(dir); err != nil {
			return removed, fmt.Errorf("failed to remove partition %q: %w", dir, err)
		}
		if err := m.store.Delete(key); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
