package cache

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/partition"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/response"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/schema"

	pq "github.com/nittygritty-zzy/mcp-polygon-sub001/internal/parquet"
)

// sampleRowLimit caps the preview rows retained from the first batch.
const sampleRowLimit = 3

// BatchWriter persists fetched pages as numbered parquet batch files inside
// one partition directory. The column set is fixed by batch index 0; workers
// holding later batches block until it is known, so every file in the
// partition shares one schema for the run.
type BatchWriter struct {
	dir  string
	spec *partition.Spec
	key  string

	ready   chan struct{}
	columns []string

	mu      sync.Mutex
	sample  []map[string]string
	written map[string]bool

	rows atomic.Int64
}

// NewBatchWriter prepares a writer for the partition derived from params.
func (m *Manager) NewBatchWriter(spec *partition.Spec, params map[string]any) (*BatchWriter, error) {
	key := spec.Key(params)
	dir := m.PartitionDir(spec.Tool, key)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create partition directory %q: %w", dir, err)
	}
	return &BatchWriter{
		dir:     dir,
		spec:    spec,
		key:     key,
		ready:   make(chan struct{}),
		written: make(map[string]bool),
	}, nil
}

// PartitionKey returns the derived key this writer persists under.
func (w *BatchWriter) PartitionKey() string { return w.key }

// Columns returns the column set fixed by the first batch. Only valid
// after the fetch completes.
func (w *BatchWriter) Columns() []string { return w.columns }

// SampleRows returns up to three rows from the first batch for previews.
func (w *BatchWriter) SampleRows() []map[string]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.sample
}

// RowCount returns the number of rows persisted so far.
func (w *BatchWriter) RowCount() int64 { return w.rows.Load() }

// ConsumeBatch flattens one fetched page and writes it as data_NNN.parquet.
// Batch 0 fixes the column set; a later batch introducing columns outside it
// is schema drift and fails the write. Rows merely missing declared columns
// store nulls.
func (w *BatchWriter) ConsumeBatch(ctx context.Context, index int, items []map[string]any) ([]string, error) {
	columns, rows := response.Flatten(items)

	if index == 0 {
		w.columns = columns
		w.mu.Lock()
		limit := len(rows)
		if limit > sampleRowLimit {
			limit = sampleRowLimit
		}
		w.sample = rows[:limit]
		w.mu.Unlock()
		close(w.ready)
	} else {
		select {
		case <-w.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if err := w.checkDrift(index, columns); err != nil {
			return nil, err
		}
	}

	var paths []string
	if w.spec.Recursive() {
		grouped := w.groupBySubPartition(rows)
		for subdir, group := range grouped {
			dir := filepath.Join(w.dir, subdir)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create sub-partition directory %q: %w", dir, err)
			}
			path := filepath.Join(dir, batchFileName(index))
			if err := pq.WriteBatch(path, w.columns, group); err != nil {
				return nil, err
			}
			paths = append(paths, path)
		}
	} else {
		path := filepath.Join(w.dir, batchFileName(index))
		if err := pq.WriteBatch(path, w.columns, rows); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	w.mu.Lock()
	for _, p := range paths {
		w.written[p] = true
	}
	w.mu.Unlock()

	w.rows.Add(int64(len(rows)))
	return paths, nil
}

// removeStale deletes batch files left behind by a prior run that this run
// did not rewrite. A shorter re-fetch would otherwise leave higher-indexed
// files (or emptied sub-partitions) mixed in with the fresh data.
func (w *BatchWriter) removeStale() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return filepath.WalkDir(w.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, schema.BatchFileExt) {
			return nil
		}
		if !w.written[path] {
			return os.Remove(path)
		}
		return nil
	})
}

// checkDrift fails when a later batch carries columns the first batch did
// not declare. Drift silently corrupts a partition's fixed schema, so it
// surfaces at write time.
func (w *BatchWriter) checkDrift(index int, columns []string) error {
	declared := make(map[string]bool, len(w.columns))
	for _, c := range w.columns {
		declared[c] = true
	}
	for _, c := range columns {
		if !declared[c] {
			return fmt.Errorf("schema drift in batch %d of %s: column %q is not in the partition schema %v", index, w.key, c, w.columns)
		}
	}
	return nil
}

// groupBySubPartition splits rows into sub-partition directories keyed by
// the configured row column.
func (w *BatchWriter) groupBySubPartition(rows []map[string]string) map[string][]map[string]string {
	grouped := make(map[string][]map[string]string)
	for _, row := range rows {
		sub := w.spec.SubPartitionKey(row[w.spec.SubPartitionBy])
		grouped[sub] = append(grouped[sub], row)
	}
	return grouped
}

// batchFileName returns the canonical batch file name for an index,
// zero-padded so lexical and numeric order agree.
func batchFileName(index int) string {
	return fmt.Sprintf("%s%03d%s", schema.BatchFilePrefix, index, schema.BatchFileExt)
}
