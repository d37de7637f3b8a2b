// Package schema defines the shared data model for the fetch cache:
// metadata entries, partition summaries, and query results.
package schema

import "time"

// CacheEntry describes one cached partition of a tool's data. There is one
// entry per (tool, partition key), keyed as "<tool_name>/<partition_key>" in
// the metadata store.
type CacheEntry struct {
	// ToolName is the tool that produced this partition.
	ToolName string `json:"tool_name"`

	// PartitionKey is the derived key; it may contain path separators.
	PartitionKey string `json:"partition_key"`

	// Columns is the ordered column set, fixed at the first batch write.
	Columns []string `json:"columns"`

	// RowCount is cumulative across all batch files in the partition.
	RowCount int64 `json:"row_count"`

	// FilePath is the glob pattern locating every batch file of the partition.
	FilePath string `json:"file_path"`

	// FileSizeBytes is the sum of batch file sizes on disk.
	FileSizeBytes int64 `json:"file_size_bytes"`

	// Parameters are the call parameters the partition key was derived from.
	Parameters map[string]any `json:"parameters,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CacheMetadata is returned to callers after a partition is finalized.
type CacheMetadata struct {
	Cached        bool     `json:"cached"`
	CacheLocation string   `json:"cache_location"`
	PartitionKey  string   `json:"partition_key"`
	RowCount      int64    `json:"row_count"`
	Columns       []string `json:"columns"`
	FileSizeBytes int64    `json:"file_size_bytes"`
	CachedAt      string   `json:"cached_at,omitempty"`
}

// PartitionInfo summarizes what is cached on disk for one tool.
type PartitionInfo struct {
	ToolName    string   `json:"tool_name"`
	Exists      bool     `json:"exists"`
	Partitions  []string `json:"partitions"`
	FileCount   int      `json:"file_count"`
	GlobPattern string   `json:"glob_pattern,omitempty"`
}

// CacheStatus reports aggregate statistics about the whole cache.
type CacheStatus struct {
	Backend        string    `json:"backend"`
	TotalEntries   int       `json:"total_entries"`
	TotalSizeBytes int64     `json:"total_size_bytes"`
	LastEntryTime  time.Time `json:"last_entry_time,omitzero"`
	OldestEntry    time.Time `json:"oldest_entry_time,omitzero"`
}
