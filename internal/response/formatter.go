package response

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nittygritty-zzy/mcp-polygon-sub001/schema"
)

// maxSampleRows is the number of rows included in a cached-response preview.
const maxSampleRows = 3

// CachedResponse is the JSON envelope returned to MCP clients when a tool
// call's results were persisted to the cache instead of returned inline.
type CachedResponse struct {
	Status        string                `json:"status"`
	Message       string                `json:"message"`
	CacheInfo     *schema.CacheMetadata `json:"cache_info"`
	Schema        *SchemaPreview        `json:"schema,omitempty"`
	QueryExamples []string              `json:"query_examples,omitempty"`
	Usage         string                `json:"usage"`
}

// SchemaPreview describes the cached data's shape for the client.
type SchemaPreview struct {
	Columns    []string   `json:"columns"`
	SampleRows [][]string `json:"sample_rows,omitempty"`
}

// FormatDirect renders small result sets inline as CSV. An empty result
// set produces an explanatory message rather than a bare header.
func FormatDirect(columns []string, rows []map[string]string) (string, error) {
	if len(rows) == 0 {
		return "No results found.", nil
	}
	return ToCSV(columns, rowsToRecords(columns, rows))
}

// FormatCached renders the cache pointer envelope for a persisted result
// set: where the data lives, its schema, a small sample, and ready-to-run
// query examples.
func FormatCached(info *schema.CacheMetadata, columns []string, sample []map[string]string, examples []string) (string, error) {
	preview := &SchemaPreview{Columns: columns}
	limit := len(sample)
	if limit > maxSampleRows {
		limit = maxSampleRows
	}
	for _, row := range sample[:limit] {
		record := make([]string, len(columns))
		for i, col := range columns {
			record[i] = row[col]
		}
		preview.SampleRows = append(preview.SampleRows, record)
	}

	resp := CachedResponse{
		Status:        "cached",
		Message:       fmt.Sprintf("Results cached to %s (%d rows). Use query_cache to analyze.", info.CacheLocation, info.RowCount),
		CacheInfo:     info,
		Schema:        preview,
		QueryExamples: examples,
		Usage:         "Call query_cache with a SELECT statement over read_parquet('<glob>') to filter, aggregate, or join the cached data.",
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode cached response: %w", err)
	}
	return string(out), nil
}

// ToCSV renders a header plus records as CSV text.
func ToCSV(columns []string, records [][]string) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(columns); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			return "", fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV output: %w", err)
	}
	return sb.String(), nil
}

// EstimateSize returns the approximate serialized size of a result set,
// used to decide between inline and cached delivery.
func EstimateSize(columns []string, rows []map[string]string) int {
	size := 0
	for _, col := range columns {
		size += len(col) + 1
	}
	for _, row := range rows {
		for _, col := range columns {
			size += len(row[col]) + 1
		}
	}
	return size
}

func rowsToRecords(columns []string, rows []map[string]string) [][]string {
	records := make([][]string, len(rows))
	for i, row := range rows {
		rec := make([]string, len(columns))
		for j, col := range columns {
			rec[j] = row[col]
		}
		records[i] = rec
	}
	return records
}
