package response_test

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/response"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/schema"
)

func TestFlattenNestedMaps(t *testing.T) {
	items := []map[string]any{
		{
			"ticker": "NVDA251219C00100000",
			"details": map[string]any{
				"strike_price":  float64(100),
				"contract_type": "call",
			},
		},
	}

	columns, rows := response.Flatten(items)
	assert.Equal(t, []string{"details_contract_type", "details_strike_price", "ticker"}, columns)
	require.Len(t, rows, 1)
	assert.Equal(t, "100", rows[0]["details_strike_price"])
	assert.Equal(t, "call", rows[0]["details_contract_type"])
}

func TestFlattenUnionOfColumns(t *testing.T) {
	items := []map[string]any{
		{"a": "1"},
		{"b": "2"},
	}
	columns, rows := response.Flatten(items)
	assert.Equal(t, []string{"a", "b"}, columns)
	assert.Equal(t, "1", rows[0]["a"])
	_, ok := rows[0]["b"]
	assert.False(t, ok)
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", response.Stringify(nil))
	assert.Equal(t, "42", response.Stringify(float64(42)))
	assert.Equal(t, "42.5", response.Stringify(float64(42.5)))
	assert.Equal(t, "true", response.Stringify(true))
	assert.Equal(t, "hello", response.Stringify("hello"))
	assert.Equal(t, `["x","y"]`, response.Stringify([]any{"x", "y"}))
}

func TestFormatDirect(t *testing.T) {
	out, err := response.FormatDirect(
		[]string{"ticker", "close"},
		[]map[string]string{{"ticker": "AAPL", "close": "230.1"}},
	)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ticker,close", lines[0])
	assert.Equal(t, "AAPL,230.1", lines[1])
}

func TestFormatDirectEmpty(t *testing.T) {
	out, err := response.FormatDirect([]string{"a"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "No results found.", out)
}

func TestFormatCached(t *testing.T) {
	info := &schema.CacheMetadata{
		Cached:        true,
		CacheLocation: "/cache/list_snapshot_options_chain/NVDA/call_all/*.parquet",
		PartitionKey:  "NVDA/call_all",
		RowCount:      5000,
		Columns:       []string{"ticker", "strike_price"},
	}
	sample := []map[string]string{
		{"ticker": "A", "strike_price": "1"},
		{"ticker": "B", "strike_price": "2"},
		{"ticker": "C", "strike_price": "3"},
		{"ticker": "D", "strike_price": "4"},
	}

	out, err := response.FormatCached(info, info.Columns, sample, []string{"SELECT * FROM read_parquet('...')"})
	require.NoError(t, err)

	var resp response.CachedResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "cached", resp.Status)
	assert.Contains(t, resp.Message, "5000 rows")
	require.NotNil(t, resp.Schema)
	assert.Len(t, resp.Schema.SampleRows, 3)
	assert.Equal(t, []string{"A", "1"}, resp.Schema.SampleRows[0])
	assert.NotEmpty(t, resp.QueryExamples)
}

func TestEstimateSize(t *testing.T) {
	small := response.EstimateSize([]string{"a"}, []map[string]string{{"a": "x"}})
	big := response.EstimateSize([]string{"a"}, []map[string]string{{"a": strings.Repeat("x", 1000)}})
	assert.Greater(t, big, small)
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "512 B", response.HumanSize(512))
	assert.Equal(t, "1.5 KB", response.HumanSize(1536))
	assert.Equal(t, "2.0 MB", response.HumanSize(2*1024*1024))
}

func TestWriteQueryTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	err := response.WriteQueryTable(&buf, &schema.QueryResult{})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "No rows returned")
}

func TestWriteEntriesTable(t *testing.T) {
	var buf bytes.Buffer
	entries := []schema.CacheEntry{
		{ToolName: "list_aggs", PartitionKey: "AAPL/2025/06", RowCount: 100, FileSizeBytes: 2048},
	}
	require.NoError(t, response.WriteEntriesTable(&buf, entries))
	out := buf.String()
	assert.Contains(t, out, "list_aggs")
	assert.Contains(t, out, "AAPL/2025/06")
	assert.Contains(t, out, "Showing 1 partitions")
}
