package partition_test

import (
	"testing"

	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/partition"
	"github.com/stretchr/testify/assert"
)

func TestOptionsChainKey(t *testing.T) {
	spec := partition.SpecFor("list_snapshot_options_chain")

	t.Run("all discriminators absent", func(t *testing.T) {
		key := spec.Key(map[string]any{
			"underlying_asset": "AAPL",
			"limit":            250.0,
			"fetch_all":        true,
		})
		assert.Equal(t, "AAPL/all_all", key)
	})

	t.Run("expiration absent", func(t *testing.T) {
		key := spec.Key(map[string]any{
			"underlying_asset": "NVDA",
			"contract_type":    "call",
			"expiration_date":  nil,
		})
		assert.Equal(t, "NVDA/call_all", key)
	})

	t.Run("all discriminators present", func(t *testing.T) {
		key := spec.Key(map[string]any{
			"underlying_asset": "NVDA",
			"contract_type":    "put",
			"expiration_date":  "2025-12-19",
		})
		assert.Equal(t, "NVDA/put_2025-12-19", key)
	})

	t.Run("nil and missing values derive the same key", func(t *testing.T) {
		withNil := spec.Key(map[string]any{
			"underlying_asset": "TSLA",
			"contract_type":    nil,
			"expiration_date":  nil,
		})
		withMissing := spec.Key(map[string]any{
			"underlying_asset": "TSLA",
		})
		assert.Equal(t, withNil, withMissing)
	})
}

func TestAggsKey(t *testing.T) {
	spec := partition.SpecFor("list_aggs")

	key := spec.Key(map[string]any{
		"ticker":   "AAPL",
		"from_":    "2024-01-01",
		"to":       "2024-01-31",
		"timespan": "day",
	})
	assert.Equal(t, "AAPL/2024/01", key)

	key = spec.Key(map[string]any{"ticker": "AAPL"})
	assert.Equal(t, "AAPL/unknown", key)

	key = spec.Key(map[string]any{"from_": "2024-06-15"})
	assert.Equal(t, "UNKNOWN/2024/06", key)
}

func TestUnknownToolFallsBackToHash(t *testing.T) {
	params := map[string]any{"b": 2.0, "a": "x"}
	key := partition.KeyFor("some_new_tool", params)
	assert.Regexp(t, `^params_[0-9a-f]{8}$`, key)

	// Deterministic across calls and across value spellings.
	assert.Equal(t, key, partition.KeyFor("some_new_tool", map[string]any{"a": "x", "b": 2}))

	other := partition.KeyFor("some_new_tool", map[string]any{"a": "y", "b": 2.0})
	assert.NotEqual(t, key, other)
}

func TestRecursiveSpecs(t *testing.T) {
	assert.True(t, partition.SpecFor("list_ticker_news").Recursive())
	assert.False(t, partition.SpecFor("list_snapshot_options_chain").Recursive())
	assert.False(t, partition.SpecFor("no_such_tool").Recursive())
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "O-AAPL251219C00150000", partition.Sanitize("O:AAPL251219C00150000"))
	assert.Equal(t, "a-b-c", partition.Sanitize("a/b\\c"))
	assert.Equal(t, "2025-12-19", partition.Sanitize("2025-12-19"))
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", partition.Stringify(nil))
	assert.Equal(t, "5", partition.Stringify(5.0))
	assert.Equal(t, "5.5", partition.Stringify(5.5))
	assert.Equal(t, "true", partition.Stringify(true))
	assert.Equal(t, "NVDA", partition.Stringify("NVDA"))
}
