// Package response flattens API payloads into tabular form and renders
// tool results for MCP clients and the CLI.
package response

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Flatten converts nested result objects into flat string-valued rows.
// Nested maps are expanded with underscore-joined keys, so
// {"details": {"strike_price": 100}} becomes {"details_strike_price": "100"}.
// Columns are the sorted union of keys across all rows, which keeps the
// derived schema deterministic regardless of per-item field presence.
func Flatten(items []map[string]any) ([]string, []map[string]string) {
	seen := make(map[string]bool)
	rows := make([]map[string]string, len(items))
	for i, item := range items {
		row := make(map[string]string)
		flattenInto(row, "", item)
		for col := range row {
			seen[col] = true
		}
		rows[i] = row
	}

	columns := make([]string, 0, len(seen))
	for col := range seen {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns, rows
}

// flattenInto writes the flattened key/value pairs of value into row.
func flattenInto(row map[string]string, prefix string, value map[string]any) {
	for k, v := range value {
		key := k
		if prefix != "" {
			key = prefix + "_" + k
		}
		switch t := v.(type) {
		case map[string]any:
			flattenInto(row, key, t)
		default:
			row[key] = Stringify(v)
		}
	}
}

// Stringify renders a decoded JSON value as a plain string. Integral
// floats drop the trailing ".0" that encoding/json would otherwise keep,
// matching the string form cached batch files store.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", t)
	}
}
