package query

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nittygritty-zzy/mcp-polygon-sub001/schema"
)

// RenderCSV renders a result set as CSV with a header row. An empty
// result renders as an empty string, not a lone header.
func RenderCSV(result *schema.QueryResult) (string, error) {
	if result.Empty() {
		return "", nil
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(result.Columns); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range result.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = cellString(v)
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV output: %w", err)
	}
	return sb.String(), nil
}

// RenderJSON renders a result set as an array of objects keyed by column.
func RenderJSON(result *schema.QueryResult) (string, error) {
	objects := make([]map[string]any, len(result.Rows))
	for i, row := range result.Rows {
		obj := make(map[string]any, len(result.Columns))
		for j, col := range result.Columns {
			obj[col] = row[j]
		}
		objects[i] = obj
	}

	out, err := json.MarshalIndent(objects, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return string(out), nil
}

// cellString renders one result cell for CSV output.
func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
