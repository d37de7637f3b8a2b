package response

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/nittygritty-zzy/mcp-polygon-sub001/schema"
)

// Size label colors for console output.
var (
	LargeColor  = color.New(color.FgRed, color.Bold) // partitions over 100 MB
	MediumColor = color.New(color.FgYellow)          // partitions over 10 MB
	SmallColor  = color.New(color.FgCyan)            // everything else
)

// SizeLabel returns a colored human-readable size for console tables.
func SizeLabel(bytes int64) string {
	text := HumanSize(bytes)
	switch {
	case bytes >= 100*1024*1024:
		return LargeColor.Sprint(text)
	case bytes >= 10*1024*1024:
		return MediumColor.Sprint(text)
	default:
		return SmallColor.Sprint(text)
	}
}

// HumanSize formats a byte count as B, KB, MB, or GB.
func HumanSize(bytes int64) string {
	switch {
	case bytes >= 1024*1024*1024:
		return fmt.Sprintf("%.1f GB", float64(bytes)/(1024*1024*1024))
	case bytes >= 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	case bytes >= 1024:
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// WriteEntriesTable prints cached partitions as a human-readable table.
func WriteEntriesTable(w io.Writer, entries []schema.CacheEntry) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Tool", "Partition", "Rows", "Size", "Updated"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	var totalSize int64
	var totalRows int64
	for _, e := range entries {
		data = append(data, []string{
			e.ToolName,
			e.PartitionKey,
			fmt.Sprintf("%d", e.RowCount),
			SizeLabel(e.FileSizeBytes),
			e.UpdatedAt.Format(time.DateTime),
		})
		totalSize += e.FileSizeBytes
		totalRows += e.RowCount
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d partitions (total rows: %d, total size: %s)\n",
		len(entries), totalRows, HumanSize(totalSize))
	return err
}

// WriteQueryTable prints a query result as a human-readable table.
func WriteQueryTable(w io.Writer, result *schema.QueryResult) error {
	if result.Empty() {
		_, err := fmt.Fprintln(w, "No rows returned.")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header(result.Columns)

	var data [][]string
	for _, row := range result.Rows {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = Stringify(v)
		}
		data = append(data, rec)
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d rows\n", len(result.Rows))
	return err
}

// WriteStatus prints aggregate cache statistics.
func WriteStatus(w io.Writer, status *schema.CacheStatus) error {
	if _, err := fmt.Fprintf(w, "Backend: %s\n", status.Backend); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Partitions: %d\n", status.TotalEntries); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Total size: %s\n", HumanSize(status.TotalSizeBytes)); err != nil {
		return err
	}
	if !status.LastEntryTime.IsZero() {
		if _, err := fmt.Fprintf(w, "Last update: %s\n", status.LastEntryTime.Format(time.DateTime)); err != nil {
			return err
		}
	}
	return nil
}
