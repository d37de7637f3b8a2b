// Package parquet reads and writes the cache's columnar batch files using
// github.com/parquet-go/parquet-go.
//
// Batch files carry a dynamic schema: every declared column is an optional
// string. The writer performs no type inference; typed interpretation is
// deferred to read time, where the query engine infers column types from the
// stored values.
package parquet

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

// WriteBatch serializes rows into a parquet file at path, projecting each
// row onto the declared columns. Missing values become nulls; keys outside
// the declared columns are ignored.
//
// The file is written to a temporary sibling and renamed into place, so a
// reader globbing the directory never observes a partial batch. Writing the
// same path twice deterministically replaces the previous file.
func WriteBatch(path string, columns []string, rows []map[string]string) error {
	if len(columns) == 0 {
		return errors.New("no columns declared for batch")
	}

	group := parquet.Group{}
	for _, col := range columns {
		group[col] = parquet.Optional(parquet.String())
	}
	schema := parquet.NewSchema("batch", group)

	tmp := path + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create batch file: %w", err)
	}

	writer := parquet.NewGenericWriter[map[string]any](file, schema, parquet.Compression(&parquet.Snappy))

	records := make([]map[string]any, len(rows))
	for i, row := range rows {
		record := make(map[string]any, len(columns))
		for _, col := range columns {
			if v, ok := row[col]; ok {
				record[col] = v
			}
		}
		records[i] = record
	}

	if _, err := writer.Write(records); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write rows to batch file: %w", err)
	}
	if err := writer.Close(); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to finish batch file: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close batch file: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to publish batch file: %w", err)
	}
	return nil
}

// ReadBatch loads a batch file back into columns and positional rows.
// Null cells come back as empty strings. Column order follows the file's
// schema, which sorts fields by name.
func ReadBatch(path string) ([]string, [][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer func() { _ = file.Close() }()

	stat, err := file.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat batch file: %w", err)
	}

	pf, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open parquet file %s: %w", path, err)
	}

	fields := pf.Schema().Fields()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name()
	}

	var rows [][]string
	for _, rg := range pf.RowGroups() {
		rowReader := rg.Rows()
		buf := make([]parquet.Row, 64)
		for {
			n, err := rowReader.ReadRows(buf)
			for _, row := range buf[:n] {
				values := make([]string, len(columns))
				for _, v := range row {
					if v.IsNull() {
						continue
					}
					ci := v.Column()
					if ci >= 0 && ci < len(values) {
						values[ci] = v.String()
					}
				}
				rows = append(rows, values)
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				_ = rowReader.Close()
				return nil, nil, fmt.Errorf("failed to read rows from %s: %w", path, err)
			}
			if n == 0 {
				break
			}
		}
		if err := rowReader.Close(); err != nil {
			return nil, nil, fmt.Errorf("failed to close row reader for %s: %w", path, err)
		}
	}

	return columns, rows, nil
}

// CountRows returns the number of rows in a batch file without decoding
// the row data.
func CountRows(path string) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer func() { _ = file.Close() }()

	stat, err := file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat batch file: %w", err)
	}

	pf, err := parquet.OpenFile(file, stat.Size())
	if err != nil {
		return 0, fmt.Errorf("failed to open parquet file %s: %w", path, err)
	}

	var total int64
	for _, rg := range pf.RowGroups() {
		total += rg.NumRows()
	}
	return total, nil
}
