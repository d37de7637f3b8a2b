package query

import (
	"database/sql"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	pq "github.com/nittygritty-zzy/mcp-polygon-sub001/internal/parquet"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/schema"
)

// execute loads each referenced partition into a per-call in-memory SQLite
// database, rewrites the read_parquet calls to table references, and runs
// the statement.
func execute(sqlText string, refs []parquetRef) (*schema.QueryResult, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open query engine: %w", err)
	}
	defer func() { _ = db.Close() }()

	rewritten := sqlText
	for i, ref := range refs {
		table := fmt.Sprintf("parquet_scan_%d", i)
		if err := loadPartition(db, table, ref.path); err != nil {
			return nil, err
		}
		rewritten = strings.Replace(rewritten, ref.full, table, 1)
	}

	rows, err := db.Query(rewritten)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	result := &schema.QueryResult{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// loadPartition reads every batch file matched by the path or glob into a
// fresh table, with column types inferred from the stored values.
func loadPartition(db *sql.DB, table, pattern string) error {
	files, err := expandGlob(pattern)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no parquet files match %q", pattern)
	}

	var columns []string
	var data [][]string
	for _, file := range files {
		cols, rows, err := pq.ReadBatch(file)
		if err != nil {
			return err
		}
		if columns == nil {
			columns = cols
		} else if !slices.Equal(cols, columns) {
			return fmt.Errorf("batch file %q has columns %v, want %v", file, cols, columns)
		}
		data = append(data, rows...)
	}

	types := inferColumnTypes(columns, data)

	defs := make([]string, len(columns))
	for i, col := range columns {
		defs[i] = fmt.Sprintf("%q %s", col, types[i])
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))
	if _, err := db.Exec(create); err != nil {
		return fmt.Errorf("failed to stage partition table: %w", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",")
	insert := fmt.Sprintf("INSERT INTO %s VALUES (%s)", table, placeholders)
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(insert)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, row := range data {
		args := make([]any, len(columns))
		for i, cell := range row {
			args[i] = typedValue(cell, types[i])
		}
		if _, err := stmt.Exec(args...); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return err
		}
	}
	if err := stmt.Close(); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// inferColumnTypes picks INTEGER, REAL, or TEXT per column based on the
// stored string values. A column with any non-numeric non-empty value
// stays TEXT; empty strings are nulls and do not vote.
func inferColumnTypes(columns []string, rows [][]string) []string {
	types := make([]string, len(columns))
	for i := range columns {
		allInt := true
		allReal := true
		sawValue := false
		for _, row := range rows {
			v := row[i]
			if v == "" {
				continue
			}
			sawValue = true
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				allInt = false
			}
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				allReal = false
				break
			}
		}
		switch {
		case !sawValue:
			types[i] = "TEXT"
		case allInt:
			types[i] = "INTEGER"
		case allReal:
			types[i] = "REAL"
		default:
			types[i] = "TEXT"
		}
	}
	return types
}

// typedValue converts a stored cell to the SQLite value for its inferred
// column type. Empty cells become NULL.
func typedValue(cell, colType string) any {
	if cell == "" {
		return nil
	}
	switch colType {
	case "INTEGER":
		if n, err := strconv.ParseInt(cell, 10, 64); err == nil {
			return n
		}
	case "REAL":
		if f, err := strconv.ParseFloat(cell, 64); err == nil {
			return f
		}
	}
	return cell
}

// expandGlob matches the two glob shapes partitions use: a flat
// "<dir>/*.parquet" and a recursive "<dir>/**/*.parquet". A path without
// wildcards matches itself. Results are sorted so batch order is stable.
func expandGlob(pattern string) ([]string, error) {
	pattern = filepath.FromSlash(pattern)

	if sep := strings.Index(pattern, string(filepath.Separator)+"**"+string(filepath.Separator)); sep >= 0 {
		root := pattern[:sep]
		leaf := pattern[sep+4:] // past "/**/"
		var files []string
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if ok, _ := filepath.Match(leaf, filepath.Base(path)); ok {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to expand glob %q: %w", pattern, err)
		}
		sort.Strings(files)
		return files, nil
	}

	if !strings.ContainsAny(pattern, "*?[") {
		return []string{pattern}, nil
	}

	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to expand glob %q: %w", pattern, err)
	}
	sort.Strings(files)
	return files, nil
}
