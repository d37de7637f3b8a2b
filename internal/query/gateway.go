// Package query executes read-only SQL over cached parquet partitions.
//
// Queries reference cached data with read_parquet('<path-or-glob>') table
// functions. The gateway confines every referenced path to the cache root,
// loads the matching batch files into an in-memory SQLite database, and
// executes the remaining SQL there. SQL errors are reported as result text;
// only path violations surface as errors.
package query

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nittygritty-zzy/mcp-polygon-sub001/schema"
)

// SecurityError reports a query that referenced a path outside the cache
// root. It is the one query failure that is an error, not result text.
type SecurityError struct {
	Path string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("path %q is outside the cache directory", e.Path)
}

// Gateway validates and runs SQL over the cache.
type Gateway struct {
	root string
}

// NewGateway returns a gateway confined to the given cache root.
func NewGateway(cacheRoot string) *Gateway {
	return &Gateway{root: filepath.Clean(cacheRoot)}
}

// Query runs a SQL statement and renders the result in the requested
// format. Execution failures (bad SQL, missing files) come back as the
// result string so conversational clients can read and correct them;
// only a *SecurityError is returned as an error.
func (g *Gateway) Query(sql string, format schema.OutputFormat) (string, error) {
	result, err := g.Run(sql)
	if err != nil {
		if _, ok := err.(*SecurityError); ok {
			return "", err
		}
		return fmt.Sprintf("Query failed: %v", err), nil
	}

	switch format {
	case schema.JSONFormat:
		return RenderJSON(result)
	default:
		return RenderCSV(result)
	}
}

// Run executes a SQL statement and returns the raw result set.
func (g *Gateway) Run(sql string) (*schema.QueryResult, error) {
	refs, err := extractParquetRefs(sql)
	if err != nil {
		return nil, err
	}

	// No file references means a metadata-only query; it runs against an
	// empty engine.
	resolved := make([]parquetRef, len(refs))
	for i, ref := range refs {
		if err := g.confine(ref.path); err != nil {
			return nil, err
		}
		resolved[i] = parquetRef{full: ref.full, path: g.resolve(ref.path)}
	}

	return execute(sql, resolved)
}

// confine verifies that a referenced path resolves inside the cache root.
func (g *Gateway) confine(path string) error {
	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(g.root, candidate)
	}
	candidate = filepath.Clean(candidate)

	rel, err := filepath.Rel(g.root, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return &SecurityError{Path: path}
	}
	return nil
}

// resolve maps a referenced path to its absolute form under the root.
// Callers must confine the path first.
func (g *Gateway) resolve(path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Clean(filepath.Join(g.root, path))
}

// parquetRef is one read_parquet('<path>') occurrence in a statement.
type parquetRef struct {
	full string // the full matched text, including the function call
	path string // the quoted path literal
}

// extractParquetRefs scans a statement for read_parquet('<literal>') calls.
// The scanner is deliberately narrow: only single-quoted string literals
// are accepted, so no expression can smuggle a computed path past the
// confinement check.
func extractParquetRefs(sql string) ([]parquetRef, error) {
	const fn = "read_parquet"

	var refs []parquetRef
	lower := strings.ToLower(sql)
	for i := 0; i+len(fn) <= len(lower); {
		idx := strings.Index(lower[i:], fn)
		if idx < 0 {
			break
		}
		start := i + idx
		rest := start + len(fn)

		// Skip whitespace between the name and the opening parenthesis.
		j := rest
		for j < len(sql) && (sql[j] == ' ' || sql[j] == '\t' || sql[j] == '\n') {
			j++
		}
		if j >= len(sql) || sql[j] != '(' {
			i = rest
			continue
		}
		j++
		for j < len(sql) && (sql[j] == ' ' || sql[j] == '\t' || sql[j] == '\n') {
			j++
		}
		if j >= len(sql) || sql[j] != '\'' {
			return nil, fmt.Errorf("read_parquet argument must be a quoted path literal")
		}
		j++
		end := strings.IndexByte(sql[j:], '\'')
		if end < 0 {
			return nil, fmt.Errorf("unterminated path literal in read_parquet")
		}
		path := sql[j : j+end]
		j += end + 1
		for j < len(sql) && (sql[j] == ' ' || sql[j] == '\t' || sql[j] == '\n') {
			j++
		}
		if j >= len(sql) || sql[j] != ')' {
			return nil, fmt.Errorf("read_parquet takes exactly one quoted path literal")
		}
		j++

		refs = append(refs, parquetRef{full: sql[start:j], path: path})
		i = j
	}
	return refs, nil
}
