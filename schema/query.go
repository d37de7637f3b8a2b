package schema

// QueryResult holds the transient outcome of one gateway query: ordered
// column names plus positional rows. It is rendered to CSV or JSON and
// never persisted.
type QueryResult struct {
	Columns []string
	Rows    [][]any
}

// Empty reports whether the result carries no rows.
func (r *QueryResult) Empty() bool {
	return len(r.Rows) == 0
}
