// Package core implements the tool pipeline: fetch paginated data from the
// remote API, decide between inline and cached delivery, and persist large
// result sets as partitioned parquet.
package core

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/cache"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/contract"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/fetch"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/partition"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/query"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/response"
)

// Deps bundles the shared dependencies of every tool.
type Deps struct {
	Cfg     *contract.Config
	Manager *cache.Manager
	Gateway *query.Gateway

	// Pages fetches one page of an endpoint. Declared as a factory so tests
	// can substitute a fake source for the HTTP client.
	Pages func(endpoint string, qs url.Values) contract.PageFunc
}

// RunListTool executes one paginated list tool end to end.
//
// The decision sequence: a fresh cache entry for the same parameters answers
// immediately; otherwise the first page is probed, and a single small page is
// returned inline as CSV. Anything larger streams through the batch writer
// into the tool's partition and the caller gets a cache pointer instead of
// the data.
func RunListTool(ctx context.Context, deps *Deps, tool, endpoint string, qs url.Values, params map[string]any) (string, error) {
	spec := partition.SpecFor(tool)

	if meta, ok := deps.Manager.Lookup(spec, params); ok {
		examples := cache.QueryExamples(meta.CacheLocation, meta.Columns)
		return response.FormatCached(meta, meta.Columns, nil, examples)
	}

	if qs.Get("limit") == "" && deps.Cfg.PageLimit > 0 {
		qs.Set("limit", strconv.Itoa(deps.Cfg.PageLimit))
	}
	fn := deps.Pages(endpoint, qs)

	first, next, err := fn(ctx, "")
	if err != nil {
		return "", fmt.Errorf("fetch failed for %s: %w", tool, err)
	}
	if len(first) == 0 && next == "" {
		return response.FormatDirect(nil, nil)
	}

	columns, rows := response.Flatten(first)
	if next == "" && response.EstimateSize(columns, rows) <= contract.DirectResponseMaxBytes {
		return response.FormatDirect(columns, rows)
	}

	writer, err := deps.Manager.NewBatchWriter(spec, params)
	if err != nil {
		return "", err
	}

	replay := func(ctx context.Context, cursor string) ([]map[string]any, string, error) {
		if cursor == "" {
			return first, next, nil
		}
		return fn(ctx, cursor)
	}

	fetcher := fetch.New(deps.Cfg.Workers)
	if _, err := fetcher.FetchInto(ctx, replay, writer); err != nil {
		return "", fmt.Errorf("fetch failed for %s: %w", tool, err)
	}

	meta, err := deps.Manager.Finalize(spec, params, writer)
	if err != nil {
		return "", err
	}

	examples := cache.QueryExamples(meta.CacheLocation, writer.Columns())
	return response.FormatCached(meta, writer.Columns(), writer.SampleRows(), examples)
}
