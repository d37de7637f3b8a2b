// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nittygritty-zzy/mcp-polygon-sub001/core"
)

// NewMCPServer initializes and configures the cache MCP server without
// starting it. This is exposed for unit testing.
func NewMCPServer(deps *core.Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"Polygon Cache Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{deps: deps}

	// --- 1. Tool: list_snapshot_options_chain ---
	s.AddTool(mcp.NewTool("list_snapshot_options_chain",
		mcp.WithDescription("Fetch the options chain snapshot for an underlying ticker. Large results are cached as parquet and returned as a query_cache pointer."),
		mcp.WithString("underlying_asset", mcp.Description("Underlying ticker symbol, e.g. NVDA."), mcp.Required()),
		mcp.WithString("contract_type", mcp.Description("Filter by contract type."), mcp.Enum("call", "put")),
		mcp.WithString("expiration_date", mcp.Description("Filter by expiration date (YYYY-MM-DD).")),
	), h.handleListSnapshotOptionsChain)

	// --- 2. Tool: list_aggs ---
	s.AddTool(mcp.NewTool("list_aggs",
		mcp.WithDescription("Fetch aggregate bars for a ticker over a date range."),
		mcp.WithString("ticker", mcp.Description("Ticker symbol, e.g. AAPL."), mcp.Required()),
		mcp.WithNumber("multiplier", mcp.Description("Size of the timespan multiplier. Defaults to 1.")),
		mcp.WithString("timespan", mcp.Description("Resolution of the bars. Defaults to 'day'."), mcp.Enum("minute", "hour", "day", "week", "month")),
		mcp.WithString("from_", mcp.Description("Range start date (YYYY-MM-DD)."), mcp.Required()),
		mcp.WithString("to", mcp.Description("Range end date (YYYY-MM-DD)."), mcp.Required()),
	), h.handleListAggs)

	// --- 3. Tool: list_ticker_news ---
	s.AddTool(mcp.NewTool("list_ticker_news",
		mcp.WithDescription("Fetch news articles for a ticker. Cached partitions are split by publication month."),
		mcp.WithString("ticker", mcp.Description("Ticker symbol."), mcp.Required()),
		mcp.WithString("published_utc.gte", mcp.Description("Earliest publication timestamp.")),
		mcp.WithString("published_utc.lte", mcp.Description("Latest publication timestamp.")),
	), h.handleListTickerNews)

	// --- 4. Tool: query_cache ---
	s.AddTool(mcp.NewTool("query_cache",
		mcp.WithDescription("Run read-only SQL over cached parquet data. Reference partitions with read_parquet('<glob>'); globs come from prior tool responses or cache_partition_info."),
		mcp.WithString("sql", mcp.Description("The SELECT statement to execute."), mcp.Required()),
		mcp.WithString("format", mcp.Description("Result format. Defaults to 'csv'."), mcp.Enum("csv", "json")),
	), h.handleQueryCache)

	// --- 5. Tool: cache_partition_info ---
	s.AddTool(mcp.NewTool("cache_partition_info",
		mcp.WithDescription("List the cached partitions and glob pattern for a tool."),
		mcp.WithString("tool_name", mcp.Description("The tool whose cache to inspect."), mcp.Required()),
	), h.handleCachePartitionInfo)

	// --- 6. Tool: cache_status ---
	s.AddTool(mcp.NewTool("cache_status",
		mcp.WithDescription("Report aggregate cache statistics: backend, partition count, and total size."),
	), h.handleCacheStatus)

	return s
}

// StartMCPServer starts the cache MCP server on stdio.
func StartMCPServer(_ context.Context, deps *core.Deps) error {
	s := NewMCPServer(deps)
	return server.ServeStdio(s)
}
