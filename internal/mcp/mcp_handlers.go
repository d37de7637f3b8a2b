package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/nittygritty-zzy/mcp-polygon-sub001/core"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/polygon"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/schema"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	deps *core.Deps
}

func (h *toolHandler) handleListSnapshotOptionsChain(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	underlying := request.GetString("underlying_asset", "")
	if underlying == "" {
		return mcp.NewToolResultError("underlying_asset is required"), nil
	}

	qs := url.Values{}
	params := map[string]any{"underlying_asset": underlying}
	if v := request.GetString("contract_type", ""); v != "" {
		qs.Set("contract_type", v)
		params["contract_type"] = v
	}
	if v := request.GetString("expiration_date", ""); v != "" {
		qs.Set("expiration_date", v)
		params["expiration_date"] = v
	}

	out, err := core.RunListTool(ctx, h.deps, "list_snapshot_options_chain",
		polygon.OptionsChainEndpoint(underlying), qs, params)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("options chain fetch failed: %v", err)), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (h *toolHandler) handleListAggs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticker := request.GetString("ticker", "")
	from := request.GetString("from_", "")
	to := request.GetString("to", "")
	if ticker == "" || from == "" || to == "" {
		return mcp.NewToolResultError("ticker, from_, and to are required"), nil
	}

	multiplier := request.GetInt("multiplier", 1)
	timespan := request.GetString("timespan", "day")

	params := map[string]any{
		"ticker":     ticker,
		"multiplier": multiplier,
		"timespan":   timespan,
		"from_":      from,
		"to":         to,
	}

	out, err := core.RunListTool(ctx, h.deps, "list_aggs",
		polygon.AggsEndpoint(ticker, multiplier, timespan, from, to), url.Values{}, params)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("aggregates fetch failed: %v", err)), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (h *toolHandler) handleListTickerNews(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ticker := request.GetString("ticker", "")
	if ticker == "" {
		return mcp.NewToolResultError("ticker is required"), nil
	}

	qs := url.Values{}
	qs.Set("ticker", ticker)
	params := map[string]any{"ticker": ticker}
	for _, name := range []string{"published_utc.gte", "published_utc.lte"} {
		if v := request.GetString(name, ""); v != "" {
			qs.Set(name, v)
			params[name] = v
		}
	}

	out, err := core.RunListTool(ctx, h.deps, "list_ticker_news",
		polygon.NewsEndpoint(), qs, params)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("news fetch failed: %v", err)), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (h *toolHandler) handleQueryCache(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sqlText := request.GetString("sql", "")
	if sqlText == "" {
		return mcp.NewToolResultError("sql is required"), nil
	}
	format := schema.OutputFormat(request.GetString("format", string(schema.CSVFormat)))

	out, err := h.deps.Gateway.Query(sqlText, format)
	if err != nil {
		// Path confinement violations are the one hard failure.
		return mcp.NewToolResultError(fmt.Sprintf("query rejected: %v", err)), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (h *toolHandler) handleCachePartitionInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tool := request.GetString("tool_name", "")
	if tool == "" {
		return mcp.NewToolResultError("tool_name is required"), nil
	}

	info, err := h.deps.Manager.PartitionInfo(tool)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("partition lookup failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(info, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}

func (h *toolHandler) handleCacheStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := h.deps.Manager.Status()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("status failed: %v", err)), nil
	}

	jsonData, _ := json.MarshalIndent(status, "", "  ")
	return mcp.NewToolResultText(string(jsonData)), nil
}
