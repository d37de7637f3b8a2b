package mcp_test

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nittygritty-zzy/mcp-polygon-sub001/core"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/cache"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/contract"
	mcp_internal "github.com/nittygritty-zzy/mcp-polygon-sub001/internal/mcp"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/query"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/schema"
)

func testDeps(t *testing.T, pages [][]map[string]any) *core.Deps {
	t.Helper()
	cfg := &contract.Config{
		CacheRoot:       t.TempDir(),
		Workers:         2,
		PageLimit:       contract.DefaultPageLimit,
		FreshFor:        contract.DefaultFreshFor,
		MetadataBackend: schema.FileBackend,
	}
	store, err := cache.NewFileStore(cfg.CacheRoot)
	require.NoError(t, err)
	return &core.Deps{
		Cfg:     cfg,
		Manager: cache.NewManager(cfg, store),
		Gateway: query.NewGateway(cfg.CacheRoot),
		Pages: func(endpoint string, qs url.Values) contract.PageFunc {
			return func(ctx context.Context, cursor string) ([]map[string]any, string, error) {
				idx := 0
				if cursor != "" {
					fmt.Sscanf(cursor, "page-%d", &idx)
				}
				next := ""
				if idx+1 < len(pages) {
					next = fmt.Sprintf("page-%d", idx+1)
				}
				return pages[idx], next, nil
			}
		},
	}
}

func textOf(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	return res.Content[0].(mcp.TextContent).Text
}

func TestMCPServerHandlers_ValidationErrors(t *testing.T) {
	deps := testDeps(t, nil)
	s := mcp_internal.NewMCPServer(deps)
	ctx := context.Background()

	cases := []struct {
		tool string
		args map[string]any
		want string
	}{
		{"list_snapshot_options_chain", map[string]any{}, "underlying_asset is required"},
		{"list_aggs", map[string]any{"ticker": "AAPL"}, "from_, and to are required"},
		{"list_ticker_news", map[string]any{}, "ticker is required"},
		{"query_cache", map[string]any{}, "sql is required"},
		{"cache_partition_info", map[string]any{}, "tool_name is required"},
	}
	for _, tc := range cases {
		t.Run(tc.tool, func(t *testing.T) {
			tool := s.GetTool(tc.tool)
			require.NotNil(t, tool, "Tool %s should exist", tc.tool)

			req := mcp.CallToolRequest{
				Params: mcp.CallToolParams{Name: tc.tool, Arguments: tc.args},
			}
			res, err := tool.Handler(ctx, req)
			require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
			assert.True(t, res.IsError, "The response should indicate an error state")
			assert.Contains(t, textOf(t, res), tc.want)
		})
	}
}

func TestMCPServerFetchAndQueryFlow(t *testing.T) {
	pages := [][]map[string]any{
		{
			{"ticker": "NVDA1", "details": map[string]any{"strike_price": float64(100)}},
			{"ticker": "NVDA2", "details": map[string]any{"strike_price": float64(105)}},
		},
		{
			{"ticker": "NVDA3", "details": map[string]any{"strike_price": float64(110)}},
		},
	}
	deps := testDeps(t, pages)
	s := mcp_internal.NewMCPServer(deps)
	ctx := context.Background()

	fetchTool := s.GetTool("list_snapshot_options_chain")
	require.NotNil(t, fetchTool)
	res, err := fetchTool.Handler(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "list_snapshot_options_chain",
			Arguments: map[string]any{"underlying_asset": "NVDA", "contract_type": "call"},
		},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	text := textOf(t, res)
	assert.Contains(t, text, `"status": "cached"`)
	assert.Contains(t, text, "NVDA/call_all")

	queryTool := s.GetTool("query_cache")
	require.NotNil(t, queryTool)
	glob := deps.Cfg.CacheRoot + "/list_snapshot_options_chain/NVDA/call_all/*.parquet"
	res, err = queryTool.Handler(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name: "query_cache",
			Arguments: map[string]any{
				"sql": "SELECT COUNT(*) AS n FROM read_parquet('" + glob + "')",
			},
		},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t, "n\n3", strings.TrimSpace(textOf(t, res)))

	infoTool := s.GetTool("cache_partition_info")
	require.NotNil(t, infoTool)
	res, err = infoTool.Handler(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      "cache_partition_info",
			Arguments: map[string]any{"tool_name": "list_snapshot_options_chain"},
		},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, textOf(t, res), `"exists": true`)

	statusTool := s.GetTool("cache_status")
	require.NotNil(t, statusTool)
	res, err = statusTool.Handler(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: "cache_status"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, textOf(t, res), `"total_entries": 1`)
}

func TestMCPServerQueryEscapeRejected(t *testing.T) {
	deps := testDeps(t, nil)
	s := mcp_internal.NewMCPServer(deps)

	tool := s.GetTool("query_cache")
	require.NotNil(t, tool)
	res, err := tool.Handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name: "query_cache",
			Arguments: map[string]any{
				"sql": "SELECT * FROM read_parquet('../secrets/*.parquet')",
			},
		},
	})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, textOf(t, res), "outside the cache directory")
}
