package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/mcp"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the polycache MCP server",
	Long: `Launch an MCP server over stdio that lets AI agents fetch market data,
cache large results as parquet, and run SQL over the cache.`,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		defer func() { _ = deps.Manager.Store().Close() }()
		return mcp.StartMCPServer(rootCtx, deps)
	},
}
