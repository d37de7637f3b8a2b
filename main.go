// main is the entry point for the polycache CLI and MCP server.
package main

import (
	"github.com/nittygritty-zzy/mcp-polygon-sub001/cmd"
	"github.com/nittygritty-zzy/mcp-polygon-sub001/internal/contract"
)

func main() {
	if err := cmd.Execute(); err != nil {
		contract.LogFatal("command failed", err)
	}
}
