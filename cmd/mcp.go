package cmd

import (
	"github.com/huangsam/folio/internal/iocache"
	"github.com/huangsam/folio/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:     "mcp",
	Short:   "Start the folio MCP server",
	Long:    `Launch an MCP server on stdio that lets AI agents read GitHub stats and play the easter-egg saga.`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, newStatsCache(cfg, iocache.Manager), newSequencer())
	},
}
