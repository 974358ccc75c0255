package cmd

import (
	"github.com/kaimin86/credit-rating-deploy/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the sovereign rating MCP server",
	Long: `Launch an MCP server over stdio that lets AI agents rate sovereigns, read and save
overrides, and compare peers through standard tools.

Logs go to stderr so that stdout stays reserved for the protocol.`,
	PreRunE: plainSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, storeManager)
	},
}
