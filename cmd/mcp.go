package cmd

import (
	"github.com/gitlegend/gitlegend/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the GitLegend MCP server",
	Long: `Launch an MCP server over stdio that lets AI agents start analyses and
query repository biographies, commit intel, bug origins, architectural shifts,
review guidelines and health scores.`,
	Args: cobra.NoArgs,
	// Stdout carries the protocol; setup logs go to stderr.
	PreRunE: serviceSetup,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, service, version)
	},
}
