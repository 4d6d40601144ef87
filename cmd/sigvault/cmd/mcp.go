package cmd

import (
	"github.com/spf13/cobra"

	mcpserver "github.com/sigvault/sigvault/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run MCP server for Claude Desktop integration",
	Long: `Start an MCP (Model Context Protocol) server over stdio.

This allows Claude Desktop (or any MCP client) to query your Signal
archive using the list_chats, get_messages, and search_messages tools.

Add to Claude Desktop config:
  {
    "mcpServers": {
      "sigvault": {
        "command": "sigvault",
        "args": ["mcp"]
      }
    }
  }`,
	RunE: func(cmd *cobra.Command, args []string) error {
		engine := newEngine()
		defer engine.Close()

		return mcpserver.Serve(cmd.Context(), engine)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
