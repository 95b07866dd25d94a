package cmd

import (
	"github.com/spf13/cobra"

	mcpserver "github.com/ZihaoFU245/It-s-Friday/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run MCP server for assistant integration",
	Long: `Start an MCP (Model Context Protocol) server over stdio.

This lets an MCP client read, search, send, and manage email across the
configured accounts with tools like send_email, get_unread_emails,
search_emails, and list_email_accounts.

Add to the client's MCP config:
  {
    "mcpServers": {
      "friday": {
        "command": "friday",
        "args": ["mcp"]
      }
    }
  }`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpserver.Serve(cmd.Context(), newManager())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
