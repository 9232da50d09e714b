package app

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/questwatch/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP stdio server exposing quest analytics",
	Long: `Start a Model Context Protocol stdio server. The server exposes:

  quest_summary  Overview stats for some or all quests
  quest_detail   Full analytics for one quest
  quest_list     IDs of every quest with data

Example MCP client configuration:
  {"mcpServers":{"questwatch":{"command":"questwatch","args":["mcp"]}}}`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	window, err := e.window()
	if err != nil {
		return err
	}

	srv := mcp.NewServer(e.facade, e.db,
		mcp.WithDefaultWindow(window),
		mcp.WithVersion(appVersion),
		mcp.WithLogger(e.log),
	)
	return srv.Run(ctx, os.Stdin, os.Stdout)
}
