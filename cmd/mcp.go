package cmd

import (
	"github.com/spf13/cobra"

	"agentdash/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for assistant integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets an MCP-capable assistant browse repositories and drive agent
sessions through agentdash. Configure with:

  {
    "mcpServers": {
      "agentdash": { "command": "agentdash", "args": ["mcp"] }
    }
  }

Available tools: dash_list_repos, dash_list_issues, dash_create_issue,
dash_list_sessions, dash_open_issue_chat, dash_send_message,
dash_session_status`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpRun(cmd)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func mcpRun(cmd *cobra.Command) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	gh, err := getGitHub(cmd)
	if err != nil {
		return err
	}
	ac, err := getAgent(cmd)
	if err != nil {
		return err
	}

	srv := mcp.NewServer(gh, ac, s)
	return srv.ServeStdio(cmd.Context())
}
