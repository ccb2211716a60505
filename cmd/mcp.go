package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/junior/internal/mcp"
	"github.com/joescharf/junior/internal/scheduler"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for agent integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets coding agents query review history and queue reviews.
Configure with:

  {
    "mcpServers": {
      "junior": { "command": "junior", "args": ["mcp"] }
    }
  }

Available tools: junior_recent_reviews, junior_review_detail,
junior_queue_review`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			return err
		}

		// The queue tool needs a full pipeline, which needs an API key.
		// Without one the server still runs with the read-only tools.
		var sched *scheduler.Scheduler
		if viper.GetString("anthropic.api_key") != "" {
			sched, err = buildScheduler(s)
			if err != nil {
				return err
			}
			defer sched.Close()
		}

		return mcp.NewServer(s, sched).ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
