package cmd

import (
	"github.com/spf13/cobra"

	"github.com/joescharf/mergeq/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets coding agents evaluate readiness, classify conflicts, aggregate
reviews and query run history. Configure it with:

  {
    "mcpServers": {
      "mergeq": { "command": "mergeq", "args": ["mcp"] }
    }
  }

Available tools: mq_evaluate_readiness, mq_classify_conflict,
mq_aggregate_reviews, mq_list_runs, mq_run_results, mq_pr_history`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := getStore()
		if err != nil {
			ui.Warning("Run history disabled: %v", err)
		}
		ctx, cancel := signalContext(cmd)
		defer cancel()
		return mcp.NewServer(s).ServeStdio(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
