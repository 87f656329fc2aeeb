package cmd

import (
	"errors"

	"github.com/spf13/cobra"
)

var (
	reviewPR   int
	reviewJSON bool
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Collect AI reviews and post the consensus without merging",
	Example: `  mergeq review --pr 42
  mergeq review --pr 42 --require 3 --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewRun(cmd)
	},
}

func init() {
	reviewCmd.Flags().IntVar(&reviewPR, "pr", 0, "Pull request number")
	reviewCmd.Flags().IntVar(&requireFlag, "require", 2, "Approvals required for consensus")
	reviewCmd.Flags().BoolVar(&reviewJSON, "json", false, "Print the report as JSON")
	rootCmd.AddCommand(reviewCmd)
}

func reviewRun(cmd *cobra.Command) error {
	if reviewPR <= 0 {
		return errors.New("specify --pr N")
	}
	cfg, err := workflowConfig(cmd)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(cmd)
	defer cancel()

	p, err := newPipeline(ctx, cfg, false, nil)
	if err != nil {
		return err
	}
	ui.DryRunMsg("The consensus comment will not be posted")

	rep := p.ctrl.Review(ctx, reviewPR)
	if reviewJSON {
		return printJSON(rep)
	}
	renderReport(rep)
	return rep.Err
}
