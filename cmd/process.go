package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/joescharf/mergeq/internal/workflow"
)

var (
	processPR   int
	processAll  bool
	processJSON bool
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Review and merge pull requests that reach consensus",
	Long: `Run the full pipeline: readiness gate, optional conflict auto-fix,
parallel AI review, consensus, approval and merge with strategy fallback.

Use --pr for a single pull request or --all for every open, non-draft one.`,
	Example: `  mergeq process --pr 42
  mergeq process --all --auto-fix --require 3
  mergeq process --all --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return processRun(cmd)
	},
}

func init() {
	processCmd.Flags().IntVar(&processPR, "pr", 0, "Pull request number")
	processCmd.Flags().BoolVar(&processAll, "all", false, "Process every open pull request")
	processCmd.Flags().BoolVar(&processJSON, "json", false, "Print the batch report as JSON")
	addPipelineFlags(processCmd)
	processCmd.Flags().StringVar(&mergeStrategyFlag, "merge-strategy", "auto", "Merge strategy: auto, squash, merge, rebase")
	processCmd.MarkFlagsMutuallyExclusive("pr", "all")
	rootCmd.AddCommand(processCmd)
}

// addPipelineFlags registers the flags shared by process and review.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&requireFlag, "require", 2, "Approvals required for consensus")
	cmd.Flags().BoolVar(&autoFixFlag, "auto-fix", false, "Resolve conflicts and run fix commands on PRs that are not ready")
	cmd.Flags().StringVar(&strategyFlag, "strategy", "auto", "Conflict strategy: auto, ai, theirs, ours, regenerate, manual")
}

func processRun(cmd *cobra.Command) error {
	if processPR <= 0 && !processAll {
		return errors.New("specify --pr N or --all")
	}

	cfg, err := workflowConfig(cmd)
	if err != nil {
		return err
	}
	release, err := acquireRunLock()
	if err != nil {
		return err
	}
	defer release()

	ctx, cancel := signalContext(cmd)
	defer cancel()

	var onReport func(workflow.Report)
	if !processJSON {
		onReport = renderReport
	}
	p, err := newPipeline(ctx, cfg, false, onReport)
	if err != nil {
		return err
	}

	ui.DryRunMsg("No comments, approvals, pushes or merges will be made")

	var br *workflow.BatchReport
	if processAll {
		if !processJSON {
			ui.Info("Processing open pull requests in %s", p.name)
		}
		br, err = p.ctrl.ProcessOpen(ctx)
		if err != nil {
			return err
		}
		if len(br.Skipped) > 0 && !processJSON {
			ui.Info("Skipped %d draft PR(s): %v", len(br.Skipped), br.Skipped)
		}
	} else {
		br = p.ctrl.ProcessAll(ctx, []int{processPR})
	}

	if processJSON {
		return printJSON(br)
	}
	renderStats(br.Stats)
	if br.RunID != "" {
		ui.VerboseLog("Run recorded as %s", br.RunID)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}
