package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/mergeq/internal/models"
	"github.com/joescharf/mergeq/internal/output"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List past pipeline runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runsListRun()
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the per-PR results of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runsShowRun(args[0])
	},
}

var runsPRCmd = &cobra.Command{
	Use:   "pr <number>",
	Short: "Show every recorded outcome of one pull request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid pull request number: %s", args[0])
		}
		return runsPRRun(n)
	},
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "Maximum number of runs to show")
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsPRCmd)
	rootCmd.AddCommand(runsCmd)
}

func runsListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	runs, err := s.ListRuns(context.Background(), runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		ui.Info("No runs recorded yet")
		return nil
	}

	table := ui.Table([]string{"ID", "Repo", "Started", "Duration", "PRs", "Merged", "Failed", "Dry Run"})
	for _, r := range runs {
		dry := ""
		if r.DryRun {
			dry = "yes"
		}
		_ = table.Append([]string{
			r.ID,
			r.Repo,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			runDuration(r),
			fmt.Sprintf("%d", r.Stats.TotalPRs),
			fmt.Sprintf("%d", r.Stats.Merged),
			fmt.Sprintf("%d", r.Stats.Failed),
			dry,
		})
	}
	return table.Render()
}

func runsShowRun(id string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	run, err := s.GetRun(ctx, id)
	if err != nil {
		return fmt.Errorf("run %s: %w", id, err)
	}
	results, err := s.ListPRResults(ctx, id)
	if err != nil {
		return err
	}

	ui.Info("Run %s on %s, started %s (%s)", run.ID, run.Repo, run.StartedAt.Local().Format(time.RFC822), runDuration(run))
	renderResults(results)
	renderStats(run.Stats)
	return nil
}

func runsPRRun(number int) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	results, err := s.ListPRHistory(context.Background(), number)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		ui.Info("No results recorded for PR #%d", number)
		return nil
	}
	renderResults(results)
	return nil
}

func renderResults(results []*models.PRResult) {
	table := ui.Table([]string{"PR", "Title", "Outcome", "Reason", "Approvals", "Conflicts", "Merged Via"})
	for _, r := range results {
		_ = table.Append([]string{
			fmt.Sprintf("#%d", r.Number),
			r.Title,
			output.OutcomeColor(string(r.Outcome)),
			r.Reason,
			fmt.Sprintf("%d/%d", r.Approvals, r.TotalOpinions),
			fmt.Sprintf("%d", r.Conflicts),
			r.MergeStrategy,
		})
	}
	_ = table.Render()
}

// runDuration formats how long a run took, or "running" when unfinished.
func runDuration(r *models.Run) string {
	if r.FinishedAt == nil {
		return "running"
	}
	return r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
}
