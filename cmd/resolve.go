package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joescharf/mergeq/internal/conflict"
	"github.com/joescharf/mergeq/internal/workflow"
)

var (
	resolvePR     int
	resolveFiles  []string
	resolveCommit bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve merge conflicts in the local checkout",
	Long: `Resolve conflicted files in the current checkout using the classifier's
recommended strategy, or the one given with --strategy.

With --pr the pull request is checked out and its base branch merged in
first. With --commit the resolution is committed and pushed.`,
	Example: `  mergeq resolve
  mergeq resolve --file go.sum --strategy regenerate
  mergeq resolve --pr 42 --commit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return resolveRun(cmd)
	},
}

func init() {
	resolveCmd.Flags().IntVar(&resolvePR, "pr", 0, "Check out this pull request and merge its base first")
	resolveCmd.Flags().StringSliceVar(&resolveFiles, "file", nil, "Resolve only these files (repeatable)")
	resolveCmd.Flags().StringVar(&strategyFlag, "strategy", "auto", "Conflict strategy: auto, ai, theirs, ours, regenerate, manual")
	resolveCmd.Flags().BoolVar(&resolveCommit, "commit", false, "Commit and push the resolution")
	rootCmd.AddCommand(resolveCmd)
}

func resolveRun(cmd *cobra.Command) error {
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

	p, err := newPipeline(ctx, cfg, true, nil)
	if err != nil {
		return err
	}

	if resolvePR > 0 {
		conflicted, err := mergePRBase(ctx, p, resolvePR)
		if err != nil {
			return err
		}
		if !conflicted {
			ui.Success("PR #%d merges cleanly with its base", resolvePR)
			return nil
		}
	}

	var attempts []conflict.Attempt
	var resolveErr error
	if len(resolveFiles) > 0 {
		for _, path := range resolveFiles {
			a, ok := p.ctrl.ResolveFile(ctx, path)
			if !ok {
				ui.Info("%s has no conflict markers, skipping", path)
				continue
			}
			attempts = append(attempts, a)
			if !a.Succeeded {
				resolveErr = fmt.Errorf("%w: %s", workflow.ErrConflictUnresolved, path)
			}
		}
	} else {
		attempts, resolveErr = p.ctrl.ResolveConflicts(ctx)
	}

	if len(attempts) == 0 && resolveErr == nil {
		ui.Info("No conflicted files found")
		return nil
	}
	renderReport(workflow.Report{
		Number:      resolvePR,
		Title:       "local checkout",
		Reason:      "resolve",
		Resolutions: attempts,
	})
	if resolveErr != nil {
		return resolveErr
	}

	if !resolveCommit {
		ui.Info("Resolution staged; review with 'git diff --cached' and commit when ready")
		return nil
	}
	if dryRun {
		ui.DryRunMsg("Would commit and push %d resolved file(s)", len(attempts))
		return nil
	}
	if err := p.repo.CommitAndPush(ctx, workflow.CommitMessage(attempts)); err != nil {
		return err
	}
	ui.Success("Resolution pushed")
	return nil
}

// mergePRBase checks out a PR and merges its base branch into it.
func mergePRBase(ctx context.Context, p *pipeline, number int) (bool, error) {
	pr, err := p.github.FetchPR(ctx, number)
	if err != nil {
		return false, err
	}
	if pr.BaseRefName == "" {
		return false, errors.New("pull request has no base branch")
	}
	if err := p.repo.CheckoutPR(ctx, number); err != nil {
		return false, err
	}
	ui.Info("Merging %s into %s", pr.BaseRefName, pr.HeadRefName)
	return p.repo.MergeBase(ctx, pr.BaseRefName)
}
