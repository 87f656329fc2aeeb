package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/mergeq/internal/conflict"
	"github.com/joescharf/mergeq/internal/git"
	"github.com/joescharf/mergeq/internal/llm"
	"github.com/joescharf/mergeq/internal/lockfile"
	"github.com/joescharf/mergeq/internal/merge"
	"github.com/joescharf/mergeq/internal/runlock"
	"github.com/joescharf/mergeq/internal/shell"
	"github.com/joescharf/mergeq/internal/workflow"
)

// Flags shared by process, review and resolve.
var (
	requireFlag       int
	autoFixFlag       bool
	strategyFlag      string
	mergeStrategyFlag string
)

// pipeline bundles the collaborators built for one command invocation.
type pipeline struct {
	ctrl   *workflow.Controller
	repo   *git.Repo
	github *git.GitHub
	name   string
}

// signalContext cancels when the user interrupts the command.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return signal.NotifyContext(ctx, shutdownSignals()...)
}

// runLockPath is the PID lock shared by commands that push or merge.
func runLockPath() string {
	return filepath.Join(viper.GetString("state_dir"), "mergeq.lock")
}

// acquireRunLock takes the run lock. Dry runs do not lock.
func acquireRunLock() (release func(), err error) {
	if dryRun {
		return func() {}, nil
	}
	l := runlock.New(runLockPath())
	if err := l.Acquire(); err != nil {
		return nil, err
	}
	return func() {
		if err := l.Release(); err != nil {
			ui.Warning("Failed to release run lock: %v", err)
		}
	}, nil
}

// workflowConfig assembles the pipeline options from config and the flags
// the user set explicitly.
func workflowConfig(cmd *cobra.Command) (workflow.Config, error) {
	cfg := workflow.DefaultConfig()
	cfg.RequiredApprovals = viper.GetInt("review.required_approvals")
	cfg.AutoFix = viper.GetBool("autofix.enabled")
	cfg.FixCommands = viper.GetStringSlice("autofix.commands")
	cfg.ReviewTimeout = viper.GetDuration("review.timeout")
	cfg.ResolveTimeout = viper.GetDuration("resolve.timeout")
	cfg.RecheckDelay = viper.GetDuration("autofix.recheck_delay")
	cfg.BatchDelay = viper.GetDuration("batch.delay")
	cfg.MaxDiffBytes = viper.GetInt("review.max_diff_bytes")
	cfg.DryRun = dryRun

	resolveStrategy := viper.GetString("resolve.strategy")
	mergeStrategy := viper.GetString("merge.strategy")

	flags := cmd.Flags()
	if flags.Changed("require") {
		cfg.RequiredApprovals = requireFlag
	}
	if flags.Changed("auto-fix") {
		cfg.AutoFix = autoFixFlag
	}
	if flags.Changed("strategy") {
		resolveStrategy = strategyFlag
	}
	if flags.Changed("merge-strategy") {
		mergeStrategy = mergeStrategyFlag
	}

	if cfg.RequiredApprovals < 1 {
		return cfg, fmt.Errorf("required approvals must be at least 1, got %d", cfg.RequiredApprovals)
	}
	cs, ok := conflict.ParseStrategy(resolveStrategy)
	if !ok {
		return cfg, fmt.Errorf("unknown conflict strategy %q (use: auto, ai, theirs, ours, regenerate, manual)", resolveStrategy)
	}
	cfg.ConflictStrategy = cs
	ms, ok := merge.ParseStrategy(mergeStrategy)
	if !ok {
		return cfg, fmt.Errorf("unknown merge strategy %q (use: auto, squash, merge, rebase)", mergeStrategy)
	}
	cfg.MergeStrategy = ms
	return cfg, nil
}

// newPipeline wires the controller to gh, git, the AI providers and the
// run history. withWorkspace attaches the local checkout for conflict work;
// onReport, when set, is called after each PR.
func newPipeline(ctx context.Context, cfg workflow.Config, withWorkspace bool, onReport func(workflow.Report)) (*pipeline, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	runner := shell.NewExecRunner(viper.GetDuration("command.timeout"))
	repo := git.NewRepo(cwd, runner)

	name := viper.GetString("repo")
	if name == "" {
		name, err = repo.RemoteRepo(ctx)
		if err != nil {
			return nil, fmt.Errorf("cannot determine repository (pass --repo owner/name): %w", err)
		}
	}
	cfg.Repo = name
	gh := git.NewGitHub(name, cwd, runner, viper.GetBool("merge.delete_branch"))

	settings := llmSettings(cwd, runner)
	reviewers, err := newReviewers(settings)
	if err != nil {
		return nil, fmt.Errorf("reviewers: %w", err)
	}
	resolvers, err := newResolvers(settings)
	if err != nil {
		return nil, fmt.Errorf("resolvers: %w", err)
	}
	ui.VerboseLog("Repository: %s", name)
	ui.VerboseLog("Reviewers: %v", llm.Names(reviewers))

	deps := workflow.Deps{
		Host:        gh,
		Reviewers:   reviewers,
		Resolvers:   resolvers,
		Runner:      runner,
		Regenerator: lockfile.NewRegenerator(cwd, runner),
		Logger:      logger,
		OnReport:    onReport,
	}
	if withWorkspace || cfg.AutoFix {
		deps.Workspace = repo
	}
	if s, err := getStore(); err != nil {
		ui.Warning("Run history disabled: %v", err)
	} else {
		deps.History = s
	}

	return &pipeline{
		ctrl:   workflow.New(cfg, deps),
		repo:   repo,
		github: gh,
		name:   name,
	}, nil
}
