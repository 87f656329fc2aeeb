package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/joescharf/mergeq/internal/conflict"
	"github.com/joescharf/mergeq/internal/git"
	"github.com/joescharf/mergeq/internal/llm"
	"github.com/joescharf/mergeq/internal/readiness"
	"github.com/joescharf/mergeq/internal/shell"
)

// errNoWorkspace is returned when auto-fix is requested without a checkout.
var errNoWorkspace = errors.New("auto-fix needs a local checkout")

// autoFix checks out the PR, merges its base branch, resolves every
// conflicted file and runs the configured fix commands. The result is
// committed and pushed unless running dry. The checkout is always restored.
func (c *Controller) autoFix(ctx context.Context, pr *git.PullRequest, v readiness.Verdict) (attempts []conflict.Attempt, err error) {
	ws := c.deps.Workspace
	if ws == nil {
		return nil, errNoWorkspace
	}
	log := c.logger.With("pr", pr.Number)

	if err := ws.CheckoutPR(ctx, pr.Number); err != nil {
		return nil, fmt.Errorf("checkout PR #%d: %w", pr.Number, err)
	}
	defer func() {
		if cerr := ws.Cleanup(context.WithoutCancel(ctx)); cerr != nil {
			log.Warn("restore checkout failed", "error", cerr)
		}
	}()

	changed := false
	if !v.HasNoConflicts {
		conflicted, err := ws.MergeBase(ctx, pr.BaseRefName)
		if err != nil {
			return nil, fmt.Errorf("merge %s: %w", pr.BaseRefName, err)
		}
		if conflicted {
			attempts, err = c.ResolveConflicts(ctx)
			if err != nil {
				return attempts, err
			}
		}
		changed = true
	}

	if c.runFixCommands(ctx, ws.Dir()) {
		if err := ws.StageAll(ctx); err != nil {
			log.Warn("stage fix command output failed", "error", err)
		}
		changed = true
	}

	if !changed {
		return attempts, nil
	}
	if c.cfg.DryRun {
		log.Info("dry run, not pushing resolution")
		return attempts, nil
	}
	if err := ws.CommitAndPush(ctx, CommitMessage(attempts)); err != nil {
		return attempts, fmt.Errorf("push resolution: %w", err)
	}
	return attempts, nil
}

// ResolveConflicts resolves every conflicted path in the workspace. It
// returns ErrConflictUnresolved naming the paths that still need a human.
func (c *Controller) ResolveConflicts(ctx context.Context) ([]conflict.Attempt, error) {
	ws := c.deps.Workspace
	if ws == nil || c.resolver == nil {
		return nil, errNoWorkspace
	}
	paths, err := ws.ListConflictedPaths(ctx)
	if err != nil {
		return nil, fmt.Errorf("list conflicted paths: %w", err)
	}

	var attempts []conflict.Attempt
	var unresolved []string
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return attempts, err
		}
		a, ok := c.ResolveFile(ctx, path)
		if !ok {
			continue
		}
		attempts = append(attempts, a)
		if !a.Succeeded {
			unresolved = append(unresolved, path)
		}
	}
	if len(unresolved) > 0 {
		return attempts, fmt.Errorf("%w: %s", ErrConflictUnresolved, strings.Join(unresolved, ", "))
	}
	return attempts, nil
}

// ResolveFile classifies and resolves one conflicted path. ok is false when
// the file has no conflict markers left and nothing was done.
func (c *Controller) ResolveFile(ctx context.Context, path string) (conflict.Attempt, bool) {
	content, err := c.deps.Workspace.ReadArtifact(ctx, path)
	if err != nil {
		requested := conflict.Effective(conflict.Classify(path, 0, 0), c.cfg.ConflictStrategy)
		a := conflict.Attempt{Path: path, StrategyRequested: requested, Error: err.Error()}
		c.stats.recordResolution(a)
		return a, true
	}
	if !conflict.HasMarkers(content) {
		return conflict.Attempt{}, false
	}

	profile := conflict.ProfileContent(path, content)
	strategy := conflict.Effective(profile, c.cfg.ConflictStrategy)
	c.logger.Info("resolving conflict", "path", path, "category", profile.Category, "strategy", strategy)

	var candidates []conflict.Candidate
	if strategy == conflict.StrategyAI {
		candidates = c.candidates(ctx, path, content)
	}
	a := c.resolver.Resolve(ctx, profile, content, candidates, c.cfg.ConflictStrategy)
	c.stats.recordResolution(a)
	return a, true
}

func (c *Controller) candidates(ctx context.Context, path, content string) []conflict.Candidate {
	results := llm.FanOut(ctx, c.deps.Resolvers, BuildResolvePrompt(path, content), c.cfg.ResolveTimeout)
	var out []conflict.Candidate
	for _, r := range results {
		if r.Err != nil {
			c.logger.Warn("resolution candidate failed", "path", path, "provider", r.Provider, "error", r.Err)
			continue
		}
		out = append(out, conflict.Candidate{Source: r.Provider, Content: r.Text})
	}
	return out
}

// runFixCommands runs the configured code-fix commands. Failures are only
// logged. It reports whether any command ran.
func (c *Controller) runFixCommands(ctx context.Context, dir string) bool {
	if len(c.cfg.FixCommands) == 0 || c.deps.Runner == nil {
		return false
	}
	for _, script := range c.cfg.FixCommands {
		if _, err := c.deps.Runner.Run(ctx, shell.Script(dir, script)); err != nil {
			c.logger.Warn("fix command failed", "command", script, "error", err)
		}
	}
	return true
}

// CommitMessage summarizes resolution attempts for the fix commit.
func CommitMessage(attempts []conflict.Attempt) string {
	if len(attempts) == 0 {
		return "chore: apply automated fixes"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "chore: resolve merge conflicts in %d file(s)\n\n", len(attempts))
	for _, a := range attempts {
		fmt.Fprintf(&b, "- %s: %s", a.Path, a.StrategyUsed)
		if a.RejectedReason != "" {
			fmt.Fprintf(&b, " (%s rejected: %s)", conflict.StrategyAI, a.RejectedReason)
		}
		b.WriteString("\n")
	}
	return b.String()
}
