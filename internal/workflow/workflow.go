// Package workflow drives pull requests through readiness, conflict
// resolution, multi-reviewer consensus and merge.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/joescharf/mergeq/internal/conflict"
	"github.com/joescharf/mergeq/internal/consensus"
	"github.com/joescharf/mergeq/internal/git"
	"github.com/joescharf/mergeq/internal/llm"
	"github.com/joescharf/mergeq/internal/merge"
	"github.com/joescharf/mergeq/internal/models"
	"github.com/joescharf/mergeq/internal/opinion"
	"github.com/joescharf/mergeq/internal/readiness"
	"github.com/joescharf/mergeq/internal/shell"
)

// Workspace is a local checkout used to resolve conflicts on a PR branch.
type Workspace interface {
	conflict.Workspace
	CheckoutPR(ctx context.Context, number int) error
	MergeBase(ctx context.Context, base string) (conflicted bool, err error)
	ListConflictedPaths(ctx context.Context) ([]string, error)
	ReadArtifact(ctx context.Context, path string) (string, error)
	StageAll(ctx context.Context) error
	CommitAndPush(ctx context.Context, message string) error
	Cleanup(ctx context.Context) error
	Dir() string
}

// Host is the pull request hosting service.
type Host interface {
	FetchPR(ctx context.Context, number int) (*git.PullRequest, error)
	ListOpenPRs(ctx context.Context) ([]git.PullRequest, error)
	Diff(ctx context.Context, number int) (string, error)
	PostComment(ctx context.Context, number int, body string) error
	SubmitReview(ctx context.Context, number int, body string) error
	merge.Merger
}

// History persists run records. It is satisfied by store.Store.
type History interface {
	CreateRun(ctx context.Context, run *models.Run) error
	FinishRun(ctx context.Context, id string, stats models.RunStats) error
	RecordPRResult(ctx context.Context, r *models.PRResult) error
}

var (
	// ErrNotReady is matched by errors.Is for every *NotReadyError.
	ErrNotReady = errors.New("pull request not ready to merge")
	// ErrConflictUnresolved is returned when a conflicted file could not be resolved.
	ErrConflictUnresolved = errors.New("conflict unresolved")
)

// NotReadyError lists the readiness checks that failed.
type NotReadyError struct {
	Failing []readiness.Check
}

func (e *NotReadyError) Error() string {
	names := make([]string, len(e.Failing))
	for i, c := range e.Failing {
		names[i] = string(c)
	}
	return fmt.Sprintf("%s: failing %s", ErrNotReady, strings.Join(names, ", "))
}

func (e *NotReadyError) Is(target error) bool { return target == ErrNotReady }

// Outcome is the terminal state of one PR.
type Outcome = models.PROutcome

const (
	OutcomeMerged  = models.OutcomeMerged
	OutcomeBlocked = models.OutcomeBlocked
	OutcomeFailed  = models.OutcomeFailed
)

// Reason explains an Outcome.
type Reason string

const (
	ReasonMerged             Reason = "merged"
	ReasonFetchFailed        Reason = "fetch_failed"
	ReasonNotReady           Reason = "not_ready"
	ReasonNotReadyAfterFix   Reason = "not_ready_after_fix"
	ReasonConflictUnresolved Reason = "conflict_unresolved"
	ReasonNoOpinions         Reason = "no_opinions"
	ReasonNoConsensus        Reason = "no_consensus"
	ReasonDryRun             Reason = "dry_run"
	ReasonMergeFailed        Reason = "merge_failed"
	ReasonCanceled           Reason = "canceled"
	ReasonApproved           Reason = "approved"
)

// Report is the result of processing one PR.
type Report struct {
	Number        int                `json:"number"`
	Title         string             `json:"title"`
	Outcome       Outcome            `json:"outcome"`
	Reason        Reason             `json:"reason"`
	Error         string             `json:"error,omitempty"`
	Readiness     readiness.Verdict  `json:"readiness"`
	Resolutions   []conflict.Attempt `json:"resolutions,omitempty"`
	Opinions      []opinion.Opinion  `json:"opinions,omitempty"`
	Consensus     *consensus.Result  `json:"consensus,omitempty"`
	MergeAttempts []merge.Attempt    `json:"merge_attempts,omitempty"`
	MergeStrategy merge.Strategy     `json:"merge_strategy,omitempty"`
	Stats         models.RunStats    `json:"stats"`

	Err error `json:"-"`
}

// Config holds the pipeline options.
type Config struct {
	RequiredApprovals int
	// ConflictStrategy overrides the classifier's recommendation unless auto.
	ConflictStrategy conflict.Strategy
	AutoFix          bool
	FixCommands      []string
	// MergeStrategy forces the first merge strategy; empty means auto.
	MergeStrategy  merge.Strategy
	ReviewTimeout  time.Duration
	ResolveTimeout time.Duration
	// RecheckDelay gives the host time to recompute mergeability after a push.
	RecheckDelay time.Duration
	BatchDelay   time.Duration
	MaxDiffBytes int
	DryRun       bool
	Repo         string
}

// DefaultConfig returns the defaults of every option.
func DefaultConfig() Config {
	return Config{
		RequiredApprovals: consensus.DefaultRequiredApprovals,
		ConflictStrategy:  conflict.StrategyAuto,
		ReviewTimeout:     45 * time.Second,
		ResolveTimeout:    30 * time.Second,
		RecheckDelay:      5 * time.Second,
		BatchDelay:        3 * time.Second,
		MaxDiffBytes:      60_000,
	}
}

// Deps are the collaborators of a Controller. Workspace, Runner,
// Regenerator, History and Logger are optional.
type Deps struct {
	Host        Host
	Workspace   Workspace
	Reviewers   []llm.Provider
	Resolvers   []llm.Provider
	Runner      shell.Runner
	Regenerator conflict.Regenerator
	History     History
	Logger      *slog.Logger
	// OnReport is called after each PR finishes.
	OnReport func(Report)
}

// Controller sequences the pipeline for one run.
type Controller struct {
	cfg      Config
	deps     Deps
	stats    *RunStatistics
	resolver *conflict.Resolver
	merger   *merge.Orchestrator
	logger   *slog.Logger
}

// New creates a Controller.
func New(cfg Config, deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Resolvers == nil {
		deps.Resolvers = deps.Reviewers
	}
	c := &Controller{
		cfg:    cfg,
		deps:   deps,
		stats:  &RunStatistics{},
		merger: merge.NewOrchestrator(deps.Host, logger),
		logger: logger,
	}
	if deps.Workspace != nil {
		c.resolver = conflict.NewResolver(deps.Workspace, deps.Regenerator, logger)
	}
	return c
}

// Stats returns the run statistics.
func (c *Controller) Stats() *RunStatistics { return c.stats }

// ProcessPR runs the full pipeline for one PR. It never panics on provider
// or host failures; every failure becomes the report's outcome.
func (c *Controller) ProcessPR(ctx context.Context, number int) Report {
	rep := c.processPR(ctx, number)
	if rep.Err != nil {
		rep.Error = rep.Err.Error()
	}
	rep.Stats = c.stats.Snapshot()
	c.logger.Info("PR processed", "pr", number, "outcome", rep.Outcome, "reason", rep.Reason)
	return rep
}

func (c *Controller) finish(rep Report, outcome Outcome, reason Reason, err error, count func(s *models.RunStats)) Report {
	rep.Outcome, rep.Reason, rep.Err = outcome, reason, err
	if count != nil {
		c.stats.update(count)
	}
	return rep
}

func countFailed(s *models.RunStats)   { s.Failed++ }
func countRejected(s *models.RunStats) { s.Rejected++ }
func countMerged(s *models.RunStats)   { s.Merged++ }

func (c *Controller) processPR(ctx context.Context, number int) Report {
	rep := Report{Number: number}
	log := c.logger.With("pr", number)
	c.stats.update(func(s *models.RunStats) { s.TotalPRs++ })

	if err := ctx.Err(); err != nil {
		return c.finish(rep, OutcomeFailed, ReasonCanceled, err, countFailed)
	}

	pr, err := c.deps.Host.FetchPR(ctx, number)
	if err != nil {
		log.Warn("fetch PR failed", "error", err)
		return c.finish(rep, OutcomeFailed, ReasonFetchFailed, err, countFailed)
	}
	rep.Title = pr.Title
	c.stats.update(func(s *models.RunStats) { s.Analyzed++ })

	rep.Readiness = readiness.Evaluate(pr.Metadata())
	if !rep.Readiness.Ready {
		if !c.cfg.AutoFix || !fixable(rep.Readiness) {
			return c.finish(rep, OutcomeBlocked, ReasonNotReady,
				&NotReadyError{Failing: rep.Readiness.Failing()}, countFailed)
		}

		log.Info("not ready, attempting auto-fix", "failing", rep.Readiness.Failing())
		resolutions, err := c.autoFix(ctx, pr, rep.Readiness)
		rep.Resolutions = resolutions
		if err != nil {
			if ctx.Err() != nil {
				return c.finish(rep, OutcomeFailed, ReasonCanceled, err, countFailed)
			}
			return c.finish(rep, OutcomeBlocked, ReasonConflictUnresolved, err, countFailed)
		}

		if c.cfg.RecheckDelay > 0 && !c.cfg.DryRun {
			select {
			case <-time.After(c.cfg.RecheckDelay):
			case <-ctx.Done():
				return c.finish(rep, OutcomeFailed, ReasonCanceled, ctx.Err(), countFailed)
			}
		}
		updated, err := c.deps.Host.FetchPR(ctx, number)
		if err != nil {
			return c.finish(rep, OutcomeFailed, ReasonFetchFailed, err, countFailed)
		}
		pr = updated
		rep.Readiness = readiness.Evaluate(pr.Metadata())
		if !rep.Readiness.Ready {
			return c.finish(rep, OutcomeBlocked, ReasonNotReadyAfterFix,
				&NotReadyError{Failing: rep.Readiness.Failing()}, countFailed)
		}
	}

	opinions, res, err := c.review(ctx, pr)
	rep.Opinions, rep.Consensus = opinions, res
	if err != nil {
		if ctx.Err() != nil {
			return c.finish(rep, OutcomeFailed, ReasonCanceled, err, countFailed)
		}
		return c.finish(rep, OutcomeFailed, ReasonNoOpinions, err, countFailed)
	}

	if !c.cfg.DryRun {
		if err := c.deps.Host.PostComment(ctx, number, BuildConsensusComment(opinions, res)); err != nil {
			log.Warn("post review comment failed", "error", err)
		}
	}

	if !res.Approved {
		log.Info(res.Summary())
		return c.finish(rep, OutcomeBlocked, ReasonNoConsensus, nil, countRejected)
	}
	c.stats.update(func(s *models.RunStats) { s.Approved++ })

	if c.cfg.DryRun {
		return c.finish(rep, OutcomeBlocked, ReasonDryRun, nil, nil)
	}

	if err := c.deps.Host.SubmitReview(ctx, number, BuildApprovalBody(res)); err != nil {
		log.Warn("submit approval failed", "error", err)
	}

	attempts, err := c.merger.Run(ctx, number, pr.CommitCount, c.cfg.MergeStrategy)
	rep.MergeAttempts = attempts
	if err != nil {
		return c.finish(rep, OutcomeFailed, ReasonMergeFailed, err, countFailed)
	}
	rep.MergeStrategy = attempts[len(attempts)-1].StrategyTried
	return c.finish(rep, OutcomeMerged, ReasonMerged, nil, countMerged)
}

// Review fetches a PR, collects the reviewers' opinions and posts the
// consensus comment without gating or merging. Outcome is left empty; Reason
// is approved or no_consensus on success.
func (c *Controller) Review(ctx context.Context, number int) Report {
	rep := Report{Number: number}
	c.stats.update(func(s *models.RunStats) { s.TotalPRs++ })

	pr, err := c.deps.Host.FetchPR(ctx, number)
	if err != nil {
		rep = c.finish(rep, OutcomeFailed, ReasonFetchFailed, err, countFailed)
	} else {
		rep = c.reviewOnly(ctx, rep, pr)
	}
	if rep.Err != nil {
		rep.Error = rep.Err.Error()
	}
	rep.Stats = c.stats.Snapshot()
	return rep
}

func (c *Controller) reviewOnly(ctx context.Context, rep Report, pr *git.PullRequest) Report {
	rep.Title = pr.Title
	rep.Readiness = readiness.Evaluate(pr.Metadata())
	c.stats.update(func(s *models.RunStats) { s.Analyzed++ })

	opinions, res, err := c.review(ctx, pr)
	rep.Opinions, rep.Consensus = opinions, res
	if err != nil {
		return c.finish(rep, OutcomeFailed, ReasonNoOpinions, err, countFailed)
	}
	if !c.cfg.DryRun {
		if err := c.deps.Host.PostComment(ctx, pr.Number, BuildConsensusComment(opinions, res)); err != nil {
			c.logger.Warn("post review comment failed", "pr", pr.Number, "error", err)
		}
	}
	if !res.Approved {
		return c.finish(rep, "", ReasonNoConsensus, nil, countRejected)
	}
	return c.finish(rep, "", ReasonApproved, nil, func(s *models.RunStats) { s.Approved++ })
}

// fixable reports whether auto-fix can change the verdict. Closed and
// draft PRs are left alone.
func fixable(v readiness.Verdict) bool {
	return v.IsOpen && v.IsNotDraft
}

// review fans the review prompt out and aggregates the opinions of every
// provider that answered. All opinions are returned, ERROR ones included.
func (c *Controller) review(ctx context.Context, pr *git.PullRequest) ([]opinion.Opinion, *consensus.Result, error) {
	diff, err := c.deps.Host.Diff(ctx, pr.Number)
	if err != nil {
		c.logger.Warn("fetch diff failed, reviewing without it", "pr", pr.Number, "error", err)
		diff = ""
	}
	prompt := BuildReviewPrompt(pr, diff, c.cfg.MaxDiffBytes)

	results := llm.FanOut(ctx, c.deps.Reviewers, prompt, c.cfg.ReviewTimeout)

	var all, valid []opinion.Opinion
	for _, r := range results {
		if r.Canceled {
			continue
		}
		op := opinion.Parse(r.Provider, r.Text, r.Err)
		if r.Err != nil {
			c.logger.Warn("reviewer failed", "pr", pr.Number, "provider", r.Provider, "error", r.Err)
		}
		all = append(all, op)
		if !op.IsError() {
			valid = append(valid, op)
		}
	}

	res, err := consensus.Aggregate(valid, c.cfg.RequiredApprovals)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return all, nil, ctxErr
		}
		return all, nil, err
	}
	return all, res, nil
}
