package workflow

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/joescharf/mergeq/internal/models"
)

// BatchReport is the result of processing several PRs in one run.
type BatchReport struct {
	RunID   string          `json:"run_id,omitempty"`
	Reports []Report        `json:"reports"`
	Skipped []int           `json:"skipped,omitempty"`
	Stats   models.RunStats `json:"stats"`
}

// ProcessOpen lists the open PRs, skips drafts and processes the rest.
func (c *Controller) ProcessOpen(ctx context.Context) (*BatchReport, error) {
	prs, err := c.deps.Host.ListOpenPRs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list open PRs: %w", err)
	}

	var numbers, drafts []int
	for _, pr := range prs {
		if pr.IsDraft {
			drafts = append(drafts, pr.Number)
			continue
		}
		numbers = append(numbers, pr.Number)
	}
	c.logger.Info("open PRs", "total", len(prs), "drafts", len(drafts))

	br := c.ProcessAll(ctx, numbers)
	br.Skipped = drafts
	return br, nil
}

// ProcessAll processes PRs sequentially, pacing them by the batch delay.
// One PR's failure never stops the batch; cancellation does.
func (c *Controller) ProcessAll(ctx context.Context, numbers []int) *BatchReport {
	br := &BatchReport{}
	runID := c.startRun(ctx)
	br.RunID = runID

	limit := rate.Inf
	if c.cfg.BatchDelay > 0 {
		limit = rate.Every(c.cfg.BatchDelay)
	}
	limiter := rate.NewLimiter(limit, 1)

	for _, n := range numbers {
		if err := limiter.Wait(ctx); err != nil {
			c.logger.Warn("batch interrupted", "error", err)
			break
		}
		rep := c.ProcessPR(ctx, n)
		br.Reports = append(br.Reports, rep)
		c.record(ctx, runID, rep)
		if c.deps.OnReport != nil {
			c.deps.OnReport(rep)
		}
		if ctx.Err() != nil {
			break
		}
	}

	br.Stats = c.stats.Snapshot()
	c.finishRun(ctx, runID, br.Stats)
	return br
}

func (c *Controller) startRun(ctx context.Context) string {
	if c.deps.History == nil {
		return ""
	}
	run := &models.Run{Repo: c.cfg.Repo, DryRun: c.cfg.DryRun}
	if err := c.deps.History.CreateRun(ctx, run); err != nil {
		c.logger.Warn("create run record failed", "error", err)
		return ""
	}
	return run.ID
}

func (c *Controller) finishRun(ctx context.Context, runID string, stats models.RunStats) {
	if c.deps.History == nil || runID == "" {
		return
	}
	if err := c.deps.History.FinishRun(context.WithoutCancel(ctx), runID, stats); err != nil {
		c.logger.Warn("finish run record failed", "run", runID, "error", err)
	}
}

func (c *Controller) record(ctx context.Context, runID string, rep Report) {
	if c.deps.History == nil || runID == "" {
		return
	}
	if err := c.deps.History.RecordPRResult(context.WithoutCancel(ctx), ResultRecord(runID, rep)); err != nil {
		c.logger.Warn("record PR result failed", "pr", rep.Number, "error", err)
	}
}

// ResultRecord converts a report into its persisted form.
func ResultRecord(runID string, rep Report) *models.PRResult {
	r := &models.PRResult{
		RunID:         runID,
		Number:        rep.Number,
		Title:         rep.Title,
		Outcome:       rep.Outcome,
		Reason:        string(rep.Reason),
		MergeStrategy: string(rep.MergeStrategy),
		Conflicts:     len(rep.Resolutions),
	}
	if rep.Error != "" {
		r.Reason += ": " + rep.Error
	}
	if rep.Consensus != nil {
		r.Approvals = rep.Consensus.ApprovedCount
		r.TotalOpinions = rep.Consensus.TotalOpinions
		r.Confidence = rep.Consensus.Confidence
	}
	return r
}
