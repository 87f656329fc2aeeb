// Package merge merges a pull request, falling back through merge methods
// until one is accepted.
package merge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Strategy is a pull request merge method.
type Strategy string

const (
	Squash Strategy = "SQUASH"
	Merge  Strategy = "MERGE"
	Rebase Strategy = "REBASE"
)

// Flag returns the gh pr merge flag for s.
func (s Strategy) Flag() string {
	return "--" + strings.ToLower(string(s))
}

// ParseStrategy maps user input to a Strategy. "auto" and "" return ok with
// an empty strategy, meaning AutoSelect decides.
func ParseStrategy(s string) (Strategy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return "", true
	case "squash":
		return Squash, true
	case "merge":
		return Merge, true
	case "rebase":
		return Rebase, true
	}
	return "", false
}

// SquashAbove is the commit count above which history is squashed.
const SquashAbove = 10

// AutoSelect picks a first strategy from the number of commits in the PR.
// Single commits and long histories are squashed, everything else merged.
func AutoSelect(commitCount int) Strategy {
	if commitCount <= 1 || commitCount > SquashAbove {
		return Squash
	}
	return Merge
}

// Plan returns first followed by the remaining strategies in the fixed
// fallback order, without repeating first.
func Plan(first Strategy) []Strategy {
	plan := []Strategy{first}
	for _, s := range []Strategy{Squash, Merge, Rebase} {
		if s != first {
			plan = append(plan, s)
		}
	}
	return plan
}

// Merger performs a single merge call against the hosting service.
type Merger interface {
	Merge(ctx context.Context, number int, strategy Strategy) error
}

// Attempt records one merge try.
type Attempt struct {
	StrategyTried Strategy `json:"strategy_tried"`
	Succeeded     bool     `json:"succeeded"`
	ErrorMessage  string   `json:"error_message,omitempty"`
}

// ErrExhausted is matched by errors.Is when every strategy failed.
var ErrExhausted = errors.New("all merge strategies failed")

// ExhaustedError wraps the last failure after every strategy was tried.
type ExhaustedError struct {
	Attempts []Attempt
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %v", ErrExhausted, len(e.Attempts), e.Last)
}

func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted }

func (e *ExhaustedError) Unwrap() error { return e.Last }

// Orchestrator runs the merge fallback chain.
type Orchestrator struct {
	merger Merger
	logger *slog.Logger
}

// NewOrchestrator returns an orchestrator calling m.
func NewOrchestrator(m Merger, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{merger: m, logger: logger}
}

// Run tries each strategy of the plan in order and stops at the first
// success. An empty override lets AutoSelect choose the first strategy.
func (o *Orchestrator) Run(ctx context.Context, number, commitCount int, override Strategy) ([]Attempt, error) {
	first := override
	if first == "" {
		first = AutoSelect(commitCount)
	}

	var attempts []Attempt
	var last error
	for _, s := range Plan(first) {
		if err := ctx.Err(); err != nil {
			return attempts, fmt.Errorf("merge PR #%d: %w", number, err)
		}
		err := o.merger.Merge(ctx, number, s)
		if err == nil {
			attempts = append(attempts, Attempt{StrategyTried: s, Succeeded: true})
			o.logger.Info("merged", "pr", number, "strategy", s)
			return attempts, nil
		}
		o.logger.Warn("merge attempt failed", "pr", number, "strategy", s, "error", err)
		attempts = append(attempts, Attempt{StrategyTried: s, ErrorMessage: err.Error()})
		last = err
	}
	return attempts, &ExhaustedError{Attempts: attempts, Last: last}
}
