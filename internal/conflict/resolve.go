package conflict

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"
)

// Side selects one version of a conflicted file.
type Side string

const (
	SideOurs   Side = "ours"
	SideTheirs Side = "theirs"
)

// Workspace is the part of a working copy the resolver writes to.
type Workspace interface {
	CheckoutSide(ctx context.Context, path string, side Side) error
	// StageForCommit writes content to path and stages it. A nil content
	// stages the file as it currently is on disk.
	StageForCommit(ctx context.Context, path string, content []byte) error
}

// Regenerator rebuilds a lockfile from its manifest.
type Regenerator interface {
	Regenerate(ctx context.Context, path string) error
}

// Reason explains why an AI candidate was rejected.
type Reason string

const (
	ReasonMarkersRemain Reason = "MARKERS_REMAIN"
	ReasonTooShort      Reason = "TOO_SHORT"
	ReasonNoCandidate   Reason = "NO_CANDIDATE"
)

// MinLengthRatio is the smallest accepted candidate length relative to the
// conflicted input.
const MinLengthRatio = 0.3

// Candidate is one proposed resolution of a conflicted file.
type Candidate struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

// Attempt records how one conflicted file was handled.
type Attempt struct {
	Path              string    `json:"path"`
	StrategyRequested Strategy  `json:"strategy_requested"`
	StrategyUsed      Strategy  `json:"strategy_used"`
	Succeeded         bool      `json:"succeeded"`
	RejectedReason    Reason    `json:"rejected_reason,omitempty"`
	Candidate         string    `json:"candidate,omitempty"`
	DiffStats         DiffStats `json:"diff_stats"`
	Error             string    `json:"error,omitempty"`
}

// StripFences removes a surrounding markdown code fence from model output.
// Text without a fence is returned unchanged.
func StripFences(text string) string {
	body, _ := stripFence(text)
	return body
}

func stripFence(text string) (string, bool) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return text, false
	}
	lines := strings.SplitN(trimmed, "\n", 2)
	if len(lines) < 2 {
		return "", true
	}
	body := lines[1]
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimRight(body, " \t\r\n"), true
}

// Validate checks a candidate against the conflicted original and returns
// the rejection reason, or "" when the candidate is acceptable.
func Validate(original, candidate string) Reason {
	if strings.TrimSpace(candidate) == "" {
		return ReasonNoCandidate
	}
	if HasMarkers(candidate) {
		return ReasonMarkersRemain
	}
	if float64(utf8.RuneCountInString(candidate)) < MinLengthRatio*float64(utf8.RuneCountInString(original)) {
		return ReasonTooShort
	}
	return ""
}

// SelectCandidate picks the longest acceptable candidate after stripping
// code fences. When none is acceptable it reports NO_CANDIDATE if every
// candidate was empty, else the rejection reason of the longest one.
func SelectCandidate(original string, candidates []Candidate) (Candidate, Reason, bool) {
	var usable []Candidate
	for _, c := range candidates {
		content, fenced := stripFence(c.Content)
		if strings.TrimSpace(content) == "" {
			continue
		}
		// The fence swallows the final newline; keep the original's.
		if fenced && strings.HasSuffix(original, "\n") {
			content += "\n"
		}
		usable = append(usable, Candidate{Source: c.Source, Content: content})
	}
	if len(usable) == 0 {
		return Candidate{}, ReasonNoCandidate, false
	}

	sort.SliceStable(usable, func(i, j int) bool {
		return utf8.RuneCountInString(usable[i].Content) > utf8.RuneCountInString(usable[j].Content)
	})
	for _, c := range usable {
		if Validate(original, c.Content) == "" {
			return c, "", true
		}
	}
	return Candidate{}, Validate(original, usable[0].Content), false
}

// Resolver applies a resolution strategy to conflicted files in a workspace.
type Resolver struct {
	ws     Workspace
	regen  Regenerator
	logger *slog.Logger
}

// NewResolver returns a resolver writing to ws. regen may be nil, in which
// case lockfiles are taken from the incoming side without regeneration.
func NewResolver(ws Workspace, regen Regenerator, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Resolver{ws: ws, regen: regen, logger: logger}
}

// Effective returns the strategy that Resolve will run for p. A non-auto
// override wins over the profile's recommendation.
func Effective(p Profile, override Strategy) Strategy {
	if override != "" && override != StrategyAuto {
		return override
	}
	return p.RecommendedStrategy
}

// Resolve runs the effective strategy for one conflicted file. content is the
// conflicted input; candidates are only consulted for the AI strategy.
func (r *Resolver) Resolve(ctx context.Context, p Profile, content string, candidates []Candidate, override Strategy) Attempt {
	strategy := Effective(p, override)
	a := Attempt{Path: p.Path, StrategyRequested: strategy, StrategyUsed: strategy}
	log := r.logger.With("path", p.Path, "strategy", strategy)

	if err := ctx.Err(); err != nil {
		a.Error = err.Error()
		return a
	}

	switch strategy {
	case StrategyAI:
		chosen, reason, ok := SelectCandidate(content, candidates)
		if ok {
			a.Candidate = chosen.Source
			if err := r.ws.StageForCommit(ctx, p.Path, []byte(chosen.Content)); err != nil {
				a.Error = err.Error()
				log.Warn("stage AI resolution failed", "error", err)
				return a
			}
			a.DiffStats = ComputeDiffStats(content, chosen.Content)
			a.Succeeded = true
			log.Debug("AI resolution staged", "candidate", chosen.Source)
			return a
		}
		log.Info("AI candidates rejected, falling back to theirs", "reason", reason)
		a.RejectedReason = reason
		a.StrategyUsed = StrategyTheirs
		r.takeSide(ctx, &a, SideTheirs)

	case StrategyTheirs:
		r.takeSide(ctx, &a, SideTheirs)

	case StrategyOurs:
		r.takeSide(ctx, &a, SideOurs)

	case StrategyRegenerate:
		if err := r.ws.CheckoutSide(ctx, p.Path, SideTheirs); err != nil {
			a.Error = err.Error()
			return a
		}
		if r.regen != nil {
			if err := r.regen.Regenerate(ctx, p.Path); err != nil {
				log.Warn("lockfile regeneration failed, keeping incoming version", "error", err)
			}
		}
		if err := r.ws.StageForCommit(ctx, p.Path, nil); err != nil {
			a.Error = err.Error()
			return a
		}
		a.Succeeded = true

	case StrategyManual:
		log.Info("manual resolution required")

	default:
		a.Error = "unknown strategy " + string(strategy)
	}
	return a
}

func (r *Resolver) takeSide(ctx context.Context, a *Attempt, side Side) {
	if err := r.ws.CheckoutSide(ctx, a.Path, side); err != nil {
		a.Error = err.Error()
		return
	}
	if err := r.ws.StageForCommit(ctx, a.Path, nil); err != nil {
		a.Error = err.Error()
		return
	}
	a.Succeeded = true
}
