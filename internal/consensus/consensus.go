// Package consensus combines independent reviewer opinions into a single
// approve/reject decision.
package consensus

import (
	"errors"
	"fmt"

	"github.com/joescharf/mergeq/internal/opinion"
	"github.com/joescharf/mergeq/internal/similarity"
)

// DefaultRequiredApprovals is used when the caller passes a non-positive threshold.
const DefaultRequiredApprovals = 2

const (
	// DuplicateThreshold is the similarity at or above which two items are
	// considered the same finding.
	DuplicateThreshold = 0.8
	// CommonThreshold is the similarity above which an item counts as raised
	// by another reviewer too.
	CommonThreshold = 0.7
)

// ErrNoOpinions is returned when there is nothing to aggregate, typically
// because every provider failed.
var ErrNoOpinions = errors.New("no opinions available")

// Result is the aggregate of a set of opinions.
type Result struct {
	ApprovedCount         int      `json:"approved_count"`
	TotalOpinions         int      `json:"total_opinions"`
	RequiredApprovals     int      `json:"required_approvals"`
	Approved              bool     `json:"approved"`
	Confidence            float64  `json:"confidence"`
	CommonIssues          []string `json:"common_issues"`
	CommonSuggestions     []string `json:"common_suggestions"`
	AllIssuesDeduped      []string `json:"all_issues"`
	AllSuggestionsDeduped []string `json:"all_suggestions"`
	Approvers             []string `json:"approvers"`
}

// Agreed reports whether the reviewers independently raised at least one
// common issue or suggestion.
func (r *Result) Agreed() bool {
	return len(r.CommonIssues) > 0 || len(r.CommonSuggestions) > 0
}

// Summary renders a one-line consensus status.
func (r *Result) Summary() string {
	if r.Approved {
		return fmt.Sprintf("consensus reached: %d/%d approvals (required %d)",
			r.ApprovedCount, r.TotalOpinions, r.RequiredApprovals)
	}
	return fmt.Sprintf("consensus not reached: %d/%d approvals (required %d)",
		r.ApprovedCount, r.TotalOpinions, r.RequiredApprovals)
}

// Aggregate combines opinions against the required approval threshold. Every
// opinion passed in counts toward TotalOpinions; callers that want to ignore
// failed providers must filter ERROR opinions first.
func Aggregate(opinions []opinion.Opinion, requiredApprovals int) (*Result, error) {
	if len(opinions) == 0 {
		return nil, ErrNoOpinions
	}
	if requiredApprovals <= 0 {
		requiredApprovals = DefaultRequiredApprovals
	}

	r := &Result{
		TotalOpinions:     len(opinions),
		RequiredApprovals: requiredApprovals,
		Approvers:         []string{},
	}

	var issues, suggestions []string
	issueLists := make([][]string, len(opinions))
	suggestionLists := make([][]string, len(opinions))
	for i, op := range opinions {
		if op.Decision == opinion.DecisionApprove {
			r.ApprovedCount++
			r.Approvers = append(r.Approvers, op.SourceID)
		}
		issues = append(issues, op.Issues...)
		suggestions = append(suggestions, op.Suggestions...)
		issueLists[i] = op.Issues
		suggestionLists[i] = op.Suggestions
	}

	r.Approved = r.ApprovedCount >= requiredApprovals
	r.Confidence = float64(r.ApprovedCount) / float64(r.TotalOpinions)
	r.AllIssuesDeduped = Dedupe(issues)
	r.AllSuggestionsDeduped = Dedupe(suggestions)
	r.CommonIssues = Common(issueLists)
	r.CommonSuggestions = Common(suggestionLists)
	return r, nil
}

// Dedupe keeps items in input order, dropping any item whose similarity to an
// already kept item reaches DuplicateThreshold.
func Dedupe(items []string) []string {
	kept := []string{}
	for _, item := range items {
		if !matchesAny(kept, item, DuplicateThreshold, true) {
			kept = append(kept, item)
		}
	}
	return kept
}

// Common returns the items of the first list that have a close match
// (similarity above CommonThreshold) in every other list, deduplicated.
// With a single list every item is common; with no lists the result is empty.
func Common(lists [][]string) []string {
	if len(lists) == 0 {
		return []string{}
	}

	var common []string
	for _, item := range lists[0] {
		shared := true
		for _, other := range lists[1:] {
			if !matchesAny(other, item, CommonThreshold, false) {
				shared = false
				break
			}
		}
		if shared {
			common = append(common, item)
		}
	}
	return Dedupe(common)
}

// matchesAny reports whether item is similar to any candidate. inclusive
// selects >= instead of > for the threshold comparison.
func matchesAny(candidates []string, item string, threshold float64, inclusive bool) bool {
	for _, c := range candidates {
		s := similarity.Score(c, item)
		if s > threshold || (inclusive && s == threshold) {
			return true
		}
	}
	return false
}
