package models

import "time"

// RunStats are the counters of one batch run.
type RunStats struct {
	TotalPRs          int            `json:"total_prs"`
	Analyzed          int            `json:"analyzed"`
	Approved          int            `json:"approved"`
	Rejected          int            `json:"rejected"`
	Merged            int            `json:"merged"`
	Failed            int            `json:"failed"`
	TotalConflicts    int            `json:"total_conflicts"`
	ResolvedConflicts int            `json:"resolved_conflicts"`
	FailedConflicts   int            `json:"failed_conflicts"`
	Strategies        map[string]int `json:"strategies,omitempty"`
}

// Run records one invocation of the pipeline over one or more PRs.
type Run struct {
	ID         string
	Repo       string
	DryRun     bool
	Stats      RunStats
	StartedAt  time.Time
	FinishedAt *time.Time
}
