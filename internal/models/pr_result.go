package models

import "time"

// PROutcome is the terminal state of one PR within a run.
type PROutcome string

const (
	OutcomeMerged  PROutcome = "merged"
	OutcomeBlocked PROutcome = "blocked"
	OutcomeFailed  PROutcome = "failed"
)

// PRResult is the persisted report for one PR processed during a run.
type PRResult struct {
	ID            string
	RunID         string
	Number        int
	Title         string
	Outcome       PROutcome
	Reason        string
	Approvals     int
	TotalOpinions int
	Confidence    float64
	MergeStrategy string
	Conflicts     int
	CreatedAt     time.Time
}
