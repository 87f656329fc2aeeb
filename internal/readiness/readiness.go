// Package readiness decides whether a pull request is in a mergeable state.
package readiness

// Metadata is the subset of pull request state the gate inspects.
type Metadata struct {
	State            string `json:"state"`
	Mergeable        string `json:"mergeable"`
	MergeStateStatus string `json:"merge_state_status"`
	IsDraft          bool   `json:"is_draft"`
}

// Check names one readiness condition.
type Check string

const (
	CheckOpen        Check = "open"
	CheckMergeable   Check = "mergeable"
	CheckNoConflicts Check = "no_conflicts"
	CheckNotDraft    Check = "not_draft"
)

// Verdict is the outcome of Evaluate.
type Verdict struct {
	IsOpen         bool `json:"is_open"`
	IsMergeable    bool `json:"is_mergeable"`
	HasNoConflicts bool `json:"has_no_conflicts"`
	IsNotDraft     bool `json:"is_not_draft"`
	Ready          bool `json:"ready"`
}

// Evaluate computes the readiness verdict for m.
func Evaluate(m Metadata) Verdict {
	v := Verdict{
		IsOpen:         m.State == "OPEN",
		IsMergeable:    m.Mergeable == "MERGEABLE",
		HasNoConflicts: m.MergeStateStatus != "DIRTY",
		IsNotDraft:     !m.IsDraft,
	}
	v.Ready = v.IsOpen && v.IsMergeable && v.HasNoConflicts && v.IsNotDraft
	return v
}

// Failing lists the checks that did not pass, in a fixed order.
func (v Verdict) Failing() []Check {
	var out []Check
	if !v.IsOpen {
		out = append(out, CheckOpen)
	}
	if !v.IsMergeable {
		out = append(out, CheckMergeable)
	}
	if !v.HasNoConflicts {
		out = append(out, CheckNoConflicts)
	}
	if !v.IsNotDraft {
		out = append(out, CheckNotDraft)
	}
	return out
}

// HasConflicts reports whether the only way forward is resolving conflicts.
func (v Verdict) HasConflicts() bool {
	return v.IsOpen && !v.HasNoConflicts
}
