package conflict

import (
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffStats counts the characters a resolution inserted and deleted relative
// to the conflicted input.
type DiffStats struct {
	Inserted int `json:"inserted"`
	Deleted  int `json:"deleted"`
}

// ComputeDiffStats diffs the conflicted input against the resolved content.
func ComputeDiffStats(before, after string) DiffStats {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)

	var s DiffStats
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			s.Inserted += utf8.RuneCountInString(d.Text)
		case diffmatchpatch.DiffDelete:
			s.Deleted += utf8.RuneCountInString(d.Text)
		}
	}
	return s
}
