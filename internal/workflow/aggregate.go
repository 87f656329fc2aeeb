package workflow

import (
	"fmt"

	"github.com/joescharf/mergeq/internal/consensus"
	"github.com/joescharf/mergeq/internal/opinion"
)

// ReviewText is one reviewer's raw answer, as submitted by an external caller.
type ReviewText struct {
	Source string `json:"source"`
	Text   string `json:"text"`
}

// AggregateTexts parses raw reviewer answers and computes the consensus over
// the ones that are not ERROR. Unnamed reviewers are numbered from 1. All
// opinions are returned.
func AggregateTexts(reviews []ReviewText, requiredApprovals int) ([]opinion.Opinion, *consensus.Result, error) {
	all := make([]opinion.Opinion, 0, len(reviews))
	var valid []opinion.Opinion
	for i, r := range reviews {
		source := r.Source
		if source == "" {
			source = fmt.Sprintf("reviewer-%d", i+1)
		}
		op := opinion.Parse(source, r.Text, nil)
		all = append(all, op)
		if !op.IsError() {
			valid = append(valid, op)
		}
	}

	res, err := consensus.Aggregate(valid, requiredApprovals)
	if err != nil {
		return all, nil, err
	}
	return all, res, nil
}
