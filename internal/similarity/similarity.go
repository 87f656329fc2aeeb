// Package similarity scores how alike two short texts are, used to merge
// near-duplicate review findings.
package similarity

import "strings"

// Score returns the normalized edit-distance similarity of a and b in [0,1].
// Comparison is case-insensitive; 1.0 means the strings are identical after
// case folding. Two empty strings score 1.0, one empty string scores 0.0.
func Score(a, b string) float64 {
	ra := []rune(strings.ToLower(a))
	rb := []rune(strings.ToLower(b))

	if len(ra) == 0 && len(rb) == 0 {
		return 1
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	maxLen := max(len(ra), len(rb))
	return 1 - float64(Distance(ra, rb))/float64(maxLen)
}

// Distance is the Levenshtein distance between a and b with unit costs for
// insertion, deletion and substitution.
func Distance(a, b []rune) int {
	// Two rolling rows are enough; prev holds row i-1 of the DP matrix.
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
