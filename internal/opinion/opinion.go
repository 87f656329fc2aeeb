// Package opinion turns one AI reviewer's free-text answer into a structured
// review opinion. Parsing is best effort: malformed or missing markers fall back
// to documented defaults instead of failing.
package opinion

import (
	"regexp"
	"strings"
)

// Decision is the verdict a reviewer gave.
type Decision string

const (
	DecisionApprove        Decision = "APPROVE"
	DecisionRequestChanges Decision = "REQUEST_CHANGES"
	DecisionComment        Decision = "COMMENT"
	DecisionError          Decision = "ERROR"
)

// Confidence is the reviewer's self-reported certainty.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// Opinion is a single reviewer's parsed verdict on a change.
type Opinion struct {
	SourceID    string     `json:"source_id"`
	Decision    Decision   `json:"decision"`
	Confidence  Confidence `json:"confidence"`
	Issues      []string   `json:"issues"`
	Suggestions []string   `json:"suggestions"`
	RawText     string     `json:"raw_text,omitempty"`
}

// IsError reports whether the opinion stands for a failed provider call.
func (o Opinion) IsError() bool {
	return o.Decision == DecisionError
}

var (
	decisionField   = regexp.MustCompile(`(?i)\bDECISION\s*:\s*\**\s*\[?\s*(APPROVE|REQUEST[_ ]CHANGES|COMMENT)\b`)
	leadingDecision = regexp.MustCompile(`(?i)^[\s#*>\-]*(APPROVE|REQUEST[_ ]CHANGES|COMMENT)\b`)
	confidenceField = regexp.MustCompile(`(?i)\bCONFIDENCE\s*:\s*\**\s*\[?\s*(HIGH|MEDIUM|LOW)\b`)

	issuePattern      = regexp.MustCompile(`(?i)issue|problem|error|bug|vulnerab`)
	suggestionPattern = regexp.MustCompile(`(?i)suggest|recommend|consider|improve`)
	markerLine        = regexp.MustCompile(`(?i)^[\s#*>\-]*(DECISION|CONFIDENCE)\s*:`)
	headingLine       = regexp.MustCompile(`^[#*\s]*[A-Z][A-Z _/]*:[*\s]*$`)
)

// Parse builds an Opinion from a provider's raw response. A non-nil callErr or
// a blank response yields an ERROR opinion with LOW confidence. When no
// decision marker is present the decision defaults to COMMENT, which never
// counts as an approval.
func Parse(sourceID, text string, callErr error) Opinion {
	if callErr != nil || strings.TrimSpace(text) == "" {
		return Opinion{
			SourceID:    sourceID,
			Decision:    DecisionError,
			Confidence:  ConfidenceLow,
			Issues:      []string{},
			Suggestions: []string{},
			RawText:     text,
		}
	}

	op := Opinion{
		SourceID:    sourceID,
		Decision:    parseDecision(text),
		Confidence:  parseConfidence(text),
		Issues:      []string{},
		Suggestions: []string{},
		RawText:     text,
	}

	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(line)
		// Template headings like "RECOMMENDATION:" carry no content of their own.
		if line == "" || markerLine.MatchString(line) || headingLine.MatchString(line) {
			continue
		}
		if issuePattern.MatchString(line) {
			op.Issues = append(op.Issues, line)
		}
		if suggestionPattern.MatchString(line) {
			op.Suggestions = append(op.Suggestions, line)
		}
	}
	return op
}

func parseDecision(text string) Decision {
	if m := decisionField.FindStringSubmatch(text); m != nil {
		return normalizeDecision(m[1])
	}
	for line := range strings.SplitSeq(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if m := leadingDecision.FindStringSubmatch(line); m != nil {
			return normalizeDecision(m[1])
		}
		break
	}
	return DecisionComment
}

func normalizeDecision(s string) Decision {
	s = strings.ToUpper(strings.ReplaceAll(s, " ", "_"))
	switch Decision(s) {
	case DecisionApprove, DecisionRequestChanges:
		return Decision(s)
	default:
		return DecisionComment
	}
}

func parseConfidence(text string) Confidence {
	if m := confidenceField.FindStringSubmatch(text); m != nil {
		return Confidence(strings.ToUpper(m[1]))
	}
	return ConfidenceMedium
}
