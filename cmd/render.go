package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/joescharf/mergeq/internal/models"
	"github.com/joescharf/mergeq/internal/output"
	"github.com/joescharf/mergeq/internal/workflow"
)

func printJSON(v any) error {
	enc := json.NewEncoder(ui.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderReport prints one PR's pipeline result.
func renderReport(rep workflow.Report) {
	fmt.Fprintln(ui.Out)
	title := rep.Title
	if title == "" {
		title = "(unknown)"
	}
	fmt.Fprintf(ui.Out, "%s #%d %s\n", output.Cyan("PR"), rep.Number, title)

	if len(rep.Resolutions) > 0 {
		table := ui.Table([]string{"File", "Requested", "Used", "Result", "Diff"})
		for _, a := range rep.Resolutions {
			result := output.Green("resolved")
			if !a.Succeeded {
				result = output.Red("unresolved")
			}
			if a.RejectedReason != "" {
				result += " (" + string(a.RejectedReason) + ")"
			}
			_ = table.Append([]string{
				a.Path,
				string(a.StrategyRequested),
				string(a.StrategyUsed),
				result,
				fmt.Sprintf("+%d -%d", a.DiffStats.Inserted, a.DiffStats.Deleted),
			})
		}
		_ = table.Render()
	}

	if len(rep.Opinions) > 0 {
		table := ui.Table([]string{"Reviewer", "Decision", "Confidence", "Issues", "Suggestions"})
		for _, op := range rep.Opinions {
			_ = table.Append([]string{
				op.SourceID,
				output.DecisionColor(string(op.Decision)),
				string(op.Confidence),
				fmt.Sprintf("%d", len(op.Issues)),
				fmt.Sprintf("%d", len(op.Suggestions)),
			})
		}
		_ = table.Render()
	}
	if rep.Consensus != nil {
		fmt.Fprintf(ui.Out, "  %s (confidence %s)\n", rep.Consensus.Summary(), output.ConfidenceColor(rep.Consensus.Confidence))
		if rep.Consensus.Agreed() {
			for _, issue := range rep.Consensus.CommonIssues {
				fmt.Fprintf(ui.Out, "  %s %s\n", output.Yellow("common:"), issue)
			}
		}
	}

	for _, m := range rep.MergeAttempts {
		if m.Succeeded {
			ui.VerboseLog("merge %s succeeded", m.StrategyTried)
		} else {
			ui.VerboseLog("merge %s failed: %s", m.StrategyTried, m.ErrorMessage)
		}
	}

	outcome := string(rep.Outcome)
	if outcome == "" {
		outcome = string(rep.Reason)
	}
	line := fmt.Sprintf("  %s  %s", output.OutcomeColor(outcome), rep.Reason)
	if rep.MergeStrategy != "" {
		line += fmt.Sprintf(" via %s", strings.ToLower(string(rep.MergeStrategy)))
	}
	if rep.Error != "" {
		line += "  " + output.Red(rep.Error)
	}
	fmt.Fprintln(ui.Out, line)
}

// renderStats prints the run counters.
func renderStats(s models.RunStats) {
	fmt.Fprintln(ui.Out)
	table := ui.Table([]string{"PRs", "Analyzed", "Approved", "Rejected", "Merged", "Failed", "Conflicts"})
	_ = table.Append([]string{
		fmt.Sprintf("%d", s.TotalPRs),
		fmt.Sprintf("%d", s.Analyzed),
		fmt.Sprintf("%d", s.Approved),
		fmt.Sprintf("%d", s.Rejected),
		fmt.Sprintf("%d", s.Merged),
		fmt.Sprintf("%d", s.Failed),
		fmt.Sprintf("%d/%d", s.ResolvedConflicts, s.TotalConflicts),
	})
	_ = table.Render()
	if len(s.Strategies) > 0 {
		fmt.Fprintf(ui.Out, "  strategies: %s\n", formatStrategies(s.Strategies))
	}
}

// formatStrategies renders strategy counts sorted by name.
func formatStrategies(m map[string]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, m[k])
	}
	return strings.Join(parts, " ")
}
