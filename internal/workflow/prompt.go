package workflow

import (
	"fmt"
	"strings"

	"github.com/joescharf/mergeq/internal/consensus"
	"github.com/joescharf/mergeq/internal/git"
	"github.com/joescharf/mergeq/internal/opinion"
)

// BuildReviewPrompt asks a reviewer for a structured verdict on a PR. The
// diff is cut at maxDiff bytes when maxDiff is positive.
func BuildReviewPrompt(pr *git.PullRequest, diff string, maxDiff int) string {
	var b strings.Builder

	b.WriteString("You are an expert code reviewer. Perform a comprehensive review of this pull request:\n\n")
	fmt.Fprintf(&b, "**PR Title**: %s\n", pr.Title)
	author := pr.Author
	if author == "" {
		author = "Unknown"
	}
	fmt.Fprintf(&b, "**Author**: %s\n", author)
	body := strings.TrimSpace(pr.Body)
	if body == "" {
		body = "No description provided"
	}
	fmt.Fprintf(&b, "**Description**: %s\n\n", body)

	fmt.Fprintf(&b, "**Changed Files** (%d files):\n", len(pr.Files))
	for _, f := range pr.Files {
		fmt.Fprintf(&b, "  %s\n", f)
	}
	fmt.Fprintf(&b, "\n**Total Changes**: +%d / -%d\n\n", pr.Additions, pr.Deletions)

	if diff != "" {
		truncated := false
		if maxDiff > 0 && len(diff) > maxDiff {
			diff = diff[:maxDiff]
			truncated = true
		}
		b.WriteString("**Diff**:\n```diff\n")
		b.WriteString(diff)
		if !strings.HasSuffix(diff, "\n") {
			b.WriteString("\n")
		}
		b.WriteString("```\n")
		if truncated {
			b.WriteString("(diff truncated)\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Please review this PR and provide your assessment in this EXACT format:\n\n")
	b.WriteString("DECISION: [APPROVE/REQUEST_CHANGES/COMMENT]\n")
	b.WriteString("CONFIDENCE: [HIGH/MEDIUM/LOW]\n\n")
	b.WriteString("SUMMARY:\n[One paragraph summary of the changes]\n\n")
	b.WriteString("STRENGTHS:\n- [List positive aspects]\n\n")
	b.WriteString("CONCERNS:\n- [List any issues or concerns]\n\n")
	b.WriteString("SECURITY:\n[Any security considerations]\n\n")
	b.WriteString("RECOMMENDATION:\n[Your final recommendation]\n\n")
	b.WriteString("Be thorough but concise. Focus on:\n")
	b.WriteString("1. Code quality and best practices\n")
	b.WriteString("2. Security vulnerabilities\n")
	b.WriteString("3. Potential bugs or issues\n")
	b.WriteString("4. Architecture and design\n")
	b.WriteString("5. Testing adequacy\n")
	return b.String()
}

// BuildResolvePrompt asks a model for the complete resolved content of a
// conflicted file.
func BuildResolvePrompt(path, content string) string {
	var b strings.Builder
	b.WriteString("You are a code merge conflict resolver. Analyze this merge conflict and provide the COMPLETE resolved file content.\n\n")
	fmt.Fprintf(&b, "File: %s\n\n", path)
	b.WriteString("Rules:\n")
	b.WriteString("1. Remove ALL conflict markers (<<<<<<<, =======, >>>>>>>)\n")
	b.WriteString("2. Merge both changes intelligently where possible\n")
	b.WriteString("3. Preserve functionality from both sides\n")
	b.WriteString("4. Maintain code style and formatting\n")
	b.WriteString("5. Return ONLY the complete resolved file content\n\n")
	b.WriteString("Conflict content:\n```\n")
	b.WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```\n\nProvide the complete resolved file content:")
	return b.String()
}

// BuildConsensusComment renders the PR comment summarizing every review and
// the consensus outcome.
func BuildConsensusComment(opinions []opinion.Opinion, res *consensus.Result) string {
	var b strings.Builder

	b.WriteString("## Automated Code Review\n\n")
	if res.Approved {
		b.WriteString("**Status**: CONSENSUS REACHED\n")
	} else {
		fmt.Fprintf(&b, "**Status**: CONSENSUS NOT REACHED - need %d approvals (got %d)\n",
			res.RequiredApprovals, res.ApprovedCount)
	}
	approvers := "none"
	if len(res.Approvers) > 0 {
		approvers = strings.Join(res.Approvers, ", ")
	}
	fmt.Fprintf(&b, "**Approvals**: %d/%d (%s)\n", res.ApprovedCount, res.TotalOpinions, approvers)
	fmt.Fprintf(&b, "**Required**: %d\n", res.RequiredApprovals)
	fmt.Fprintf(&b, "**Confidence**: %.0f%%\n\n", res.Confidence*100)

	b.WriteString("| Reviewer | Decision | Confidence |\n")
	b.WriteString("|---|---|---|\n")
	for _, op := range opinions {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", op.SourceID, op.Decision, op.Confidence)
	}
	b.WriteString("\n")

	writeList(&b, "Raised by every reviewer", res.CommonIssues)
	writeList(&b, "Issues", res.AllIssuesDeduped)
	writeList(&b, "Suggestions", res.AllSuggestionsDeduped)

	var details []opinion.Opinion
	for _, op := range opinions {
		if !op.IsError() {
			details = append(details, op)
		}
	}
	if len(details) > 0 {
		b.WriteString("## Detailed Reviews\n\n")
		for _, op := range details {
			fmt.Fprintf(&b, "<details><summary>%s</summary>\n\n%s\n\n</details>\n\n",
				strings.ToUpper(op.SourceID), strings.TrimSpace(op.RawText))
		}
	}

	b.WriteString("---\n*Generated by mergeq*\n")
	return b.String()
}

// BuildApprovalBody is the body of the approving review.
func BuildApprovalBody(res *consensus.Result) string {
	return fmt.Sprintf("Approved by reviewer consensus (%s)", strings.Join(res.Approvers, ", "))
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n\n", title)
	for _, item := range items {
		item = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(item), "-*"))
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}
