package workflow

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/mergeq/internal/consensus"
	"github.com/joescharf/mergeq/internal/git"
	"github.com/joescharf/mergeq/internal/opinion"
)

func TestBuildReviewPrompt(t *testing.T) {
	pr := &git.PullRequest{
		Number:    12,
		Title:     "Add retries",
		Author:    "octocat",
		Files:     []string{"client.go", "client_test.go"},
		Additions: 40,
		Deletions: 3,
	}

	p := BuildReviewPrompt(pr, "+retry()\n", 0)

	assert.Contains(t, p, "**PR Title**: Add retries")
	assert.Contains(t, p, "**Author**: octocat")
	assert.Contains(t, p, "No description provided")
	assert.Contains(t, p, "(2 files)")
	assert.Contains(t, p, "+40 / -3")
	assert.Contains(t, p, "```diff\n+retry()\n```")
	assert.Contains(t, p, "DECISION: [APPROVE/REQUEST_CHANGES/COMMENT]")
	assert.NotContains(t, p, "truncated")
}

func TestBuildReviewPrompt_TruncatesDiff(t *testing.T) {
	pr := &git.PullRequest{Title: "Big"}
	diff := strings.Repeat("x", 100)

	p := BuildReviewPrompt(pr, diff, 10)

	assert.Contains(t, p, "**Author**: Unknown")
	assert.Contains(t, p, "```diff\nxxxxxxxxxx\n```")
	assert.Contains(t, p, "(diff truncated)")
}

func TestBuildReviewPrompt_NoDiff(t *testing.T) {
	p := BuildReviewPrompt(&git.PullRequest{Title: "t"}, "", 100)
	assert.NotContains(t, p, "**Diff**")
}

func TestBuildResolvePrompt(t *testing.T) {
	p := BuildResolvePrompt("a.go", "<<<<<<< HEAD\nx\n=======\ny\n>>>>>>> main")

	assert.Contains(t, p, "File: a.go")
	assert.Contains(t, p, ">>>>>>> main\n```")
	assert.True(t, strings.HasSuffix(p, "Provide the complete resolved file content:"))
}

func TestBuildConsensusComment(t *testing.T) {
	ops := []opinion.Opinion{
		opinion.Parse("claude", approveReply, nil),
		opinion.Parse("gemini", rejectReply, nil),
		opinion.Parse("codex", "", errors.New("timeout")),
	}
	res, err := consensus.Aggregate(ops[:2], 2)
	require.NoError(t, err)

	body := BuildConsensusComment(ops, res)

	assert.Contains(t, body, "CONSENSUS NOT REACHED - need 2 approvals (got 1)")
	assert.Contains(t, body, "**Approvals**: 1/2 (claude)")
	assert.Contains(t, body, "**Confidence**: 50%")
	assert.Contains(t, body, "| codex | ERROR | LOW |")
	assert.Contains(t, body, "<details><summary>CLAUDE</summary>")
	assert.Contains(t, body, "<details><summary>GEMINI</summary>")
	assert.NotContains(t, body, "<summary>CODEX</summary>")
	assert.Contains(t, body, "### Issues\n\n- Possible bug in retry loop")
	assert.True(t, strings.HasSuffix(body, "*Generated by mergeq*\n"))
}

func TestBuildConsensusComment_Approved(t *testing.T) {
	ops := []opinion.Opinion{opinion.Parse("claude", approveReply, nil)}
	res, err := consensus.Aggregate(ops, 1)
	require.NoError(t, err)

	body := BuildConsensusComment(ops, res)

	assert.Contains(t, body, "**Status**: CONSENSUS REACHED")
	assert.Equal(t, "Approved by reviewer consensus (claude)", BuildApprovalBody(res))
}
