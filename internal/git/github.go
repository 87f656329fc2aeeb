package git

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/joescharf/mergeq/internal/merge"
	"github.com/joescharf/mergeq/internal/readiness"
	"github.com/joescharf/mergeq/internal/shell"
)

// PullRequest is the pull request state the pipeline works from.
type PullRequest struct {
	Number           int      `json:"number"`
	Title            string   `json:"title"`
	Body             string   `json:"body"`
	Author           string   `json:"author"`
	State            string   `json:"state"`
	Mergeable        string   `json:"mergeable"`
	MergeStateStatus string   `json:"mergeStateStatus"`
	IsDraft          bool     `json:"isDraft"`
	HeadRefName      string   `json:"headRefName"`
	BaseRefName      string   `json:"baseRefName"`
	URL              string   `json:"url"`
	CommitCount      int      `json:"commitCount"`
	Additions        int      `json:"additions"`
	Deletions        int      `json:"deletions"`
	Files            []string `json:"files"`
}

// Metadata returns the readiness inputs of the pull request.
func (p *PullRequest) Metadata() readiness.Metadata {
	return readiness.Metadata{
		State:            p.State,
		Mergeable:        p.Mergeable,
		MergeStateStatus: p.MergeStateStatus,
		IsDraft:          p.IsDraft,
	}
}

const prFields = "number,title,body,author,state,mergeable,mergeStateStatus,isDraft,headRefName,baseRefName,url,commits,additions,deletions,files"

type pullRequestRaw struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	Author struct {
		Login string `json:"login"`
	} `json:"author"`
	State            string `json:"state"`
	Mergeable        string `json:"mergeable"`
	MergeStateStatus string `json:"mergeStateStatus"`
	IsDraft          bool   `json:"isDraft"`
	HeadRefName      string `json:"headRefName"`
	BaseRefName      string `json:"baseRefName"`
	URL              string `json:"url"`
	Commits          []struct {
		OID string `json:"oid"`
	} `json:"commits"`
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Files     []struct {
		Path string `json:"path"`
	} `json:"files"`
}

func (raw pullRequestRaw) toPullRequest() PullRequest {
	pr := PullRequest{
		Number:           raw.Number,
		Title:            raw.Title,
		Body:             raw.Body,
		Author:           raw.Author.Login,
		State:            raw.State,
		Mergeable:        raw.Mergeable,
		MergeStateStatus: raw.MergeStateStatus,
		IsDraft:          raw.IsDraft,
		HeadRefName:      raw.HeadRefName,
		BaseRefName:      raw.BaseRefName,
		URL:              raw.URL,
		CommitCount:      len(raw.Commits),
		Additions:        raw.Additions,
		Deletions:        raw.Deletions,
	}
	for _, f := range raw.Files {
		pr.Files = append(pr.Files, f.Path)
	}
	return pr
}

// ParsePullRequest decodes `gh pr view --json` output.
func ParsePullRequest(data []byte) (*PullRequest, error) {
	var raw pullRequestRaw
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse PR: %w", err)
	}
	pr := raw.toPullRequest()
	return &pr, nil
}

// ParsePullRequestList decodes `gh pr list --json` output.
func ParsePullRequestList(data []byte) ([]PullRequest, error) {
	var raws []pullRequestRaw
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("parse PRs: %w", err)
	}
	prs := make([]PullRequest, 0, len(raws))
	for _, raw := range raws {
		prs = append(prs, raw.toPullRequest())
	}
	return prs, nil
}

// GitHub implements the pull request host on top of the gh CLI.
type GitHub struct {
	repo         string
	dir          string
	runner       shell.Runner
	deleteBranch bool
}

// NewGitHub returns a host for repo ("owner/name"). An empty repo lets gh
// infer it from the checkout at dir.
func NewGitHub(repo, dir string, runner shell.Runner, deleteBranch bool) *GitHub {
	return &GitHub{repo: repo, dir: dir, runner: runner, deleteBranch: deleteBranch}
}

func (g *GitHub) ghCmd(ctx context.Context, stdin string, args ...string) (string, error) {
	if g.repo != "" {
		args = append(args, "--repo", g.repo)
	}
	res, err := g.runner.Run(ctx, shell.Command{Dir: g.dir, Name: "gh", Args: args, Stdin: stdin})
	if err != nil {
		return "", err
	}
	return res.Stdout, nil
}

// FetchPR loads one pull request.
func (g *GitHub) FetchPR(ctx context.Context, number int) (*PullRequest, error) {
	out, err := g.ghCmd(ctx, "", "pr", "view", fmt.Sprint(number), "--json", prFields)
	if err != nil {
		return nil, err
	}
	return ParsePullRequest([]byte(out))
}

// ListOpenPRs lists open pull requests, oldest first as gh returns them.
func (g *GitHub) ListOpenPRs(ctx context.Context) ([]PullRequest, error) {
	out, err := g.ghCmd(ctx, "", "pr", "list", "--state", "open", "--limit", "100",
		"--json", "number,title,state,isDraft,headRefName,baseRefName,url,author")
	if err != nil {
		return nil, err
	}
	return ParsePullRequestList([]byte(out))
}

// Diff returns the unified diff of a pull request.
func (g *GitHub) Diff(ctx context.Context, number int) (string, error) {
	return g.ghCmd(ctx, "", "pr", "diff", fmt.Sprint(number))
}

// PostComment adds a comment to a pull request.
func (g *GitHub) PostComment(ctx context.Context, number int, body string) error {
	_, err := g.ghCmd(ctx, body, "pr", "comment", fmt.Sprint(number), "--body-file", "-")
	return err
}

// SubmitReview submits an approving review.
func (g *GitHub) SubmitReview(ctx context.Context, number int, body string) error {
	_, err := g.ghCmd(ctx, body, "pr", "review", fmt.Sprint(number), "--approve", "--body-file", "-")
	return err
}

// Merge merges a pull request with the given strategy.
func (g *GitHub) Merge(ctx context.Context, number int, strategy merge.Strategy) error {
	args := []string{"pr", "merge", fmt.Sprint(number), strategy.Flag()}
	if g.deleteBranch {
		args = append(args, "--delete-branch")
	}
	_, err := g.ghCmd(ctx, "", args...)
	return err
}
