// Package git drives a local checkout with the git CLI and a GitHub
// repository with the gh CLI.
package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joescharf/mergeq/internal/conflict"
	"github.com/joescharf/mergeq/internal/shell"
)

// Repo is a working copy that pull requests are checked out into.
type Repo struct {
	dir    string
	runner shell.Runner

	origBranch string
	prBranch   string
}

// NewRepo returns a Repo for the checkout at dir.
func NewRepo(dir string, runner shell.Runner) *Repo {
	return &Repo{dir: dir, runner: runner}
}

// Dir returns the checkout root.
func (r *Repo) Dir() string { return r.dir }

func (r *Repo) run(ctx context.Context, name string, args ...string) (string, error) {
	res, err := r.runner.Run(ctx, shell.Command{Dir: r.dir, Name: name, Args: args})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

func (r *Repo) gitCmd(ctx context.Context, args ...string) (string, error) {
	return r.run(ctx, "git", args...)
}

// CurrentBranch returns the checked out branch name.
func (r *Repo) CurrentBranch(ctx context.Context) (string, error) {
	return r.gitCmd(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// RemoteURL returns the origin URL, or "" when there is no origin.
func (r *Repo) RemoteURL(ctx context.Context) string {
	out, err := r.gitCmd(ctx, "remote", "get-url", "origin")
	if err != nil {
		return ""
	}
	return out
}

// RemoteRepo returns the owner/name slug of the origin remote.
func (r *Repo) RemoteRepo(ctx context.Context) (string, error) {
	url := r.RemoteURL(ctx)
	if url == "" {
		return "", fmt.Errorf("no origin remote in %s", r.dir)
	}
	owner, repo, err := ExtractOwnerRepo(url)
	if err != nil {
		return "", err
	}
	return owner + "/" + repo, nil
}

// CheckoutPR fetches origin and checks out the head branch of a pull
// request. The previously checked out branch is remembered for Cleanup.
func (r *Repo) CheckoutPR(ctx context.Context, number int) error {
	if r.origBranch == "" {
		if b, err := r.CurrentBranch(ctx); err == nil && b != "HEAD" {
			r.origBranch = b
		}
	}
	if _, err := r.gitCmd(ctx, "fetch", "origin", "--prune"); err != nil {
		return err
	}
	if _, err := r.run(ctx, "gh", "pr", "checkout", fmt.Sprint(number)); err != nil {
		return err
	}
	b, err := r.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	r.prBranch = b
	return nil
}

// MergeBase merges origin/<base> into the checked out branch. A merge that
// stops on conflicts is not an error; conflicted reports whether it did.
func (r *Repo) MergeBase(ctx context.Context, base string) (conflicted bool, err error) {
	_, mergeErr := r.gitCmd(ctx, "merge", "origin/"+base, "--no-edit")
	if mergeErr == nil {
		return false, nil
	}
	paths, err := r.ListConflictedPaths(ctx)
	if err != nil {
		return false, err
	}
	if len(paths) == 0 {
		return false, mergeErr
	}
	return true, nil
}

// ListConflictedPaths returns the unmerged paths of the current merge.
func (r *Repo) ListConflictedPaths(ctx context.Context) ([]string, error) {
	out, err := r.gitCmd(ctx, "diff", "--name-only", "--diff-filter=U")
	if err != nil {
		return nil, err
	}
	return ParseNameOnly(out), nil
}

// ReadArtifact returns the current contents of path, markers included.
func (r *Repo) ReadArtifact(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(filepath.Join(r.dir, path))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

// CheckoutSide replaces path with one side of the merge. During a merge of
// the base branch into a PR branch, ours is the PR and theirs is the base.
func (r *Repo) CheckoutSide(ctx context.Context, path string, side conflict.Side) error {
	_, err := r.gitCmd(ctx, "checkout", "--"+string(side), "--", path)
	return err
}

// StageForCommit writes content to path when non-nil and stages it.
func (r *Repo) StageForCommit(ctx context.Context, path string, content []byte) error {
	if content != nil {
		if err := os.WriteFile(filepath.Join(r.dir, path), content, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	_, err := r.gitCmd(ctx, "add", "--", path)
	return err
}

// IsDirty reports whether the working tree or index has changes.
func (r *Repo) IsDirty(ctx context.Context) (bool, error) {
	out, err := r.gitCmd(ctx, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return out != "", nil
}

// StageAll stages every change in the working tree.
func (r *Repo) StageAll(ctx context.Context) error {
	_, err := r.gitCmd(ctx, "add", "-A")
	return err
}

// Commit records the staged merge resolution.
func (r *Repo) Commit(ctx context.Context, message string) error {
	if _, err := r.gitCmd(ctx, "commit", "--no-edit", "-m", message); err != nil {
		if _, err2 := r.gitCmd(ctx, "commit", "--allow-empty", "-m", message); err2 != nil {
			return err
		}
	}
	return nil
}

// CommitAndPush commits the staged resolution and pushes the PR branch.
func (r *Repo) CommitAndPush(ctx context.Context, message string) error {
	dirty, err := r.IsDirty(ctx)
	if err != nil {
		return err
	}
	if dirty {
		if err := r.Commit(ctx, message); err != nil {
			return err
		}
	}
	branch := r.prBranch
	if branch == "" {
		b, err := r.CurrentBranch(ctx)
		if err != nil {
			return err
		}
		branch = b
	}
	_, err := r.gitCmd(ctx, "push", "origin", branch)
	return err
}

// Cleanup aborts an unfinished merge and returns to the branch that was
// checked out before CheckoutPR.
func (r *Repo) Cleanup(ctx context.Context) error {
	_, _ = r.gitCmd(ctx, "merge", "--abort")
	if r.origBranch == "" || r.origBranch == r.prBranch {
		return nil
	}
	_, err := r.gitCmd(ctx, "checkout", r.origBranch)
	r.prBranch = ""
	return err
}

// ParseNameOnly splits `git diff --name-only` output into paths.
func ParseNameOnly(out string) []string {
	var paths []string
	for line := range strings.SplitSeq(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paths = append(paths, line)
		}
	}
	return paths
}

// ExtractOwnerRepo parses a GitHub remote URL and returns owner/repo.
func ExtractOwnerRepo(remoteURL string) (owner, repo string, err error) {
	// Handle SSH: git@github.com:owner/repo.git
	if strings.HasPrefix(remoteURL, "git@") {
		parts := strings.SplitN(remoteURL, ":", 2)
		if len(parts) != 2 {
			return "", "", fmt.Errorf("cannot parse SSH remote: %s", remoteURL)
		}
		path := strings.TrimSuffix(parts[1], ".git")
		segments := strings.SplitN(path, "/", 2)
		if len(segments) != 2 {
			return "", "", fmt.Errorf("cannot parse owner/repo from: %s", remoteURL)
		}
		return segments[0], segments[1], nil
	}

	// Handle HTTPS: https://github.com/owner/repo.git
	trimmed := strings.TrimSuffix(remoteURL, ".git")
	trimmed = strings.TrimPrefix(trimmed, "https://github.com/")
	trimmed = strings.TrimPrefix(trimmed, "http://github.com/")
	segments := strings.SplitN(trimmed, "/", 2)
	if len(segments) != 2 || segments[0] == "" || segments[1] == "" {
		return "", "", fmt.Errorf("cannot parse owner/repo from: %s", remoteURL)
	}
	return segments[0], segments[1], nil
}
