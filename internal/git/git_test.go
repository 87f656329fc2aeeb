package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/mergeq/internal/conflict"
	"github.com/joescharf/mergeq/internal/shell"
)

// initTestRepo creates a git repo in dir with a user config so commits work on CI.
func initTestRepo(t *testing.T, dir string) {
	t.Helper()
	cmds := [][]string{
		{"git", "-C", dir, "init", "-b", "main"},
		{"git", "-C", dir, "config", "user.email", "test@test.com"},
		{"git", "-C", dir, "config", "user.name", "Test"},
	}
	for _, args := range cmds {
		require.NoError(t, exec.Command(args[0], args[1:]...).Run())
	}
}

func gitRun(t *testing.T, dir string, args ...string) {
	t.Helper()
	out, err := exec.Command("git", append([]string{"-C", dir}, args...)...).CombinedOutput()
	require.NoError(t, err, string(out))
}

// conflictedRepo builds a repo where merging main into feature conflicts on
// app.txt and cleanly adds extra.txt.
func conflictedRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	initTestRepo(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.txt"), []byte("base\n"), 0o644))
	gitRun(t, dir, "add", ".")
	gitRun(t, dir, "commit", "-m", "initial")

	gitRun(t, dir, "checkout", "-b", "feature")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.txt"), []byte("feature\n"), 0o644))
	gitRun(t, dir, "commit", "-am", "feature change")

	gitRun(t, dir, "checkout", "main")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.txt"), []byte("main\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extra.txt"), []byte("extra\n"), 0o644))
	gitRun(t, dir, "add", ".")
	gitRun(t, dir, "commit", "-m", "main change")

	gitRun(t, dir, "checkout", "feature")
	// Expected to stop on the conflict.
	_ = exec.Command("git", "-C", dir, "merge", "main", "--no-edit").Run()
	return dir
}

func TestRepo_ConflictWorkflow(t *testing.T) {
	dir := conflictedRepo(t)
	ctx := context.Background()
	r := NewRepo(dir, shell.NewExecRunner(10*time.Second))

	paths, err := r.ListConflictedPaths(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"app.txt"}, paths)

	content, err := r.ReadArtifact(ctx, "app.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, conflict.CountMarkers(content))

	t.Run("checkout theirs takes the base version", func(t *testing.T) {
		require.NoError(t, r.CheckoutSide(ctx, "app.txt", conflict.SideTheirs))
		got, err := r.ReadArtifact(ctx, "app.txt")
		require.NoError(t, err)
		assert.Equal(t, "main\n", got)
	})

	t.Run("stage written content clears the conflict", func(t *testing.T) {
		require.NoError(t, r.StageForCommit(ctx, "app.txt", []byte("resolved\n")))
		paths, err := r.ListConflictedPaths(ctx)
		require.NoError(t, err)
		assert.Empty(t, paths)
	})

	t.Run("commit completes the merge", func(t *testing.T) {
		require.NoError(t, r.Commit(ctx, "chore: resolve merge conflicts"))
		branch, err := r.CurrentBranch(ctx)
		require.NoError(t, err)
		assert.Equal(t, "feature", branch)
		got, err := r.ReadArtifact(ctx, "extra.txt")
		require.NoError(t, err)
		assert.Equal(t, "extra\n", got)
	})
}

func TestRepo_CheckoutOurs(t *testing.T) {
	dir := conflictedRepo(t)
	ctx := context.Background()
	r := NewRepo(dir, shell.NewExecRunner(10*time.Second))

	require.NoError(t, r.CheckoutSide(ctx, "app.txt", conflict.SideOurs))
	require.NoError(t, r.StageForCommit(ctx, "app.txt", nil))
	got, err := r.ReadArtifact(ctx, "app.txt")
	require.NoError(t, err)
	assert.Equal(t, "feature\n", got)
}

func TestRepo_CleanupAbortsMerge(t *testing.T) {
	dir := conflictedRepo(t)
	ctx := context.Background()
	r := NewRepo(dir, shell.NewExecRunner(10*time.Second))

	require.NoError(t, r.Cleanup(ctx))
	paths, err := r.ListConflictedPaths(ctx)
	require.NoError(t, err)
	assert.Empty(t, paths)
	got, err := r.ReadArtifact(ctx, "app.txt")
	require.NoError(t, err)
	assert.Equal(t, "feature\n", got)
}

func TestRepo_ReadArtifactMissing(t *testing.T) {
	r := NewRepo(t.TempDir(), shell.NewExecRunner(time.Second))
	_, err := r.ReadArtifact(context.Background(), "nope.txt")
	assert.Error(t, err)
}

func TestRepo_RemoteRepo(t *testing.T) {
	dir := t.TempDir()
	initTestRepo(t, dir)
	r := NewRepo(dir, shell.NewExecRunner(10*time.Second))
	ctx := context.Background()

	_, err := r.RemoteRepo(ctx)
	assert.Error(t, err)

	gitRun(t, dir, "remote", "add", "origin", "git@github.com:joescharf/mergeq.git")
	slug, err := r.RemoteRepo(ctx)
	require.NoError(t, err)
	assert.Equal(t, "joescharf/mergeq", slug)
}

func TestParseNameOnly(t *testing.T) {
	assert.Equal(t, []string{"a.go", "web/package-lock.json"}, ParseNameOnly("a.go\n\nweb/package-lock.json\n"))
	assert.Nil(t, ParseNameOnly(""))
}

func TestExtractOwnerRepo_SSH(t *testing.T) {
	owner, repo, err := ExtractOwnerRepo("git@github.com:acme/widgets.git")
	assert.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", repo)
}

func TestExtractOwnerRepo_HTTPS(t *testing.T) {
	owner, repo, err := ExtractOwnerRepo("https://github.com/acme/widgets.git")
	assert.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", repo)
}

func TestExtractOwnerRepo_HTTPSNoGit(t *testing.T) {
	owner, repo, err := ExtractOwnerRepo("https://github.com/acme/widgets")
	assert.NoError(t, err)
	assert.Equal(t, "acme", owner)
	assert.Equal(t, "widgets", repo)
}

func TestExtractOwnerRepo_Invalid(t *testing.T) {
	_, _, err := ExtractOwnerRepo("not-a-url")
	assert.Error(t, err)
}
