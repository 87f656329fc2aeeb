// Package lockfile regenerates dependency lockfiles after a conflicted merge.
package lockfile

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/joescharf/mergeq/internal/shell"
)

// commands maps a lockfile base name (lower case) to the command that
// rebuilds it from its manifest.
var commands = map[string][]string{
	"package-lock.json": {"npm", "install", "--package-lock-only"},
	"yarn.lock":         {"yarn", "install", "--mode", "update-lockfile"},
	"pnpm-lock.yaml":    {"pnpm", "install", "--lockfile-only"},
	"go.sum":            {"go", "mod", "tidy"},
	"cargo.lock":        {"cargo", "generate-lockfile"},
	"poetry.lock":       {"poetry", "lock", "--no-update"},
	"gemfile.lock":      {"bundle", "lock"},
	"composer.lock":     {"composer", "update", "--lock"},
}

// CommandFor returns the regeneration command for path, or false if the
// file is not a known lockfile.
func CommandFor(path string) ([]string, bool) {
	c, ok := commands[strings.ToLower(filepath.Base(path))]
	return c, ok
}

// Regenerator runs lockfile regeneration commands in a repository checkout.
type Regenerator struct {
	root   string
	runner shell.Runner
}

// NewRegenerator returns a Regenerator operating on the checkout at root.
func NewRegenerator(root string, runner shell.Runner) *Regenerator {
	return &Regenerator{root: root, runner: runner}
}

// Regenerate rebuilds the lockfile at path, relative to the checkout root.
// The command runs in the lockfile's directory so nested packages work.
func (g *Regenerator) Regenerate(ctx context.Context, path string) error {
	argv, ok := CommandFor(path)
	if !ok {
		return fmt.Errorf("no regeneration command for %s", path)
	}
	dir := filepath.Join(g.root, filepath.Dir(path))
	if _, err := g.runner.Run(ctx, shell.Command{Dir: dir, Name: argv[0], Args: argv[1:]}); err != nil {
		return fmt.Errorf("regenerate %s: %w", path, err)
	}
	return nil
}
