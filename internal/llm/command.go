package llm

import (
	"context"
	"strings"

	"github.com/joescharf/mergeq/internal/shell"
)

// Command is a Provider that pipes the prompt into a local CLI agent, for
// example `claude -p` or `codex exec -`, and reads the reply from stdout.
type Command struct {
	name   string
	script string
	dir    string
	runner shell.Runner
}

// NewCommand returns a provider running script through sh in dir.
func NewCommand(name, script, dir string, runner shell.Runner) *Command {
	return &Command{name: name, script: script, dir: dir, runner: runner}
}

func (c *Command) Name() string { return c.name }

func (c *Command) Complete(ctx context.Context, prompt string) (string, error) {
	cmd := shell.Script(c.dir, c.script)
	cmd.Stdin = prompt
	res, err := c.runner.Run(ctx, cmd)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(res.Stdout) == "" {
		return "", ErrEmptyResponse
	}
	return res.Stdout, nil
}
