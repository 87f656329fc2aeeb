// Package shell runs external commands with a timeout and captured output.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Command describes one external process invocation.
type Command struct {
	Dir   string
	Name  string
	Args  []string
	Stdin string
}

// Script returns a Command running script through sh -c.
func Script(dir, script string) Command {
	return Command{Dir: dir, Name: "sh", Args: []string{"-c", script}}
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result holds the captured output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes commands.
type Runner interface {
	Run(ctx context.Context, c Command) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Timeout bounds each command. Zero means only the caller's context applies.
	Timeout time.Duration
	Env     []string
}

// NewExecRunner returns a runner that kills commands after timeout.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

// Run starts c and waits for it. A non-zero exit is returned as an error
// carrying the trimmed stderr, with the Result still populated.
func (r *ExecRunner) Run(ctx context.Context, c Command) (Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(r.Env) > 0 {
		cmd.Env = append(cmd.Environ(), r.Env...)
	}
	if c.Stdin != "" {
		cmd.Stdin = strings.NewReader(c.Stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, fmt.Errorf("%s: %w", c, ctxErr)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		msg := strings.TrimSpace(res.Stderr)
		if msg == "" {
			msg = exitErr.Error()
		}
		return res, fmt.Errorf("%s: %s", c, msg)
	}
	res.ExitCode = -1
	return res, fmt.Errorf("%s: %w", c, err)
}
