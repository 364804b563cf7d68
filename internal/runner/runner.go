// Package runner executes generated scripts and captures their output.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Command is one interpreter invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
}

// Result captures everything needed to judge a run.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Succeeded reports whether the process exited cleanly.
func (r Result) Succeeded() bool {
	return r.ExitCode == 0
}

// Runner runs commands. The exec implementation shells out; tests substitute
// scripted results.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ExecRunner runs commands with os/exec. A non-zero exit lands in the
// Result, not the error; errors are reserved for commands that never ran or
// were cut short by the context.
type ExecRunner struct {
	timeout time.Duration
}

// NewExecRunner returns a runner that kills commands after timeoutSeconds.
// Zero means no limit.
func NewExecRunner(timeoutSeconds int) *ExecRunner {
	return &ExecRunner{timeout: time.Duration(timeoutSeconds) * time.Second}
}

func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	proc := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	proc.Dir = cmd.Dir
	proc.Stdout = &stdout
	proc.Stderr = &stderr

	err := proc.Run()
	result := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("running %s: %w", cmd.Name, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("running %s: %w", cmd.Name, err)
	}
	return result, nil
}
