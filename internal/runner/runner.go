// Package runner provides a uniform interface for invoking external tools.
//
// Every external dependency of the deployment pipeline (terraform, helm,
// kubectl, the cloud identity CLIs) is driven through a Runner so that
// handlers and executors can be tested against a fake without spawning
// processes.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Cmd describes a single external tool invocation.
type Cmd struct {
	// Name is the binary name, resolved via PATH.
	Name string

	// Args are the command arguments, already split.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env holds additional KEY=VALUE entries appended to the parent
	// environment for this invocation only.
	Env []string

	// Stdin is piped to the child verbatim when non-empty.
	Stdin string

	// Timeout bounds the invocation. Zero means no per-command deadline
	// beyond the caller's context.
	Timeout time.Duration

	// Stream mirrors child output to the terminal in real time while it
	// is also buffered for structured extraction.
	Stream bool
}

// Result holds the captured outcome of an invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success reports whether the child exited zero.
func (r Result) Success() bool { return r.ExitCode == 0 }

// Combined returns stdout followed by stderr, trimmed.
func (r Result) Combined() string {
	return strings.TrimSpace(r.Stdout + r.Stderr)
}

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, cmd Cmd) (Result, error)
}

// Func adapts an ordinary function to the Runner interface. Used by tests
// to script tool behavior.
type Func func(ctx context.Context, cmd Cmd) (Result, error)

// Run implements Runner.
func (f Func) Run(ctx context.Context, cmd Cmd) (Result, error) { return f(ctx, cmd) }

// ExecRunner runs commands via os/exec.
type ExecRunner struct {
	// Out and Err receive streamed child output when Cmd.Stream is set.
	Out io.Writer
	Err io.Writer
}

// New returns an ExecRunner streaming to the process's own stdout/stderr.
func New() *ExecRunner {
	return &ExecRunner{Out: os.Stdout, Err: os.Stderr}
}

// Run executes the command, buffering output and enforcing the timeout.
//
// A non-zero exit is not an error at this layer: the Result carries the
// exit code and callers classify it. The returned error is non-nil only
// when the command could not be run at all (missing binary, cancelled or
// deadline-exceeded context).
func (e *ExecRunner) Run(ctx context.Context, c Cmd) (Result, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	// #nosec G204 - command names and arguments come from typed builders,
	// not raw user input.
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.WaitDelay = 10 * time.Second

	if c.Stdin != "" {
		cmd.Stdin = strings.NewReader(c.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if c.Stream {
		out, errw := e.Out, e.Err
		if out == nil {
			out = os.Stdout
		}
		if errw == nil {
			errw = os.Stderr
		}
		cmd.Stdout = io.MultiWriter(&stdout, out)
		cmd.Stderr = io.MultiWriter(&stderr, errw)
	}

	err := cmd.Run()
	res := Result{
		ExitCode: -1,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		// Interrupt or timeout takes precedence over the exit error the
		// kill produces, so callers see the cancellation cause.
		if ctx.Err() != nil {
			return res, fmt.Errorf("%s %s: %w", c.Name, firstArg(c.Args), ctx.Err())
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return res, nil
		}
		return res, fmt.Errorf("failed to run %s: %w", c.Name, err)
	}

	return res, nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
