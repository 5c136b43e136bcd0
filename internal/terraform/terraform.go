// Package terraform drives the terraform CLI against a provider's working
// directory.
package terraform

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lrproduhub/n8nctl/internal/errdefs"
	"github.com/lrproduhub/n8nctl/internal/runner"
)

const (
	initTimeout    = 10 * time.Minute
	planTimeout    = 15 * time.Minute
	applyTimeout   = 60 * time.Minute
	destroyTimeout = 60 * time.Minute
	outputTimeout  = 2 * time.Minute
)

// Client runs terraform in one working directory with one variable file.
type Client struct {
	run     runner.Runner
	dir     string
	varFile string
}

// New returns a Client for the given working directory. varFile may be
// empty when the directory carries its own terraform.tfvars.
func New(run runner.Runner, dir, varFile string) *Client {
	return &Client{run: run, dir: dir, varFile: varFile}
}

// Dir returns the working directory the client operates in.
func (c *Client) Dir() string {
	return c.dir
}

// Init prepares the working directory. Safe to run repeatedly.
func (c *Client) Init(ctx context.Context) error {
	return c.exec(ctx, initTimeout, true, "init", "-input=false", "-no-color")
}

// Plan previews the changes apply would make.
func (c *Client) Plan(ctx context.Context) error {
	args := []string{"plan", "-input=false", "-no-color"}
	args = c.withVarFile(args)
	return c.exec(ctx, planTimeout, true, args...)
}

// Apply provisions the infrastructure without further prompting; the
// pipeline has already confirmed with the operator.
func (c *Client) Apply(ctx context.Context) error {
	args := []string{"apply", "-auto-approve", "-input=false", "-no-color"}
	args = c.withVarFile(args)
	return c.exec(ctx, applyTimeout, true, args...)
}

// Destroy tears the infrastructure down without further prompting.
func (c *Client) Destroy(ctx context.Context) error {
	args := []string{"destroy", "-auto-approve", "-input=false", "-no-color"}
	args = c.withVarFile(args)
	return c.exec(ctx, destroyTimeout, true, args...)
}

// OutputRaw returns the string value of a single output.
func (c *Client) OutputRaw(ctx context.Context, name string) (string, error) {
	res, err := c.run.Run(ctx, runner.Cmd{
		Name:    "terraform",
		Args:    []string{"output", "-raw", name},
		Dir:     c.dir,
		Timeout: outputTimeout,
	})
	if err != nil {
		return "", errdefs.ExternalTool("terraform output", "", err)
	}
	if !res.Success() {
		return "", errdefs.ExternalTool("terraform output",
			fmt.Sprintf("output %q may not exist", name),
			fmt.Errorf("terraform output exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr)))
	}
	return strings.TrimSpace(res.Stdout), nil
}

// Output is one entry of terraform output -json.
type Output struct {
	Value     json.RawMessage `json:"value"`
	Type      json.RawMessage `json:"type"`
	Sensitive bool            `json:"sensitive"`
}

// String returns the value when it is a JSON string, or its raw form.
func (o Output) String() string {
	var s string
	if err := json.Unmarshal(o.Value, &s); err == nil {
		return s
	}
	return string(o.Value)
}

// Outputs returns all outputs of the current state.
func (c *Client) Outputs(ctx context.Context) (map[string]Output, error) {
	res, err := c.run.Run(ctx, runner.Cmd{
		Name:    "terraform",
		Args:    []string{"output", "-json"},
		Dir:     c.dir,
		Timeout: outputTimeout,
	})
	if err != nil {
		return nil, errdefs.ExternalTool("terraform output", "", err)
	}
	if !res.Success() {
		return nil, errdefs.ExternalTool("terraform output", "",
			fmt.Errorf("terraform output exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr)))
	}

	outputs := map[string]Output{}
	if err := json.Unmarshal([]byte(res.Stdout), &outputs); err != nil {
		return nil, fmt.Errorf("failed to parse terraform outputs: %w", err)
	}
	return outputs, nil
}

func (c *Client) withVarFile(args []string) []string {
	if c.varFile != "" {
		args = append(args, "-var-file="+c.varFile)
	}
	return args
}

func (c *Client) exec(ctx context.Context, timeout time.Duration, stream bool, args ...string) error {
	op := "terraform " + args[0]
	res, err := c.run.Run(ctx, runner.Cmd{
		Name:    "terraform",
		Args:    args,
		Dir:     c.dir,
		Timeout: timeout,
		Stream:  stream,
	})
	if err != nil {
		if ctx.Err() != nil {
			return errdefs.Interrupt(err)
		}
		return errdefs.ExternalTool(op, "", err)
	}
	if !res.Success() {
		return errdefs.ExternalTool(op,
			"inspect the terraform output above",
			fmt.Errorf("%s exited %d: %s", op, res.ExitCode, lastLines(res.Stderr, 5)))
	}
	return nil
}

// lastLines keeps error messages short; the full stream was already shown.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
