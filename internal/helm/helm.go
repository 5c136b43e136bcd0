// Package helm drives the helm CLI for chart repository management and
// release lifecycle.
package helm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lrproduhub/n8nctl/internal/errdefs"
	"github.com/lrproduhub/n8nctl/internal/runner"
)

const (
	repoTimeout    = 5 * time.Minute
	releaseTimeout = 20 * time.Minute
	queryTimeout   = 2 * time.Minute
)

// Client runs helm commands.
type Client struct {
	run runner.Runner
}

// New returns a helm Client.
func New(run runner.Runner) *Client {
	return &Client{run: run}
}

// RepoAdd registers a chart repository. Re-adding the same name/url pair is
// a no-op thanks to --force-update.
func (c *Client) RepoAdd(ctx context.Context, name, url string) error {
	return c.exec(ctx, repoTimeout, false,
		"repo", "add", name, url, "--force-update")
}

// RepoUpdate refreshes the chart index.
func (c *Client) RepoUpdate(ctx context.Context) error {
	return c.exec(ctx, repoTimeout, false, "repo", "update")
}

// InstallOpts configures an upgrade --install.
type InstallOpts struct {
	Release   string
	Chart     string
	Namespace string
	Version   string

	CreateNamespace bool

	// ValuesFiles are applied in order; later files win.
	ValuesFiles []string

	// Set entries are key=value pairs applied after the values files.
	Set []string

	// Wait blocks until the release's resources are ready.
	Wait    bool
	Timeout time.Duration
}

// UpgradeInstall installs the release or upgrades it in place.
func (c *Client) UpgradeInstall(ctx context.Context, opts InstallOpts) error {
	args := []string{"upgrade", "--install", opts.Release, opts.Chart,
		"--namespace", opts.Namespace}
	if opts.CreateNamespace {
		args = append(args, "--create-namespace")
	}
	if opts.Version != "" {
		args = append(args, "--version", opts.Version)
	}
	for _, f := range opts.ValuesFiles {
		args = append(args, "--values", f)
	}
	for _, s := range opts.Set {
		args = append(args, "--set", s)
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = releaseTimeout
	}
	if opts.Wait {
		args = append(args, "--wait", "--timeout", timeout.String())
	}
	return c.exec(ctx, timeout+time.Minute, true, args...)
}

// UpgradeReuseValues applies only the given overrides on top of the
// release's existing values. Used by the post-deploy TLS and auth upgrade
// so it never disturbs settings from the initial install.
func (c *Client) UpgradeReuseValues(ctx context.Context, release, chart, namespace string, set []string) error {
	args := []string{"upgrade", release, chart,
		"--namespace", namespace, "--reuse-values"}
	for _, s := range set {
		args = append(args, "--set", s)
	}
	return c.exec(ctx, releaseTimeout, true, args...)
}

// Uninstall removes a release. A release that is already gone is not an
// error; teardown must be idempotent.
func (c *Client) Uninstall(ctx context.Context, release, namespace string) error {
	res, err := c.run.Run(ctx, runner.Cmd{
		Name:    "helm",
		Args:    []string{"uninstall", release, "--namespace", namespace},
		Timeout: releaseTimeout,
		Stream:  true,
	})
	if err != nil {
		return errdefs.ExternalTool("helm uninstall", "", err)
	}
	if !res.Success() {
		if strings.Contains(res.Stderr, "not found") {
			return nil
		}
		return errdefs.ExternalTool("helm uninstall", "",
			fmt.Errorf("helm uninstall exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr)))
	}
	return nil
}

// ReleaseExists reports whether the release is present in the namespace.
func (c *Client) ReleaseExists(ctx context.Context, release, namespace string) (bool, error) {
	res, err := c.run.Run(ctx, runner.Cmd{
		Name:    "helm",
		Args:    []string{"status", release, "--namespace", namespace},
		Timeout: queryTimeout,
	})
	if err != nil {
		return false, errdefs.ExternalTool("helm status", "", err)
	}
	if res.Success() {
		return true, nil
	}
	if strings.Contains(res.Stderr, "not found") {
		return false, nil
	}
	return false, errdefs.ExternalTool("helm status", "",
		fmt.Errorf("helm status exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr)))
}

func (c *Client) exec(ctx context.Context, timeout time.Duration, stream bool, args ...string) error {
	op := "helm " + args[0]
	res, err := c.run.Run(ctx, runner.Cmd{
		Name:    "helm",
		Args:    args,
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
		return errdefs.ExternalTool(op, "",
			fmt.Errorf("%s exited %d: %s", op, res.ExitCode, strings.TrimSpace(res.Stderr)))
	}
	return nil
}
