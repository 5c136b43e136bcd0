package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/lrproduhub/n8nctl/internal/config"
	"github.com/lrproduhub/n8nctl/internal/errdefs"
	"github.com/lrproduhub/n8nctl/internal/helm"
	"github.com/lrproduhub/n8nctl/internal/kubectl"
	"github.com/lrproduhub/n8nctl/internal/state"
	"github.com/lrproduhub/n8nctl/internal/teardown"
	"github.com/lrproduhub/n8nctl/internal/terraform"
	"github.com/lrproduhub/n8nctl/internal/ui"
)

// countdownSeconds is the abort window before destruction starts.
// Shortened in tests.
var countdownSeconds = 5

// TeardownOptions tunes a teardown run.
type TeardownOptions struct {
	// PurgeSecrets also removes the encryption key from the secret store.
	PurgeSecrets bool

	// SkipCluster skips the in-cluster cleanup stage.
	SkipCluster bool

	// Force skips the interactive confirmations and countdown. For
	// non-interactive use only.
	Force bool
}

// Teardown destroys the deployment recorded by the last run. Destruction
// is gated behind two confirmations and an abortable countdown.
func (c *Controller) Teardown(ctx context.Context, opts TeardownOptions) error {
	ui.Banner("n8nctl teardown", "destroy the deployed n8n instance")

	store := config.NewStore(c.Root)
	cfg, err := store.LoadLastRun()
	if err != nil {
		if os.IsNotExist(err) {
			return errdefs.Precondition("teardown",
				errors.New("no previous deployment found; nothing to tear down"))
		}
		return err
	}

	if err := c.gateCommonTools(ctx); err != nil {
		return err
	}
	provider, err := c.gateProvider(ctx, cfg.Provider)
	if err != nil {
		return err
	}

	ui.Summary([][2]string{
		{"Cluster", cfg.ClusterName},
		{"Provider", fmt.Sprintf("%s (%s)", cfg.Provider, cfg.Region)},
		{"Namespace", cfg.Namespace},
		{"Database", cfg.Database.Engine},
	})

	if !opts.Force {
		if err := c.confirmTeardown(ctx, cfg.ClusterName); err != nil {
			return err
		}
		if err := countdown(ctx, countdownSeconds); err != nil {
			return err
		}
	}

	secretStore, err := provider.SecretStore(ctx, cfg)
	if err != nil {
		return err
	}
	stateMgr := state.NewManager(filepath.Join(c.Root, "terraform", cfg.Provider))

	// With Force there is nobody to ask; secrets are cleaned up outright.
	var confirmSecrets func(context.Context, string) (bool, error)
	if !opts.Force {
		confirmSecrets = confirm
	}

	err = teardown.Run(ctx, teardown.Options{
		Config:       cfg,
		Store:        store,
		Terraform:    terraform.New(c.Run, stateMgr.Dir, store.TFVarsPath(cfg.Provider)),
		Helm:         helm.New(c.Run),
		Kubectl:      kubectl.New(c.Run),
		Cloud:        provider,
		Secrets:      secretStore,
		State:        stateMgr,
		SkipCluster:  opts.SkipCluster,
		PurgeSecrets: opts.PurgeSecrets,
		Confirm:      confirmSecrets,
	})
	if err != nil {
		return err
	}

	ui.Divider()
	ui.Successf("teardown complete")
	return nil
}

// confirmTeardown demands two separate acknowledgements: a yes/no and the
// cluster name typed back.
func (c *Controller) confirmTeardown(ctx context.Context, clusterName string) error {
	ok, err := confirm(ctx, fmt.Sprintf("Destroy cluster %s and all its data?", clusterName))
	if err != nil {
		return err
	}
	if !ok {
		ui.Infof("teardown declined; nothing was changed")
		return ErrAborted
	}

	var typed string
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Type the cluster name to confirm").
				Description("This cannot be undone").
				Value(&typed).
				Validate(func(s string) error {
					if s != clusterName {
						return fmt.Errorf("type %q to confirm", clusterName)
					}
					return nil
				}),
		),
	).RunWithContext(ctx)
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrAborted
		}
		return err
	}
	return nil
}

// countdown gives the operator a last chance to interrupt.
func countdown(ctx context.Context, seconds int) error {
	for i := seconds; i > 0; i-- {
		ui.Warnf("destroying in %d (Ctrl-C aborts)", i)
		select {
		case <-ctx.Done():
			return errdefs.Interrupt(ctx.Err())
		case <-time.After(time.Second):
		}
	}
	return nil
}
