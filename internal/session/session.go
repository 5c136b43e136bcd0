// Package session orchestrates full runs: the prerequisite gate, credential
// discovery, configuration collection, the backup snapshot, the phase
// pipeline, and the rollback of managed files on failure or interrupt.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"

	"github.com/lrproduhub/n8nctl/internal/backup"
	"github.com/lrproduhub/n8nctl/internal/cloud"
	"github.com/lrproduhub/n8nctl/internal/config"
	"github.com/lrproduhub/n8nctl/internal/config/wizard"
	"github.com/lrproduhub/n8nctl/internal/deploy"
	"github.com/lrproduhub/n8nctl/internal/errdefs"
	"github.com/lrproduhub/n8nctl/internal/helm"
	"github.com/lrproduhub/n8nctl/internal/kubectl"
	"github.com/lrproduhub/n8nctl/internal/prereq"
	"github.com/lrproduhub/n8nctl/internal/runner"
	"github.com/lrproduhub/n8nctl/internal/state"
	"github.com/lrproduhub/n8nctl/internal/terraform"
	"github.com/lrproduhub/n8nctl/internal/ui"
)

// ErrAborted marks a run the operator backed out of. It maps to exit code
// 0: declining to deploy is a normal outcome, not a failure.
var ErrAborted = errors.New("aborted by operator")

// Controller wires one run's dependencies together.
type Controller struct {
	// Root is the project directory the managed files live under.
	Root string

	Run runner.Runner

	// Provider pins the cloud; empty lets the wizard ask.
	Provider string

	// SkipInfra reuses existing infrastructure.
	SkipInfra bool

	// newCloud is replaced in tests.
	newCloud func(name string, run runner.Runner) (cloud.Provider, error)
}

// NewController returns a Controller rooted at dir.
func NewController(dir string, run runner.Runner) *Controller {
	return &Controller{Root: dir, Run: run, newCloud: cloud.ForName}
}

// Deploy runs the full deployment pipeline. The context should be wired to
// SIGINT/SIGTERM; cancellation rolls the managed files back.
func (c *Controller) Deploy(ctx context.Context) error {
	ui.Banner("n8nctl deploy", "n8n on managed Kubernetes")

	// Nothing is prompted for and nothing is written before the common
	// tools check out.
	if err := c.gateCommonTools(ctx); err != nil {
		return err
	}

	var provider cloud.Provider
	var cfg *config.Config
	if c.SkipInfra {
		loaded, p, err := c.loadRecordedDeployment(ctx)
		if err != nil {
			return err
		}
		cfg, provider = loaded, p
	} else {
		collected, p, err := c.collectConfig(ctx)
		if err != nil {
			return err
		}
		cfg, provider = collected, p
	}

	if err := cfg.Validate(); err != nil {
		return errdefs.Validation("configuration", err)
	}

	store := config.NewStore(c.Root)
	stateMgr := state.NewManager(filepath.Join(c.Root, "terraform", cfg.Provider))
	if err := stateMgr.EnsureRegion(cfg.Region); err != nil {
		return errdefs.Precondition("terraform state", err)
	}

	secretStore, err := provider.SecretStore(ctx, cfg)
	if err != nil {
		return err
	}

	// Snapshot before the first write so any failure from here on can put
	// every managed file back exactly as it was.
	snap, err := backup.Snapshot(store.ManagedFiles(cfg.Provider))
	if err != nil {
		return err
	}

	if err := c.runDeploy(ctx, cfg, store, stateMgr, provider, secretStore); err != nil {
		c.rollback(snap, store, err)
		return err
	}

	snap.Discard()
	return nil
}

// collectConfig runs the interactive wizard and gates the chosen provider's
// CLI once it is known.
func (c *Controller) collectConfig(ctx context.Context) (*config.Config, cloud.Provider, error) {
	var provider cloud.Provider
	result, err := wizard.Run(ctx, wizard.Deps{
		Provider: c.Provider,
		Profiles: func(ctx context.Context, name string) ([]string, error) {
			p, err := c.gateProvider(ctx, name)
			if err != nil {
				return nil, err
			}
			provider = p
			return p.DiscoverProfiles(ctx)
		},
		Regions: func(ctx context.Context, name, profile string) ([]string, error) {
			ident, err := provider.VerifyIdentity(ctx, profile)
			if err != nil {
				return nil, err
			}
			ui.Successf("authenticated as %s (%s)", ident.Principal, ident.Account)
			return provider.DiscoverRegions(ctx, profile)
		},
	})
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return nil, nil, ErrAborted
		}
		return nil, nil, err
	}
	if !result.Confirmed {
		ui.Infof("deployment declined; nothing was changed")
		return nil, nil, ErrAborted
	}
	return wizard.BuildConfig(result), provider, nil
}

// loadRecordedDeployment serves --skip-infra: the configuration comes from
// the last-run record instead of the wizard, and the pipeline proceeds
// against the infrastructure that record describes.
func (c *Controller) loadRecordedDeployment(ctx context.Context) (*config.Config, cloud.Provider, error) {
	cfg, err := config.NewStore(c.Root).LoadLastRun()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, errdefs.Precondition("previous deployment",
				errors.New("no previous deployment found; run 'n8nctl deploy' without --skip-infra first"))
		}
		return nil, nil, err
	}

	provider, err := c.gateProvider(ctx, cfg.Provider)
	if err != nil {
		return nil, nil, err
	}
	ui.Infof("reusing recorded deployment %s/%s in %s", cfg.Provider, cfg.ClusterName, cfg.Region)
	return cfg, provider, nil
}

func (c *Controller) runDeploy(ctx context.Context, cfg *config.Config, store *config.Store,
	stateMgr *state.Manager, provider cloud.Provider, secretStore cloud.SecretStore) error {

	if err := store.WriteTFVars(cfg); err != nil {
		return err
	}
	if err := store.SaveLastRun(cfg); err != nil {
		return err
	}
	if err := store.AppendHistory(fmt.Sprintf("deploy started: %s/%s in %s",
		cfg.Provider, cfg.ClusterName, cfg.Region)); err != nil {
		return err
	}

	d := &deploy.Context{
		Config:    cfg,
		Store:     store,
		State:     stateMgr,
		Terraform: terraform.New(c.Run, stateMgr.Dir, store.TFVarsPath(cfg.Provider)),
		Helm:      helm.New(c.Run),
		Kubectl:   kubectl.New(c.Run),
		Cloud:     provider,
		Secrets:   secretStore,
		Confirm:   confirm,
	}

	_, err := deploy.NewExecutor([]deploy.Phase{
		deploy.InfrastructurePhase(c.SkipInfra),
		deploy.ApplicationPhase(),
		deploy.EndpointPhase(),
		deploy.TLSAuthPhase(),
	}).Run(ctx, d)
	if err != nil {
		store.AppendHistory("deploy failed: " + err.Error())
		return err
	}

	store.AppendHistory("deploy succeeded for " + cfg.ClusterName)
	c.printOutcome(d)
	return nil
}

// rollback restores the managed files after a failed or interrupted run.
func (c *Controller) rollback(snap *backup.Manager, store *config.Store, cause error) {
	if errdefs.IsInterrupt(cause) || errors.Is(cause, context.Canceled) {
		ui.Warnf("interrupted; restoring configuration files")
		store.AppendHistory("deploy interrupted")
	} else {
		ui.Warnf("deployment failed; restoring configuration files")
	}
	if err := snap.Restore(); err != nil {
		ui.Failf("rollback incomplete: %v", err)
		log.Printf("rollback: %v", err)
		return
	}
	snap.Discard()
	ui.Infof("configuration files restored")
	ui.Warnf("terraform state was not rolled back; resources already created remain until 'n8nctl teardown' or a manual terraform destroy")
}

// printOutcome renders the final summary, including the one-time credential
// display.
func (c *Controller) printOutcome(d *deploy.Context) {
	ui.Divider()
	ui.Successf("deployment complete")

	rows := [][2]string{
		{"Cluster", d.Config.ClusterName},
		{"Provider", fmt.Sprintf("%s (%s)", d.Config.Provider, d.Config.Region)},
		{"Namespace", d.Config.Namespace},
	}
	if url := d.URL(); url != "" {
		rows = append(rows, [2]string{"URL", url})
	}
	ui.Summary(rows)

	if len(d.Credentials) > 0 {
		ui.Divider()
		ui.Warnf("credentials below are shown once and never written to disk")
		for _, cred := range d.Credentials {
			ui.Credential(cred[0], cred[1])
		}
	}

	for _, soft := range d.SoftFailures {
		ui.Warnf("%s", soft)
	}
}

// checkPrereqs is replaced in tests.
var checkPrereqs = prereq.Check

// gateCommonTools blocks the run until terraform, helm, and kubectl check
// out.
func (c *Controller) gateCommonTools(ctx context.Context) error {
	results := checkPrereqs(ctx, c.Run, prereq.CommonTools())
	reportTools(results)
	if err := results.Err(); err != nil {
		return errdefs.Precondition("prerequisites", err)
	}
	return nil
}

// gateProvider checks the cloud CLI once the provider is known.
func (c *Controller) gateProvider(ctx context.Context, name string) (cloud.Provider, error) {
	provider, err := c.newCloud(name, c.Run)
	if err != nil {
		return nil, err
	}
	var tools []prereq.Tool
	switch name {
	case config.ProviderAWS:
		tools = prereq.AWSTools()
	case config.ProviderAzure:
		tools = prereq.AzureTools()
	}
	results := checkPrereqs(ctx, c.Run, tools)
	reportTools(results)
	if err := results.Err(); err != nil {
		return nil, errdefs.Precondition("prerequisites", err)
	}
	return provider, nil
}

func reportTools(results *prereq.Results) {
	for _, r := range results.Results {
		switch {
		case !r.Found && r.Tool.Required:
			ui.Failf("%s not found (%s)", r.Tool.Name, r.Tool.InstallURL)
		case !r.Found:
			ui.Infof("%s not found (optional)", r.Tool.Name)
		case !r.Satisfies:
			ui.Failf("%s v%s is older than required %s", r.Tool.Name, r.Version, r.Tool.MinVersion)
		case r.Version == "":
			ui.Warnf("%s found, version unreadable", r.Tool.Name)
		default:
			ui.Successf("%s v%s", r.Tool.Name, r.Version)
		}
	}
}

// confirm asks a yes/no question through the same form stack as the
// wizard.
func confirm(ctx context.Context, prompt string) (bool, error) {
	var answer bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(prompt).
				Value(&answer),
		),
	).RunWithContext(ctx)
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return answer, nil
}

// ExitCode maps a run's error to the process exit code. Operator-declined
// runs exit 0; interrupts exit 130 like a raw SIGINT would.
func ExitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, ErrAborted):
		return 0
	case errdefs.IsInterrupt(err), errors.Is(err, context.Canceled):
		return 130
	default:
		return 1
	}
}
