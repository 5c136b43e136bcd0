package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"

	"github.com/lrproduhub/n8nctl/internal/backup"
	"github.com/lrproduhub/n8nctl/internal/config"
	"github.com/lrproduhub/n8nctl/internal/config/wizard"
	"github.com/lrproduhub/n8nctl/internal/deploy"
	"github.com/lrproduhub/n8nctl/internal/errdefs"
	"github.com/lrproduhub/n8nctl/internal/helm"
	"github.com/lrproduhub/n8nctl/internal/kubectl"
	"github.com/lrproduhub/n8nctl/internal/state"
	"github.com/lrproduhub/n8nctl/internal/terraform"
	"github.com/lrproduhub/n8nctl/internal/ui"
)

// runTLSWizard is replaced in tests.
var runTLSWizard = wizard.RunTLSUpgrade

// TLSUpgrade retrofits TLS onto a running deployment: it collects the TLS
// settings, persists them, and runs only the upgrade phase against the
// existing release.
func (c *Controller) TLSUpgrade(ctx context.Context) error {
	ui.Banner("n8nctl tls", "upgrade a running deployment to TLS")

	store := config.NewStore(c.Root)
	cfg, err := store.LoadLastRun()
	if err != nil {
		if os.IsNotExist(err) {
			return errdefs.Precondition("tls upgrade",
				errors.New("no previous deployment found; run 'n8nctl deploy' first"))
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

	result, err := runTLSWizard(ctx, cfg.Domain)
	if err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrAborted
		}
		return err
	}
	if result.TLSMode == config.TLSModeNone {
		ui.Infof("no TLS mode selected; nothing to do")
		return nil
	}

	cfg.Domain = result.Domain
	cfg.TLS = config.TLSSpec{Mode: result.TLSMode}
	switch result.TLSMode {
	case config.TLSModeBYO:
		cfg.TLS.CertFile = result.TLSCertFile
		cfg.TLS.KeyFile = result.TLSKeyFile
	case config.TLSModeLetsEncrypt:
		cfg.TLS.Email = result.ACMEEmail
		cfg.TLS.Environment = result.ACMEEnvironment
	}
	if err := cfg.Validate(); err != nil {
		return errdefs.Validation("configuration", err)
	}

	secretStore, err := provider.SecretStore(ctx, cfg)
	if err != nil {
		return err
	}
	stateMgr := state.NewManager(filepath.Join(c.Root, "terraform", cfg.Provider))

	// Basic auth was provisioned at deploy time; rerunning its setup would
	// rotate the password behind the operator's back.
	phaseCfg := *cfg
	phaseCfg.BasicAuth.Enabled = false

	d := &deploy.Context{
		Config:    &phaseCfg,
		Store:     store,
		State:     stateMgr,
		Terraform: terraform.New(c.Run, stateMgr.Dir, store.TFVarsPath(cfg.Provider)),
		Helm:      helm.New(c.Run),
		Kubectl:   kubectl.New(c.Run),
		Cloud:     provider,
		Secrets:   secretStore,
		Confirm:   confirm,
	}

	// Best effort; the DNS prompt falls back to naming the load balancer
	// when no address is visible yet.
	if addr, err := d.Kubectl.IngressAddress(ctx, cfg.Namespace, deploy.ReleaseName); err == nil {
		d.Endpoint = addr
	}

	// The upgrade rewrites the last-run record and helm values, so they get
	// the same snapshot-before-write treatment as a full deploy.
	snap, err := backup.Snapshot(store.ManagedFiles(cfg.Provider))
	if err != nil {
		return err
	}

	// The upgrade phase never skips here: a TLS mode was just chosen.
	if err := deploy.TLSAuthPhase().Run(ctx, d); err != nil {
		c.rollback(snap, store, err)
		return err
	}

	if err := store.SaveLastRun(cfg); err != nil {
		c.rollback(snap, store, err)
		return err
	}
	store.AppendHistory("tls upgrade completed for " + cfg.ClusterName)

	snap.Discard()
	c.printOutcome(d)
	return nil
}
