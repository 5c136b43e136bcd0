// Package teardown dismantles a deployment in reverse order: application
// first, then provider-side guards, then the infrastructure, then local
// state. Every stage tolerates resources that are already gone so an
// interrupted teardown can simply be run again.
package teardown

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/lrproduhub/n8nctl/internal/cloud"
	"github.com/lrproduhub/n8nctl/internal/config"
	"github.com/lrproduhub/n8nctl/internal/deploy"
	"github.com/lrproduhub/n8nctl/internal/helm"
	"github.com/lrproduhub/n8nctl/internal/kubectl"
	"github.com/lrproduhub/n8nctl/internal/state"
	"github.com/lrproduhub/n8nctl/internal/terraform"
	"github.com/lrproduhub/n8nctl/internal/ui"
	"github.com/lrproduhub/n8nctl/internal/util/retry"
)

// Options carries the clients a teardown needs.
type Options struct {
	Config *config.Config
	Store  *config.Store

	Terraform *terraform.Client
	Helm      *helm.Client
	Kubectl   *kubectl.Client
	Cloud     cloud.Provider
	Secrets   cloud.SecretStore
	State     *state.Manager

	// SkipCluster skips the in-cluster stage, for clusters that are
	// already unreachable or half-destroyed.
	SkipCluster bool

	// PurgeSecrets also deletes the encryption key from the cloud secret
	// store. Without it the key survives so the same cluster name can be
	// redeployed against existing encrypted data.
	PurgeSecrets bool

	// Confirm gates the secret store cleanup. Nil deletes without asking;
	// declining keeps the entries and the teardown still succeeds.
	Confirm func(ctx context.Context, prompt string) (bool, error)
}

// Run executes the teardown. In-cluster failures are reported but do not
// stop the run; a cluster the infrastructure stage is about to delete
// anyway must not block its own teardown. A failed terraform destroy is
// fatal.
func Run(ctx context.Context, opts Options) error {
	var warnings []string

	if opts.SkipCluster {
		ui.Infof("skipping in-cluster cleanup")
	} else {
		warnings = append(warnings, clusterStage(ctx, opts)...)
	}

	ui.Section("Cloud guards")
	if err := opts.Cloud.PrepareTeardown(ctx, opts.Config); err != nil {
		// Destroy may still succeed; record and continue.
		warnings = append(warnings, fmt.Sprintf("failed to clear provider guards: %v", err))
		ui.Warnf("failed to clear provider guards: %v", err)
	} else {
		ui.Successf("provider guards cleared")
	}

	ui.Section("Infrastructure")
	if err := opts.Terraform.Init(ctx); err != nil {
		return err
	}
	if err := opts.Terraform.Destroy(ctx); err != nil {
		return err
	}
	ui.Successf("infrastructure destroyed")

	warnings = append(warnings, cleanupStage(ctx, opts)...)

	for _, w := range warnings {
		ui.Warnf("%s", w)
	}
	return nil
}

// clusterStage removes the releases and namespace. Tolerant throughout.
func clusterStage(ctx context.Context, opts Options) []string {
	var warnings []string
	warn := func(format string, args ...any) {
		msg := fmt.Sprintf(format, args...)
		warnings = append(warnings, msg)
		log.Printf("teardown: %s", msg)
	}

	ui.Section("Application")

	if err := opts.Helm.Uninstall(ctx, deploy.ReleaseName, opts.Config.Namespace); err != nil {
		warn("failed to uninstall release %s: %v", deploy.ReleaseName, err)
	}

	// The cloud load balancer must be gone before terraform destroy, or
	// its unmanaged network attachments block the VPC deletion.
	if err := waitLoadBalancerReleased(ctx, opts); err != nil {
		warn("load balancer still draining: %v; terraform destroy may need a retry", err)
	}

	if opts.Config.TLS.Mode == config.TLSModeLetsEncrypt {
		if err := opts.Kubectl.DeleteManifest(ctx, deploy.ClusterIssuerManifest(opts.Config)); err != nil {
			warn("failed to delete cluster issuer: %v", err)
		}
		if err := opts.Helm.Uninstall(ctx, "cert-manager", "cert-manager"); err != nil {
			warn("failed to uninstall cert-manager: %v", err)
		}
		if err := opts.Kubectl.DeleteNamespace(ctx, "cert-manager"); err != nil {
			warn("failed to delete cert-manager namespace: %v", err)
		}
	}

	// Secrets and PVCs go explicitly; namespace deletion alone leaves the
	// backing volumes behind on some storage classes.
	for _, name := range []string{
		deploy.EncryptionKeySecret,
		deploy.DBCredentialsSecret,
		deploy.BasicAuthSecret,
		deploy.TLSSecret,
	} {
		if err := opts.Kubectl.DeleteSecret(ctx, opts.Config.Namespace, name); err != nil {
			warn("failed to delete secret %s: %v", name, err)
		}
	}
	if err := opts.Kubectl.DeletePersistentVolumeClaims(ctx, opts.Config.Namespace); err != nil {
		warn("failed to delete persistent volume claims: %v", err)
	}

	if err := opts.Kubectl.DeleteNamespace(ctx, opts.Config.Namespace); err != nil {
		warn("failed to delete namespace %s: %v", opts.Config.Namespace, err)
	}

	if len(warnings) == 0 {
		ui.Successf("application removed")
	}
	return warnings
}

// Shortened in tests.
var (
	lbPollInterval = 10 * time.Second
	lbPollDeadline = 5 * time.Minute
)

// waitLoadBalancerReleased polls until the uninstalled release's external
// address disappears, meaning the cloud has started tearing the load
// balancer down.
func waitLoadBalancerReleased(ctx context.Context, opts Options) error {
	return retry.Poll(ctx, lbPollInterval, lbPollDeadline, func(ctx context.Context) error {
		addr, err := opts.Kubectl.IngressAddress(ctx, opts.Config.Namespace, deploy.ReleaseName)
		if err != nil {
			return retry.Fatal(err)
		}
		if addr == "" {
			addr, err = opts.Kubectl.ServiceLoadBalancerAddress(ctx, opts.Config.Namespace, deploy.ReleaseName)
			if err != nil {
				return retry.Fatal(err)
			}
		}
		if addr != "" {
			return fmt.Errorf("load balancer %s still assigned", addr)
		}
		return nil
	})
}

// cleanupStage removes cloud secrets and local state after a successful
// destroy.
func cleanupStage(ctx context.Context, opts Options) []string {
	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	ui.Section("Cleanup")

	cluster := opts.Config.ClusterName
	names := []string{
		config.BasicAuthSecretName(cluster),
		config.DBCredentialsSecretName(cluster),
	}
	if opts.PurgeSecrets {
		names = append(names, config.EncryptionKeySecretName(cluster))
	} else {
		ui.Infof("keeping %s for redeploys", config.EncryptionKeySecretName(cluster))
	}

	remove := true
	if opts.Confirm != nil {
		ui.Infof("secret store entries for this deployment:")
		ui.List(names)
		ok, err := opts.Confirm(ctx, "Delete these secret store entries?")
		if err != nil {
			warn("secret cleanup confirmation failed: %v", err)
			ok = false
		}
		remove = ok
	}
	if remove {
		for _, name := range names {
			if err := opts.Secrets.Delete(ctx, name); err != nil {
				warn("failed to delete secret %s: %v", name, err)
			}
		}
	} else {
		ui.Infof("keeping secret store entries")
	}

	if err := opts.State.Clear(); err != nil {
		warn("failed to clear terraform state: %v", err)
	}

	if err := opts.Store.AppendHistory("teardown completed for " + cluster); err != nil {
		warn("failed to record history: %v", err)
	}

	if len(warnings) == 0 {
		ui.Successf("local state cleared")
	}
	return warnings
}
