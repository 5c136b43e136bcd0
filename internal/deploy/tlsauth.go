package deploy

import (
	"context"
	"fmt"
	"time"

	"github.com/lrproduhub/n8nctl/internal/config"
	"github.com/lrproduhub/n8nctl/internal/errdefs"
	"github.com/lrproduhub/n8nctl/internal/helm"
	"github.com/lrproduhub/n8nctl/internal/secrets"
	"github.com/lrproduhub/n8nctl/internal/tlsutil"
	"github.com/lrproduhub/n8nctl/internal/ui"
)

const (
	certManagerRepo    = "jetstack"
	certManagerRepoURL = "https://charts.jetstack.io"
	certManagerChart   = "jetstack/cert-manager"
	certManagerNS      = "cert-manager"

	basicAuthPasswordLength = 20
	certManagerWait         = 10 * time.Minute
)

// TLSAuthPhase upgrades the installed release with TLS termination and
// HTTP basic auth. It is skipped entirely when neither is configured.
func TLSAuthPhase() Phase {
	return Phase{
		Name: "TLS and auth upgrade",
		Skip: func(d *Context) bool {
			return !d.Config.WantsTLS() && !d.Config.BasicAuth.Enabled
		},
		Run: func(ctx context.Context, d *Context) error {
			// TLS first: the letsencrypt path carries the DNS confirmation
			// gate, and a declined gate must halt before basic auth rotates
			// the stored password or touches the cluster.
			switch d.Config.TLS.Mode {
			case config.TLSModeBYO:
				if err := setupBYOTLS(ctx, d); err != nil {
					return err
				}
			case config.TLSModeLetsEncrypt:
				if err := setupLetsEncrypt(ctx, d); err != nil {
					return err
				}
			}

			if d.Config.BasicAuth.Enabled {
				if err := setupBasicAuth(ctx, d); err != nil {
					return err
				}
			}
			if !d.Config.WantsTLS() {
				// Basic auth only; the install-time ingress annotations
				// already reference the secret, so nothing to upgrade.
				return nil
			}

			return d.Helm.UpgradeReuseValues(ctx, ReleaseName, Chart, d.Config.Namespace,
				TLSUpgradeSet(d.Config))
		},
	}
}

// setupBasicAuth creates the htpasswd secret the ingress annotations point
// at and records the generated password for the one-time display.
func setupBasicAuth(ctx context.Context, d *Context) error {
	password, err := secrets.GeneratePassword(basicAuthPasswordLength)
	if err != nil {
		return err
	}
	hash, err := secrets.HashPassword(password)
	if err != nil {
		return err
	}

	entry := secrets.HtpasswdEntry(d.Config.BasicAuth.Username, hash)
	if err := d.Kubectl.CreateSecretLiteral(ctx, d.Config.Namespace, BasicAuthSecret,
		map[string]string{"auth": entry}); err != nil {
		return err
	}

	// The cloud store gets the plaintext so a locked-out operator can
	// recover it; the cluster only ever sees the hash.
	if err := d.Secrets.Put(ctx, config.BasicAuthSecretName(d.Config.ClusterName), password); err != nil {
		return err
	}

	d.IssueCredential("Basic auth user", d.Config.BasicAuth.Username)
	d.IssueCredential("Basic auth password", password)
	return nil
}

// setupBYOTLS validates the operator's PEM pair and pushes it into the
// namespace as the ingress TLS secret.
func setupBYOTLS(ctx context.Context, d *Context) error {
	pair, err := tlsutil.LoadPair(d.Config.TLS.CertFile, d.Config.TLS.KeyFile)
	if err != nil {
		return err
	}
	if !pair.CoversHost(d.Config.Domain) {
		return fmt.Errorf("certificate does not cover %s", d.Config.Domain)
	}
	if pair.ExpiresWithin(30 * 24 * time.Hour) {
		ui.Warnf("certificate expires %s", pair.Leaf.NotAfter.Format("2006-01-02"))
	}
	return d.Kubectl.CreateTLSSecret(ctx, d.Config.Namespace, TLSSecret,
		d.Config.TLS.CertFile, d.Config.TLS.KeyFile)
}

// setupLetsEncrypt installs cert-manager and the ClusterIssuer. The DNS
// gate comes first: issuing against a domain that does not resolve to the
// load balancer burns ACME rate limits for nothing, so the operator must
// confirm the record before cert-manager is touched.
func setupLetsEncrypt(ctx context.Context, d *Context) error {
	prompt := fmt.Sprintf("Does DNS for %s point to %s?", d.Config.Domain, orPending(d.Endpoint))
	ok, err := d.Confirm(ctx, prompt)
	if err != nil {
		return err
	}
	if !ok {
		return errdefs.Precondition("dns confirmation",
			fmt.Errorf("DNS for %s is not ready; create the record and run 'n8nctl tls' once it resolves", d.Config.Domain))
	}

	if err := d.Helm.RepoAdd(ctx, certManagerRepo, certManagerRepoURL); err != nil {
		return err
	}
	if err := d.Helm.RepoUpdate(ctx); err != nil {
		return err
	}
	if err := d.Helm.UpgradeInstall(ctx, helm.InstallOpts{
		Release:         "cert-manager",
		Chart:           certManagerChart,
		Namespace:       certManagerNS,
		CreateNamespace: true,
		Set:             []string{"installCRDs=true"},
		Wait:            true,
		Timeout:         certManagerWait,
	}); err != nil {
		return err
	}

	return d.Kubectl.ApplyManifest(ctx, ClusterIssuerManifest(d.Config))
}

func orPending(s string) string {
	if s == "" {
		return "the load balancer (address still pending)"
	}
	return s
}
