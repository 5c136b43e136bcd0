package deploy

import (
	"fmt"

	"github.com/lrproduhub/n8nctl/internal/config"
)

// Kubernetes secret names inside the deployment namespace. Helm values
// reference these; the values file itself never carries secret material.
const (
	EncryptionKeySecret = "n8n-encryption-key"
	DBCredentialsSecret = "n8n-db-credentials"
	BasicAuthSecret     = "n8n-basic-auth"
	TLSSecret           = "n8n-tls"
)

// Helm release coordinates.
const (
	ReleaseName = "n8n"
	ChartRepo   = "community-charts"
	ChartURL    = "https://community-charts.github.io/helm-charts"
	Chart       = "community-charts/n8n"
)

// BuildHelmValues renders the values override for the n8n chart. dbHost is
// the managed database endpoint from the terraform outputs; empty for
// SQLite.
func BuildHelmValues(cfg *config.Config, dbHost string) (map[string]any, error) {
	values := map[string]any{
		"timezone": cfg.Timezone,
		"encryptionKey": map[string]any{
			"existingSecret": EncryptionKeySecret,
		},
		"persistence": map[string]any{
			"enabled": true,
			"size":    cfg.Persistence,
		},
	}

	switch cfg.Database.Engine {
	case config.DatabaseSQLite:
		values["database"] = map[string]any{
			"type": "sqlite",
		}
	case config.DatabasePostgres:
		if dbHost == "" {
			return nil, fmt.Errorf("postgresql selected but no database endpoint is available")
		}
		values["database"] = map[string]any{
			"type": "postgresdb",
			"postgresdb": map[string]any{
				"host":           dbHost,
				"database":       cfg.Database.Name,
				"user":           cfg.Database.Username,
				"existingSecret": DBCredentialsSecret,
			},
		}
	default:
		return nil, fmt.Errorf("unsupported database engine %q", cfg.Database.Engine)
	}

	ingress := map[string]any{
		"enabled":   true,
		"className": "nginx",
	}
	annotations := map[string]any{}
	if cfg.Domain != "" {
		ingress["hosts"] = []any{
			map[string]any{"host": cfg.Domain, "paths": []any{"/"}},
		}
	}
	if cfg.BasicAuth.Enabled {
		annotations["nginx.ingress.kubernetes.io/auth-type"] = "basic"
		annotations["nginx.ingress.kubernetes.io/auth-secret"] = BasicAuthSecret
		annotations["nginx.ingress.kubernetes.io/auth-realm"] = "Authentication Required"
	}
	if len(annotations) > 0 {
		ingress["annotations"] = annotations
	}
	values["ingress"] = ingress

	if cfg.Domain != "" {
		values["hostname"] = cfg.Domain
		values["protocol"] = cfg.Protocol()
	}

	return values, nil
}

// TLSUpgradeSet returns the --set overrides the post-deploy TLS upgrade
// applies on top of the installed release.
func TLSUpgradeSet(cfg *config.Config) []string {
	set := []string{
		"protocol=https",
		"ingress.tls[0].secretName=" + TLSSecret,
		"ingress.tls[0].hosts[0]=" + cfg.Domain,
	}
	if cfg.TLS.Mode == config.TLSModeLetsEncrypt {
		set = append(set,
			"ingress.annotations.cert-manager\\.io/cluster-issuer="+IssuerName(cfg.TLS.Environment))
	}
	return set
}

// IssuerName returns the ClusterIssuer name for an ACME environment.
func IssuerName(environment string) string {
	if environment == config.ACMEStaging {
		return "letsencrypt-staging"
	}
	return "letsencrypt-production"
}

// acmeServerURL returns the ACME directory endpoint for an environment.
func acmeServerURL(environment string) string {
	if environment == config.ACMEStaging {
		return "https://acme-staging-v02.api.letsencrypt.org/directory"
	}
	return "https://acme-v02.api.letsencrypt.org/directory"
}

// ClusterIssuerManifest renders the cert-manager ClusterIssuer for the
// configured ACME environment.
func ClusterIssuerManifest(cfg *config.Config) string {
	name := IssuerName(cfg.TLS.Environment)
	return fmt.Sprintf(`apiVersion: cert-manager.io/v1
kind: ClusterIssuer
metadata:
  name: %s
spec:
  acme:
    server: %s
    email: %s
    privateKeySecretRef:
      name: %s-account-key
    solvers:
      - http01:
          ingress:
            class: nginx
`, name, acmeServerURL(cfg.TLS.Environment), cfg.TLS.Email, name)
}
