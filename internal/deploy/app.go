package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lrproduhub/n8nctl/internal/config"
	"github.com/lrproduhub/n8nctl/internal/helm"
	"github.com/lrproduhub/n8nctl/internal/secrets"
	"github.com/lrproduhub/n8nctl/internal/ui"
)

const (
	installWait    = 15 * time.Minute
	deploymentWait = 10 * time.Minute

	dbPasswordLength = 24
)

// ApplicationPhase installs n8n into the cluster: secrets first, then the
// chart, then waits for the deployment to come up.
func ApplicationPhase() Phase {
	return Phase{
		Name: "Application",
		Run: func(ctx context.Context, d *Context) error {
			if err := ensureEncryptionKey(ctx, d); err != nil {
				return err
			}

			if err := d.Kubectl.CreateNamespace(ctx, d.Config.Namespace); err != nil {
				return err
			}
			if err := d.Kubectl.CreateSecretLiteral(ctx, d.Config.Namespace, EncryptionKeySecret,
				map[string]string{"N8N_ENCRYPTION_KEY": d.Config.EncryptionKey}); err != nil {
				return err
			}

			dbHost := ""
			if d.Config.UsesManagedDatabase() {
				host, err := provisionDatabaseCredentials(ctx, d)
				if err != nil {
					return err
				}
				dbHost = host
			}

			if err := d.Helm.RepoAdd(ctx, ChartRepo, ChartURL); err != nil {
				return err
			}
			if err := d.Helm.RepoUpdate(ctx); err != nil {
				return err
			}

			values, err := BuildHelmValues(d.Config, dbHost)
			if err != nil {
				return err
			}
			if err := d.Store.WriteHelmValues(values); err != nil {
				return err
			}

			if err := d.Helm.UpgradeInstall(ctx, helm.InstallOpts{
				Release:     ReleaseName,
				Chart:       Chart,
				Namespace:   d.Config.Namespace,
				ValuesFiles: []string{d.Store.HelmValuesPath()},
				Wait:        true,
				Timeout:     installWait,
			}); err != nil {
				return err
			}

			if err := d.Kubectl.WaitDeploymentAvailable(ctx, d.Config.Namespace, ReleaseName, deploymentWait); err != nil {
				return err
			}
			ui.Infof("n8n deployment available in namespace %s", d.Config.Namespace)
			return nil
		},
	}
}

// ensureEncryptionKey makes sure d.Config.EncryptionKey holds a valid key
// and that the cloud secret store carries it. Precedence: operator-supplied
// key, then the key from a previous deployment, then a fresh one.
func ensureEncryptionKey(ctx context.Context, d *Context) error {
	name := config.EncryptionKeySecretName(d.Config.ClusterName)

	if d.Config.EncryptionKey != "" {
		if err := config.ValidateEncryptionKey(d.Config.EncryptionKey); err != nil {
			return err
		}
		return d.Secrets.Put(ctx, name, d.Config.EncryptionKey)
	}

	if existing, err := d.Secrets.Get(ctx, name); err == nil && existing != "" {
		if err := config.ValidateEncryptionKey(existing); err != nil {
			return fmt.Errorf("stored encryption key %s is malformed: %w", name, err)
		}
		d.Config.EncryptionKey = existing
		ui.Infof("reusing encryption key from %s", name)
		return nil
	}

	key, err := secrets.GenerateEncryptionKey()
	if err != nil {
		return err
	}
	if err := d.Secrets.Put(ctx, name, key); err != nil {
		return err
	}
	d.Config.EncryptionKey = key
	d.IssueCredential("Encryption key", key)
	return nil
}

// ensureDatabaseCredentials makes sure the cloud secret store holds the
// managed-database credentials before terraform reads the tfvars that
// reference them. Credentials from a previous run are reused; rotating
// them would desync the store from the live database.
func ensureDatabaseCredentials(ctx context.Context, d *Context) error {
	if !d.Config.UsesManagedDatabase() {
		return nil
	}
	name := config.DBCredentialsSecretName(d.Config.ClusterName)

	if existing, err := d.Secrets.Get(ctx, name); err == nil && existing != "" {
		ui.Infof("reusing database credentials from %s", name)
		return nil
	}

	password, err := secrets.GeneratePassword(dbPasswordLength)
	if err != nil {
		return err
	}
	creds, err := json.Marshal(map[string]string{
		"username": d.Config.Database.Username,
		"password": password,
	})
	if err != nil {
		return err
	}
	if err := d.Secrets.Put(ctx, name, string(creds)); err != nil {
		return err
	}
	d.IssueCredential("Database password", password)
	return nil
}

// provisionDatabaseCredentials mirrors the stored database password into
// the namespace and returns the database endpoint from the terraform
// outputs.
func provisionDatabaseCredentials(ctx context.Context, d *Context) (string, error) {
	out, ok := d.Outputs["db_endpoint"]
	if !ok {
		return "", fmt.Errorf("terraform outputs carry no db_endpoint; was the database provisioned?")
	}
	host := out.String()

	raw, err := d.Secrets.Get(ctx, config.DBCredentialsSecretName(d.Config.ClusterName))
	if err != nil {
		return "", fmt.Errorf("failed to read database credentials: %w", err)
	}
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.Unmarshal([]byte(raw), &creds); err != nil {
		return "", fmt.Errorf("stored database credentials are malformed: %w", err)
	}

	if err := d.Kubectl.CreateSecretLiteral(ctx, d.Config.Namespace, DBCredentialsSecret,
		map[string]string{"postgresql-password": creds.Password}); err != nil {
		return "", err
	}
	return host, nil
}
