package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Secret store name layout. These names are what the generated terraform
// variables and helm values reference; the secret values themselves never
// appear in any managed file.
func EncryptionKeySecretName(cluster string) string {
	return "n8n/" + cluster + "/encryption-key"
}

func BasicAuthSecretName(cluster string) string {
	return "n8n/" + cluster + "/basic-auth"
}

func DBCredentialsSecretName(cluster string) string {
	return "n8n/" + cluster + "/db-credentials"
}

// Store manages the configuration files a deployment writes under the
// project root: the per-provider terraform variable file, the helm values
// override, and the run metadata under .n8nctl/.
type Store struct {
	Root string
}

// NewStore returns a Store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Root: dir}
}

func (s *Store) TFVarsPath(provider string) string {
	return filepath.Join(s.Root, "terraform", provider, "terraform.tfvars")
}

func (s *Store) HelmValuesPath() string {
	return filepath.Join(s.Root, "helm", "values.override.yaml")
}

func (s *Store) LastRunPath() string {
	return filepath.Join(s.Root, ".n8nctl", "last-run.yaml")
}

func (s *Store) HistoryPath() string {
	return filepath.Join(s.Root, ".n8nctl", "history.log")
}

// ManagedFiles lists every file a run may create or overwrite, in a stable
// order. The backup manager snapshots exactly this set before any write.
func (s *Store) ManagedFiles(provider string) []string {
	return []string{
		s.TFVarsPath(provider),
		s.HelmValuesPath(),
		s.LastRunPath(),
	}
}

// WriteTFVars renders the terraform variable file for the configuration's
// provider. Secrets are referenced by secret-store name, never by value.
func (s *Store) WriteTFVars(cfg *Config) error {
	vars := map[string]string{
		"cluster_name":       cfg.ClusterName,
		"cluster_version":    cfg.ClusterVersion,
		"region":             cfg.Region,
		"node_instance_type": cfg.Nodes.InstanceType,
		"node_min_count":     fmt.Sprintf("%d", cfg.Nodes.MinCount),
		"node_desired_count": fmt.Sprintf("%d", cfg.Nodes.DesiredCount),
		"node_max_count":     fmt.Sprintf("%d", cfg.Nodes.MaxCount),
	}

	switch cfg.Provider {
	case ProviderAWS:
		vars["profile"] = cfg.Profile
	case ProviderAzure:
		vars["subscription_id"] = cfg.Profile
		vars["resource_group"] = cfg.EffectiveResourceGroup()
	}

	if cfg.UsesManagedDatabase() {
		vars["database_engine"] = cfg.Database.Engine
		vars["database_name"] = cfg.Database.Name
		vars["database_username"] = cfg.Database.Username
		vars["database_credentials_secret"] = DBCredentialsSecretName(cfg.ClusterName)
		switch cfg.Provider {
		case ProviderAWS:
			vars["rds_instance_class"] = cfg.Database.InstanceClass
		case ProviderAzure:
			vars["postgres_sku"] = cfg.Database.SKU
		}
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%-28s = %q\n", k, vars[k])
	}

	return writeFileAtomic(s.TFVarsPath(cfg.Provider), []byte(b.String()), 0o644)
}

// WriteHelmValues writes the rendered helm values override.
func (s *Store) WriteHelmValues(values map[string]any) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to marshal helm values: %w", err)
	}
	return writeFileAtomic(s.HelmValuesPath(), data, 0o644)
}

// lastRun is the persisted record of a run. It embeds the non-secret
// configuration; the encryption key is excluded by its yaml tag.
type lastRun struct {
	Timestamp time.Time `yaml:"timestamp"`
	Config    *Config   `yaml:"config"`
}

// SaveLastRun persists the non-secret configuration for reuse by teardown
// and subsequent deploys.
func (s *Store) SaveLastRun(cfg *Config) error {
	data, err := yaml.Marshal(lastRun{Timestamp: time.Now().UTC(), Config: cfg})
	if err != nil {
		return fmt.Errorf("failed to marshal run record: %w", err)
	}
	return writeFileAtomic(s.LastRunPath(), data, 0o600)
}

// LoadLastRun reads the previous run's configuration. Returns os.ErrNotExist
// when no run has been recorded.
func (s *Store) LoadLastRun() (*Config, error) {
	data, err := os.ReadFile(s.LastRunPath())
	if err != nil {
		return nil, err
	}
	var rec lastRun
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.LastRunPath(), err)
	}
	if rec.Config == nil {
		return nil, fmt.Errorf("%s contains no configuration", s.LastRunPath())
	}
	return rec.Config, nil
}

// AppendHistory appends a timestamped line to the run history log.
func (s *Store) AppendHistory(event string) error {
	if err := os.MkdirAll(filepath.Dir(s.HistoryPath()), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(s.HistoryPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%s %s\n", time.Now().UTC().Format(time.RFC3339), event)
	return err
}

// writeFileAtomic writes data via a temp file and rename so a crash never
// leaves a half-written managed file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
