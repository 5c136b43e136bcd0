// Package config defines the deployment configuration, its validation
// rules, and the on-disk representation shared between runs.
package config

// Cloud provider identifiers.
const (
	ProviderAWS   = "aws"
	ProviderAzure = "azure"
)

// Database engine identifiers.
const (
	DatabaseSQLite   = "sqlite"
	DatabasePostgres = "postgresql"
)

// TLS mode identifiers.
const (
	TLSModeNone        = "none"
	TLSModeBYO         = "byo"
	TLSModeLetsEncrypt = "letsencrypt"
)

// Let's Encrypt ACME environments.
const (
	ACMEStaging    = "staging"
	ACMEProduction = "production"
)

// NodeGroupSpec sizes the cluster's worker node group.
type NodeGroupSpec struct {
	InstanceType string `yaml:"instance_type"`
	MinCount     int    `yaml:"min_count"`
	DesiredCount int    `yaml:"desired_count"`
	MaxCount     int    `yaml:"max_count"`
}

// DatabaseSpec selects and sizes the application database. SQLite lives on
// the persistent volume; PostgreSQL is provisioned as a managed instance.
type DatabaseSpec struct {
	Engine string `yaml:"engine"`

	// InstanceClass is the RDS instance class (AWS only).
	InstanceClass string `yaml:"instance_class,omitempty"`

	// SKU is the flexible-server SKU (Azure only).
	SKU string `yaml:"sku,omitempty"`

	Name     string `yaml:"name,omitempty"`
	Username string `yaml:"username,omitempty"`
}

// TLSSpec configures how the ingress terminates TLS.
type TLSSpec struct {
	Mode string `yaml:"mode"`

	// CertFile and KeyFile point at user-supplied PEM files (byo mode).
	CertFile string `yaml:"cert_file,omitempty"`
	KeyFile  string `yaml:"key_file,omitempty"`

	// Email and Environment drive the ACME issuer (letsencrypt mode).
	Email       string `yaml:"email,omitempty"`
	Environment string `yaml:"environment,omitempty"`
}

// BasicAuthSpec enables HTTP basic auth in front of the application.
type BasicAuthSpec struct {
	Enabled  bool   `yaml:"enabled"`
	Username string `yaml:"username,omitempty"`
}

// Config is the full deployment configuration. The encryption key is held
// in memory only and is never written to any of the managed files; it lives
// in the cloud secret store.
type Config struct {
	Provider string `yaml:"provider"`

	// Profile is the AWS CLI profile or the Azure subscription ID.
	Profile string `yaml:"profile"`
	Region  string `yaml:"region"`

	ClusterName    string `yaml:"cluster_name"`
	ClusterVersion string `yaml:"cluster_version"`

	// ResourceGroup is the Azure resource group. Derived from the cluster
	// name when empty.
	ResourceGroup string `yaml:"resource_group,omitempty"`

	Nodes NodeGroupSpec `yaml:"nodes"`

	Namespace   string `yaml:"namespace"`
	Domain      string `yaml:"domain,omitempty"`
	Persistence string `yaml:"persistence"`
	Timezone    string `yaml:"timezone"`

	EncryptionKey string `yaml:"-"`

	Database  DatabaseSpec  `yaml:"database"`
	TLS       TLSSpec       `yaml:"tls"`
	BasicAuth BasicAuthSpec `yaml:"basic_auth"`
}

// Default returns a configuration pre-filled with the defaults the wizard
// offers.
func Default(provider string) *Config {
	cfg := &Config{
		Provider:       provider,
		ClusterName:    "n8n",
		ClusterVersion: "1.31",
		Nodes: NodeGroupSpec{
			MinCount:     1,
			DesiredCount: 2,
			MaxCount:     3,
		},
		Namespace:   "n8n",
		Persistence: "10Gi",
		Timezone:    "America/Bahia",
		Database:    DatabaseSpec{Engine: DatabaseSQLite},
		TLS:         TLSSpec{Mode: TLSModeNone},
		BasicAuth:   BasicAuthSpec{Enabled: true, Username: "admin"},
	}
	switch provider {
	case ProviderAWS:
		cfg.Region = "us-east-1"
		cfg.Nodes.InstanceType = "t3.medium"
		cfg.Database.InstanceClass = "db.t3.micro"
	case ProviderAzure:
		cfg.Region = "eastus"
		cfg.Nodes.InstanceType = "Standard_D2s_v3"
		cfg.Database.SKU = "B_Standard_B1ms"
	}
	return cfg
}

// EffectiveResourceGroup returns the Azure resource group, deriving it from
// the cluster name when not set explicitly.
func (c *Config) EffectiveResourceGroup() string {
	if c.ResourceGroup != "" {
		return c.ResourceGroup
	}
	return c.ClusterName + "-rg"
}

// UsesManagedDatabase reports whether the deployment provisions a managed
// PostgreSQL instance.
func (c *Config) UsesManagedDatabase() bool {
	return c.Database.Engine == DatabasePostgres
}

// WantsTLS reports whether any TLS mode is selected.
func (c *Config) WantsTLS() bool {
	return c.TLS.Mode != "" && c.TLS.Mode != TLSModeNone
}

// Protocol returns the URL scheme the deployed instance will serve.
func (c *Config) Protocol() string {
	if c.WantsTLS() {
		return "https"
	}
	return "http"
}
