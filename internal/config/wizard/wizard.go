// Package wizard collects the deployment configuration interactively.
// Every answer is validated at input time; the assembled configuration is
// validated once more before anything is written.
package wizard

import (
	"context"
	"fmt"

	"github.com/lrproduhub/n8nctl/internal/config"
)

// Result holds all the answers from the interactive wizard.
type Result struct {
	Provider string
	Profile  string
	Region   string

	// Cluster identity
	ClusterName    string
	ClusterVersion string

	// Node sizing
	NodeType     string
	MinCount     int
	DesiredCount int
	MaxCount     int

	// Application
	Namespace   string
	Domain      string
	Persistence string
	Timezone    string

	// Encryption key
	GenerateKey bool
	ProvidedKey string

	// Database
	DatabaseEngine string
	DatabaseSize   string
	DatabaseName   string
	DatabaseUser   string

	// TLS
	TLSMode         string
	TLSCertFile     string
	TLSKeyFile      string
	ACMEEmail       string
	ACMEEnvironment string

	// Basic auth
	BasicAuthEnabled  bool
	BasicAuthUsername string

	Confirmed bool
}

// Deps provides the wizard with the environment it asks questions about.
// The callbacks run after the provider is known, so the caller can lazily
// verify tools and credentials for the chosen cloud only.
type Deps struct {
	// Provider, when non-empty, skips the cloud selection group.
	Provider string

	// Profiles lists the locally discovered credentials profiles for the
	// chosen provider.
	Profiles func(ctx context.Context, provider string) ([]string, error)

	// Regions lists the regions available to the chosen profile.
	Regions func(ctx context.Context, provider, profile string) ([]string, error)
}

// Run walks the operator through the full configuration. It returns
// huh.ErrUserAborted unchanged when the operator backs out.
func Run(ctx context.Context, deps Deps) (*Result, error) {
	result := &Result{Provider: deps.Provider}

	if result.Provider == "" {
		if err := runProviderGroup(ctx, result); err != nil {
			return nil, fmt.Errorf("provider: %w", err)
		}
	}

	defaults := config.Default(result.Provider)

	profiles, err := deps.Profiles(ctx, result.Provider)
	if err != nil {
		return nil, fmt.Errorf("profiles: %w", err)
	}
	if err := runProfileGroup(ctx, result, profiles); err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}

	regions, err := deps.Regions(ctx, result.Provider, result.Profile)
	if err != nil {
		return nil, fmt.Errorf("regions: %w", err)
	}
	if err := runRegionGroup(ctx, result, regions, defaults.Region); err != nil {
		return nil, fmt.Errorf("region: %w", err)
	}

	if err := runClusterIdentityGroup(ctx, result, defaults); err != nil {
		return nil, fmt.Errorf("cluster identity: %w", err)
	}

	if err := runNodeSizingGroup(ctx, result, defaults); err != nil {
		return nil, fmt.Errorf("node sizing: %w", err)
	}

	if err := runApplicationGroup(ctx, result, defaults); err != nil {
		return nil, fmt.Errorf("application: %w", err)
	}

	if err := runEncryptionKeyGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}

	if err := runDatabaseGroup(ctx, result, defaults); err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	if err := runTLSGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("tls: %w", err)
	}

	if err := runBasicAuthGroup(ctx, result, defaults); err != nil {
		return nil, fmt.Errorf("basic auth: %w", err)
	}

	if err := runSummaryGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}

	return result, nil
}

// RunTLSUpgrade collects only the domain and TLS settings, for upgrading a
// running deployment in place.
func RunTLSUpgrade(ctx context.Context, domain string) (*Result, error) {
	result := &Result{Domain: domain}
	if result.Domain == "" {
		if err := runDomainGroup(ctx, result); err != nil {
			return nil, fmt.Errorf("domain: %w", err)
		}
	}
	if err := runTLSGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("tls: %w", err)
	}
	return result, nil
}

// BuildConfig converts the wizard answers into a Config. The encryption
// key field is only set when the operator supplied one; generated keys are
// created later, after the backup snapshot.
func BuildConfig(result *Result) *config.Config {
	cfg := config.Default(result.Provider)

	cfg.Profile = result.Profile
	cfg.Region = result.Region
	cfg.ClusterName = result.ClusterName
	cfg.ClusterVersion = result.ClusterVersion

	cfg.Nodes = config.NodeGroupSpec{
		InstanceType: result.NodeType,
		MinCount:     result.MinCount,
		DesiredCount: result.DesiredCount,
		MaxCount:     result.MaxCount,
	}

	cfg.Namespace = result.Namespace
	cfg.Domain = result.Domain
	cfg.Persistence = result.Persistence
	cfg.Timezone = result.Timezone

	if !result.GenerateKey {
		cfg.EncryptionKey = result.ProvidedKey
	}

	cfg.Database = config.DatabaseSpec{Engine: result.DatabaseEngine}
	if result.DatabaseEngine == config.DatabasePostgres {
		cfg.Database.Name = result.DatabaseName
		cfg.Database.Username = result.DatabaseUser
		switch result.Provider {
		case config.ProviderAWS:
			cfg.Database.InstanceClass = result.DatabaseSize
		case config.ProviderAzure:
			cfg.Database.SKU = result.DatabaseSize
		}
	}

	cfg.TLS = config.TLSSpec{Mode: result.TLSMode}
	switch result.TLSMode {
	case config.TLSModeBYO:
		cfg.TLS.CertFile = result.TLSCertFile
		cfg.TLS.KeyFile = result.TLSKeyFile
	case config.TLSModeLetsEncrypt:
		cfg.TLS.Email = result.ACMEEmail
		cfg.TLS.Environment = result.ACMEEnvironment
	}

	cfg.BasicAuth = config.BasicAuthSpec{
		Enabled:  result.BasicAuthEnabled,
		Username: result.BasicAuthUsername,
	}

	return cfg
}
