package wizard

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/lrproduhub/n8nctl/internal/config"
	"github.com/lrproduhub/n8nctl/internal/tlsutil"
)

// runProviderGroup prompts for the target cloud.
func runProviderGroup(ctx context.Context, result *Result) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Cloud Provider").
				Description("Where the cluster will be provisioned").
				Options(ProviderOptions...).
				Value(&result.Provider),
		).Title("Provider"),
	).RunWithContext(ctx)
}

// runProfileGroup prompts for the credentials profile.
func runProfileGroup(ctx context.Context, result *Result, profiles []string) error {
	if len(profiles) == 0 {
		return errProfileRequired
	}
	if len(profiles) == 1 {
		result.Profile = profiles[0]
		return nil
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Credentials Profile").
				Description("Locally configured profile or subscription").
				Options(StringsToOptions(profiles)...).
				Value(&result.Profile),
		).Title("Credentials"),
	).RunWithContext(ctx)
}

// runRegionGroup prompts for the deployment region.
func runRegionGroup(ctx context.Context, result *Result, regions []string, preferred string) error {
	if len(regions) == 0 {
		return errRegionRequired
	}
	result.Region = preferred
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Region").
				Description("Where the cluster and its data will live").
				Options(StringsToOptions(regions)...).
				Value(&result.Region),
		).Title("Region"),
	).RunWithContext(ctx)
}

// runClusterIdentityGroup prompts for cluster name and version.
func runClusterIdentityGroup(ctx context.Context, result *Result, defaults *config.Config) error {
	result.ClusterName = defaults.ClusterName
	result.ClusterVersion = defaults.ClusterVersion

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Cluster Name").
				Description("Lowercase alphanumeric and hyphens, starting with a letter").
				Placeholder(defaults.ClusterName).
				Value(&result.ClusterName).
				Validate(config.ValidateClusterName),
			huh.NewSelect[string]().
				Title("Kubernetes Version").
				Options(ClusterVersions...).
				Value(&result.ClusterVersion),
		).Title("Cluster Identity"),
	).RunWithContext(ctx)
}

// runNodeSizingGroup prompts for instance type and autoscaling bounds.
func runNodeSizingGroup(ctx context.Context, result *Result, defaults *config.Config) error {
	result.NodeType = defaults.Nodes.InstanceType
	minStr := strconv.Itoa(defaults.Nodes.MinCount)
	desiredStr := strconv.Itoa(defaults.Nodes.DesiredCount)
	maxStr := strconv.Itoa(defaults.Nodes.MaxCount)

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Node Instance Type").
				Options(SizingToOptions(NodeTypesFor(result.Provider))...).
				Value(&result.NodeType),
			huh.NewInput().
				Title("Minimum Nodes").
				Value(&minStr).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("Desired Nodes").
				Value(&desiredStr).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("Maximum Nodes").
				Value(&maxStr).
				Validate(validatePositiveInt),
		).Title("Node Sizing"),
	).RunWithContext(ctx)
	if err != nil {
		return err
	}

	result.MinCount, _ = config.ParsePositiveInt(minStr)
	result.DesiredCount, _ = config.ParsePositiveInt(desiredStr)
	result.MaxCount, _ = config.ParsePositiveInt(maxStr)
	return config.ValidateNodeCounts(result.MinCount, result.DesiredCount, result.MaxCount)
}

// runApplicationGroup prompts for namespace, domain, storage, and timezone.
func runApplicationGroup(ctx context.Context, result *Result, defaults *config.Config) error {
	result.Namespace = defaults.Namespace
	result.Persistence = defaults.Persistence
	result.Timezone = defaults.Timezone

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Namespace").
				Placeholder(defaults.Namespace).
				Value(&result.Namespace).
				Validate(requireNonEmpty("namespace")),
			huh.NewInput().
				Title("Domain (optional)").
				Description("FQDN the instance will be reachable at; leave empty to use the load balancer address").
				Placeholder("n8n.example.com").
				Value(&result.Domain).
				Validate(validateOptionalDomain),
			huh.NewInput().
				Title("Persistent Volume Size").
				Placeholder(defaults.Persistence).
				Value(&result.Persistence).
				Validate(config.ValidatePersistence),
			huh.NewInput().
				Title("Timezone").
				Description("IANA timezone for schedules and cron nodes").
				Placeholder(defaults.Timezone).
				Value(&result.Timezone).
				Validate(requireNonEmpty("timezone")),
		).Title("Application"),
	).RunWithContext(ctx)
}

// runDomainGroup prompts for the domain alone, for the TLS upgrade path.
func runDomainGroup(ctx context.Context, result *Result) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Domain").
				Description("FQDN the certificate will be issued for").
				Placeholder("n8n.example.com").
				Value(&result.Domain).
				Validate(config.ValidateDomain),
		).Title("Domain"),
	).RunWithContext(ctx)
}

// runEncryptionKeyGroup prompts for the encryption key source. A supplied
// key that fails validation cannot be accepted; deploying with a malformed
// key would make every stored credential unrecoverable.
func runEncryptionKeyGroup(ctx context.Context, result *Result) error {
	result.GenerateKey = true
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[bool]().
				Title("Encryption Key").
				Description("n8n encrypts stored credentials with this key").
				Options(KeySourceOptions...).
				Value(&result.GenerateKey),
		).Title("Encryption Key"),
	).RunWithContext(ctx)
	if err != nil {
		return err
	}
	if result.GenerateKey {
		return nil
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Existing Encryption Key").
				Description("64 hexadecimal characters").
				EchoMode(huh.EchoModePassword).
				Value(&result.ProvidedKey).
				Validate(config.ValidateEncryptionKey),
		).Title("Encryption Key"),
	).RunWithContext(ctx)
}

// runDatabaseGroup prompts for the database engine and, for PostgreSQL,
// its sizing.
func runDatabaseGroup(ctx context.Context, result *Result, defaults *config.Config) error {
	result.DatabaseEngine = config.DatabaseSQLite

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Database").
				Options(DatabaseEngineOptions...).
				Value(&result.DatabaseEngine),
		).Title("Database"),
	).RunWithContext(ctx)
	if err != nil {
		return err
	}
	if result.DatabaseEngine != config.DatabasePostgres {
		return nil
	}

	sizes := DatabaseSizesFor(result.Provider)
	result.DatabaseSize = sizes[0].Value
	result.DatabaseName = "n8n"
	result.DatabaseUser = "n8n"

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Database Size").
				Options(SizingToOptions(sizes)...).
				Value(&result.DatabaseSize),
			huh.NewInput().
				Title("Database Name").
				Placeholder("n8n").
				Value(&result.DatabaseName).
				Validate(requireNonEmpty("database name")),
			huh.NewInput().
				Title("Database Username").
				Placeholder("n8n").
				Value(&result.DatabaseUser).
				Validate(requireNonEmpty("database username")),
		).Title("PostgreSQL"),
	).RunWithContext(ctx)
}

// runTLSGroup prompts for the TLS mode and its parameters.
func runTLSGroup(ctx context.Context, result *Result) error {
	result.TLSMode = config.TLSModeNone

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("TLS").
				Options(TLSModeOptions...).
				Value(&result.TLSMode),
		).Title("TLS"),
	).RunWithContext(ctx)
	if err != nil {
		return err
	}

	switch result.TLSMode {
	case config.TLSModeNone:
		return nil
	case config.TLSModeBYO:
		if result.Domain == "" {
			return errDomainRequired
		}
		return huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Certificate File").
					Placeholder("/path/to/tls.crt").
					Value(&result.TLSCertFile).
					Validate(validateExistingFile(errCertFileRequired)),
				huh.NewInput().
					Title("Private Key File").
					Placeholder("/path/to/tls.key").
					Value(&result.TLSKeyFile).
					Validate(validateKeyFor(&result.TLSCertFile)),
			).Title("Certificate"),
		).RunWithContext(ctx)
	case config.TLSModeLetsEncrypt:
		if result.Domain == "" {
			return errDomainRequired
		}
		result.ACMEEnvironment = config.ACMEProduction
		return huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("ACME Email").
					Description("Expiry notices from Let's Encrypt go here").
					Placeholder("ops@example.com").
					Value(&result.ACMEEmail).
					Validate(config.ValidateEmail),
				huh.NewSelect[string]().
					Title("ACME Environment").
					Options(ACMEEnvironmentOptions...).
					Value(&result.ACMEEnvironment),
			).Title("Let's Encrypt"),
		).RunWithContext(ctx)
	}
	return nil
}

// runBasicAuthGroup prompts for HTTP basic auth.
func runBasicAuthGroup(ctx context.Context, result *Result, defaults *config.Config) error {
	result.BasicAuthEnabled = defaults.BasicAuth.Enabled
	result.BasicAuthUsername = defaults.BasicAuth.Username

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable HTTP Basic Auth?").
				Description("An extra password in front of the n8n login").
				Value(&result.BasicAuthEnabled),
		).Title("Basic Auth"),
	).RunWithContext(ctx)
	if err != nil {
		return err
	}
	if !result.BasicAuthEnabled {
		return nil
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Basic Auth Username").
				Placeholder(defaults.BasicAuth.Username).
				Value(&result.BasicAuthUsername).
				Validate(config.ValidateUsername),
		).Title("Basic Auth"),
	).RunWithContext(ctx)
}

// runSummaryGroup shows the assembled configuration and asks for the final
// go-ahead.
func runSummaryGroup(ctx context.Context, result *Result) error {
	summary := renderSummary(result)

	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Deploy with this configuration?").
				Description(summary).
				Value(&result.Confirmed),
		).Title("Summary"),
	).RunWithContext(ctx)
}

func renderSummary(result *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Provider:   %s (%s)\n", result.Provider, result.Region)
	fmt.Fprintf(&b, "Cluster:    %s (Kubernetes %s)\n", result.ClusterName, result.ClusterVersion)
	fmt.Fprintf(&b, "Nodes:      %s, %d-%d (desired %d)\n",
		result.NodeType, result.MinCount, result.MaxCount, result.DesiredCount)
	fmt.Fprintf(&b, "Namespace:  %s\n", result.Namespace)
	if result.Domain != "" {
		fmt.Fprintf(&b, "Domain:     %s\n", result.Domain)
	}
	fmt.Fprintf(&b, "Storage:    %s\n", result.Persistence)
	fmt.Fprintf(&b, "Database:   %s", result.DatabaseEngine)
	if result.DatabaseSize != "" {
		fmt.Fprintf(&b, " (%s)", result.DatabaseSize)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "TLS:        %s\n", result.TLSMode)
	if result.BasicAuthEnabled {
		fmt.Fprintf(&b, "Basic auth: enabled (user %s)\n", result.BasicAuthUsername)
	} else {
		b.WriteString("Basic auth: disabled\n")
	}
	if result.GenerateKey {
		b.WriteString("Key:        generate fresh")
	} else {
		b.WriteString("Key:        supplied")
	}
	return b.String()
}

func validatePositiveInt(s string) error {
	_, err := config.ParsePositiveInt(s)
	return err
}

func validateOptionalDomain(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return config.ValidateDomain(s)
}

func requireNonEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func validateExistingFile(required error) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return required
		}
		if _, err := os.Stat(s); err != nil {
			return errFileNotFound
		}
		return nil
	}
}

// validateKeyFor checks the key file exists and forms a valid, unexpired
// pair with the certificate entered in the previous field.
func validateKeyFor(certPath *string) func(string) error {
	return func(s string) error {
		if err := validateExistingFile(errKeyFileRequired)(s); err != nil {
			return err
		}
		if _, err := tlsutil.LoadPair(*certPath, s); err != nil {
			return err
		}
		return nil
	}
}
