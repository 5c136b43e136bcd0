package wizard

import (
	"github.com/charmbracelet/huh"

	"github.com/lrproduhub/n8nctl/internal/config"
)

// SizingOption describes one instance type choice.
type SizingOption struct {
	Value       string
	Label       string
	Description string
}

// AWSNodeTypes contains the recommended EKS worker instance types.
var AWSNodeTypes = []SizingOption{
	{Value: "t3.medium", Label: "t3.medium", Description: "2 vCPU, 4GB RAM (burstable)"},
	{Value: "t3.large", Label: "t3.large", Description: "2 vCPU, 8GB RAM (burstable)"},
	{Value: "m5.large", Label: "m5.large", Description: "2 vCPU, 8GB RAM"},
	{Value: "m5.xlarge", Label: "m5.xlarge", Description: "4 vCPU, 16GB RAM"},
}

// AzureNodeTypes contains the recommended AKS worker VM sizes.
var AzureNodeTypes = []SizingOption{
	{Value: "Standard_B2s", Label: "Standard_B2s", Description: "2 vCPU, 4GB RAM (burstable)"},
	{Value: "Standard_D2s_v3", Label: "Standard_D2s_v3", Description: "2 vCPU, 8GB RAM"},
	{Value: "Standard_D4s_v3", Label: "Standard_D4s_v3", Description: "4 vCPU, 16GB RAM"},
}

// AWSDatabaseClasses contains the recommended RDS instance classes.
var AWSDatabaseClasses = []SizingOption{
	{Value: "db.t3.micro", Label: "db.t3.micro", Description: "2 vCPU, 1GB RAM"},
	{Value: "db.t3.small", Label: "db.t3.small", Description: "2 vCPU, 2GB RAM"},
	{Value: "db.t3.medium", Label: "db.t3.medium", Description: "2 vCPU, 4GB RAM"},
}

// AzureDatabaseSKUs contains the recommended flexible-server SKUs.
var AzureDatabaseSKUs = []SizingOption{
	{Value: "B_Standard_B1ms", Label: "B_Standard_B1ms", Description: "1 vCPU, 2GB RAM (burstable)"},
	{Value: "B_Standard_B2s", Label: "B_Standard_B2s", Description: "2 vCPU, 4GB RAM (burstable)"},
	{Value: "GP_Standard_D2s_v3", Label: "GP_Standard_D2s_v3", Description: "2 vCPU, 8GB RAM"},
}

// ClusterVersions contains the supported Kubernetes control plane versions.
var ClusterVersions = []huh.Option[string]{
	huh.NewOption("1.31 (Latest stable)", "1.31"),
	huh.NewOption("1.30", "1.30"),
	huh.NewOption("1.29", "1.29"),
}

// ProviderOptions contains the supported clouds.
var ProviderOptions = []huh.Option[string]{
	huh.NewOption("AWS (EKS)", config.ProviderAWS),
	huh.NewOption("Azure (AKS)", config.ProviderAzure),
}

// DatabaseEngineOptions contains the supported database engines.
var DatabaseEngineOptions = []huh.Option[string]{
	huh.NewOption("SQLite on the persistent volume (default)", config.DatabaseSQLite),
	huh.NewOption("Managed PostgreSQL", config.DatabasePostgres),
}

// TLSModeOptions contains the supported TLS modes.
var TLSModeOptions = []huh.Option[string]{
	huh.NewOption("None (plain HTTP)", config.TLSModeNone),
	huh.NewOption("Bring your own certificate", config.TLSModeBYO),
	huh.NewOption("Let's Encrypt via cert-manager", config.TLSModeLetsEncrypt),
}

// ACMEEnvironmentOptions contains the Let's Encrypt environments.
var ACMEEnvironmentOptions = []huh.Option[string]{
	huh.NewOption("Staging (untrusted certs, generous rate limits)", config.ACMEStaging),
	huh.NewOption("Production (trusted certs, strict rate limits)", config.ACMEProduction),
}

// KeySourceOptions selects between generating and supplying the key.
var KeySourceOptions = []huh.Option[bool]{
	huh.NewOption("Generate a fresh key (recommended)", true),
	huh.NewOption("Supply an existing key", false),
}

// SizingToOptions converts SizingOption slice to huh.Option slice.
func SizingToOptions(sizes []SizingOption) []huh.Option[string] {
	opts := make([]huh.Option[string], len(sizes))
	for i, s := range sizes {
		opts[i] = huh.NewOption(s.Label+" - "+s.Description, s.Value)
	}
	return opts
}

// StringsToOptions converts plain strings to huh.Option slice.
func StringsToOptions(values []string) []huh.Option[string] {
	opts := make([]huh.Option[string], len(values))
	for i, v := range values {
		opts[i] = huh.NewOption(v, v)
	}
	return opts
}

// NodeTypesFor returns the instance type options for a provider.
func NodeTypesFor(provider string) []SizingOption {
	if provider == config.ProviderAzure {
		return AzureNodeTypes
	}
	return AWSNodeTypes
}

// DatabaseSizesFor returns the managed database sizing options for a
// provider.
func DatabaseSizesFor(provider string) []SizingOption {
	if provider == config.ProviderAzure {
		return AzureDatabaseSKUs
	}
	return AWSDatabaseClasses
}
