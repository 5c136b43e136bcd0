// Package cloud abstracts the two supported clouds behind one interface:
// credential discovery, identity verification, kubeconfig wiring, the
// secret store, and the provider-specific teardown quirks.
package cloud

import (
	"context"
	"fmt"

	"github.com/lrproduhub/n8nctl/internal/config"
	"github.com/lrproduhub/n8nctl/internal/prereq"
	"github.com/lrproduhub/n8nctl/internal/runner"
)

// Identity describes the verified cloud principal a deployment runs as.
type Identity struct {
	// Account is the AWS account ID or Azure subscription ID.
	Account string

	// Principal is the caller ARN or Azure user name.
	Principal string
}

// SecretStore reads and writes named secrets in the cloud's secret service.
// Values never touch the local filesystem.
type SecretStore interface {
	Put(ctx context.Context, name, value string) error
	Get(ctx context.Context, name string) (string, error)
	Delete(ctx context.Context, name string) error
}

// Provider is one supported cloud.
type Provider interface {
	// Name returns the provider identifier ("aws" or "azure").
	Name() string

	// Tools returns the full prerequisite tool set for this cloud.
	Tools() []prereq.Tool

	// DiscoverProfiles lists the locally configured profiles or
	// subscriptions the operator can choose from.
	DiscoverProfiles(ctx context.Context) ([]string, error)

	// DiscoverRegions lists the regions available to the profile.
	DiscoverRegions(ctx context.Context, profile string) ([]string, error)

	// VerifyIdentity confirms the profile's credentials actually work
	// before any resource is touched.
	VerifyIdentity(ctx context.Context, profile string) (*Identity, error)

	// ConfigureKubeconfig points the local kubeconfig at the newly
	// provisioned cluster.
	ConfigureKubeconfig(ctx context.Context, cfg *config.Config) error

	// SecretStore returns the secret store scoped to the deployment.
	SecretStore(ctx context.Context, cfg *config.Config) (SecretStore, error)

	// PrepareTeardown clears provider-side guards that would make
	// terraform destroy fail, such as RDS deletion protection. It must
	// tolerate resources that are already gone.
	PrepareTeardown(ctx context.Context, cfg *config.Config) error
}

// ForName returns the Provider for a provider identifier.
func ForName(name string, run runner.Runner) (Provider, error) {
	switch name {
	case config.ProviderAWS:
		return NewAWS(run), nil
	case config.ProviderAzure:
		return NewAzure(run), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", name)
	}
}
