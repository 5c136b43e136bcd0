package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lrproduhub/n8nctl/internal/config"
	"github.com/lrproduhub/n8nctl/internal/errdefs"
	"github.com/lrproduhub/n8nctl/internal/prereq"
	"github.com/lrproduhub/n8nctl/internal/runner"
)

const azCLITimeout = 2 * time.Minute

var defaultAzureRegions = []string{
	"eastus", "eastus2", "westus2", "westus3", "centralus",
	"northeurope", "westeurope", "uksouth",
	"southeastasia", "australiaeast", "brazilsouth",
}

// Azure deploys to AKS.
type Azure struct {
	run runner.Runner
}

// NewAzure returns the Azure provider.
func NewAzure(run runner.Runner) *Azure {
	return &Azure{run: run}
}

func (z *Azure) Name() string { return config.ProviderAzure }

func (z *Azure) Tools() []prereq.Tool {
	return prereq.ForProvider(config.ProviderAzure)
}

// DiscoverProfiles lists the subscription IDs az is logged into.
func (z *Azure) DiscoverProfiles(ctx context.Context) ([]string, error) {
	res, err := z.run.Run(ctx, runner.Cmd{
		Name:    "az",
		Args:    []string{"account", "list", "--output", "json"},
		Timeout: azCLITimeout,
	})
	if err != nil {
		return nil, errdefs.ExternalTool("az account list", "", err)
	}
	if !res.Success() {
		return nil, errdefs.Precondition("azure subscriptions",
			fmt.Errorf("not logged into Azure; run 'az login' first"))
	}

	var accounts []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(res.Stdout), &accounts); err != nil {
		return nil, fmt.Errorf("failed to parse az account list: %w", err)
	}
	if len(accounts) == 0 {
		return nil, errdefs.Precondition("azure subscriptions",
			fmt.Errorf("no Azure subscriptions available; run 'az login' first"))
	}
	subs := make([]string, len(accounts))
	for i, a := range accounts {
		subs[i] = a.ID
	}
	return subs, nil
}

func (z *Azure) DiscoverRegions(ctx context.Context, profile string) ([]string, error) {
	res, err := z.run.Run(ctx, runner.Cmd{
		Name: "az",
		Args: []string{"account", "list-locations",
			"--query", "[].name",
			"--output", "json",
			"--subscription", profile},
		Timeout: azCLITimeout,
	})
	if err != nil || !res.Success() {
		return defaultAzureRegions, nil
	}
	var regions []string
	if err := json.Unmarshal([]byte(res.Stdout), &regions); err != nil || len(regions) == 0 {
		return defaultAzureRegions, nil
	}
	return regions, nil
}

func (z *Azure) VerifyIdentity(ctx context.Context, profile string) (*Identity, error) {
	res, err := z.run.Run(ctx, runner.Cmd{
		Name: "az",
		Args: []string{"account", "show",
			"--subscription", profile, "--output", "json"},
		Timeout: azCLITimeout,
	})
	if err != nil {
		return nil, errdefs.ExternalTool("az account show", "", err)
	}
	if !res.Success() {
		return nil, errdefs.Precondition("azure identity",
			fmt.Errorf("subscription %q is not accessible: %s",
				profile, strings.TrimSpace(res.Stderr)))
	}

	var account struct {
		ID   string `json:"id"`
		User struct {
			Name string `json:"name"`
		} `json:"user"`
	}
	if err := json.Unmarshal([]byte(res.Stdout), &account); err != nil {
		return nil, fmt.Errorf("failed to parse az account show: %w", err)
	}
	return &Identity{Account: account.ID, Principal: account.User.Name}, nil
}

func (z *Azure) ConfigureKubeconfig(ctx context.Context, cfg *config.Config) error {
	res, err := z.run.Run(ctx, runner.Cmd{
		Name: "az",
		Args: []string{"aks", "get-credentials",
			"--resource-group", cfg.EffectiveResourceGroup(),
			"--name", cfg.ClusterName,
			"--subscription", cfg.Profile,
			"--overwrite-existing"},
		Timeout: azCLITimeout,
		Stream:  true,
	})
	if err != nil {
		return errdefs.ExternalTool("az aks get-credentials", "", err)
	}
	if !res.Success() {
		return errdefs.ExternalTool("az aks get-credentials", "",
			fmt.Errorf("exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr)))
	}
	return nil
}

func (z *Azure) SecretStore(ctx context.Context, cfg *config.Config) (SecretStore, error) {
	return &keyVaultStore{
		run:          z.run,
		vault:        cfg.ClusterName + "-kv",
		subscription: cfg.Profile,
	}, nil
}

// PrepareTeardown is a no-op on Azure; flexible servers carry no deletion
// protection flag.
func (z *Azure) PrepareTeardown(ctx context.Context, cfg *config.Config) error {
	return nil
}

// keyVaultStore stores deployment secrets in Azure Key Vault through the
// az CLI.
type keyVaultStore struct {
	run          runner.Runner
	vault        string
	subscription string
}

// vaultSecretName maps the slash-separated secret names onto Key Vault's
// alphanumeric-and-hyphen namespace.
func vaultSecretName(name string) string {
	return strings.ReplaceAll(name, "/", "-")
}

func (k *keyVaultStore) Put(ctx context.Context, name, value string) error {
	res, err := k.run.Run(ctx, runner.Cmd{
		Name: "az",
		Args: []string{"keyvault", "secret", "set",
			"--vault-name", k.vault,
			"--name", vaultSecretName(name),
			"--file", "/dev/stdin",
			"--description", "Managed by n8nctl; deleted by 'n8nctl teardown'",
			"--subscription", k.subscription,
			"--output", "none"},
		Stdin:   value,
		Timeout: azCLITimeout,
	})
	if err != nil {
		return errdefs.ExternalTool("az keyvault secret set", "", err)
	}
	if !res.Success() {
		return errdefs.ExternalTool("az keyvault secret set", "",
			fmt.Errorf("failed to store secret %s: %s", name, strings.TrimSpace(res.Stderr)))
	}
	return nil
}

func (k *keyVaultStore) Get(ctx context.Context, name string) (string, error) {
	res, err := k.run.Run(ctx, runner.Cmd{
		Name: "az",
		Args: []string{"keyvault", "secret", "show",
			"--vault-name", k.vault,
			"--name", vaultSecretName(name),
			"--subscription", k.subscription,
			"--query", "value",
			"--output", "tsv"},
		Timeout: azCLITimeout,
	})
	if err != nil {
		return "", errdefs.ExternalTool("az keyvault secret show", "", err)
	}
	if !res.Success() {
		return "", errdefs.ExternalTool("az keyvault secret show", "",
			fmt.Errorf("failed to read secret %s: %s", name, strings.TrimSpace(res.Stderr)))
	}
	return strings.TrimRight(res.Stdout, "\n"), nil
}

func (k *keyVaultStore) Delete(ctx context.Context, name string) error {
	res, err := k.run.Run(ctx, runner.Cmd{
		Name: "az",
		Args: []string{"keyvault", "secret", "delete",
			"--vault-name", k.vault,
			"--name", vaultSecretName(name),
			"--subscription", k.subscription,
			"--output", "none"},
		Timeout: azCLITimeout,
	})
	if err != nil {
		return errdefs.ExternalTool("az keyvault secret delete", "", err)
	}
	if !res.Success() {
		if strings.Contains(res.Stderr, "SecretNotFound") {
			return nil
		}
		return errdefs.ExternalTool("az keyvault secret delete", "",
			fmt.Errorf("failed to delete secret %s: %s", name, strings.TrimSpace(res.Stderr)))
	}
	return nil
}
