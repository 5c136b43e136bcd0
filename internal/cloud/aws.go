package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/lrproduhub/n8nctl/internal/config"
	"github.com/lrproduhub/n8nctl/internal/errdefs"
	"github.com/lrproduhub/n8nctl/internal/prereq"
	"github.com/lrproduhub/n8nctl/internal/runner"
)

const awsCLITimeout = 2 * time.Minute

// defaultAWSRegions is the fallback when the region query fails, for
// example when the profile lacks ec2:DescribeRegions.
var defaultAWSRegions = []string{
	"us-east-1", "us-east-2", "us-west-1", "us-west-2",
	"eu-west-1", "eu-west-2", "eu-central-1",
	"ap-southeast-1", "ap-southeast-2", "ap-northeast-1",
	"sa-east-1",
}

// AWS deploys to EKS.
type AWS struct {
	run runner.Runner

	// userHomeDir is replaced in tests.
	userHomeDir func() (string, error)

	newSecretStore func(ctx context.Context, profile, region string) (SecretStore, error)
}

// NewAWS returns the AWS provider.
func NewAWS(run runner.Runner) *AWS {
	return &AWS{
		run:            run,
		userHomeDir:    os.UserHomeDir,
		newSecretStore: newSecretsManagerStore,
	}
}

func (a *AWS) Name() string { return config.ProviderAWS }

func (a *AWS) Tools() []prereq.Tool {
	return prereq.ForProvider(config.ProviderAWS)
}

// DiscoverProfiles reads ~/.aws/credentials and ~/.aws/config directly and
// falls back to the CLI when neither file is readable.
func (a *AWS) DiscoverProfiles(ctx context.Context) ([]string, error) {
	if profiles := a.profilesFromFiles(); len(profiles) > 0 {
		return profiles, nil
	}

	res, err := a.run.Run(ctx, runner.Cmd{
		Name:    "aws",
		Args:    []string{"configure", "list-profiles"},
		Timeout: awsCLITimeout,
	})
	if err != nil || !res.Success() {
		return nil, errdefs.Precondition("aws profiles",
			fmt.Errorf("no AWS profiles found; run 'aws configure' first"))
	}
	var profiles []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		if p := strings.TrimSpace(line); p != "" {
			profiles = append(profiles, p)
		}
	}
	if len(profiles) == 0 {
		return nil, errdefs.Precondition("aws profiles",
			fmt.Errorf("no AWS profiles found; run 'aws configure' first"))
	}
	return profiles, nil
}

func (a *AWS) profilesFromFiles() []string {
	home, err := a.userHomeDir()
	if err != nil {
		return nil
	}

	seen := map[string]bool{}
	if f, err := ini.Load(filepath.Join(home, ".aws", "credentials")); err == nil {
		for _, sec := range f.Sections() {
			if name := sec.Name(); name != ini.DefaultSection {
				seen[name] = true
			}
		}
	}
	if f, err := ini.Load(filepath.Join(home, ".aws", "config")); err == nil {
		for _, sec := range f.Sections() {
			name := sec.Name()
			if name == ini.DefaultSection {
				continue
			}
			// Config sections are "profile xyz" except for "default".
			name = strings.TrimPrefix(name, "profile ")
			seen[name] = true
		}
	}

	profiles := make([]string, 0, len(seen))
	for p := range seen {
		profiles = append(profiles, p)
	}
	sort.Strings(profiles)
	return profiles
}

func (a *AWS) DiscoverRegions(ctx context.Context, profile string) ([]string, error) {
	res, err := a.run.Run(ctx, runner.Cmd{
		Name: "aws",
		Args: []string{"ec2", "describe-regions",
			"--query", "Regions[].RegionName",
			"--output", "json",
			"--profile", profile},
		Timeout: awsCLITimeout,
	})
	if err != nil || !res.Success() {
		return defaultAWSRegions, nil
	}
	var regions []string
	if err := json.Unmarshal([]byte(res.Stdout), &regions); err != nil || len(regions) == 0 {
		return defaultAWSRegions, nil
	}
	sort.Strings(regions)
	return regions, nil
}

// VerifyIdentity calls sts get-caller-identity, the cheapest call that
// proves the profile's credentials are alive.
func (a *AWS) VerifyIdentity(ctx context.Context, profile string) (*Identity, error) {
	res, err := a.run.Run(ctx, runner.Cmd{
		Name: "aws",
		Args: []string{"sts", "get-caller-identity",
			"--output", "json", "--profile", profile},
		Timeout: awsCLITimeout,
	})
	if err != nil {
		return nil, errdefs.ExternalTool("aws sts get-caller-identity", "", err)
	}
	if !res.Success() {
		return nil, errdefs.Precondition("aws identity",
			fmt.Errorf("credentials for profile %q are not valid: %s",
				profile, strings.TrimSpace(res.Stderr)))
	}

	var ident struct {
		Account string `json:"Account"`
		Arn     string `json:"Arn"`
	}
	if err := json.Unmarshal([]byte(res.Stdout), &ident); err != nil {
		return nil, fmt.Errorf("failed to parse caller identity: %w", err)
	}
	return &Identity{Account: ident.Account, Principal: ident.Arn}, nil
}

func (a *AWS) ConfigureKubeconfig(ctx context.Context, cfg *config.Config) error {
	res, err := a.run.Run(ctx, runner.Cmd{
		Name: "aws",
		Args: []string{"eks", "update-kubeconfig",
			"--name", cfg.ClusterName,
			"--region", cfg.Region,
			"--profile", cfg.Profile},
		Timeout: awsCLITimeout,
		Stream:  true,
	})
	if err != nil {
		return errdefs.ExternalTool("aws eks update-kubeconfig", "", err)
	}
	if !res.Success() {
		return errdefs.ExternalTool("aws eks update-kubeconfig", "",
			fmt.Errorf("exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr)))
	}
	return nil
}

func (a *AWS) SecretStore(ctx context.Context, cfg *config.Config) (SecretStore, error) {
	return a.newSecretStore(ctx, cfg.Profile, cfg.Region)
}

// PrepareTeardown drops RDS deletion protection so terraform destroy can
// remove the managed database. A database that is already gone is fine.
func (a *AWS) PrepareTeardown(ctx context.Context, cfg *config.Config) error {
	if !cfg.UsesManagedDatabase() {
		return nil
	}
	res, err := a.run.Run(ctx, runner.Cmd{
		Name: "aws",
		Args: []string{"rds", "modify-db-instance",
			"--db-instance-identifier", cfg.ClusterName + "-db",
			"--no-deletion-protection",
			"--region", cfg.Region,
			"--profile", cfg.Profile},
		Timeout: awsCLITimeout,
	})
	if err != nil {
		return errdefs.ExternalTool("aws rds modify-db-instance", "", err)
	}
	if !res.Success() {
		if strings.Contains(res.Stderr, "DBInstanceNotFound") {
			return nil
		}
		return errdefs.ExternalTool("aws rds modify-db-instance", "",
			fmt.Errorf("exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr)))
	}
	return nil
}
