package commands

import (
	"github.com/spf13/cobra"

	"github.com/lrproduhub/n8nctl/cmd/n8nctl/handlers"
)

// Deploy returns the deploy command.
//
// The deploy command walks the operator through an interactive
// configuration wizard and then provisions the full stack: managed
// Kubernetes, an optional managed database, and the n8n release.
func Deploy() *cobra.Command {
	var (
		cloudName string
		skipInfra bool
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy n8n to AWS or Azure",
		Long: `Deploy provisions n8n on a managed Kubernetes cluster.

The command runs an interactive wizard to collect the deployment
configuration, then executes the phases in order:
  1. Infrastructure (terraform: cluster, networking, optional database)
  2. Application (helm: the n8n release and its secrets)
  3. Endpoint discovery (the public address of the ingress)
  4. TLS and basic auth (optional, per the chosen configuration)

Generated credentials are stored in the cloud secret manager and shown
exactly once at the end of the run. On failure or interrupt the managed
configuration files are restored to their pre-run state.

Example:
  n8nctl deploy
  n8nctl deploy --cloud aws
  n8nctl deploy --skip-infra`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Deploy(cmd.Context(), cloudName, skipInfra)
		},
	}

	cmd.Flags().StringVar(&cloudName, "cloud", "", "Target cloud: aws or azure (default: ask)")
	cmd.Flags().BoolVar(&skipInfra, "skip-infra", false, "Reuse existing infrastructure, deploy the application only")

	return cmd
}
