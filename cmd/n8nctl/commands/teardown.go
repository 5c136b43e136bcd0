package commands

import (
	"github.com/spf13/cobra"

	"github.com/lrproduhub/n8nctl/cmd/n8nctl/handlers"
)

// Teardown returns the teardown command.
//
// The teardown command destroys the deployment recorded by the last run:
// the helm releases, the namespace, and the terraform-managed
// infrastructure. Destruction is gated behind two confirmations and an
// abortable countdown.
func Teardown() *cobra.Command {
	var (
		purgeSecrets bool
		skipCluster  bool
		yes          bool
	)

	cmd := &cobra.Command{
		Use:   "teardown",
		Short: "Destroy the deployed n8n instance and its infrastructure",
		Long: `Teardown removes everything the last deploy created.

In-cluster resources are removed first (the n8n release, cert-manager if
installed, the namespace), then deletion protection is lifted from the
managed database, then terraform destroys the infrastructure. Resources
that are already gone are skipped, so a partially failed teardown can be
rerun safely.

The encryption key stays in the cloud secret manager unless
--purge-secrets is given; without it a later deploy of the same cluster
can decrypt existing workflow data.

Example:
  n8nctl teardown
  n8nctl teardown --purge-secrets

WARNING: This operation is irreversible. All workflow data will be lost.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Teardown(cmd.Context(), purgeSecrets, skipCluster, yes)
		},
	}

	cmd.Flags().BoolVar(&purgeSecrets, "purge-secrets", false, "Also remove the encryption key from the cloud secret manager")
	cmd.Flags().BoolVar(&skipCluster, "skip-cluster", false, "Skip the in-cluster cleanup stage")
	cmd.Flags().BoolVar(&yes, "yes", false, "Skip confirmation prompts and the countdown (non-interactive use)")

	return cmd
}
