package commands

import (
	"github.com/spf13/cobra"

	"github.com/lrproduhub/n8nctl/cmd/n8nctl/handlers"
)

// Doctor returns the doctor command.
//
// The doctor command checks the local environment: required CLI tools,
// their versions, and the recorded deployment state.
func Doctor() *cobra.Command {
	var cloudName string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check required tools and deployment state",
		Long: `Doctor inspects the local environment without changing anything.

It verifies that terraform, helm, and kubectl are installed and recent
enough, checks the cloud CLI for the selected (or last deployed) cloud,
and reports what the last run deployed and which terraform state is
live.

Example:
  n8nctl doctor
  n8nctl doctor --cloud azure`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Doctor(cmd.Context(), cloudName)
		},
	}

	cmd.Flags().StringVar(&cloudName, "cloud", "", "Cloud to check tools for: aws or azure (default: last deployed)")

	return cmd
}
