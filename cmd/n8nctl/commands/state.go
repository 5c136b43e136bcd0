package commands

import (
	"github.com/spf13/cobra"

	"github.com/lrproduhub/n8nctl/cmd/n8nctl/handlers"
)

// State returns the state command and its subcommands.
//
// Terraform state is keyed to the region it was created in. The state
// subcommands let the operator park the current state and switch to a
// different region without the two deployments corrupting each other.
func State() *cobra.Command {
	var cloudName string

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Manage region-keyed terraform state snapshots",
		Long: `State manages the terraform state kept per cloud and region.

A state file is bound to the region it was created in; deploying to a
different region over it would orphan the existing infrastructure. Use
'state save' to park the current state as a region-keyed snapshot and
'state restore' to bring a parked region back.

Example:
  n8nctl state list
  n8nctl state save
  n8nctl state restore eu-west-1`,
	}

	cmd.PersistentFlags().StringVar(&cloudName, "cloud", "", "Cloud whose state to manage: aws or azure (default: last deployed)")

	list := &cobra.Command{
		Use:   "list",
		Short: "Show the live state and saved snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.StateList(cmd.Context(), cloudName)
		},
	}

	save := &cobra.Command{
		Use:   "save",
		Short: "Park the live state as a region-keyed snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.StateSave(cmd.Context(), cloudName)
		},
	}

	restore := &cobra.Command{
		Use:   "restore <region>",
		Short: "Restore the newest snapshot for a region",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.StateRestore(cmd.Context(), cloudName, args[0])
		},
	}

	cmd.AddCommand(list)
	cmd.AddCommand(save)
	cmd.AddCommand(restore)

	return cmd
}
