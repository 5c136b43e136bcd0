// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the n8nctl CLI.
//
// The root command serves as the entry point and parent for all subcommands.
// It provides basic CLI metadata and organizes the command hierarchy.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "n8nctl",
		Short: "Deploy and operate n8n on managed Kubernetes",

		// Errors carry their own context and are rendered by main;
		// usage noise on a failed deploy helps nobody.
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Lifecycle commands
	cmd.AddCommand(Deploy())
	cmd.AddCommand(Teardown())
	cmd.AddCommand(TLS())

	// Operations commands
	cmd.AddCommand(Doctor())
	cmd.AddCommand(State())

	// Utility commands
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
