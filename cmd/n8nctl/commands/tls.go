package commands

import (
	"github.com/spf13/cobra"

	"github.com/lrproduhub/n8nctl/cmd/n8nctl/handlers"
)

// TLS returns the tls command.
//
// The tls command retrofits TLS onto a running deployment without
// touching the infrastructure or rotating credentials.
func TLS() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tls",
		Short: "Upgrade a running deployment to TLS",
		Long: `TLS upgrades an existing deployment to serve over HTTPS.

The command asks for a TLS mode and its inputs, then runs only the TLS
phase against the running release:

  byo          - install an operator-supplied certificate and key
  letsencrypt  - install cert-manager and issue a certificate via ACME

For letsencrypt the command confirms that the domain's DNS record points
at the load balancer before anything is installed; declining the
confirmation leaves the deployment untouched.

Example:
  n8nctl tls`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.TLS(cmd.Context())
		},
	}

	return cmd
}
