package deploy

import (
	"context"
	"fmt"

	"github.com/lrproduhub/n8nctl/internal/ui"
)

// InfrastructurePhase provisions the cluster with terraform and points the
// local kubeconfig at it. With skip set, the phase assumes the cluster from
// a previous run is still there and only refreshes outputs and kubeconfig.
func InfrastructurePhase(skip bool) Phase {
	return Phase{
		Name: "Infrastructure",
		Run: func(ctx context.Context, d *Context) error {
			// The tfvars reference the db-credentials secret by name, so
			// it must exist before terraform reads them.
			if err := ensureDatabaseCredentials(ctx, d); err != nil {
				return err
			}

			if !skip {
				if err := d.Terraform.Init(ctx); err != nil {
					return err
				}
				if err := d.Terraform.Plan(ctx); err != nil {
					return err
				}
				if err := d.Terraform.Apply(ctx); err != nil {
					return err
				}
			} else {
				ui.Infof("reusing existing infrastructure")
			}

			outputs, err := d.Terraform.Outputs(ctx)
			if err != nil {
				return fmt.Errorf("failed to read terraform outputs: %w", err)
			}
			d.Outputs = outputs

			if err := d.Cloud.ConfigureKubeconfig(ctx, d.Config); err != nil {
				return err
			}
			ui.Infof("kubeconfig updated for cluster %s", d.Config.ClusterName)
			return nil
		},
	}
}
