package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lrproduhub/n8nctl/internal/ui"
	"github.com/lrproduhub/n8nctl/internal/util/retry"
)

// Shortened in tests.
var (
	endpointPollInterval = 15 * time.Second
	endpointDeadline     = 5 * time.Minute
)

// EndpointPhase waits for the cloud to assign an external address to the
// ingress. Running out of time is a soft failure: the deployment is up, the
// address just is not visible yet, so the phase reports the manual command
// and succeeds.
func EndpointPhase() Phase {
	return Phase{
		Name: "Endpoint discovery",
		Run: func(ctx context.Context, d *Context) error {
			var address string
			err := retry.Poll(ctx, endpointPollInterval, endpointDeadline, func(ctx context.Context) error {
				addr, err := discoverAddress(ctx, d)
				if err != nil {
					return retry.Fatal(err)
				}
				if addr == "" {
					return errors.New("address not assigned yet")
				}
				address = addr
				return nil
			})
			if err != nil {
				if errors.Is(err, retry.ErrDeadline) {
					msg := fmt.Sprintf("endpoint not assigned after %s; check later with: kubectl -n %s get ingress %s",
						endpointDeadline, d.Config.Namespace, ReleaseName)
					ui.Warnf("%s", msg)
					d.SoftFail(msg)
					return nil
				}
				return err
			}

			d.Endpoint = address
			ui.Infof("external address: %s", address)
			return nil
		},
	}
}

// discoverAddress checks the ingress first, then the chart's LoadBalancer
// service for setups without an ingress controller address.
func discoverAddress(ctx context.Context, d *Context) (string, error) {
	addr, err := d.Kubectl.IngressAddress(ctx, d.Config.Namespace, ReleaseName)
	if err != nil {
		return "", err
	}
	if addr != "" {
		return addr, nil
	}
	return d.Kubectl.ServiceLoadBalancerAddress(ctx, d.Config.Namespace, ReleaseName)
}

// URL returns the address the operator should open, preferring the
// configured domain over the raw load balancer address.
func (d *Context) URL() string {
	host := d.Config.Domain
	if host == "" {
		host = d.Endpoint
	}
	if host == "" {
		return ""
	}
	return d.Config.Protocol() + "://" + host
}
