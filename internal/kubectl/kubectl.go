// Package kubectl drives the kubectl CLI for the handful of cluster
// operations the pipeline needs beyond what helm manages.
package kubectl

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lrproduhub/n8nctl/internal/errdefs"
	"github.com/lrproduhub/n8nctl/internal/runner"
)

const (
	queryTimeout = 2 * time.Minute
	applyTimeout = 5 * time.Minute
)

// Client runs kubectl commands against the current kubeconfig context.
type Client struct {
	run runner.Runner
}

// New returns a kubectl Client.
func New(run runner.Runner) *Client {
	return &Client{run: run}
}

// NamespaceExists reports whether the namespace is present.
func (c *Client) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	res, err := c.run.Run(ctx, runner.Cmd{
		Name:    "kubectl",
		Args:    []string{"get", "namespace", namespace},
		Timeout: queryTimeout,
	})
	if err != nil {
		return false, errdefs.ExternalTool("kubectl get namespace", "", err)
	}
	if res.Success() {
		return true, nil
	}
	if strings.Contains(res.Stderr, "NotFound") {
		return false, nil
	}
	return false, errdefs.ExternalTool("kubectl get namespace", "",
		fmt.Errorf("kubectl exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr)))
}

// CreateNamespace creates the namespace if missing.
func (c *Client) CreateNamespace(ctx context.Context, namespace string) error {
	exists, err := c.NamespaceExists(ctx, namespace)
	if err != nil || exists {
		return err
	}
	return c.exec(ctx, applyTimeout, "create", "namespace", namespace)
}

// DeleteNamespace removes the namespace and everything in it. Absent
// namespaces are tolerated.
func (c *Client) DeleteNamespace(ctx context.Context, namespace string) error {
	return c.tolerantDelete(ctx, "delete", "namespace", namespace, "--wait=false")
}

// WaitDeploymentAvailable blocks until the deployment reports Available or
// the timeout elapses.
func (c *Client) WaitDeploymentAvailable(ctx context.Context, namespace, name string, timeout time.Duration) error {
	res, err := c.run.Run(ctx, runner.Cmd{
		Name: "kubectl",
		Args: []string{"wait", "--namespace", namespace,
			"--for=condition=Available", "deployment/" + name,
			"--timeout", timeout.String()},
		Timeout: timeout + time.Minute,
		Stream:  true,
	})
	if err != nil {
		if ctx.Err() != nil {
			return errdefs.Interrupt(err)
		}
		return errdefs.ExternalTool("kubectl wait", "", err)
	}
	if !res.Success() {
		return errdefs.Timeout("kubectl wait",
			fmt.Sprintf("kubectl -n %s get pods", namespace),
			fmt.Errorf("deployment %s/%s did not become available: %s",
				namespace, name, strings.TrimSpace(res.Stderr)))
	}
	return nil
}

// IngressAddress returns the hostname or IP assigned to an ingress, or
// empty when the controller has not populated it yet.
func (c *Client) IngressAddress(ctx context.Context, namespace, name string) (string, error) {
	host, err := c.jsonpath(ctx, namespace, "ingress", name,
		"{.status.loadBalancer.ingress[0].hostname}")
	if err != nil {
		return "", err
	}
	if host != "" {
		return host, nil
	}
	return c.jsonpath(ctx, namespace, "ingress", name,
		"{.status.loadBalancer.ingress[0].ip}")
}

// ServiceLoadBalancerAddress returns the external address of a LoadBalancer
// service, or empty while the cloud is still provisioning it.
func (c *Client) ServiceLoadBalancerAddress(ctx context.Context, namespace, name string) (string, error) {
	host, err := c.jsonpath(ctx, namespace, "service", name,
		"{.status.loadBalancer.ingress[0].hostname}")
	if err != nil {
		return "", err
	}
	if host != "" {
		return host, nil
	}
	return c.jsonpath(ctx, namespace, "service", name,
		"{.status.loadBalancer.ingress[0].ip}")
}

// CreateTLSSecret creates or replaces a kubernetes.io/tls secret from PEM
// files. The manifest travels on stdin; apply makes it idempotent.
func (c *Client) CreateTLSSecret(ctx context.Context, namespace, name, certPath, keyPath string) error {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return fmt.Errorf("failed to read certificate %s: %w", certPath, err)
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return fmt.Errorf("failed to read private key %s: %w", keyPath, err)
	}
	manifest, err := secretManifest(namespace, name, "kubernetes.io/tls", map[string]string{
		"tls.crt": string(certPEM),
		"tls.key": string(keyPEM),
	})
	if err != nil {
		return err
	}
	return c.ApplyManifest(ctx, manifest)
}

// CreateSecretLiteral creates or replaces a generic secret from key/value
// literals. Values travel only inside the manifest on stdin, never on a
// command line that ps could show.
func (c *Client) CreateSecretLiteral(ctx context.Context, namespace, name string, literals map[string]string) error {
	manifest, err := secretManifest(namespace, name, "Opaque", literals)
	if err != nil {
		return err
	}
	return c.ApplyManifest(ctx, manifest)
}

// secretManifest renders a Secret manifest for kubectl apply.
func secretManifest(namespace, name, secretType string, data map[string]string) (string, error) {
	manifest := struct {
		APIVersion string `yaml:"apiVersion"`
		Kind       string `yaml:"kind"`
		Metadata   struct {
			Name      string `yaml:"name"`
			Namespace string `yaml:"namespace"`
		} `yaml:"metadata"`
		Type       string            `yaml:"type"`
		StringData map[string]string `yaml:"stringData"`
	}{
		APIVersion: "v1",
		Kind:       "Secret",
		Type:       secretType,
		StringData: data,
	}
	manifest.Metadata.Name = name
	manifest.Metadata.Namespace = namespace

	out, err := yaml.Marshal(manifest)
	if err != nil {
		return "", fmt.Errorf("failed to render secret %s/%s: %w", namespace, name, err)
	}
	return string(out), nil
}

// DeleteSecret removes a secret, tolerating absence.
func (c *Client) DeleteSecret(ctx context.Context, namespace, name string) error {
	return c.tolerantDelete(ctx, "delete", "secret", name, "--namespace", namespace)
}

// DeletePersistentVolumeClaims removes every PVC in the namespace so the
// backing volumes are released before the infrastructure goes away.
func (c *Client) DeletePersistentVolumeClaims(ctx context.Context, namespace string) error {
	return c.tolerantDelete(ctx, "delete", "pvc", "--all", "--namespace", namespace)
}

// ApplyManifest applies a YAML manifest provided on stdin.
func (c *Client) ApplyManifest(ctx context.Context, manifest string) error {
	res, err := c.run.Run(ctx, runner.Cmd{
		Name:    "kubectl",
		Args:    []string{"apply", "-f", "-"},
		Stdin:   manifest,
		Timeout: applyTimeout,
	})
	if err != nil {
		return errdefs.ExternalTool("kubectl apply", "", err)
	}
	if !res.Success() {
		return errdefs.ExternalTool("kubectl apply", "",
			fmt.Errorf("kubectl apply exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr)))
	}
	return nil
}

// DeleteManifest deletes the resources of a YAML manifest provided on
// stdin, tolerating resources that are already gone.
func (c *Client) DeleteManifest(ctx context.Context, manifest string) error {
	res, err := c.run.Run(ctx, runner.Cmd{
		Name:    "kubectl",
		Args:    []string{"delete", "--ignore-not-found", "-f", "-"},
		Stdin:   manifest,
		Timeout: applyTimeout,
	})
	if err != nil {
		return errdefs.ExternalTool("kubectl delete", "", err)
	}
	if !res.Success() {
		return errdefs.ExternalTool("kubectl delete", "",
			fmt.Errorf("kubectl delete exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr)))
	}
	return nil
}

func (c *Client) jsonpath(ctx context.Context, namespace, kind, name, path string) (string, error) {
	res, err := c.run.Run(ctx, runner.Cmd{
		Name: "kubectl",
		Args: []string{"get", kind, name, "--namespace", namespace,
			"-o", "jsonpath=" + path},
		Timeout: queryTimeout,
	})
	if err != nil {
		return "", errdefs.ExternalTool("kubectl get "+kind, "", err)
	}
	if !res.Success() {
		if strings.Contains(res.Stderr, "NotFound") {
			return "", nil
		}
		return "", errdefs.ExternalTool("kubectl get "+kind, "",
			fmt.Errorf("kubectl exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr)))
	}
	return strings.TrimSpace(res.Stdout), nil
}

func (c *Client) tolerantDelete(ctx context.Context, args ...string) error {
	res, err := c.run.Run(ctx, runner.Cmd{
		Name:    "kubectl",
		Args:    args,
		Timeout: applyTimeout,
		Stream:  true,
	})
	if err != nil {
		return errdefs.ExternalTool("kubectl delete", "", err)
	}
	if !res.Success() {
		if strings.Contains(res.Stderr, "NotFound") {
			return nil
		}
		return errdefs.ExternalTool("kubectl delete", "",
			fmt.Errorf("kubectl delete exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr)))
	}
	return nil
}

func (c *Client) exec(ctx context.Context, timeout time.Duration, args ...string) error {
	op := "kubectl " + args[0]
	res, err := c.run.Run(ctx, runner.Cmd{
		Name:    "kubectl",
		Args:    args,
		Timeout: timeout,
	})
	if err != nil {
		return errdefs.ExternalTool(op, "", err)
	}
	if !res.Success() {
		return errdefs.ExternalTool(op, "",
			fmt.Errorf("%s exited %d: %s", op, res.ExitCode, strings.TrimSpace(res.Stderr)))
	}
	return nil
}
