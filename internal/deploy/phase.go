// Package deploy implements the phased deployment pipeline: infrastructure,
// application, endpoint discovery, and the optional TLS and auth upgrade.
// Phases run strictly in order and a failed phase halts the pipeline.
package deploy

import (
	"context"

	"github.com/lrproduhub/n8nctl/internal/cloud"
	"github.com/lrproduhub/n8nctl/internal/config"
	"github.com/lrproduhub/n8nctl/internal/helm"
	"github.com/lrproduhub/n8nctl/internal/kubectl"
	"github.com/lrproduhub/n8nctl/internal/state"
	"github.com/lrproduhub/n8nctl/internal/terraform"
)

// Status is the lifecycle state of one phase.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Phase is one step of the pipeline.
type Phase struct {
	Name string

	// Skip, when set and true, marks the phase skipped without running it.
	Skip func(d *Context) bool

	Run func(ctx context.Context, d *Context) error
}

// Context carries the dependencies and accumulated results of a run.
type Context struct {
	Config *config.Config
	Store  *config.Store

	State     *state.Manager
	Terraform *terraform.Client
	Helm      *helm.Client
	Kubectl   *kubectl.Client
	Cloud     cloud.Provider
	Secrets   cloud.SecretStore

	// Outputs holds the terraform outputs after the infrastructure phase.
	Outputs map[string]terraform.Output

	// Endpoint is the discovered external address, or empty when discovery
	// soft-failed.
	Endpoint string

	// SoftFailures collects non-fatal problems to report at the end. A run
	// with soft failures still counts as successful.
	SoftFailures []string

	// Credentials are name/value pairs issued during the run, displayed
	// exactly once in the final summary and never persisted.
	Credentials [][2]string

	// Confirm asks the operator a yes/no question. Phases that gate on
	// operator state (DNS records) use it; tests inject answers.
	Confirm func(ctx context.Context, prompt string) (bool, error)
}

// SoftFail records a non-fatal problem.
func (d *Context) SoftFail(msg string) {
	d.SoftFailures = append(d.SoftFailures, msg)
}

// IssueCredential records a credential for the one-time display.
func (d *Context) IssueCredential(name, value string) {
	d.Credentials = append(d.Credentials, [2]string{name, value})
}
