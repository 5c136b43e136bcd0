// Package handlers implements the execution logic behind each CLI
// command. Commands parse flags; handlers wire the session controller
// and supporting packages together and run the operation.
package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/lrproduhub/n8nctl/internal/config"
	"github.com/lrproduhub/n8nctl/internal/errdefs"
	"github.com/lrproduhub/n8nctl/internal/runner"
	"github.com/lrproduhub/n8nctl/internal/session"
)

// Controller is the slice of session.Controller the handlers drive.
type Controller interface {
	Deploy(ctx context.Context) error
	Teardown(ctx context.Context, opts session.TeardownOptions) error
	TLSUpgrade(ctx context.Context) error
}

// Factory function variables - can be replaced in tests.
var (
	// workDir resolves the project directory the managed files live under.
	workDir = os.Getwd

	// newRunner builds the subprocess runner shared by all handlers.
	newRunner = func() runner.Runner { return runner.New() }

	// newController builds the session controller for a run.
	newController = func(dir string, run runner.Runner, provider string, skipInfra bool) Controller {
		c := session.NewController(dir, run)
		c.Provider = provider
		c.SkipInfra = skipInfra
		return c
	}
)

// validCloud rejects anything other than the supported clouds. Empty is
// allowed where the caller can fall back to the wizard or the last run.
func validCloud(name string) error {
	switch name {
	case "", config.ProviderAWS, config.ProviderAzure:
		return nil
	default:
		return errdefs.Validation("cloud",
			fmt.Errorf("unknown cloud %q (use %s or %s)", name, config.ProviderAWS, config.ProviderAzure))
	}
}
