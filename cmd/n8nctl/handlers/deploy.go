package handlers

import "context"

// Deploy handles the deploy command.
//
// It runs the interactive wizard, provisions the infrastructure and the
// application, and prints the one-time credential summary. The cloud may
// be pinned with cloudName; empty lets the wizard ask.
func Deploy(ctx context.Context, cloudName string, skipInfra bool) error {
	if err := validCloud(cloudName); err != nil {
		return err
	}
	dir, err := workDir()
	if err != nil {
		return err
	}
	return newController(dir, newRunner(), cloudName, skipInfra).Deploy(ctx)
}
