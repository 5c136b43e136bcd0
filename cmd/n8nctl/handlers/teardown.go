package handlers

import (
	"context"

	"github.com/lrproduhub/n8nctl/internal/session"
)

// Teardown handles the teardown command.
//
// It destroys the deployment recorded by the last run. With yes the
// confirmations and the countdown are skipped.
func Teardown(ctx context.Context, purgeSecrets, skipCluster, yes bool) error {
	dir, err := workDir()
	if err != nil {
		return err
	}
	return newController(dir, newRunner(), "", false).Teardown(ctx, session.TeardownOptions{
		PurgeSecrets: purgeSecrets,
		SkipCluster:  skipCluster,
		Force:        yes,
	})
}
