package handlers

import "context"

// TLS handles the tls command.
//
// It upgrades the deployment recorded by the last run to TLS, running
// only the TLS phase against the existing release.
func TLS(ctx context.Context) error {
	dir, err := workDir()
	if err != nil {
		return err
	}
	return newController(dir, newRunner(), "", false).TLSUpgrade(ctx)
}
