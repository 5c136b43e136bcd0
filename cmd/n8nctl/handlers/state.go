package handlers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/lrproduhub/n8nctl/internal/config"
	"github.com/lrproduhub/n8nctl/internal/errdefs"
	"github.com/lrproduhub/n8nctl/internal/state"
	"github.com/lrproduhub/n8nctl/internal/ui"
)

// StateList handles the state list command.
func StateList(_ context.Context, cloudName string) error {
	m, err := stateManager(cloudName)
	if err != nil {
		return err
	}

	if !m.HasState() {
		ui.Infof("no live terraform state")
	} else if region, regionErr := m.Region(); regionErr == nil && region != "" {
		ui.Successf("live state: region %s", region)
	} else {
		ui.Warnf("live state present, region unknown")
	}

	snaps, err := m.List()
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		ui.Infof("no saved snapshots")
		return nil
	}
	ui.Section("snapshots")
	for _, snap := range snaps {
		ui.Infof("%-20s %s", snap.Region, snap.Timestamp.Format(time.RFC3339))
	}
	return nil
}

// StateSave handles the state save command. It parks the live state as a
// region-keyed snapshot, leaving the directory ready for a different
// region.
func StateSave(_ context.Context, cloudName string) error {
	m, err := stateManager(cloudName)
	if err != nil {
		return err
	}
	snap, err := m.Save()
	if err != nil {
		return errdefs.Precondition("state save", err)
	}
	ui.Successf("state for region %s saved to %s", snap.Region, filepath.Base(snap.Path))
	return nil
}

// StateRestore handles the state restore command. It brings back the
// newest snapshot for the given region.
func StateRestore(_ context.Context, cloudName, region string) error {
	m, err := stateManager(cloudName)
	if err != nil {
		return err
	}
	snap, err := m.Restore(region)
	if err != nil {
		return errdefs.Precondition("state restore", err)
	}
	ui.Successf("restored state for region %s from %s", snap.Region, filepath.Base(snap.Path))
	return nil
}

// stateManager resolves the cloud whose state to manage. An explicit
// --cloud wins; otherwise the cloud of the last run is used.
func stateManager(cloudName string) (*state.Manager, error) {
	if err := validCloud(cloudName); err != nil {
		return nil, err
	}
	dir, err := workDir()
	if err != nil {
		return nil, err
	}
	if cloudName == "" {
		cfg, err := config.NewStore(dir).LoadLastRun()
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errdefs.Precondition("state",
					errors.New("no previous deployment found; pass --cloud to select one"))
			}
			return nil, err
		}
		cloudName = cfg.Provider
	}
	return state.NewManager(filepath.Join(dir, "terraform", cloudName)), nil
}
