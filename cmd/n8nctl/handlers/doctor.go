package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lrproduhub/n8nctl/internal/config"
	"github.com/lrproduhub/n8nctl/internal/errdefs"
	"github.com/lrproduhub/n8nctl/internal/prereq"
	"github.com/lrproduhub/n8nctl/internal/state"
	"github.com/lrproduhub/n8nctl/internal/ui"
)

// checkTools is replaced in tests.
var checkTools = prereq.Check

// Doctor handles the doctor command.
//
// It checks the required CLI tools and reports the recorded deployment
// without changing anything. When no cloud is given it falls back to the
// cloud of the last run; with neither, only the common tools are checked.
func Doctor(ctx context.Context, cloudName string) error {
	if err := validCloud(cloudName); err != nil {
		return err
	}
	dir, err := workDir()
	if err != nil {
		return err
	}

	store := config.NewStore(dir)
	cfg, lastErr := store.LoadLastRun()
	if lastErr != nil && !os.IsNotExist(lastErr) {
		return lastErr
	}
	if cloudName == "" && lastErr == nil {
		cloudName = cfg.Provider
	}

	ui.Section("tools")
	var tools []prereq.Tool
	if cloudName == "" {
		tools = append(prereq.CommonTools(), prereq.OptionalTools()...)
		ui.Infof("no cloud selected; checking common tools only")
	} else {
		tools = prereq.ForProvider(cloudName)
	}
	results := checkTools(ctx, newRunner(), tools)
	reportResults(results)

	ui.Section("deployment")
	if lastErr != nil {
		ui.Infof("no previous deployment recorded")
	} else {
		ui.Summary([][2]string{
			{"Cluster", cfg.ClusterName},
			{"Provider", fmt.Sprintf("%s (%s)", cfg.Provider, cfg.Region)},
			{"Namespace", cfg.Namespace},
			{"Database", cfg.Database.Engine},
			{"TLS", cfg.TLS.Mode},
		})
		reportState(dir, cfg.Provider)
	}

	if err := results.Err(); err != nil {
		return errdefs.Precondition("doctor", err)
	}
	return nil
}

func reportResults(results *prereq.Results) {
	for _, r := range results.Results {
		switch {
		case !r.Found && r.Tool.Required:
			ui.Failf("%s not found (%s)", r.Tool.Name, r.Tool.InstallURL)
		case !r.Found:
			ui.Infof("%s not found (optional)", r.Tool.Name)
		case !r.Satisfies:
			ui.Failf("%s v%s is older than required %s", r.Tool.Name, r.Version, r.Tool.MinVersion)
		case r.Version == "":
			ui.Warnf("%s found, version unreadable", r.Tool.Name)
		default:
			ui.Successf("%s v%s", r.Tool.Name, r.Version)
		}
	}
}

func reportState(dir, provider string) {
	m := state.NewManager(filepath.Join(dir, "terraform", provider))
	if !m.HasState() {
		ui.Infof("no live terraform state")
	} else if region, err := m.Region(); err == nil && region != "" {
		ui.Successf("live terraform state for region %s", region)
	} else {
		ui.Warnf("live terraform state with no region marker")
	}
	if snaps, err := m.List(); err == nil && len(snaps) > 0 {
		ui.Infof("%d saved state snapshot(s); see 'n8nctl state list'", len(snaps))
	}
}
