// Package state guards the local terraform state against cross-region
// corruption. A state file written for one region silently reused in
// another makes terraform plan a teardown of the wrong cluster, so every
// run is gated on a region marker, and snapshots are keyed by region.
package state

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	stateFile  = "terraform.tfstate"
	markerFile = ".n8nctl-region"

	snapshotTimeLayout = "20060102T150405Z"
)

// Manager operates on the terraform working directory of one provider.
type Manager struct {
	Dir string
}

// NewManager returns a Manager for the given terraform working directory.
func NewManager(dir string) *Manager {
	return &Manager{Dir: dir}
}

func (m *Manager) StatePath() string {
	return filepath.Join(m.Dir, stateFile)
}

func (m *Manager) markerPath() string {
	return filepath.Join(m.Dir, markerFile)
}

// Region returns the region recorded for the current state file, or empty
// when no marker exists.
func (m *Manager) Region() (string, error) {
	data, err := os.ReadFile(m.markerPath())
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// HasState reports whether a terraform state file is present.
func (m *Manager) HasState() bool {
	_, err := os.Stat(m.StatePath())
	return err == nil
}

// EnsureRegion gates a run targeting region against the existing state.
// When no state exists the marker is written and the run proceeds. When
// state exists for the same region the run proceeds. When state exists for
// a different region, or for an unknown region, the run is refused; the
// operator must snapshot or restore explicitly first.
func (m *Manager) EnsureRegion(region string) error {
	current, err := m.Region()
	if err != nil {
		return fmt.Errorf("failed to read region marker: %w", err)
	}

	if !m.HasState() {
		return m.writeMarker(region)
	}

	switch current {
	case region:
		return nil
	case "":
		return fmt.Errorf("terraform state exists in %s but its region is unknown; run 'n8nctl state save' under the correct region or remove the state manually", m.Dir)
	default:
		return fmt.Errorf("terraform state in %s belongs to region %s, not %s; run 'n8nctl state save' then 'n8nctl state restore' to switch regions", m.Dir, current, region)
	}
}

// Snapshot is one saved state file.
type Snapshot struct {
	Region    string
	Timestamp time.Time
	Path      string
}

// Save copies the current state file into a region-keyed snapshot and
// removes the live state and marker, leaving the directory ready for a
// different region.
func (m *Manager) Save() (*Snapshot, error) {
	region, err := m.Region()
	if err != nil {
		return nil, err
	}
	if !m.HasState() {
		return nil, fmt.Errorf("no terraform state to save in %s", m.Dir)
	}
	if region == "" {
		return nil, fmt.Errorf("state in %s has no region marker; cannot key the snapshot", m.Dir)
	}

	now := time.Now().UTC()
	snap := &Snapshot{
		Region:    region,
		Timestamp: now,
		Path:      filepath.Join(m.Dir, fmt.Sprintf("%s.%s.%s", stateFile, region, now.Format(snapshotTimeLayout))),
	}
	if err := copyFile(m.StatePath(), snap.Path); err != nil {
		return nil, fmt.Errorf("failed to snapshot state: %w", err)
	}
	if err := os.Remove(m.StatePath()); err != nil {
		return nil, err
	}
	if err := os.Remove(m.markerPath()); err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return snap, nil
}

// List returns the snapshots in the working directory, newest first.
func (m *Manager) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(m.Dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snaps []Snapshot
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		snap, ok := parseSnapshotName(e.Name())
		if !ok {
			continue
		}
		snap.Path = filepath.Join(m.Dir, e.Name())
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].Timestamp.After(snaps[j].Timestamp)
	})
	return snaps, nil
}

// Restore makes the newest snapshot for region the live state. It refuses
// to overwrite existing live state.
func (m *Manager) Restore(region string) (*Snapshot, error) {
	if m.HasState() {
		current, err := m.Region()
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("live terraform state already present (region %s); save it before restoring", orUnknown(current))
	}

	snaps, err := m.List()
	if err != nil {
		return nil, err
	}
	for _, snap := range snaps {
		if snap.Region != region {
			continue
		}
		if err := copyFile(snap.Path, m.StatePath()); err != nil {
			return nil, fmt.Errorf("failed to restore snapshot: %w", err)
		}
		if err := m.writeMarker(region); err != nil {
			return nil, err
		}
		return &snap, nil
	}
	return nil, fmt.Errorf("no snapshot found for region %s in %s", region, m.Dir)
}

// Clear removes the live state and marker. Called after a completed
// destroy, when the state legitimately describes nothing.
func (m *Manager) Clear() error {
	if err := os.Remove(m.StatePath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Remove(m.markerPath()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (m *Manager) writeMarker(region string) error {
	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(m.markerPath(), []byte(region+"\n"), 0o644)
}

// parseSnapshotName parses "terraform.tfstate.<region>.<timestamp>".
func parseSnapshotName(name string) (Snapshot, bool) {
	prefix := stateFile + "."
	if !strings.HasPrefix(name, prefix) {
		return Snapshot{}, false
	}
	rest := strings.TrimPrefix(name, prefix)
	i := strings.LastIndex(rest, ".")
	if i <= 0 {
		return Snapshot{}, false
	}
	region, stamp := rest[:i], rest[i+1:]
	ts, err := time.Parse(snapshotTimeLayout, stamp)
	if err != nil {
		return Snapshot{}, false
	}
	return Snapshot{Region: region, Timestamp: ts}, true
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
