package state

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeState(t *testing.T, m *Manager, content string) {
	t.Helper()
	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(m.StatePath(), []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestEnsureRegionFreshDirectory(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "aws"))

	if err := m.EnsureRegion("us-east-1"); err != nil {
		t.Fatalf("EnsureRegion on fresh dir: %v", err)
	}
	region, err := m.Region()
	if err != nil {
		t.Fatal(err)
	}
	if region != "us-east-1" {
		t.Errorf("Region() = %q, want us-east-1", region)
	}
}

func TestEnsureRegionSameRegionProceeds(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "aws"))
	if err := m.EnsureRegion("us-east-1"); err != nil {
		t.Fatal(err)
	}
	writeState(t, m, `{"version": 4}`)

	if err := m.EnsureRegion("us-east-1"); err != nil {
		t.Errorf("EnsureRegion same region: %v", err)
	}
}

func TestEnsureRegionRefusesCrossRegion(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "aws"))
	if err := m.EnsureRegion("us-east-1"); err != nil {
		t.Fatal(err)
	}
	writeState(t, m, `{"version": 4}`)

	err := m.EnsureRegion("eu-west-1")
	if err == nil {
		t.Fatal("expected refusal for cross-region state")
	}
	if !strings.Contains(err.Error(), "us-east-1") || !strings.Contains(err.Error(), "eu-west-1") {
		t.Errorf("refusal should name both regions: %v", err)
	}
}

func TestEnsureRegionRefusesUnknownRegion(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "aws"))
	writeState(t, m, `{"version": 4}`)

	err := m.EnsureRegion("us-east-1")
	if err == nil {
		t.Fatal("expected refusal for state with unknown region")
	}
	if !strings.Contains(err.Error(), "unknown") {
		t.Errorf("error should mention unknown region: %v", err)
	}
}

func TestSaveAndRestoreRoundTrip(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "aws"))
	if err := m.EnsureRegion("us-east-1"); err != nil {
		t.Fatal(err)
	}
	writeState(t, m, `{"region": "us-east-1"}`)

	snap, err := m.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if snap.Region != "us-east-1" {
		t.Errorf("snapshot region = %q", snap.Region)
	}
	if m.HasState() {
		t.Error("live state still present after Save")
	}

	// Directory is now free for another region.
	if err := m.EnsureRegion("eu-west-1"); err != nil {
		t.Fatalf("EnsureRegion after Save: %v", err)
	}

	// Clear the other region's marker, then bring us-east-1 back.
	if err := m.Clear(); err != nil {
		t.Fatal(err)
	}
	restored, err := m.Restore("us-east-1")
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.Path != snap.Path {
		t.Errorf("restored %s, want %s", restored.Path, snap.Path)
	}

	data, err := os.ReadFile(m.StatePath())
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"region": "us-east-1"}` {
		t.Errorf("restored state = %q", data)
	}
	region, err := m.Region()
	if err != nil {
		t.Fatal(err)
	}
	if region != "us-east-1" {
		t.Errorf("marker after restore = %q", region)
	}
}

func TestSaveWithoutState(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "aws"))
	if _, err := m.Save(); err == nil {
		t.Error("Save with no state should fail")
	}
}

func TestRestoreRefusesOverwrite(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "aws"))
	if err := m.EnsureRegion("us-east-1"); err != nil {
		t.Fatal(err)
	}
	writeState(t, m, `{}`)

	if _, err := m.Restore("eu-west-1"); err == nil {
		t.Error("Restore over live state should fail")
	}
}

func TestRestoreNoSnapshot(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "aws"))
	if _, err := m.Restore("us-east-1"); err == nil {
		t.Error("Restore with no snapshot should fail")
	}
}

func TestListOrdersNewestFirst(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "aws"))
	if err := os.MkdirAll(m.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{
		"terraform.tfstate.us-east-1.20260101T000000Z",
		"terraform.tfstate.eu-west-1.20260301T000000Z",
		"terraform.tfstate.us-east-1.20260201T000000Z",
		"terraform.tfstate",       // live state, not a snapshot
		"unrelated.txt",           // ignored
		"terraform.tfstate.bogus", // no timestamp
	} {
		if err := os.WriteFile(filepath.Join(m.Dir, name), []byte("{}"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	snaps, err := m.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(snaps) != 3 {
		t.Fatalf("List = %d snapshots, want 3", len(snaps))
	}
	if snaps[0].Region != "eu-west-1" {
		t.Errorf("newest snapshot region = %q, want eu-west-1", snaps[0].Region)
	}
	if !snaps[0].Timestamp.After(snaps[1].Timestamp) {
		t.Error("snapshots not ordered newest first")
	}
}

func TestClearIdempotent(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "aws"))
	if err := m.Clear(); err != nil {
		t.Errorf("Clear on empty dir: %v", err)
	}
	if err := m.EnsureRegion("us-east-1"); err != nil {
		t.Fatal(err)
	}
	writeState(t, m, `{}`)
	if err := m.Clear(); err != nil {
		t.Errorf("Clear: %v", err)
	}
	if m.HasState() {
		t.Error("state present after Clear")
	}
}
