// Package backup snapshots the managed configuration files before a run
// touches them, so a failed or interrupted run can put every file back
// exactly as it was, including removing files that did not exist before.
package backup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Record describes one snapshotted path.
type Record struct {
	// Source is the original path.
	Source string

	// Snapshot is the copy inside the snapshot directory. Empty when the
	// source did not exist.
	Snapshot string

	// Existed reports whether the source was present at snapshot time.
	Existed bool

	Mode os.FileMode
}

// Manager holds one snapshot of a set of files.
type Manager struct {
	dir     string
	records []Record
}

// Snapshot copies each path that exists into a fresh temporary directory
// and records which paths were absent. It must run before the first write
// to any managed file.
func Snapshot(paths []string) (*Manager, error) {
	dir, err := os.MkdirTemp("", "n8nctl-backup-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	m := &Manager{dir: dir}
	for i, src := range paths {
		info, err := os.Stat(src)
		if os.IsNotExist(err) {
			m.records = append(m.records, Record{Source: src})
			continue
		}
		if err != nil {
			os.RemoveAll(dir)
			return nil, fmt.Errorf("failed to stat %s: %w", src, err)
		}

		dst := filepath.Join(dir, fmt.Sprintf("%03d-%s", i, filepath.Base(src)))
		if err := copyFile(src, dst, info.Mode()); err != nil {
			os.RemoveAll(dir)
			return nil, fmt.Errorf("failed to snapshot %s: %w", src, err)
		}
		m.records = append(m.records, Record{
			Source:   src,
			Snapshot: dst,
			Existed:  true,
			Mode:     info.Mode(),
		})
	}
	return m, nil
}

// Records returns the snapshot records in the order the paths were given.
func (m *Manager) Records() []Record {
	return m.records
}

// Restore puts every snapshotted path back to its pre-run state. Files that
// existed are rewritten byte for byte; files that did not exist are removed.
// Restore is total: it attempts every record and returns the joined errors.
func (m *Manager) Restore() error {
	var errs []error
	for _, rec := range m.records {
		if !rec.Existed {
			if err := os.Remove(rec.Source); err != nil && !os.IsNotExist(err) {
				errs = append(errs, fmt.Errorf("failed to remove %s: %w", rec.Source, err))
			}
			continue
		}
		if err := copyFile(rec.Snapshot, rec.Source, rec.Mode); err != nil {
			errs = append(errs, fmt.Errorf("failed to restore %s: %w", rec.Source, err))
		}
	}
	return errors.Join(errs...)
}

// Discard removes the snapshot directory. Call after a successful run.
func (m *Manager) Discard() error {
	return os.RemoveAll(m.dir)
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
