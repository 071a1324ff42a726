// Package backup snapshots a fixed set of project files before mutation and
// restores them on demand. A snapshot is a directory under the reserved backup
// root holding verbatim copies plus a manifest; the manifest is the sole input
// to restore.
package backup

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	coreerrors "codezap/internal/core/errors"
	"codezap/internal/shared/observability"
	"codezap/internal/shared/util"
)

const (
	manifestName = "manifest.toml"
	filesDir     = "files"
)

// Snapshot is a consistent point-in-time copy of a fixed file set. The file
// set never grows after creation.
type Snapshot struct {
	ID          string            `toml:"id"`
	CreatedAt   time.Time         `toml:"created_at"`
	ProjectRoot string            `toml:"project_root"`
	Files       map[string]string `toml:"files"` // original relative path -> copy path relative to snapshot dir

	dir string
}

// Dir returns the on-disk location of the snapshot.
func (s *Snapshot) Dir() string {
	return s.dir
}

type Manager struct {
	root string // backup root directory, snapshots live in <root>/<uuid>
}

func NewManager(root string) *Manager {
	return &Manager{root: root}
}

// TakeSnapshot copies exactly the given files. All-or-nothing: any copy
// failure removes the partial snapshot directory and fails with BACKUP_FAILED.
func (m *Manager) TakeSnapshot(projectRoot string, paths []string) (*Snapshot, error) {
	id := uuid.NewString()
	dir := filepath.Join(m.root, id)
	if err := os.MkdirAll(filepath.Join(dir, filesDir), 0o755); err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeBackupFailed, "create snapshot directory")
	}

	snap := &Snapshot{
		ID:          id,
		CreatedAt:   time.Now().UTC(),
		ProjectRoot: projectRoot,
		Files:       make(map[string]string, len(paths)),
		dir:         dir,
	}

	var totalBytes int64
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	for _, path := range sorted {
		rel, err := filepath.Rel(projectRoot, path)
		if err != nil || filepath.IsAbs(rel) {
			rel = filepath.Base(path)
		}
		copyRel := filepath.Join(filesDir, rel)
		copyAbs := filepath.Join(dir, copyRel)
		n, err := copyFile(path, copyAbs)
		if err != nil {
			// Leave no partial snapshot behind.
			if rmErr := os.RemoveAll(dir); rmErr != nil {
				slog.Warn("failed to remove partial snapshot", "dir", dir, "error", rmErr)
			}
			return nil, coreerrors.AddContext(
				coreerrors.Wrap(err, coreerrors.CodeBackupFailed, "copy file into snapshot"),
				coreerrors.CtxPath, path)
		}
		totalBytes += n
		snap.Files[filepath.ToSlash(rel)] = filepath.ToSlash(copyRel)
	}

	if err := m.writeManifest(snap); err != nil {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			slog.Warn("failed to remove partial snapshot", "dir", dir, "error", rmErr)
		}
		return nil, coreerrors.Wrap(err, coreerrors.CodeBackupFailed, "write snapshot manifest")
	}

	observability.SnapshotsTotal.Inc()
	observability.SnapshotBytes.Observe(float64(totalBytes))
	slog.Info("snapshot created", "id", id, "files", len(snap.Files), "bytes", totalBytes)
	return snap, nil
}

// Restore overwrites each tracked file with its saved copy, re-creating files
// deleted after the snapshot. Files created after the snapshot are left alone:
// backup restores tracked file contents, not tree shape. Idempotent.
func (m *Manager) Restore(snap *Snapshot) error {
	var firstErr error
	for rel, copyRel := range snap.Files {
		src := filepath.Join(snap.dir, filepath.FromSlash(copyRel))
		dst := filepath.Join(snap.ProjectRoot, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if _, err := copyFile(src, dst); err != nil {
			slog.Error("restore failed for file", "path", dst, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		observability.RestoresTotal.WithLabelValues("failed").Inc()
		return coreerrors.AddContext(
			coreerrors.Wrap(firstErr, coreerrors.CodeRestoreFailed, "snapshot restore incomplete, tree may be inconsistent"),
			coreerrors.CtxSnapshot, snap.ID)
	}
	observability.RestoresTotal.WithLabelValues("ok").Inc()
	slog.Info("snapshot restored", "id", snap.ID, "files", len(snap.Files))
	return nil
}

// Discard releases the snapshot's disk resources without restoring.
func (m *Manager) Discard(snap *Snapshot) error {
	if snap == nil {
		return nil
	}
	return os.RemoveAll(snap.dir)
}

// Load reads a snapshot manifest back from disk for user-triggered restore.
func (m *Manager) Load(id string) (*Snapshot, error) {
	dir := filepath.Join(m.root, id)
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return nil, fmt.Errorf("read snapshot manifest: %w", err)
	}
	var snap Snapshot
	if err := toml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parse snapshot manifest: %w", err)
	}
	snap.dir = dir
	return &snap, nil
}

// List returns the ids of all snapshots under the backup root, newest first.
func (m *Manager) List() ([]*Snapshot, error) {
	entries, err := os.ReadDir(m.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	snaps := make([]*Snapshot, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		snap, err := m.Load(entry.Name())
		if err != nil {
			slog.Warn("skipping unreadable snapshot", "dir", entry.Name(), "error", err)
			continue
		}
		snaps = append(snaps, snap)
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].CreatedAt.After(snaps[j].CreatedAt) })
	return snaps, nil
}

func (m *Manager) writeManifest(snap *Snapshot) error {
	buf, err := tomlMarshal(snap)
	if err != nil {
		return err
	}
	return util.WriteFileAtomic(filepath.Join(snap.dir, manifestName), buf, 0o644)
}

func tomlMarshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// copyFile copies src to dst preserving the source file mode. Returns bytes
// copied.
func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, err
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return n, err
	}
	// An existing destination keeps its old mode on O_CREATE; enforce.
	return n, os.Chmod(dst, info.Mode().Perm())
}
