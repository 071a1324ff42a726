package backup

import (
	"os"
	"path/filepath"
	"testing"

	coreerrors "codezap/internal/core/errors"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestSnapshotAndRestore(t *testing.T) {
	proj := t.TempDir()
	main := filepath.Join(proj, "main.py")
	util := filepath.Join(proj, "pkg", "util.py")
	writeFile(t, main, "original main\n")
	writeFile(t, util, "original util\n")

	mgr := NewManager(filepath.Join(proj, ".codezap", "backups"))
	snap, err := mgr.TakeSnapshot(proj, []string{main, util})
	if err != nil {
		t.Fatalf("take snapshot: %v", err)
	}
	if len(snap.Files) != 2 {
		t.Fatalf("expected 2 tracked files, got %d", len(snap.Files))
	}

	writeFile(t, main, "mutated\n")
	if err := os.Remove(util); err != nil {
		t.Fatal(err)
	}
	untracked := filepath.Join(proj, "new.py")
	writeFile(t, untracked, "created after snapshot\n")

	if err := mgr.Restore(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := readFile(t, main); got != "original main\n" {
		t.Errorf("expected mutated file restored, got %q", got)
	}
	if got := readFile(t, util); got != "original util\n" {
		t.Errorf("expected deleted file re-created, got %q", got)
	}
	if _, err := os.Stat(untracked); err != nil {
		t.Error("expected untracked file left alone")
	}
}

func TestRestoreIdempotent(t *testing.T) {
	proj := t.TempDir()
	main := filepath.Join(proj, "main.go")
	writeFile(t, main, "package main\n")

	mgr := NewManager(filepath.Join(proj, ".codezap", "backups"))
	snap, err := mgr.TakeSnapshot(proj, []string{main})
	if err != nil {
		t.Fatalf("take snapshot: %v", err)
	}

	writeFile(t, main, "package mutated\n")
	for i := 0; i < 3; i++ {
		if err := mgr.Restore(snap); err != nil {
			t.Fatalf("restore #%d: %v", i+1, err)
		}
	}
	if got := readFile(t, main); got != "package main\n" {
		t.Errorf("unexpected content after repeated restore: %q", got)
	}
}

func TestSnapshotAllOrNothing(t *testing.T) {
	proj := t.TempDir()
	good := filepath.Join(proj, "a.py")
	writeFile(t, good, "x\n")
	missing := filepath.Join(proj, "gone.py")

	backupRoot := filepath.Join(proj, ".codezap", "backups")
	mgr := NewManager(backupRoot)
	_, err := mgr.TakeSnapshot(proj, []string{good, missing})
	if !coreerrors.IsCode(err, coreerrors.CodeBackupFailed) {
		t.Fatalf("expected BACKUP_FAILED, got %v", err)
	}

	entries, _ := os.ReadDir(backupRoot)
	if len(entries) != 0 {
		t.Errorf("expected no partial snapshot directory, found %d entries", len(entries))
	}
}

func TestDiscard(t *testing.T) {
	proj := t.TempDir()
	main := filepath.Join(proj, "main.js")
	writeFile(t, main, "x\n")

	mgr := NewManager(filepath.Join(proj, "backups"))
	snap, err := mgr.TakeSnapshot(proj, []string{main})
	if err != nil {
		t.Fatalf("take snapshot: %v", err)
	}
	if err := mgr.Discard(snap); err != nil {
		t.Fatalf("discard: %v", err)
	}
	if _, err := os.Stat(snap.Dir()); !os.IsNotExist(err) {
		t.Error("expected snapshot directory removed")
	}
	if err := mgr.Discard(nil); err != nil {
		t.Errorf("discard(nil) should be a no-op, got %v", err)
	}
}

func TestLoadAndList(t *testing.T) {
	proj := t.TempDir()
	main := filepath.Join(proj, "main.py")
	writeFile(t, main, "v1\n")

	backupRoot := filepath.Join(proj, "backups")
	mgr := NewManager(backupRoot)

	first, err := mgr.TakeSnapshot(proj, []string{main})
	if err != nil {
		t.Fatalf("take first snapshot: %v", err)
	}
	writeFile(t, main, "v2\n")
	second, err := mgr.TakeSnapshot(proj, []string{main})
	if err != nil {
		t.Fatalf("take second snapshot: %v", err)
	}

	loaded, err := mgr.Load(first.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ID != first.ID || loaded.ProjectRoot != proj {
		t.Errorf("manifest roundtrip mismatch: %+v", loaded)
	}

	writeFile(t, main, "v3\n")
	if err := mgr.Restore(loaded); err != nil {
		t.Fatalf("restore from loaded manifest: %v", err)
	}
	if got := readFile(t, main); got != "v1\n" {
		t.Errorf("expected v1 restored, got %q", got)
	}

	snaps, err := mgr.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if snaps[0].ID != second.ID {
		t.Error("expected newest snapshot first")
	}
}

func TestListEmptyRoot(t *testing.T) {
	mgr := NewManager(filepath.Join(t.TempDir(), "never-created"))
	snaps, err := mgr.List()
	if err != nil || len(snaps) != 0 {
		t.Errorf("expected empty list for missing root, got %v, %v", snaps, err)
	}
}
