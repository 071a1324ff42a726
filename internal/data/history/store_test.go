package history

import (
	"path/filepath"
	"testing"
	"time"
)

func TestStoreSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	first := RunRecord{
		Timestamp:   base,
		Mode:        "fix",
		Language:    "python",
		Status:      "failed",
		StagesTotal: 3, StagesFailed: 1, StagesSkipped: 1,
		SnapshotID: "abc-123",
		RolledBack: true,
	}
	second := RunRecord{
		Timestamp:   base.Add(time.Hour),
		Mode:        "check",
		Language:    "python",
		Status:      "success",
		StagesTotal: 4,
	}

	if err := store.SaveRun(first); err != nil {
		t.Fatalf("save first run: %v", err)
	}
	if err := store.SaveRun(second); err != nil {
		t.Fatalf("save second run: %v", err)
	}

	runs, err := store.LoadRuns(0)
	if err != nil {
		t.Fatalf("load runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Mode != "check" {
		t.Error("expected newest run first")
	}
	got := runs[1]
	if got.Mode != "fix" || got.Status != "failed" || !got.RolledBack {
		t.Errorf("run did not roundtrip: %+v", got)
	}
	if got.StagesTotal != 3 || got.StagesFailed != 1 || got.StagesSkipped != 1 {
		t.Errorf("stage counters did not roundtrip: %+v", got)
	}
	if got.SnapshotID != "abc-123" {
		t.Errorf("unexpected snapshot id: %s", got.SnapshotID)
	}
	if !got.Timestamp.Equal(base) {
		t.Errorf("timestamp did not roundtrip: %v", got.Timestamp)
	}
}

func TestStoreLimit(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		rec := RunRecord{Timestamp: base.Add(time.Duration(i) * time.Minute), Mode: "check", Language: "go", Status: "success"}
		if err := store.SaveRun(rec); err != nil {
			t.Fatalf("save run %d: %v", i, err)
		}
	}

	runs, err := store.LoadRuns(2)
	if err != nil {
		t.Fatalf("load runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs with limit, got %d", len(runs))
	}
	if !runs[0].Timestamp.After(runs[1].Timestamp) {
		t.Error("expected newest-first ordering")
	}
}

func TestStoreCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("expected parent dirs created, got %v", err)
	}
	store.Close()
}

func TestStoreRejectsBadPaths(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("expected error for empty path")
	}
	if _, err := Open(t.TempDir()); err == nil {
		t.Error("expected error when path is a directory")
	}
}

func TestStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	rec := RunRecord{Mode: "deps", Language: "javascript", Status: "success"}
	if err := store.SaveRun(rec); err != nil {
		t.Fatalf("save run: %v", err)
	}
	store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer reopened.Close()
	runs, err := reopened.LoadRuns(0)
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if len(runs) != 1 || runs[0].Mode != "deps" {
		t.Errorf("expected persisted run after reopen, got %+v", runs)
	}
}
