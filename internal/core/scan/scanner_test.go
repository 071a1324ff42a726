package scan

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	coreerrors "codezap/internal/core/errors"
	"codezap/internal/core/lang"
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

func newScanner(t *testing.T, extraDirs, extraFiles []string) *Scanner {
	t.Helper()
	s, err := New(extraDirs, extraFiles, nil)
	if err != nil {
		t.Fatalf("new scanner: %v", err)
	}
	return s
}

func TestScanInventory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.py"), "print('hi')\n")
	writeFile(t, filepath.Join(root, "lib", "util.js"), "module.exports = {};\n")
	writeFile(t, filepath.Join(root, "cmd", "main.go"), "package main\n")
	writeFile(t, filepath.Join(root, "README.md"), "# readme\n")

	records, err := newScanner(t, nil, nil).Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d: %+v", len(records), records)
	}
	langs := make(map[string]int)
	for _, r := range records {
		langs[r.Language]++
	}
	if langs[lang.Python] != 1 || langs[lang.JavaScript] != 1 || langs[lang.Go] != 1 {
		t.Errorf("unexpected language counts: %v", langs)
	}
	if !sort.SliceIsSorted(records, func(i, j int) bool { return records[i].Path < records[j].Path }) {
		t.Error("expected records sorted by path")
	}
}

func TestScanSkipsIgnoreDirsAndBinary(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "app.py"), "x = 1\n")
	writeFile(t, filepath.Join(root, "node_modules", "dep", "index.js"), "x\n")
	writeFile(t, filepath.Join(root, "__pycache__", "app.pyc.py"), "x\n")
	// NUL byte in the first block marks the file binary.
	writeFile(t, filepath.Join(root, "blob.py"), "data\x00data")

	records, err := newScanner(t, nil, nil).Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(records) != 1 || filepath.Base(records[0].Path) != "app.py" {
		t.Errorf("expected only app.py, got %+v", records)
	}
}

func TestScanConfiguredExcludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "app.js"), "x\n")
	writeFile(t, filepath.Join(root, "bundle.min.js"), "x\n")
	writeFile(t, filepath.Join(root, "generated", "out.js"), "x\n")

	records, err := newScanner(t, []string{"generated"}, []string{"*.min.js"}).Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(records) != 1 || filepath.Base(records[0].Path) != "app.js" {
		t.Errorf("expected only app.js, got %+v", records)
	}
}

func TestScanPathNotFound(t *testing.T) {
	_, err := newScanner(t, nil, nil).Scan(context.Background(), "/nonexistent/project")
	if !coreerrors.IsCode(err, coreerrors.CodePathNotFound) {
		t.Errorf("expected PATH_NOT_FOUND, got %v", err)
	}
}

func TestScanNotADirectory(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "single.py")
	writeFile(t, file, "x = 1\n")

	_, err := newScanner(t, nil, nil).Scan(context.Background(), file)
	if !coreerrors.IsCode(err, coreerrors.CodeNotADirectory) {
		t.Errorf("expected NOT_A_DIRECTORY, got %v", err)
	}
}

func TestScanSymlinkCycleTerminates(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "pkg")
	writeFile(t, filepath.Join(sub, "a.py"), "x = 1\n")
	if err := os.Symlink(root, filepath.Join(sub, "loop")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	records, err := newScanner(t, nil, nil).Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected each file once despite cycle, got %d records", len(records))
	}
}

func TestScanCancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.py"), "x\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newScanner(t, nil, nil).Scan(ctx, root); err == nil {
		t.Error("expected error from cancelled context")
	}
}

func TestFindManifest(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "pyproject.toml"), "[project]\n")

	profile, _ := lang.ProfileFor(lang.Python)
	path, ok := FindManifest(root, profile)
	if !ok || filepath.Base(path) != "pyproject.toml" {
		t.Errorf("expected pyproject.toml, got %q ok=%v", path, ok)
	}

	// requirements.txt outranks pyproject.toml in probe order.
	writeFile(t, filepath.Join(root, "requirements.txt"), "requests\n")
	path, ok = FindManifest(root, profile)
	if !ok || filepath.Base(path) != "requirements.txt" {
		t.Errorf("expected requirements.txt to win probe order, got %q", path)
	}

	if _, ok := FindManifest(t.TempDir(), profile); ok {
		t.Error("expected no manifest in empty dir")
	}
}
