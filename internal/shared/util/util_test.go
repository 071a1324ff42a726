package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsBinary(t *testing.T) {
	dir := t.TempDir()

	text := filepath.Join(dir, "text.py")
	if err := os.WriteFile(text, []byte("print('hello')\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if IsBinary(text) {
		t.Error("expected text file to not be binary")
	}

	bin := filepath.Join(dir, "blob")
	if err := os.WriteFile(bin, []byte{0x7f, 'E', 'L', 'F', 0x00, 0x01}, 0644); err != nil {
		t.Fatal(err)
	}
	if !IsBinary(bin) {
		t.Error("expected NUL byte to mark file binary")
	}

	empty := filepath.Join(dir, "empty")
	if err := os.WriteFile(empty, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if IsBinary(empty) {
		t.Error("expected empty file to not be binary")
	}

	if !IsBinary(filepath.Join(dir, "missing")) {
		t.Error("expected unreadable file to be treated as binary")
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")

	if err := WriteFileAtomic(path, []byte("first\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("second\n"), 0600); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second\n" {
		t.Errorf("unexpected content: %q", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
	}

	// No temp files left behind.
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only the target file, found %d entries", len(entries))
	}
}
