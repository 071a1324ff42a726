package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/gobwas/glob"

	coreerrors "codezap/internal/core/errors"
	"codezap/internal/core/lang"
	"codezap/internal/shared/observability"
	"codezap/internal/shared/util"
)

// Scanner walks a project root and produces one FileRecord per file whose
// extension belongs to a known language profile. Directories are visited at
// most once per canonical path, so symlink cycles terminate.
type Scanner struct {
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
	limiter      *util.Limiter
}

// New compiles the exclude patterns once. extraDirs/extraFiles come from
// config and are merged with every profile's ignore set.
func New(extraDirs, extraFiles []string, limiter *util.Limiter) (*Scanner, error) {
	dirPatterns := append(lang.AllIgnoreDirs(), extraDirs...)

	dirGlobs := make([]glob.Glob, 0, len(dirPatterns))
	for _, p := range dirPatterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude dir pattern %q: %w", p, err)
		}
		dirGlobs = append(dirGlobs, g)
	}

	fileGlobs := make([]glob.Glob, 0, len(extraFiles))
	for _, p := range extraFiles {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude file pattern %q: %w", p, err)
		}
		fileGlobs = append(fileGlobs, g)
	}

	return &Scanner{excludeDirs: dirGlobs, excludeFiles: fileGlobs, limiter: limiter}, nil
}

// Scan walks root and returns the inventory sorted by path, so the result is
// independent of filesystem iteration order.
func (s *Scanner) Scan(ctx context.Context, root string) ([]lang.FileRecord, error) {
	info, err := os.Stat(root)
	if os.IsNotExist(err) {
		return nil, coreerrors.AddContext(
			coreerrors.Wrap(err, coreerrors.CodePathNotFound, "project root does not exist"),
			coreerrors.CtxPath, root)
	}
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodePathNotFound, "project root is not accessible")
	}
	if !info.IsDir() {
		return nil, coreerrors.AddContext(
			coreerrors.New(coreerrors.CodeNotADirectory, "project root is a file, expected directory"),
			coreerrors.CtxPath, root)
	}

	visited := make(map[string]bool)
	var records []lang.FileRecord
	if err := s.walkDir(ctx, root, visited, &records); err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })
	observability.FilesScanned.Set(float64(len(records)))
	return records, nil
}

func (s *Scanner) walkDir(ctx context.Context, dir string, visited map[string]bool, out *[]lang.FileRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	canonical, err := filepath.EvalSymlinks(dir)
	if err != nil {
		// Broken symlink or vanished directory: skip rather than fail the walk.
		return nil
	}
	if visited[canonical] {
		return nil
	}
	visited[canonical] = true

	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		name := entry.Name()
		path := filepath.Join(dir, name)

		if entry.IsDir() || isSymlinkDir(path, entry) {
			if s.matchDir(name) {
				continue
			}
			if err := s.walkDir(ctx, path, visited, out); err != nil {
				return err
			}
			continue
		}

		ext := filepath.Ext(name)
		profile, ok := lang.ProfileForExt(ext)
		if !ok {
			continue
		}
		if s.matchFile(name) {
			continue
		}

		if err := s.limiter.Wait(ctx, 1); err != nil {
			return err
		}
		if util.IsBinary(path) {
			continue
		}

		fi, err := entry.Info()
		if err != nil {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		*out = append(*out, lang.FileRecord{
			Path:     abs,
			Ext:      ext,
			Language: profile.ID,
			Size:     fi.Size(),
		})
	}
	return nil
}

func (s *Scanner) matchDir(name string) bool {
	for _, g := range s.excludeDirs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func (s *Scanner) matchFile(name string) bool {
	for _, g := range s.excludeFiles {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func isSymlinkDir(path string, entry os.DirEntry) bool {
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// FindManifest probes the project root for the language's manifest files in
// profile order and returns the first that exists.
func FindManifest(root string, profile *lang.Profile) (string, bool) {
	for _, name := range profile.Manifests {
		candidate := filepath.Join(root, name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}
