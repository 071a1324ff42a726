package lang

// Language identifiers. "unknown" is an explicit detection outcome, never a
// profile.
const (
	Python     = "python"
	JavaScript = "javascript"
	Go         = "go"
	Unknown    = "unknown"
)

// FileRecord describes one scanned source file. Immutable once produced by the
// scanner; downstream components only reference it.
type FileRecord struct {
	Path     string
	Ext      string
	Language string
	Size     int64
}

// ToolSpec describes one external tool stage for a language. Argv entries may
// contain the {path} placeholder, expanded per target file by the pipeline.
type ToolSpec struct {
	Stage          string // "cleanup" or "format"
	Tool           string
	CheckArgs      []string
	ApplyArgs      []string
	AggressiveArgs []string // prepended to ApplyArgs in aggressive mode
	OKExitCodes    []int    // apply exit codes treated as success besides 0
	DirtyByStdout  bool     // check reports a needed change via non-empty stdout instead of exit code
}

// Profile is the static per-language record: recognized extensions, manifest
// file names in probe order, directories never scanned, tool stages in
// execution order. Constructed once at init, read-only afterwards.
type Profile struct {
	ID           string
	Extensions   []string
	Manifests    []string
	IgnoreDirs   []string
	TestSuffixes []string
	Tools        []ToolSpec
	CommentCode  string   // regex matching a commented-out code line
	Builtins     []string // stdlib/builtin names that make usage evidence ambiguous
	Gitignore    []string
}

var profiles = []Profile{
	{
		ID:           Python,
		Extensions:   []string{".py"},
		Manifests:    []string{"requirements.txt", "setup.py", "pyproject.toml"},
		IgnoreDirs:   []string{".git", "__pycache__", ".pytest_cache", "venv", ".venv", ".tox", "*.egg-info"},
		TestSuffixes: []string{"_test.py"},
		Tools: []ToolSpec{
			{
				Stage:          "cleanup",
				Tool:           "autoflake",
				CheckArgs:      []string{"--check", "--remove-all-unused-imports", "--remove-unused-variables", "{path}"},
				ApplyArgs:      []string{"--in-place", "--remove-all-unused-imports", "--remove-unused-variables", "{path}"},
				AggressiveArgs: []string{"--remove-duplicate-keys"},
			},
			{
				Stage:     "format",
				Tool:      "black",
				CheckArgs: []string{"--check", "--quiet", "{path}"},
				ApplyArgs: []string{"--quiet", "{path}"},
			},
		},
		CommentCode: `^\s*#\s*[a-zA-Z_].*[=\(\)\[\]{}]`,
		Builtins: []string{
			"abc", "argparse", "asyncio", "collections", "csv", "dataclasses",
			"datetime", "enum", "functools", "io", "itertools", "json",
			"logging", "math", "os", "pathlib", "random", "re", "shutil",
			"string", "subprocess", "sys", "tempfile", "threading", "time",
			"typing", "unittest", "uuid",
		},
		Gitignore: []string{
			"__pycache__/", "*.py[cod]", "*.egg-info/", "build/", "dist/",
			".env", ".venv", "env/", "venv/",
		},
	},
	{
		ID:           JavaScript,
		Extensions:   []string{".js", ".ts", ".jsx", ".tsx"},
		Manifests:    []string{"package.json"},
		IgnoreDirs:   []string{".git", "node_modules", "dist", "build", "coverage", ".next"},
		TestSuffixes: []string{".test.js", ".test.ts", ".spec.js", ".spec.ts"},
		Tools: []ToolSpec{
			{
				Stage:       "cleanup",
				Tool:        "eslint",
				CheckArgs:   []string{"{path}"},
				ApplyArgs:   []string{"--fix", "{path}"},
				OKExitCodes: []int{1}, // eslint exits 1 when it fixed lintable issues
			},
			{
				Stage:     "format",
				Tool:      "prettier",
				CheckArgs: []string{"--check", "{path}"},
				ApplyArgs: []string{"--write", "{path}"},
			},
		},
		CommentCode: `^\s*//\s*[a-zA-Z_].*[=\(\)\[\]{}]`,
		Builtins: []string{
			"assert", "buffer", "child_process", "crypto", "events", "fs",
			"http", "https", "net", "os", "path", "process", "stream",
			"url", "util", "zlib",
		},
		Gitignore: []string{
			"node_modules/", "npm-debug.log*", "yarn-error.log*", ".npm",
			"coverage/", "dist/", ".env", ".env.local",
		},
	},
	{
		ID:           Go,
		Extensions:   []string{".go"},
		Manifests:    []string{"go.mod"},
		IgnoreDirs:   []string{".git", "vendor", "testdata"},
		TestSuffixes: []string{"_test.go"},
		Tools: []ToolSpec{
			{
				Stage:     "cleanup",
				Tool:      "goimports",
				CheckArgs: []string{"-l", "{path}"},
				ApplyArgs: []string{"-w", "{path}"},
				// goimports reports files needing changes on stdout; exit code stays 0
				DirtyByStdout: true,
			},
			{
				Stage:         "format",
				Tool:          "gofmt",
				CheckArgs:     []string{"-l", "{path}"},
				ApplyArgs:     []string{"-w", "{path}"},
				DirtyByStdout: true,
			},
		},
		CommentCode: `^\s*//\s*[a-zA-Z_].*[=\(\)\[\]{}]`,
		Gitignore: []string{
			"*.exe", "*.dll", "*.so", "*.dylib", "*.test", "*.out", "go.work",
			"vendor/",
		},
	},
}

var profileByID = func() map[string]*Profile {
	m := make(map[string]*Profile, len(profiles))
	for i := range profiles {
		m[profiles[i].ID] = &profiles[i]
	}
	return m
}()

var profileByExt = func() map[string]*Profile {
	m := make(map[string]*Profile)
	for i := range profiles {
		for _, ext := range profiles[i].Extensions {
			m[ext] = &profiles[i]
		}
	}
	return m
}()

// ProfileFor returns the static profile for a language id.
func ProfileFor(id string) (*Profile, bool) {
	p, ok := profileByID[id]
	return p, ok
}

// ProfileForExt maps a file extension (with leading dot) to its profile.
func ProfileForExt(ext string) (*Profile, bool) {
	p, ok := profileByExt[ext]
	return p, ok
}

// Known lists all supported language ids in declaration order.
func Known() []string {
	ids := make([]string, 0, len(profiles))
	for i := range profiles {
		ids = append(ids, profiles[i].ID)
	}
	return ids
}

// AllIgnoreDirs merges the ignore sets of every profile; the scanner excludes
// them before a language is known.
func AllIgnoreDirs() []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for i := range profiles {
		for _, d := range profiles[i].IgnoreDirs {
			if !seen[d] {
				seen[d] = true
				out = append(out, d)
			}
		}
	}
	return out
}
