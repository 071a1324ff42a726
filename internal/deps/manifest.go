package deps

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/mod/modfile"

	coreerrors "codezap/internal/core/errors"
	"codezap/internal/core/lang"
	"codezap/internal/shared/util"
)

// ManifestEntry is one declared dependency. The constraint may be empty.
// Parsed fresh on every analysis, never cached across runs.
type ManifestEntry struct {
	Name       string
	Constraint string
}

var requirementName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*`)

// ParseManifest reads the declared dependency set from a manifest file.
// A malformed manifest fails with MANIFEST_PARSE; the caller reports it
// without killing the whole pipeline.
func ParseManifest(language, path string) ([]ManifestEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, coreerrors.AddContext(
			coreerrors.Wrap(err, coreerrors.CodeManifestParse, "read manifest"),
			coreerrors.CtxPath, path)
	}

	switch {
	case language == lang.Python && filepath.Base(path) == "requirements.txt":
		return parseRequirements(string(data))
	case language == lang.Python && filepath.Base(path) == "pyproject.toml":
		return parsePyproject(data)
	case language == lang.JavaScript:
		return parsePackageJSON(data)
	case language == lang.Go:
		return parseGoMod(path, data)
	}
	return nil, coreerrors.AddContext(
		coreerrors.New(coreerrors.CodeManifestParse, fmt.Sprintf("unsupported manifest %s for %s", filepath.Base(path), language)),
		coreerrors.CtxPath, path)
}

func parseRequirements(content string) ([]ManifestEntry, error) {
	entries := make([]ManifestEntry, 0)
	for i, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		name := requirementName.FindString(line)
		if name == "" {
			return nil, coreerrors.New(coreerrors.CodeManifestParse,
				fmt.Sprintf("requirements line %d is not a valid requirement: %q", i+1, line))
		}
		entries = append(entries, ManifestEntry{
			Name:       name,
			Constraint: strings.TrimSpace(strings.TrimPrefix(line, name)),
		})
	}
	return entries, nil
}

func parsePyproject(data []byte) ([]ManifestEntry, error) {
	var doc struct {
		Project struct {
			Dependencies []string `toml:"dependencies"`
		} `toml:"project"`
	}
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeManifestParse, "parse pyproject.toml")
	}
	entries := make([]ManifestEntry, 0, len(doc.Project.Dependencies))
	for _, dep := range doc.Project.Dependencies {
		dep = strings.TrimSpace(dep)
		name := requirementName.FindString(dep)
		if name == "" {
			return nil, coreerrors.New(coreerrors.CodeManifestParse,
				fmt.Sprintf("pyproject dependency is not a valid requirement: %q", dep))
		}
		entries = append(entries, ManifestEntry{Name: name, Constraint: strings.TrimSpace(strings.TrimPrefix(dep, name))})
	}
	return entries, nil
}

func parsePackageJSON(data []byte) ([]ManifestEntry, error) {
	var doc struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeManifestParse, "parse package.json")
	}
	entries := make([]ManifestEntry, 0, len(doc.Dependencies)+len(doc.DevDependencies))
	for name, constraint := range doc.Dependencies {
		entries = append(entries, ManifestEntry{Name: name, Constraint: constraint})
	}
	for name, constraint := range doc.DevDependencies {
		entries = append(entries, ManifestEntry{Name: name, Constraint: constraint})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func parseGoMod(path string, data []byte) ([]ManifestEntry, error) {
	file, err := modfile.Parse(path, data, nil)
	if err != nil {
		return nil, coreerrors.Wrap(err, coreerrors.CodeManifestParse, "parse go.mod")
	}
	entries := make([]ManifestEntry, 0, len(file.Require))
	for _, req := range file.Require {
		if req.Indirect {
			continue
		}
		entries = append(entries, ManifestEntry{Name: req.Mod.Path, Constraint: req.Mod.Version})
	}
	return entries, nil
}

// RemoveEntries rewrites the manifest without the named dependencies.
// Supported for requirements.txt and package.json; go.mod cleanup is delegated
// to `go mod tidy` by the pipeline.
func RemoveEntries(language, path string, names []string) error {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch {
	case language == lang.Python && filepath.Base(path) == "requirements.txt":
		kept := make([]string, 0)
		for _, line := range strings.Split(string(data), "\n") {
			name := requirementName.FindString(strings.TrimSpace(line))
			if name != "" && drop[name] {
				continue
			}
			kept = append(kept, line)
		}
		return util.WriteFileAtomic(path, []byte(strings.Join(kept, "\n")), 0o644)

	case language == lang.JavaScript:
		var doc map[string]json.RawMessage
		if err := json.Unmarshal(data, &doc); err != nil {
			return coreerrors.Wrap(err, coreerrors.CodeManifestParse, "parse package.json")
		}
		for _, section := range []string{"dependencies", "devDependencies"} {
			raw, ok := doc[section]
			if !ok {
				continue
			}
			var depMap map[string]string
			if err := json.Unmarshal(raw, &depMap); err != nil {
				return coreerrors.Wrap(err, coreerrors.CodeManifestParse, "parse package.json "+section)
			}
			for name := range depMap {
				if drop[name] {
					delete(depMap, name)
				}
			}
			encoded, err := json.Marshal(depMap)
			if err != nil {
				return err
			}
			doc[section] = encoded
		}
		out, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		return util.WriteFileAtomic(path, append(out, '\n'), 0o644)
	}
	return fmt.Errorf("dependency removal not supported for %s manifest %s", language, filepath.Base(path))
}
