package deps

import (
	"regexp"
	"strings"

	"codezap/internal/core/lang"
)

// Import extraction is deliberately regex-level: enough evidence for
// cross-referencing declared dependencies, not semantic analysis.

var (
	pyImport     = regexp.MustCompile(`(?m)^\s*import\s+([\w.]+(?:\s*,\s*[\w.]+)*)`)
	pyFromImport = regexp.MustCompile(`(?m)^\s*from\s+([\w.]+)\s+import`)

	jsRequire    = regexp.MustCompile(`require\s*\(\s*['"]([^'"\s]+)['"]\s*\)`)
	jsImportFrom = regexp.MustCompile(`(?m)import\s+[^'"]*?from\s+['"]([^'"\s]+)['"]`)
	jsImportBare = regexp.MustCompile(`(?m)^\s*import\s+['"]([^'"\s]+)['"]`)
	jsImportDyn  = regexp.MustCompile(`import\s*\(\s*['"]([^'"\s]+)['"]\s*\)`)

	goImportOne   = regexp.MustCompile(`(?m)^\s*import\s+(?:\w+\s+|\.\s+|_\s+)?"([^"]+)"`)
	goImportBlock = regexp.MustCompile(`(?s)import\s*\((.*?)\)`)
	goImportLine  = regexp.MustCompile(`"([^"]+)"`)
)

// ExtractImports returns a count of import evidence per imported name for one
// source file. Python/JavaScript names are reduced to the top-level package;
// Go names stay full import paths so go.mod module paths can prefix-match.
func ExtractImports(language, content string) map[string]int {
	hits := make(map[string]int)
	switch language {
	case lang.Python:
		for _, m := range pyImport.FindAllStringSubmatch(content, -1) {
			for _, mod := range strings.Split(m[1], ",") {
				if top := topLevel(strings.TrimSpace(mod), "."); top != "" {
					hits[top]++
				}
			}
		}
		for _, m := range pyFromImport.FindAllStringSubmatch(content, -1) {
			if top := topLevel(m[1], "."); top != "" {
				hits[top]++
			}
		}
	case lang.JavaScript:
		for _, re := range []*regexp.Regexp{jsRequire, jsImportFrom, jsImportBare, jsImportDyn} {
			for _, m := range re.FindAllStringSubmatch(content, -1) {
				if pkg := jsPackageName(m[1]); pkg != "" {
					hits[pkg]++
				}
			}
		}
	case lang.Go:
		for _, m := range goImportOne.FindAllStringSubmatch(content, -1) {
			hits[m[1]]++
		}
		for _, block := range goImportBlock.FindAllStringSubmatch(content, -1) {
			for _, m := range goImportLine.FindAllStringSubmatch(block[1], -1) {
				hits[m[1]]++
			}
		}
	}
	return hits
}

func topLevel(module, sep string) string {
	if module == "" {
		return ""
	}
	if i := strings.Index(module, sep); i >= 0 {
		return module[:i]
	}
	return module
}

// jsPackageName reduces an import specifier to its package name: first path
// segment, or the first two for @scope/name. Relative specifiers carry no
// dependency evidence.
func jsPackageName(spec string) string {
	if spec == "" || strings.HasPrefix(spec, ".") || strings.HasPrefix(spec, "/") {
		return ""
	}
	parts := strings.Split(spec, "/")
	if strings.HasPrefix(spec, "@") && len(parts) >= 2 {
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

// mentionCount counts raw textual occurrences of a dependency name; used to
// separate "unused" from "unresolved" when no import-level evidence exists
// (dynamic imports, names built from strings).
func mentionCount(content, name string) int {
	if name == "" {
		return 0
	}
	return strings.Count(content, name)
}
