// Package deps cross-references a project's declared dependencies against
// source-level usage evidence. Classification stays conservative: any
// ambiguity is surfaced as "unresolved" rather than guessed as "unused", and
// unresolved entries are never auto-removed.
package deps

import (
	"context"
	"os"
	"sort"
	"strings"
	"sync"

	"codezap/internal/core/lang"
	"codezap/internal/shared/observability"
	"codezap/internal/shared/util"
)

type Classification string

const (
	Used       Classification = "used"
	UnusedDep  Classification = "unused"
	Unresolved Classification = "unresolved"
)

// Finding is the verdict for one declared dependency.
type Finding struct {
	Name           string
	UsageCount     int
	Classification Classification
}

type Analyzer struct {
	workers int
	limiter *util.Limiter
}

func NewAnalyzer(workers int, limiter *util.Limiter) *Analyzer {
	if workers <= 0 {
		workers = 1
	}
	return &Analyzer{workers: workers, limiter: limiter}
}

type fileEvidence struct {
	path    string
	imports map[string]int
	content string
}

// Analyze parses the manifest and scans the language's source records for
// usage evidence, producing one Finding per declared dependency ordered by
// name. File reads parallelize across workers; results are merged in sorted
// path order so the outcome is independent of scheduling.
func (a *Analyzer) Analyze(ctx context.Context, language, manifestPath string, records []lang.FileRecord) ([]Finding, error) {
	entries, err := ParseManifest(language, manifestPath)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, rec := range records {
		if rec.Language == language {
			paths = append(paths, rec.Path)
		}
	}
	evidence, err := a.collect(ctx, language, paths)
	if err != nil {
		return nil, err
	}

	imports := make(map[string]int)
	var corpus strings.Builder
	for _, ev := range evidence {
		for name, n := range ev.imports {
			imports[name] += n
		}
		corpus.WriteString(ev.content)
		corpus.WriteByte('\n')
	}
	corpusText := corpus.String()

	profile, _ := lang.ProfileFor(language)
	builtins := make(map[string]bool)
	if profile != nil {
		for _, b := range profile.Builtins {
			builtins[b] = true
		}
	}

	findings := make([]Finding, 0, len(entries))
	for _, entry := range entries {
		findings = append(findings, classify(language, entry, imports, corpusText, builtins))
	}
	sort.Slice(findings, func(i, j int) bool { return findings[i].Name < findings[j].Name })

	tally := map[Classification]int{Used: 0, UnusedDep: 0, Unresolved: 0}
	for _, f := range findings {
		tally[f.Classification]++
	}
	for class, n := range tally {
		observability.DependencyFindings.WithLabelValues(string(class)).Set(float64(n))
	}
	return findings, nil
}

func (a *Analyzer) collect(ctx context.Context, language string, paths []string) ([]fileEvidence, error) {
	jobs := make(chan string)
	results := make(chan fileEvidence, len(paths))

	var wg sync.WaitGroup
	for i := 0; i < a.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				if err := a.limiter.Wait(ctx, 1); err != nil {
					return
				}
				data, err := os.ReadFile(path)
				if err != nil {
					// Disappeared mid-scan: no evidence either way.
					continue
				}
				content := string(data)
				results <- fileEvidence{
					path:    path,
					imports: ExtractImports(language, content),
					content: content,
				}
			}
		}()
	}

	for _, path := range paths {
		select {
		case jobs <- path:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return nil, ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()
	close(results)

	evidence := make([]fileEvidence, 0, len(paths))
	for ev := range results {
		evidence = append(evidence, ev)
	}
	sort.Slice(evidence, func(i, j int) bool { return evidence[i].path < evidence[j].path })
	return evidence, ctx.Err()
}

func classify(language string, entry ManifestEntry, imports map[string]int, corpus string, builtins map[string]bool) Finding {
	hits := importHits(language, entry.Name, imports)

	// A declared name colliding with a stdlib/builtin module cannot be
	// attributed: import evidence may belong to the standard library.
	if builtins[importName(language, entry.Name)] {
		return Finding{Name: entry.Name, UsageCount: hits, Classification: Unresolved}
	}
	if hits > 0 {
		return Finding{Name: entry.Name, UsageCount: hits, Classification: Used}
	}
	mentions := mentionCount(corpus, entry.Name)
	if alias := importName(language, entry.Name); alias != entry.Name {
		mentions += mentionCount(corpus, alias)
	}
	if mentions > 0 {
		// Textual mentions without an import statement: dynamic or indirect
		// usage we cannot rule out.
		return Finding{Name: entry.Name, UsageCount: mentions, Classification: Unresolved}
	}
	return Finding{Name: entry.Name, UsageCount: 0, Classification: UnusedDep}
}

func importHits(language, depName string, imports map[string]int) int {
	switch language {
	case lang.Go:
		// A go.mod module path is used when any import path equals it or
		// lives below it.
		total := 0
		for path, n := range imports {
			if path == depName || strings.HasPrefix(path, depName+"/") {
				total += n
			}
		}
		return total
	default:
		return imports[importName(language, depName)]
	}
}

// importName maps a declared dependency name onto the identifier that shows up
// in import statements. Python distribution names use dashes where the module
// uses underscores.
func importName(language, depName string) string {
	if language == lang.Python {
		return strings.ReplaceAll(strings.ToLower(depName), "-", "_")
	}
	return depName
}

// Unused filters findings down to confirmed-unused names; unresolved findings
// never qualify.
func Unused(findings []Finding) []string {
	names := make([]string, 0)
	for _, f := range findings {
		if f.Classification == UnusedDep {
			names = append(names, f.Name)
		}
	}
	return names
}
