package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"codezap/internal/core/lang"
	"codezap/internal/deps"
	"codezap/internal/shared/util"
	"codezap/internal/tools"
)

const (
	kindCleanup    = "cleanup"
	kindFormat     = "format"
	kindComments   = "comments"
	kindGitignore  = "gitignore"
	kindDeps       = "deps"
	kindDepsRemove = "deps-remove"
)

type stage struct {
	name     string
	kind     string
	mutating bool
	run      func(ctx context.Context, ex *execution) StageResult
}

// execution carries the per-run state stages may read or extend.
type execution struct {
	root         string
	profile      *lang.Profile
	files        []string
	manifestPath string
	aggressive   bool
	dryRun       bool
	findings     []deps.Finding
}

// invoke runs one external tool call under the per-invocation timeout.
func (p *Pipeline) invoke(ctx context.Context, dir, tool string, args []string) (tools.Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.Tools.Timeout)
	defer cancel()
	return p.runner.Run(callCtx, dir, tool, args...)
}

func expandArgs(args []string, path string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = strings.ReplaceAll(a, "{path}", path)
	}
	return out
}

// needsChange interprets a check invocation for one file.
func needsChange(spec lang.ToolSpec, res tools.Result) bool {
	if spec.DirtyByStdout {
		return strings.TrimSpace(res.Stdout) != ""
	}
	return res.ExitCode != 0
}

func applyOK(spec lang.ToolSpec, res tools.Result) bool {
	if res.TimedOut {
		return false
	}
	if res.ExitCode == 0 {
		return true
	}
	for _, code := range spec.OKExitCodes {
		if res.ExitCode == code {
			return true
		}
	}
	return false
}

// checkToolStage reports which files the tool would change, without mutating.
func (p *Pipeline) checkToolStage(spec lang.ToolSpec) stage {
	return stage{
		name: spec.Stage + ":" + spec.Tool,
		kind: spec.Stage,
		run: func(ctx context.Context, ex *execution) StageResult {
			if !p.runner.Available(spec.Tool) {
				return StageResult{Stage: spec.Stage + ":" + spec.Tool, Status: StatusSkipped,
					Message: fmt.Sprintf("%s is not installed", spec.Tool)}
			}
			var dirty []string
			for _, file := range ex.files {
				res, err := p.invoke(ctx, ex.root, spec.Tool, expandArgs(spec.CheckArgs, file))
				if err != nil {
					return failedStage(spec.Stage+":"+spec.Tool, fmt.Sprintf("failed to invoke %s: %v", spec.Tool, err), dirty)
				}
				if res.TimedOut {
					return failedStage(spec.Stage+":"+spec.Tool, fmt.Sprintf("%s timed out on %s", spec.Tool, file), dirty)
				}
				if needsChange(spec, res) {
					dirty = append(dirty, file)
				}
			}
			msg := fmt.Sprintf("%d of %d files would change", len(dirty), len(ex.files))
			return StageResult{Stage: spec.Stage + ":" + spec.Tool, Status: StatusSuccess, Message: msg, Affected: dirty}
		},
	}
}

// applyToolStage runs the tool's mutating form over the file set. In dry-run
// it degrades to the check form.
func (p *Pipeline) applyToolStage(spec lang.ToolSpec) stage {
	check := p.checkToolStage(spec)
	return stage{
		name:     spec.Stage + ":" + spec.Tool,
		kind:     spec.Stage,
		mutating: true,
		run: func(ctx context.Context, ex *execution) StageResult {
			if ex.dryRun {
				return check.run(ctx, ex)
			}
			if !p.runner.Available(spec.Tool) {
				return StageResult{Stage: spec.Stage + ":" + spec.Tool, Status: StatusSkipped,
					Message: fmt.Sprintf("%s is not installed", spec.Tool)}
			}
			args := spec.ApplyArgs
			if ex.aggressive && len(spec.AggressiveArgs) > 0 {
				args = append(append([]string(nil), spec.AggressiveArgs...), spec.ApplyArgs...)
			}
			var affected []string
			for _, file := range ex.files {
				res, err := p.invoke(ctx, ex.root, spec.Tool, expandArgs(args, file))
				if err != nil {
					return failedStage(spec.Stage+":"+spec.Tool, fmt.Sprintf("failed to invoke %s: %v", spec.Tool, err), affected)
				}
				if res.TimedOut {
					return failedStage(spec.Stage+":"+spec.Tool, fmt.Sprintf("%s timed out on %s", spec.Tool, file), affected)
				}
				if !applyOK(spec, res) {
					return failedStage(spec.Stage+":"+spec.Tool,
						fmt.Sprintf("%s exited %d on %s: %s", spec.Tool, res.ExitCode, file, strings.TrimSpace(res.Stderr)), affected)
				}
				affected = append(affected, file)
			}
			return StageResult{Stage: spec.Stage + ":" + spec.Tool, Status: StatusSuccess,
				Message: fmt.Sprintf("processed %d files", len(affected)), Affected: affected}
		},
	}
}

// commentedCodeThreshold: a couple of code-looking comment lines are normal;
// more starts to look like dead code.
const commentedCodeThreshold = 2

// commentedCodeStage detects (and aggressively removes) commented-out code.
// Conservative mode never deletes comment lines: the false-positive risk of
// the line regex is only acceptable when the user opted into aggressive.
func (p *Pipeline) commentedCodeStage(mutate bool) stage {
	return stage{
		name:     "cleanup:commented-code",
		kind:     kindComments,
		mutating: mutate,
		run: func(ctx context.Context, ex *execution) StageResult {
			re, err := regexp.Compile(ex.profile.CommentCode)
			if err != nil {
				return failedStage("cleanup:commented-code", fmt.Sprintf("invalid comment pattern: %v", err), nil)
			}
			var flagged []string
			removedLines := 0
			for _, file := range ex.files {
				if ctx.Err() != nil {
					return failedStage("cleanup:commented-code", "cancelled", flagged)
				}
				data, err := os.ReadFile(file)
				if err != nil {
					continue
				}
				lines := strings.Split(string(data), "\n")
				matches := 0
				for _, line := range lines {
					if re.MatchString(line) {
						matches++
					}
				}
				if matches <= commentedCodeThreshold {
					continue
				}
				flagged = append(flagged, file)
				if !mutate || !ex.aggressive || ex.dryRun {
					continue
				}
				kept := lines[:0]
				for _, line := range lines {
					if re.MatchString(line) {
						removedLines++
						continue
					}
					kept = append(kept, line)
				}
				if err := util.WriteFileAtomic(file, []byte(strings.Join(kept, "\n")), 0o644); err != nil {
					return failedStage("cleanup:commented-code", fmt.Sprintf("rewrite %s: %v", file, err), flagged)
				}
			}
			msg := fmt.Sprintf("%d files with commented-out code", len(flagged))
			if removedLines > 0 {
				msg = fmt.Sprintf("removed %d commented-out lines across %d files", removedLines, len(flagged))
			}
			return StageResult{Stage: "cleanup:commented-code", Status: StatusSuccess, Message: msg, Affected: flagged}
		},
	}
}

// gitignoreStage provisions a language-appropriate .gitignore when missing.
func (p *Pipeline) gitignoreStage() stage {
	return stage{
		name:     "gitignore",
		kind:     kindGitignore,
		mutating: true,
		run: func(ctx context.Context, ex *execution) StageResult {
			target := filepath.Join(ex.root, ".gitignore")
			if _, err := os.Stat(target); err == nil {
				return StageResult{Stage: "gitignore", Status: StatusSkipped, Message: ".gitignore already present"}
			}
			if ex.dryRun {
				return StageResult{Stage: "gitignore", Status: StatusSuccess,
					Message: "would create .gitignore", Affected: []string{target}}
			}
			var b strings.Builder
			fmt.Fprintf(&b, "# %s .gitignore\n\n", ex.profile.ID)
			for _, pattern := range ex.profile.Gitignore {
				b.WriteString(pattern)
				b.WriteByte('\n')
			}
			if err := os.WriteFile(target, []byte(b.String()), 0o644); err != nil {
				return failedStage("gitignore", fmt.Sprintf("create .gitignore: %v", err), nil)
			}
			return StageResult{Stage: "gitignore", Status: StatusSuccess, Message: "created .gitignore", Affected: []string{target}}
		},
	}
}

// depsScanStage runs the dependency analyzer and stores findings on the run.
func (p *Pipeline) depsScanStage(records []lang.FileRecord) stage {
	return stage{
		name: "deps:scan",
		kind: kindDeps,
		run: func(ctx context.Context, ex *execution) StageResult {
			if ex.manifestPath == "" {
				return StageResult{Stage: "deps:scan", Status: StatusSkipped, Message: "no dependency manifest found"}
			}
			findings, err := p.analyzer.Analyze(ctx, ex.profile.ID, ex.manifestPath, records)
			if err != nil {
				return failedStage("deps:scan", err.Error(), nil)
			}
			ex.findings = findings
			used, unused, unresolved := 0, 0, 0
			for _, f := range findings {
				switch f.Classification {
				case deps.Used:
					used++
				case deps.UnusedDep:
					unused++
				case deps.Unresolved:
					unresolved++
				}
			}
			return StageResult{
				Stage:   "deps:scan",
				Status:  StatusSuccess,
				Message: fmt.Sprintf("%d used, %d unused, %d unresolved", used, unused, unresolved),
			}
		},
	}
}

// depsRemoveStage drops confirmed-unused entries from the manifest. Runs only
// after deps:scan; unresolved findings are never removed. Go projects delegate
// to `go mod tidy`, matching the toolchain's own source of truth.
func (p *Pipeline) depsRemoveStage() stage {
	return stage{
		name:     "deps:remove-unused",
		kind:     kindDepsRemove,
		mutating: true,
		run: func(ctx context.Context, ex *execution) StageResult {
			if ex.manifestPath == "" {
				return StageResult{Stage: "deps:remove-unused", Status: StatusSkipped, Message: "no dependency manifest found"}
			}
			if ex.profile.ID == lang.Go {
				if ex.dryRun {
					return StageResult{Stage: "deps:remove-unused", Status: StatusSuccess, Message: "would run go mod tidy"}
				}
				if !p.runner.Available("go") {
					return StageResult{Stage: "deps:remove-unused", Status: StatusSkipped, Message: "go toolchain is not installed"}
				}
				res, err := p.invoke(ctx, ex.root, "go", []string{"mod", "tidy"})
				if err != nil {
					return failedStage("deps:remove-unused", fmt.Sprintf("failed to invoke go: %v", err), nil)
				}
				if res.TimedOut {
					return failedStage("deps:remove-unused", "go mod tidy timed out", nil)
				}
				if res.ExitCode != 0 {
					return failedStage("deps:remove-unused", strings.TrimSpace(res.Stderr), nil)
				}
				return StageResult{Stage: "deps:remove-unused", Status: StatusSuccess,
					Message: "go mod tidy completed", Affected: []string{ex.manifestPath}}
			}

			unused := deps.Unused(ex.findings)
			if len(unused) == 0 {
				return StageResult{Stage: "deps:remove-unused", Status: StatusSkipped, Message: "no confirmed-unused dependencies"}
			}
			if ex.dryRun {
				return StageResult{Stage: "deps:remove-unused", Status: StatusSuccess,
					Message: fmt.Sprintf("would remove %d dependencies: %s", len(unused), strings.Join(unused, ", "))}
			}
			if err := deps.RemoveEntries(ex.profile.ID, ex.manifestPath, unused); err != nil {
				return failedStage("deps:remove-unused", err.Error(), nil)
			}
			return StageResult{Stage: "deps:remove-unused", Status: StatusSuccess,
				Message: fmt.Sprintf("removed %d dependencies: %s", len(unused), strings.Join(unused, ", ")),
				Affected: []string{ex.manifestPath}}
		},
	}
}

func failedStage(name, msg string, affected []string) StageResult {
	return StageResult{Stage: name, Status: StatusFailed, Message: msg, Affected: affected}
}
