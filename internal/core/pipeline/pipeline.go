// Package pipeline sequences cleanup, formatting and dependency-analysis
// stages against a project tree. Mutating runs are bracketed by the backup
// manager so the tree can always be returned to its pre-run state; every
// attempted stage yields exactly one StageResult.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"codezap/internal/backup"
	"codezap/internal/config"
	coreerrors "codezap/internal/core/errors"
	"codezap/internal/core/lang"
	"codezap/internal/core/scan"
	"codezap/internal/deps"
	"codezap/internal/shared/observability"
	"codezap/internal/tools"
)

type Options struct {
	Backup       bool
	Aggressive   bool
	DryRun       bool
	RemoveUnused bool
}

type Pipeline struct {
	cfg      *config.Config
	runner   tools.Runner
	analyzer *deps.Analyzer
	backups  *backup.Manager
}

func New(cfg *config.Config, runner tools.Runner, analyzer *deps.Analyzer, backups *backup.Manager) *Pipeline {
	return &Pipeline{cfg: cfg, runner: runner, analyzer: analyzer, backups: backups}
}

// Run executes one pipeline over root for the given language and mode.
// The returned Report always contains one StageResult per attempted stage;
// the error is non-nil only for conditions fatal to the run (no project
// files, backup failure, restore failure, cancellation).
func (p *Pipeline) Run(ctx context.Context, root, language string, records []lang.FileRecord, mode Mode, opts Options) (*Report, error) {
	profile, ok := lang.ProfileFor(language)
	if !ok {
		return nil, coreerrors.AddContext(
			coreerrors.New(coreerrors.CodeNoProjectFiles, "no project files found, check the path or pass an explicit language"),
			coreerrors.CtxLanguage, language)
	}

	var files []string
	for _, rec := range records {
		if rec.Language == language {
			files = append(files, rec.Path)
		}
	}
	if len(files) == 0 {
		return nil, coreerrors.AddContext(
			coreerrors.New(coreerrors.CodeNoProjectFiles, "no project files found for language"),
			coreerrors.CtxLanguage, language)
	}

	manifestPath, _ := scan.FindManifest(root, profile)

	ex := &execution{
		root:         root,
		profile:      profile,
		files:        files,
		manifestPath: manifestPath,
		aggressive:   opts.Aggressive,
		dryRun:       opts.DryRun,
	}
	report := &Report{Mode: mode, Language: language, DryRun: opts.DryRun}

	stages := p.buildStages(profile, mode, opts, records)

	snap, err := p.maybeSnapshot(mode, opts, ex, stages)
	if err != nil {
		observability.RunsTotal.WithLabelValues(string(mode), "failed").Inc()
		return report, err
	}
	if snap != nil {
		report.SnapshotID = snap.ID
	}

	failed := false
	cancelled := false
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			cancelled = true
		}
		switch {
		case cancelled:
			report.add(StageResult{Stage: st.name, Status: StatusSkipped, Message: "run cancelled"})
			continue
		case failed && st.mutating:
			// Formatting must see post-cleanup code, and no further
			// mutation may happen once a stage has failed and the tree is
			// headed for restore. Read-only stages stay independent.
			report.add(StageResult{Stage: st.name, Status: StatusSkipped, Message: "skipped after earlier stage failure"})
			continue
		}

		started := time.Now()
		res := st.run(ctx, ex)
		observability.StageDuration.WithLabelValues(st.name).Observe(time.Since(started).Seconds())
		report.add(res)

		if res.Status == StatusFailed {
			failed = true
			slog.Warn("stage failed", "stage", st.name, "message", res.Message)
		}
	}
	report.Findings = ex.findings

	// Restore-on-failure and restore-on-cancel: whenever a snapshot exists
	// and the run did not reach explicit success, the tree must come back.
	if snap != nil && !opts.DryRun && (failed || cancelled || !report.Success()) {
		if err := p.backups.Restore(snap); err != nil {
			observability.RunsTotal.WithLabelValues(string(mode), "failed").Inc()
			return report, err
		}
		report.RolledBack = true
	}

	status := "success"
	if !report.Success() || cancelled {
		status = "failed"
	}
	observability.RunsTotal.WithLabelValues(string(mode), status).Inc()

	if cancelled {
		return report, ctx.Err()
	}
	return report, nil
}

func (p *Pipeline) buildStages(profile *lang.Profile, mode Mode, opts Options, records []lang.FileRecord) []stage {
	var stages []stage
	cleanupSpecs, formatSpecs := splitSpecs(profile.Tools)

	switch mode {
	case ModeCheck:
		for _, spec := range cleanupSpecs {
			stages = append(stages, p.checkToolStage(spec))
		}
		stages = append(stages, p.commentedCodeStage(false))
		for _, spec := range formatSpecs {
			stages = append(stages, p.checkToolStage(spec))
		}
		stages = append(stages, p.depsScanStage(records))
	case ModeFix:
		// Cleanup strictly before formatting so formatting sees the
		// post-cleanup code and is never undone.
		for _, spec := range cleanupSpecs {
			stages = append(stages, p.applyToolStage(spec))
		}
		stages = append(stages, p.commentedCodeStage(true))
		if p.cfg.WriteIgnore {
			stages = append(stages, p.gitignoreStage())
		}
		for _, spec := range formatSpecs {
			stages = append(stages, p.applyToolStage(spec))
		}
	case ModeFormat:
		for _, spec := range formatSpecs {
			stages = append(stages, p.applyToolStage(spec))
		}
	case ModeDeps:
		stages = append(stages, p.depsScanStage(records))
		if opts.RemoveUnused {
			stages = append(stages, p.depsRemoveStage())
		}
	}
	return stages
}

func splitSpecs(specs []lang.ToolSpec) (cleanup, format []lang.ToolSpec) {
	for _, spec := range specs {
		if spec.Stage == kindFormat {
			format = append(format, spec)
		} else {
			cleanup = append(cleanup, spec)
		}
	}
	return cleanup, format
}

// maybeSnapshot takes the pre-mutation snapshot when the mode requires one.
// Fix mode snapshots the full language file set when the backup option is on;
// deps removal always snapshots the manifest it is about to rewrite.
func (p *Pipeline) maybeSnapshot(mode Mode, opts Options, ex *execution, stages []stage) (*backup.Snapshot, error) {
	if opts.DryRun {
		return nil, nil
	}
	mutating := false
	for _, st := range stages {
		if st.mutating {
			mutating = true
			break
		}
	}
	if !mutating {
		return nil, nil
	}

	switch {
	case mode == ModeFix && opts.Backup:
		paths := ex.files
		if ex.manifestPath != "" {
			paths = append(append([]string(nil), ex.files...), ex.manifestPath)
		}
		return p.backups.TakeSnapshot(ex.root, paths)
	case mode == ModeDeps && opts.RemoveUnused && ex.manifestPath != "":
		paths := []string{ex.manifestPath}
		if ex.profile.ID == lang.Go {
			// go mod tidy rewrites go.sum alongside go.mod.
			sum := filepath.Join(ex.root, "go.sum")
			if info, err := os.Stat(sum); err == nil && !info.IsDir() {
				paths = append(paths, sum)
			}
		}
		return p.backups.TakeSnapshot(ex.root, paths)
	}
	return nil, nil
}

// RestoreSnapshot replays a retained snapshot by id, for user-triggered
// rollback after a successful run.
func (p *Pipeline) RestoreSnapshot(id string) error {
	snap, err := p.backups.Load(id)
	if err != nil {
		return fmt.Errorf("load snapshot %s: %w", id, err)
	}
	return p.backups.Restore(snap)
}
