package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"codezap/internal/backup"
	"codezap/internal/config"
	coreerrors "codezap/internal/core/errors"
	"codezap/internal/core/lang"
	"codezap/internal/core/pipeline"
	"codezap/internal/core/scan"
	"codezap/internal/core/watcher"
	"codezap/internal/data/history"
	"codezap/internal/deps"
	"codezap/internal/shared/util"
	"codezap/internal/tools"
	"codezap/internal/ui/report"
)

// Run is the real entrypoint behind cmd/codezap. It returns the process exit
// code: 0 on success, 1 on any run failure, 2 on usage errors.
func Run(args []string) int {
	opts, err := parseOptions(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if opts.command == "version" {
		fmt.Printf("codezap v%s\n", versionString)
		return 0
	}

	logLevel := slog.LevelInfo
	if opts.verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		if opts.configPath != defaultConfigPath {
			slog.Error("failed to load config", "path", opts.configPath, "error", err)
			return 1
		}
		// No config file next to the project is the common case.
		cfg = config.Default()
	}

	root, err := filepath.Abs(opts.path)
	if err != nil {
		slog.Error("failed to resolve project path", "path", opts.path, "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch opts.command {
	case "history":
		return runHistory(cfg, root, opts.limit)
	case "restore":
		return runRestore(cfg, root, opts.snapshotID)
	default:
		return runPipeline(ctx, cfg, root, opts)
	}
}

func runPipeline(ctx context.Context, cfg *config.Config, root string, opts cliOptions) int {
	if cfg.Metrics.Listen != "" {
		go serveMetrics(cfg.Metrics.Listen)
	}

	var limiter *util.Limiter
	if cfg.Scan.ReadRate > 0 {
		limiter = util.NewLimiter(cfg.Scan.ReadRate, cfg.Scan.Workers)
	}

	scanner, err := scan.New(cfg.Exclude.Dirs, cfg.Exclude.Files, limiter)
	if err != nil {
		slog.Error("invalid exclude patterns", "error", err)
		return 1
	}

	analyzer := deps.NewAnalyzer(cfg.Scan.Workers, limiter)
	backups := backup.NewManager(cfg.ResolveBackupDir(root))
	pipe := pipeline.New(cfg, tools.NewExecRunner(), analyzer, backups)

	mode := pipeline.Mode(opts.command)
	pipeOpts := pipeline.Options{
		Backup:       opts.backup,
		Aggressive:   opts.aggressive,
		DryRun:       opts.dryRun,
		RemoveUnused: opts.removeUnused,
	}

	override := opts.language
	if override == "auto" {
		override = ""
	}

	runOnce := func(ctx context.Context) int {
		records, err := scanner.Scan(ctx, root)
		if err != nil {
			slog.Error("scan failed", "root", root, "error", err)
			return 1
		}

		det, err := lang.Detect(records, override)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		if det.Language == lang.Unknown {
			slog.Error("could not determine project language",
				"counts", det.Counts,
				"hint", "pass --lang explicitly")
			return 1
		}
		slog.Debug("language detected", "language", det.Language, "files", len(records))

		rep, runErr := pipe.Run(ctx, root, det.Language, records, mode, pipeOpts)
		if rep != nil {
			fmt.Print(report.Render(rep))
			if mode == pipeline.ModeDeps {
				fmt.Print(report.RenderFindings(rep.Findings))
			}
			recordRun(cfg, root, rep)
		}
		if runErr != nil {
			if coreerrors.IsFatal(runErr) {
				slog.Error("run failed", "error", runErr)
			} else {
				slog.Debug("run finished with error", "error", runErr)
			}
			return 1
		}
		if !rep.Success() {
			return 1
		}
		return 0
	}

	if opts.watch && mode == pipeline.ModeCheck {
		return runWatch(ctx, cfg, root, runOnce)
	}
	return runOnce(ctx)
}

// runWatch runs an initial check, then re-runs on every debounced filesystem
// change until the context is cancelled. The exit code tracks the most recent
// run; the debounce callback fires on the watcher's timer goroutine, so the
// shared code is atomic.
func runWatch(ctx context.Context, cfg *config.Config, root string, runOnce func(context.Context) int) int {
	var code atomic.Int32
	code.Store(int32(runOnce(ctx)))

	w, err := watcher.New(cfg.Watch.Debounce, cfg.Exclude.Dirs, func(paths []string) {
		slog.Info("change detected, re-running check", "files", len(paths))
		code.Store(int32(runOnce(ctx)))
	})
	if err != nil {
		slog.Error("failed to start watcher", "error", err)
		return 1
	}
	defer w.Close()

	if err := w.Watch(root); err != nil {
		slog.Error("failed to watch project", "root", root, "error", err)
		return 1
	}
	slog.Info("watching for changes", "root", root)

	<-ctx.Done()
	return int(code.Load())
}

func runHistory(cfg *config.Config, root string, limit int) int {
	if !cfg.History.Enabled {
		fmt.Fprintln(os.Stderr, "history is disabled in config")
		return 1
	}
	store, err := history.Open(cfg.ResolveHistoryPath(root))
	if err != nil {
		slog.Error("failed to open history store", "error", err)
		return 1
	}
	defer store.Close()

	runs, err := store.LoadRuns(limit)
	if err != nil {
		slog.Error("failed to load run history", "error", err)
		return 1
	}
	fmt.Print(report.RenderRuns(runs))
	return 0
}

func runRestore(cfg *config.Config, root, snapshotID string) int {
	mgr := backup.NewManager(cfg.ResolveBackupDir(root))

	var snap *backup.Snapshot
	var err error
	if snapshotID != "" {
		snap, err = mgr.Load(snapshotID)
	} else {
		var snaps []*backup.Snapshot
		snaps, err = mgr.List()
		if err == nil && len(snaps) == 0 {
			err = fmt.Errorf("no snapshots found under %s", cfg.ResolveBackupDir(root))
		}
		if err == nil {
			snap = snaps[0]
		}
	}
	if err != nil {
		slog.Error("failed to locate snapshot", "error", err)
		return 1
	}

	if err := mgr.Restore(snap); err != nil {
		slog.Error("restore failed", "snapshot", snap.ID, "error", err)
		return 1
	}
	fmt.Printf("restored %d files from snapshot %s\n", len(snap.Files), snap.ID)
	return 0
}

// recordRun persists the run outcome; history failures are logged, never
// surfaced as run failures.
func recordRun(cfg *config.Config, root string, rep *pipeline.Report) {
	if !cfg.History.Enabled {
		return
	}
	store, err := history.Open(cfg.ResolveHistoryPath(root))
	if err != nil {
		slog.Warn("history disabled for this run", "error", err)
		return
	}
	defer store.Close()

	rec := history.RunRecord{
		Timestamp:  time.Now().UTC(),
		Mode:       string(rep.Mode),
		Language:   rep.Language,
		SnapshotID: rep.SnapshotID,
		RolledBack: rep.RolledBack,
	}
	rec.Status = "success"
	if !rep.Success() {
		rec.Status = "failed"
	}
	for _, st := range rep.Stages {
		rec.StagesTotal++
		switch st.Status {
		case pipeline.StatusFailed:
			rec.StagesFailed++
		case pipeline.StatusSkipped:
			rec.StagesSkipped++
		}
	}
	if err := store.SaveRun(rec); err != nil {
		slog.Warn("failed to record run", "error", err)
	}
}

func serveMetrics(listen string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	slog.Info("metrics listener started", "addr", listen)
	if err := http.ListenAndServe(listen, mux); err != nil {
		slog.Warn("metrics listener stopped", "error", err)
	}
}
