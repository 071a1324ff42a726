package pipeline

import "codezap/internal/deps"

type Mode string

const (
	ModeCheck  Mode = "check"
	ModeFix    Mode = "fix"
	ModeFormat Mode = "format"
	ModeDeps   Mode = "deps"
)

type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// StageResult records one attempted stage. Immutable after creation; the
// pipeline appends exactly one per attempted stage regardless of outcome.
type StageResult struct {
	Stage    string
	Status   Status
	Message  string
	Affected []string
}

// Report is the terminal artifact of a pipeline run: the ordered stage
// results plus everything the caller needs to explain what happened.
type Report struct {
	Mode     Mode
	Language string
	DryRun   bool
	Stages   []StageResult

	// SnapshotID is set when a backup snapshot was taken; the snapshot is
	// retained on disk after success for user-triggered restore.
	SnapshotID string
	// RolledBack is true when a failure triggered an automatic restore and
	// the restore completed.
	RolledBack bool

	// Findings is populated in deps mode.
	Findings []deps.Finding
}

// Success reports overall status: true iff no stage failed.
func (r *Report) Success() bool {
	for _, s := range r.Stages {
		if s.Status == StatusFailed {
			return false
		}
	}
	return true
}

func (r *Report) add(res StageResult) {
	r.Stages = append(r.Stages, res)
}
