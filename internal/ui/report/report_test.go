package report

import (
	"strings"
	"testing"
	"time"

	"codezap/internal/core/pipeline"
	"codezap/internal/data/history"
	"codezap/internal/deps"
)

func TestRender(t *testing.T) {
	rep := &pipeline.Report{
		Mode:     pipeline.ModeFix,
		Language: "python",
		Stages: []pipeline.StageResult{
			{Stage: "cleanup:autoflake", Status: pipeline.StatusSuccess, Message: "processed 2 files"},
			{Stage: "format:black", Status: pipeline.StatusFailed, Message: "black exited 2", Affected: []string{"/proj/main.py"}},
		},
		SnapshotID: "snap-1",
		RolledBack: true,
	}

	out := Render(rep)
	for _, want := range []string{
		"fix (python)",
		"cleanup:autoflake",
		"processed 2 files",
		"black exited 2",
		"/proj/main.py",
		"snapshot: snap-1",
		"rolled back",
		"overall: failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q:\n%s", want, out)
		}
	}
}

func TestRenderDryRun(t *testing.T) {
	rep := &pipeline.Report{Mode: pipeline.ModeCheck, Language: "go", DryRun: true}
	out := Render(rep)
	if !strings.Contains(out, "dry-run") {
		t.Errorf("expected dry-run tag:\n%s", out)
	}
	if !strings.Contains(out, "overall: success") {
		t.Errorf("expected empty report to be success:\n%s", out)
	}
}

func TestRenderFindings(t *testing.T) {
	findings := []deps.Finding{
		{Name: "requests", UsageCount: 4, Classification: deps.Used},
		{Name: "unused_pkg", Classification: deps.UnusedDep},
		{Name: "dynamic-dep", UsageCount: 1, Classification: deps.Unresolved},
	}
	out := RenderFindings(findings)
	for _, want := range []string{"requests", "used", "4 hits", "unused_pkg", "unused", "dynamic-dep", "unresolved"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q:\n%s", want, out)
		}
	}

	if out := RenderFindings(nil); !strings.Contains(out, "no declared dependencies") {
		t.Errorf("unexpected empty-findings output: %s", out)
	}
}

func TestRenderRuns(t *testing.T) {
	records := []history.RunRecord{
		{
			Timestamp: time.Date(2026, 8, 30, 9, 30, 0, 0, time.UTC),
			Mode:      "fix", Language: "python", Status: "failed",
			StagesTotal: 3, StagesFailed: 1,
			SnapshotID: "snap-9", RolledBack: true,
		},
	}
	out := RenderRuns(records)
	for _, want := range []string{"2026-08-30 09:30:00", "fix", "python", "failed", "snapshot=snap-9", "rolled-back"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q:\n%s", want, out)
		}
	}

	if out := RenderRuns(nil); !strings.Contains(out, "no recorded runs") {
		t.Errorf("unexpected empty output: %s", out)
	}
}
