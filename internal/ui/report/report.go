// Package report renders pipeline reports and dependency findings for the
// terminal. It only consumes the values the pipeline produced.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"codezap/internal/core/pipeline"
	"codezap/internal/data/history"
	"codezap/internal/deps"
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	failStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B"))
)

func statusLabel(status pipeline.Status) string {
	switch status {
	case pipeline.StatusSuccess:
		return successStyle.Render("ok")
	case pipeline.StatusSkipped:
		return dimStyle.Render("skipped")
	default:
		return failStyle.Render("failed")
	}
}

// Render formats a pipeline report as terminal text.
func Render(r *pipeline.Report) string {
	var b strings.Builder

	header := fmt.Sprintf("%s (%s)", r.Mode, r.Language)
	if r.DryRun {
		header += dimStyle.Render(" [dry-run]")
	}
	b.WriteString(header + "\n")

	for _, st := range r.Stages {
		fmt.Fprintf(&b, "  %-28s %s", st.Stage, statusLabel(st.Status))
		if st.Message != "" {
			b.WriteString("  " + st.Message)
		}
		b.WriteByte('\n')
		if st.Status == pipeline.StatusFailed {
			for _, path := range st.Affected {
				fmt.Fprintf(&b, "    %s\n", dimStyle.Render(path))
			}
		}
	}

	if r.SnapshotID != "" {
		fmt.Fprintf(&b, "  snapshot: %s\n", r.SnapshotID)
		if r.RolledBack {
			b.WriteString("  " + warnStyle.Render("tree rolled back to pre-run state") + "\n")
		}
	}

	if r.Success() {
		b.WriteString(successStyle.Render("overall: success") + "\n")
	} else {
		b.WriteString(failStyle.Render("overall: failed") + "\n")
	}
	return b.String()
}

// RenderFindings formats dependency findings, one line per declared
// dependency.
func RenderFindings(findings []deps.Finding) string {
	if len(findings) == 0 {
		return successStyle.Render("no declared dependencies found") + "\n"
	}

	var b strings.Builder
	for _, f := range findings {
		var label string
		switch f.Classification {
		case deps.Used:
			label = successStyle.Render(string(f.Classification))
		case deps.UnusedDep:
			label = failStyle.Render(string(f.Classification))
		default:
			label = warnStyle.Render(string(f.Classification))
		}
		fmt.Fprintf(&b, "  %-32s %s", f.Name, label)
		if f.UsageCount > 0 {
			fmt.Fprintf(&b, "  %s", dimStyle.Render(fmt.Sprintf("%d hits", f.UsageCount)))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// RenderRuns formats history records, newest first.
func RenderRuns(records []history.RunRecord) string {
	if len(records) == 0 {
		return dimStyle.Render("no recorded runs") + "\n"
	}

	var b strings.Builder
	for _, rec := range records {
		status := successStyle.Render(rec.Status)
		if rec.Status != "success" {
			status = failStyle.Render(rec.Status)
		}
		fmt.Fprintf(&b, "  %s  %-6s %-10s %s  stages=%d failed=%d skipped=%d",
			rec.Timestamp.Format("2006-01-02 15:04:05"),
			rec.Mode, rec.Language, status,
			rec.StagesTotal, rec.StagesFailed, rec.StagesSkipped)
		if rec.SnapshotID != "" {
			fmt.Fprintf(&b, " snapshot=%s", rec.SnapshotID)
		}
		if rec.RolledBack {
			b.WriteString(" " + warnStyle.Render("rolled-back"))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
