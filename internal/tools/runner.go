// Package tools is the process-exec capability consumed by the pipeline:
// locate a named executable, invoke it with arguments under a deadline, and
// capture its output. Formatters and cleaners are external collaborators; this
// is the whole surface the core needs from them.
package tools

import (
	"bytes"
	"context"
	"errors"
	"os/exec"

	"codezap/internal/shared/observability"
)

// Result captures one finished invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
}

// Success reports a zero exit without timeout.
func (r Result) Success() bool {
	return !r.TimedOut && r.ExitCode == 0
}

type Runner interface {
	// Available reports whether the named tool can be found on PATH.
	Available(tool string) bool
	// Run invokes tool with args under ctx. A context deadline produces
	// Result.TimedOut rather than an error; err is reserved for failures to
	// start the process at all.
	Run(ctx context.Context, dir, tool string, args ...string) (Result, error)
}

type ExecRunner struct{}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (e *ExecRunner) Available(tool string) bool {
	_, err := exec.LookPath(tool)
	return err == nil
}

func (e *ExecRunner) Run(ctx context.Context, dir, tool string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if ctx.Err() != nil {
		res.TimedOut = errors.Is(ctx.Err(), context.DeadlineExceeded)
		res.ExitCode = -1
		observability.ToolInvocationsTotal.WithLabelValues(tool, "timeout").Inc()
		return res, nil
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.ExitCode = 0
		observability.ToolInvocationsTotal.WithLabelValues(tool, "ok").Inc()
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
		observability.ToolInvocationsTotal.WithLabelValues(tool, "error").Inc()
	default:
		observability.ToolInvocationsTotal.WithLabelValues(tool, "start_failed").Inc()
		return res, err
	}
	return res, nil
}
