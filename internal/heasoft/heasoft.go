// Package heasoft locates and runs HEASoft tools. The tools are
// interactive parameter-prompting programs, so each invocation feeds a
// prepared answer script on stdin rather than passing flags.
package heasoft

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"autorxte/internal/logging"
)

// ToolError reports a tool that exited non-zero, carrying enough of
// stderr to diagnose without rerunning.
type ToolError struct {
	Tool     string
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Tool, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

// Check reports whether the named tool is on PATH.
func Check(tool string) error {
	if _, err := exec.LookPath(tool); err != nil {
		return fmt.Errorf("%s not found on PATH (is the HEASoft environment initialized, e.g. heainit?): %w", tool, err)
	}
	return nil
}

// Require checks every named tool up front so a pipeline fails before
// doing any work rather than at stage five.
func Require(tools ...string) error {
	var missing []string
	for _, t := range tools {
		if err := Check(t); err != nil {
			missing = append(missing, t)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing HEASoft tools: %s (is the HEASoft environment initialized, e.g. heainit?)",
			strings.Join(missing, ", "))
	}
	return nil
}

// Runner executes one tool invocation. The default runner shells out;
// tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, dir, tool string, script []string, args ...string) error
}

// ExecRunner runs tools as subprocesses.
type ExecRunner struct {
	// Quiet suppresses stdout capture in logs. Stderr is always kept
	// for error reporting.
	Quiet bool
}

// Run executes tool in dir, writing each script line to its stdin
// followed by a newline. args are passed on the command line for tools
// that take positional parameters.
func (r *ExecRunner) Run(ctx context.Context, dir, tool string, script []string, args ...string) error {
	logger := logging.New("heasoft")

	cmd := exec.CommandContext(ctx, tool, args...)
	cmd.Dir = dir
	if len(script) > 0 {
		cmd.Stdin = strings.NewReader(strings.Join(script, "\n") + "\n")
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Give a cancelled tool a moment to flush before the hard kill.
	cmd.WaitDelay = 5 * time.Second

	logger.Debug("running tool", "tool", tool, "dir", dir, "script_lines", len(script))
	err := cmd.Run()
	if err != nil {
		code := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		}
		return &ToolError{
			Tool:     tool,
			ExitCode: code,
			Stderr:   strings.TrimSpace(stderr.String()),
		}
	}
	if !r.Quiet && stdout.Len() > 0 {
		logger.Debug("tool output", "tool", tool, "stdout", strings.TrimSpace(stdout.String()))
	}
	return nil
}
