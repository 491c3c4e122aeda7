package heasoft

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestCheck(t *testing.T) {
	if err := Check("definitely-not-a-real-tool-xyz"); err == nil {
		t.Error("missing tool must fail Check")
	}
	// `sh` exists on any platform these tools run on.
	if runtime.GOOS != "windows" {
		if err := Check("sh"); err != nil {
			t.Errorf("Check(sh): %v", err)
		}
	}
}

func TestRequire_NamesAllMissing(t *testing.T) {
	err := Require("no-such-tool-a", "no-such-tool-b")
	if err == nil {
		t.Fatal("Require must fail")
	}
	if !strings.Contains(err.Error(), "no-such-tool-a") || !strings.Contains(err.Error(), "no-such-tool-b") {
		t.Errorf("error must name every missing tool: %v", err)
	}
	if !strings.Contains(err.Error(), "heainit") {
		t.Errorf("error should hint at environment setup: %v", err)
	}
}

func TestExecRunner_FeedsScript(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	dir := t.TempDir()
	r := &ExecRunner{}
	// cat copies the stdin script to a file we can inspect.
	err := r.Run(context.Background(), dir, "sh", []string{"line1", "line2"},
		"-c", "cat > answers.txt")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	body, err := os.ReadFile(filepath.Join(dir, "answers.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "line1\nline2\n" {
		t.Errorf("stdin = %q", body)
	}
}

func TestExecRunner_ToolError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
	r := &ExecRunner{}
	err := r.Run(context.Background(), t.TempDir(), "sh", nil,
		"-c", "echo boom >&2; exit 3")
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("err = %v, want ToolError", err)
	}
	if toolErr.ExitCode != 3 || !strings.Contains(toolErr.Stderr, "boom") {
		t.Errorf("ToolError = %+v", toolErr)
	}
	if !strings.Contains(toolErr.Error(), "exited with code 3") {
		t.Errorf("Error() = %q", toolErr.Error())
	}
}
