package stdump

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCommandRunnerCapturesOutput(t *testing.T) {
	// echo prints its arguments, so stdout carries the subcommand and the
	// binary path and stderr stays empty.
	r := NewCommandRunner("echo")
	out, err := r.Run(context.Background(), "game.elf")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(string(out), "print_json game.elf") {
		t.Fatalf("unexpected stdout: %q", out)
	}
}

func TestCommandRunnerFailsOnExitStatus(t *testing.T) {
	r := NewCommandRunner("false")
	_, err := r.Run(context.Background(), "game.elf")
	if err == nil {
		t.Fatal("expected an error for a non-zero exit status")
	}
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("error is %T, want *ToolError", err)
	}
}

func TestCommandRunnerFailsOnStderrOutput(t *testing.T) {
	// A tool that exits zero but writes to stderr still fails the run.
	script := filepath.Join(t.TempDir(), "stdump")
	body := "#!/bin/sh\necho 'warning: odd section' >&2\nexit 0\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	r := NewCommandRunner(script)
	_, err := r.Run(context.Background(), "game.elf")
	if err == nil {
		t.Fatal("expected an error for stderr output")
	}
	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("error is %T, want *ToolError", err)
	}
	if len(toolErr.Stderr) != 1 || toolErr.Stderr[0] != "warning: odd section" {
		t.Fatalf("unexpected stderr lines: %v", toolErr.Stderr)
	}
}

func TestDefaultPath(t *testing.T) {
	if r := NewCommandRunner(""); r.Path != "stdump" {
		t.Fatalf("default path = %q, want stdump", r.Path)
	}
}

func TestSplitLines(t *testing.T) {
	lines := splitLines("first\r\nsecond\n\nthird")
	want := []string{"first", "second", "third"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d", len(lines), len(want))
	}
	for i, line := range lines {
		if line != want[i] {
			t.Errorf("line %d = %q, want %q", i, line, want[i])
		}
	}
}
