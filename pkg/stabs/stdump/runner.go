// Package stdump drives the external stdump analysis tool and parses its
// JSON output into the debug-info AST.
package stdump

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner produces the raw debug-info document for a binary. The concrete
// implementation shells out to stdump; tests substitute their own.
type Runner interface {
	Run(ctx context.Context, binaryPath string) ([]byte, error)
}

// ToolError reports a failed tool invocation together with whatever the
// tool wrote to stderr.
type ToolError struct {
	Stderr []string
	Err    error
}

func (e *ToolError) Error() string {
	if len(e.Stderr) > 0 {
		return fmt.Sprintf("stdump failed: %v: %s", e.Err, e.Stderr[0])
	}
	return fmt.Sprintf("stdump failed: %v", e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// CommandRunner invokes the stdump executable as a subprocess.
type CommandRunner struct {
	// Path is the stdump executable to invoke. Empty means "stdump" on
	// the search path.
	Path string
}

// NewCommandRunner creates a runner for the given executable path.
func NewCommandRunner(path string) *CommandRunner {
	if path == "" {
		path = "stdump"
	}
	return &CommandRunner{Path: path}
}

// Run invokes `stdump print_json <binary>` and returns its stdout. The
// output and error streams are drained concurrently by the subprocess
// machinery, so a chatty tool can never deadlock the importer. A run
// fails on a non-zero exit status or on any stderr output, whichever
// comes first in classification; stderr content is carried on the error
// either way.
func (r *CommandRunner) Run(ctx context.Context, binaryPath string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.Path, "print_json", binaryPath)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	stderrLines := splitLines(stderr.String())
	if err != nil {
		return nil, &ToolError{Stderr: stderrLines, Err: err}
	}
	if len(stderrLines) > 0 {
		return nil, &ToolError{Stderr: stderrLines, Err: fmt.Errorf("tool reported errors")}
	}
	return stdout.Bytes(), nil
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
