// Package importer reconstructs compiler-emitted debug information inside
// a program database: data types from the deduplicated type table,
// function signatures with parameters and stack locals, global variable
// placements, source-line annotations and inline-expansion boundaries.
//
// The pipeline is single-threaded and tolerant of partial failure: only
// input acquisition and document parsing can abort a run; once type
// import begins, item-level problems are accumulated in the MessageLog
// and the run always completes.
package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jtang613/gostabs/pkg/stabs/ast"
	"github.com/jtang613/gostabs/pkg/stabs/database"
	"github.com/jtang613/gostabs/pkg/stabs/stdump"
)

// Options selects which symbol categories a run imports and how the input
// document is obtained.
type Options struct {
	ImportDataTypes   bool
	ImportFunctions   bool
	ImportGlobals     bool
	MarkInlinedCode   bool
	OutputLineNumbers bool

	// OverrideBinaryPath supplies a pre-built binary instead of exporting
	// the program image; OverrideJSONPath supplies a pre-built debug-info
	// document instead of running the external tool. Neither changes the
	// reconstruction logic.
	OverrideBinaryPath string
	OverrideJSONPath   string
}

// DefaultOptions enables every import category.
func DefaultOptions() Options {
	return Options{
		ImportDataTypes:   true,
		ImportFunctions:   true,
		ImportGlobals:     true,
		MarkInlinedCode:   true,
		OutputLineNumbers: true,
	}
}

// Stage identifies where in the pipeline a run currently is.
type Stage int

const (
	StageIdle Stage = iota
	StagePreparingInput
	StageParsing
	StageImportingTypes
	StageImportingFunctions
	StageImportingGlobals
	StageDone
	StageAborted
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StagePreparingInput:
		return "preparing input"
	case StageParsing:
		return "parsing"
	case StageImportingTypes:
		return "importing types"
	case StageImportingFunctions:
		return "importing functions"
	case StageImportingGlobals:
		return "importing globals"
	case StageDone:
		return "done"
	case StageAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Summary reports how many items a run materialized. Skipped items are
// visible only through the MessageLog.
type Summary struct {
	Types     int
	Functions int
	Globals   int
}

// Importer sequences one import run against a program database.
type Importer struct {
	// Runner invokes the external analysis tool; Parse turns its output
	// into the AST. Both default to the stdump implementations when nil.
	Runner stdump.Runner
	Parse  func([]byte) (*ast.Document, error)

	// TempDir overrides the directory used for the run's temporary files.
	// Empty means the system default.
	TempDir string

	prog    *database.Program
	opts    Options
	log     *MessageLog
	state   *ImporterState
	stage   Stage
	summary Summary
}

// New creates an importer for one run against prog.
func New(prog *database.Program, opts Options, log *MessageLog) *Importer {
	return &Importer{
		prog:  prog,
		opts:  opts,
		log:   log,
		stage: StageIdle,
	}
}

// Stage returns the pipeline stage the run is currently in.
func (im *Importer) Stage() Stage { return im.stage }

// Log returns the run's diagnostics sink.
func (im *Importer) Log() *MessageLog { return im.log }

// Run executes the whole pipeline. The returned error is non-nil only for
// input-acquisition or parse failures, which abort before any database
// mutation; every later failure is a diagnostic in the MessageLog and
// does not change the run's outcome. Cancellation is cooperative and
// checked between items, never inside one.
func (im *Importer) Run(ctx context.Context) (Summary, error) {
	im.stage = StagePreparingInput
	data, cleanup, err := im.prepareInput(ctx)
	if cleanup != nil {
		defer cleanup()
	}
	if err != nil {
		im.stage = StageAborted
		im.log.AppendError("prepare input", err)
		return Summary{}, err
	}

	im.stage = StageParsing
	parse := im.Parse
	if parse == nil {
		parse = stdump.Parse
	}
	doc, err := parse(data)
	if err != nil {
		im.stage = StageAborted
		err = fmt.Errorf("parse debug info document: %w", err)
		im.log.AppendError("parse", err)
		return Summary{}, err
	}

	im.state = newImporterState(doc, im.opts, im.log, im.prog.TypeManager())

	im.stage = StageImportingTypes
	if im.opts.ImportDataTypes && ctx.Err() == nil {
		im.summary.Types = im.state.importDataTypes()
	}

	im.stage = StageImportingFunctions
	if im.opts.ImportFunctions {
		im.importFunctions(ctx)
	}

	im.stage = StageImportingGlobals
	if im.opts.ImportGlobals {
		im.importGlobalVariables(ctx)
	}

	if err := ctx.Err(); err != nil {
		im.log.AppendMsg("import interrupted: %v", err)
	}
	im.stage = StageDone
	return im.summary, nil
}

// prepareInput obtains the raw debug-info document: a pre-built JSON
// override, or the external tool run against a pre-built binary or
// against the program image written to a per-run temporary directory.
// The cleanup function, when non-nil, removes everything this step wrote
// to temporary storage and is safe to call on every path.
func (im *Importer) prepareInput(ctx context.Context) ([]byte, func(), error) {
	if im.opts.OverrideJSONPath != "" {
		data, err := os.ReadFile(im.opts.OverrideJSONPath)
		if err != nil {
			return nil, nil, fmt.Errorf("read debug info document: %w", err)
		}
		return data, nil, nil
	}

	binaryPath := im.opts.OverrideBinaryPath
	var cleanup func()
	if binaryPath == "" {
		image := im.prog.Image()
		if len(image) == 0 {
			return nil, nil, errors.New("no binary image loaded and no override path set")
		}
		dir, err := os.MkdirTemp(im.TempDir, "gostabs")
		if err != nil {
			return nil, nil, fmt.Errorf("create temporary directory: %w", err)
		}
		cleanup = func() { os.RemoveAll(dir) }
		binaryPath = filepath.Join(dir, "input.elf")
		if err := os.WriteFile(binaryPath, image, 0o644); err != nil {
			return nil, cleanup, fmt.Errorf("write temporary binary: %w", err)
		}
	}

	runner := im.Runner
	if runner == nil {
		runner = stdump.NewCommandRunner("")
	}
	data, err := runner.Run(ctx, binaryPath)
	if err != nil {
		var toolErr *stdump.ToolError
		if errors.As(err, &toolErr) {
			for _, line := range toolErr.Stderr {
				im.log.AppendMsg("stdump: %s", line)
			}
		}
		return nil, cleanup, fmt.Errorf("run debug info tool: %w", err)
	}
	return data, cleanup, nil
}
