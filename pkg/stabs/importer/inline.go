package importer

import (
	"github.com/jtang613/gostabs/pkg/stabs/ast"
)

// markInlinedCode derives inline-expansion boundaries from a function's
// ordered breadcrumb list. The primary path is the function's own
// relative path when present, else the owning file's. A breadcrumb whose
// path differs from the primary means the instruction at that address was
// inlined from elsewhere; annotations are emitted only on transitions.
// One linear pass, one active region at a time: nested inlining collapses
// to whichever breadcrumb is currently active.
func (im *Importer) markInlinedCode(def *ast.FunctionDefinition, file *ast.SourceFile) {
	path := def.RelativePath
	if path == "" {
		path = file.RelativePath
	}

	wasInlining := false
	for _, sub := range def.SubSourceFiles {
		isInlining := sub.RelativePath != path
		if isInlining && !wasInlining {
			im.prog.SetPreComment(sub.Address, "inlined from "+sub.RelativePath)
		} else if !isInlining && wasInlining {
			im.prog.SetPreComment(sub.Address, "end of inlined section")
		}
		wasInlining = isInlining
	}
}
