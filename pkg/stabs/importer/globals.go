package importer

import (
	"context"

	"github.com/jtang613/gostabs/pkg/stabs/ast"
	"github.com/jtang613/gostabs/pkg/stabs/database"
)

// importGlobalVariables places every global variable with a non-negative
// storage address: a typed data unit (clearing conflicting data first)
// plus a primary label. Each step fails independently; one bad global
// never blocks the next.
func (im *Importer) importGlobalVariables(ctx context.Context) {
	for _, file := range im.state.doc.Files {
		for _, node := range file.Globals {
			if ctx.Err() != nil {
				return
			}
			global, ok := node.(*ast.Variable)
			if !ok {
				im.log.AppendMsg("skipping non-variable global node %T in %s", node, file.Path)
				continue
			}
			if global.Storage.GlobalAddress <= ast.NoAddress {
				continue
			}
			addr := global.Storage.GlobalAddress

			dt, err := im.state.createType(global.Type)
			if err != nil {
				im.log.AppendError("type of global "+global.Name, err)
				dt = database.Undefined1
			}
			dt = ReplaceVoidWithUndefined1(dt)

			if _, err := im.prog.CreateData(addr, dt); err != nil {
				im.log.AppendError("data for global "+global.Name, err)
			}
			if _, err := im.prog.CreateLabel(addr, global.Name, true); err != nil {
				im.log.AppendError("label for global "+global.Name, err)
			}
			im.summary.Globals++
		}
	}
}
