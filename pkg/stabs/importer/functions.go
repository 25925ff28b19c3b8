package importer

import (
	"context"
	"fmt"

	"github.com/jtang613/gostabs/pkg/stabs/ast"
	"github.com/jtang613/gostabs/pkg/stabs/database"
)

// noiseLabels are compiler-emitted marker symbols that must not survive
// as function names or labels.
var noiseLabels = map[string]bool{
	"gcc2_compiled.":           true,
	"__gnu_compiled_cplusplus": true,
}

// importFunctions materializes every function definition with a valid
// address range, across all source files. Individual failures are logged
// and skipped; cancellation is honored between functions, never inside
// one.
func (im *Importer) importFunctions(ctx context.Context) {
	for _, file := range im.state.doc.Files {
		for _, node := range file.Functions {
			if ctx.Err() != nil {
				return
			}
			def, ok := node.(*ast.FunctionDefinition)
			if !ok {
				im.log.AppendMsg("skipping non-function node %T in %s", node, file.Path)
				continue
			}
			ftype, ok := def.Type.(*ast.FunctionType)
			if !ok {
				im.log.AppendMsg("function %s in %s has a malformed signature", def.Name, file.Path)
				continue
			}
			if !def.AddressRange.Valid() {
				continue
			}
			im.importFunction(def, ftype, file)
		}
	}
}

func (im *Importer) importFunction(def *ast.FunctionDefinition, ftype *ast.FunctionType, file *ast.SourceFile) {
	low := def.AddressRange.Low
	high := def.AddressRange.High - 1

	function := im.findOrCreateFunction(def, low, high)
	if function == nil {
		return
	}
	im.setFunctionName(function, def, file, low)

	if ftype.ReturnType != nil {
		dt, err := im.state.createType(ftype.ReturnType)
		if err == nil {
			err = function.SetReturnType(dt)
		}
		if err != nil {
			im.log.AppendError("return type of "+def.Name, err)
		}
	}

	parameterNames := im.fillInParameters(function, def, ftype)

	if im.opts.OutputLineNumbers {
		for _, pair := range def.LineNumbers {
			im.prog.SetEOLComment(pair.Address, fmt.Sprintf("Line %d", pair.LineNumber))
		}
	}
	if im.opts.MarkInlinedCode {
		im.markInlinedCode(def, file)
	}

	im.fillInLocalVariables(function, def, parameterNames)
	im.summary.Functions++
}

// findOrCreateFunction reuses an existing function starting at low, or
// creates one. A degenerate range (high below low) produces a
// single-address function instead of a ranged one.
func (im *Importer) findOrCreateFunction(def *ast.FunctionDefinition, low, high int64) *database.Function {
	if f := im.prog.FunctionAt(low); f != nil {
		return f
	}
	var (
		f   *database.Function
		err error
	)
	if high < low {
		f, err = im.prog.CreateFunction(def.Name, low, low)
	} else {
		f, err = im.prog.CreateFunction(def.Name, low, high)
	}
	if err != nil {
		im.log.AppendMsg("Failed to create function %s: %v", def.Name, err)
		return im.prog.FunctionAt(low)
	}
	return f
}

// setFunctionName strips compiler-noise labels and any label matching the
// function's own name at the entry point, then assigns the name
// explicitly. Heuristic naming for that address is not trusted. The owning
// source file's path becomes the function comment.
func (im *Importer) setFunctionName(function *database.Function, def *ast.FunctionDefinition, file *ast.SourceFile, low int64) {
	existing := append([]*database.Symbol(nil), im.prog.SymbolsAt(low)...)
	for _, sym := range existing {
		if noiseLabels[sym.Name] || sym.Name == def.Name {
			im.prog.RemoveSymbol(low, sym.Name)
		}
	}
	if err := function.SetName(def.Name); err != nil {
		im.log.AppendError("rename function at entry", err)
	}
	function.SetComment(file.Path)
}

// fillInParameters builds the ordered parameter list from the function
// signature and installs it atomically. It returns the set of parameter
// names, which later shadows same-named stack locals; a name enters the
// set even when its parameter could not be constructed.
func (im *Importer) fillInParameters(function *database.Function, def *ast.FunctionDefinition, ftype *ast.FunctionType) map[string]struct{} {
	parameterNames := make(map[string]struct{}, len(ftype.Parameters))
	if len(ftype.Parameters) == 0 {
		return parameterNames
	}

	params := make([]*database.Parameter, 0, len(ftype.Parameters))
	for _, variable := range ftype.Parameters {
		dt, err := im.state.createType(variable.Type)
		if err != nil {
			im.log.AppendError("type of parameter "+variable.Name+" of "+def.Name, err)
			dt = database.Undefined1
		}
		dt = ReplaceVoidWithUndefined1(dt)
		if variable.Storage.IsByReference {
			dt = database.NewPointerType(dt)
		}
		param, err := database.NewParameter(variable.Name, dt)
		if err != nil {
			im.log.AppendError("parameter of "+def.Name, err)
		} else {
			params = append(params, param)
		}
		parameterNames[variable.Name] = struct{}{}
	}

	if err := function.ReplaceParameters(params); err != nil {
		im.log.AppendMsg("Failed to setup parameters for %s: %v", def.Name, err)
	}
	return parameterNames
}

// fillInLocalVariables adds the function's stack-resident locals. A local
// whose name matches a parameter is never added; statics and
// register-resident variables are left alone. Later same-named entries
// overwrite earlier ones before materialization.
func (im *Importer) fillInLocalVariables(function *database.Function, def *ast.FunctionDefinition, parameterNames map[string]struct{}) {
	stackLocals := make(map[string]*ast.Variable)
	for _, child := range def.Locals {
		variable, ok := child.(*ast.Variable)
		if !ok {
			continue
		}
		if _, taken := parameterNames[variable.Name]; taken {
			continue
		}
		if variable.StorageClass != ast.StorageClassStatic &&
			variable.Storage.Location == ast.StorageLocationStack {
			stackLocals[variable.Name] = variable
		}
	}

	for name, variable := range stackLocals {
		dt, err := im.state.createType(variable.Type)
		if err != nil {
			im.log.AppendError("type of local "+name+" in "+def.Name, err)
			continue
		}
		local, err := database.NewLocalVariable(name, ReplaceVoidWithUndefined1(dt), variable.Storage.StackPointerOffset)
		if err == nil {
			err = function.AddLocalVariable(local)
		}
		if err != nil {
			im.log.AppendError("local "+name+" in "+def.Name, err)
		}
	}
}
