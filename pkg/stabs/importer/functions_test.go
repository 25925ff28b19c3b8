package importer

import (
	"context"
	"testing"

	"github.com/jtang613/gostabs/pkg/stabs/ast"
	"github.com/jtang613/gostabs/pkg/stabs/database"
)

func newTestImporter(doc *ast.Document) (*Importer, *database.Program) {
	prog := database.NewProgram()
	im := New(prog, DefaultOptions(), NewMessageLog())
	im.state = newImporterState(doc, im.opts, im.log, prog.TypeManager())
	im.state.importDataTypes()
	return im, prog
}

func stackVar(name string, offset int32) *ast.Variable {
	return &ast.Variable{
		NodeHeader: ast.NodeHeader{Name: name, StorageClass: ast.StorageClassAuto},
		Type:       intNode(),
		Storage: ast.VariableStorage{
			Location:           ast.StorageLocationStack,
			GlobalAddress:      ast.NoAddress,
			StackPointerOffset: offset,
		},
	}
}

func paramVar(name string) *ast.Variable {
	return &ast.Variable{
		NodeHeader: ast.NodeHeader{Name: name},
		Type:       intNode(),
		Storage:    ast.VariableStorage{GlobalAddress: ast.NoAddress},
	}
}

func funcDoc(def *ast.FunctionDefinition) *ast.Document {
	return &ast.Document{
		Files: []*ast.SourceFile{
			{
				NodeHeader:   named("main.c"),
				Path:         "src/main.c",
				RelativePath: "main.c",
				Functions:    []ast.Node{def},
			},
		},
	}
}

func TestImportFunctionBasics(t *testing.T) {
	def := &ast.FunctionDefinition{
		NodeHeader:   named("update"),
		AddressRange: ast.AddressRange{Low: 0x100, High: 0x140},
		Type: &ast.FunctionType{
			ReturnType: intNode(),
			Parameters: []*ast.Variable{paramVar("dt")},
		},
		LineNumbers: []ast.LineNumberPair{{Address: 0x104, LineNumber: 42}},
	}
	im, prog := newTestImporter(funcDoc(def))
	im.importFunctions(context.Background())

	f := prog.FunctionAt(0x100)
	if f == nil {
		t.Fatal("function not created")
	}
	if f.Name() != "update" {
		t.Fatalf("name = %q, want update", f.Name())
	}
	if f.End() != 0x13f {
		t.Fatalf("end = %#x, want 0x13f", f.End())
	}
	if f.Comment() != "src/main.c" {
		t.Fatalf("comment = %q, want the source path", f.Comment())
	}
	if rt := f.ReturnType(); rt == nil || rt.Name() != "int" {
		t.Fatalf("return type = %v, want int", rt)
	}
	params := f.Parameters()
	if len(params) != 1 || params[0].Name != "dt" || params[0].Storage != "a0" {
		t.Fatalf("unexpected parameters: %+v", params)
	}
	if got := prog.EOLComment(0x104); got != "Line 42" {
		t.Fatalf("EOL comment = %q, want \"Line 42\"", got)
	}
	if im.summary.Functions != 1 {
		t.Fatalf("summary.Functions = %d, want 1", im.summary.Functions)
	}
}

func TestParameterShadowsSameNamedLocal(t *testing.T) {
	def := &ast.FunctionDefinition{
		NodeHeader:   named("f"),
		AddressRange: ast.AddressRange{Low: 0x100, High: 0x140},
		Type: &ast.FunctionType{
			ReturnType: intNode(),
			Parameters: []*ast.Variable{paramVar("x")},
		},
		Locals: []ast.Node{stackVar("x", 8), stackVar("y", 12)},
	}
	im, prog := newTestImporter(funcDoc(def))
	im.importFunctions(context.Background())

	f := prog.FunctionAt(0x100)
	locals := f.Locals()
	if len(locals) != 1 {
		t.Fatalf("got %d locals, want only the unshadowed one", len(locals))
	}
	if locals[0].Name != "y" || locals[0].StackOffset != 12 {
		t.Fatalf("unexpected local: %+v", locals[0])
	}
}

func TestLaterLocalOverridesEarlierSameName(t *testing.T) {
	def := &ast.FunctionDefinition{
		NodeHeader:   named("f"),
		AddressRange: ast.AddressRange{Low: 0x100, High: 0x140},
		Type:         &ast.FunctionType{ReturnType: intNode()},
		Locals:       []ast.Node{stackVar("tmp", 8), stackVar("tmp", 24)},
	}
	im, prog := newTestImporter(funcDoc(def))
	im.importFunctions(context.Background())

	locals := prog.FunctionAt(0x100).Locals()
	if len(locals) != 1 {
		t.Fatalf("got %d locals, want 1", len(locals))
	}
	if locals[0].StackOffset != 24 {
		t.Fatalf("offset = %d, want the later declaration to win", locals[0].StackOffset)
	}
}

func TestStaticAndRegisterLocalsAreSkipped(t *testing.T) {
	static := stackVar("counter", 8)
	static.StorageClass = ast.StorageClassStatic
	reg := &ast.Variable{
		NodeHeader: ast.NodeHeader{Name: "fast"},
		Type:       intNode(),
		Storage:    ast.VariableStorage{Location: ast.StorageLocationRegister, Register: 4},
	}
	def := &ast.FunctionDefinition{
		NodeHeader:   named("f"),
		AddressRange: ast.AddressRange{Low: 0x100, High: 0x140},
		Type:         &ast.FunctionType{ReturnType: intNode()},
		Locals:       []ast.Node{static, reg},
	}
	im, prog := newTestImporter(funcDoc(def))
	im.importFunctions(context.Background())

	if locals := prog.FunctionAt(0x100).Locals(); len(locals) != 0 {
		t.Fatalf("got %d locals, want none", len(locals))
	}
}

func TestDegenerateRangeBecomesSingleAddressFunction(t *testing.T) {
	def := &ast.FunctionDefinition{
		NodeHeader:   named("stub"),
		AddressRange: ast.AddressRange{Low: 0x200, High: 0x200},
		Type:         &ast.FunctionType{ReturnType: intNode()},
	}
	im, prog := newTestImporter(funcDoc(def))
	im.importFunctions(context.Background())

	f := prog.FunctionAt(0x200)
	if f == nil {
		t.Fatal("function not created")
	}
	if !f.SingleAddress() {
		t.Fatal("degenerate range must produce a single-address function")
	}
}

func TestInvalidRangeIsSkipped(t *testing.T) {
	def := &ast.FunctionDefinition{
		NodeHeader:   named("ghost"),
		AddressRange: ast.AddressRange{Low: ast.NoAddress, High: ast.NoAddress},
		Type:         &ast.FunctionType{ReturnType: intNode()},
	}
	im, prog := newTestImporter(funcDoc(def))
	im.importFunctions(context.Background())

	if len(prog.Functions()) != 0 {
		t.Fatal("function with no addresses must be skipped")
	}
	if im.summary.Functions != 0 {
		t.Fatal("skipped function must not count as imported")
	}
}

func TestMalformedSignatureIsLoggedAndSkipped(t *testing.T) {
	def := &ast.FunctionDefinition{
		NodeHeader:   named("odd"),
		AddressRange: ast.AddressRange{Low: 0x100, High: 0x140},
		Type:         intNode(), // Not a function type.
	}
	im, prog := newTestImporter(funcDoc(def))
	im.importFunctions(context.Background())

	if len(prog.Functions()) != 0 {
		t.Fatal("malformed function must be skipped")
	}
	if im.log.Len() == 0 {
		t.Fatal("expected a diagnostic for the malformed signature")
	}
}

func TestNoiseLabelsAreScrubbed(t *testing.T) {
	def := &ast.FunctionDefinition{
		NodeHeader:   named("main"),
		AddressRange: ast.AddressRange{Low: 0x100, High: 0x140},
		Type:         &ast.FunctionType{ReturnType: intNode()},
	}
	im, prog := newTestImporter(funcDoc(def))

	prog.CreateLabel(0x100, "gcc2_compiled.", false)
	prog.CreateLabel(0x100, "__gnu_compiled_cplusplus", false)
	prog.CreateLabel(0x100, "main", false)
	prog.CreateLabel(0x100, "keep_me", false)

	im.importFunctions(context.Background())

	syms := prog.SymbolsAt(0x100)
	if len(syms) != 1 || syms[0].Name != "keep_me" {
		t.Fatalf("unexpected labels after scrub: %+v", syms)
	}
	if prog.FunctionAt(0x100).Name() != "main" {
		t.Fatal("function must keep its own name")
	}
}

func TestRepeatedImportConverges(t *testing.T) {
	def := &ast.FunctionDefinition{
		NodeHeader:   named("loop"),
		AddressRange: ast.AddressRange{Low: 0x100, High: 0x140},
		Type: &ast.FunctionType{
			ReturnType: intNode(),
			Parameters: []*ast.Variable{paramVar("n")},
		},
		Locals: []ast.Node{stackVar("i", 16)},
	}
	im, prog := newTestImporter(funcDoc(def))
	im.importFunctions(context.Background())
	im.importFunctions(context.Background())

	if len(prog.Functions()) != 1 {
		t.Fatalf("got %d functions, want 1", len(prog.Functions()))
	}
	f := prog.FunctionAt(0x100)
	if len(f.Parameters()) != 1 {
		t.Fatalf("got %d parameters after re-import, want 1", len(f.Parameters()))
	}
}
