package importer

import (
	"testing"

	"github.com/jtang613/gostabs/pkg/stabs/ast"
	"github.com/jtang613/gostabs/pkg/stabs/database"
)

func newTestState(doc *ast.Document) (*ImporterState, *database.Program, *MessageLog) {
	prog := database.NewProgram()
	log := NewMessageLog()
	return newImporterState(doc, DefaultOptions(), log, prog.TypeManager()), prog, log
}

func named(name string) ast.NodeHeader {
	return ast.NodeHeader{Name: name}
}

func typeRef(name string) *ast.TypeName {
	return &ast.TypeName{
		NodeHeader:                named(name),
		TypeNameString:            name,
		ReferencedFileIndex:       -1,
		ReferencedStabsTypeNumber: -1,
	}
}

func intNode() *ast.Builtin {
	return &ast.Builtin{Class: ast.BuiltinSigned32}
}

func TestMutuallyRecursiveStructs(t *testing.T) {
	doc := &ast.Document{
		DeduplicatedTypes: []ast.Node{
			&ast.InlineStructOrUnion{
				NodeHeader: named("A"),
				SizeBits:   32,
				Fields: []ast.Field{
					{Name: "b", Type: &ast.Pointer{Value: typeRef("B")}, OffsetBytes: 0},
				},
			},
			&ast.InlineStructOrUnion{
				NodeHeader: named("B"),
				SizeBits:   32,
				Fields: []ast.Field{
					{Name: "a", Type: &ast.Pointer{Value: typeRef("A")}, OffsetBytes: 0},
				},
			},
		},
	}
	st, prog, log := newTestState(doc)

	if created := st.importDataTypes(); created != 2 {
		t.Fatalf("created %d types, want 2", created)
	}
	if log.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %v", log.Messages())
	}

	a, ok := prog.TypeManager().GetDataType("A")
	if !ok {
		t.Fatal("type A not registered")
	}
	b, _ := prog.TypeManager().GetDataType("B")

	aFields := a.(*database.CompositeType).Fields()
	if len(aFields) != 1 {
		t.Fatalf("A has %d fields, want 1", len(aFields))
	}
	ptr, ok := aFields[0].Type.(*database.PointerType)
	if !ok {
		t.Fatalf("A.b is %T, want pointer", aFields[0].Type)
	}
	if ptr.Target() != b {
		t.Fatal("A.b must point at the registered B handle")
	}

	bFields := b.(*database.CompositeType).Fields()
	if len(bFields) != 1 {
		t.Fatalf("B has %d fields, want 1", len(bFields))
	}
	if bFields[0].Type.(*database.PointerType).Target() != a {
		t.Fatal("B.a must point at the registered A handle")
	}
}

func TestSelfReferentialStruct(t *testing.T) {
	doc := &ast.Document{
		DeduplicatedTypes: []ast.Node{
			&ast.InlineStructOrUnion{
				NodeHeader: named("Node"),
				SizeBits:   64,
				Fields: []ast.Field{
					{Name: "value", Type: intNode(), OffsetBytes: 0},
					{Name: "next", Type: &ast.Pointer{Value: typeRef("Node")}, OffsetBytes: 4},
				},
			},
		},
	}
	st, prog, _ := newTestState(doc)
	st.importDataTypes()

	node, ok := prog.TypeManager().GetDataType("Node")
	if !ok {
		t.Fatal("type Node not registered")
	}
	fields := node.(*database.CompositeType).Fields()
	if len(fields) != 2 {
		t.Fatalf("Node has %d fields, want 2", len(fields))
	}
	if fields[1].Type.(*database.PointerType).Target() != node {
		t.Fatal("Node.next must point back at Node itself")
	}
}

func TestMaterializationIsMemoized(t *testing.T) {
	doc := &ast.Document{
		DeduplicatedTypes: []ast.Node{
			&ast.Pointer{NodeHeader: named("IntPtr"), Value: intNode()},
		},
	}
	st, _, _ := newTestState(doc)
	st.importDataTypes()

	first, err := st.createType(typeRef("IntPtr"))
	if err != nil {
		t.Fatalf("createType: %v", err)
	}
	second, err := st.createType(typeRef("IntPtr"))
	if err != nil {
		t.Fatalf("createType: %v", err)
	}
	if first != second {
		t.Fatal("repeated resolution of the same index must return the same handle")
	}
}

func TestDuplicateNamesFavorLaterEntry(t *testing.T) {
	doc := &ast.Document{
		DeduplicatedTypes: []ast.Node{
			&ast.InlineStructOrUnion{NodeHeader: named("Dup"), SizeBits: 8},
			&ast.InlineStructOrUnion{NodeHeader: named("Dup"), SizeBits: 16},
		},
	}
	st, _, _ := newTestState(doc)
	st.importDataTypes()

	dt, err := st.createType(typeRef("Dup"))
	if err != nil {
		t.Fatalf("createType: %v", err)
	}
	if dt != st.types[1] {
		t.Fatal("name lookup must resolve to the later table entry")
	}
}

func TestStabsNumberLookupPrefersOriginFile(t *testing.T) {
	doc := &ast.Document{
		Files: []*ast.SourceFile{
			{
				NodeHeader: named("a.c"),
				StabsTypeNumberToDeduplicatedTypeIndex: map[int32]int32{7: 1},
			},
		},
		DeduplicatedTypes: []ast.Node{
			&ast.InlineStructOrUnion{NodeHeader: named("Wrong"), SizeBits: 8},
			&ast.InlineStructOrUnion{NodeHeader: named("Right"), SizeBits: 8},
		},
	}
	st, _, _ := newTestState(doc)
	st.importDataTypes()

	dt, err := st.createType(&ast.TypeName{
		TypeNameString:            "Wrong",
		ReferencedFileIndex:       0,
		ReferencedStabsTypeNumber: 7,
	})
	if err != nil {
		t.Fatalf("createType: %v", err)
	}
	if dt.Name() != "Right" {
		t.Fatalf("resolved %q, want the stabs-number target Right", dt.Name())
	}
}

func TestUnresolvableFieldFallsBackToPlaceholder(t *testing.T) {
	doc := &ast.Document{
		DeduplicatedTypes: []ast.Node{
			&ast.InlineStructOrUnion{
				NodeHeader: named("Broken"),
				SizeBits:   32,
				Fields: []ast.Field{
					{Name: "mystery", Type: typeRef("NoSuchType"), OffsetBytes: 0},
				},
			},
		},
	}
	st, prog, log := newTestState(doc)
	st.importDataTypes()

	if log.Len() == 0 {
		t.Fatal("expected a diagnostic for the unresolvable field")
	}
	broken, _ := prog.TypeManager().GetDataType("Broken")
	fields := broken.(*database.CompositeType).Fields()
	if len(fields) != 1 || fields[0].Type != database.DataType(database.Undefined1) {
		t.Fatal("unresolvable field must be kept with the 1-byte placeholder type")
	}
}

func TestVoidSubstitution(t *testing.T) {
	if ReplaceVoidWithUndefined1(database.Void) != database.DataType(database.Undefined1) {
		t.Fatal("void must be replaced by undefined1")
	}
	if ReplaceVoidWithUndefined1(nil) != database.DataType(database.Undefined1) {
		t.Fatal("nil must be replaced by undefined1")
	}
	intType := database.NewBuiltinType("int", 4)
	if ReplaceVoidWithUndefined1(intType) != database.DataType(intType) {
		t.Fatal("sized types must pass through unchanged")
	}
}

func TestBitFieldResolvesToUnderlyingType(t *testing.T) {
	st, _, _ := newTestState(&ast.Document{})
	dt, err := st.createType(&ast.BitField{Underlying: intNode()})
	if err != nil {
		t.Fatalf("createType: %v", err)
	}
	if dt.Name() != "int" {
		t.Fatalf("bitfield resolved to %q, want int", dt.Name())
	}
}

func TestEnumConstants(t *testing.T) {
	doc := &ast.Document{
		DeduplicatedTypes: []ast.Node{
			&ast.InlineEnum{
				NodeHeader: named("Color"),
				Constants: []ast.EnumConstant{
					{Name: "RED", Value: 0},
					{Name: "GREEN", Value: 1},
					{Name: "BLUE", Value: 2},
				},
			},
		},
	}
	st, prog, _ := newTestState(doc)
	if created := st.importDataTypes(); created != 1 {
		t.Fatalf("created %d types, want 1", created)
	}

	dt, ok := prog.TypeManager().GetDataType("Color")
	if !ok {
		t.Fatal("enum not registered")
	}
	enum := dt.(*database.EnumType)
	if enum.Length() != 4 {
		t.Fatalf("enum length = %d, want 4", enum.Length())
	}
	values := enum.Values()
	if len(values) != 3 || values[2].Name != "BLUE" || values[2].Value != 2 {
		t.Fatalf("unexpected enum values: %v", values)
	}
}
