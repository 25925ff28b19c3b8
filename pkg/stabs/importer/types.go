package importer

import (
	"fmt"

	"github.com/jtang613/gostabs/pkg/stabs/ast"
	"github.com/jtang613/gostabs/pkg/stabs/database"
)

// ImporterState is the run-wide mutable context threaded through every
// import stage: the parsed document, the per-file and per-name lookup
// tables into the deduplicated type table, and the memoized index-to-type
// cache. It is constructed by the orchestrator once per run and discarded
// at run end.
type ImporterState struct {
	doc         *ast.Document
	opts        Options
	log         *MessageLog
	typeManager *database.TypeManager

	// fileTypeIndex holds, per source file, the mapping from that file's
	// stabs type numbers to deduplicated table indices.
	fileTypeIndex []map[int32]int32

	// nameIndex maps type names to deduplicated table indices. Duplicate
	// names favor the later occurrence.
	nameIndex map[string]int

	// types memoizes materialized type handles by deduplicated index. A
	// nil entry means the index has not been materialized yet.
	types []database.DataType

	// resolving guards against reference cycles that never pass through a
	// composite shell.
	resolving map[int]bool
}

func newImporterState(doc *ast.Document, opts Options, log *MessageLog, tm *database.TypeManager) *ImporterState {
	return &ImporterState{
		doc:         doc,
		opts:        opts,
		log:         log,
		typeManager: tm,
		nameIndex:   make(map[string]int),
		types:       make([]database.DataType, len(doc.DeduplicatedTypes)),
		resolving:   make(map[int]bool),
	}
}

// builtinTypes maps primitive classes to shared type handles so that
// repeated references to the same primitive produce one instance.
var builtinTypes = map[ast.BuiltinClass]*database.BuiltinType{
	ast.BuiltinVoid:         database.Void,
	ast.BuiltinUnqualified8: database.NewBuiltinType("char", 1),
	ast.BuiltinSigned8:      database.NewBuiltinType("schar", 1),
	ast.BuiltinUnsigned8:    database.NewBuiltinType("uchar", 1),
	ast.BuiltinBool8:        database.NewBuiltinType("bool", 1),
	ast.BuiltinSigned16:     database.NewBuiltinType("short", 2),
	ast.BuiltinUnsigned16:   database.NewBuiltinType("ushort", 2),
	ast.BuiltinSigned32:     database.NewBuiltinType("int", 4),
	ast.BuiltinUnsigned32:   database.NewBuiltinType("uint", 4),
	ast.BuiltinFloat32:      database.NewBuiltinType("float", 4),
	ast.BuiltinSigned64:     database.NewBuiltinType("longlong", 8),
	ast.BuiltinUnsigned64:   database.NewBuiltinType("ulonglong", 8),
	ast.BuiltinFloat64:      database.NewBuiltinType("double", 8),
	ast.BuiltinSigned128:    database.NewBuiltinType("int128", 16),
	ast.BuiltinUnsigned128:  database.NewBuiltinType("uint128", 16),
	ast.BuiltinFloat128:     database.NewBuiltinType("float128", 16),
}

// ReplaceVoidWithUndefined1 substitutes the 1-byte placeholder for void,
// for contexts that require a sized type (parameters, locals, data).
func ReplaceVoidWithUndefined1(dt database.DataType) database.DataType {
	if dt == nil || dt == database.Void {
		return database.Undefined1
	}
	return dt
}

// importDataTypes reconstructs the deduplicated type table into concrete
// type objects. It first gathers the lookup tables, then creates all
// top-level enums and struct/union shells in table order, then fills the
// struct/union layouts in a second pass. The shell pass guarantees that
// every composite is referenceable before any layout is resolved, which
// is what makes self-referential and mutually-recursive types safe.
func (st *ImporterState) importDataTypes() int {
	for _, file := range st.doc.Files {
		st.fileTypeIndex = append(st.fileTypeIndex, file.StabsTypeNumberToDeduplicatedTypeIndex)
	}

	for i, node := range st.doc.DeduplicatedTypes {
		if node == nil {
			continue
		}
		if name := node.Header().Name; name != "" {
			st.nameIndex[name] = i
		}
	}

	created := 0
	for i, node := range st.doc.DeduplicatedTypes {
		switch n := node.(type) {
		case *ast.InlineEnum:
			st.types[i] = st.typeManager.AddDataType(enumType(n))
			created++
		case *ast.InlineStructOrUnion:
			st.types[i] = st.typeManager.AddDataType(emptyComposite(n))
			created++
		default:
			// Placeholder: materialized on demand at first reference.
		}
	}

	for i, node := range st.doc.DeduplicatedTypes {
		n, ok := node.(*ast.InlineStructOrUnion)
		if !ok {
			continue
		}
		shell, ok := st.types[i].(*database.CompositeType)
		if !ok {
			continue
		}
		st.fillComposite(shell, n)
	}

	return created
}

// enumType builds a complete enum type. Enum constants are plain
// name/value pairs, so no forward reference is possible.
func enumType(n *ast.InlineEnum) *database.EnumType {
	values := make([]database.EnumValue, len(n.Constants))
	for i, c := range n.Constants {
		values[i] = database.EnumValue{Name: c.Name, Value: c.Value}
	}
	return database.NewEnumType(n.Name, values)
}

// emptyComposite builds the zero-field shell for a struct or union.
func emptyComposite(n *ast.InlineStructOrUnion) *database.CompositeType {
	if n.IsUnion {
		return database.NewUnionType(n.Name)
	}
	return database.NewStructType(n.Name)
}

// fillComposite populates a shell's member layout in place. Member type
// references may point at any table entry, including shells that have not
// been filled yet; the shell handle is enough.
func (st *ImporterState) fillComposite(shell *database.CompositeType, n *ast.InlineStructOrUnion) {
	shell.SetDeclaredLength(int(n.SizeBits) / 8)

	fields := make([]database.CompositeField, 0, len(n.BaseClasses)+len(n.Fields))
	for i, base := range n.BaseClasses {
		dt, err := st.createType(base.Type)
		if err != nil {
			st.log.AppendMsg("failed to resolve base class %d of %s: %v", i, n.Name, err)
			continue
		}
		fields = append(fields, database.CompositeField{
			Name:   fmt.Sprintf("base_class_%d", i),
			Type:   dt,
			Offset: int(base.OffsetBytes),
		})
	}
	for _, field := range n.Fields {
		dt, err := st.createType(field.Type)
		if err != nil {
			st.log.AppendMsg("failed to resolve field %s of %s: %v", field.Name, n.Name, err)
			dt = database.Undefined1
		}
		fields = append(fields, database.CompositeField{
			Name:   field.Name,
			Type:   ReplaceVoidWithUndefined1(dt),
			Offset: int(field.OffsetBytes),
		})
	}
	shell.SetFields(fields)
}

// createType materializes a concrete type object for an AST type node,
// recursing through wrapper nodes and resolving table references through
// the memoized index cache.
func (st *ImporterState) createType(node ast.Node) (database.DataType, error) {
	switch n := node.(type) {
	case nil:
		return nil, fmt.Errorf("missing type node")
	case *ast.Builtin:
		if dt, ok := builtinTypes[n.Class]; ok {
			return dt, nil
		}
		return nil, fmt.Errorf("unknown builtin class %d", n.Class)
	case *ast.Pointer:
		inner, err := st.createType(n.Value)
		if err != nil {
			return nil, err
		}
		return database.NewPointerType(inner), nil
	case *ast.Reference:
		inner, err := st.createType(n.Value)
		if err != nil {
			return nil, err
		}
		return database.NewPointerType(inner), nil
	case *ast.Array:
		element, err := st.createType(n.Element)
		if err != nil {
			return nil, err
		}
		return database.NewArrayType(ReplaceVoidWithUndefined1(element), n.ElementCount), nil
	case *ast.BitField:
		return st.createType(n.Underlying)
	case *ast.FunctionType:
		// Function types only occur behind pointers; the pointee itself
		// has no sized representation.
		return database.Undefined1, nil
	case *ast.InlineEnum:
		return st.typeManager.AddDataType(enumType(n)), nil
	case *ast.InlineStructOrUnion:
		shell := emptyComposite(n)
		st.typeManager.AddDataType(shell)
		st.fillComposite(shell, n)
		return shell, nil
	case *ast.TypeName:
		return st.resolveTypeName(n)
	default:
		return nil, fmt.Errorf("unexpected %T in type position", node)
	}
}

// resolveTypeName resolves a cross-reference, preferring the originating
// file's stabs type number and falling back to lookup by name.
func (st *ImporterState) resolveTypeName(n *ast.TypeName) (database.DataType, error) {
	if n.ReferencedFileIndex >= 0 && n.ReferencedFileIndex < len(st.fileTypeIndex) &&
		n.ReferencedStabsTypeNumber >= 0 {
		if index, ok := st.fileTypeIndex[n.ReferencedFileIndex][int32(n.ReferencedStabsTypeNumber)]; ok {
			return st.materializeIndex(int(index))
		}
	}
	if index, ok := st.nameIndex[n.TypeNameString]; ok {
		return st.materializeIndex(index)
	}
	if dt, ok := st.typeManager.GetDataType(n.TypeNameString); ok {
		return dt, nil
	}
	return nil, fmt.Errorf("unresolved type name %q", n.TypeNameString)
}

// materializeIndex returns the type handle for a deduplicated table
// index, constructing and memoizing it on first reference. Composite and
// enum entries are already present from the shell pass, so only wrapper
// and primitive entries are built here.
func (st *ImporterState) materializeIndex(index int) (database.DataType, error) {
	if index < 0 || index >= len(st.types) {
		return nil, fmt.Errorf("type index %d out of range", index)
	}
	if dt := st.types[index]; dt != nil {
		return dt, nil
	}
	if st.resolving[index] {
		return nil, fmt.Errorf("cyclic type reference at index %d", index)
	}
	st.resolving[index] = true
	defer delete(st.resolving, index)

	dt, err := st.createType(st.doc.DeduplicatedTypes[index])
	if err != nil {
		return nil, err
	}
	st.types[index] = dt
	return dt, nil
}
