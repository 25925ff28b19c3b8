// Package ast models the typed node forest describing the symbolic debug
// information of one binary: source files, types, functions and variables,
// plus the run-wide deduplicated type table that all files reference by
// index.
package ast

// NoAddress is the sentinel for an absent address or address-range bound.
const NoAddress int64 = -1

// AddressRange is a half-open interval [Low, High) of instruction
// addresses. A range may be invalid (one or both ends absent) or
// degenerate (High < Low); degenerate ranges are handled specially by
// consumers, not rejected.
type AddressRange struct {
	Low  int64
	High int64
}

// Valid reports whether both ends of the range are present. A valid range
// may still be degenerate.
func (r AddressRange) Valid() bool {
	return r.Low > NoAddress && r.High > NoAddress
}

// StorageClass describes how a variable was declared in the source.
type StorageClass int

const (
	StorageClassNone StorageClass = iota
	StorageClassTypedef
	StorageClassExtern
	StorageClassStatic
	StorageClassAuto
	StorageClassRegister
)

// StorageLocation discriminates where a variable lives at runtime.
type StorageLocation int

const (
	StorageLocationGlobal StorageLocation = iota
	StorageLocationRegister
	StorageLocationStack
)

// VariableStorage describes where a variable lives: a global absolute
// address, a register, or a stack-frame offset. Exactly one of the three
// carriers is meaningful, selected by Location; GlobalAddress is NoAddress
// when not applicable.
type VariableStorage struct {
	Location           StorageLocation
	GlobalAddress      int64
	Register           int
	StackPointerOffset int32
	IsByReference      bool
}

// NodeHeader holds the fields shared by every AST node.
type NodeHeader struct {
	Name         string
	StorageClass StorageClass
}

// Node is implemented by every AST node kind. The variant set is closed;
// consumers dispatch with a type switch.
type Node interface {
	Header() *NodeHeader
}

// Header returns the shared node header. It exists so that embedding
// NodeHeader satisfies the Node interface.
func (h *NodeHeader) Header() *NodeHeader { return h }

// BuiltinClass enumerates the primitive machine types.
type BuiltinClass int

const (
	BuiltinVoid BuiltinClass = iota
	BuiltinUnqualified8
	BuiltinSigned8
	BuiltinUnsigned8
	BuiltinBool8
	BuiltinSigned16
	BuiltinUnsigned16
	BuiltinSigned32
	BuiltinUnsigned32
	BuiltinFloat32
	BuiltinSigned64
	BuiltinUnsigned64
	BuiltinFloat64
	BuiltinSigned128
	BuiltinUnsigned128
	BuiltinFloat128
)

// Size returns the storage size of the builtin class in bytes. Void has
// size zero.
func (c BuiltinClass) Size() int {
	switch c {
	case BuiltinVoid:
		return 0
	case BuiltinUnqualified8, BuiltinSigned8, BuiltinUnsigned8, BuiltinBool8:
		return 1
	case BuiltinSigned16, BuiltinUnsigned16:
		return 2
	case BuiltinSigned32, BuiltinUnsigned32, BuiltinFloat32:
		return 4
	case BuiltinSigned64, BuiltinUnsigned64, BuiltinFloat64:
		return 8
	case BuiltinSigned128, BuiltinUnsigned128, BuiltinFloat128:
		return 16
	default:
		return 0
	}
}

// Builtin is a primitive type node.
type Builtin struct {
	NodeHeader
	Class BuiltinClass
}

// TypeName is a reference to another type, either by the originating
// file's stabs type number (resolved through the per-file map into the
// deduplicated table) or, failing that, by spelled-out name.
type TypeName struct {
	NodeHeader
	TypeNameString            string
	ReferencedFileIndex       int
	ReferencedStabsTypeNumber int
}

// Pointer is a pointer type wrapper around its operand type.
type Pointer struct {
	NodeHeader
	Value Node
}

// Reference is a C++ reference type wrapper around its operand type.
type Reference struct {
	NodeHeader
	Value Node
}

// Array is a fixed-length array of an element type.
type Array struct {
	NodeHeader
	Element      Node
	ElementCount int
}

// BitField is a bit-field member type; consumers resolve it to its
// underlying storage type.
type BitField struct {
	NodeHeader
	Underlying Node
}

// EnumConstant is one name/value pair of an enum.
type EnumConstant struct {
	Name  string
	Value int32
}

// InlineEnum is an enum type with its constants fully listed. Enum
// constants carry no forward type dependency, so enums are always
// resolvable in one step.
type InlineEnum struct {
	NodeHeader
	Constants []EnumConstant
}

// Field is one member of a struct or union.
type Field struct {
	Name        string
	Type        Node
	OffsetBytes int32
}

// InlineStructOrUnion is a struct or union type with its members listed.
// Members may reference any entry of the deduplicated table, including the
// owning entry itself.
type InlineStructOrUnion struct {
	NodeHeader
	IsUnion     bool
	SizeBits    int32
	BaseClasses []Field
	Fields      []Field
}

// FunctionType is a function signature: a return type and an ordered
// parameter list.
type FunctionType struct {
	NodeHeader
	ReturnType Node
	Parameters []*Variable
}

// Variable is a named value with a type and a storage descriptor. It
// appears as a parameter, a function local, or a file-scope global.
type Variable struct {
	NodeHeader
	Type    Node
	Storage VariableStorage
}

// LineNumberPair associates an instruction address with a source line.
type LineNumberPair struct {
	Address    int64
	LineNumber int32
}

// SubSourceFile is a breadcrumb recording which source path was logically
// active at an instruction address, used to infer inline-expansion
// regions.
type SubSourceFile struct {
	Address      int64
	RelativePath string
}

// FunctionDefinition is one function: its signature, address range,
// locals, line table and inline breadcrumbs. Type is expected to be a
// *FunctionType; a different node kind is treated as a malformed symbol
// by consumers.
type FunctionDefinition struct {
	NodeHeader
	AddressRange   AddressRange
	RelativePath   string
	Type           Node
	Locals         []Node
	LineNumbers    []LineNumberPair
	SubSourceFiles []SubSourceFile
}

// SourceFile is one compilation unit: its functions, its globals, and the
// mapping from this file's native stabs type-number space into the
// run-wide deduplicated type table.
type SourceFile struct {
	NodeHeader
	Path         string
	RelativePath string
	TextAddress  int64
	Functions    []Node
	Globals      []Node

	// StabsTypeNumberToDeduplicatedTypeIndex maps this file's stabs type
	// numbers to indices into Document.DeduplicatedTypes.
	StabsTypeNumberToDeduplicatedTypeIndex map[int32]int32
}

// Document is the complete parsed debug-info document for one binary.
// Once populated, indices into DeduplicatedTypes never change.
type Document struct {
	Files             []*SourceFile
	DeduplicatedTypes []Node
}
