// Package database is an in-memory, address-indexed program database: the
// target that reconstructed debug information is written into. It stores
// data types, functions, labels, defined data and address comments the way
// an interactive analysis database would, without any persistence.
package database

import (
	"fmt"
)

// PointerSize is the size of a pointer in the target address space. The
// importer targets 32-bit MIPS binaries.
const PointerSize = 4

// DataType is a concrete type object registered in the database.
type DataType interface {
	Name() string
	Length() int
}

// BuiltinType is a primitive type with a fixed size.
type BuiltinType struct {
	name   string
	length int
}

// NewBuiltinType creates a builtin type with the given name and size.
func NewBuiltinType(name string, length int) *BuiltinType {
	return &BuiltinType{name: name, length: length}
}

func (t *BuiltinType) Name() string { return t.name }
func (t *BuiltinType) Length() int  { return t.length }

// Undefined1 is the well-known 1-byte placeholder type substituted for
// void in contexts requiring a sized type.
var Undefined1 = NewBuiltinType("undefined1", 1)

// Void is the zero-sized void type.
var Void = NewBuiltinType("void", 0)

// EnumValue is one name/value pair of an enum type.
type EnumValue struct {
	Name  string
	Value int32
}

// EnumType is an enumeration type. Enums occupy one machine word.
type EnumType struct {
	name   string
	values []EnumValue
}

// NewEnumType creates an enum type with the given values.
func NewEnumType(name string, values []EnumValue) *EnumType {
	return &EnumType{name: name, values: values}
}

func (t *EnumType) Name() string        { return t.name }
func (t *EnumType) Length() int         { return 4 }
func (t *EnumType) Values() []EnumValue { return t.values }

// CompositeField is one member of a composite type.
type CompositeField struct {
	Name   string
	Type   DataType
	Offset int
}

// CompositeType is a struct or union. It is created as an empty shell and
// filled in place later, so other types can hold a reference to it before
// its members exist.
type CompositeType struct {
	name           string
	union          bool
	declaredLength int
	fields         []CompositeField
}

// NewStructType creates an empty struct shell.
func NewStructType(name string) *CompositeType {
	return &CompositeType{name: name}
}

// NewUnionType creates an empty union shell.
func NewUnionType(name string) *CompositeType {
	return &CompositeType{name: name, union: true}
}

func (t *CompositeType) Name() string { return t.name }

// Length returns the declared size when one was set, otherwise the size
// implied by the members. An empty shell occupies one byte.
func (t *CompositeType) Length() int {
	if t.declaredLength > 0 {
		return t.declaredLength
	}
	length := 0
	for _, f := range t.fields {
		end := f.Offset + f.Type.Length()
		if t.union {
			end = f.Type.Length()
		}
		if end > length {
			length = end
		}
	}
	if length == 0 {
		return 1
	}
	return length
}

func (t *CompositeType) IsUnion() bool            { return t.union }
func (t *CompositeType) Fields() []CompositeField { return t.fields }

// SetDeclaredLength records the size declared by the debug information.
func (t *CompositeType) SetDeclaredLength(length int) {
	t.declaredLength = length
}

// SetFields populates the member layout of the shell in place, replacing
// any previous layout.
func (t *CompositeType) SetFields(fields []CompositeField) {
	t.fields = fields
}

// PointerType is a pointer to a target type.
type PointerType struct {
	target DataType
}

// NewPointerType creates a pointer to the given target type.
func NewPointerType(target DataType) *PointerType {
	return &PointerType{target: target}
}

func (t *PointerType) Name() string     { return t.target.Name() + " *" }
func (t *PointerType) Length() int      { return PointerSize }
func (t *PointerType) Target() DataType { return t.target }

// ArrayType is a fixed-length array of an element type.
type ArrayType struct {
	element DataType
	count   int
}

// NewArrayType creates an array of count elements.
func NewArrayType(element DataType, count int) *ArrayType {
	return &ArrayType{element: element, count: count}
}

func (t *ArrayType) Name() string {
	return fmt.Sprintf("%s[%d]", t.element.Name(), t.count)
}

func (t *ArrayType) Length() int {
	length := t.element.Length() * t.count
	if length == 0 {
		return 1
	}
	return length
}

func (t *ArrayType) Element() DataType { return t.element }
func (t *ArrayType) Count() int        { return t.count }

// TypeManager is the database's type registry.
type TypeManager struct {
	ordered []DataType
	byName  map[string]DataType
}

// NewTypeManager creates an empty type registry.
func NewTypeManager() *TypeManager {
	return &TypeManager{byName: make(map[string]DataType)}
}

// AddDataType registers a type and returns the registered handle. Anonymous
// types are always appended; for named types the first registration wins
// the name slot, later registrations are still retained in the ordered
// listing.
func (tm *TypeManager) AddDataType(dt DataType) DataType {
	tm.ordered = append(tm.ordered, dt)
	if name := dt.Name(); name != "" {
		if _, ok := tm.byName[name]; !ok {
			tm.byName[name] = dt
		}
	}
	return dt
}

// GetDataType looks a type up by name.
func (tm *TypeManager) GetDataType(name string) (DataType, bool) {
	dt, ok := tm.byName[name]
	return dt, ok
}

// Types returns all registered types in registration order.
func (tm *TypeManager) Types() []DataType {
	return tm.ordered
}
