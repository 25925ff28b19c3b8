package database

import (
	"fmt"
	"sort"
)

// o32ArgumentRegisters are the MIPS o32 argument registers, consumed in
// order by the first parameters of a call.
var o32ArgumentRegisters = []string{"a0", "a1", "a2", "a3"}

// Parameter is one function parameter. Storage is assigned by the
// database's calling convention when the parameter list is installed,
// never taken from the caller.
type Parameter struct {
	Name    string
	Type    DataType
	Storage string
}

// NewParameter creates a parameter, validating its name and type.
func NewParameter(name string, dt DataType) (*Parameter, error) {
	if !validName(name) {
		return nil, fmt.Errorf("invalid parameter name %q", name)
	}
	if dt == nil {
		return nil, fmt.Errorf("parameter %s has no type", name)
	}
	return &Parameter{Name: name, Type: dt}, nil
}

// LocalVariable is a stack-resident local variable of a function.
type LocalVariable struct {
	Name        string
	Type        DataType
	StackOffset int32
}

// NewLocalVariable creates a local variable, validating its name and type.
func NewLocalVariable(name string, dt DataType, stackOffset int32) (*LocalVariable, error) {
	if !validName(name) {
		return nil, fmt.Errorf("invalid local variable name %q", name)
	}
	if dt == nil {
		return nil, fmt.Errorf("local variable %s has no type", name)
	}
	return &LocalVariable{Name: name, Type: dt, StackOffset: stackOffset}, nil
}

// Function is a function record in the program database.
type Function struct {
	name       string
	entry      int64
	end        int64
	comment    string
	returnType DataType
	params     []*Parameter
	locals     []*LocalVariable
}

func (f *Function) Name() string { return f.name }
func (f *Function) Entry() int64 { return f.entry }
func (f *Function) End() int64   { return f.end }

// SingleAddress reports whether the function body covers only its entry
// point, the representation used for degenerate address ranges.
func (f *Function) SingleAddress() bool { return f.end == f.entry }

// SetName renames the function.
func (f *Function) SetName(name string) error {
	if !validName(name) {
		return fmt.Errorf("invalid function name %q", name)
	}
	f.name = name
	return nil
}

// SetComment attaches a comment to the function, replacing any previous
// one.
func (f *Function) SetComment(text string) { f.comment = text }

// Comment returns the function's comment.
func (f *Function) Comment() string { return f.comment }

// SetReturnType assigns the function's return type.
func (f *Function) SetReturnType(dt DataType) error {
	if dt == nil {
		return fmt.Errorf("function %s: nil return type", f.name)
	}
	f.returnType = dt
	return nil
}

// ReturnType returns the function's return type, or nil if never set.
func (f *Function) ReturnType() DataType { return f.returnType }

// ReplaceParameters installs a complete parameter list atomically,
// discarding any previous list. Storage is bound by the o32 calling
// convention: the first four parameters live in a0-a3, the rest on the
// stack. Duplicate parameter names fail the whole replacement.
func (f *Function) ReplaceParameters(params []*Parameter) error {
	seen := make(map[string]struct{}, len(params))
	for _, p := range params {
		if p == nil || !validName(p.Name) {
			return fmt.Errorf("function %s: invalid parameter", f.name)
		}
		if _, ok := seen[p.Name]; ok {
			return fmt.Errorf("function %s: duplicate parameter name %s", f.name, p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	for i, p := range params {
		if i < len(o32ArgumentRegisters) {
			p.Storage = o32ArgumentRegisters[i]
		} else {
			p.Storage = fmt.Sprintf("stack[%#x]", 16+4*(i-len(o32ArgumentRegisters)))
		}
	}
	f.params = params
	return nil
}

// Parameters returns the function's parameter list in order.
func (f *Function) Parameters() []*Parameter { return f.params }

// AddLocalVariable adds one stack local. A name already taken by a
// parameter or another local is rejected.
func (f *Function) AddLocalVariable(lv *LocalVariable) error {
	if lv == nil || !validName(lv.Name) {
		return fmt.Errorf("function %s: invalid local variable", f.name)
	}
	for _, p := range f.params {
		if p.Name == lv.Name {
			return fmt.Errorf("function %s: local %s duplicates a parameter", f.name, lv.Name)
		}
	}
	for _, other := range f.locals {
		if other.Name == lv.Name {
			return fmt.Errorf("function %s: duplicate local %s", f.name, lv.Name)
		}
	}
	f.locals = append(f.locals, lv)
	return nil
}

// Locals returns the function's local variables ordered by stack offset.
func (f *Function) Locals() []*LocalVariable {
	out := make([]*LocalVariable, len(f.locals))
	copy(out, f.locals)
	sort.Slice(out, func(i, j int) bool { return out[i].StackOffset < out[j].StackOffset })
	return out
}
