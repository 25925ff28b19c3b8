package database

import (
	"fmt"
	"sort"
	"strings"
)

// Symbol is a named label at an address.
type Symbol struct {
	Name    string
	Address int64
	Primary bool
}

// DefinedData is a typed data unit occupying [Address, Address+Length).
type DefinedData struct {
	Address int64
	Type    DataType
	Length  int
}

// Program is the in-memory program database for one binary: its raw image,
// functions, labels, defined data and address comments.
type Program struct {
	typeManager *TypeManager
	image       []byte

	functions   map[int64]*Function
	labels      map[int64][]*Symbol
	data        map[int64]*DefinedData
	eolComments map[int64]string
	preComments map[int64]string
}

// NewProgram creates an empty program database.
func NewProgram() *Program {
	return &Program{
		typeManager: NewTypeManager(),
		functions:   make(map[int64]*Function),
		labels:      make(map[int64][]*Symbol),
		data:        make(map[int64]*DefinedData),
		eolComments: make(map[int64]string),
		preComments: make(map[int64]string),
	}
}

// TypeManager returns the program's type registry.
func (p *Program) TypeManager() *TypeManager { return p.typeManager }

// SetImage stores the raw bytes of the program's binary image.
func (p *Program) SetImage(image []byte) { p.image = image }

// Image returns the raw bytes of the program's binary image, or nil if
// none was loaded.
func (p *Program) Image() []byte { return p.image }

// FunctionAt returns the function whose entry point is exactly addr, or
// nil.
func (p *Program) FunctionAt(addr int64) *Function {
	return p.functions[addr]
}

// CreateFunction records a new function spanning [low, high]. Passing
// high == low creates a single-address function. Creation fails if a
// function already starts at low.
func (p *Program) CreateFunction(name string, low, high int64) (*Function, error) {
	if _, ok := p.functions[low]; ok {
		return nil, fmt.Errorf("function already exists at %#x", low)
	}
	if high < low {
		return nil, fmt.Errorf("function body %#x-%#x is inverted", low, high)
	}
	f := &Function{name: name, entry: low, end: high}
	p.functions[low] = f
	return f, nil
}

// Functions returns all functions ordered by entry address.
func (p *Program) Functions() []*Function {
	out := make([]*Function, 0, len(p.functions))
	for _, f := range p.functions {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].entry < out[j].entry })
	return out
}

// SymbolsAt returns the labels recorded at addr.
func (p *Program) SymbolsAt(addr int64) []*Symbol {
	return p.labels[addr]
}

// RemoveSymbol deletes the label with the given name at addr, if present.
func (p *Program) RemoveSymbol(addr int64, name string) {
	syms := p.labels[addr]
	for i, s := range syms {
		if s.Name == name {
			p.labels[addr] = append(syms[:i], syms[i+1:]...)
			return
		}
	}
}

// CreateLabel records a label at addr. Re-creating a label that already
// exists at the same address returns the existing symbol, so repeated
// imports overwrite rather than duplicate.
func (p *Program) CreateLabel(addr int64, name string, primary bool) (*Symbol, error) {
	if !validName(name) {
		return nil, fmt.Errorf("invalid label name %q", name)
	}
	for _, s := range p.labels[addr] {
		if s.Name == name {
			s.Primary = s.Primary || primary
			return s, nil
		}
	}
	sym := &Symbol{Name: name, Address: addr, Primary: primary}
	p.labels[addr] = append(p.labels[addr], sym)
	return sym, nil
}

// Labels returns every label in the program ordered by address.
func (p *Program) Labels() []*Symbol {
	var out []*Symbol
	for _, syms := range p.labels {
		out = append(out, syms...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Address != out[j].Address {
			return out[i].Address < out[j].Address
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// SetEOLComment attaches an end-of-line comment at addr.
func (p *Program) SetEOLComment(addr int64, text string) {
	p.eolComments[addr] = text
}

// EOLComment returns the end-of-line comment at addr, or "".
func (p *Program) EOLComment(addr int64) string {
	return p.eolComments[addr]
}

// SetPreComment attaches a pre (leading) comment at addr.
func (p *Program) SetPreComment(addr int64, text string) {
	p.preComments[addr] = text
}

// PreComment returns the pre comment at addr, or "".
func (p *Program) PreComment(addr int64) string {
	return p.preComments[addr]
}

// CreateData defines a typed data unit at addr, clearing any existing
// data units that conflict with its extent first.
func (p *Program) CreateData(addr int64, dt DataType) (*DefinedData, error) {
	length := dt.Length()
	if length <= 0 {
		return nil, fmt.Errorf("cannot create zero-length data at %#x", addr)
	}
	for existing := range p.data {
		d := p.data[existing]
		if existing < addr+int64(length) && addr < existing+int64(d.Length) {
			delete(p.data, existing)
		}
	}
	d := &DefinedData{Address: addr, Type: dt, Length: length}
	p.data[addr] = d
	return d, nil
}

// DataAt returns the data unit starting exactly at addr, or nil.
func (p *Program) DataAt(addr int64) *DefinedData {
	return p.data[addr]
}

// Data returns every defined data unit ordered by address.
func (p *Program) Data() []*DefinedData {
	out := make([]*DefinedData, 0, len(p.data))
	for _, d := range p.data {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// validName reports whether a symbol name is acceptable to the database:
// non-empty and free of whitespace.
func validName(name string) bool {
	return name != "" && !strings.ContainsAny(name, " \t\n")
}
