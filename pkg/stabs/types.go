// Package stabs provides high-level access to the results of a debug-info
// import: report models collected from the program database, and a
// demangler for the GNU v2 C++ name scheme used by the targeted
// compilers.
package stabs

import (
	"github.com/jtang613/gostabs/pkg/stabs/database"
)

// FunctionInfo describes one reconstructed function.
type FunctionInfo struct {
	Name          string          `json:"name"`
	DemangledName string          `json:"demangled_name,omitempty"`
	Entry         int64           `json:"entry"`
	End           int64           `json:"end"`
	SourceFile    string          `json:"source_file,omitempty"`
	ReturnType    string          `json:"return_type,omitempty"`
	Parameters    []ParameterInfo `json:"parameters,omitempty"`
	Locals        []LocalInfo     `json:"locals,omitempty"`
}

// ParameterInfo describes one function parameter and its bound storage.
type ParameterInfo struct {
	Name     string `json:"name"`
	TypeName string `json:"type_name"`
	Storage  string `json:"storage"`
}

// LocalInfo describes one stack-resident local variable.
type LocalInfo struct {
	Name        string `json:"name"`
	TypeName    string `json:"type_name"`
	StackOffset int32  `json:"stack_offset"`
}

// GlobalInfo describes one placed global variable.
type GlobalInfo struct {
	Name          string `json:"name"`
	DemangledName string `json:"demangled_name,omitempty"`
	Address       int64  `json:"address"`
	TypeName      string `json:"type_name"`
	Length        int    `json:"length"`
}

// TypeInfo describes one reconstructed data type.
type TypeInfo struct {
	Name    string       `json:"name,omitempty"`
	Kind    string       `json:"kind"`
	Size    int          `json:"size"`
	Members []MemberInfo `json:"members,omitempty"`
}

// MemberInfo describes one member of a composite or enum type.
type MemberInfo struct {
	Name     string `json:"name"`
	TypeName string `json:"type_name,omitempty"`
	Offset   int    `json:"offset,omitempty"`
	Value    int32  `json:"value,omitempty"`
}

// Report is the full JSON-serializable view of an imported program.
type Report struct {
	Types     []TypeInfo     `json:"types,omitempty"`
	Functions []FunctionInfo `json:"functions,omitempty"`
	Globals   []GlobalInfo   `json:"globals,omitempty"`
}

// CollectReport assembles the report models for everything the importer
// wrote into the database.
func CollectReport(prog *database.Program) *Report {
	return &Report{
		Types:     CollectTypes(prog),
		Functions: CollectFunctions(prog),
		Globals:   CollectGlobals(prog),
	}
}

// CollectTypes lists the registered types in registration order. Member
// types are referenced by name only, so cyclic layouts render without
// recursion.
func CollectTypes(prog *database.Program) []TypeInfo {
	var out []TypeInfo
	for _, dt := range prog.TypeManager().Types() {
		info := TypeInfo{Name: dt.Name(), Size: dt.Length()}
		switch t := dt.(type) {
		case *database.EnumType:
			info.Kind = "enum"
			for _, v := range t.Values() {
				info.Members = append(info.Members, MemberInfo{Name: v.Name, Value: v.Value})
			}
		case *database.CompositeType:
			if t.IsUnion() {
				info.Kind = "union"
			} else {
				info.Kind = "struct"
			}
			for _, f := range t.Fields() {
				info.Members = append(info.Members, MemberInfo{
					Name:     f.Name,
					TypeName: f.Type.Name(),
					Offset:   f.Offset,
				})
			}
		default:
			info.Kind = "builtin"
		}
		out = append(out, info)
	}
	return out
}

// CollectFunctions lists every function in entry-point order.
func CollectFunctions(prog *database.Program) []FunctionInfo {
	var out []FunctionInfo
	for _, f := range prog.Functions() {
		info := FunctionInfo{
			Name:       f.Name(),
			Entry:      f.Entry(),
			End:        f.End(),
			SourceFile: f.Comment(),
		}
		if demangled := Demangle(f.Name()); demangled != f.Name() {
			info.DemangledName = demangled
		}
		if rt := f.ReturnType(); rt != nil {
			info.ReturnType = rt.Name()
		}
		for _, p := range f.Parameters() {
			info.Parameters = append(info.Parameters, ParameterInfo{
				Name:     p.Name,
				TypeName: p.Type.Name(),
				Storage:  p.Storage,
			})
		}
		for _, lv := range f.Locals() {
			info.Locals = append(info.Locals, LocalInfo{
				Name:        lv.Name,
				TypeName:    lv.Type.Name(),
				StackOffset: lv.StackOffset,
			})
		}
		out = append(out, info)
	}
	return out
}

// CollectGlobals lists every defined data unit in address order, naming
// each by its primary label when one exists.
func CollectGlobals(prog *database.Program) []GlobalInfo {
	var out []GlobalInfo
	for _, d := range prog.Data() {
		info := GlobalInfo{
			Address:  d.Address,
			TypeName: d.Type.Name(),
			Length:   d.Length,
		}
		for _, sym := range prog.SymbolsAt(d.Address) {
			if sym.Primary {
				info.Name = sym.Name
				break
			}
		}
		if info.Name != "" {
			if demangled := Demangle(info.Name); demangled != info.Name {
				info.DemangledName = demangled
			}
		}
		out = append(out, info)
	}
	return out
}
