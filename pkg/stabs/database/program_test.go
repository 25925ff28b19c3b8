package database

import (
	"testing"
)

func TestCreateFunctionRejectsDuplicateEntry(t *testing.T) {
	p := NewProgram()
	if _, err := p.CreateFunction("f", 0x100, 0x140); err != nil {
		t.Fatalf("CreateFunction: %v", err)
	}
	if _, err := p.CreateFunction("g", 0x100, 0x180); err == nil {
		t.Fatal("expected error for second function at the same entry")
	}
}

func TestCreateFunctionRejectsInvertedBody(t *testing.T) {
	p := NewProgram()
	if _, err := p.CreateFunction("f", 0x100, 0x80); err == nil {
		t.Fatal("expected error for inverted body")
	}
}

func TestSingleAddressFunction(t *testing.T) {
	p := NewProgram()
	f, err := p.CreateFunction("stub", 0x200, 0x200)
	if err != nil {
		t.Fatalf("CreateFunction: %v", err)
	}
	if !f.SingleAddress() {
		t.Fatal("expected single-address function")
	}
}

func TestReplaceParametersBindsO32Storage(t *testing.T) {
	p := NewProgram()
	f, err := p.CreateFunction("f", 0x100, 0x140)
	if err != nil {
		t.Fatalf("CreateFunction: %v", err)
	}

	names := []string{"a", "b", "c", "d", "e", "g"}
	params := make([]*Parameter, len(names))
	for i, name := range names {
		param, err := NewParameter(name, Undefined1)
		if err != nil {
			t.Fatalf("NewParameter(%s): %v", name, err)
		}
		params[i] = param
	}
	if err := f.ReplaceParameters(params); err != nil {
		t.Fatalf("ReplaceParameters: %v", err)
	}

	want := []string{"a0", "a1", "a2", "a3", "stack[0x10]", "stack[0x14]"}
	got := f.Parameters()
	if len(got) != len(want) {
		t.Fatalf("got %d parameters, want %d", len(got), len(want))
	}
	for i, p := range got {
		if p.Storage != want[i] {
			t.Errorf("parameter %d storage = %q, want %q", i, p.Storage, want[i])
		}
	}
}

func TestReplaceParametersRejectsDuplicates(t *testing.T) {
	p := NewProgram()
	f, _ := p.CreateFunction("f", 0x100, 0x140)
	a, _ := NewParameter("x", Undefined1)
	b, _ := NewParameter("x", Undefined1)
	if err := f.ReplaceParameters([]*Parameter{a, b}); err == nil {
		t.Fatal("expected duplicate-name error")
	}
	if len(f.Parameters()) != 0 {
		t.Fatal("failed replacement must not install a partial list")
	}
}

func TestAddLocalVariableRejectsParameterName(t *testing.T) {
	p := NewProgram()
	f, _ := p.CreateFunction("f", 0x100, 0x140)
	param, _ := NewParameter("x", Undefined1)
	if err := f.ReplaceParameters([]*Parameter{param}); err != nil {
		t.Fatalf("ReplaceParameters: %v", err)
	}
	local, _ := NewLocalVariable("x", Undefined1, 8)
	if err := f.AddLocalVariable(local); err == nil {
		t.Fatal("expected conflict with parameter name")
	}
}

func TestCreateDataClearsConflicts(t *testing.T) {
	p := NewProgram()
	word := NewBuiltinType("int", 4)

	if _, err := p.CreateData(0x1000, word); err != nil {
		t.Fatalf("CreateData: %v", err)
	}
	// Overlaps [0x1000, 0x1004) by two bytes.
	if _, err := p.CreateData(0x1002, word); err != nil {
		t.Fatalf("CreateData: %v", err)
	}
	if p.DataAt(0x1000) != nil {
		t.Fatal("conflicting data unit was not cleared")
	}
	if d := p.DataAt(0x1002); d == nil || d.Length != 4 {
		t.Fatal("new data unit missing")
	}

	// Adjacent data does not conflict.
	if _, err := p.CreateData(0x1006, word); err != nil {
		t.Fatalf("CreateData: %v", err)
	}
	if p.DataAt(0x1002) == nil {
		t.Fatal("adjacent data unit was cleared")
	}
}

func TestCreateLabelIsIdempotent(t *testing.T) {
	p := NewProgram()
	first, err := p.CreateLabel(0x2000, "gGameState", true)
	if err != nil {
		t.Fatalf("CreateLabel: %v", err)
	}
	second, err := p.CreateLabel(0x2000, "gGameState", true)
	if err != nil {
		t.Fatalf("CreateLabel: %v", err)
	}
	if first != second {
		t.Fatal("re-creating the same label must return the existing symbol")
	}
	if len(p.SymbolsAt(0x2000)) != 1 {
		t.Fatal("duplicate label recorded")
	}
}

func TestCreateLabelRejectsInvalidName(t *testing.T) {
	p := NewProgram()
	if _, err := p.CreateLabel(0x2000, "bad name", false); err == nil {
		t.Fatal("expected invalid-name error")
	}
	if _, err := p.CreateLabel(0x2000, "", false); err == nil {
		t.Fatal("expected invalid-name error")
	}
}

func TestCompositeShellLength(t *testing.T) {
	s := NewStructType("Vec")
	if s.Length() != 1 {
		t.Fatalf("empty shell length = %d, want 1", s.Length())
	}
	s.SetFields([]CompositeField{
		{Name: "x", Type: NewBuiltinType("float", 4), Offset: 0},
		{Name: "y", Type: NewBuiltinType("float", 4), Offset: 4},
	})
	if s.Length() != 8 {
		t.Fatalf("computed length = %d, want 8", s.Length())
	}
	s.SetDeclaredLength(16)
	if s.Length() != 16 {
		t.Fatalf("declared length = %d, want 16", s.Length())
	}
}

func TestTypeManagerFirstNamedRegistrationWins(t *testing.T) {
	tm := NewTypeManager()
	a := NewStructType("Dup")
	b := NewStructType("Dup")
	tm.AddDataType(a)
	tm.AddDataType(b)

	got, ok := tm.GetDataType("Dup")
	if !ok || got != DataType(a) {
		t.Fatal("name lookup must return the first registration")
	}
	if len(tm.Types()) != 2 {
		t.Fatal("both registrations must stay in the ordered listing")
	}
}
