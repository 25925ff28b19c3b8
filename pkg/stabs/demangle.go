package stabs

import (
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DemangleResult contains the separated parts of a demangled name.
type DemangleResult struct {
	Name      string // The function/method name (e.g., "MyClass::MyMethod")
	Prototype string // The argument list (e.g., "(int, char *)")
}

// demangleCache memoizes results across a run; mangled names repeat
// heavily between the symbol table and the debug info.
var demangleCache, _ = lru.New[string, DemangleResult](4096)

// DemangleFull attempts to demangle a GNU v2 (gcc 2.9x era) C++ name and
// returns the name and prototype separately.
func DemangleFull(name string) DemangleResult {
	if name == "" {
		return DemangleResult{}
	}
	if cached, ok := demangleCache.Get(name); ok {
		return cached
	}
	result := demangleGNU2(name)
	demangleCache.Add(name, result)
	return result
}

// Demangle attempts to demangle a GNU v2 C++ name. Returns the demangled
// name, or the original if demangling fails. For separate name and
// prototype, use DemangleFull instead.
func Demangle(name string) string {
	result := DemangleFull(name)
	if result.Name == "" {
		return name
	}
	return result.Name
}

// gnuOperators maps the two- and three-letter operator codes that follow
// a "__" prefix in GNU v2 names.
var gnuOperators = map[string]string{
	"nw":  "operator new",
	"dl":  "operator delete",
	"vn":  "operator new[]",
	"vd":  "operator delete[]",
	"pl":  "operator+",
	"mi":  "operator-",
	"ml":  "operator*",
	"dv":  "operator/",
	"md":  "operator%",
	"er":  "operator^",
	"ad":  "operator&",
	"or":  "operator|",
	"co":  "operator~",
	"nt":  "operator!",
	"as":  "operator=",
	"eq":  "operator==",
	"ne":  "operator!=",
	"lt":  "operator<",
	"gt":  "operator>",
	"le":  "operator<=",
	"ge":  "operator>=",
	"ls":  "operator<<",
	"rs":  "operator>>",
	"rf":  "operator->",
	"rm":  "operator->*",
	"cm":  "operator,",
	"cl":  "operator()",
	"vc":  "operator[]",
	"aa":  "operator&&",
	"oo":  "operator||",
	"pp":  "operator++",
	"mm":  "operator--",
	"apl": "operator+=",
	"ami": "operator-=",
	"amu": "operator*=",
	"adv": "operator/=",
	"amd": "operator%=",
	"aer": "operator^=",
	"aad": "operator&=",
	"aor": "operator|=",
	"als": "operator<<=",
	"ars": "operator>>=",
}

func demangleGNU2(name string) DemangleResult {
	// Destructors: "_._3Foo" or "_$_3Foo".
	if strings.HasPrefix(name, "_._") || strings.HasPrefix(name, "_$_") {
		d := &gnuDemangler{input: name, pos: 3}
		class, ok := d.parseClassName()
		if !ok {
			return DemangleResult{Name: name}
		}
		return DemangleResult{Name: class + "::~" + leafName(class), Prototype: "(void)"}
	}

	// Module-level constructor/destructor lists emitted by gcc2.
	for _, prefix := range []string{"_GLOBAL_$I$", "_GLOBAL_.I."} {
		if strings.HasPrefix(name, prefix) {
			return DemangleResult{Name: "global constructors keyed to " + Demangle(name[len(prefix):])}
		}
	}
	for _, prefix := range []string{"_GLOBAL_$D$", "_GLOBAL_.D."} {
		if strings.HasPrefix(name, prefix) {
			return DemangleResult{Name: "global destructors keyed to " + Demangle(name[len(prefix):])}
		}
	}

	sep := findSignatureSeparator(name)
	if sep < 0 {
		return DemangleResult{Name: name}
	}
	base := name[:sep]
	if strings.HasPrefix(base, "__") {
		if op, ok := gnuOperators[base[2:]]; ok {
			base = op
		}
	}

	d := &gnuDemangler{input: name, pos: sep + 2}

	// Const member function qualifier.
	if d.peek() == 'C' {
		d.pos++
	}

	class := ""
	if c := d.peek(); c == 'Q' || (c >= '1' && c <= '9') || c == 't' {
		parsed, ok := d.parseClassName()
		if !ok {
			return DemangleResult{Name: name}
		}
		class = parsed
	}

	if base == "" {
		// Constructor: "__3Foo..." has no base name before the separator.
		if class == "" {
			return DemangleResult{Name: name}
		}
		base = leafName(class)
	}

	if d.peek() == 'F' {
		d.pos++
	}
	args, ok := d.parseArguments()
	if !ok {
		return DemangleResult{Name: name}
	}

	full := base
	if class != "" {
		full = class + "::" + base
	}
	return DemangleResult{Name: full, Prototype: "(" + args + ")"}
}

// findSignatureSeparator locates the "__" that splits the base name from
// the encoded signature. gcc allows "__" inside identifiers, so the
// rightmost candidate followed by a plausible signature wins.
func findSignatureSeparator(name string) int {
	start := 0
	// Names like "__eq__6String..." start with an operator code; keep the
	// leading "__" as part of the base name.
	if strings.HasPrefix(name, "__") {
		start = 2
	}
	for i := len(name) - 2; i >= start; i-- {
		if name[i] != '_' || name[i+1] != '_' {
			continue
		}
		if i+2 >= len(name) {
			continue
		}
		if signatureStart(name[i+2]) {
			return i
		}
	}
	// Constructors have no base name at all: "__3Foo..." starts with the
	// separator itself.
	if start == 2 && len(name) > 2 && signatureStart(name[2]) {
		return 0
	}
	return -1
}

func signatureStart(c byte) bool {
	return c == 'C' || c == 'F' || c == 'Q' || c == 'H' || c == 't' || (c >= '1' && c <= '9')
}

func leafName(qualified string) string {
	if i := strings.LastIndex(qualified, "::"); i >= 0 {
		return qualified[i+2:]
	}
	return qualified
}

type gnuDemangler struct {
	input string
	pos   int
	args  []string // Back-reference table for T/N codes
}

func (d *gnuDemangler) peek() byte {
	if d.pos >= len(d.input) {
		return 0
	}
	return d.input[d.pos]
}

// parseCount reads a decimal length prefix.
func (d *gnuDemangler) parseCount() (int, bool) {
	start := d.pos
	n := 0
	for d.pos < len(d.input) && d.input[d.pos] >= '0' && d.input[d.pos] <= '9' {
		n = n*10 + int(d.input[d.pos]-'0')
		d.pos++
	}
	if d.pos == start || n <= 0 {
		return 0, false
	}
	return n, true
}

// parseCountedName reads a length-prefixed identifier like "3Foo".
func (d *gnuDemangler) parseCountedName() (string, bool) {
	n, ok := d.parseCount()
	if !ok || d.pos+n > len(d.input) {
		return "", false
	}
	name := d.input[d.pos : d.pos+n]
	d.pos += n
	return name, true
}

// parseClassName reads a class reference: a counted name, a Q-qualified
// name chain, or a template instance.
func (d *gnuDemangler) parseClassName() (string, bool) {
	switch c := d.peek(); {
	case c == 'Q':
		d.pos++
		count := 0
		if d.peek() == '_' {
			// "Q_" introduces a multi-digit count terminated by '_'.
			d.pos++
			n, ok := d.parseCount()
			if !ok || d.peek() != '_' {
				return "", false
			}
			d.pos++
			count = n
		} else if d.peek() >= '1' && d.peek() <= '9' {
			count = int(d.peek() - '0')
			d.pos++
		} else {
			return "", false
		}
		parts := make([]string, 0, count)
		for i := 0; i < count; i++ {
			part, ok := d.parseClassName()
			if !ok {
				return "", false
			}
			parts = append(parts, part)
		}
		return strings.Join(parts, "::"), true

	case c == 't':
		d.pos++
		base, ok := d.parseCountedName()
		if !ok {
			return "", false
		}
		n, ok := d.parseCount()
		if !ok {
			return "", false
		}
		params := make([]string, 0, n)
		for i := 0; i < n; i++ {
			// Template value parameters carry a Z prefix before the type.
			if d.peek() == 'Z' {
				d.pos++
			}
			param, ok := d.parseType()
			if !ok {
				return "", false
			}
			params = append(params, param)
		}
		return base + "<" + strings.Join(params, ", ") + ">", true

	case c >= '1' && c <= '9':
		return d.parseCountedName()

	default:
		return "", false
	}
}

// parseArguments reads the encoded argument list until the input ends.
func (d *gnuDemangler) parseArguments() (string, bool) {
	var args []string
	for d.pos < len(d.input) {
		switch d.peek() {
		case 'T':
			d.pos++
			idx, ok := d.parseCount()
			if !ok || idx > len(d.args) {
				return "", false
			}
			args = append(args, d.args[idx-1])
			continue
		case 'N':
			d.pos++
			repeat, ok := d.parseCount()
			if !ok {
				return "", false
			}
			idx, ok2 := d.parseCount()
			if !ok2 || idx > len(d.args) {
				return "", false
			}
			for i := 0; i < repeat; i++ {
				args = append(args, d.args[idx-1])
			}
			continue
		}
		arg, ok := d.parseType()
		if !ok {
			return "", false
		}
		d.args = append(d.args, arg)
		args = append(args, arg)
		if len(args) > 64 { // Safety limit
			return "", false
		}
	}
	if len(args) == 0 {
		return "void", true
	}
	return strings.Join(args, ", "), true
}

// parseType reads one encoded type.
func (d *gnuDemangler) parseType() (string, bool) {
	if d.pos >= len(d.input) {
		return "", false
	}
	c := d.input[d.pos]

	switch c {
	case 'P':
		d.pos++
		inner, ok := d.parseType()
		if !ok {
			return "", false
		}
		return inner + " *", true
	case 'R':
		d.pos++
		inner, ok := d.parseType()
		if !ok {
			return "", false
		}
		return inner + " &", true
	case 'C':
		d.pos++
		inner, ok := d.parseType()
		if !ok {
			return "", false
		}
		return "const " + inner, true
	case 'V':
		d.pos++
		inner, ok := d.parseType()
		if !ok {
			return "", false
		}
		return "volatile " + inner, true
	case 'U':
		d.pos++
		inner, ok := d.parseType()
		if !ok {
			return "", false
		}
		return "unsigned " + inner, true
	case 'S':
		d.pos++
		inner, ok := d.parseType()
		if !ok {
			return "", false
		}
		return "signed " + inner, true
	case 'A':
		d.pos++
		n, ok := d.parseCount()
		if !ok || d.peek() != '_' {
			return "", false
		}
		d.pos++
		inner, ok := d.parseType()
		if !ok {
			return "", false
		}
		return inner + "[" + strconv.Itoa(n) + "]", true
	case 'F':
		// Pointed-to function signature; render args only, the return
		// type follows after '_'.
		d.pos++
		var args []string
		for d.pos < len(d.input) && d.peek() != '_' {
			arg, ok := d.parseType()
			if !ok {
				return "", false
			}
			args = append(args, arg)
		}
		if d.peek() != '_' {
			return "", false
		}
		d.pos++
		ret, ok := d.parseType()
		if !ok {
			return "", false
		}
		return ret + " (" + strings.Join(args, ", ") + ")", true
	case 'Q', 't':
		return d.parseClassName()
	}

	if c >= '1' && c <= '9' {
		return d.parseCountedName()
	}

	d.pos++
	switch c {
	case 'v':
		return "void", true
	case 'c':
		return "char", true
	case 's':
		return "short", true
	case 'i':
		return "int", true
	case 'l':
		return "long", true
	case 'x':
		return "long long", true
	case 'f':
		return "float", true
	case 'd':
		return "double", true
	case 'r':
		return "long double", true
	case 'b':
		return "bool", true
	case 'w':
		return "wchar_t", true
	case 'e':
		return "...", true
	}
	return "", false
}
