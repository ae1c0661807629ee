package lir

import (
	"fmt"
	"strings"
)

// ParamSpec describes one parameter of a signature.
type ParamSpec struct {
	Name string
	Type Type
}

// Signature is a function type.
type Signature struct {
	Ret    Type
	Params []ParamSpec
}

// Function is a declaration (no blocks) or a definition.
type Function struct {
	Name   string
	Ret    Type
	Params []*Param
	Blocks []*Block
}

// IsDeclaration reports whether the function has no body.
func (f *Function) IsDeclaration() bool {
	return len(f.Blocks) == 0
}

// AppendBlock adds a block at the end of the function. Names are made unique
// by suffixing an ordinal.
func (f *Function) AppendBlock(name string) *Block {
	unique := name
	for n := 1; f.hasBlock(unique); n++ {
		unique = fmt.Sprintf("%s.%d", name, n)
	}
	b := &Block{Name: unique}
	f.Blocks = append(f.Blocks, b)
	return b
}

func (f *Function) hasBlock(name string) bool {
	for _, b := range f.Blocks {
		if b.Name == name {
			return true
		}
	}
	return false
}

// Reset discards the body, turning the function back into a declaration.
func (f *Function) Reset() {
	f.Blocks = nil
}

// Module is the symbol table for one compilation unit.
type Module struct {
	Name   string
	funcs  []*Function
	byName map[string]*Function
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{Name: name, byName: make(map[string]*Function)}
}

// Function looks up a function by name.
func (m *Module) Function(name string) (*Function, bool) {
	f, ok := m.byName[name]
	return f, ok
}

// Functions returns all functions in declaration order.
func (m *Module) Functions() []*Function {
	return append([]*Function(nil), m.funcs...)
}

// GetOrCreateFunc returns the function called name, declaring it with the
// signature produced by sig if it does not exist yet. sig is only invoked on
// first use.
func (m *Module) GetOrCreateFunc(name string, sig func() Signature) *Function {
	if f, ok := m.byName[name]; ok {
		return f
	}
	s := sig()
	f := &Function{Name: name, Ret: s.Ret}
	for i, p := range s.Params {
		f.Params = append(f.Params, &Param{typ: p.Type, Name: p.Name, Index: i})
	}
	m.funcs = append(m.funcs, f)
	m.byName[name] = f
	return f
}

// String renders the module in its textual form.
func (m *Module) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; module %s\n", m.Name)
	for _, f := range m.funcs {
		sb.WriteString("\n")
		sb.WriteString(f.String())
	}
	return sb.String()
}

// String renders the function in its textual form.
func (f *Function) String() string {
	var sb strings.Builder
	if f.IsDeclaration() {
		params := make([]string, len(f.Params))
		for i, p := range f.Params {
			params[i] = p.typ.String()
		}
		fmt.Fprintf(&sb, "declare %s @%s(%s)\n", f.Ret, f.Name, strings.Join(params, ", "))
		return sb.String()
	}

	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = p.operand(nil)
	}
	fmt.Fprintf(&sb, "define %s @%s(%s) {\n", f.Ret, f.Name, strings.Join(params, ", "))

	names := make(map[*Instr]int)
	for _, b := range f.Blocks {
		for _, instr := range b.Instrs {
			if instr.typ.Kind != KindVoid {
				names[instr] = len(names)
			}
		}
	}
	for _, b := range f.Blocks {
		fmt.Fprintf(&sb, "%s:\n", b.Name)
		for _, instr := range b.Instrs {
			fmt.Fprintf(&sb, "  %s\n", instr.format(names))
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}
