package lir

import "fmt"

// TypeKind classifies a Type.
type TypeKind int

const (
	KindVoid TypeKind = iota
	KindInt
	KindPtr
)

// Type is a value type. Pointers are opaque.
type Type struct {
	Kind TypeKind
	Bits int
}

var (
	Void = Type{Kind: KindVoid}
	Ptr  = Type{Kind: KindPtr}
	I1   = Int(1)
	I8   = Int(8)
	I16  = Int(16)
	I32  = Int(32)
	I64  = Int(64)
)

// Int returns the integer type of the given width.
func Int(bits int) Type {
	return Type{Kind: KindInt, Bits: bits}
}

// Mask returns the bit mask covering the type's width.
func (t Type) Mask() uint64 {
	if t.Kind != KindInt || t.Bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(t.Bits)) - 1
}

func (t Type) String() string {
	switch t.Kind {
	case KindVoid:
		return "void"
	case KindPtr:
		return "ptr"
	default:
		return fmt.Sprintf("i%d", t.Bits)
	}
}

// Value is anything usable as an instruction operand.
type Value interface {
	Type() Type
	operand(names map[*Instr]int) string
}

// Const is an integer constant.
type Const struct {
	typ Type
	V   uint64
}

// ConstInt returns an integer constant truncated to t's width.
func ConstInt(t Type, v uint64) *Const {
	return &Const{typ: t, V: v & t.Mask()}
}

func (c *Const) Type() Type { return c.typ }

func (c *Const) operand(map[*Instr]int) string {
	return fmt.Sprintf("%s %d", c.typ, c.V)
}

// Param is a function parameter.
type Param struct {
	typ   Type
	Name  string
	Index int
}

func (p *Param) Type() Type { return p.typ }

func (p *Param) operand(map[*Instr]int) string {
	return fmt.Sprintf("%s %%%s", p.typ, p.Name)
}
