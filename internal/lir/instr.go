package lir

import (
	"fmt"
	"strings"
)

// Op is an instruction opcode.
type Op int

const (
	OpStructGEP Op = iota // address of field Field of Args[0]
	OpGEP                 // address of element Args[1] of Args[0]
	OpLoad
	OpStore // store Args[1] to Args[0]
	OpAlloca
	OpAdd
	OpShl
	OpLShr
	OpAnd
	OpOr
	OpNot
	OpICmpULT
	OpTrunc
	OpBr
	OpCondBr
	OpCall
	OpRet
)

var opNames = map[Op]string{
	OpStructGEP: "structgep",
	OpGEP:       "gep",
	OpLoad:      "load",
	OpStore:     "store",
	OpAlloca:    "alloca",
	OpAdd:       "add",
	OpShl:       "shl",
	OpLShr:      "lshr",
	OpAnd:       "and",
	OpOr:        "or",
	OpNot:       "not",
	OpICmpULT:   "icmp ult",
	OpTrunc:     "trunc",
	OpBr:        "br",
	OpCondBr:    "br",
	OpCall:      "call",
	OpRet:       "ret",
}

func (o Op) String() string {
	return opNames[o]
}

// IsTerminator reports whether the opcode ends a block.
func (o Op) IsTerminator() bool {
	return o == OpBr || o == OpCondBr || o == OpRet
}

// Instr is a single instruction. Instructions with a non-void type produce a
// value and can be used as operands.
type Instr struct {
	Op      Op
	typ     Type
	Args    []Value
	Field   int
	Elem    Type // alloca'd type
	Callee  *Function
	Targets []*Block
	Name    string // debug hint, printed as a trailing comment
}

func (i *Instr) Type() Type { return i.typ }

func (i *Instr) operand(names map[*Instr]int) string {
	return fmt.Sprintf("%s %%%d", i.typ, names[i])
}

func (i *Instr) format(names map[*Instr]int) string {
	var sb strings.Builder
	if i.typ.Kind != KindVoid {
		fmt.Fprintf(&sb, "%%%d = ", names[i])
	}
	args := make([]string, len(i.Args))
	for k, a := range i.Args {
		args[k] = a.operand(names)
	}
	switch i.Op {
	case OpStructGEP:
		fmt.Fprintf(&sb, "structgep %s, %d", args[0], i.Field)
	case OpLoad:
		fmt.Fprintf(&sb, "load %s, %s", i.typ, args[0])
	case OpAlloca:
		fmt.Fprintf(&sb, "alloca %s", i.Elem)
	case OpTrunc:
		fmt.Fprintf(&sb, "trunc %s to %s", args[0], i.typ)
	case OpBr:
		fmt.Fprintf(&sb, "br label %%%s", i.Targets[0].Name)
	case OpCondBr:
		fmt.Fprintf(&sb, "br %s, label %%%s, label %%%s", args[0], i.Targets[0].Name, i.Targets[1].Name)
	case OpCall:
		fmt.Fprintf(&sb, "call %s @%s(%s)", i.Callee.Ret, i.Callee.Name, strings.Join(args, ", "))
	case OpRet:
		sb.WriteString("ret void")
	default:
		fmt.Fprintf(&sb, "%s %s", i.Op, strings.Join(args, ", "))
	}
	if i.Name != "" {
		fmt.Fprintf(&sb, " ; %s", i.Name)
	}
	return sb.String()
}

// Block is a basic block.
type Block struct {
	Name   string
	Instrs []*Instr
}

// Terminated reports whether the block already ends in a terminator.
func (b *Block) Terminated() bool {
	return len(b.Instrs) > 0 && b.Instrs[len(b.Instrs)-1].Op.IsTerminator()
}
