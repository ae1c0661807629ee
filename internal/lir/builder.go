package lir

// Builder appends instructions to the end of one block of one function.
type Builder struct {
	fn    *Function
	block *Block
}

// NewBuilder creates a builder for fn. Position it with PositionAtEnd before
// emitting.
func NewBuilder(fn *Function) *Builder {
	return &Builder{fn: fn}
}

// Function returns the function being built.
func (b *Builder) Function() *Function {
	return b.fn
}

// Block returns the current insertion block.
func (b *Builder) Block() *Block {
	return b.block
}

// PositionAtEnd moves the insertion point to the end of block.
func (b *Builder) PositionAtEnd(block *Block) {
	b.block = block
}

func (b *Builder) emit(instr *Instr) *Instr {
	b.block.Instrs = append(b.block.Instrs, instr)
	return instr
}

// StructGEP computes the address of field of the struct at ptr.
func (b *Builder) StructGEP(ptr Value, field int, name string) *Instr {
	return b.emit(&Instr{Op: OpStructGEP, typ: Ptr, Args: []Value{ptr}, Field: field, Name: name})
}

// GEP computes the address of element index of the array at ptr.
func (b *Builder) GEP(ptr, index Value, name string) *Instr {
	return b.emit(&Instr{Op: OpGEP, typ: Ptr, Args: []Value{ptr, index}, Name: name})
}

// Load reads a value of type t from ptr.
func (b *Builder) Load(t Type, ptr Value, name string) *Instr {
	return b.emit(&Instr{Op: OpLoad, typ: t, Args: []Value{ptr}, Name: name})
}

// Store writes val to ptr.
func (b *Builder) Store(ptr, val Value) *Instr {
	return b.emit(&Instr{Op: OpStore, typ: Void, Args: []Value{ptr, val}})
}

// Alloca reserves a stack slot of type t at the start of the entry block, so
// the slot is allocated once per call regardless of where it is requested.
func (b *Builder) Alloca(t Type, name string) *Instr {
	instr := &Instr{Op: OpAlloca, typ: Ptr, Elem: t, Name: name}
	entry := b.fn.Blocks[0]
	if entry == b.block {
		return b.emit(instr)
	}
	entry.Instrs = append([]*Instr{instr}, entry.Instrs...)
	return instr
}

func (b *Builder) binary(op Op, lhs, rhs Value, name string) *Instr {
	return b.emit(&Instr{Op: op, typ: lhs.Type(), Args: []Value{lhs, rhs}, Name: name})
}

// Add emits lhs + rhs.
func (b *Builder) Add(lhs, rhs Value, name string) *Instr { return b.binary(OpAdd, lhs, rhs, name) }

// Shl emits lhs << rhs.
func (b *Builder) Shl(lhs, rhs Value, name string) *Instr { return b.binary(OpShl, lhs, rhs, name) }

// LShr emits the logical shift lhs >> rhs.
func (b *Builder) LShr(lhs, rhs Value, name string) *Instr { return b.binary(OpLShr, lhs, rhs, name) }

// And emits lhs & rhs.
func (b *Builder) And(lhs, rhs Value, name string) *Instr { return b.binary(OpAnd, lhs, rhs, name) }

// Or emits lhs | rhs.
func (b *Builder) Or(lhs, rhs Value, name string) *Instr { return b.binary(OpOr, lhs, rhs, name) }

// Not emits the bitwise complement of v.
func (b *Builder) Not(v Value, name string) *Instr {
	return b.emit(&Instr{Op: OpNot, typ: v.Type(), Args: []Value{v}, Name: name})
}

// ICmpULT emits the unsigned comparison lhs < rhs.
func (b *Builder) ICmpULT(lhs, rhs Value, name string) *Instr {
	return b.emit(&Instr{Op: OpICmpULT, typ: I1, Args: []Value{lhs, rhs}, Name: name})
}

// Trunc narrows v to type t.
func (b *Builder) Trunc(v Value, t Type, name string) *Instr {
	return b.emit(&Instr{Op: OpTrunc, typ: t, Args: []Value{v}, Name: name})
}

// Br emits an unconditional branch.
func (b *Builder) Br(target *Block) *Instr {
	return b.emit(&Instr{Op: OpBr, typ: Void, Targets: []*Block{target}})
}

// CondBr branches to then if cond is set, otherwise to els.
func (b *Builder) CondBr(cond Value, then, els *Block) *Instr {
	return b.emit(&Instr{Op: OpCondBr, typ: Void, Args: []Value{cond}, Targets: []*Block{then, els}})
}

// Call emits a call to fn.
func (b *Builder) Call(fn *Function, args ...Value) *Instr {
	return b.emit(&Instr{Op: OpCall, typ: fn.Ret, Args: args, Callee: fn})
}

// RetVoid returns from the function.
func (b *Builder) RetVoid() *Instr {
	return b.emit(&Instr{Op: OpRet, typ: Void})
}
