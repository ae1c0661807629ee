package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/maxim/internal/lir"
)

// Machine executes functions of one lir module against a Memory.
//
// Thread-safety: a Machine is not safe for concurrent use.
type Machine struct {
	module   *lir.Module
	memory   *Memory
	maxSteps int
	logger   *slog.Logger

	trace  Trace
	seq    int64
	allocs int
	quota  *QuotaEnforcer
}

// Option configures a Machine.
type Option func(*Machine)

// WithMaxSteps sets the instruction quota per top-level call.
func WithMaxSteps(maxSteps int) Option {
	return func(m *Machine) {
		m.maxSteps = maxSteps
	}
}

// WithMemory sets the memory the machine reads and writes.
func WithMemory(mem *Memory) Option {
	return func(m *Machine) {
		m.memory = mem
	}
}

// WithLogger sets the logger used for debug records.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// New creates a machine for module.
func New(module *lir.Module, opts ...Option) *Machine {
	m := &Machine{
		module:   module,
		memory:   NewMemory(),
		maxSteps: DefaultMaxSteps,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Memory returns the machine's memory.
func (m *Machine) Memory() *Memory {
	return m.memory
}

// Trace returns every call executed so far.
func (m *Machine) Trace() Trace {
	return append(Trace(nil), m.trace...)
}

// Call runs the named function with args. The step quota is reset for every
// top-level call.
func (m *Machine) Call(ctx context.Context, name string, args ...Value) error {
	fn, ok := m.module.Function(name)
	if !ok {
		return &RuntimeError{
			Code:    ErrCodeUndefinedFunction,
			Message: fmt.Sprintf("function %q is not in module %q", name, m.module.Name),
		}
	}
	m.quota = NewQuotaEnforcer(m.maxSteps)
	if err := m.call(ctx, fn, args, 0); err != nil {
		return err
	}
	m.logger.Debug("call finished",
		"function", name,
		"steps", m.quota.Current(),
		"trace_len", len(m.trace),
	)
	return nil
}

// CallLifecycle runs a lifecycle procedure on the conventional roots
// "scratch" and "pointers".
func (m *Machine) CallLifecycle(ctx context.Context, name string) error {
	return m.Call(ctx, name, PtrValue(RootPointer("scratch")), PtrValue(RootPointer("pointers")))
}

type frame struct {
	fn     *lir.Function
	block  *lir.Block
	params []Value
	values map[*lir.Instr]Value
}

func (m *Machine) call(ctx context.Context, fn *lir.Function, args []Value, depth int) error {
	m.seq++
	m.trace = append(m.trace, CallEvent{
		Seq:      m.seq,
		Depth:    depth,
		Function: fn.Name,
		Args:     append([]Value(nil), args...),
		External: fn.IsDeclaration(),
	})
	if fn.IsDeclaration() {
		return nil
	}
	if len(args) != len(fn.Params) {
		return &RuntimeError{
			Code:     ErrCodeBadOperand,
			Message:  fmt.Sprintf("called with %d arguments, want %d", len(args), len(fn.Params)),
			Function: fn.Name,
		}
	}

	f := &frame{
		fn:     fn,
		block:  fn.Blocks[0],
		params: args,
		values: make(map[*lir.Instr]Value),
	}
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("execute %s: %w", fn.Name, err)
		}
		next, err := m.runBlock(ctx, f, depth)
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		f.block = next
	}
}

// runBlock executes f.block and returns the successor, or nil on return.
func (m *Machine) runBlock(ctx context.Context, f *frame, depth int) (*lir.Block, error) {
	for _, instr := range f.block.Instrs {
		if err := m.quota.Check(f.fn.Name); err != nil {
			return nil, fmt.Errorf("execute %s: %w", f.fn.Name, err)
		}

		switch instr.Op {
		case lir.OpBr:
			return instr.Targets[0], nil

		case lir.OpCondBr:
			cond, err := m.intOperand(f, instr.Args[0])
			if err != nil {
				return nil, err
			}
			if cond&1 == 1 {
				return instr.Targets[0], nil
			}
			return instr.Targets[1], nil

		case lir.OpRet:
			return nil, nil

		case lir.OpCall:
			args := make([]Value, len(instr.Args))
			for i, a := range instr.Args {
				v, err := m.operand(f, a)
				if err != nil {
					return nil, err
				}
				args[i] = v
			}
			if err := m.call(ctx, instr.Callee, args, depth+1); err != nil {
				return nil, err
			}

		default:
			v, err := m.exec(f, instr)
			if err != nil {
				return nil, err
			}
			if instr.Type().Kind != lir.KindVoid {
				f.values[instr] = v
			}
		}
	}
	return nil, m.errorf(f, ErrCodeBadOperand, "block falls through without a terminator")
}

func (m *Machine) exec(f *frame, instr *lir.Instr) (Value, error) {
	switch instr.Op {
	case lir.OpStructGEP:
		p, err := m.ptrOperand(f, instr.Args[0])
		if err != nil {
			return Value{}, err
		}
		return PtrValue(p.Field(instr.Field)), nil

	case lir.OpGEP:
		p, err := m.ptrOperand(f, instr.Args[0])
		if err != nil {
			return Value{}, err
		}
		idx, err := m.intOperand(f, instr.Args[1])
		if err != nil {
			return Value{}, err
		}
		return PtrValue(p.Elem(idx)), nil

	case lir.OpLoad:
		p, err := m.ptrOperand(f, instr.Args[0])
		if err != nil {
			return Value{}, err
		}
		v, ok := m.memory.Load(p)
		if !ok {
			return Value{}, m.errorf(f, ErrCodeUninitializedLoad, "load from %s", p)
		}
		if instr.Type().Kind == lir.KindPtr {
			if !v.IsPtr() {
				return Value{}, m.errorf(f, ErrCodeBadOperand, "load ptr from %s holding integer %d", p, v.Int)
			}
			return v, nil
		}
		if v.IsPtr() {
			return Value{}, m.errorf(f, ErrCodeBadOperand, "load %s from %s holding pointer %s", instr.Type(), p, v.Ptr)
		}
		return IntValue(v.Int & instr.Type().Mask()), nil

	case lir.OpStore:
		p, err := m.ptrOperand(f, instr.Args[0])
		if err != nil {
			return Value{}, err
		}
		v, err := m.operand(f, instr.Args[1])
		if err != nil {
			return Value{}, err
		}
		m.memory.Store(p, v)
		return Value{}, nil

	case lir.OpAlloca:
		m.allocs++
		return PtrValue(RootPointer(fmt.Sprintf("stack%d", m.allocs))), nil

	case lir.OpAdd, lir.OpShl, lir.OpLShr, lir.OpAnd, lir.OpOr, lir.OpICmpULT:
		lhs, err := m.intOperand(f, instr.Args[0])
		if err != nil {
			return Value{}, err
		}
		rhs, err := m.intOperand(f, instr.Args[1])
		if err != nil {
			return Value{}, err
		}
		return IntValue(binary(instr.Op, lhs, rhs) & instr.Type().Mask()), nil

	case lir.OpNot:
		v, err := m.intOperand(f, instr.Args[0])
		if err != nil {
			return Value{}, err
		}
		return IntValue(^v & instr.Type().Mask()), nil

	case lir.OpTrunc:
		v, err := m.intOperand(f, instr.Args[0])
		if err != nil {
			return Value{}, err
		}
		return IntValue(v & instr.Type().Mask()), nil

	default:
		return Value{}, m.errorf(f, ErrCodeBadOperand, "unsupported opcode %s", instr.Op)
	}
}

func binary(op lir.Op, lhs, rhs uint64) uint64 {
	switch op {
	case lir.OpAdd:
		return lhs + rhs
	case lir.OpShl:
		if rhs >= 64 {
			return 0
		}
		return lhs << rhs
	case lir.OpLShr:
		if rhs >= 64 {
			return 0
		}
		return lhs >> rhs
	case lir.OpAnd:
		return lhs & rhs
	case lir.OpOr:
		return lhs | rhs
	case lir.OpICmpULT:
		if lhs < rhs {
			return 1
		}
		return 0
	}
	return 0
}

func (m *Machine) operand(f *frame, v lir.Value) (Value, error) {
	switch v := v.(type) {
	case *lir.Const:
		return IntValue(v.V), nil
	case *lir.Param:
		if v.Index < 0 || v.Index >= len(f.params) {
			return Value{}, m.errorf(f, ErrCodeBadOperand, "parameter %d out of range", v.Index)
		}
		return f.params[v.Index], nil
	case *lir.Instr:
		out, ok := f.values[v]
		if !ok {
			return Value{}, m.errorf(f, ErrCodeBadOperand, "operand %s used before it is computed", v.Op)
		}
		return out, nil
	default:
		return Value{}, m.errorf(f, ErrCodeBadOperand, "unknown operand %T", v)
	}
}

func (m *Machine) ptrOperand(f *frame, v lir.Value) (Pointer, error) {
	out, err := m.operand(f, v)
	if err != nil {
		return Pointer{}, err
	}
	if !out.IsPtr() {
		return Pointer{}, m.errorf(f, ErrCodeBadOperand, "expected pointer, got %d", out.Int)
	}
	return *out.Ptr, nil
}

func (m *Machine) intOperand(f *frame, v lir.Value) (uint64, error) {
	out, err := m.operand(f, v)
	if err != nil {
		return 0, err
	}
	if out.IsPtr() {
		return 0, m.errorf(f, ErrCodeBadOperand, "expected integer, got pointer %s", out.Ptr)
	}
	return out.Int, nil
}

func (m *Machine) errorf(f *frame, code RuntimeErrorCode, format string, args ...any) *RuntimeError {
	return &RuntimeError{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Function: f.fn.Name,
		Block:    f.block.Name,
	}
}
