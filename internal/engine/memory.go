package engine

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Step is one addressing step of a Pointer: a struct field or an array
// element.
type Step struct {
	Elem  bool
	Index uint64
}

// Pointer is a symbolic address: a named root and the steps taken from it.
type Pointer struct {
	Root  string
	Steps []Step
}

// RootPointer returns a pointer to the start of root.
func RootPointer(root string) Pointer {
	return Pointer{Root: root}
}

// Field returns the address of struct field i.
func (p Pointer) Field(i int) Pointer {
	return p.with(Step{Index: uint64(i)})
}

// Elem returns the address of array element i.
func (p Pointer) Elem(i uint64) Pointer {
	return p.with(Step{Elem: true, Index: i})
}

func (p Pointer) with(s Step) Pointer {
	steps := make([]Step, len(p.Steps), len(p.Steps)+1)
	copy(steps, p.Steps)
	return Pointer{Root: p.Root, Steps: append(steps, s)}
}

// Slot returns the index of the last element step, if any. For a voice
// procedure invoked on scratch[i] this is i.
func (p Pointer) Slot() (uint64, bool) {
	for i := len(p.Steps) - 1; i >= 0; i-- {
		if p.Steps[i].Elem {
			return p.Steps[i].Index, true
		}
	}
	return 0, false
}

// String renders the pointer as root followed by ".N" for fields and "[N]"
// for elements, e.g. "pointers.2[0].1".
func (p Pointer) String() string {
	var sb strings.Builder
	sb.WriteString(p.Root)
	for _, s := range p.Steps {
		if s.Elem {
			fmt.Fprintf(&sb, "[%d]", s.Index)
		} else {
			fmt.Fprintf(&sb, ".%d", s.Index)
		}
	}
	return sb.String()
}

// ParsePointer parses the form produced by Pointer.String.
func ParsePointer(s string) (Pointer, error) {
	end := strings.IndexAny(s, ".[")
	if end == 0 || s == "" {
		return Pointer{}, fmt.Errorf("pointer %q: missing root", s)
	}
	if end < 0 {
		end = len(s)
	}
	if strings.ContainsRune(s[:end], ']') {
		return Pointer{}, fmt.Errorf("pointer %q: bad root %q", s, s[:end])
	}

	p := RootPointer(s[:end])
	rest := s[end:]
	for rest != "" {
		switch rest[0] {
		case '.':
			n := strings.IndexAny(rest[1:], ".[")
			if n < 0 {
				n = len(rest) - 1
			}
			v, err := strconv.ParseUint(rest[1:1+n], 10, 64)
			if err != nil {
				return Pointer{}, fmt.Errorf("pointer %q: bad field %q", s, rest[1:1+n])
			}
			p = p.Field(int(v))
			rest = rest[1+n:]
		case '[':
			n := strings.IndexByte(rest, ']')
			if n < 0 {
				return Pointer{}, fmt.Errorf("pointer %q: unterminated element", s)
			}
			v, err := strconv.ParseUint(rest[1:n], 10, 64)
			if err != nil {
				return Pointer{}, fmt.Errorf("pointer %q: bad element %q", s, rest[1:n])
			}
			p = p.Elem(v)
			rest = rest[n+1:]
		default:
			return Pointer{}, fmt.Errorf("pointer %q: unexpected %q", s, rest[0])
		}
	}
	return p, nil
}

// Value is a runtime value: an integer or a pointer.
type Value struct {
	Int uint64
	Ptr *Pointer
}

// IntValue wraps an integer.
func IntValue(v uint64) Value {
	return Value{Int: v}
}

// PtrValue wraps a pointer.
func PtrValue(p Pointer) Value {
	return Value{Ptr: &p}
}

// IsPtr reports whether the value is a pointer.
func (v Value) IsPtr() bool {
	return v.Ptr != nil
}

func (v Value) String() string {
	if v.Ptr != nil {
		return v.Ptr.String()
	}
	return strconv.FormatUint(v.Int, 10)
}

// Memory maps rendered addresses to stored values.
type Memory struct {
	cells map[string]Value
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{cells: make(map[string]Value)}
}

// Store writes v at p.
func (m *Memory) Store(p Pointer, v Value) {
	m.cells[p.String()] = v
}

// Load reads the value at p.
func (m *Memory) Load(p Pointer) (Value, bool) {
	v, ok := m.cells[p.String()]
	return v, ok
}

// Bind stores a pointer to root at the address given in path form. It is the
// usual way to hand an array to a procedure through its pointer block.
func (m *Memory) Bind(path, root string) error {
	p, err := ParsePointer(path)
	if err != nil {
		return err
	}
	m.Store(p, PtrValue(RootPointer(root)))
	return nil
}

// Set stores an integer at the address given in path form.
func (m *Memory) Set(path string, v uint64) error {
	p, err := ParsePointer(path)
	if err != nil {
		return err
	}
	m.Store(p, IntValue(v))
	return nil
}

// Get reads the value at the address given in path form.
func (m *Memory) Get(path string) (Value, bool, error) {
	p, err := ParsePointer(path)
	if err != nil {
		return Value{}, false, err
	}
	v, ok := m.Load(p)
	return v, ok, nil
}

// Addresses returns every written address in sorted order.
func (m *Memory) Addresses() []string {
	out := make([]string, 0, len(m.cells))
	for k := range m.cells {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
