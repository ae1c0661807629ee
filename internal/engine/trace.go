package engine

import (
	"fmt"
	"strings"
)

// CallEvent records one executed call.
type CallEvent struct {
	// Seq is the 1-based position of the call in the trace.
	Seq int64

	// Depth is the call depth; the top-level call is 0.
	Depth int

	// Function is the callee name.
	Function string

	// Args are the evaluated arguments.
	Args []Value

	// External is true when the callee is a declaration with no body.
	External bool
}

// Slot returns the array slot the call was made for, taken from the first
// argument.
func (e CallEvent) Slot() (uint64, bool) {
	if len(e.Args) == 0 || !e.Args[0].IsPtr() {
		return 0, false
	}
	return e.Args[0].Ptr.Slot()
}

func (e CallEvent) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	marker := ""
	if e.External {
		marker = " extern"
	}
	return fmt.Sprintf("%s%s(%s)%s", strings.Repeat("  ", e.Depth), e.Function, strings.Join(args, ", "), marker)
}

// Trace is the ordered list of calls executed by a machine.
type Trace []CallEvent

// Calls returns the events whose callee is function.
func (t Trace) Calls(function string) []CallEvent {
	var out []CallEvent
	for _, e := range t {
		if e.Function == function {
			out = append(out, e)
		}
	}
	return out
}

// Slots returns the slot of every call to function, in call order. Calls
// without a slot are skipped.
func (t Trace) Slots(function string) []uint64 {
	var out []uint64
	for _, e := range t.Calls(function) {
		if slot, ok := e.Slot(); ok {
			out = append(out, slot)
		}
	}
	return out
}

// String renders one event per line, indented by depth.
func (t Trace) String() string {
	var sb strings.Builder
	for _, e := range t {
		sb.WriteString(e.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
