// Package engine executes lir modules.
//
// The machine is a reference interpreter for emitted lifecycle procedures. It
// has no notion of real addresses: every pointer is a root name plus a path of
// struct field and array element steps, and memory is a map keyed by the
// rendered path. This is enough to observe what a lifecycle procedure does to
// the pointer and scratch blocks it is handed.
//
// Every call, to a defined or a declared function, is appended to the trace.
// Declared functions (block lifecycles, for example) have no body; calling one
// only records the event.
//
// Execution is single-threaded and deterministic. A step quota bounds the
// number of instructions a single top-level call may execute.
package engine
