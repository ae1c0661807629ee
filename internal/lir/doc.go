// Package lir is the low-level emission surface used by the code generator:
// a small, untyped-pointer, block-structured procedure IR.
//
// A Module is the shared symbol table for one compilation. Functions are
// either declarations (no blocks) or definitions. A Builder appends
// instructions to one block at a time; it holds no state across functions.
//
// The textual form produced by Module.String is deterministic and is what the
// golden tests compare against.
package lir
