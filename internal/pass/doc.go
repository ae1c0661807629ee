// Package pass implements graph rewriting passes over mir surfaces.
//
// GroupExtracted discovers the subgraphs that depend on an extractor socket
// (the seam where dynamic instancing begins) and moves each maximal cluster
// into a new child surface, leaving a single ExtractGroup node in the parent.
//
// The pass runs exactly once per surface. Running it again on a surface it
// already rewrote is unsafe: node and group indices have shifted.
//
// Passes never partially mutate a surface. Every structural check runs before
// the first write, and a *Error describes the offending surface, node and
// socket.
package pass
