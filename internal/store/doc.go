// Package store provides a SQLite-backed cache of emitted lifecycle
// procedures.
//
// The cache records:
//   - Builds: one row per pipeline run, ordered by a logical sequence number
//   - Procedures: emitted procedure text keyed by (surface hash, name, target)
//   - Build procedures: which procedures each build produced
//
// A procedure's key fully determines its text: the surface hash covers the
// surface's groups and nodes, the name covers its id and lifecycle, and the
// target covers capacity and UI support. Storing a different text under an
// existing key is an error.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// All queries order results explicitly; builds by seq, procedures by name
// with BINARY collation.
package store
