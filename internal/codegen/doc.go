// Package codegen lowers mir surfaces into lifecycle procedures.
//
// Every surface compiles into three procedures, construct, update and
// destruct, each taking (scratch, pointers) and returning nothing. A
// procedure visits the surface's nodes in document order and invokes each
// node's own lifecycle against the node's sub-region of both blocks:
//
//   - Custom nodes delegate to the BlockCompiler.
//   - Group nodes call the nested surface's procedure once.
//   - ExtractGroup nodes loop over Capacity slots. During update the loop is
//     gated by the OR of the source arrays' liveness bitmaps, and the result
//     is written to every destination array afterwards.
//
// Procedure names are derived from (surface id, debug name, lifecycle) and
// memoised in the module, so a surface reached from several call sites is
// emitted once.
//
// Layout, leaf block code and array bitmap access are external collaborators
// behind the LayoutProvider, BlockCompiler and ArrayAccessor interfaces.
package codegen
