// Package mir provides the graph intermediate representation shared by the
// maxim compiler: surfaces, nodes, sockets and value groups.
//
// This package contains data types only. All other internal packages import
// mir; mir imports nothing internal.
//
// Key design constraints:
//   - Arena addressing: groups and nodes live in flat slices and are referenced
//     by index, never by pointer. Group order is the canonical addressing scheme.
//   - Surface identities come from an IDAllocator and are independent of any
//     container's local indices.
//   - NodeData is a closed sum type: Custom, Group and ExtractGroup. Consumers
//     switch over exactly these three cases.
//   - All JSON tags use snake_case.
package mir
