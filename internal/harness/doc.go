// Package harness runs simulation scenarios: a surface graph is compiled
// through the full pipeline, one lifecycle procedure of its root surface is
// executed by the engine, and assertions are checked against the call trace
// and final memory.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	graph: graphs/voices.cue        # relative to the scenario file
//	root: root
//	lifecycle: update
//	target:
//	  capacity: 4
//	bindings:                       # address -> array root
//	  pointers.2.0: in
//	values:                         # address -> initial integer
//	  in.1: 5
//	assertions:
//	  - type: call_slots
//	    surface: root.extracted0
//	    slots: [0, 2]
//	  - type: call_count
//	    block: filter
//	    count: 2
//	  - type: bitmap
//	    path: res.1
//	    value: 5
//
// Addresses use the engine's pointer form: a root followed by ".N" for struct
// fields and "[N]" for array elements. The lifecycle procedure is called on
// the roots "scratch" and "pointers".
//
// # Assertion Types
//
//   - call_count: a surface or block procedure is called exactly N times
//   - call_slots: a surface procedure is called for exactly these slots, in order
//   - call_order: the first calls of several procedures occur in this order
//   - bitmap: the integer stored at an address after the run
//
// Surface and block names resolve to procedure names through the compiled
// graph, so scenarios never spell numeric ids.
//
// # Deterministic Testing
//
// Builds use a fixed build id (scenario.build_id, default "harness-build")
// and the graph's ids are allocated from 1 in declaration order, so traces
// are identical across runs and can be compared with golden files.
package harness
