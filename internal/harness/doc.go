// Package harness runs layout extraction scenarios end to end.
//
// A scenario names a type graph document (see package typegraph), an
// optional target struct and an output format, and lists assertions about
// what the run must produce. The harness replays the graph through a fresh
// layout.Session, renders the result and evaluates the assertions.
//
// # Scenario Format
//
//	name: linked_list
//	description: "self-referencing struct is emitted once"
//	graph: graphs/list.cue
//	target: list
//	format: python
//	assertions:
//	  - type: emitted
//	    names: [list, node]
//	  - type: field
//	    struct: list
//	    field: head
//	    bit_offset: 0
//	    kind: pointer
//	  - type: error
//	    code: NON_CONSTANT_OFFSET
//
// Instead of graph, a scenario may carry the document inline under source.
//
// # Assertion Types
//
//   - emitted: the emitted names, in order, are exactly names
//   - layout: a layout named struct was emitted, optionally with total_bits
//   - field: a field of an emitted layout sits at bit_offset and has kind
//   - error: the run failed with the invariant error code
//
// # Golden Files
//
// RunWithGolden compares the rendered output with
// testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
