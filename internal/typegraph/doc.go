// Package typegraph provides an in-memory compiler type graph.
//
// A Graph implements provider.Provider: it holds types built through the
// constructors in this package (or loaded from a CUE document with Load) and
// replays them as the host compiler would, one TypeFinished per completed
// named aggregate in definition order, then CompilationFinished.
//
// Offsets may be given explicitly or computed by Graph.Complete using the
// natural-alignment rules of an LP64 System V target, including the GCC
// bitfield packing rule: a bitfield starts at the current bit position unless
// it would straddle a storage unit of its declared type, in which case it
// moves to the next unit.
//
// # Document Format
//
//	unit: "test.c"
//	pointer_bits: 64
//	base: {
//		"int":               {kind: "integer", bits: 32}
//		"long unsigned int": {kind: "integer", bits: 64, unsigned: true}
//	}
//	enums: e1: {bits: 32, unsigned: true}
//	typedefs: u64: "long unsigned int"
//	defs: [
//		{declare: "struct fwd"},
//		{struct: "node", fields: [
//			{name: "next", type: {ptr: "struct node"}},
//			{name: "flags", type: "int", width: 3},
//			{type: {anon: "union", fields: [{name: "c", type: "int"}]}},
//			{name: "tail", type: {array: "int"}},
//		]},
//	]
//
// Type expressions are either a name ("int", "struct node", "union u",
// "enum e1", a typedef, "void", "function") or one of {ptr: T},
// {array: T, count?: N}, {vector: T, count: N}, {anon: "struct"|"union",
// fields: [...]}, {anon: "enum", bits: N, unsigned?: B}.
package typegraph
