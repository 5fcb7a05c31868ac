// Package catalog records extraction runs and their layouts in SQLite.
//
// Every run gets a time-sortable UUIDv7 id. Each emitted layout is stored
// with its emission ordinal, its content hash (ir.LayoutHash) and the
// descriptor tree encoded as msgpack, so a stored layout can be rendered
// again byte-for-byte.
//
// A Recorder adapts a run to layout.Sink so the catalog can sit next to the
// regular output in a render.Multi.
package catalog
