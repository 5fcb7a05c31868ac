// Package render serializes struct layouts.
//
// Python writes the layout grammar consumed by the Python side of the
// tooling: one `name = Struct(...)` (or Union) assignment per layout,
// followed by a trailer comment listing every emitted name.
//
// JSON writes one canonical JSON object per layout (see ir.MarshalCanonical)
// and a final {"emitted":[...]} line.
//
// Both writers flush after every top-level entry, so output cut short by a
// crash ends on an entry boundary.
package render
