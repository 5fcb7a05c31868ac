// Package layout turns compiler type handles into struct layout descriptors.
//
// A Session is the extraction state for one compilation unit. It is driven
// by a provider.Provider through the provider.Listener callbacks:
//
//   - TypeFinished: every named, complete struct (optionally only the one
//     selected with WithTarget) is encoded and written to the Sink.
//   - CompilationFinished: named aggregates that were only referenced by
//     field types are drained from the pending queue in FIFO order. Entries
//     still incomplete at this point were only reachable through pointers to
//     forward declarations and are dropped. The Sink is then finished with
//     the list of emitted names.
//
// Every named aggregate is written at most once per Session. A name is
// marked visited before its fields are encoded, so a field referring back
// to the aggregate under construction becomes a name reference and
// recursion terminates on self-referential and mutually-referential types.
//
// Named aggregate field types are deferred, never encoded eagerly.
// Anonymous aggregate field types are encoded in place, since nothing can
// refer to them later. Unnamed aggregate members are flattened into the
// enclosing field list with their offsets rebased.
//
// A Session is single-threaded. Callers extracting several units create
// one Session per unit.
package layout
