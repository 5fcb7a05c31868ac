// Package provider defines the Type Introspection Provider contract.
//
// A provider owns a compiler's view of one compilation unit: the graph of
// every type seen while compiling it. The extraction core never walks that
// graph on its own initiative. Instead the provider pushes notifications:
//
//  1. TypeFinished once per fully-parsed struct/union definition, in the
//     compiler's own discovery order. Anonymous and forward-declared types
//     never trigger it.
//  2. CompilationFinished exactly once, after the last TypeFinished.
//
// TypeRef and Field values are read-only handles. Their backing data lives
// for the whole run and is never copied or released by the core.
package provider
