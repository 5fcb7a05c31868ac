// Package access reads and writes C objects in a memory image through their
// emitted layouts.
//
// An Accessor pairs a Memory (any io.ReaderAt and io.WriterAt addressed by
// target address) with the target's byte order and a Resolver for named
// struct and union references. Values are typed locations: a field, an array
// element or the target of a pointer. Reading a pointer yields its address;
// Deref and Index follow it. Field on a pointer follows it first, so
//
//	v, _ := acc.Struct("x", addr)
//	n, _ := v.Field("yptr")
//	n, _ = n.Field("n")
//	i, _ := n.Int()
//
// reads x->yptr->n.
//
// Bitfield descriptors carry only a width, so bitfields read zero-extended.
// A bitfield is accessed through the smallest aligned 8, 16, 32 or 64-bit
// word that contains it. One that crosses a 64-bit word is rejected.
package access
