// Package dwarfprov reads struct layouts from the DWARF debug info of an
// ELF object, such as the output of `cc -g -c unit.c`.
//
// The debug info is the host compiler's own record of the types it laid
// out, so offsets, sizes and bitfield placement are exactly what the
// compiler produced. Replay delivers every named, defined struct and union
// in DIE order, then finishes the compilation.
//
// Typedefs and const/volatile/restrict qualifiers are transparent: layout
// queries go to the underlying type, while Identifier keeps the spelling.
package dwarfprov
