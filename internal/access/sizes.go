package access

import (
	"fmt"

	"github.com/roach88/structlayout/internal/ir"
)

func fieldOf(l *ir.StructLayout, name string) (ir.FieldDescriptor, error) {
	f, ok := l.Field(name)
	if !ok {
		return ir.FieldDescriptor{}, fmt.Errorf("%s in %s: %w", name, layoutName(l), ErrNoField)
	}
	if f.IsBitfield || f.Type.Kind == ir.KindBitfield {
		return ir.FieldDescriptor{}, fmt.Errorf("bitfield %s in %s has no byte size or offset: %w", name, layoutName(l), ErrKind)
	}
	return f, nil
}

// Sizeof returns the size of l in bytes.
func Sizeof(l *ir.StructLayout) uint64 {
	return l.TotalBits / 8
}

// SizeofField returns the size in bytes of a field of l.
func SizeofField(l *ir.StructLayout, name string) (uint64, error) {
	f, err := fieldOf(l, name)
	if err != nil {
		return 0, err
	}
	return f.Type.SizeBits() / 8, nil
}

// Offsetof returns the byte offset of a field of l.
func Offsetof(l *ir.StructLayout, name string) (uint64, error) {
	f, err := fieldOf(l, name)
	if err != nil {
		return 0, err
	}
	return f.BitOffset / 8, nil
}

// ContainerOf returns the address of the l that has field name at addr.
func ContainerOf(addr uint64, l *ir.StructLayout, name string) (uint64, error) {
	off, err := Offsetof(l, name)
	if err != nil {
		return 0, err
	}
	if off > addr {
		return 0, fmt.Errorf("%s at %#x: %w", name, addr, ErrOverflow)
	}
	return addr - off, nil
}
