package dwarfprov

import (
	"debug/dwarf"
	"encoding/binary"

	"fortio.org/safecast"

	"github.com/roach88/structlayout/internal/provider"
)

// fieldRef adapts a dwarf.StructField to provider.Field.
type fieldRef struct {
	f       *dwarf.StructField
	typ     *typeRef
	byteOff uint64
	extra   uint64
	placed  bool
}

var _ provider.Field = (*fieldRef)(nil)

func (r *typeRef) field(f *dwarf.StructField) *fieldRef {
	fr := &fieldRef{f: f, typ: r.child(f.Type)}
	fr.byteOff, fr.extra, fr.placed = placement(f, fr.typ, r.order)
	return fr
}

// placement splits a member position into a byte offset and a bit delta.
//
// Bitfields come in two forms. DWARF 4+ producers write
// DW_AT_data_bit_offset, counted from the start of the enclosing struct.
// Older ones write DW_AT_byte_size and DW_AT_bit_offset, the latter counted
// from the most significant bit of the storage unit, which on little-endian
// targets must be flipped.
func placement(f *dwarf.StructField, typ *typeRef, order binary.ByteOrder) (uint64, uint64, bool) {
	byteOff, err := safecast.Conv[uint64](f.ByteOffset)
	if err != nil {
		return 0, 0, false
	}
	if f.BitSize == 0 {
		return byteOff, 0, true
	}

	if f.BitOffset != 0 || f.ByteSize != 0 {
		storage := f.ByteSize * 8
		if storage == 0 {
			bits, _ := typ.SizeInBits()
			s, err := safecast.Conv[int64](bits)
			if err != nil {
				return 0, 0, false
			}
			storage = s
		}
		delta := f.BitOffset
		if order != binary.BigEndian {
			delta = storage - f.BitOffset - f.BitSize
		}
		extra, err := safecast.Conv[uint64](delta)
		if err != nil {
			return 0, 0, false
		}
		return byteOff, extra, true
	}

	pos, err := safecast.Conv[uint64](f.DataBitOffset)
	if err != nil {
		return 0, 0, false
	}
	pos += byteOff * 8
	return pos / 8, pos % 8, true
}

func (f *fieldRef) Name() (string, bool) { return f.f.Name, f.f.Name != "" }

func (f *fieldRef) ByteOffset() (uint64, bool) { return f.byteOff, f.placed }

func (f *fieldRef) ExtraBitOffset() (uint64, bool) { return f.extra, f.placed }

func (f *fieldRef) IsBitfield() bool { return f.f.BitSize > 0 }

func (f *fieldRef) BitWidth() uint64 {
	if f.f.BitSize > 0 {
		w, err := safecast.Conv[uint64](f.f.BitSize)
		if err == nil {
			return w
		}
		return 0
	}
	bits, _ := f.typ.SizeInBits()
	return bits
}

func (f *fieldRef) Type() provider.TypeRef { return f.typ }
