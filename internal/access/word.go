package access

import (
	"encoding/binary"
	"fmt"

	"fortio.org/safecast"
)

func (a *Accessor) read(base, addr uint64, buf []byte) error {
	if base == 0 {
		return fmt.Errorf("read at %#x: %w", addr, ErrNullDeref)
	}
	off, err := safecast.Conv[int64](addr)
	if err != nil {
		return fmt.Errorf("read at %#x: %w", addr, ErrUnmapped)
	}
	if _, err := a.mem.ReadAt(buf, off); err != nil {
		return fmt.Errorf("read %d bytes at %#x: %w", len(buf), addr, err)
	}
	return nil
}

func (a *Accessor) write(base, addr uint64, buf []byte) error {
	if base == 0 {
		return fmt.Errorf("write at %#x: %w", addr, ErrNullDeref)
	}
	off, err := safecast.Conv[int64](addr)
	if err != nil {
		return fmt.Errorf("write at %#x: %w", addr, ErrUnmapped)
	}
	if _, err := a.mem.WriteAt(buf, off); err != nil {
		return fmt.Errorf("write %d bytes at %#x: %w", len(buf), addr, err)
	}
	return nil
}

func checkWidth(bits uint64) error {
	switch bits {
	case 8, 16, 32, 64:
		return nil
	default:
		return fmt.Errorf("%d-bit word: %w", bits, ErrUnsupported)
	}
}

func decode(order binary.ByteOrder, buf []byte) uint64 {
	switch len(buf) {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(order.Uint16(buf))
	case 4:
		return uint64(order.Uint32(buf))
	default:
		return order.Uint64(buf)
	}
}

func encode(order binary.ByteOrder, buf []byte, raw uint64) {
	switch len(buf) {
	case 1:
		buf[0] = byte(raw)
	case 2:
		order.PutUint16(buf, uint16(raw))
	case 4:
		order.PutUint32(buf, uint32(raw))
	default:
		order.PutUint64(buf, raw)
	}
}

func (a *Accessor) loadWord(base, addr, bits uint64) (uint64, error) {
	if err := checkWidth(bits); err != nil {
		return 0, err
	}
	buf := make([]byte, bits/8)
	if err := a.read(base, addr, buf); err != nil {
		return 0, err
	}
	return decode(a.order, buf), nil
}

func (a *Accessor) storeWord(base, addr, bits, raw uint64) error {
	if err := checkWidth(bits); err != nil {
		return err
	}
	buf := make([]byte, bits/8)
	encode(a.order, buf, raw)
	return a.write(base, addr, buf)
}

// bitWord picks the smallest word, aligned relative to base, that holds
// width bits at bit offset off. It returns the word's size, its address and
// the shift of the field inside the loaded word.
func (a *Accessor) bitWord(base, off, width uint64) (uint64, uint64, uint64, error) {
	for _, size := range []uint64{8, 16, 32, 64} {
		pos := off % size
		if pos+width > size {
			continue
		}
		addr := base + (off-pos)/8
		shift := pos
		if a.order == binary.BigEndian {
			shift = size - pos - width
		}
		return size, addr, shift, nil
	}
	return 0, 0, 0, fmt.Errorf("%d-bit bitfield at bit %d crosses a 64-bit word: %w", width, off, ErrUnsupported)
}

func (a *Accessor) loadBits(base, off, width uint64) (uint64, error) {
	size, addr, shift, err := a.bitWord(base, off, width)
	if err != nil {
		return 0, err
	}
	word, err := a.loadWord(base, addr, size)
	if err != nil {
		return 0, err
	}
	return word >> shift & mask(width), nil
}

func (a *Accessor) storeBits(base, off, width, raw uint64) error {
	size, addr, shift, err := a.bitWord(base, off, width)
	if err != nil {
		return err
	}
	word, err := a.loadWord(base, addr, size)
	if err != nil {
		return err
	}
	m := mask(width) << shift
	return a.storeWord(base, addr, size, word&^m|raw<<shift&m)
}
