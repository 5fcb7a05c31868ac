package access

import (
	"fmt"
	"io"

	"fortio.org/safecast"

	"github.com/roach88/structlayout/internal/ir"
)

// Memory is a target address space. Offsets are target addresses.
type Memory interface {
	io.ReaderAt
	io.WriterAt
}

// Image is a contiguous memory region mapped at Base.
type Image struct {
	Base uint64
	Data []byte
}

var _ Memory = (*Image)(nil)

// NewImage maps data at base.
func NewImage(base uint64, data []byte) *Image {
	return &Image{Base: base, Data: data}
}

func (m *Image) span(off int64, n int) (int, error) {
	addr, err := safecast.Conv[uint64](off)
	if err != nil || addr < m.Base {
		return 0, fmt.Errorf("%#x: %w", off, ErrUnmapped)
	}
	start := addr - m.Base
	size, err := safecast.Conv[uint64](n)
	if err != nil || start > uint64(len(m.Data)) || uint64(len(m.Data))-start < size {
		return 0, fmt.Errorf("%#x+%d: %w", addr, n, ErrUnmapped)
	}
	return int(start), nil
}

func (m *Image) ReadAt(p []byte, off int64) (int, error) {
	start, err := m.span(off, len(p))
	if err != nil {
		return 0, err
	}
	return copy(p, m.Data[start:]), nil
}

func (m *Image) WriteAt(p []byte, off int64) (int, error) {
	start, err := m.span(off, len(p))
	if err != nil {
		return 0, err
	}
	return copy(m.Data[start:], p), nil
}

// Resolver finds named layouts. render.Collector and catalog resolvers
// implement it.
type Resolver interface {
	Layout(name string) (*ir.StructLayout, bool)
}

// Layouts resolves names against a fixed set of layouts.
type Layouts []*ir.StructLayout

func (ls Layouts) Layout(name string) (*ir.StructLayout, bool) {
	for _, l := range ls {
		if l.Name == name {
			return l, true
		}
	}
	return nil, false
}
