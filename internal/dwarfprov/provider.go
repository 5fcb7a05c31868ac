package dwarfprov

import (
	"debug/dwarf"
	"debug/elf"
	"encoding/binary"
	"fmt"

	"github.com/roach88/structlayout/internal/provider"
)

// Provider replays the aggregates described by a DWARF section.
type Provider struct {
	unit    string
	data    *dwarf.Data
	order   binary.ByteOrder
	ptrBits uint64
	refs    *references
}

var _ provider.Provider = (*Provider)(nil)

// Open reads the DWARF debug info of the ELF object at path.
func Open(path string) (*Provider, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	d, err := f.DWARF()
	if err != nil {
		return nil, fmt.Errorf("%s: no usable DWARF debug info: %w", path, err)
	}
	return New(d, f.ByteOrder, path)
}

// New creates a Provider over already loaded debug info. unit names the
// compilation unit when the info does not.
func New(d *dwarf.Data, order binary.ByteOrder, unit string) (*Provider, error) {
	p := &Provider{unit: unit, data: d, order: order, ptrBits: 64}

	r := d.Reader()
	e, err := r.Next()
	if err != nil {
		return nil, fmt.Errorf("read DWARF: %w", err)
	}
	if e != nil && e.Tag == dwarf.TagCompileUnit {
		if name, ok := e.Val(dwarf.AttrName).(string); ok && name != "" {
			p.unit = name
		}
		if size := r.AddressSize(); size > 0 {
			p.ptrBits = uint64(size) * 8
		}
	}

	if p.refs, err = scanReferences(d); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Provider) Unit() string { return p.unit }

// Replay calls TypeFinished for every named struct, union and class
// definition in DIE order, then CompilationFinished.
func (p *Provider) Replay(l provider.Listener) error {
	ptrBits := p.ptrBits
	r := p.data.Reader()
	for {
		e, err := r.Next()
		if err != nil {
			return fmt.Errorf("read DWARF: %w", err)
		}
		if e == nil {
			break
		}

		switch e.Tag {
		case dwarf.TagCompileUnit:
			if size := r.AddressSize(); size > 0 {
				ptrBits = uint64(size) * 8
			}
		case dwarf.TagStructType, dwarf.TagUnionType, dwarf.TagClassType:
			if e.Val(dwarf.AttrDeclaration) != nil {
				continue
			}
			if name, _ := e.Val(dwarf.AttrName).(string); name == "" {
				continue
			}
			t, err := p.data.Type(e.Offset)
			if err != nil {
				return fmt.Errorf("read type at %#x: %w", e.Offset, err)
			}
			if err := l.TypeFinished(p.wrap(t, ptrBits)); err != nil {
				return err
			}
		}
	}
	return l.CompilationFinished()
}

func (p *Provider) wrap(t dwarf.Type, ptrBits uint64) *typeRef {
	return &typeRef{t: t, ptrBits: ptrBits, order: p.order, refs: p.refs}
}
