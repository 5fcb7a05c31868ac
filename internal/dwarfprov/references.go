package dwarfprov

import (
	"debug/dwarf"
	"fmt"
)

// references finds the referenced type of C++ reference DIEs. debug/dwarf
// decodes those as UnsupportedType and drops both the DIE offset and its
// DW_AT_type, so the offsets are collected up front. The type cache of
// dwarf.Data hands out one UnsupportedType per DIE, which makes the pointer
// a stable key.
type references struct {
	data *dwarf.Data
	dies map[*dwarf.UnsupportedType]dwarf.Offset
}

func scanReferences(d *dwarf.Data) (*references, error) {
	refs := &references{data: d, dies: make(map[*dwarf.UnsupportedType]dwarf.Offset)}
	r := d.Reader()
	for {
		e, err := r.Next()
		if err != nil {
			return nil, fmt.Errorf("read DWARF: %w", err)
		}
		if e == nil {
			return refs, nil
		}
		if e.Tag != dwarf.TagReferenceType && e.Tag != dwarf.TagRvalueReferenceType {
			continue
		}
		t, err := d.Type(e.Offset)
		if err != nil {
			return nil, fmt.Errorf("read type at %#x: %w", e.Offset, err)
		}
		if u, ok := t.(*dwarf.UnsupportedType); ok {
			refs.dies[u] = e.Offset
		}
	}
}

// target returns the type u refers to. It is nil, read as void, when u was
// not seen by the scan or names no type.
func (refs *references) target(u *dwarf.UnsupportedType) dwarf.Type {
	if refs == nil {
		return nil
	}
	off, ok := refs.dies[u]
	if !ok {
		return nil
	}
	r := refs.data.Reader()
	r.Seek(off)
	e, err := r.Next()
	if err != nil || e == nil {
		return nil
	}
	elem, ok := e.Val(dwarf.AttrType).(dwarf.Offset)
	if !ok {
		return nil
	}
	t, err := refs.data.Type(elem)
	if err != nil {
		return nil
	}
	return t
}
