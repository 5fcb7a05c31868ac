package access

import (
	"encoding/binary"
	"fmt"

	"fortio.org/safecast"

	"github.com/roach88/structlayout/internal/ir"
)

// Accessor reads and writes values in one memory image.
type Accessor struct {
	mem   Memory
	order binary.ByteOrder
	types Resolver
}

// New creates an Accessor. types may be nil when no layout references
// another by name.
func New(mem Memory, order binary.ByteOrder, types Resolver) *Accessor {
	if types == nil {
		types = Layouts(nil)
	}
	return &Accessor{mem: mem, order: order, types: types}
}

// At views l at addr.
func (a *Accessor) At(l *ir.StructLayout, addr uint64) Value {
	return Value{acc: a, Type: ir.Inline(l), Base: addr}
}

// Struct views the named struct or union at addr.
func (a *Accessor) Struct(name string, addr uint64) (Value, error) {
	l, ok := a.types.Layout(name)
	if !ok {
		return Value{}, fmt.Errorf("%s: %w", name, ErrUnknownType)
	}
	return a.At(l, addr), nil
}

// Value is a typed location: Off bits past the object at Base.
type Value struct {
	acc  *Accessor
	Type ir.TypeDescriptor
	Base uint64
	Off  uint64
}

// Addr returns the address of the value's first byte.
func (v Value) Addr() uint64 { return v.Base + v.Off/8 }

func (v Value) String() string {
	return fmt.Sprintf("%s @ %#x", v.Type.Kind, v.Addr())
}

// Len returns the element count of an array, 0 when unsized.
func (v Value) Len() int {
	if v.Type.Kind != ir.KindArray {
		return 0
	}
	n, err := safecast.Conv[int](v.Type.Count)
	if err != nil {
		return 0
	}
	return n
}

// layout returns the aggregate layout behind v, resolving names.
func (v Value) layout() (*ir.StructLayout, error) {
	switch v.Type.Kind {
	case ir.KindStructInline, ir.KindUnionInline:
		return v.Type.Layout, nil
	case ir.KindStructRef, ir.KindUnionRef:
		l, ok := v.acc.types.Layout(v.Type.Name)
		if !ok {
			return nil, fmt.Errorf("%s: %w", v.Type.Name, ErrUnknownType)
		}
		return l, nil
	default:
		return nil, fmt.Errorf("field access on %s: %w", v.Type.Kind, ErrKind)
	}
}

// Field returns the named field of a struct or union. On a pointer it
// follows the pointer first.
func (v Value) Field(name string) (Value, error) {
	if v.Type.Kind == ir.KindPointer {
		target, err := v.Deref()
		if err != nil {
			return Value{}, err
		}
		return target.Field(name)
	}
	l, err := v.layout()
	if err != nil {
		return Value{}, err
	}
	f, ok := l.Field(name)
	if !ok {
		return Value{}, fmt.Errorf("%s in %s: %w", name, layoutName(l), ErrNoField)
	}
	return Value{acc: v.acc, Type: f.Type, Base: v.Base, Off: v.Off + f.BitOffset}, nil
}

// Fields returns every field of a struct or union in offset order.
func (v Value) Fields() ([]ir.FieldDescriptor, error) {
	l, err := v.layout()
	if err != nil {
		return nil, err
	}
	return l.Fields, nil
}

func layoutName(l *ir.StructLayout) string {
	if l.Name == "" {
		return "anonymous " + string(l.Kind)
	}
	return l.Name
}

// Deref follows a pointer.
func (v Value) Deref() (Value, error) {
	return v.Index(0)
}

// Index returns element i of an array, or of the memory a pointer points at.
// Sized arrays are bounds checked.
func (v Value) Index(i int) (Value, error) {
	switch v.Type.Kind {
	case ir.KindArray:
		if i < 0 || (v.Type.Count > 0 && uint64(i) >= v.Type.Count) {
			return Value{}, fmt.Errorf("index %d of %d: %w", i, v.Type.Count, ErrIndex)
		}
		elem := *v.Type.Inner
		return Value{acc: v.acc, Type: elem, Base: v.Base, Off: v.Off + uint64(i)*elem.SizeBits()}, nil
	case ir.KindPointer:
		elem := *v.Type.Inner
		if elem.Kind == ir.KindVoid || elem.Kind == ir.KindFunction {
			return Value{}, fmt.Errorf("pointer to %s: %w", elem.Kind, ErrInvalidDeref)
		}
		if i < 0 {
			return Value{}, fmt.Errorf("index %d: %w", i, ErrIndex)
		}
		addr, err := v.Uint()
		if err != nil {
			return Value{}, err
		}
		if addr == 0 {
			return Value{}, fmt.Errorf("pointer at %#x: %w", v.Addr(), ErrNullDeref)
		}
		return Value{acc: v.acc, Type: elem, Base: addr, Off: uint64(i) * elem.SizeBits()}, nil
	default:
		return Value{}, fmt.Errorf("index on %s: %w", v.Type.Kind, ErrKind)
	}
}

// Uint reads a scalar, enum, bitfield or pointer as an unsigned number. A
// negative signed value is an error.
func (v Value) Uint() (uint64, error) {
	raw, signed, bits, err := v.load()
	if err != nil {
		return 0, err
	}
	if !signed {
		return raw, nil
	}
	n, err := safecast.Conv[uint64](signExtend(raw, bits))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", v, ErrOverflow)
	}
	return n, nil
}

// Int reads a scalar, enum, bitfield or pointer as a signed number. An
// unsigned value above the int64 range is an error.
func (v Value) Int() (int64, error) {
	raw, signed, bits, err := v.load()
	if err != nil {
		return 0, err
	}
	if signed {
		return signExtend(raw, bits), nil
	}
	n, err := safecast.Conv[int64](raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", v, ErrOverflow)
	}
	return n, nil
}

// CString reads a char array up to its first NUL.
func (v Value) CString() (string, error) {
	if v.Type.Kind != ir.KindArray || v.Type.Inner.SizeBits() != 8 {
		return "", fmt.Errorf("string read on %s: %w", v.Type.Kind, ErrKind)
	}
	buf := make([]byte, v.Type.Bits/8)
	if err := v.acc.read(v.Base, v.Addr(), buf); err != nil {
		return "", err
	}
	for i, c := range buf {
		if c == 0 {
			return string(buf[:i]), nil
		}
	}
	return string(buf), nil
}

// SetUint stores n into a scalar, enum, bitfield or pointer.
func (v Value) SetUint(n uint64) error {
	signed, bits, err := v.storable()
	if err != nil {
		return err
	}
	if signed {
		s, err := safecast.Conv[int64](n)
		if err != nil {
			return fmt.Errorf("%d into %s: %w", n, v, ErrOverflow)
		}
		return v.SetInt(s)
	}
	if err := fitsUnsigned(n, bits); err != nil {
		return fmt.Errorf("%d into %d-bit %s: %w", n, bits, v, err)
	}
	return v.store(n)
}

// SetInt stores n into a scalar, enum, bitfield or pointer.
func (v Value) SetInt(n int64) error {
	signed, bits, err := v.storable()
	if err != nil {
		return err
	}
	if !signed {
		u, err := safecast.Conv[uint64](n)
		if err != nil {
			return fmt.Errorf("%d into unsigned %s: %w", n, v, ErrOverflow)
		}
		return v.SetUint(u)
	}
	if err := fitsSigned(n, bits); err != nil {
		return fmt.Errorf("%d into %d-bit %s: %w", n, bits, v, err)
	}
	return v.store(uint64(n) & mask(bits))
}

// SetBytes copies b into the start of an array.
func (v Value) SetBytes(b []byte) error {
	if v.Type.Kind != ir.KindArray {
		return fmt.Errorf("buffer write to %s: %w", v.Type.Kind, ErrKind)
	}
	if uint64(len(b)) > v.Type.Bits/8 {
		return fmt.Errorf("%d bytes into %d-byte array: %w", len(b), v.Type.Bits/8, ErrOverflow)
	}
	return v.acc.write(v.Base, v.Addr(), b)
}

// storable reports the signedness and width a store into v uses.
func (v Value) storable() (bool, uint64, error) {
	switch v.Type.Kind {
	case ir.KindScalar, ir.KindEnum:
		return v.Type.Signed, v.Type.Bits, nil
	case ir.KindPointer:
		return false, v.Type.Bits, nil
	case ir.KindBitfield:
		return false, v.Type.Width, nil
	case ir.KindStructRef, ir.KindStructInline, ir.KindUnionRef, ir.KindUnionInline:
		return false, 0, fmt.Errorf("cannot assign a %s, assign its fields: %w", v.Type.Kind, ErrKind)
	case ir.KindArray:
		return false, 0, fmt.Errorf("cannot assign an array, assign its elements or use SetBytes: %w", ErrKind)
	default:
		return false, 0, fmt.Errorf("cannot assign %s: %w", v.Type.Kind, ErrKind)
	}
}

// load returns the raw bits of v with its signedness and width.
func (v Value) load() (uint64, bool, uint64, error) {
	switch v.Type.Kind {
	case ir.KindScalar, ir.KindEnum:
		raw, err := v.acc.loadWord(v.Base, v.Addr(), v.Type.Bits)
		return raw, v.Type.Signed, v.Type.Bits, err
	case ir.KindPointer:
		raw, err := v.acc.loadWord(v.Base, v.Addr(), v.Type.Bits)
		return raw, false, v.Type.Bits, err
	case ir.KindBitfield:
		raw, err := v.acc.loadBits(v.Base, v.Off, v.Type.Width)
		return raw, false, v.Type.Width, err
	default:
		return 0, false, 0, fmt.Errorf("cannot read %s as a number: %w", v.Type.Kind, ErrKind)
	}
}

func (v Value) store(raw uint64) error {
	if v.Type.Kind == ir.KindBitfield {
		return v.acc.storeBits(v.Base, v.Off, v.Type.Width, raw)
	}
	return v.acc.storeWord(v.Base, v.Addr(), v.Type.Bits, raw)
}

func mask(bits uint64) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return 1<<bits - 1
}

func signExtend(raw, bits uint64) int64 {
	if bits == 0 || bits >= 64 {
		return int64(raw)
	}
	shift := 64 - bits
	return int64(raw<<shift) >> shift
}

func fitsUnsigned(n, bits uint64) error {
	var err error
	switch bits {
	case 8:
		_, err = safecast.Conv[uint8](n)
	case 16:
		_, err = safecast.Conv[uint16](n)
	case 32:
		_, err = safecast.Conv[uint32](n)
	case 64:
	default:
		if n > mask(bits) {
			return ErrOverflow
		}
	}
	if err != nil {
		return ErrOverflow
	}
	return nil
}

func fitsSigned(n int64, bits uint64) error {
	var err error
	switch bits {
	case 8:
		_, err = safecast.Conv[int8](n)
	case 16:
		_, err = safecast.Conv[int16](n)
	case 32:
		_, err = safecast.Conv[int32](n)
	case 64:
	default:
		lim := int64(1) << (bits - 1)
		if n < -lim || n >= lim {
			return ErrOverflow
		}
	}
	if err != nil {
		return ErrOverflow
	}
	return nil
}
