package ir

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces RFC 8785 canonical JSON.
// This is the serialization used for content hashes and for the JSON
// rendering of layouts, so identical layouts always produce identical bytes.
//
// Key differences from standard json.Marshal:
// 1. Object keys sorted by UTF-16 code units (not UTF-8 bytes)
// 2. No HTML escaping (< > & are NOT escaped), U+2028/U+2029 kept literal
// 3. Strings are NFC normalized
// 4. No floats, no null
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		writeCanonicalString(buf, val)
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case int:
		buf.WriteString(strconv.Itoa(val))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(val, 10))
	case []string:
		buf.WriteByte('[')
		for i, s := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeCanonicalString(buf, s)
		}
		buf.WriteByte(']')
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		return writeCanonicalObject(buf, val)
	case *StructLayout:
		if val == nil {
			return fmt.Errorf("null is forbidden in canonical JSON")
		}
		return writeCanonicalObject(buf, val.Canonical())
	case StructLayout:
		return writeCanonicalObject(buf, val.Canonical())
	case TypeDescriptor:
		return writeCanonicalObject(buf, val.Canonical())
	case float32, float64:
		return fmt.Errorf("floats are forbidden in canonical JSON: %v", val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
	return nil
}

func writeCanonicalObject(buf *bytes.Buffer, obj map[string]any) error {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeCanonicalString(buf, k)
		buf.WriteByte(':')
		if err := writeCanonical(buf, obj[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// writeCanonicalString escapes only quote, backslash and C0 controls.
func writeCanonicalString(buf *bytes.Buffer, s string) {
	const hex = "0123456789abcdef"
	buf.WriteByte('"')
	for _, r := range norm.NFC.String(s) {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hex[r>>4])
				buf.WriteByte(hex[r&0xf])
				continue
			}
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering.
// Go's default string comparison uses UTF-8 which produces a different order
// for characters outside the BMP.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}

// Canonical returns the layout as a plain map suitable for MarshalCanonical.
func (l *StructLayout) Canonical() map[string]any {
	fields := make([]any, len(l.Fields))
	for i, f := range l.Fields {
		fm := map[string]any{
			"name":       f.Name,
			"bit_offset": f.BitOffset,
			"type":       f.Type.Canonical(),
		}
		if f.IsBitfield {
			fm["is_bitfield"] = true
			fm["bit_width"] = f.BitWidth
		}
		fields[i] = fm
	}
	m := map[string]any{
		"kind":       string(l.Kind),
		"total_bits": l.TotalBits,
		"fields":     fields,
	}
	if l.Name != "" {
		m["name"] = l.Name
	}
	return m
}

// Canonical returns the descriptor as a plain map suitable for MarshalCanonical.
func (d TypeDescriptor) Canonical() map[string]any {
	m := map[string]any{"kind": string(d.Kind)}
	switch d.Kind {
	case KindScalar, KindEnum:
		m["bits"] = d.Bits
		m["name"] = d.Name
		m["signed"] = d.Signed
	case KindPointer:
		m["bits"] = d.Bits
		m["inner"] = d.Inner.Canonical()
	case KindArray:
		m["bits"] = d.Bits
		m["count"] = d.Count
		m["inner"] = d.Inner.Canonical()
	case KindStructRef, KindUnionRef:
		m["bits"] = d.Bits
		m["name"] = d.Name
	case KindStructInline, KindUnionInline:
		m["bits"] = d.Bits
		m["layout"] = d.Layout.Canonical()
	case KindBitfield:
		m["width"] = d.Width
	}
	return m
}
