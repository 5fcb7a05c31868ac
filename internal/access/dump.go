package access

import (
	"cmp"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/roach88/structlayout/internal/ir"
)

// Dump prints the fields of the aggregate v in offset order, one per line.
// Pointers to other structs are followed levels deep; a pointer to the
// aggregate's own type is not, since it usually links a list. A field that
// fails to read prints its error and the dump goes on.
func Dump(w io.Writer, v Value, levels int) error {
	return dump(w, v, levels, 0)
}

func dump(w io.Writer, v Value, levels, indent int) error {
	fields, err := v.Fields()
	if err != nil {
		return err
	}
	fields = slices.Clone(fields)
	slices.SortStableFunc(fields, func(a, b ir.FieldDescriptor) int {
		return cmp.Compare(a.BitOffset, b.BitOffset)
	})

	pad := strings.Repeat(" ", indent)
	for _, f := range fields {
		fv, err := v.Field(f.Name)
		if err == nil {
			err = dumpField(w, pad, f.Name, fv, v.Type, levels, indent)
		} else {
			_, err = fmt.Fprintf(w, "%s%s : %v\n", pad, f.Name, err)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func dumpField(w io.Writer, pad, name string, fv Value, owner ir.TypeDescriptor, levels, indent int) error {
	t := fv.Type
	switch t.Kind {
	case ir.KindScalar, ir.KindEnum:
		n, err := fv.Int()
		if err != nil {
			u, uerr := fv.Uint()
			if uerr != nil {
				_, err = fmt.Fprintf(w, "%s%s : %v\n", pad, name, err)
				return err
			}
			_, err = fmt.Fprintf(w, "%s%s %s = %d %#x\n", pad, typeLabel(t), name, u, u)
			return err
		}
		_, err = fmt.Fprintf(w, "%s%s %s = %d %#x\n", pad, typeLabel(t), name, n, uint64(n)&mask(t.Bits))
		return err
	case ir.KindBitfield:
		u, err := fv.Uint()
		if err != nil {
			_, err = fmt.Fprintf(w, "%s%s : %v\n", pad, name, err)
			return err
		}
		_, err = fmt.Fprintf(w, "%s%s:%d = %d\n", pad, name, t.Width, u)
		return err
	case ir.KindPointer:
		addr, err := fv.Uint()
		if err != nil {
			_, err = fmt.Fprintf(w, "%s%s : %v\n", pad, name, err)
			return err
		}
		if _, err := fmt.Fprintf(w, "%s%s = %#x\n", pad, name, addr); err != nil {
			return err
		}
		inner := *t.Inner
		if levels <= 0 || addr == 0 || !isAggregate(inner) || sameType(inner, owner) {
			return nil
		}
		target, err := fv.Deref()
		if err != nil {
			return err
		}
		return dump(w, target, levels-1, indent+4)
	case ir.KindStructRef, ir.KindUnionRef, ir.KindStructInline, ir.KindUnionInline:
		if _, err := fmt.Fprintf(w, "%s%s = %s\n", pad, name, fv); err != nil {
			return err
		}
		return dump(w, fv, levels, indent+4)
	case ir.KindArray:
		if s, err := fv.CString(); err == nil {
			_, err = fmt.Fprintf(w, "%s%s = %q\n", pad, name, s)
			return err
		}
		_, err := fmt.Fprintf(w, "%s%s = %s[%d]\n", pad, name, fv, t.Count)
		return err
	default:
		_, err := fmt.Fprintf(w, "%s%s = %s\n", pad, name, fv)
		return err
	}
}

func typeLabel(t ir.TypeDescriptor) string {
	if t.Kind == ir.KindEnum {
		if t.Name == "" {
			return "enum"
		}
		return "enum " + t.Name
	}
	return t.Name
}

func isAggregate(t ir.TypeDescriptor) bool {
	switch t.Kind {
	case ir.KindStructRef, ir.KindUnionRef, ir.KindStructInline, ir.KindUnionInline:
		return true
	}
	return false
}

func sameType(a, b ir.TypeDescriptor) bool {
	name := func(t ir.TypeDescriptor) string {
		if t.Layout != nil {
			return t.Layout.Name
		}
		return t.Name
	}
	return name(a) != "" && name(a) == name(b)
}
