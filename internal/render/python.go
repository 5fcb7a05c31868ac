package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/roach88/structlayout/internal/ir"
)

const anonymousEnum = "anonymous enum"

// Option configures a writer.
type Option func(*options)

type options struct {
	trailer bool
}

// WithoutTrailer omits the list of emitted names at the end of the output.
func WithoutTrailer() Option {
	return func(o *options) {
		o.trailer = false
	}
}

func buildOptions(opts []Option) options {
	o := options{trailer: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Python writes layouts in the Python literal grammar.
// It implements layout.Sink.
type Python struct {
	w    *bufio.Writer
	opts options
}

// NewPython creates a Python writer on w.
func NewPython(w io.Writer, opts ...Option) *Python {
	return &Python{w: bufio.NewWriter(w), opts: buildOptions(opts)}
}

// WriteLayout writes one top-level assignment and flushes.
func (p *Python) WriteLayout(l *ir.StructLayout) error {
	if err := CheckPythonName(l.Name); err != nil {
		return err
	}
	p.w.WriteString(FormatPython(l))
	return p.w.Flush()
}

// Finish writes the trailer and flushes.
func (p *Python) Finish(emitted []string) error {
	if p.opts.trailer {
		p.w.WriteString("# dumped structs:\n")
		for _, name := range emitted {
			fmt.Fprintf(p.w, "# %s\n", name)
		}
	}
	return p.w.Flush()
}

// FormatPython returns the top-level assignment for l, including the
// trailing newline. l.Name is written as is; see CheckPythonName.
func FormatPython(l *ir.StructLayout) string {
	var b strings.Builder
	b.WriteString(l.Name)
	b.WriteString(" = ")
	writeAggregate(&b, l, 0)
	b.WriteByte('\n')
	return b.String()
}

// pyKeywords cannot be assigned to.
var pyKeywords = map[string]bool{
	"False": true, "None": true, "True": true, "and": true, "as": true,
	"assert": true, "async": true, "await": true, "break": true, "class": true,
	"continue": true, "def": true, "del": true, "elif": true, "else": true,
	"except": true, "finally": true, "for": true, "from": true, "global": true,
	"if": true, "import": true, "in": true, "is": true, "lambda": true,
	"nonlocal": true, "not": true, "or": true, "pass": true, "raise": true,
	"return": true, "try": true, "while": true, "with": true, "yield": true,
}

// CheckPythonName reports whether name can be the target of a top-level
// assignment. C++ names such as "Foo<int>" or "ns::Foo" cannot; those
// layouts can still be written as JSON.
func CheckPythonName(name string) error {
	if name == "" {
		return fmt.Errorf("render: top-level layout has no name")
	}
	for i, r := range name {
		if r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return fmt.Errorf("render: %q is not a Python identifier", name)
	}
	if pyKeywords[name] {
		return fmt.Errorf("render: %q is a Python keyword", name)
	}
	return nil
}

func writeAggregate(b *strings.Builder, l *ir.StructLayout, level int) {
	ctor := "Struct"
	if l.IsUnion() {
		ctor = "Union"
	}
	name := "None"
	if l.Name != "" {
		name = pyQuote(l.Name)
	}
	fmt.Fprintf(b, "%s(%s, %d, {\n", ctor, name, l.TotalBits)

	indent := strings.Repeat(" ", (level+1)*4)
	for _, f := range l.Fields {
		fmt.Fprintf(b, "%s%s: (%d, ", indent, pyQuote(f.Name), f.BitOffset)
		writeType(b, f.Type, level+1)
		b.WriteString("),\n")
	}

	b.WriteString(strings.Repeat(" ", level*4))
	b.WriteString("})")
}

func writeType(b *strings.Builder, d ir.TypeDescriptor, level int) {
	switch d.Kind {
	case ir.KindPointer:
		fmt.Fprintf(b, "Pointer(%d, ", d.Bits)
		writeInner(b, d, level)
		b.WriteByte(')')
	case ir.KindArray:
		fmt.Fprintf(b, "Array(%d, %d, ", d.Bits, d.Count)
		writeInner(b, d, level)
		b.WriteByte(')')
	case ir.KindScalar:
		fmt.Fprintf(b, "Scalar(%d, %s, %s)", d.Bits, pyQuote(d.Name), pyBool(d.Signed))
	case ir.KindEnum:
		name := d.Name
		if name == "" {
			name = anonymousEnum
		}
		fmt.Fprintf(b, "Scalar(%d, %s, %s)", d.Bits, pyQuote(name), pyBool(d.Signed))
	case ir.KindStructRef:
		fmt.Fprintf(b, "StructField(%d, %s)", d.Bits, pyQuote(d.Name))
	case ir.KindUnionRef:
		fmt.Fprintf(b, "UnionField(%d, %s)", d.Bits, pyQuote(d.Name))
	case ir.KindStructInline, ir.KindUnionInline:
		ctor := "StructField"
		if d.Kind == ir.KindUnionInline {
			ctor = "UnionField"
		}
		fmt.Fprintf(b, "%s(%d, ", ctor, d.Bits)
		if d.Layout != nil {
			writeAggregate(b, d.Layout, level)
		} else {
			b.WriteString("None")
		}
		b.WriteByte(')')
	case ir.KindBitfield:
		fmt.Fprintf(b, "Bitfield(%d)", d.Width)
	case ir.KindFunction:
		b.WriteString("Function()")
	case ir.KindVoid:
		b.WriteString("Void()")
	default:
		fmt.Fprintf(b, "None  # unknown kind %q", d.Kind)
	}
}

func writeInner(b *strings.Builder, d ir.TypeDescriptor, level int) {
	if d.Inner == nil {
		b.WriteString("Void()")
		return
	}
	writeType(b, *d.Inner, level)
}

func pyBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

// pyQuote returns s as a single-quoted Python string literal.
func pyQuote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\x%02x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
