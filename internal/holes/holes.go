// Package holes finds padding inside emitted struct layouts.
package holes

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/roach88/structlayout/internal/ir"
)

// Hole is a run of bits inside a struct that no field occupies.
type Hole struct {
	Struct string `json:"struct"`

	// After is the field preceding the hole, empty if the hole starts the
	// struct.
	After       string `json:"after,omitempty"`
	AfterOffset uint64 `json:"after_offset,omitempty"`
	AfterBits   uint64 `json:"after_bits,omitempty"`

	// Before is the field following the hole, empty for tail padding.
	Before       string `json:"before,omitempty"`
	BeforeOffset uint64 `json:"before_offset,omitempty"`

	Offset uint64 `json:"offset"`
	Bits   uint64 `json:"bits"`
}

// IsTail reports whether the hole is padding at the end of the struct.
func (h Hole) IsTail() bool { return h.Before == "" }

// Analyze returns the holes of l in field order. Unions have none. Fields
// that overlap an earlier one, as flattened anonymous union members do,
// never open a hole.
func Analyze(l *ir.StructLayout) []Hole {
	if l.IsUnion() {
		return nil
	}

	var (
		holes []Hole
		end   uint64
		prev  ir.FieldDescriptor
		seen  bool
	)
	for _, f := range l.Fields {
		if f.BitOffset > end {
			h := Hole{
				Struct:       l.Name,
				Before:       f.Name,
				BeforeOffset: f.BitOffset,
				Offset:       end,
				Bits:         f.BitOffset - end,
			}
			if seen {
				h.After = prev.Name
				h.AfterOffset = prev.BitOffset
				h.AfterBits = prev.Type.SizeBits()
			}
			holes = append(holes, h)
		}
		end = max(end, f.BitOffset+f.Type.SizeBits())
		prev = f
		seen = true
	}

	if l.TotalBits > end {
		h := Hole{Struct: l.Name, Offset: end, Bits: l.TotalBits - end}
		if seen {
			h.After = prev.Name
			h.AfterOffset = prev.BitOffset
			h.AfterBits = prev.Type.SizeBits()
		}
		holes = append(holes, h)
	}
	return holes
}

// Total returns the number of padding bits across holes.
func Total(holes []Hole) uint64 {
	var n uint64
	for _, h := range holes {
		n += h.Bits
	}
	return n
}

// Reporter prints holes, one line each.
type Reporter struct {
	w      io.Writer
	name   *color.Color
	size   *color.Color
	detail *color.Color
}

// NewReporter creates a Reporter on w. Colors are used only when colored is
// true.
func NewReporter(w io.Writer, colored bool) *Reporter {
	r := &Reporter{
		w:      w,
		name:   color.New(color.FgCyan, color.Bold),
		size:   color.New(color.FgYellow),
		detail: color.New(color.Faint),
	}
	for _, c := range []*color.Color{r.name, r.size, r.detail} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return r
}

// Report prints the holes of every layout and returns the number of holes
// found.
func (r *Reporter) Report(layouts []*ir.StructLayout) (int, error) {
	count := 0
	for _, l := range layouts {
		holes := Analyze(l)
		for _, h := range holes {
			if _, err := fmt.Fprintln(r.w, r.line(h)); err != nil {
				return count, err
			}
		}
		count += len(holes)
	}
	return count, nil
}

func (r *Reporter) line(h Hole) string {
	size := r.size.Sprintf("%d-bit hole", h.Bits)
	switch {
	case h.After == "" && h.IsTail():
		return fmt.Sprintf("%s: %s (empty struct)", r.name.Sprint(h.Struct), size)
	case h.After == "":
		return fmt.Sprintf("%s: %s at %d, followed by %s at %d",
			r.name.Sprint(h.Struct), size, h.Offset, h.Before, h.BeforeOffset)
	case h.IsTail():
		return fmt.Sprintf("%s: %s at %d after %s %s (tail padding)",
			r.name.Sprint(h.Struct), size, h.Offset, h.After,
			r.detail.Sprintf("at %d size %d", h.AfterOffset, h.AfterBits))
	default:
		return fmt.Sprintf("%s: %s at %d after %s %s, followed by %s at %d",
			r.name.Sprint(h.Struct), size, h.Offset, h.After,
			r.detail.Sprintf("at %d size %d", h.AfterOffset, h.AfterBits),
			h.Before, h.BeforeOffset)
	}
}
