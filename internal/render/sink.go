package render

import (
	"errors"
	"fmt"
	"io"

	"github.com/roach88/structlayout/internal/ir"
)

// Format names an output rendering.
type Format string

const (
	FormatPythonGrammar Format = "python"
	FormatJSONLines     Format = "json"
)

// Sink is the subset of layout.Sink every writer here implements.
type Sink interface {
	WriteLayout(l *ir.StructLayout) error
	Finish(emitted []string) error
}

// New returns the writer for format.
func New(format Format, w io.Writer, opts ...Option) (Sink, error) {
	switch format {
	case FormatPythonGrammar, "":
		return NewPython(w, opts...), nil
	case FormatJSONLines:
		return NewJSON(w, opts...), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (must be python or json)", format)
	}
}

// Extension returns the file extension for format, including the dot.
func Extension(format Format) string {
	if format == FormatJSONLines {
		return ".jsonl"
	}
	return ".py"
}

// Collector keeps layouts in memory.
type Collector struct {
	Layouts  []*ir.StructLayout
	Emitted  []string
	Finished bool
}

func (c *Collector) WriteLayout(l *ir.StructLayout) error {
	c.Layouts = append(c.Layouts, l)
	return nil
}

func (c *Collector) Finish(emitted []string) error {
	c.Emitted = emitted
	c.Finished = true
	return nil
}

// Layout returns the collected layout with the given name.
func (c *Collector) Layout(name string) (*ir.StructLayout, bool) {
	for _, l := range c.Layouts {
		if l.Name == name {
			return l, true
		}
	}
	return nil, false
}

// Multi fans every call out to each sink in order. Every sink sees every
// call; errors are joined.
type Multi []Sink

func (m Multi) WriteLayout(l *ir.StructLayout) error {
	var errs []error
	for _, s := range m {
		if err := s.WriteLayout(l); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Finish(emitted []string) error {
	var errs []error
	for _, s := range m {
		if err := s.Finish(emitted); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
