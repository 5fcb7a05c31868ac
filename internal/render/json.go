package render

import (
	"bufio"
	"fmt"
	"io"

	"github.com/roach88/structlayout/internal/ir"
)

// JSON writes layouts as canonical JSON lines. It implements layout.Sink.
type JSON struct {
	w    *bufio.Writer
	opts options
}

// NewJSON creates a JSON-lines writer on w.
func NewJSON(w io.Writer, opts ...Option) *JSON {
	return &JSON{w: bufio.NewWriter(w), opts: buildOptions(opts)}
}

// WriteLayout writes one layout as a single line and flushes.
func (j *JSON) WriteLayout(l *ir.StructLayout) error {
	data, err := ir.MarshalCanonical(l)
	if err != nil {
		return fmt.Errorf("render %s: %w", l.Name, err)
	}
	j.w.Write(data)
	j.w.WriteByte('\n')
	return j.w.Flush()
}

// Finish writes the {"emitted":[...]} line and flushes.
func (j *JSON) Finish(emitted []string) error {
	if j.opts.trailer {
		if emitted == nil {
			emitted = []string{}
		}
		data, err := ir.MarshalCanonical(map[string]any{"emitted": emitted})
		if err != nil {
			return fmt.Errorf("render trailer: %w", err)
		}
		j.w.Write(data)
		j.w.WriteByte('\n')
	}
	return j.w.Flush()
}
