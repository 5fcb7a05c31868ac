package harness

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/structlayout/internal/layout"
	"github.com/roach88/structlayout/internal/render"
	"github.com/roach88/structlayout/internal/typegraph"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool

	// Output is the rendered sink output, possibly partial when the run
	// failed.
	Output []byte

	// Emitted lists the names emitted, in order.
	Emitted []string

	// RunErr is the error the session failed with, if any.
	RunErr error

	// Errors contains assertion failure messages.
	Errors []string

	collected *render.Collector
}

// AddError records an assertion failure.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Run executes a scenario against a fresh session.
//
// Errors loading the graph or building the sink are returned. A failed
// extraction is not: it lands in Result.RunErr so error assertions can
// inspect it. A run error no error assertion expects fails the scenario.
func Run(scenario *Scenario) (*Result, error) {
	g, err := loadGraph(scenario)
	if err != nil {
		return nil, err
	}

	format := render.FormatPythonGrammar
	if scenario.Format == string(render.FormatJSONLines) {
		format = render.FormatJSONLines
	}
	var opts []render.Option
	if scenario.Trailer != nil && !*scenario.Trailer {
		opts = append(opts, render.WithoutTrailer())
	}

	var out bytes.Buffer
	sink, err := render.New(format, &out, opts...)
	if err != nil {
		return nil, err
	}
	collected := &render.Collector{}

	session := layout.New(render.Multi{sink, collected},
		layout.WithTarget(scenario.Target),
		layout.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	result := &Result{Pass: true, collected: collected}
	result.RunErr = g.Replay(session)
	result.Output = out.Bytes()
	result.Emitted = session.Emitted()

	expectErr := false
	for _, a := range scenario.Assertions {
		expectErr = expectErr || a.Type == AssertError
		evaluate(result, a)
	}
	if result.RunErr != nil && !expectErr {
		result.AddError("run failed: %v", result.RunErr)
	}
	return result, nil
}

func loadGraph(s *Scenario) (*typegraph.Graph, error) {
	if s.Source != "" {
		return typegraph.LoadString(s.Name+".cue", s.Source)
	}
	return typegraph.Load(s.Graph)
}

func evaluate(r *Result, a Assertion) {
	switch a.Type {
	case AssertEmitted:
		if !slices.Equal(r.Emitted, a.Names) {
			r.AddError("emitted: want %v, got %v", a.Names, r.Emitted)
		}

	case AssertLayout:
		l, ok := r.collected.Layout(a.Struct)
		if !ok {
			r.AddError("layout %s: not emitted", a.Struct)
			return
		}
		if a.TotalBits != 0 && l.TotalBits != a.TotalBits {
			r.AddError("layout %s: want %d bits, got %d", a.Struct, a.TotalBits, l.TotalBits)
		}

	case AssertField:
		l, ok := r.collected.Layout(a.Struct)
		if !ok {
			r.AddError("field %s.%s: layout not emitted", a.Struct, a.Field)
			return
		}
		f, ok := l.Field(a.Field)
		if !ok {
			r.AddError("field %s.%s: not found", a.Struct, a.Field)
			return
		}
		if a.BitOffset != nil && f.BitOffset != *a.BitOffset {
			r.AddError("field %s.%s: want bit offset %d, got %d", a.Struct, a.Field, *a.BitOffset, f.BitOffset)
		}
		if a.Kind != "" && string(f.Type.Kind) != a.Kind {
			r.AddError("field %s.%s: want kind %s, got %s", a.Struct, a.Field, a.Kind, f.Type.Kind)
		}

	case AssertError:
		var ie *layout.InvariantError
		switch {
		case r.RunErr == nil:
			r.AddError("error: want %s, run succeeded", a.Code)
		case !errors.As(r.RunErr, &ie):
			r.AddError("error: want %s, got %v", a.Code, r.RunErr)
		case string(ie.Code) != a.Code:
			r.AddError("error: want %s, got %s", a.Code, ie.Code)
		}
	}
}
