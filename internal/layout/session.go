package layout

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/structlayout/internal/ir"
	"github.com/roach88/structlayout/internal/provider"
)

// Sink receives the output of a Session.
//
// WriteLayout is called once per top-level layout, in emission order.
// Finish is called once after the pending queue has drained, with every
// emitted name in emission order.
type Sink interface {
	WriteLayout(l *ir.StructLayout) error
	Finish(emitted []string) error
}

// Session is the extraction state for one compilation unit.
// It implements provider.Listener.
type Session struct {
	sink    Sink
	target  string
	logger  *slog.Logger
	visited *visitedSet
	pending *pendingQueue

	finished bool
	err      error
}

var _ provider.Listener = (*Session)(nil)

// Option configures a Session.
type Option func(*Session)

// WithTarget restricts top-level emission to the struct with the given
// name. Aggregates it references are still emitted when the queue drains.
// An empty name selects every struct.
func WithTarget(name string) Option {
	return func(s *Session) {
		s.target = name
	}
}

// WithLogger sets the logger for debug output. By default nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Session writing to sink.
func New(sink Sink, opts ...Option) *Session {
	s := &Session{
		sink:    sink,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		visited: newVisitedSet(),
		pending: newPendingQueue(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TypeFinished handles a type whose definition just completed. Named,
// complete structs matching the target are emitted; everything else is
// ignored.
func (s *Session) TypeFinished(t provider.TypeRef) error {
	if err := s.check(); err != nil {
		return err
	}
	if t == nil || t.Kind() != provider.KindStruct || !t.IsComplete() {
		return nil
	}
	if _, ok := t.Identifier(); !ok {
		return nil
	}
	name, _ := typeName(t)
	if s.target != "" && name != s.target {
		return nil
	}
	return s.fail(s.emit(t, name))
}

// Emit writes the layout of a named, complete struct or union unless it has
// already been written.
func (s *Session) Emit(t provider.TypeRef) error {
	if err := s.check(); err != nil {
		return err
	}
	name, ok := typeName(t)
	if !ok || name == "" {
		return s.fail(invariant(ErrCodeUnnamedTopLevel, "", "", "top-level %s has no name", t.Kind()))
	}
	return s.fail(s.emit(t, name))
}

// CompilationFinished drains the pending queue and finishes the sink.
func (s *Session) CompilationFinished() error {
	if err := s.check(); err != nil {
		return err
	}
	s.finished = true

	for {
		t, ok := s.pending.Dequeue()
		if !ok {
			break
		}
		name, _ := typeName(t)
		if s.visited.Contains(name) {
			continue
		}
		if !t.IsComplete() {
			s.logger.Debug("dropped incomplete reference", "type", name)
			continue
		}
		if err := s.emit(t, name); err != nil {
			s.err = err
			return err
		}
	}

	if err := s.sink.Finish(s.visited.Names()); err != nil {
		s.err = fmt.Errorf("finish output: %w", err)
		return s.err
	}
	s.logger.Debug("compilation finished", "emitted", s.visited.Len())
	return nil
}

// Emitted returns the names written so far, in emission order.
func (s *Session) Emitted() []string {
	return s.visited.Names()
}

// Err returns the error that stopped the Session, if any.
func (s *Session) Err() error {
	return s.err
}

func (s *Session) emit(t provider.TypeRef, name string) error {
	if !s.visited.Mark(name) {
		return nil
	}

	l, err := s.encodeAggregate(t, name)
	if err != nil {
		return err
	}
	if err := s.sink.WriteLayout(l); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	s.logger.Debug("emitted layout",
		"type", name,
		"kind", l.Kind,
		"bits", l.TotalBits,
		"fields", len(l.Fields),
	)
	return nil
}

func (s *Session) check() error {
	if s.err != nil {
		return s.err
	}
	if s.finished {
		return ErrSessionFinished
	}
	return nil
}

// fail poisons the Session with err, if non-nil.
func (s *Session) fail(err error) error {
	if err != nil {
		s.err = err
	}
	return err
}
