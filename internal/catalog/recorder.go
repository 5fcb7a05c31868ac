package catalog

import (
	"context"

	"github.com/roach88/structlayout/internal/ir"
)

// Recorder stores the layouts of one run as they are emitted.
// It implements layout.Sink.
type Recorder struct {
	ctx     context.Context
	catalog *Catalog
	run     *Run
	next    int
}

// Recorder returns a sink recording into run.
func (c *Catalog) Recorder(ctx context.Context, run *Run) *Recorder {
	return &Recorder{ctx: ctx, catalog: c, run: run}
}

// Run returns the run being recorded.
func (r *Recorder) Run() *Run { return r.run }

func (r *Recorder) WriteLayout(l *ir.StructLayout) error {
	if err := r.catalog.WriteLayout(r.ctx, r.run.ID, r.next, l); err != nil {
		return err
	}
	r.next++
	return nil
}

// Finish marks the run ok.
func (r *Recorder) Finish(emitted []string) error {
	r.run.Status = StatusOK
	r.run.Emitted = len(emitted)
	return r.catalog.FinishRun(r.ctx, r.run.ID, len(emitted), nil)
}

// Abort marks the run failed with err.
func (r *Recorder) Abort(err error) error {
	r.run.Status = StatusFailed
	r.run.Error = err.Error()
	return r.catalog.FinishRun(r.ctx, r.run.ID, r.next, err)
}
