package catalog

import (
	"context"
	"errors"

	"github.com/roach88/structlayout/internal/ir"
)

// Resolver looks layouts up by name in the catalog. It pins the run of the
// first lookup, so every name resolves against the same extraction.
type Resolver struct {
	ctx     context.Context
	catalog *Catalog
	runID   string
	err     error
}

// Resolver returns a Resolver over runID, or over the most recent run that
// contains the first name looked up when runID is empty.
func (c *Catalog) Resolver(ctx context.Context, runID string) *Resolver {
	return &Resolver{ctx: ctx, catalog: c, runID: runID}
}

// Layout returns the named layout. A failed lookup other than a missing name
// is kept in Err.
func (r *Resolver) Layout(name string) (*ir.StructLayout, bool) {
	stored, err := r.catalog.GetLayout(r.ctx, name, r.runID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.err = err
		}
		return nil, false
	}
	r.runID = stored.RunID
	return stored.Layout, true
}

// RunID returns the run lookups resolve against, empty before the first
// successful lookup when none was given.
func (r *Resolver) RunID() string { return r.runID }

// Err returns the last lookup error that was not a missing layout.
func (r *Resolver) Err() error { return r.err }
