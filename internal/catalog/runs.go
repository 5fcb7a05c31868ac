package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/roach88/structlayout/internal/ir"
)

// ErrNotFound is returned when a run or layout does not exist.
var ErrNotFound = errors.New("catalog: not found")

// Run statuses.
const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusFailed  = "failed"
)

// Run is one extraction of one unit.
type Run struct {
	Seq         int64
	ID          string
	Unit        string
	Target      string
	Format      string
	ToolVersion string
	IRVersion   string
	Status      string
	Emitted     int
	Error       string
}

// StoredLayout is a layout as recorded in a run.
type StoredLayout struct {
	RunID   string
	Ordinal int
	Hash    string
	Layout  *ir.StructLayout
}

// BeginRun records the start of a run.
func (c *Catalog) BeginRun(ctx context.Context, unit, target, format string) (*Run, error) {
	run := &Run{
		ID:          c.runID.Generate(),
		Unit:        unit,
		Target:      target,
		Format:      format,
		ToolVersion: ir.ToolVersion,
		IRVersion:   ir.IRVersion,
		Status:      StatusRunning,
	}
	res, err := c.db.ExecContext(ctx, `
		INSERT INTO runs (id, unit, target, format, tool_version, ir_version, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Unit, run.Target, run.Format, run.ToolVersion, run.IRVersion, run.Status)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	if run.Seq, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}
	return run, nil
}

// WriteLayout stores one emitted layout of a run.
func (c *Catalog) WriteLayout(ctx context.Context, runID string, ordinal int, l *ir.StructLayout) error {
	hash, err := ir.LayoutHash(l)
	if err != nil {
		return fmt.Errorf("write layout %s: %w", l.Name, err)
	}
	blob, err := msgpack.Marshal(l)
	if err != nil {
		return fmt.Errorf("write layout %s: encode: %w", l.Name, err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO layouts (run_id, ordinal, name, kind, total_bits, hash, descriptor)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, runID, ordinal, l.Name, string(l.Kind), int64(l.TotalBits), hash, blob)
	if err != nil {
		return fmt.Errorf("write layout %s: %w", l.Name, err)
	}
	return nil
}

// FinishRun marks a run finished. A nil runErr marks it ok.
func (c *Catalog) FinishRun(ctx context.Context, runID string, emitted int, runErr error) error {
	status, msg := StatusOK, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	res, err := c.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, emitted = ?, error = ? WHERE id = ?
	`, status, emitted, msg, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrNotFound)
	}
	return nil
}

const runColumns = `seq, id, unit, target, format, tool_version, ir_version, status, emitted, error`

func scanRun(row interface{ Scan(...any) error }) (Run, error) {
	var r Run
	err := row.Scan(&r.Seq, &r.ID, &r.Unit, &r.Target, &r.Format,
		&r.ToolVersion, &r.IRVersion, &r.Status, &r.Emitted, &r.Error)
	return r, err
}

// ListRuns returns the most recent runs first. A limit of 0 returns all.
func (c *Catalog) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY seq DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run.
func (c *Catalog) GetRun(ctx context.Context, runID string) (Run, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// GetLayout returns the layout named name. With an empty runID the most
// recent run containing it is used.
func (c *Catalog) GetLayout(ctx context.Context, name, runID string) (StoredLayout, error) {
	query := `
		SELECT l.run_id, l.ordinal, l.hash, l.descriptor
		FROM layouts l JOIN runs r ON r.id = l.run_id
		WHERE l.name = ?`
	args := []any{name}
	if runID != "" {
		query += ` AND l.run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY r.seq DESC LIMIT 1`

	stored, err := scanLayout(c.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return StoredLayout{}, fmt.Errorf("layout %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return StoredLayout{}, fmt.Errorf("get layout %s: %w", name, err)
	}
	return stored, nil
}

// Layouts returns every layout of a run in emission order.
func (c *Catalog) Layouts(ctx context.Context, runID string) ([]StoredLayout, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT run_id, ordinal, hash, descriptor
		FROM layouts WHERE run_id = ?
		ORDER BY ordinal
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list layouts: %w", err)
	}
	defer rows.Close()

	var out []StoredLayout
	for rows.Next() {
		s, err := scanLayout(rows)
		if err != nil {
			return nil, fmt.Errorf("list layouts: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func scanLayout(row interface{ Scan(...any) error }) (StoredLayout, error) {
	var (
		s    StoredLayout
		blob []byte
	)
	if err := row.Scan(&s.RunID, &s.Ordinal, &s.Hash, &blob); err != nil {
		return StoredLayout{}, err
	}
	s.Layout = &ir.StructLayout{}
	if err := msgpack.Unmarshal(blob, s.Layout); err != nil {
		return StoredLayout{}, fmt.Errorf("decode descriptor: %w", err)
	}
	if s.Layout.Fields == nil {
		s.Layout.Fields = []ir.FieldDescriptor{}
	}
	return s, nil
}

// RunsWithHash returns the ids of runs that emitted a layout with the given
// content hash, oldest first.
func (c *Catalog) RunsWithHash(ctx context.Context, hash string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT r.id FROM layouts l JOIN runs r ON r.id = l.run_id
		WHERE l.hash = ? ORDER BY r.seq
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("runs with hash: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("runs with hash: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
