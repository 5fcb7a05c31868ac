package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/structlayout/internal/catalog"
	"github.com/roach88/structlayout/internal/config"
	"github.com/roach88/structlayout/internal/layout"
	"github.com/roach88/structlayout/internal/render"
)

// ExtractOptions holds flags for the extract command.
type ExtractOptions struct {
	*RootOptions
	ConfigPath   string
	Output       string
	OutputDir    string
	Struct       string
	LayoutFormat string
	NoTrailer    bool
	Catalog      string
	Jobs         int
}

// UnitResult is the outcome of extracting one unit.
type UnitResult struct {
	Unit    string   `json:"unit"`
	Output  string   `json:"output,omitempty"`
	Emitted []string `json:"emitted"`
	RunID   string   `json:"run_id,omitempty"`
	Code    string   `json:"code,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// ExtractResult summarizes an extract invocation.
type ExtractResult struct {
	Units  []UnitResult `json:"units"`
	Failed int          `json:"failed"`
}

// NewExtractCommand creates the extract command.
func NewExtractCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExtractOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "extract <input>...",
		Short: "Dump struct layouts of compilation units",
		Long: `Extract the layout of every named struct in each input, together with
every struct and union they reference.

Inputs are ELF objects built with debug info (cc -g -c) or .cue type graph
documents. Each input is one unit with its own output.

Exit codes:
  0 - All units extracted
  1 - One or more units failed
  2 - Command error (bad configuration, etc.)

Examples:
  structlayout extract -o layout.py unit.o
  structlayout extract --struct test_struct -o - unit.o
  structlayout extract --output-dir out --jobs 4 a.o b.o c.o
  structlayout extract --config structlayout.toml --catalog runs.db unit.o`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "configuration file (.yaml, .yml or .toml)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", `output file, or "-" for stdout`)
	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", "", "directory receiving one output file per unit")
	cmd.Flags().StringVar(&opts.Struct, "struct", "", "only emit this struct (and what it references)")
	cmd.Flags().StringVar(&opts.LayoutFormat, "layout-format", config.FormatPython, "layout output format (python|json)")
	cmd.Flags().BoolVar(&opts.NoTrailer, "no-trailer", false, "omit the list of emitted names")
	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "SQLite catalog recording every run")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 1, "units extracted concurrently")

	return cmd
}

// resolveConfig layers the config file, then explicitly set flags, over the
// defaults.
func resolveConfig(opts *ExtractOptions, cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if opts.ConfigPath != "" {
		loaded, err := config.Load(opts.ConfigPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.Output = opts.Output
	}
	if flags.Changed("output-dir") {
		cfg.OutputDir = opts.OutputDir
	}
	if flags.Changed("struct") {
		cfg.Struct = opts.Struct
	}
	if flags.Changed("layout-format") {
		cfg.Format = opts.LayoutFormat
	}
	if flags.Changed("no-trailer") {
		cfg.Trailer = !opts.NoTrailer
	}
	if flags.Changed("catalog") {
		cfg.Catalog = opts.Catalog
	}
	if flags.Changed("jobs") {
		cfg.Jobs = opts.Jobs
	}
	return cfg, nil
}

func runExtract(opts *ExtractOptions, units []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg, err := resolveConfig(opts, cmd)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), err)
	}
	if len(units) == 0 {
		return formatter.Fail(ExitCommandError, ErrCodeNoInputs, "no input units given", nil)
	}
	if err := cfg.Validate(len(units)); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), err)
	}

	// Layouts own stdout when written there; status moves to stderr.
	if cfg.Output == config.Stdout {
		formatter.Writer = cmd.ErrOrStderr()
	}

	if cfg.OutputDir != "" {
		if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("creating output directory: %v", err), err)
		}
	}

	var cat *catalog.Catalog
	if cfg.Catalog != "" {
		cat, err = catalog.Open(cfg.Catalog)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeCatalog, fmt.Sprintf("opening catalog: %v", err), err)
		}
		defer cat.Close()
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	x := &extractor{
		cfg:    cfg,
		cat:    cat,
		stdout: cmd.OutOrStdout(),
		logger: logger,
		create: createFile,
	}

	// Units never share a Session; a failed unit does not stop the others.
	results := make([]UnitResult, len(units))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Jobs)
	for i, unit := range units {
		g.Go(func() error {
			results[i] = x.extract(gctx, unit)
			return nil
		})
	}
	_ = g.Wait()

	result := ExtractResult{Units: results}
	for _, r := range results {
		if r.Error != "" {
			result.Failed++
		}
	}

	if err := outputExtract(formatter, result); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d unit(s) failed", result.Failed, len(units)))
	}
	return nil
}

type extractor struct {
	cfg    config.Config
	cat    *catalog.Catalog
	stdout io.Writer
	logger *slog.Logger
	create func(name string) (io.WriteCloser, error)
}

func createFile(name string) (io.WriteCloser, error) { return os.Create(name) }

func (x *extractor) extract(ctx context.Context, unit string) UnitResult {
	res := UnitResult{Unit: unit, Emitted: []string{}}
	fail := func(code string, err error) UnitResult {
		res.Code = code
		res.Error = err.Error()
		x.logger.Error("extraction failed", "unit", unit, "code", code, "error", err)
		return res
	}

	if err := ctx.Err(); err != nil {
		return fail(ErrCodeGeneric, err)
	}

	p, err := openUnit(unit)
	if err != nil {
		return fail(unitErrorCode(err), err)
	}

	format := render.Format(x.cfg.Format)
	res.Output = x.cfg.OutputPath(unit, render.Extension(format))

	var w io.Writer = x.stdout
	closeOutput := func() error { return nil }
	if res.Output != config.Stdout {
		f, err := x.create(res.Output)
		if err != nil {
			return fail(ErrCodeWriteFailed, err)
		}
		closeOutput = sync.OnceValue(f.Close)
		defer closeOutput()
		w = f
	}

	var renderOpts []render.Option
	if !x.cfg.Trailer {
		renderOpts = append(renderOpts, render.WithoutTrailer())
	}
	out, err := render.New(format, w, renderOpts...)
	if err != nil {
		return fail(ErrCodeConfig, err)
	}
	sinks := render.Multi{out}

	var rec *catalog.Recorder
	if x.cat != nil {
		run, err := x.cat.BeginRun(ctx, p.Unit(), x.cfg.Struct, x.cfg.Format)
		if err != nil {
			return fail(ErrCodeCatalog, err)
		}
		res.RunID = run.ID
		rec = x.cat.Recorder(ctx, run)
		sinks = append(sinks, rec)
	}

	session := layout.New(sinks,
		layout.WithTarget(x.cfg.Struct),
		layout.WithLogger(x.logger.With("unit", p.Unit())),
	)
	x.logger.Info("extracting", "unit", p.Unit(), "output", res.Output)

	err = p.Replay(session)
	res.Emitted = session.Emitted()
	if err != nil {
		if rec != nil {
			if abortErr := rec.Abort(err); abortErr != nil {
				x.logger.Warn("recording failed run", "unit", unit, "error", abortErr)
			}
		}
		code := ErrCodeWriteFailed
		if layout.IsInvariantError(err) {
			code = ErrCodeExtractFailed
		}
		return fail(code, err)
	}

	if err := closeOutput(); err != nil {
		return fail(ErrCodeWriteFailed, err)
	}
	x.logger.Info("extracted", "unit", p.Unit(), "emitted", len(res.Emitted))
	return res
}

func outputExtract(formatter *OutputFormatter, result ExtractResult) error {
	if formatter.Format == "json" {
		if result.Failed > 0 {
			return formatter.encodeJSON(CLIResponse{
				Status: "error",
				Data:   result,
				Error: &CLIError{
					Code:    ErrCodeExtractFailed,
					Message: fmt.Sprintf("%d unit(s) failed", result.Failed),
				},
			})
		}
		return formatter.Success(result)
	}

	w := formatter.Writer
	for _, r := range result.Units {
		if r.Error != "" {
			fmt.Fprintf(w, "%s %s\n", formatter.Mark(false), r.Unit)
			fmt.Fprintf(w, "  %s\n", r.Error)
			continue
		}
		fmt.Fprintf(w, "%s %s → %s (%d layout(s))\n", formatter.Mark(true), r.Unit, r.Output, len(r.Emitted))
		if r.RunID != "" {
			formatter.VerboseLog("  run %s", r.RunID)
		}
	}
	return nil
}
