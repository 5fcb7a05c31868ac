package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/structlayout/internal/catalog"
	"github.com/roach88/structlayout/internal/ir"
	"github.com/roach88/structlayout/internal/render"
)

// CatalogOptions holds flags shared by the catalog commands.
type CatalogOptions struct {
	*RootOptions
	Path  string
	Limit int
	RunID string
	Hash  bool
}

// RunSummary is one run as reported by catalog runs.
type RunSummary struct {
	ID          string `json:"id"`
	Unit        string `json:"unit"`
	Target      string `json:"target,omitempty"`
	Format      string `json:"format"`
	Status      string `json:"status"`
	Emitted     int    `json:"emitted"`
	ToolVersion string `json:"tool_version"`
	Error       string `json:"error,omitempty"`
}

// ShowResult is a stored layout as reported by catalog show.
type ShowResult struct {
	RunID   string           `json:"run_id"`
	Ordinal int              `json:"ordinal"`
	Hash    string           `json:"hash"`
	Layout  *ir.StructLayout `json:"layout"`
	SeenIn  []string         `json:"seen_in,omitempty"`
}

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the run catalog",
		Long: `Inspect a SQLite catalog written by extract --catalog.

Examples:
  structlayout catalog runs --catalog runs.db
  structlayout catalog show test_struct --catalog runs.db
  structlayout catalog show test_struct --catalog runs.db --run <id>`,
	}
	cmd.PersistentFlags().StringVar(&opts.Path, "catalog", "", "path to the SQLite catalog (required)")
	_ = cmd.MarkPersistentFlagRequired("catalog")

	runs := &cobra.Command{
		Use:           "runs",
		Short:         "List recorded runs, most recent first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogRuns(opts, cmd)
		},
	}
	runs.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs (0 for all)")

	show := &cobra.Command{
		Use:           "show <struct>",
		Short:         "Re-render a stored layout",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalogShow(opts, args[0], cmd)
		},
	}
	show.Flags().StringVar(&opts.RunID, "run", "", "run id (default: the most recent run containing the struct)")
	show.Flags().BoolVar(&opts.Hash, "hash", false, "also list every run that emitted an identical layout")

	cmd.AddCommand(runs, show)
	return cmd
}

func openCatalog(opts *CatalogOptions, formatter *OutputFormatter) (*catalog.Catalog, error) {
	cat, err := catalog.Open(opts.Path)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeCatalog, fmt.Sprintf("opening catalog: %v", err), err)
	}
	return cat, nil
}

func runCatalogRuns(opts *CatalogOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	cat, err := openCatalog(opts, formatter)
	if err != nil {
		return err
	}
	defer cat.Close()

	runs, err := cat.ListRuns(cmd.Context(), opts.Limit)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCatalog, err.Error(), err)
	}

	summaries := make([]RunSummary, len(runs))
	for i, r := range runs {
		summaries[i] = RunSummary{
			ID:          r.ID,
			Unit:        r.Unit,
			Target:      r.Target,
			Format:      r.Format,
			Status:      r.Status,
			Emitted:     r.Emitted,
			ToolVersion: r.ToolVersion,
			Error:       r.Error,
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(summaries)
	}

	w := formatter.Writer
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, s := range summaries {
		fmt.Fprintf(w, "%s %s  %s  %d layout(s)", formatter.Mark(s.Status != catalog.StatusFailed), s.ID, s.Unit, s.Emitted)
		if s.Target != "" {
			fmt.Fprintf(w, "  struct=%s", s.Target)
		}
		fmt.Fprintf(w, "  [%s]\n", s.Status)
		if s.Error != "" {
			fmt.Fprintf(w, "  %s\n", s.Error)
		}
	}
	return nil
}

func runCatalogShow(opts *CatalogOptions, name string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	cat, err := openCatalog(opts, formatter)
	if err != nil {
		return err
	}
	defer cat.Close()

	stored, err := cat.GetLayout(cmd.Context(), name, opts.RunID)
	if errors.Is(err, catalog.ErrNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, err.Error(), err)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeCatalog, err.Error(), err)
	}

	result := ShowResult{
		RunID:   stored.RunID,
		Ordinal: stored.Ordinal,
		Hash:    stored.Hash,
		Layout:  stored.Layout,
	}
	if opts.Hash {
		result.SeenIn, err = cat.RunsWithHash(cmd.Context(), stored.Hash)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeCatalog, err.Error(), err)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	if err := render.CheckPythonName(stored.Layout.Name); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error()+" (use --format json)", err)
	}
	w := formatter.Writer
	fmt.Fprint(w, render.FormatPython(stored.Layout))
	formatter.VerboseLog("run %s, ordinal %d, hash %s", stored.RunID, stored.Ordinal, stored.Hash)
	if opts.Hash {
		fmt.Fprintf(w, "# identical in %d run(s):\n", len(result.SeenIn))
		for _, id := range result.SeenIn {
			fmt.Fprintf(w, "# %s\n", id)
		}
	}
	return nil
}
