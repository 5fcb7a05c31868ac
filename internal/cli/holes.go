package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/structlayout/internal/holes"
	"github.com/roach88/structlayout/internal/layout"
	"github.com/roach88/structlayout/internal/render"
)

// HolesOptions holds flags for the holes command.
type HolesOptions struct {
	*RootOptions
	Struct string
}

// HolesResult lists the padding found in the inputs.
type HolesResult struct {
	Holes     []holes.Hole `json:"holes"`
	Structs   int          `json:"structs"`
	TotalBits uint64       `json:"total_bits"`
}

// NewHolesCommand creates the holes command.
func NewHolesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HolesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "holes <input>...",
		Short: "Report padding holes in struct layouts",
		Long: `Extract layouts like the extract command, then list the gaps no field
occupies: holes between consecutive fields and tail padding.

Examples:
  structlayout holes unit.o
  structlayout holes --struct test_struct unit.o
  structlayout holes --format json graph.cue`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHoles(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Struct, "struct", "", "only analyze this struct (and what it references)")

	return cmd
}

func runHoles(opts *HolesOptions, units []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	collected := &render.Collector{}
	for _, unit := range units {
		if err := collectUnit(unit, opts.Struct, collected, logger); err != nil {
			var code string
			if layout.IsInvariantError(err) {
				code = ErrCodeExtractFailed
			} else {
				code = unitErrorCode(err)
			}
			return formatter.Fail(ExitFailure, code, err.Error(), err)
		}
	}

	result := HolesResult{Holes: []holes.Hole{}}
	for _, l := range collected.Layouts {
		found := holes.Analyze(l)
		result.Holes = append(result.Holes, found...)
		result.TotalBits += holes.Total(found)
	}
	result.Structs = len(collected.Layouts)

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return outputHolesText(formatter, collected, result)
}

// collectUnit replays one unit into c. Each unit gets its own Session.
func collectUnit(unit, target string, c *render.Collector, logger *slog.Logger) error {
	p, err := openUnit(unit)
	if err != nil {
		return err
	}
	session := layout.New(c, layout.WithTarget(target), layout.WithLogger(logger.With("unit", p.Unit())))
	return p.Replay(session)
}

func outputHolesText(formatter *OutputFormatter, c *render.Collector, result HolesResult) error {
	w := formatter.Writer
	n, err := holes.NewReporter(w, formatter.Color).Report(c.Layouts)
	if err != nil {
		return err
	}
	if n == 0 {
		_, err = fmt.Fprintf(w, "%s no holes in %d layout(s)\n", formatter.Mark(true), result.Structs)
		return err
	}
	return summarizeHoles(w, n, result)
}

func summarizeHoles(w io.Writer, n int, result HolesResult) error {
	_, err := fmt.Fprintf(w, "\n%d hole(s), %d bit(s) of padding in %d layout(s)\n", n, result.TotalBits, result.Structs)
	return err
}
