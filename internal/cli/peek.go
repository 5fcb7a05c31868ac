package cli

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/structlayout/internal/access"
	"github.com/roach88/structlayout/internal/catalog"
	"github.com/roach88/structlayout/internal/layout"
	"github.com/roach88/structlayout/internal/render"
)

// PeekOptions holds flags for the peek command.
type PeekOptions struct {
	*RootOptions
	Units     []string
	Catalog   string
	RunID     string
	Base      uint64
	Addr      uint64
	ByteOrder string
	Levels    int
}

// PeekResult is a struct dumped from a memory image.
type PeekResult struct {
	Struct string `json:"struct"`
	Addr   uint64 `json:"addr"`
	RunID  string `json:"run_id,omitempty"`
	Dump   string `json:"dump"`
}

// NewPeekCommand creates the peek command.
func NewPeekCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PeekOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "peek <struct> <image>",
		Short: "Dump a struct from a raw memory image",
		Long: `Read a struct out of a raw memory image using extracted layouts.

The image is mapped at --base; the struct is read at --addr (default: the
base). Layouts come from --unit inputs, extracted on the fly, or from a
catalog written by extract --catalog. Pointers to other structs are followed
--levels deep.

Examples:
  structlayout peek test_struct mem.bin --unit unit.o --base 0x10000
  structlayout peek node mem.bin --catalog runs.db --addr 0x10040 --levels 2
  structlayout peek node mem.bin --unit graph.cue --byte-order big`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPeek(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Units, "unit", nil, "input to extract layouts from (repeatable)")
	cmd.Flags().StringVar(&opts.Catalog, "catalog", "", "read layouts from this SQLite catalog")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "catalog run id (default: the most recent run containing the struct)")
	cmd.Flags().Uint64Var(&opts.Base, "base", 0, "address the image is mapped at")
	cmd.Flags().Uint64Var(&opts.Addr, "addr", 0, "address of the struct (default: --base)")
	cmd.Flags().StringVar(&opts.ByteOrder, "byte-order", "little", "target byte order (little|big)")
	cmd.Flags().IntVar(&opts.Levels, "levels", 1, "how many struct pointers deep to follow")

	return cmd
}

func runPeek(opts *PeekOptions, name, imagePath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	var order binary.ByteOrder
	switch opts.ByteOrder {
	case "little":
		order = binary.LittleEndian
	case "big":
		order = binary.BigEndian
	default:
		return formatter.Fail(ExitCommandError, ErrCodeConfig, fmt.Sprintf("unknown byte order %q (must be little or big)", opts.ByteOrder), nil)
	}
	switch {
	case len(opts.Units) == 0 && opts.Catalog == "":
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "one of --unit or --catalog is required", nil)
	case len(opts.Units) > 0 && opts.Catalog != "":
		return formatter.Fail(ExitCommandError, ErrCodeConfig, "--unit and --catalog are mutually exclusive", nil)
	}
	addr := opts.Addr
	if !cmd.Flags().Changed("addr") {
		addr = opts.Base
	}

	data, err := os.ReadFile(imagePath)
	if errors.Is(err, os.ErrNotExist) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("image not found: %s", imagePath), err)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, fmt.Sprintf("reading image: %v", err), err)
	}

	var (
		types    access.Resolver
		resolver *catalog.Resolver
	)
	if opts.Catalog != "" {
		cat, err := catalog.Open(opts.Catalog)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeCatalog, fmt.Sprintf("opening catalog: %v", err), err)
		}
		defer cat.Close()
		resolver = cat.Resolver(cmd.Context(), opts.RunID)
		types = resolver
	} else {
		collected := &render.Collector{}
		for _, unit := range opts.Units {
			if err := collectUnit(unit, "", collected, logger); err != nil {
				code := unitErrorCode(err)
				if layout.IsInvariantError(err) {
					code = ErrCodeExtractFailed
				}
				return formatter.Fail(ExitFailure, code, err.Error(), err)
			}
		}
		types = collected
	}

	acc := access.New(access.NewImage(opts.Base, data), order, types)
	v, err := acc.Struct(name, addr)
	if err != nil {
		if resolver != nil && resolver.Err() != nil {
			return formatter.Fail(ExitCommandError, ErrCodeCatalog, resolver.Err().Error(), resolver.Err())
		}
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, err.Error(), err)
	}

	var out bytes.Buffer
	if err := access.Dump(&out, v, opts.Levels); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeGeneric, err.Error(), err)
	}

	if formatter.Format == "json" {
		result := PeekResult{Struct: name, Addr: addr, Dump: out.String()}
		if resolver != nil {
			result.RunID = resolver.RunID()
		}
		return formatter.Success(result)
	}
	_, err = formatter.Writer.Write(out.Bytes())
	return err
}
