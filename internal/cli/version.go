package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/structlayout/internal/ir"
)

// VersionInfo is reported by the version command.
type VersionInfo struct {
	Tool string `json:"tool"`
	IR   string `json:"ir"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Print version information",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			info := VersionInfo{Tool: ir.ToolVersion, IR: ir.IRVersion}
			if formatter.Format == "json" {
				return formatter.Success(info)
			}
			_, err := fmt.Fprintf(formatter.Writer, "structlayout %s (ir %s)\n", info.Tool, info.IR)
			return err
		},
	}
}
