package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/picbridge/internal/header"
)

// NewStubsCommand creates the stubs command.
func NewStubsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stubs <path>",
		Short: "Write the platform stub header",
		Long: `Write the platform stub header shipped with picbridge to <path>.

Builds require this header to exist; point stub_header (or --stubs) at it.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			if err := header.WriteStubHeader(args[0]); err != nil {
				_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
				return WrapExitError(ExitCommandError, "writing stub header", err)
			}
			if formatter.Format == "json" {
				return formatter.Success(map[string]string{"output": args[0]})
			}
			return formatter.Success(fmt.Sprintf("Wrote %s", args[0]))
		},
	}
	return cmd
}
