package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/picbridge/internal/config"
	"github.com/roach88/picbridge/internal/header"
)

// HeaderOptions holds flags for the header command.
type HeaderOptions struct {
	*RootOptions
	Device string
	FCPU   string
	Stubs  string
	Output string
}

// NewHeaderCommand creates the header command.
func NewHeaderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HeaderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "header",
		Short: "Render the compatibility header",
		Long: `Render the compatibility header that every transpiled unit includes.

The header binds the device id, the clock frequency and the platform stub
header. It is written to stdout unless -o is given.

Example:
  picbridge header --device pic16f876a --f-cpu 4000000L --stubs ./pic_universal_stubs.h
  picbridge header --device pic18f4550 --f-cpu 20000000UL --stubs stubs.h -o pic_includes.h`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeader(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Device, "device", config.DefaultDevice, "target device id")
	cmd.Flags().StringVar(&opts.FCPU, "f-cpu", config.DefaultClockHz, "clock frequency literal")
	cmd.Flags().StringVar(&opts.Stubs, "stubs", config.DefaultStubHeader, "platform stub header path")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")

	return cmd
}

func runHeader(opts *HeaderOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cfg := config.Default()
	cfg.Target = config.Target{Device: opts.Device, ClockHz: opts.FCPU}
	cfg.StubHeader = opts.Stubs
	if err := cfg.Resolve(); err != nil {
		return outputError(formatter, err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}

	// Resolve made the stub path absolute against the working directory.
	content, err := header.RenderCompatHeader(cfg.TargetProfile(), cfg.StubHeader)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitFailure, "rendering header", err)
	}

	if opts.Output == "" {
		if formatter.Format == "json" {
			return formatter.Success(map[string]string{"content": string(content)})
		}
		_, err := cmd.OutOrStdout().Write(content)
		return err
	}

	if err := os.WriteFile(opts.Output, content, 0644); err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing %s: %v", opts.Output, err), nil)
		return WrapExitError(ExitCommandError, "writing header", err)
	}
	if formatter.Format == "json" {
		return formatter.Success(map[string]string{"output": opts.Output})
	}
	return formatter.Success(fmt.Sprintf("Wrote %s", opts.Output))
}
