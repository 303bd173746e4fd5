// Package toolchain hands the assembled build set to the compiler wrapper.
//
// The wrapper receives every compiler argument as a single quoted
// --passthrough string:
//
//	xc8-wrapper cc --passthrough "-mcpu=pic16f876a" "-D_XTAL_FREQ=4000000" "-o" "firmware.hex" "main.c"
package toolchain

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/google/shlex"

	"github.com/roach88/picbridge/internal/header"
	"github.com/roach88/picbridge/internal/ir"
)

// DefaultOutputName is the firmware image written into the output directory
// when no explicit output is configured.
const DefaultOutputName = "firmware.hex"

// Flags builds the target flags followed by the pass-through build flags.
// Each build flag entry is shell-split, so "-O2 -DDEBUG=1" yields two flags.
func Flags(target ir.TargetProfile, buildFlags []string) ([]string, error) {
	flags := []string{
		"-mcpu=" + target.DeviceID,
		"-D_XTAL_FREQ=" + header.StripClockSuffix(target.ClockHz),
	}
	for _, entry := range buildFlags {
		parts, err := shlex.Split(entry)
		if err != nil {
			return nil, fmt.Errorf("splitting build flag %q: %w", entry, err)
		}
		flags = append(flags, parts...)
	}
	return flags, nil
}

// Invocation is a single compiler wrapper call.
type Invocation struct {
	Command string   `json:"command"`
	Flags   []string `json:"flags"`
	Output  string   `json:"output"`
	Sources []string `json:"sources"`
}

// Passthrough returns the compiler arguments: flags that are not sources,
// then -o and the output, then the sources.
func (inv Invocation) Passthrough() []string {
	sources := make(map[string]bool, len(inv.Sources))
	for _, s := range inv.Sources {
		sources[s] = true
	}

	args := make([]string, 0, len(inv.Flags)+len(inv.Sources)+2)
	for _, f := range inv.Flags {
		if !sources[f] {
			args = append(args, f)
		}
	}
	if inv.Output != "" {
		args = append(args, "-o", inv.Output)
	}
	return append(args, inv.Sources...)
}

// Args returns the wrapper's argv after the command name.
func (inv Invocation) Args() []string {
	quoted := make([]string, 0, len(inv.Sources)+len(inv.Flags)+2)
	for _, a := range inv.Passthrough() {
		quoted = append(quoted, `"`+a+`"`)
	}
	return []string{"cc", "--passthrough", strings.Join(quoted, " ")}
}

// String renders the command line for display.
func (inv Invocation) String() string {
	return inv.Command + " " + strings.Join(inv.Args(), " ")
}

// Runner executes invocations.
type Runner struct {
	// Stdout and Stderr receive the wrapper's output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// Run executes inv and waits for it. A non-zero exit is a TOOLCHAIN_FAILURE.
func (r *Runner) Run(ctx context.Context, inv Invocation) error {
	logger := r.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if len(inv.Sources) == 0 {
		return ir.NewError(ir.ErrToolchainFailure, ir.StageToolchain, "", "no compilation units to build")
	}

	path, err := exec.LookPath(inv.Command)
	if err != nil {
		return ir.WrapError(ir.ErrToolchainFailure, ir.StageToolchain, "", "compiler wrapper not found", err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, inv.Args()...)
	cmd.Stdout = r.Stdout
	if r.Stderr != nil {
		cmd.Stderr = io.MultiWriter(r.Stderr, &stderr)
	} else {
		cmd.Stderr = &stderr
	}

	logger.Info("invoking toolchain", "stage", ir.StageToolchain, "command", inv.String(), "count", len(inv.Sources))
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return ir.WrapError(ir.ErrToolchainFailure, ir.StageToolchain, inv.Output, "compiler wrapper failed", err)
	}
	logger.Info("firmware built", "stage", ir.StageToolchain, "file", inv.Output)
	return nil
}
