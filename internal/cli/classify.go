package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/picbridge/internal/ir"
	"github.com/roach88/picbridge/internal/source"
	"github.com/roach88/picbridge/internal/transpile"
)

// NewClassifyCommand creates the classify command.
func NewClassifyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <dir-or-file>...",
		Short: "Show how project files are classified",
		Long: `Partition files into C++ units, C units and headers by suffix.

Directories are walked recursively (hidden directories and leftover temporary
units are skipped). Files with an unrecognized suffix are dropped.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(rootOpts, args, cmd)
		},
	}
	return cmd
}

// classifyReport wraps a classification for text output.
type classifyReport struct {
	source.Classification
}

func (r classifyReport) String() string {
	var b strings.Builder
	section := func(title string, files []ir.SourceFile) {
		fmt.Fprintf(&b, "%s (%d):\n", title, len(files))
		for _, f := range files {
			fmt.Fprintf(&b, "  %s\n", f.Path)
		}
	}
	section("C++ units", r.CppUnits)
	section("C units", r.CUnits)
	section("Headers", r.Headers)
	return strings.TrimSuffix(b.String(), "\n")
}

func runClassify(opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("path not found: %s", arg), nil)
			return WrapExitError(ExitCommandError, "path not found", err)
		}
		if !info.IsDir() {
			abs, err := filepath.Abs(arg)
			if err != nil {
				return WrapExitError(ExitCommandError, "resolving path", err)
			}
			paths = append(paths, abs)
			continue
		}

		files, err := source.Enumerate(arg, transpile.TempPrefix)
		if err != nil {
			_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("scanning %s: %v", arg, err), nil)
			return WrapExitError(ExitCommandError, "scanning directory", err)
		}
		formatter.VerboseLog("Found %d file(s) in %s", len(files), arg)
		paths = append(paths, files...)
	}

	return formatter.Success(classifyReport{source.Classify(paths)})
}
