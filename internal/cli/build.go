package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/picbridge/internal/config"
	"github.com/roach88/picbridge/internal/ir"
	"github.com/roach88/picbridge/internal/pipeline"
	"github.com/roach88/picbridge/internal/toolchain"
	"github.com/roach88/picbridge/internal/transpile"
)

// configNames are looked up in the source directory when --config is not
// given, in this order.
var configNames = []string{"picbridge.yaml", "picbridge.yml", "picbridge.toml"}

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	Config   string
	Source   string
	Output   string
	Device   string
	FCPU     string
	Entry    string
	Stubs    string
	NoRecord bool
	Compile  bool

	// Transpiler allows overriding the transpiler (for testing).
	// If nil, the configured transpiler command is resolved.
	Transpiler transpile.Transpiler

	// NameGenerator allows overriding temporary unit names (for testing).
	// If nil, defaults to UUIDv7Generator.
	NameGenerator transpile.NameGenerator
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	return newBuildCommand(&BuildOptions{RootOptions: rootOpts})
}

func newBuildCommand(opts *BuildOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Transpile a project and assemble its build set",
		Long: `Run the build pipeline over a project directory.

Configuration comes from defaults, then the config file (--config, or
picbridge.yaml / picbridge.toml in the source directory), then flags.
Without --compile the compiler wrapper command is only reported.

Example:
  picbridge build --source ./firmware
  picbridge build --config picbridge.toml --compile
  picbridge build --device pic18f4550 --f-cpu 20000000L --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "config file (.yaml, .yml or .toml)")
	cmd.Flags().StringVar(&opts.Source, "source", "", "project source directory (default \".\")")
	cmd.Flags().StringVar(&opts.Output, "output", "", "output directory (default <source>/generated_c)")
	cmd.Flags().StringVar(&opts.Device, "device", "", "target device id, e.g. pic16f876a")
	cmd.Flags().StringVar(&opts.FCPU, "f-cpu", "", "clock frequency literal, e.g. 4000000L")
	cmd.Flags().StringVar(&opts.Entry, "entry", "", "entry unit name (default main)")
	cmd.Flags().StringVar(&opts.Stubs, "stubs", "", "platform stub header path")
	cmd.Flags().BoolVar(&opts.NoRecord, "no-record", false, "do not write the build.db record")
	cmd.Flags().BoolVar(&opts.Compile, "compile", false, "run the compiler wrapper on the build set")

	return cmd
}

// BuildReport is the build command's success payload.
type BuildReport struct {
	Strategy     ir.Strategy     `json:"strategy,omitempty"`
	UsedFallback bool            `json:"used_fallback"`
	BuildSet     []string        `json:"build_set"`
	Excluded     []string        `json:"excluded,omitempty"`
	Diagnostics  []ir.Diagnostic `json:"diagnostics,omitempty"`
	Command      string          `json:"command"`
	Compiled     bool            `json:"compiled"`
	Record       string          `json:"record,omitempty"`
}

// String renders the report for text output.
func (r BuildReport) String() string {
	var b strings.Builder
	if r.Strategy != ir.StrategyNone {
		fmt.Fprintf(&b, "Entry strategy: %s\n", r.Strategy)
	} else {
		b.WriteString("Entry strategy: none (no C++ units)\n")
	}
	if r.UsedFallback {
		b.WriteString("Transpiled with the manual fallback\n")
	}
	fmt.Fprintf(&b, "Build set (%d):\n", len(r.BuildSet))
	for _, u := range r.BuildSet {
		fmt.Fprintf(&b, "  %s\n", u)
	}
	if len(r.Diagnostics) > 0 {
		b.WriteString("Diagnostics:\n")
		for _, d := range r.Diagnostics {
			fmt.Fprintf(&b, "  %s [%s] %s\n", d.Severity, d.Stage, d.Message)
		}
	}
	if r.Compiled {
		fmt.Fprintf(&b, "Compiled: %s\n", r.Command)
	} else {
		fmt.Fprintf(&b, "Compile with: %s\n", r.Command)
	}
	if r.Record != "" {
		fmt.Fprintf(&b, "Record: %s", r.Record)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func runBuild(opts *BuildOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := loadBuildConfig(opts, formatter)
	if err != nil {
		return outputError(formatter, err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}
	formatter.VerboseLog("Building %s into %s", cfg.SourceDir, cfg.OutputDir)

	pipeOpts := []pipeline.Option{pipeline.WithLogger(logger)}
	if opts.Transpiler != nil {
		pipeOpts = append(pipeOpts, pipeline.WithTranspiler(opts.Transpiler))
	}
	if opts.NameGenerator != nil {
		pipeOpts = append(pipeOpts, pipeline.WithNameGenerator(opts.NameGenerator))
	}

	// Use command's context if available (for testing), otherwise create one
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	p := pipeline.New(cfg, pipeOpts...)
	res, err := p.Run(ctx)
	if res != nil {
		formatter.RunID = res.RunID
	}
	if err != nil {
		return outputError(formatter, err)
	}

	report := BuildReport{
		Strategy:     res.Strategy,
		UsedFallback: res.UsedFallback,
		BuildSet:     res.BuildSet.Units,
		Excluded:     res.BuildSet.Excluded,
		Diagnostics:  res.Diagnostics,
		Command:      res.Invocation.String(),
	}
	if res.RunID != "" {
		report.Record = p.RecordPath()
	}

	if opts.Compile {
		runner := &toolchain.Runner{
			Stdout: formatter.GetErrWriter(),
			Stderr: cmd.ErrOrStderr(),
			Logger: logger,
		}
		if err := runner.Run(ctx, *res.Invocation); err != nil {
			return outputError(formatter, err)
		}
		report.Compiled = true
	}

	return formatter.Success(report)
}

// loadBuildConfig layers defaults, the config file and flags, then resolves
// paths. Flag paths are relative to the working directory.
func loadBuildConfig(opts *BuildOptions, formatter *OutputFormatter) (*config.Config, error) {
	path := opts.Config
	if path == "" {
		path = findConfig(opts.Source)
	}

	cfg := config.Default()
	if path != "" {
		formatter.VerboseLog("Using config %s", path)
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if opts.Source != "" {
		cfg.SourceDir = opts.Source
	}
	var err error
	if cfg.OutputDir, err = absFlag(opts.Output, cfg.OutputDir); err != nil {
		return nil, err
	}
	if cfg.StubHeader, err = absFlag(opts.Stubs, cfg.StubHeader); err != nil {
		return nil, err
	}
	if opts.Device != "" {
		cfg.Target.Device = opts.Device
	}
	if opts.FCPU != "" {
		cfg.Target.ClockHz = opts.FCPU
	}
	if opts.Entry != "" {
		cfg.EntryName = opts.Entry
	}
	if opts.NoRecord {
		cfg.Record = false
	}

	if err := cfg.Resolve(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// findConfig returns the first config file present in dir, or "".
func findConfig(dir string) string {
	if dir == "" {
		dir = "."
	}
	for _, name := range configNames {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

func absFlag(flag, current string) (string, error) {
	if flag == "" {
		return current, nil
	}
	abs, err := filepath.Abs(flag)
	if err != nil {
		return "", ir.WrapError(ir.ErrConfigInvalid, ir.StageConfig, flag, "resolving path", err)
	}
	return abs, nil
}
