// Package pipeline runs the build stages in order:
//
//	classify -> materialize -> transpile (or fallback) -> synthesize -> assemble
//
// Stages run sequentially and the first fatal error ends the run. A failed
// run never returns a build set.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/picbridge/internal/buildset"
	"github.com/roach88/picbridge/internal/config"
	"github.com/roach88/picbridge/internal/entry"
	"github.com/roach88/picbridge/internal/header"
	"github.com/roach88/picbridge/internal/ir"
	"github.com/roach88/picbridge/internal/record"
	"github.com/roach88/picbridge/internal/source"
	"github.com/roach88/picbridge/internal/toolchain"
	"github.com/roach88/picbridge/internal/transpile"
)

// Result is everything a run produced. On failure the fields filled before
// the failing stage are kept for reporting, but BuildSet is always nil.
type Result struct {
	// RunID identifies the run in the build record; empty when recording
	// is disabled or failed.
	RunID string `json:"run_id,omitempty"`

	Classification source.Classification `json:"classification"`
	Headers        *header.Result        `json:"headers,omitempty"`
	Units          []ir.TranspiledUnit   `json:"units,omitempty"`
	UsedFallback   bool                  `json:"used_fallback"`
	Strategy       ir.Strategy           `json:"strategy,omitempty"`
	BuildSet       *buildset.BuildSet    `json:"build_set,omitempty"`
	Invocation     *toolchain.Invocation `json:"invocation,omitempty"`
	Diagnostics    []ir.Diagnostic       `json:"diagnostics,omitempty"`
}

// Pipeline holds one configured build. Create a new Pipeline per run; the
// entry synthesizer it owns applies at most once.
type Pipeline struct {
	cfg    *config.Config
	logger *slog.Logger
	names  transpile.NameGenerator

	transpiler    transpile.Transpiler
	transpilerSet bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTranspiler uses t instead of resolving the configured transpiler
// command. A nil t means no transpiler is available, which forces the
// manual fallback.
func WithTranspiler(t transpile.Transpiler) Option {
	return func(p *Pipeline) {
		p.transpiler = t
		p.transpilerSet = true
	}
}

// WithNameGenerator sets the generator for temporary unit names.
func WithNameGenerator(g transpile.NameGenerator) Option {
	return func(p *Pipeline) {
		p.names = g
	}
}

// WithLogger sets the logger. Defaults to discarding output.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// New creates a Pipeline for a resolved, validated configuration.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:    cfg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		names:  transpile.UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes every stage once and, when enabled, records the outcome in
// the output directory. A record that cannot be written is logged and does
// not fail the run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	started := time.Now()
	res, err := p.run(ctx)
	if p.cfg.Record {
		if recErr := p.writeRecord(ctx, started, res, err); recErr != nil {
			p.logger.Warn("build record not written", "file", p.RecordPath(), "error", recErr)
		}
	}
	return res, err
}

// RecordPath is where the build record is written.
func (p *Pipeline) RecordPath() string {
	return filepath.Join(p.cfg.OutputDir, record.FileName)
}

func (p *Pipeline) writeRecord(ctx context.Context, started time.Time, res *Result, runErr error) error {
	if err := os.MkdirAll(p.cfg.OutputDir, 0755); err != nil {
		return err
	}
	store, err := record.Create(p.RecordPath())
	if err != nil {
		return err
	}
	defer store.Close()

	run := record.Run{
		StartedAt:    started,
		FinishedAt:   time.Now(),
		SourceDir:    p.cfg.SourceDir,
		OutputDir:    p.cfg.OutputDir,
		Target:       p.cfg.TargetProfile(),
		EntryName:    p.cfg.EntryName,
		Strategy:     res.Strategy,
		UsedFallback: res.UsedFallback,
		Units:        res.Units,
		Diagnostics:  res.Diagnostics,
		Err:          runErr,
	}
	if res.BuildSet != nil {
		run.BuildSet = res.BuildSet.Units
	}

	id, err := store.WriteRun(ctx, run)
	if err != nil {
		return err
	}
	res.RunID = id
	p.logger.Debug("build record written", "file", p.RecordPath(), "run_id", id)
	return nil
}

func (p *Pipeline) run(ctx context.Context) (*Result, error) {
	cfg := p.cfg
	res := &Result{}

	files, err := p.sourceFiles()
	if err != nil {
		return res, err
	}
	res.Classification = source.Classify(files)
	cls := res.Classification
	p.logger.Info("sources classified",
		"stage", ir.StageClassify,
		"cpp_units", len(cls.CppUnits),
		"c_units", len(cls.CUnits),
		"headers", len(cls.Headers))

	if len(cls.CppUnits) == 0 {
		return p.assembleCOnly(res)
	}

	m := &header.Materializer{
		OutputDir:  cfg.OutputDir,
		Target:     cfg.TargetProfile(),
		StubHeader: cfg.StubHeader,
		Logger:     p.logger,
	}
	res.Headers, err = m.Materialize(cls.Headers)
	if err != nil {
		return res, err
	}

	units, err := p.transpile(ctx, res, cls.CppUnits)
	if err != nil {
		return res, err
	}
	res.Units = units

	idx, err := entryIndex(units)
	if err != nil {
		return res, err
	}

	synth := &entry.Synthesizer{
		EntryName: cfg.EntryName,
		Lifecycle: entry.Lifecycle{Init: cfg.Lifecycle.Init, Run: cfg.Lifecycle.Run},
		Logger:    p.logger,
	}
	outcome, err := synth.Apply(units[idx])
	if err != nil {
		return res, err
	}
	units[idx].Content = outcome.Content
	res.Strategy = outcome.Strategy
	res.Diagnostics = append(res.Diagnostics, outcome.Diagnostics...)

	generated := []string{cfg.OutputDir}
	if res.UsedFallback {
		generated = append(generated, cfg.FallbackOutputDir())
	}
	entryUnit := units[idx]
	bs, err := buildset.Assemble(&entryUnit, cls.CUnits, generated...)
	if err != nil {
		return res, err
	}
	return p.finish(res, bs)
}

func (p *Pipeline) assembleCOnly(res *Result) (*Result, error) {
	p.logger.Info("no C++ units; skipping transpilation", "stage", ir.StageClassify)
	bs, err := buildset.Assemble(nil, res.Classification.CUnits, p.cfg.OutputDir)
	if err != nil {
		return res, err
	}
	if bs.Len() == 0 {
		return res, ir.NewError(ir.ErrNoEntryUnit, ir.StageAssemble, p.cfg.SourceDir, "no compilation units found")
	}
	return p.finish(res, bs)
}

func (p *Pipeline) finish(res *Result, bs *buildset.BuildSet) (*Result, error) {
	flags, err := toolchain.Flags(p.cfg.TargetProfile(), p.cfg.BuildFlags)
	if err != nil {
		return res, ir.WrapError(ir.ErrConfigInvalid, ir.StageAssemble, "", "building toolchain flags", err)
	}

	output := p.cfg.Toolchain.Output
	if output == "" {
		output = filepath.Join(p.cfg.OutputDir, toolchain.DefaultOutputName)
	}
	res.BuildSet = bs
	res.Invocation = &toolchain.Invocation{
		Command: p.cfg.Toolchain.Command,
		Flags:   flags,
		Output:  output,
		Sources: bs.Units,
	}
	p.logger.Info("build set assembled",
		"stage", ir.StageAssemble,
		"count", bs.Len(),
		"excluded", len(bs.Excluded),
		"strategy", res.Strategy)
	return res, nil
}

// sourceFiles returns the configured file list, or enumerates the source
// directory when none is configured.
func (p *Pipeline) sourceFiles() ([]string, error) {
	if len(p.cfg.Files) > 0 {
		return p.cfg.Files, nil
	}
	files, err := source.Enumerate(p.cfg.SourceDir, transpile.TempPrefix, p.cfg.Fallback.Dir)
	if err != nil {
		return nil, ir.WrapError(ir.ErrConfigInvalid, ir.StageClassify, p.cfg.SourceDir, "enumerating source directory", err)
	}
	return files, nil
}

// transpile runs the driver, or the manual fallback when no transpiler is
// available. The fallback is attempted exactly once.
func (p *Pipeline) transpile(ctx context.Context, res *Result, units []ir.SourceFile) ([]ir.TranspiledUnit, error) {
	t := p.transpiler
	if !p.transpilerSet {
		ct, err := transpile.NewCommandTranspiler(p.cfg.Transpiler.Command)
		if err == nil {
			t = ct
		} else {
			p.logger.Warn("transpiler unavailable", "stage", ir.StageTranspile, "error", err)
		}
	}

	if t != nil {
		d := transpile.NewDriver(t, transpile.DriverOptions{
			OutputDir:    p.cfg.OutputDir,
			EntryName:    p.cfg.EntryName,
			IncludePaths: p.cfg.Transpiler.IncludePaths,
			Names:        p.names,
			Logger:       p.logger,
		})
		return d.Run(ctx, units)
	}

	timeout, err := p.cfg.FallbackTimeout()
	if err != nil {
		return nil, err
	}
	fb := &transpile.Fallback{
		Dir:          p.cfg.Fallback.Dir,
		Interpreter:  p.cfg.Fallback.Interpreter,
		Script:       p.cfg.Fallback.Script,
		OutputSubdir: p.cfg.Fallback.OutputSubdir,
		Timeout:      timeout,
		EntryName:    p.cfg.EntryName,
		Logger:       p.logger,
	}
	res.UsedFallback = true
	res.Diagnostics = append(res.Diagnostics, ir.Diagnostic{
		Stage:    ir.StageFallback,
		Severity: ir.SeverityInfo,
		File:     fb.Dir,
		Message:  "transpiler unavailable; using manual transpilation fallback",
	})

	produced, err := fb.Run(ctx)
	if err != nil {
		return nil, err
	}
	if len(produced) < len(units) {
		p.logger.Warn("manual transpilation produced fewer files than C++ units",
			"stage", ir.StageFallback,
			"count", len(produced),
			"units", len(units))
	}
	return produced, nil
}

// entryIndex returns the position of the single entry unit.
func entryIndex(units []ir.TranspiledUnit) (int, error) {
	if _, err := buildset.SelectEntry(units); err != nil {
		return -1, err
	}
	for i := range units {
		if units[i].Role == ir.RoleEntry {
			return i, nil
		}
	}
	return -1, ir.NewError(ir.ErrNoEntryUnit, ir.StageAssemble, "", "entry unit not found")
}

// Run is a convenience wrapper around New(cfg, opts...).Run(ctx).
func Run(ctx context.Context, cfg *config.Config, opts ...Option) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("pipeline: nil config")
	}
	return New(cfg, opts...).Run(ctx)
}
