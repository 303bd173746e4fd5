package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/picbridge/internal/config"
	"github.com/roach88/picbridge/internal/header"
	"github.com/roach88/picbridge/internal/ir"
	"github.com/roach88/picbridge/internal/pipeline"
	"github.com/roach88/picbridge/internal/testutil"
	"github.com/roach88/picbridge/internal/transpile"
)

// FallbackScriptName is the file the fallback script is written to.
const FallbackScriptName = "manual_transpile.sh"

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool

	// Errors lists the failed expectations and assertions.
	Errors []string

	// Root is the project directory the scenario ran in.
	Root string

	// Pipeline is the pipeline's own result.
	Pipeline *pipeline.Result

	// Err is the error the pipeline returned.
	Err error

	// Calls records the fake transpiler's invocations.
	Calls []testutil.Call
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Pass = false
}

// Rel returns p relative to the project root, with forward slashes.
func (r *Result) Rel(p string) string {
	rel, err := filepath.Rel(r.Root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

// Run lays the scenario's project out under workDir, runs the pipeline with
// a fake transpiler and evaluates the expectations.
//
// Execution flow:
// 1. Write project files and the platform stub header
// 2. Build a configuration for the project
// 3. Run the pipeline with deterministic temporary names
// 4. Compare outcome, build set and diagnostics, then run assertions
func Run(ctx context.Context, scenario *Scenario, workDir string) (*Result, error) {
	root := filepath.Join(workDir, "project")
	for rel, content := range scenario.Files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", rel, err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			return nil, fmt.Errorf("writing %s: %w", rel, err)
		}
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, err
	}

	stubs := filepath.Join(workDir, "stubs", header.StubHeaderName)
	if err := os.MkdirAll(filepath.Dir(stubs), 0755); err != nil {
		return nil, err
	}
	if err := header.WriteStubHeader(stubs); err != nil {
		return nil, fmt.Errorf("writing stub header: %w", err)
	}

	cfg, err := scenarioConfig(scenario, root, stubs)
	if err != nil {
		return nil, err
	}

	opts := []pipeline.Option{
		pipeline.WithNameGenerator(testutil.NewFixedNameGenerator("")),
		pipeline.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}

	copier := &testutil.CopyTranspiler{Transform: outputOverride(scenario.Transpiler.Outputs)}
	if scenario.Transpiler.IsAvailable() {
		var t transpile.Transpiler = copier
		if scenario.Transpiler.FailOn != "" {
			t = &testutil.FailingTranspiler{Inner: copier, FailOn: scenario.Transpiler.FailOn}
		}
		opts = append(opts, pipeline.WithTranspiler(t))
	} else {
		if err := writeFallbackScript(cfg.Fallback.Dir, scenario.FallbackScript); err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithTranspiler(nil))
	}

	pres, runErr := pipeline.Run(ctx, cfg, opts...)

	result := &Result{
		Pass:     true,
		Root:     root,
		Pipeline: pres,
		Err:      runErr,
		Calls:    copier.Calls(),
	}
	checkExpectations(scenario, result)
	for _, msg := range EvaluateAssertions(root, scenario.Assertions) {
		result.AddError("%s", msg)
	}
	return result, nil
}

func scenarioConfig(s *Scenario, root, stubs string) (*config.Config, error) {
	cfg := config.Default()
	cfg.SourceDir = root
	cfg.StubHeader = stubs
	cfg.Record = false
	cfg.BuildFlags = s.BuildFlags
	if s.EntryName != "" {
		cfg.EntryName = s.EntryName
	}
	if s.Lifecycle != nil {
		cfg.Lifecycle = config.Lifecycle{Init: s.Lifecycle.Init, Run: s.Lifecycle.Run}
	}
	if !s.Transpiler.IsAvailable() {
		cfg.Fallback.Interpreter = "sh"
		cfg.Fallback.Script = FallbackScriptName
	}

	if err := cfg.Resolve(); err != nil {
		return nil, err
	}
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func writeFallbackScript(dir, script string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating fallback directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FallbackScriptName), []byte(script), 0755); err != nil {
		return fmt.Errorf("writing fallback script: %w", err)
	}
	return nil
}

// outputOverride returns a transform producing the configured text for
// units listed in outputs and the input unchanged otherwise.
func outputOverride(outputs map[string]string) func(unit, content string) string {
	if len(outputs) == 0 {
		return nil
	}
	return func(unit, content string) string {
		if out, ok := outputs[unit]; ok {
			return out
		}
		return content
	}
}

func checkExpectations(s *Scenario, r *Result) {
	gotKind := string(ir.KindOf(r.Err))
	if r.Err != nil && gotKind == "" {
		gotKind = "untyped"
	}
	if gotKind != s.Expect.Error {
		r.AddError("error: expected %q, got %q (%v)", s.Expect.Error, gotKind, r.Err)
	}

	if r.Pipeline == nil {
		return
	}
	if got := string(r.Pipeline.Strategy); got != s.Expect.Strategy {
		r.AddError("strategy: expected %q, got %q", s.Expect.Strategy, got)
	}

	var got []string
	if r.Pipeline.BuildSet != nil {
		for _, u := range r.Pipeline.BuildSet.Units {
			got = append(got, r.Rel(u))
		}
	}
	if !equalStrings(got, s.Expect.BuildSet) {
		r.AddError("build_set: expected %v, got %v", s.Expect.BuildSet, got)
	}

	if s.Expect.Diagnostics != nil && len(r.Pipeline.Diagnostics) != *s.Expect.Diagnostics {
		r.AddError("diagnostics: expected %d, got %d", *s.Expect.Diagnostics, len(r.Pipeline.Diagnostics))
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
