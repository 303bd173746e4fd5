package transpile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/picbridge/internal/header"
	"github.com/roach88/picbridge/internal/ir"
)

// TempPrefix starts the base name of every temporary augmented unit.
const TempPrefix = "temp_"

// DriverOptions configures a Driver.
type DriverOptions struct {
	OutputDir    string
	EntryName    string
	IncludePaths []string

	// Names generates the unique part of temporary unit names.
	// If nil, defaults to UUIDv7Generator.
	Names NameGenerator

	Logger *slog.Logger
}

// Driver transpiles C++ units one at a time, in order.
type Driver struct {
	transpiler Transpiler
	opts       DriverOptions
	logger     *slog.Logger
}

// NewDriver creates a driver around t. Include paths are pushed into t once
// here if it implements IncludePathConfigurer.
func NewDriver(t Transpiler, opts DriverOptions) *Driver {
	if opts.Names == nil {
		opts.Names = UUIDv7Generator{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if c, ok := t.(IncludePathConfigurer); ok {
		for _, p := range opts.IncludePaths {
			c.AddIncludePath(p)
		}
		logger.Debug("transpiler include paths configured", "stage", ir.StageTranspile, "count", len(opts.IncludePaths))
	} else if len(opts.IncludePaths) > 0 {
		logger.Warn("transpiler does not accept include paths; ignoring them", "stage", ir.StageTranspile, "count", len(opts.IncludePaths))
	}

	return &Driver{transpiler: t, opts: opts, logger: logger}
}

// Run transpiles every unit. The compatibility header must already exist in
// the output directory. The first failure aborts the run and no units are
// returned.
func (d *Driver) Run(ctx context.Context, units []ir.SourceFile) ([]ir.TranspiledUnit, error) {
	if err := header.CheckCompatHeader(d.opts.OutputDir); err != nil {
		return nil, err
	}

	produced := make([]ir.TranspiledUnit, 0, len(units))
	for _, u := range units {
		tu, err := d.transpileOne(ctx, u)
		if err != nil {
			d.logger.Error("unit transpile failed", "stage", ir.StageTranspile, "unit", u.Path, "error", err)
			return nil, err
		}
		d.logger.Info("unit transpiled",
			"stage", ir.StageTranspile,
			"unit", u.Path,
			"output", tu.OutputPath,
			"role", tu.Role)
		produced = append(produced, tu)
	}
	return produced, nil
}

func (d *Driver) transpileOne(ctx context.Context, u ir.SourceFile) (ir.TranspiledUnit, error) {
	fail := func(msg string, err error) (ir.TranspiledUnit, error) {
		return ir.TranspiledUnit{}, ir.WrapError(ir.ErrUnitTranspileFailure, ir.StageTranspile, u.Path, msg, err)
	}

	original, err := os.ReadFile(u.Path)
	if err != nil {
		return fail("reading unit", err)
	}

	tmp := filepath.Join(d.opts.OutputDir, TempPrefix+d.opts.Names.Generate()+"_"+filepath.Base(u.Path))
	if err := os.WriteFile(tmp, []byte(Augment(string(original))), 0644); err != nil {
		return fail("writing augmented unit", err)
	}
	defer func() {
		if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
			d.logger.Warn("removing augmented unit", "stage", ir.StageTranspile, "file", tmp, "error", err)
		}
	}()

	out := OutputPath(d.opts.OutputDir, u.Path)
	if err := os.Remove(out); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fail("removing previous output", err)
	}

	if err := d.transpiler.Transpile(ctx, tmp, out); err != nil {
		return fail("transpiler reported failure", err)
	}

	produced, err := os.ReadFile(out)
	if err != nil {
		return fail("transpiler produced no output", err)
	}
	content := RestoreMasterInclude(string(produced))
	if err := os.WriteFile(out, []byte(content), 0644); err != nil {
		return fail("writing post-processed output", err)
	}

	role := ir.RoleDependency
	if ir.IsEntryName(u.Path, d.opts.EntryName) {
		role = ir.RoleEntry
	}

	return ir.TranspiledUnit{
		Source:     u,
		OutputPath: out,
		Content:    content,
		Role:       role,
	}, nil
}

// Augment builds the temporary unit text: object-oriented header includes are
// rewritten to the procedural suffix and the compatibility header is
// included first.
func Augment(content string) string {
	return header.CompatInclude + "\n" + header.RewriteIncludes(content)
}

// RestoreMasterInclude replaces every compatibility include with the real
// platform include.
func RestoreMasterInclude(content string) string {
	return strings.ReplaceAll(content, header.CompatInclude, header.MasterInclude)
}

// OutputPath returns the produced C file path for a C++ unit.
func OutputPath(outputDir, unitPath string) string {
	return filepath.Join(outputDir, ir.Stem(unitPath)+".c")
}

// AssignRoles marks the units whose stem matches entryName as RoleEntry and
// every other unit as RoleDependency.
func AssignRoles(units []ir.TranspiledUnit, entryName string) {
	for i := range units {
		if ir.IsEntryName(units[i].OutputPath, entryName) {
			units[i].Role = ir.RoleEntry
		} else {
			units[i].Role = ir.RoleDependency
		}
	}
}
