package transpile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/roach88/picbridge/internal/ir"
)

// DefaultFallbackTimeout bounds the manual transpilation process.
const DefaultFallbackTimeout = 2 * time.Minute

// Fallback runs a project-local manual transpilation script when no
// transpiler is installed. The script runs with Dir as its working directory
// and must populate Dir/OutputSubdir with one C file per C++ unit.
type Fallback struct {
	Dir          string
	Interpreter  string
	Script       string
	OutputSubdir string
	Timeout      time.Duration
	EntryName    string
	Logger       *slog.Logger
}

// Available reports why the fallback cannot run, or nil if it can.
func (f *Fallback) Available() error {
	info, err := os.Stat(f.Dir)
	if err != nil {
		return fmt.Errorf("fallback directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("fallback directory %s is not a directory", f.Dir)
	}
	if _, err := os.Stat(filepath.Join(f.Dir, f.Script)); err != nil {
		return fmt.Errorf("fallback script: %w", err)
	}
	if _, err := exec.LookPath(f.Interpreter); err != nil {
		return fmt.Errorf("fallback interpreter: %w", err)
	}
	return nil
}

// Run executes the script once and returns every produced C file as a unit.
// Roles are assigned by stem afterwards, so the entry file (if any) carries
// RoleEntry.
func (f *Fallback) Run(ctx context.Context) ([]ir.TranspiledUnit, error) {
	logger := f.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	fail := func(msg string, err error) ([]ir.TranspiledUnit, error) {
		return nil, ir.WrapError(ir.ErrTranspilerUnavailable, ir.StageFallback, f.Dir, msg, err)
	}

	if err := f.Available(); err != nil {
		return fail("manual transpilation fallback unavailable", err)
	}

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultFallbackTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.Info("running manual transpilation fallback",
		"stage", ir.StageFallback,
		"dir", f.Dir,
		"script", f.Script,
		"timeout", timeout)

	cmd := exec.CommandContext(runCtx, f.Interpreter, f.Script)
	cmd.Dir = f.Dir
	cmd.WaitDelay = time.Second
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fail(fmt.Sprintf("manual transpilation timed out after %s", timeout), runCtx.Err())
	}
	if err != nil {
		if msg := strings.TrimSpace(output.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return fail("manual transpilation failed", err)
	}

	genDir := filepath.Join(f.Dir, f.OutputSubdir)
	info, err := os.Stat(genDir)
	if err != nil || !info.IsDir() {
		if err == nil {
			err = fmt.Errorf("%s is not a directory", genDir)
		}
		return fail("manual transpilation produced no output directory", err)
	}

	matches, err := filepath.Glob(filepath.Join(genDir, "*.c"))
	if err != nil {
		return fail("listing manual transpilation output", err)
	}
	sort.Strings(matches)

	units := make([]ir.TranspiledUnit, 0, len(matches))
	for _, m := range matches {
		data, err := os.ReadFile(m)
		if err != nil {
			return fail("reading manual transpilation output", err)
		}
		units = append(units, ir.TranspiledUnit{
			Source:     ir.SourceFile{Path: m, Kind: ir.KindCUnit},
			OutputPath: m,
			Content:    string(data),
			Role:       ir.RoleDependency,
		})
	}
	AssignRoles(units, f.EntryName)

	logger.Info("manual transpilation fallback succeeded", "stage", ir.StageFallback, "count", len(units))
	return units, nil
}
