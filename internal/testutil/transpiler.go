package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Call records one Transpile invocation.
type Call struct {
	Input        string
	Output       string
	InputContent string
}

// CopyTranspiler is a fake transpiler that writes its input to its output,
// optionally passing it through Transform first.
//
// Thread-safety: safe for concurrent use via internal mutex.
type CopyTranspiler struct {
	// Transform receives the original unit base name (see UnitName) and the
	// augmented input text, and returns the text to write.
	Transform func(unit, content string) string

	mu    sync.Mutex
	calls []Call
}

// Transpile implements the transpiler contract.
func (c *CopyTranspiler) Transpile(ctx context.Context, inputPath, outputPath string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.calls = append(c.calls, Call{Input: inputPath, Output: outputPath, InputContent: string(data)})
	c.mu.Unlock()

	content := string(data)
	if c.Transform != nil {
		content = c.Transform(UnitName(filepath.Base(inputPath)), content)
	}
	return os.WriteFile(outputPath, []byte(content), 0644)
}

// Calls returns a copy of the recorded calls.
func (c *CopyTranspiler) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// FailingTranspiler fails for the unit named FailOn and copies every other
// unit through Inner.
type FailingTranspiler struct {
	Inner  *CopyTranspiler
	FailOn string
}

// Transpile implements the transpiler contract.
func (f *FailingTranspiler) Transpile(ctx context.Context, inputPath, outputPath string) error {
	if UnitName(filepath.Base(inputPath)) == f.FailOn {
		return fmt.Errorf("fake transpiler: cannot transpile %s", f.FailOn)
	}
	return f.Inner.Transpile(ctx, inputPath, outputPath)
}

// SilentTranspiler reports success without writing any output.
type SilentTranspiler struct{}

// Transpile implements the transpiler contract.
func (SilentTranspiler) Transpile(ctx context.Context, inputPath, outputPath string) error {
	return nil
}

// IncludeTranspiler is a CopyTranspiler that also accepts include paths.
type IncludeTranspiler struct {
	CopyTranspiler
	IncludePaths []string
}

// AddIncludePath records p.
func (t *IncludeTranspiler) AddIncludePath(p string) {
	t.IncludePaths = append(t.IncludePaths, p)
}
