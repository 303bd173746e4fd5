package transpile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrUnavailable is returned when the transpiler executable cannot be found.
var ErrUnavailable = errors.New("transpiler unavailable")

// Transpiler converts one C++ translation unit into one C file.
// A nil error means outputPath was produced.
type Transpiler interface {
	Transpile(ctx context.Context, inputPath, outputPath string) error
}

// IncludePathConfigurer is implemented by transpilers that accept extra
// include search paths. The driver resolves this capability once, at
// construction.
type IncludePathConfigurer interface {
	AddIncludePath(path string)
}

// CommandTranspiler runs an external transpiler executable:
//
//	<command> [-I <path>]... <input> -o <output>
type CommandTranspiler struct {
	path         string
	includePaths []string
}

// NewCommandTranspiler resolves command on PATH.
// Returns an error wrapping ErrUnavailable if it cannot be found.
func NewCommandTranspiler(command string) (*CommandTranspiler, error) {
	if command == "" {
		return nil, fmt.Errorf("%w: no command configured", ErrUnavailable)
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &CommandTranspiler{path: path}, nil
}

// Path returns the resolved executable path.
func (c *CommandTranspiler) Path() string {
	return c.path
}

// AddIncludePath appends an include search path.
func (c *CommandTranspiler) AddIncludePath(path string) {
	c.includePaths = append(c.includePaths, path)
}

// Args returns the argument list for one invocation.
func (c *CommandTranspiler) Args(inputPath, outputPath string) []string {
	args := make([]string, 0, 2*len(c.includePaths)+3)
	for _, p := range c.includePaths {
		args = append(args, "-I", p)
	}
	return append(args, inputPath, "-o", outputPath)
}

// Transpile runs the executable and reports a non-zero exit as an error
// carrying the tool's stderr.
func (c *CommandTranspiler) Transpile(ctx context.Context, inputPath, outputPath string) error {
	cmd := exec.CommandContext(ctx, c.path, c.Args(inputPath, outputPath)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}
