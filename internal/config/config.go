// Package config holds the explicit configuration value threaded through
// every pipeline stage. No stage reads ambient process state.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/roach88/picbridge/internal/ir"
)

// Default values.
const (
	DefaultOutputSubdir    = "generated_c"
	DefaultEntryName       = "main"
	DefaultDevice          = "pic16f876a"
	DefaultClockHz         = "4000000L"
	DefaultTranspiler      = "xc8plusplus"
	DefaultFallbackDir     = "cpp-multi"
	DefaultFallbackScript  = "manual_transpile.py"
	DefaultInterpreter     = "python3"
	DefaultFallbackTimeout = "2m"
	DefaultToolchain       = "xc8-wrapper"
	DefaultStubHeader      = "pic_universal_stubs.h"
)

// Config is the resolved build configuration.
type Config struct {
	SourceDir  string   `json:"source_dir" yaml:"source_dir" toml:"source_dir"`
	OutputDir  string   `json:"output_dir" yaml:"output_dir" toml:"output_dir"`
	EntryName  string   `json:"entry_name" yaml:"entry_name" toml:"entry_name"`
	Files      []string `json:"files" yaml:"files" toml:"files"`
	BuildFlags []string `json:"build_flags" yaml:"build_flags" toml:"build_flags"`

	Target     Target     `json:"target" yaml:"target" toml:"target"`
	Lifecycle  Lifecycle  `json:"lifecycle" yaml:"lifecycle" toml:"lifecycle"`
	Transpiler Transpiler `json:"transpiler" yaml:"transpiler" toml:"transpiler"`
	Fallback   Fallback   `json:"fallback" yaml:"fallback" toml:"fallback"`

	StubHeader string    `json:"stub_header" yaml:"stub_header" toml:"stub_header"`
	Toolchain  Toolchain `json:"toolchain" yaml:"toolchain" toml:"toolchain"`

	// Record enables the build.db run record in the output directory.
	Record bool `json:"record" yaml:"record" toml:"record"`
}

// Target is the device being built for.
type Target struct {
	Device  string `json:"device" yaml:"device" toml:"device"`
	ClockHz string `json:"clock_hz" yaml:"clock_hz" toml:"clock_hz"`
}

// Lifecycle names the initialize-once and run-repeatedly callbacks.
type Lifecycle struct {
	Init string `json:"init" yaml:"init" toml:"init"`
	Run  string `json:"run" yaml:"run" toml:"run"`
}

// Transpiler configures the external C++ to C transpiler. An empty Command
// disables it, which forces the manual fallback.
type Transpiler struct {
	Command      string   `json:"command" yaml:"command" toml:"command"`
	IncludePaths []string `json:"include_paths" yaml:"include_paths" toml:"include_paths"`
}

// Fallback configures the project-local manual transpilation procedure.
type Fallback struct {
	Dir          string `json:"dir" yaml:"dir" toml:"dir"`
	Interpreter  string `json:"interpreter" yaml:"interpreter" toml:"interpreter"`
	Script       string `json:"script" yaml:"script" toml:"script"`
	OutputSubdir string `json:"output_subdir" yaml:"output_subdir" toml:"output_subdir"`
	Timeout      string `json:"timeout" yaml:"timeout" toml:"timeout"`
}

// Toolchain configures the compiler wrapper that receives the build set.
type Toolchain struct {
	Command string `json:"command" yaml:"command" toml:"command"`
	Output  string `json:"output" yaml:"output" toml:"output"`
}

// Default returns the configuration used when nothing is overridden.
// OutputDir stays empty until Resolve derives it from SourceDir.
func Default() *Config {
	return &Config{
		SourceDir: ".",
		EntryName: DefaultEntryName,
		Target: Target{
			Device:  DefaultDevice,
			ClockHz: DefaultClockHz,
		},
		Lifecycle: Lifecycle{Init: "setup", Run: "loop"},
		Transpiler: Transpiler{
			Command: DefaultTranspiler,
		},
		Fallback: Fallback{
			Dir:          DefaultFallbackDir,
			Interpreter:  DefaultInterpreter,
			Script:       DefaultFallbackScript,
			OutputSubdir: DefaultOutputSubdir,
			Timeout:      DefaultFallbackTimeout,
		},
		StubHeader: DefaultStubHeader,
		Toolchain:  Toolchain{Command: DefaultToolchain},
		Record:     true,
	}
}

// Load reads a YAML (.yaml, .yml) or TOML (.toml) file on top of the
// defaults. A relative source_dir is taken relative to the file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ir.WrapError(ir.ErrConfigInvalid, ir.StageConfig, path, "reading config file", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, ir.WrapError(ir.ErrConfigInvalid, ir.StageConfig, path, "parsing YAML config", err)
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, ir.WrapError(ir.ErrConfigInvalid, ir.StageConfig, path, "parsing TOML config", err)
		}
	default:
		return nil, ir.NewError(ir.ErrConfigInvalid, ir.StageConfig, path,
			fmt.Sprintf("unsupported config extension %q (want .yaml, .yml or .toml)", filepath.Ext(path)))
	}

	if !filepath.IsAbs(cfg.SourceDir) {
		cfg.SourceDir = filepath.Join(filepath.Dir(path), cfg.SourceDir)
	}
	return cfg, nil
}

// Resolve makes every directory absolute. output_dir defaults to
// <source_dir>/generated_c; other relative paths are taken relative to
// source_dir.
func (c *Config) Resolve() error {
	src, err := filepath.Abs(c.SourceDir)
	if err != nil {
		return ir.WrapError(ir.ErrConfigInvalid, ir.StageConfig, c.SourceDir, "resolving source directory", err)
	}
	c.SourceDir = src

	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputSubdir
	}
	c.OutputDir = c.under(c.OutputDir)
	c.Fallback.Dir = c.under(c.Fallback.Dir)
	if c.StubHeader != "" {
		c.StubHeader = c.under(c.StubHeader)
	}
	if c.Toolchain.Output != "" {
		c.Toolchain.Output = c.under(c.Toolchain.Output)
	}
	for i, f := range c.Files {
		c.Files[i] = c.under(f)
	}
	return nil
}

func (c *Config) under(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.SourceDir, p)
}

// TargetProfile returns the target as the pipeline sees it.
func (c *Config) TargetProfile() ir.TargetProfile {
	return ir.TargetProfile{DeviceID: c.Target.Device, ClockHz: c.Target.ClockHz}
}

// FallbackTimeout parses the fallback timeout.
func (c *Config) FallbackTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Fallback.Timeout)
	if err != nil {
		return 0, ir.WrapError(ir.ErrConfigInvalid, ir.StageConfig, "", "parsing fallback timeout", err)
	}
	if d <= 0 {
		return 0, ir.NewError(ir.ErrConfigInvalid, ir.StageConfig, "", "fallback timeout must be positive")
	}
	return d, nil
}

// FallbackOutputDir is where the manual procedure leaves its C files.
func (c *Config) FallbackOutputDir() string {
	return filepath.Join(c.Fallback.Dir, c.Fallback.OutputSubdir)
}
