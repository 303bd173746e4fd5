package harness

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/picbridge/internal/ir"
)

// Scenario defines one end-to-end build scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Files maps project-relative paths to their content.
	Files map[string]string `yaml:"files"`

	// EntryName overrides the entry unit name.
	EntryName string `yaml:"entry_name,omitempty"`

	// Lifecycle overrides the lifecycle callback names.
	Lifecycle *LifecycleNames `yaml:"lifecycle,omitempty"`

	// BuildFlags are passed through to the toolchain invocation.
	BuildFlags []string `yaml:"build_flags,omitempty"`

	Transpiler TranspilerBehavior `yaml:"transpiler,omitempty"`

	// FallbackScript is the manual transpilation script, run with sh from
	// the fallback directory when the transpiler is unavailable.
	FallbackScript string `yaml:"fallback_script,omitempty"`

	Expect Expectation `yaml:"expect"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// LifecycleNames names the lifecycle callbacks.
type LifecycleNames struct {
	Init string `yaml:"init"`
	Run  string `yaml:"run"`
}

// TranspilerBehavior configures the fake transpiler.
type TranspilerBehavior struct {
	// Available defaults to true. False forces the manual fallback.
	Available *bool `yaml:"available,omitempty"`

	// FailOn names a unit (base name) whose transpilation fails.
	FailOn string `yaml:"fail_on,omitempty"`

	// Outputs replaces the produced text for a unit (base name).
	Outputs map[string]string `yaml:"outputs,omitempty"`
}

// IsAvailable reports whether a transpiler is present.
func (b TranspilerBehavior) IsAvailable() bool {
	return b.Available == nil || *b.Available
}

// Expectation describes the expected outcome of the run.
type Expectation struct {
	// Error is the expected error kind; empty means success.
	Error string `yaml:"error,omitempty"`

	// Strategy is the expected entry strategy; empty means none.
	Strategy string `yaml:"strategy,omitempty"`

	// BuildSet lists the expected compilation units in order.
	BuildSet []string `yaml:"build_set,omitempty"`

	// Diagnostics is the expected number of diagnostics, if set.
	Diagnostics *int `yaml:"diagnostics,omitempty"`
}

// Assertion checks a file in the project tree after the run.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Path is project-relative.
	Path string `yaml:"path"`

	// Text is used by file_contains and file_not_contains.
	Text string `yaml:"text,omitempty"`
}

// Assertion type constants.
const (
	AssertFileContains    = "file_contains"
	AssertFileNotContains = "file_not_contains"
	AssertFileExists      = "file_exists"
	AssertFileAbsent      = "file_absent"
)

var knownErrorKinds = map[string]bool{
	string(ir.ErrMissingCompatibilityStub): true,
	string(ir.ErrTranspilerUnavailable):    true,
	string(ir.ErrUnitTranspileFailure):     true,
	string(ir.ErrNoEntryUnit):              true,
	string(ir.ErrAmbiguousEntrySet):        true,
	string(ir.ErrHeaderConversionIO):       true,
	string(ir.ErrUnitIO):                   true,
	string(ir.ErrConfigInvalid):            true,
}

var knownStrategies = map[string]bool{
	string(ir.StrategyPassthrough):              true,
	string(ir.StrategySynthesizedLifecycleMain): true,
	string(ir.StrategyStubTemplateMain):         true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Files) == 0 {
		return fmt.Errorf("files map is required and must be non-empty")
	}
	for p := range s.Files {
		if err := checkRelative(p); err != nil {
			return fmt.Errorf("files[%q]: %w", p, err)
		}
	}

	if s.Expect.Error != "" && !knownErrorKinds[s.Expect.Error] {
		return fmt.Errorf("expect.error: unknown error kind %q", s.Expect.Error)
	}
	if s.Expect.Strategy != "" && !knownStrategies[s.Expect.Strategy] {
		return fmt.Errorf("expect.strategy: unknown strategy %q", s.Expect.Strategy)
	}
	if s.Expect.Error != "" && len(s.Expect.BuildSet) > 0 {
		return fmt.Errorf("expect: a failing run has no build set")
	}
	if !s.Transpiler.IsAvailable() && s.FallbackScript == "" {
		return fmt.Errorf("fallback_script is required when transpiler.available is false")
	}
	if s.Lifecycle != nil && (s.Lifecycle.Init == "" || s.Lifecycle.Run == "") {
		return fmt.Errorf("lifecycle: init and run are both required")
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if err := checkRelative(a.Path); err != nil {
		return fmt.Errorf("assertions[%d]: path: %w", index, err)
	}
	switch a.Type {
	case AssertFileContains, AssertFileNotContains:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: %s requires text", index, a.Type)
		}
	case AssertFileExists, AssertFileAbsent:
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", index, a.Type)
	}
	return nil
}

// checkRelative rejects empty, absolute and escaping paths.
func checkRelative(p string) error {
	if p == "" {
		return fmt.Errorf("path is required")
	}
	if path.IsAbs(p) || strings.HasPrefix(p, "\\") {
		return fmt.Errorf("path %q must be relative", p)
	}
	clean := path.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("path %q escapes the project", p)
	}
	return nil
}
