package ir

import (
	"path/filepath"
	"strings"
)

// Kind classifies a project file by its filename suffix.
type Kind string

const (
	// KindCppUnit is a C++ translation unit (.cpp, .cxx, .cc).
	KindCppUnit Kind = "cpp_unit"

	// KindCUnit is a C translation unit (.c).
	KindCUnit Kind = "c_unit"

	// KindHeaderCpp is an object-oriented dialect header (.hpp, .hxx).
	KindHeaderCpp Kind = "header_cpp"

	// KindHeaderC is a procedural dialect header (.h).
	KindHeaderC Kind = "header_c"
)

// IsHeader reports whether the kind is one of the header kinds.
func (k Kind) IsHeader() bool {
	return k == KindHeaderCpp || k == KindHeaderC
}

// SourceFile is a classified project file.
// Identity is the absolute path.
type SourceFile struct {
	Path string `json:"path"`
	Kind Kind   `json:"kind"`
}

// Stem returns the base name without its final suffix.
func (f SourceFile) Stem() string {
	return Stem(f.Path)
}

// Stem returns the base name of path with its final suffix removed.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// TargetProfile describes the device being built for.
// ClockHz keeps the literal as configured (e.g. "4000000L").
type TargetProfile struct {
	DeviceID string `json:"device_id"`
	ClockHz  string `json:"clock_hz"`
}

// Role marks whether a transpiled unit is compiled into the firmware.
type Role string

const (
	// RoleEntry is the single unit that resolves to the program entry point.
	RoleEntry Role = "entry"

	// RoleDependency is produced only for the transpiler's whole-program
	// analysis and is excluded from the compiled set.
	RoleDependency Role = "dependency"
)

// TranspiledUnit is the procedural output produced for one C++ unit.
type TranspiledUnit struct {
	// Source is the original C++ unit. For units discovered through the
	// manual fallback, Source.Path is the produced file itself.
	Source SourceFile `json:"source"`

	// OutputPath is the absolute path of the produced C file.
	OutputPath string `json:"output_path"`

	// Content is the produced C text after post-processing.
	Content string `json:"-"`

	Role Role `json:"role"`
}

// IsEntryName reports whether path's stem equals entryName, ignoring case.
func IsEntryName(path, entryName string) bool {
	return strings.EqualFold(Stem(path), entryName)
}

// Strategy is the entry-point strategy chosen for the entry unit.
type Strategy string

const (
	// StrategyNone means no synthesis ran (C-only project).
	StrategyNone Strategy = ""

	// StrategyPassthrough leaves an existing explicit entry function untouched.
	StrategyPassthrough Strategy = "passthrough"

	// StrategySynthesizedLifecycleMain appends an entry function driving the
	// lifecycle callbacks.
	StrategySynthesizedLifecycleMain Strategy = "synthesized_lifecycle_main"

	// StrategyStubTemplateMain appends placeholder lifecycle callbacks and the
	// synthesized entry function.
	StrategyStubTemplateMain Strategy = "stub_template_main"
)

// Severity grades a diagnostic.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic is a non-fatal message recorded during a run.
type Diagnostic struct {
	Stage    string   `json:"stage"`
	Severity Severity `json:"severity"`
	File     string   `json:"file,omitempty"`
	Message  string   `json:"message"`
}

// Stage names used in diagnostics, errors and logs.
const (
	StageClassify    = "classify"
	StageMaterialize = "materialize"
	StageTranspile   = "transpile"
	StageFallback    = "fallback"
	StageSynthesize  = "synthesize"
	StageAssemble    = "assemble"
	StageConfig      = "config"
	StageToolchain   = "toolchain"
)
