package entry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/picbridge/internal/ir"
)

func TestProbe(t *testing.T) {
	content := "#include <xc.h>\nvoid setup(void) {}\nvoid loop(void) {}\n"
	p := Probe(content, DefaultLifecycle)
	assert.Equal(t, Probes{HasInitializer: true, HasRunLoop: true}, p)

	p = Probe("int main(void) { return 0; }\n", DefaultLifecycle)
	assert.Equal(t, Probes{HasExplicitEntry: true}, p)

	p = Probe("void main(void) {}\n", DefaultLifecycle)
	assert.True(t, p.HasExplicitEntry)

	p = Probe("void initialize(void) {}\nvoid run(void) {}\n", Lifecycle{Init: "initialize", Run: "run"})
	assert.Equal(t, Probes{HasInitializer: true, HasRunLoop: true}, p)
}

func TestDecideIsExhaustive(t *testing.T) {
	tests := []struct {
		probes Probes
		want   ir.Strategy
	}{
		{Probes{false, false, false}, ir.StrategyStubTemplateMain},
		{Probes{true, false, false}, ir.StrategyStubTemplateMain},
		{Probes{false, true, false}, ir.StrategyStubTemplateMain},
		{Probes{true, true, false}, ir.StrategySynthesizedLifecycleMain},
		{Probes{false, false, true}, ir.StrategyPassthrough},
		{Probes{true, false, true}, ir.StrategyPassthrough},
		{Probes{false, true, true}, ir.StrategyPassthrough},
		{Probes{true, true, true}, ir.StrategyPassthrough},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Decide(tt.probes), "probes %+v", tt.probes)
	}
}

func TestRenderLifecycleMain(t *testing.T) {
	got := Render(ir.StrategySynthesizedLifecycleMain, Probes{true, true, false}, Lifecycle{Init: "initialize", Run: "run"})
	want := "\n/* Entry point supplied by picbridge: initialize() runs once, then run() runs forever. */\n" +
		"void main(void) {\n" +
		"    initialize();\n" +
		"    while (1) {\n" +
		"        run();\n" +
		"    }\n" +
		"}\n"
	assert.Equal(t, want, got)
}

func TestRenderStubOnlyMissingCallbacks(t *testing.T) {
	got := Render(ir.StrategyStubTemplateMain, Probes{HasInitializer: true}, DefaultLifecycle)
	assert.NotContains(t, got, "void setup(void) {")
	assert.Contains(t, got, "void loop(void) {\n    /* TODO: add code that runs repeatedly here */\n}\n")
	assert.True(t, strings.HasSuffix(got, "        loop();\n    }\n}\n"))

	assert.Empty(t, Render(ir.StrategyPassthrough, Probes{HasExplicitEntry: true}, DefaultLifecycle))
}

func TestAppendKeepsLineBreak(t *testing.T) {
	assert.Equal(t, "int a;\n\nx", Append("int a;", "\nx"))
	assert.Equal(t, "int a;\n\nx", Append("int a;\n", "\nx"))
	assert.Equal(t, "int a;", Append("int a;", ""))
}

func writeEntry(t *testing.T, content string) ir.TranspiledUnit {
	t.Helper()
	dir := t.TempDir()
	out := filepath.Join(dir, "main.c")
	require.NoError(t, os.WriteFile(out, []byte(content), 0644))
	return ir.TranspiledUnit{
		Source:     ir.SourceFile{Path: filepath.Join(dir, "main.cpp"), Kind: ir.KindCppUnit},
		OutputPath: out,
		Content:    content,
		Role:       ir.RoleEntry,
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestApplyLifecycleMain(t *testing.T) {
	original := "#include <xc.h>\nvoid initialize(void) { TRISB = 0; }\nvoid run(void) { PORTB ^= 1; }\n"
	unit := writeEntry(t, original)
	s := &Synthesizer{EntryName: "main", Lifecycle: Lifecycle{Init: "initialize", Run: "run"}}

	out, err := s.Apply(unit)
	require.NoError(t, err)
	assert.Equal(t, ir.StrategySynthesizedLifecycleMain, out.Strategy)
	assert.Empty(t, out.Diagnostics)

	got := readFile(t, unit.OutputPath)
	assert.True(t, strings.HasPrefix(got, original), "existing text is kept")
	assert.True(t, strings.HasSuffix(got, "void main(void) {\n    initialize();\n    while (1) {\n        run();\n    }\n}\n"))
	assert.Equal(t, 1, strings.Count(got, "initialize();"))
	assert.Equal(t, got, out.Content)
}

func TestApplyPassthroughLeavesFileUntouched(t *testing.T) {
	original := "#include <xc.h>\nint main(void) {\n    return 0;\n}\n"
	unit := writeEntry(t, original)
	s := &Synthesizer{EntryName: "main"}

	out, err := s.Apply(unit)
	require.NoError(t, err)
	assert.Equal(t, ir.StrategyPassthrough, out.Strategy)
	assert.Equal(t, original, readFile(t, unit.OutputPath))
}

func TestApplyStubTemplateMain(t *testing.T) {
	original := "#include <xc.h>\ntypedef struct { int pin; } Led;\n"
	unit := writeEntry(t, original)
	s := &Synthesizer{EntryName: "main", Lifecycle: DefaultLifecycle}

	out, err := s.Apply(unit)
	require.NoError(t, err)
	assert.Equal(t, ir.StrategyStubTemplateMain, out.Strategy)

	got := readFile(t, unit.OutputPath)
	setupAt := strings.Index(got, "void setup(void) {")
	loopAt := strings.Index(got, "void loop(void) {")
	mainAt := strings.Index(got, "void main(void) {")
	require.True(t, setupAt > 0 && loopAt > 0 && mainAt > 0)
	assert.Less(t, setupAt, mainAt)
	assert.Less(t, loopAt, mainAt)

	require.Len(t, out.Diagnostics, 1)
	d := out.Diagnostics[0]
	assert.Equal(t, ir.SeverityWarning, d.Severity)
	assert.Equal(t, ir.StageSynthesize, d.Stage)
	assert.Contains(t, d.Message, "setup() and loop()")
}

func TestApplyOnlyOnce(t *testing.T) {
	unit := writeEntry(t, "void setup(void) {}\nvoid loop(void) {}\n")
	s := &Synthesizer{EntryName: "main"}

	_, err := s.Apply(unit)
	require.NoError(t, err)
	_, err = s.Apply(unit)
	assert.ErrorIs(t, err, ErrAlreadyApplied)
	assert.Equal(t, 1, strings.Count(readFile(t, unit.OutputPath), "void main(void)"))
}

func TestApplyRejectsNonEntryUnit(t *testing.T) {
	unit := writeEntry(t, "int helper(void);\n")
	unit.Role = ir.RoleDependency
	s := &Synthesizer{EntryName: "main"}

	_, err := s.Apply(unit)
	require.Error(t, err)
	assert.True(t, ir.IsKind(err, ir.ErrNoEntryUnit))

	unit.Role = ir.RoleEntry
	unit.Source.Path = filepath.Join(filepath.Dir(unit.OutputPath), "app.cpp")
	_, err = s.Apply(unit)
	require.Error(t, err)
	assert.True(t, ir.IsKind(err, ir.ErrNoEntryUnit))
}

func TestApplyUnreadableEntryUnit(t *testing.T) {
	dir := t.TempDir()
	unit := ir.TranspiledUnit{
		Source:     ir.SourceFile{Path: filepath.Join(dir, "main.cpp"), Kind: ir.KindCppUnit},
		OutputPath: dir,
		Role:       ir.RoleEntry,
	}
	s := &Synthesizer{EntryName: "main"}

	_, err := s.Apply(unit)
	require.Error(t, err)
	assert.True(t, ir.IsKind(err, ir.ErrUnitIO))
	assert.False(t, ir.IsKind(err, ir.ErrNoEntryUnit))
	assert.Contains(t, err.Error(), "reading entry unit")
}
