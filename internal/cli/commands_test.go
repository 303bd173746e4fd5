package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/picbridge/internal/header"
	"github.com/roach88/picbridge/internal/ir"
)

// execute runs the root command with args and returns stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestClassifyDirectory(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"main.cpp", "uart.c", "led.hpp", "pins.h", "README.md", "temp_x_main.cpp"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("\n"), 0644))
	}

	out, err := execute(t, "classify", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "C++ units (1):\n  "+filepath.Join(dir, "main.cpp"))
	assert.Contains(t, out, "C units (1):\n  "+filepath.Join(dir, "uart.c"))
	assert.Contains(t, out, "Headers (2):")
	assert.NotContains(t, out, "README.md")
	assert.NotContains(t, out, "temp_x_main.cpp")
}

func TestClassifyFilesJSON(t *testing.T) {
	dir := t.TempDir()
	cpp := filepath.Join(dir, "timer.cxx")
	require.NoError(t, os.WriteFile(cpp, []byte("\n"), 0644))

	out, err := execute(t, "--format", "json", "classify", cpp)
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			CppUnits []ir.SourceFile `json:"cpp_units"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.CppUnits, 1)
	assert.Equal(t, cpp, resp.Data.CppUnits[0].Path)
}

func TestClassifyMissingPath(t *testing.T) {
	_, err := execute(t, "classify", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestHeaderToStdout(t *testing.T) {
	stubs := filepath.Join(t.TempDir(), header.StubHeaderName)

	out, err := execute(t, "header", "--device", "pic18f4550", "--f-cpu", "20000000UL", "--stubs", stubs)
	require.NoError(t, err)

	want, err := header.RenderCompatHeader(ir.TargetProfile{DeviceID: "pic18f4550", ClockHz: "20000000UL"}, stubs)
	require.NoError(t, err)
	assert.Equal(t, string(want), out)
}

func TestHeaderToFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, header.CompatHeaderName)

	out, err := execute(t, "header", "--stubs", filepath.Join(dir, "stubs.h"), "-o", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(data), "#define _XTAL_FREQ 4000000")
	assert.Contains(t, string(data), "__PIC16F876A__")
}

func TestHeaderRejectsBadClock(t *testing.T) {
	out, err := execute(t, "header", "--f-cpu", "4MHz")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "target.clock_hz")
}

func TestStubsWritesShippedHeader(t *testing.T) {
	target := filepath.Join(t.TempDir(), "include", header.StubHeaderName)

	out, err := execute(t, "stubs", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+target)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, header.StubHeader(), data)
}

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		kind ir.ErrorKind
		code string
		exit int
	}{
		{ir.ErrMissingCompatibilityStub, ErrCodeMissingStub, ExitFailure},
		{ir.ErrTranspilerUnavailable, ErrCodeNoTranspiler, ExitFailure},
		{ir.ErrUnitTranspileFailure, ErrCodeUnitTranspile, ExitFailure},
		{ir.ErrNoEntryUnit, ErrCodeNoEntry, ExitFailure},
		{ir.ErrAmbiguousEntrySet, ErrCodeAmbiguousEntry, ExitFailure},
		{ir.ErrHeaderConversionIO, ErrCodeHeaderIO, ExitFailure},
		{ir.ErrUnitIO, ErrCodeUnitIO, ExitFailure},
		{ir.ErrConfigInvalid, ErrCodeConfigInvalid, ExitCommandError},
		{ir.ErrToolchainFailure, ErrCodeToolchainFailure, ExitFailure},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := ir.NewError(tt.kind, ir.StageTranspile, "main.cpp", "boom")
			assert.Equal(t, tt.code, errorCode(err))
			assert.Equal(t, tt.exit, exitCode(err))
			assert.Equal(t, map[string]string{"kind": string(tt.kind), "stage": "transpile", "file": "main.cpp"}, errorDetails(err))
		})
	}

	assert.Equal(t, ErrCodeGeneric, errorCode(assert.AnError))
	assert.Nil(t, errorDetails(assert.AnError))
}
