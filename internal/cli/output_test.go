package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/picbridge/internal/config"
	"github.com/roach88/picbridge/internal/ir"
)

const testRunID = "0193c0de-0000-7000-8000-000000000001"

func sampleReport() BuildReport {
	return BuildReport{
		Strategy: ir.StrategyStubTemplateMain,
		BuildSet: []string{"/work/blink/generated_c/main.c", "/work/blink/uart.c"},
		Diagnostics: []ir.Diagnostic{{
			Stage:    ir.StageSynthesize,
			Severity: ir.SeverityWarning,
			Message:  "no main() found",
		}},
		Command: `xc8-wrapper cc --passthrough "-mcpu=pic16f876a"`,
	}
}

func TestOutputFormatter_JSONBuildReport(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf, RunID: testRunID}

	require.NoError(t, formatter.Success(sampleReport()))

	var resp struct {
		Status string      `json:"status"`
		Data   BuildReport `json:"data"`
		RunID  string      `json:"run_id"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, testRunID, resp.RunID)
	assert.Equal(t, sampleReport(), resp.Data)
	assert.NotContains(t, buf.String(), `"excluded"`)
}

func TestOutputFormatter_TextBuildReport(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, RunID: testRunID}

	require.NoError(t, formatter.Success(sampleReport()))
	assert.Contains(t, buf.String(), "Entry strategy: stub_template_main\n")
	assert.Contains(t, buf.String(), "  warning [synthesize] no main() found\n")
	assert.NotContains(t, buf.String(), testRunID)
}

func TestOutputError_PipelineErrorJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf, RunID: testRunID}

	cause := ir.NewError(ir.ErrUnitTranspileFailure, ir.StageTranspile, "/work/blink/helpers.cpp", "xc8plusplus exited 1")
	err := outputError(formatter, cause)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, testRunID, resp.RunID)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeUnitTranspile, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "xc8plusplus exited 1")
	assert.Equal(t, map[string]any{
		"kind":  "UNIT_TRANSPILE_FAILURE",
		"stage": "transpile",
		"file":  "/work/blink/helpers.cpp",
	}, resp.Error.Details)
}

func TestOutputError_TextDetailsNeedVerbose(t *testing.T) {
	cause := ir.NewError(ir.ErrMissingCompatibilityStub, ir.StageMaterialize, "/work/blink/pic_universal_stubs.h", "stub header missing")

	buf := &bytes.Buffer{}
	quiet := &OutputFormatter{Format: "text", Writer: buf}
	_ = outputError(quiet, cause)
	assert.Contains(t, buf.String(), "Error [E210]: MISSING_COMPATIBILITY_STUB: stub header missing")
	assert.NotContains(t, buf.String(), "  stage:")

	buf.Reset()
	verbose := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}
	_ = outputError(verbose, cause)
	assert.Contains(t, buf.String(),
		"  file: /work/blink/pic_universal_stubs.h\n  kind: MISSING_COMPATIBILITY_STUB\n  stage: materialize\n")
}

func TestOutputValidationErrors(t *testing.T) {
	errs := []config.ValidationError{
		{Field: "target.clock_hz", Message: "invalid value", Code: config.ErrSchemaMismatch},
		{Field: "fallback.timeout", Message: `"0s" is not a positive duration`, Code: config.ErrBadTimeout},
	}

	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}
	err := outputValidationErrors(formatter, errs)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp struct {
		Error struct {
			Code    string                   `json:"code"`
			Message string                   `json:"message"`
			Details []config.ValidationError `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, config.ErrSchemaMismatch, resp.Error.Code)
	assert.Equal(t, "target.clock_hz: invalid value", resp.Error.Message)
	assert.Equal(t, errs, resp.Error.Details)

	buf.Reset()
	text := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}
	_ = outputValidationErrors(text, errs)
	assert.Contains(t, buf.String(), "Error [E201]: target.clock_hz: invalid value\n")
	assert.Contains(t, buf.String(), "Details: [")
	assert.Contains(t, buf.String(), "fallback.timeout")
}

func TestOutputFormatter_VerboseLogGoesToErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}

	formatter.VerboseLog("loaded %s", "picbridge.yaml")
	assert.Empty(t, out.String())
	assert.Equal(t, "loaded picbridge.yaml\n", errOut.String())

	formatter.Verbose = false
	formatter.VerboseLog("dropped")
	assert.NotContains(t, errOut.String(), "dropped")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))
	assert.Equal(t, ExitFailure, GetExitCode(WrapExitError(ExitFailure, "E212", assert.AnError)))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
}
