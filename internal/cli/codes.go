package cli

import (
	"errors"

	"github.com/roach88/picbridge/internal/config"
	"github.com/roach88/picbridge/internal/ir"
)

// Error codes (E210-E299). E200-E209 belong to configuration validation.
const (
	ErrCodeMissingStub      = "E210" // platform stub or compatibility header missing
	ErrCodeNoTranspiler     = "E211" // neither transpiler nor fallback usable
	ErrCodeUnitTranspile    = "E212" // a C++ unit failed to transpile
	ErrCodeNoEntry          = "E213" // no entry unit
	ErrCodeAmbiguousEntry   = "E214" // more than one entry unit
	ErrCodeHeaderIO         = "E215" // header conversion read/write failure
	ErrCodeConfigInvalid    = "E216" // configuration rejected
	ErrCodeToolchainFailure = "E217" // compiler wrapper failed
	ErrCodeWriteFailed      = "E218" // writing a requested output file failed
	ErrCodeUnitIO           = "E219" // a compilation unit could not be read or written
	ErrCodeGeneric          = "E299" // anything else
)

var kindCodes = map[ir.ErrorKind]string{
	ir.ErrMissingCompatibilityStub: ErrCodeMissingStub,
	ir.ErrTranspilerUnavailable:    ErrCodeNoTranspiler,
	ir.ErrUnitTranspileFailure:     ErrCodeUnitTranspile,
	ir.ErrNoEntryUnit:              ErrCodeNoEntry,
	ir.ErrAmbiguousEntrySet:        ErrCodeAmbiguousEntry,
	ir.ErrHeaderConversionIO:       ErrCodeHeaderIO,
	ir.ErrUnitIO:                   ErrCodeUnitIO,
	ir.ErrConfigInvalid:            ErrCodeConfigInvalid,
	ir.ErrToolchainFailure:         ErrCodeToolchainFailure,
}

// errorCode maps a pipeline error to its stable CLI code.
func errorCode(err error) string {
	if code, ok := kindCodes[ir.KindOf(err)]; ok {
		return code
	}
	return ErrCodeGeneric
}

// exitCode maps a pipeline error to the process exit code. Configuration
// problems are command errors; everything else is a build failure.
func exitCode(err error) int {
	if ir.IsKind(err, ir.ErrConfigInvalid) {
		return ExitCommandError
	}
	return ExitFailure
}

// errorDetails returns the stage and file of a structured error.
func errorDetails(err error) map[string]string {
	var pe *ir.Error
	if !errors.As(err, &pe) {
		return nil
	}
	d := map[string]string{"kind": string(pe.Kind)}
	if pe.Stage != "" {
		d["stage"] = pe.Stage
	}
	if pe.File != "" {
		d["file"] = pe.File
	}
	return d
}

// outputError writes err and returns the matching ExitError.
func outputError(formatter *OutputFormatter, err error) error {
	code := errorCode(err)
	_ = formatter.Error(code, err.Error(), errorDetails(err))
	return WrapExitError(exitCode(err), code, err)
}

// outputValidationErrors writes every rejected configuration field.
func outputValidationErrors(formatter *OutputFormatter, errs []config.ValidationError) error {
	_ = formatter.Error(errs[0].Code, errs[0].Field+": "+errs[0].Message, errs)
	return NewExitError(ExitCommandError, errs[0].Error())
}
