package ir

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes pipeline failures.
type ErrorKind string

const (
	// ErrMissingCompatibilityStub indicates the platform stub header (or the
	// generated compatibility header) is absent before transpilation.
	ErrMissingCompatibilityStub ErrorKind = "MISSING_COMPATIBILITY_STUB"

	// ErrTranspilerUnavailable indicates neither the transpiler nor the
	// manual fallback procedure could be used.
	ErrTranspilerUnavailable ErrorKind = "TRANSPILER_UNAVAILABLE"

	// ErrUnitTranspileFailure indicates a single unit failed to transpile.
	// The whole run is aborted.
	ErrUnitTranspileFailure ErrorKind = "UNIT_TRANSPILE_FAILURE"

	// ErrNoEntryUnit indicates no unit's stem matched the entry name.
	ErrNoEntryUnit ErrorKind = "NO_ENTRY_UNIT"

	// ErrAmbiguousEntrySet indicates more than one entry unit. This is an
	// internal invariant violation.
	ErrAmbiguousEntrySet ErrorKind = "AMBIGUOUS_ENTRY_SET"

	// ErrHeaderConversionIO indicates a header could not be read or written.
	ErrHeaderConversionIO ErrorKind = "HEADER_CONVERSION_IO"

	// ErrUnitIO indicates a compilation unit could not be read, written or
	// located on disk.
	ErrUnitIO ErrorKind = "UNIT_IO"

	// ErrConfigInvalid indicates the configuration was rejected.
	ErrConfigInvalid ErrorKind = "CONFIG_INVALID"

	// ErrToolchainFailure indicates the compiler wrapper rejected the build set.
	ErrToolchainFailure ErrorKind = "TOOLCHAIN_FAILURE"
)

// Error is the structured error returned by every pipeline stage.
type Error struct {
	// Kind identifies the error category.
	Kind ErrorKind

	// Stage is the pipeline stage that failed.
	Stage string

	// File is the file that caused the failure, when known.
	File string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause (optional).
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.File != "" {
		msg = fmt.Sprintf("%s (stage=%s, file=%s)", msg, e.Stage, e.File)
	} else if e.Stage != "" {
		msg = fmt.Sprintf("%s (stage=%s)", msg, e.Stage)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error without an underlying cause.
func NewError(kind ErrorKind, stage, file, message string) *Error {
	return &Error{Kind: kind, Stage: stage, File: file, Message: message}
}

// WrapError creates an Error wrapping err.
func WrapError(kind ErrorKind, stage, file, message string, err error) *Error {
	return &Error{Kind: kind, Stage: stage, File: file, Message: message, Err: err}
}

// KindOf returns the ErrorKind of err, or "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
