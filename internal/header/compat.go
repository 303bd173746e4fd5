package header

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/picbridge/internal/ir"
)

const (
	// CompatHeaderName is the file name of the generated compatibility header.
	CompatHeaderName = "pic_includes.h"

	// CompatInclude is the directive prepended to augmented units.
	CompatInclude = `#include "` + CompatHeaderName + `"`

	// MasterInclude is the real platform master include.
	MasterInclude = "#include <xc.h>"

	// StubHeaderName is the conventional file name of the platform stub header.
	StubHeaderName = "pic_universal_stubs.h"
)

//go:embed templates/compat_header.h.tmpl
var compatTemplateText string

//go:embed stubs/pic_universal_stubs.h
var stubHeader []byte

var compatTemplate = template.Must(template.New("compat").Option("missingkey=error").Parse(compatTemplateText))

// compatBindings are the values available to the compatibility header template.
type compatBindings struct {
	Device       string
	DeviceUpper  string
	ClockHz      string
	CleanClockHz string
	StubsPath    string
}

// RenderCompatHeader renders the compatibility header for target.
// stubsPath is written with forward slashes.
func RenderCompatHeader(target ir.TargetProfile, stubsPath string) ([]byte, error) {
	b := compatBindings{
		Device:       target.DeviceID,
		DeviceUpper:  cases.Upper(language.Und).String(target.DeviceID),
		ClockHz:      target.ClockHz,
		CleanClockHz: StripClockSuffix(target.ClockHz),
		StubsPath:    filepath.ToSlash(stubsPath),
	}

	var buf bytes.Buffer
	if err := compatTemplate.Execute(&buf, b); err != nil {
		return nil, fmt.Errorf("render compatibility header: %w", err)
	}
	return buf.Bytes(), nil
}

// StubHeader returns the platform stub header shipped with picbridge.
func StubHeader() []byte {
	out := make([]byte, len(stubHeader))
	copy(out, stubHeader)
	return out
}

// WriteStubHeader writes the shipped platform stub header to path,
// creating parent directories as needed.
func WriteStubHeader(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create stub directory: %w", err)
	}
	if err := os.WriteFile(path, stubHeader, 0644); err != nil {
		return fmt.Errorf("write stub header: %w", err)
	}
	return nil
}
