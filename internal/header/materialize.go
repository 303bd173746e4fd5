package header

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/roach88/picbridge/internal/ir"
)

// Materializer writes the compatibility header and republishes project
// headers into the output directory. It must run before any unit is
// transpiled.
type Materializer struct {
	OutputDir  string
	Target     ir.TargetProfile
	StubHeader string
	Logger     *slog.Logger
}

// Result describes what Materialize wrote.
type Result struct {
	// CompatHeader is the absolute path of the generated compatibility header.
	CompatHeader string

	// Converted maps each object-oriented header to its procedural output.
	Converted map[string]string

	// Copied lists procedural headers copied into the output directory.
	Copied []string

	// Skipped lists procedural headers already living at their destination.
	Skipped []string
}

// Materialize verifies the stub header, writes the compatibility header and
// converts or copies every header. The first failure aborts the run.
func (m *Materializer) Materialize(headers []ir.SourceFile) (*Result, error) {
	logger := m.logger()

	stubPath, err := filepath.Abs(m.StubHeader)
	if err != nil {
		return nil, ir.WrapError(ir.ErrMissingCompatibilityStub, ir.StageMaterialize, m.StubHeader, "resolving stub header path", err)
	}
	if err := checkNonEmpty(stubPath); err != nil {
		return nil, ir.WrapError(ir.ErrMissingCompatibilityStub, ir.StageMaterialize, stubPath, "platform stub header not usable", err)
	}

	if err := os.MkdirAll(m.OutputDir, 0755); err != nil {
		return nil, ir.WrapError(ir.ErrHeaderConversionIO, ir.StageMaterialize, m.OutputDir, "creating output directory", err)
	}

	content, err := RenderCompatHeader(m.Target, stubPath)
	if err != nil {
		return nil, ir.WrapError(ir.ErrHeaderConversionIO, ir.StageMaterialize, "", "rendering compatibility header", err)
	}
	compatPath := filepath.Join(m.OutputDir, CompatHeaderName)
	if err := os.WriteFile(compatPath, content, 0644); err != nil {
		return nil, ir.WrapError(ir.ErrHeaderConversionIO, ir.StageMaterialize, compatPath, "writing compatibility header", err)
	}
	logger.Info("compatibility header written",
		"stage", ir.StageMaterialize,
		"file", compatPath,
		"device", m.Target.DeviceID,
		"clock_hz", StripClockSuffix(m.Target.ClockHz))

	res := &Result{
		CompatHeader: compatPath,
		Converted:    make(map[string]string),
	}

	for _, h := range headers {
		switch h.Kind {
		case ir.KindHeaderCpp:
			out, err := m.convert(h)
			if err != nil {
				return nil, err
			}
			res.Converted[h.Path] = out
			logger.Debug("header converted", "stage", ir.StageMaterialize, "file", h.Path, "output", out)

		case ir.KindHeaderC:
			dest := filepath.Join(m.OutputDir, filepath.Base(h.Path))
			if sameFile(h.Path, dest) {
				res.Skipped = append(res.Skipped, h.Path)
				logger.Debug("header already in output directory", "stage", ir.StageMaterialize, "file", h.Path)
				continue
			}
			if err := copyFile(h.Path, dest); err != nil {
				return nil, ir.WrapError(ir.ErrHeaderConversionIO, ir.StageMaterialize, h.Path, "copying header", err)
			}
			res.Copied = append(res.Copied, dest)
			logger.Debug("header copied", "stage", ir.StageMaterialize, "file", h.Path, "output", dest)
		}
	}

	logger.Info("headers materialized",
		"stage", ir.StageMaterialize,
		"converted", len(res.Converted),
		"copied", len(res.Copied),
		"skipped", len(res.Skipped))

	return res, nil
}

func (m *Materializer) convert(h ir.SourceFile) (string, error) {
	data, err := os.ReadFile(h.Path)
	if err != nil {
		return "", ir.WrapError(ir.ErrHeaderConversionIO, ir.StageMaterialize, h.Path, "reading header", err)
	}
	out := filepath.Join(m.OutputDir, ConvertedName(h.Stem()))
	if err := os.WriteFile(out, []byte(ConvertHeader(string(data))), 0644); err != nil {
		return "", ir.WrapError(ir.ErrHeaderConversionIO, ir.StageMaterialize, out, "writing converted header", err)
	}
	return out, nil
}

func (m *Materializer) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// checkNonEmpty returns an error unless path is a non-empty regular file.
func checkNonEmpty(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%s is empty", path)
	}
	return nil
}

// CheckCompatHeader verifies the compatibility header in outputDir exists
// and is non-empty.
func CheckCompatHeader(outputDir string) error {
	path := filepath.Join(outputDir, CompatHeaderName)
	if err := checkNonEmpty(path); err != nil {
		return ir.WrapError(ir.ErrMissingCompatibilityStub, ir.StageTranspile, path, "compatibility header missing or empty", err)
	}
	return nil
}

// sameFile reports whether a and b resolve to the same file on disk.
func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

// copyFile copies src to dst, keeping the mode and modification time.
func copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}
