package record

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/picbridge/internal/ir"
)

// Summary is the stored row of one run.
type Summary struct {
	ID           string      `json:"id"`
	Device       string      `json:"device"`
	ClockHz      string      `json:"clock_hz"`
	EntryName    string      `json:"entry_name"`
	Strategy     ir.Strategy `json:"strategy"`
	UsedFallback bool        `json:"used_fallback"`
	Status       string      `json:"status"`
	ErrorKind    string      `json:"error_kind,omitempty"`
	ErrorFile    string      `json:"error_file,omitempty"`
}

// UnitRow is one stored transpiled unit.
type UnitRow struct {
	SourcePath    string  `json:"source_path"`
	OutputPath    string  `json:"output_path"`
	Role          ir.Role `json:"role"`
	ContentSHA256 string  `json:"content_sha256"`
}

// ErrNoRun is returned when the record holds no run.
var ErrNoRun = errors.New("no run recorded")

// LatestRun returns the most recently started run.
func (s *Store) LatestRun(ctx context.Context) (*Summary, error) {
	var sum Summary
	var strategy string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, device, clock_hz, entry_name, strategy, used_fallback, status, error_kind, error_file
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT 1
	`).Scan(&sum.ID, &sum.Device, &sum.ClockHz, &sum.EntryName, &strategy, &sum.UsedFallback,
		&sum.Status, &sum.ErrorKind, &sum.ErrorFile)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRun
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	sum.Strategy = ir.Strategy(strategy)
	return &sum, nil
}

// Units returns a run's transpiled units in production order.
func (s *Store) Units(ctx context.Context, runID string) ([]UnitRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT source_path, output_path, role, content_sha256
		FROM units WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("units: %w", err)
	}
	defer rows.Close()

	var out []UnitRow
	for rows.Next() {
		var u UnitRow
		var role string
		if err := rows.Scan(&u.SourcePath, &u.OutputPath, &role, &u.ContentSHA256); err != nil {
			return nil, fmt.Errorf("units: %w", err)
		}
		u.Role = ir.Role(role)
		out = append(out, u)
	}
	return out, rows.Err()
}

// BuildSet returns a run's compilation units in order.
func (s *Store) BuildSet(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM build_set WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("build set: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("build set: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Diagnostics returns a run's diagnostics in order.
func (s *Store) Diagnostics(ctx context.Context, runID string) ([]ir.Diagnostic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT stage, severity, file, message FROM diagnostics WHERE run_id = ? ORDER BY seq
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: %w", err)
	}
	defer rows.Close()

	var out []ir.Diagnostic
	for rows.Next() {
		var d ir.Diagnostic
		var sev string
		if err := rows.Scan(&d.Stage, &sev, &d.File, &d.Message); err != nil {
			return nil, fmt.Errorf("diagnostics: %w", err)
		}
		d.Severity = ir.Severity(sev)
		out = append(out, d)
	}
	return out, rows.Err()
}
