package record

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/picbridge/internal/ir"
)

// Run is one pipeline invocation as recorded.
type Run struct {
	// ID is generated (UUIDv7) when empty.
	ID string

	StartedAt  time.Time
	FinishedAt time.Time

	SourceDir    string
	OutputDir    string
	Target       ir.TargetProfile
	EntryName    string
	Strategy     ir.Strategy
	UsedFallback bool

	Units       []ir.TranspiledUnit
	BuildSet    []string
	Diagnostics []ir.Diagnostic

	// Err is the fatal error that ended the run, nil on success.
	Err error
}

// Status values stored in runs.status.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ContentHash returns the hex SHA-256 of content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// WriteRun inserts run and its children in one transaction and returns the
// run id.
func (s *Store) WriteRun(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.Must(uuid.NewV7()).String()
	}

	status := StatusSucceeded
	var errKind, errStage, errFile, errMsg string
	if run.Err != nil {
		status = StatusFailed
		errMsg = run.Err.Error()
		var pe *ir.Error
		if errors.As(run.Err, &pe) {
			errKind = string(pe.Kind)
			errStage = pe.Stage
			errFile = pe.File
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, started_at, finished_at, source_dir, output_dir, device, clock_hz, entry_name,
		 strategy, used_fallback, status, error_kind, error_stage, error_file, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.SourceDir,
		run.OutputDir,
		run.Target.DeviceID,
		run.Target.ClockHz,
		run.EntryName,
		string(run.Strategy),
		run.UsedFallback,
		status,
		errKind,
		errStage,
		errFile,
		errMsg,
	)
	if err != nil {
		return "", fmt.Errorf("write run: %w", err)
	}

	for i, u := range run.Units {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO units (run_id, seq, source_path, output_path, role, content_sha256)
			VALUES (?, ?, ?, ?, ?, ?)
		`, run.ID, i, u.Source.Path, u.OutputPath, string(u.Role), ContentHash(u.Content))
		if err != nil {
			return "", fmt.Errorf("write run: unit %s: %w", u.OutputPath, err)
		}
	}

	for i, p := range run.BuildSet {
		if _, err := tx.ExecContext(ctx, `INSERT INTO build_set (run_id, seq, path) VALUES (?, ?, ?)`, run.ID, i, p); err != nil {
			return "", fmt.Errorf("write run: build set %s: %w", p, err)
		}
	}

	for i, d := range run.Diagnostics {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO diagnostics (run_id, seq, stage, severity, file, message)
			VALUES (?, ?, ?, ?, ?, ?)
		`, run.ID, i, d.Stage, string(d.Severity), d.File, d.Message)
		if err != nil {
			return "", fmt.Errorf("write run: diagnostic: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("write run: commit: %w", err)
	}
	return run.ID, nil
}
