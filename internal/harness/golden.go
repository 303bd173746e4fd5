package harness

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/picbridge/internal/ir"
)

// Snapshot renders a deterministic text description of a run: outcome,
// build set, units, diagnostics and the final entry unit content. Paths are
// project-relative.
func Snapshot(name string, r *Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "scenario: %s\n", name)

	kind := string(ir.KindOf(r.Err))
	if r.Err != nil && kind == "" {
		kind = "untyped"
	}
	fmt.Fprintf(&b, "error: %s\n", orNone(kind))

	pr := r.Pipeline
	strategy := ""
	if pr != nil {
		strategy = string(pr.Strategy)
	}
	fmt.Fprintf(&b, "strategy: %s\n", orNone(strategy))

	var buildSet, units, diags []string
	var entryPath, entryContent string
	if pr != nil {
		if pr.BuildSet != nil {
			for _, u := range pr.BuildSet.Units {
				buildSet = append(buildSet, r.Rel(u))
			}
		}
		for _, u := range pr.Units {
			units = append(units, string(u.Role)+" "+r.Rel(u.OutputPath))
			if u.Role == ir.RoleEntry {
				entryPath, entryContent = r.Rel(u.OutputPath), u.Content
			}
		}
		for _, d := range pr.Diagnostics {
			diags = append(diags, fmt.Sprintf("%s %s: %s", d.Severity, d.Stage, d.Message))
		}
	}
	writeList(&b, "build_set", buildSet)
	writeList(&b, "units", units)
	writeList(&b, "diagnostics", diags)

	if entryPath != "" {
		fmt.Fprintf(&b, "--- %s\n", entryPath)
		b.WriteString(entryContent)
	}
	return []byte(b.String())
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func writeList(b *strings.Builder, label string, items []string) {
	fmt.Fprintf(b, "%s:\n", label)
	if len(items) == 0 {
		b.WriteString("  (none)\n")
		return
	}
	for _, it := range items {
		fmt.Fprintf(b, "  - %s\n", it)
	}
}

// RunWithGolden executes a scenario in a temporary directory, fails the test
// for every unmet expectation, and compares the snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario, t.TempDir())
	if err != nil {
		return nil, err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, Snapshot(scenario.Name, result))

	return result, nil
}
