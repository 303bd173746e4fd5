// Package entry supplies the program entry point for the entry unit.
//
// Detection is textual: the produced C text is searched for the lifecycle
// callback and entry function signatures ("void setup(", "void loop(",
// "void main(", "int main("). This is a heuristic, not a parse; a signature
// inside a comment or string literal still counts.
package entry

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/roach88/picbridge/internal/ir"
)

// ErrAlreadyApplied is returned when a Synthesizer is applied a second time.
var ErrAlreadyApplied = errors.New("entry synthesis already applied in this run")

// Lifecycle names the two lifecycle callbacks.
type Lifecycle struct {
	Init string
	Run  string
}

// DefaultLifecycle is the setup()/loop() convention.
var DefaultLifecycle = Lifecycle{Init: "setup", Run: "loop"}

// Probes holds the textual detection results for one unit.
type Probes struct {
	HasInitializer   bool `json:"has_initializer"`
	HasRunLoop       bool `json:"has_run_loop"`
	HasExplicitEntry bool `json:"has_explicit_entry"`
}

// Probe inspects content for the lifecycle callbacks and an entry function.
func Probe(content string, lc Lifecycle) Probes {
	return Probes{
		HasInitializer:   strings.Contains(content, "void "+lc.Init+"("),
		HasRunLoop:       strings.Contains(content, "void "+lc.Run+"("),
		HasExplicitEntry: strings.Contains(content, "void main(") || strings.Contains(content, "int main("),
	}
}

// Decide picks the strategy for a set of probes. Exactly one strategy
// applies to every combination.
func Decide(p Probes) ir.Strategy {
	switch {
	case p.HasExplicitEntry:
		return ir.StrategyPassthrough
	case p.HasInitializer && p.HasRunLoop:
		return ir.StrategySynthesizedLifecycleMain
	default:
		return ir.StrategyStubTemplateMain
	}
}

// Render returns the text appended to the entry unit for strategy.
// Passthrough appends nothing.
func Render(strategy ir.Strategy, p Probes, lc Lifecycle) string {
	var b strings.Builder
	switch strategy {
	case ir.StrategySynthesizedLifecycleMain:
		writeMain(&b, lc)
	case ir.StrategyStubTemplateMain:
		if !p.HasInitializer {
			writeStub(&b, lc.Init, "add initialization code here")
		}
		if !p.HasRunLoop {
			writeStub(&b, lc.Run, "add code that runs repeatedly here")
		}
		writeMain(&b, lc)
	}
	return b.String()
}

func writeStub(b *strings.Builder, name, todo string) {
	fmt.Fprintf(b, "\n/* Placeholder supplied by picbridge: implement %s(). */\n", name)
	fmt.Fprintf(b, "void %s(void) {\n", name)
	fmt.Fprintf(b, "    /* TODO: %s */\n", todo)
	b.WriteString("}\n")
}

func writeMain(b *strings.Builder, lc Lifecycle) {
	fmt.Fprintf(b, "\n/* Entry point supplied by picbridge: %s() runs once, then %s() runs forever. */\n", lc.Init, lc.Run)
	b.WriteString("void main(void) {\n")
	fmt.Fprintf(b, "    %s();\n", lc.Init)
	b.WriteString("    while (1) {\n")
	fmt.Fprintf(b, "        %s();\n", lc.Run)
	b.WriteString("    }\n")
	b.WriteString("}\n")
}

// Append adds appendix to content, keeping a line break between them.
func Append(content, appendix string) string {
	if appendix == "" {
		return content
	}
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + appendix
}

// Outcome describes what Apply did.
type Outcome struct {
	Strategy    ir.Strategy
	Probes      Probes
	Content     string
	Diagnostics []ir.Diagnostic
}

// Synthesizer applies entry-point synthesis to the entry unit once per run.
type Synthesizer struct {
	EntryName string
	Lifecycle Lifecycle
	Logger    *slog.Logger

	applied bool
}

// Apply inspects the entry unit's produced file and appends whatever the
// chosen strategy requires. The file is only rewritten when text is appended.
func (s *Synthesizer) Apply(unit ir.TranspiledUnit) (*Outcome, error) {
	if s.applied {
		return nil, ErrAlreadyApplied
	}
	if unit.Role != ir.RoleEntry || !ir.IsEntryName(unit.Source.Path, s.EntryName) {
		return nil, ir.NewError(ir.ErrNoEntryUnit, ir.StageSynthesize, unit.OutputPath,
			fmt.Sprintf("unit is not the %q entry unit", s.EntryName))
	}
	s.applied = true

	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	lc := s.Lifecycle
	if lc.Init == "" || lc.Run == "" {
		lc = DefaultLifecycle
	}

	data, err := os.ReadFile(unit.OutputPath)
	if err != nil {
		return nil, ir.WrapError(ir.ErrUnitIO, ir.StageSynthesize, unit.OutputPath, "reading entry unit", err)
	}
	content := string(data)

	probes := Probe(content, lc)
	strategy := Decide(probes)
	out := &Outcome{Strategy: strategy, Probes: probes, Content: content}

	logger.Info("entry strategy chosen",
		"stage", ir.StageSynthesize,
		"file", unit.OutputPath,
		"strategy", strategy,
		"has_initializer", probes.HasInitializer,
		"has_run_loop", probes.HasRunLoop,
		"has_explicit_entry", probes.HasExplicitEntry)

	if strategy == ir.StrategyPassthrough {
		return out, nil
	}

	out.Content = Append(content, Render(strategy, probes, lc))
	if err := os.WriteFile(unit.OutputPath, []byte(out.Content), 0644); err != nil {
		return nil, ir.WrapError(ir.ErrUnitIO, ir.StageSynthesize, unit.OutputPath, "writing entry unit", err)
	}

	if strategy == ir.StrategyStubTemplateMain {
		var missing []string
		if !probes.HasInitializer {
			missing = append(missing, lc.Init+"()")
		}
		if !probes.HasRunLoop {
			missing = append(missing, lc.Run+"()")
		}
		d := ir.Diagnostic{
			Stage:    ir.StageSynthesize,
			Severity: ir.SeverityWarning,
			File:     unit.OutputPath,
			Message: fmt.Sprintf("no main() found; placeholder %s generated, implement real behavior before flashing",
				strings.Join(missing, " and ")),
		}
		out.Diagnostics = append(out.Diagnostics, d)
		logger.Warn(d.Message, "stage", d.Stage, "file", d.File)
	}

	return out, nil
}
