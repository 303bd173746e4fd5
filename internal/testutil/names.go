package testutil

import "strings"

// DefaultName is the token returned by a FixedNameGenerator built with "".
const DefaultName = "0000test"

// FixedNameGenerator generates the same name every time.
//
// This makes temporary unit names deterministic so tests can predict them.
// The name must not contain an underscore (see UnitName).
//
// Thread-safety: FixedNameGenerator is stateless and safe for concurrent use.
type FixedNameGenerator struct {
	name string
}

// NewFixedNameGenerator creates a fixed name generator.
// If name is empty, Generate() returns DefaultName.
func NewFixedNameGenerator(name string) *FixedNameGenerator {
	if name == "" {
		name = DefaultName
	}
	return &FixedNameGenerator{name: name}
}

// Generate returns the fixed name.
func (g *FixedNameGenerator) Generate() string {
	return g.name
}

// UnitName recovers the original unit base name from a temporary unit base
// name of the form "temp_<name>_<unit>".
func UnitName(tempBase string) string {
	rest := strings.TrimPrefix(tempBase, "temp_")
	if _, after, ok := strings.Cut(rest, "_"); ok {
		return after
	}
	return rest
}
