// Package buildset selects the compilation units handed to the toolchain.
package buildset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/roach88/picbridge/internal/ir"
)

// BuildSet is the final list of compilation units.
type BuildSet struct {
	// Entry is the produced entry unit, or nil for C-only projects.
	Entry *ir.TranspiledUnit `json:"entry,omitempty"`

	// Units holds absolute paths, entry unit first.
	Units []string `json:"units"`

	// Excluded lists C units dropped because they live in a generated
	// directory. A path already in Units is never listed here.
	Excluded []string `json:"excluded,omitempty"`
}

// Len returns the number of compilation units.
func (b *BuildSet) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Units)
}

// SelectEntry returns the single entry-role unit. Zero entries is a user
// error; more than one is an internal invariant violation.
func SelectEntry(units []ir.TranspiledUnit) (ir.TranspiledUnit, error) {
	var entries []ir.TranspiledUnit
	for _, u := range units {
		if u.Role == ir.RoleEntry {
			entries = append(entries, u)
		}
	}

	switch len(entries) {
	case 1:
		return entries[0], nil
	case 0:
		return ir.TranspiledUnit{}, ir.NewError(ir.ErrNoEntryUnit, ir.StageAssemble, "",
			fmt.Sprintf("none of %d transpiled units is an entry unit", len(units)))
	default:
		paths := make([]string, len(entries))
		for i, e := range entries {
			paths[i] = e.OutputPath
		}
		return ir.TranspiledUnit{}, ir.NewError(ir.ErrAmbiguousEntrySet, ir.StageAssemble, "",
			fmt.Sprintf("internal error: %d entry units: %s", len(entries), strings.Join(paths, ", ")))
	}
}

// Assemble unions the entry unit's output with every C unit that does not
// live under one of generatedDirs, deduplicated by absolute path. Dependency
// units are never part of the result. entry may be nil.
func Assemble(entry *ir.TranspiledUnit, cUnits []ir.SourceFile, generatedDirs ...string) (*BuildSet, error) {
	dirs := make([]string, 0, len(generatedDirs))
	for _, d := range generatedDirs {
		if d == "" {
			continue
		}
		abs, err := filepath.Abs(d)
		if err != nil {
			return nil, ir.WrapError(ir.ErrUnitIO, ir.StageAssemble, d, "resolving generated directory", err)
		}
		dirs = append(dirs, abs)
	}

	bs := &BuildSet{Entry: entry}
	seen := make(map[string]bool)
	add := func(p string) error {
		abs, err := filepath.Abs(p)
		if err != nil {
			return ir.WrapError(ir.ErrUnitIO, ir.StageAssemble, p, "resolving unit path", err)
		}
		if seen[abs] {
			return nil
		}
		seen[abs] = true
		bs.Units = append(bs.Units, abs)
		return nil
	}

	if entry != nil {
		if err := add(entry.OutputPath); err != nil {
			return nil, err
		}
	}
	for _, c := range cUnits {
		abs, err := filepath.Abs(c.Path)
		if err != nil {
			return nil, ir.WrapError(ir.ErrUnitIO, ir.StageAssemble, c.Path, "resolving unit path", err)
		}
		if seen[abs] {
			continue
		}
		if within(abs, dirs) {
			seen[abs] = true
			bs.Excluded = append(bs.Excluded, abs)
			continue
		}
		if err := add(abs); err != nil {
			return nil, err
		}
	}
	return bs, nil
}

// within reports whether path lies inside any of dirs.
func within(path string, dirs []string) bool {
	for _, d := range dirs {
		rel, err := filepath.Rel(d, path)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel) {
			return true
		}
	}
	return false
}
