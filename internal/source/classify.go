// Package source partitions project files into translation units and headers.
package source

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/roach88/picbridge/internal/ir"
)

// suffixKinds maps recognized filename suffixes to their kind.
// Matching is case-sensitive.
var suffixKinds = map[string]ir.Kind{
	".cpp": ir.KindCppUnit,
	".cxx": ir.KindCppUnit,
	".cc":  ir.KindCppUnit,
	".c":   ir.KindCUnit,
	".h":   ir.KindHeaderC,
	".hpp": ir.KindHeaderCpp,
	".hxx": ir.KindHeaderCpp,
}

// Classification holds the three disjoint sequences produced by Classify.
// Order within each sequence follows input order.
type Classification struct {
	CppUnits []ir.SourceFile `json:"cpp_units"`
	CUnits   []ir.SourceFile `json:"c_units"`
	Headers  []ir.SourceFile `json:"headers"`
}

// Len returns the number of classified files.
func (c Classification) Len() int {
	return len(c.CppUnits) + len(c.CUnits) + len(c.Headers)
}

// KindOf returns the kind for path and whether its suffix is recognized.
func KindOf(path string) (ir.Kind, bool) {
	k, ok := suffixKinds[filepath.Ext(path)]
	return k, ok
}

// Classify partitions paths by suffix. Files with an unrecognized suffix are
// silently dropped.
func Classify(paths []string) Classification {
	var c Classification
	for _, p := range paths {
		kind, ok := KindOf(p)
		if !ok {
			continue
		}
		f := ir.SourceFile{Path: p, Kind: kind}
		switch {
		case kind == ir.KindCppUnit:
			c.CppUnits = append(c.CppUnits, f)
		case kind == ir.KindCUnit:
			c.CUnits = append(c.CUnits, f)
		case kind.IsHeader():
			c.Headers = append(c.Headers, f)
		}
	}
	return c
}

// Enumerate walks dir and returns the absolute paths of every regular file
// with a recognized suffix, in lexical order. Files whose base name starts
// with skipPrefix are left out (leftover temporary units), as are hidden
// directories and any directory listed in skipDirs.
func Enumerate(dir, skipPrefix string, skipDirs ...string) ([]string, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	skip := make(map[string]bool, len(skipDirs))
	for _, d := range skipDirs {
		if abs, err := filepath.Abs(d); err == nil {
			skip[abs] = true
		}
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && (strings.HasPrefix(d.Name(), ".") || skip[path]) {
				return filepath.SkipDir
			}
			return nil
		}
		if skipPrefix != "" && strings.HasPrefix(d.Name(), skipPrefix) {
			return nil
		}
		if _, ok := KindOf(path); ok {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
