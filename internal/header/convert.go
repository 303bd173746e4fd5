package header

import (
	"regexp"
	"strings"
)

var (
	// includeSuffixRe matches quoted includes of object-oriented dialect headers.
	includeSuffixRe = regexp.MustCompile(`(?m)^([ \t]*#[ \t]*include[ \t]*")([^"\n]*)\.(?:hpp|hxx)"`)

	// directiveRe matches conditional and macro directive lines, where guard
	// tokens live.
	directiveRe = regexp.MustCompile(`(?m)^[ \t]*#[ \t]*(?:ifndef|ifdef|if|elif|else|endif|define|undef)\b.*$`)

	// guardTokenRe matches an identifier ending in the object-oriented marker.
	guardTokenRe = regexp.MustCompile(`\b([A-Za-z0-9_]*)_(?:HPP|HXX)\b`)
)

// RewriteIncludes rewrites `#include "x.hpp"` and `#include "x.hxx"`
// directives to `#include "x.h"`. Angle-bracket includes are left alone.
func RewriteIncludes(content string) string {
	return includeSuffixRe.ReplaceAllString(content, `${1}${2}.h"`)
}

// RewriteGuards renames guard tokens ending in _HPP or _HXX to end in _H.
// Only preprocessor directive lines are touched.
func RewriteGuards(content string) string {
	return directiveRe.ReplaceAllStringFunc(content, func(line string) string {
		return guardTokenRe.ReplaceAllString(line, "${1}_H")
	})
}

// ConvertHeader converts object-oriented dialect header text to the
// procedural dialect: include suffixes and guard tokens are rewritten and the
// platform master include is prepended unless the text already starts with it.
func ConvertHeader(content string) string {
	out := RewriteGuards(RewriteIncludes(content))
	if !strings.HasPrefix(out, MasterInclude) {
		out = MasterInclude + "\n" + out
	}
	return out
}

// ConvertedName returns the procedural dialect file name for a header stem.
func ConvertedName(stem string) string {
	return stem + ".h"
}
