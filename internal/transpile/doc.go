// Package transpile drives the external C++ to C transpiler over every C++
// unit of a project.
//
// Each unit is transpiled from a temporary augmented copy that lives in the
// output directory:
//
//	#include "pic_includes.h"      <- prepended compatibility header
//	#include "led.h"               <- was "led.hpp"
//	...original unit text...
//
// After a successful call the compatibility include in the produced C file is
// replaced by the real platform include (<xc.h>). Temporary copies are removed
// on every exit path.
//
// A failure of any single unit aborts the whole run: a partially transpiled
// whole-program set cannot be linked.
//
// When no transpiler is installed, Fallback runs the project's manual
// transpilation script once as an external process, bounded by a timeout.
package transpile
