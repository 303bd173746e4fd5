// Package record persists a summary of each build run in SQLite.
//
// The record lives next to the produced files (build.db in the output
// directory) and describes the most recent run only: the target, the
// chosen entry strategy, every transpiled unit with a SHA-256 of its final
// content, the build set handed to the toolchain and all diagnostics. A
// failed run is recorded too, with the first fatal error.
//
// The record is informational. Nothing in the pipeline reads it back.
package record
