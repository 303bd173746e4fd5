// Package ir provides the shared types for the picbridge transpile pipeline.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. Every stage of the pipeline
// (classifier, header materializer, transpilation driver, entry-point
// synthesizer, build-set assembler) exchanges values defined here.
//
// Key design constraints:
//   - A SourceFile is identified by its absolute path and never mutated after classification
//   - TargetProfile is read-only for the whole invocation
//   - At most one TranspiledUnit carries RoleEntry per invocation
//   - Errors are reported as *Error values carrying an ErrorKind and the failing stage
package ir
