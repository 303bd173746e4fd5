// Package harness runs build scenarios end to end against a fake
// transpiler.
//
// # Scenario Format
//
// Scenarios are YAML files describing a project tree, how the fake
// transpiler behaves, and what the run must produce:
//
//	name: lifecycle_main
//	description: "setup() and loop() get a synthesized main()"
//	files:
//	  main.cpp: |
//	    void setup(void) {}
//	    void loop(void) {}
//	  uart.c: |
//	    void uart_init(void) {}
//	transpiler:
//	  fail_on: helpers.cpp
//	  outputs:
//	    main.cpp: |
//	      void setup(void) {}
//	expect:
//	  error: UNIT_TRANSPILE_FAILURE
//	  strategy: synthesized_lifecycle_main
//	  build_set: [generated_c/main.c, uart.c]
//	  diagnostics: 0
//	assertions:
//	  - type: file_contains
//	    path: generated_c/main.c
//	    text: "void main(void)"
//
// Paths in expect and assertions are relative to the project root and use
// forward slashes.
//
// # Transpiler Behavior
//
// By default the fake transpiler copies its augmented input to the output
// path. transpiler.outputs replaces the produced text for a unit,
// transpiler.fail_on makes one unit fail, and transpiler.available: false
// removes the transpiler so the manual fallback runs fallback_script with sh.
//
// # Golden Snapshots
//
// RunWithGolden renders a text snapshot (outcome, build set, units,
// diagnostics and the final entry unit) and compares it with
// testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
