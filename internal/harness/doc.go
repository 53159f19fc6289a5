// Package harness runs YAML-scripted pipeline scenarios through the real
// capture API and asserts on the resulting trace and store contents.
//
// A scenario describes one execution: its header (name, tags, context), an
// ordered list of steps with their staged fields and terminal outcome
// (complete or fail), and a set of assertions. The runner drives a
// capture.Builder against a fresh in-memory store using a deterministic
// clock, so two runs of the same scenario produce byte-identical traces.
//
// Scenarios double as golden-file conformance tests: RunWithGolden
// snapshots the final execution JSON and compares it against
// testdata/golden/{name}.golden. Regenerate with:
//
//	go test ./internal/harness -update
//
// Scenario files are also the input to the glassbox CLI (validate, run),
// which uses this package's loader and runner.
package harness
