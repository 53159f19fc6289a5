// Package cli implements the glassbox command line interface: scenario
// validation and replay, plus query commands over a durable trace store.
//
// Commands return ExitError values so callers can map failures to process
// exit codes: 0 success, 1 scenario or assertion failure, 2 command error.
package cli
