// Package runner executes Go test suites and streams their results into
// the reporting core.
//
// The runner shells out to `go test -json`, decodes the event stream
// emitted by test2json, and drives the Reporter hooks as tests start,
// produce output, and finish. Subtests become nested steps on the parent
// test, captured output is attached to failures, and build errors are
// surfaced as broken results instead of aborting the run.
package runner
