// Package exitcodes defines the standard exit codes used by qagentic.
package exitcodes

// Exit code constants used by qagentic
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when all tests pass and every report is delivered
// * TestFailure (1): Used when one or more tests fail or end up broken
// * RuntimeErr (2): Used for runtime errors such as panics, timeouts or other failures
const (
	Success     = 0 // All tests pass
	TestFailure = 1 // Test failures
	RuntimeErr  = 2 // Runtime errors or timeouts
)
