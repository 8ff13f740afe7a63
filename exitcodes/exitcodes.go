// Package exitcodes defines the standard exit codes used by op-reporter.
package exitcodes

// Exit code constants used by op-reporter:
//
// * Success (0): every test passed or was skipped
// * TestFailure (1): one or more tests failed or errored
// * RuntimeErr (2): the report could not be produced, e.g. bad configuration or an unwritable output path
const (
	Success     = 0 // All tests pass
	TestFailure = 1 // Test failures or errors
	RuntimeErr  = 2 // Runtime or configuration errors
)
