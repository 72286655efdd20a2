// Package exitcodes defines the standard exit codes used by xfail.
package exitcodes

// Exit code constants used by xfail
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when the run is green, including expected failures
// * TestFailure (1): Used when one or more unexpected test failures occur
// * RuntimeErr (2): Used for runtime errors such as a corrupt baseline file,
//   a failed baseline write, panics or timeouts
const (
	Success     = 0 // No unexpected failures
	TestFailure = 1 // Unexpected test failures
	RuntimeErr  = 2 // Runtime errors or timeouts
)
