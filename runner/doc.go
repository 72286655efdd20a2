// Package runner executes Go test sessions and classifies their outcomes
// against the expectation baseline.
//
// The main components are:
//   - Executor: shells out to `go test -json` for one work unit and captures
//     the raw event stream
//   - Parser: turns the test2json event stream into structured per-test
//     results with subtest support
//   - TestRunner: orchestrates the work units, applies baseline overrides
//     (fail becomes xfail, pass becomes xpass for expected identifiers), and
//     reports one outcome per test to the session's OutcomeSink
package runner
