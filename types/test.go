package types

import (
	"fmt"
	"strings"
	"time"
)

// TestStatus represents the possible states of a test execution
type TestStatus string

const (
	TestStatusPass TestStatus = "pass"
	TestStatusFail TestStatus = "fail"
	TestStatusSkip TestStatus = "skip"
	// TestStatusXFail is a failure of a test the baseline already expects to
	// fail. It does not redden the report.
	TestStatusXFail TestStatus = "xfail"
	// TestStatusXPass is a pass of a test the baseline expects to fail,
	// meaning the test has been fixed and should leave the baseline.
	TestStatusXPass TestStatus = "xpass"
	TestStatusError TestStatus = "error"
)

// IsFailure reports whether the status counts against the session.
// Expected failures and unexpected passes are green by default.
func (s TestStatus) IsFailure() bool {
	return s == TestStatusFail || s == TestStatusError
}

// Outcome is one observed (identifier, status) pair reported by the runner.
// The session accumulates these and update mode reconciles the baseline
// from the full sequence.
type Outcome struct {
	ID     string
	Status TestStatus
}

// TestResult captures the outcome of a single test run
type TestResult struct {
	ID       string // identifier key, see TestKey
	Package  string
	FuncName string // empty when the whole package ran as one unit
	Status   TestStatus
	Error    error
	Duration time.Duration
	Stdout   string // captured output for failing tests
	TimedOut bool
	Expected bool // baseline matched this identifier at collection time

	// SubTests holds individual test results when running a package,
	// keyed by the full test name (e.g. "TestParent/sub").
	SubTests map[string]*TestResult
}

// TestEntry is one resolved unit of work for the runner: either a single
// named test function or a whole package.
type TestEntry struct {
	Name    string // test function name, empty when the whole package runs
	Package string
	Timeout time.Duration
}

// Key returns the identifier under which this entry's result is tracked.
func (e TestEntry) Key() string {
	return TestKey(e.Package, e.Name)
}

// TestConfig is one entry of the optional run configuration file
type TestConfig struct {
	Name    string         `yaml:"name,omitempty"`
	Package string         `yaml:"package"`
	RunAll  bool           `yaml:"run_all,omitempty"`
	Timeout *time.Duration `yaml:"timeout,omitempty"`
}

// RunConfig is the top-level shape of xfail.yaml
type RunConfig struct {
	GoBinary       string         `yaml:"go_binary,omitempty"`
	DefaultTimeout *time.Duration `yaml:"default_timeout,omitempty"`
	Tests          []TestConfig   `yaml:"tests"`
}

// TestKey builds the identifier under which a test is tracked in the
// baseline: "<package>::<func>" for named tests, the bare package path for
// whole-package entries. Subtests append their slash-separated path to the
// function name. Identifiers are opaque beyond this scheme; membership is
// byte-exact.
func TestKey(pkg, funcName string) string {
	if funcName == "" {
		return pkg
	}
	return fmt.Sprintf("%s::%s", pkg, funcName)
}

// SplitTestName splits a Go test name like "TestParent/sub/case" into the
// top-level function name and the remainder of the subtest path.
func SplitTestName(name string) (funcName, subPath string) {
	if idx := strings.IndexByte(name, '/'); idx >= 0 {
		return name[:idx], name[idx+1:]
	}
	return name, ""
}

// GetTestDisplayName returns a formatted display name for a result. Named
// tests display their function name; package entries display a shortened
// package path so table rows do not wrap.
func GetTestDisplayName(result *TestResult) string {
	if result.FuncName != "" {
		return result.FuncName
	}
	pkgParts := strings.Split(result.Package, "/")
	if len(pkgParts) > 0 {
		return pkgParts[len(pkgParts)-1] + " (package)"
	}
	return result.Package
}
