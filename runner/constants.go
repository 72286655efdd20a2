package runner

import "time"

// Go test2json (TestEvent) action constants for JSON test output
// See https://cs.opensource.google/go/go/+/master:src/cmd/test2json/main.go;l=34-60
const (
	ActionStart  = "start"
	ActionRun    = "run"
	ActionPass   = "pass"
	ActionFail   = "fail"
	ActionSkip   = "skip"
	ActionOutput = "output"
)

// Test execution constants
const (
	// DefaultTestTimeout is the default timeout for one work unit
	DefaultTestTimeout = 10 * time.Minute

	// Default go binary name
	DefaultGoBinary = "go"

	// Test command arguments
	TestCommand = "test"
	JSONFlag    = "-json"
	TimeoutFlag = "-timeout"
	CountFlag   = "-count"
	RunFlag     = "-run"
	SkipFlag    = "-skip"

	// Test count to disable caching
	DisableCacheCount = "1"
)
