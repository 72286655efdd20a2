package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/xfail-dev/xfail/types"
)

// UnitResult is the outcome of executing one work unit: the parsed per-test
// results plus the raw test2json stream for the file logs.
type UnitResult struct {
	Entry    types.TestEntry
	Tests    []*types.TestResult
	RawJSON  []byte
	Duration time.Duration
}

// Executor shells out to `go test -json` for one work unit.
type Executor struct {
	workDir  string
	goBinary string
	parser   *Parser
	log      log.Logger
}

// NewExecutor creates a new test executor
func NewExecutor(workDir, goBinary string, logger log.Logger) (*Executor, error) {
	if workDir == "" {
		return nil, fmt.Errorf("work directory is required")
	}
	if goBinary == "" {
		goBinary = DefaultGoBinary
	}
	if logger == nil {
		logger = log.New()
	}
	return &Executor{
		workDir:  workDir,
		goBinary: goBinary,
		parser:   NewParser(),
		log:      logger,
	}, nil
}

// Execute runs the entry's tests and parses the event stream. skipNames,
// when non-empty, is passed to go test's -skip so already-expected tests
// are not executed at all.
func (e *Executor) Execute(ctx context.Context, entry types.TestEntry, skipNames []string) (*UnitResult, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	if entry.Package == "" {
		return nil, fmt.Errorf("entry package cannot be empty")
	}

	args := e.buildTestArgs(entry, skipNames)
	e.log.Debug("Executing work unit", "binary", e.goBinary, "args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, e.goBinary, args...)
	cmd.Dir = e.workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	tests := e.parser.Parse(bytes.NewReader(stdout.Bytes()))

	result := &UnitResult{
		Entry:    entry,
		Tests:    tests,
		RawJSON:  stdout.Bytes(),
		Duration: duration,
	}

	if runErr != nil {
		if ctx.Err() != nil {
			// Session aborted; the partial results are discarded upstream.
			return nil, ctx.Err()
		}
		exitErr := &exec.ExitError{}
		if errors.As(runErr, &exitErr) {
			if exitErr.ExitCode() == 1 && hasFailure(tests) {
				// Ordinary test failure; the parsed results carry it.
				return result, nil
			}
			// Compile errors, -run mismatches with vet failures, and other
			// toolchain breakage. Parsed package-level error results may
			// already cover it; otherwise synthesize one per the entry.
			if !hasFailure(tests) {
				result.Tests = append(result.Tests, &types.TestResult{
					ID:      entry.Key(),
					Package: entry.Package,
					Status:  types.TestStatusError,
					Error: fmt.Errorf("go test exited with code %d: %s",
						exitErr.ExitCode(), strings.TrimSpace(stderr.String())),
				})
			}
			return result, nil
		}
		return nil, fmt.Errorf("failed to run go test: %w", runErr)
	}

	return result, nil
}

func (e *Executor) buildTestArgs(entry types.TestEntry, skipNames []string) []string {
	args := []string{TestCommand, JSONFlag, CountFlag + "=" + DisableCacheCount}

	if entry.Timeout > 0 {
		args = append(args, TimeoutFlag, entry.Timeout.String())
	}
	if entry.Name != "" {
		args = append(args, RunFlag, fmt.Sprintf("^%s$", entry.Name))
	}
	if len(skipNames) > 0 {
		args = append(args, SkipFlag, fmt.Sprintf("^(%s)$", strings.Join(skipNames, "|")))
	}

	args = append(args, entry.Package)
	return args
}

func hasFailure(tests []*types.TestResult) bool {
	for _, t := range tests {
		if t.Status.IsFailure() {
			return true
		}
	}
	return false
}
