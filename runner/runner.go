package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/xfail-dev/xfail/expectfile"
	"github.com/xfail-dev/xfail/logging"
	"github.com/xfail-dev/xfail/metrics"
	"github.com/xfail-dev/xfail/registry"
	"github.com/xfail-dev/xfail/testlist"
	"github.com/xfail-dev/xfail/types"
)

// OutcomeSink receives one (identifier, status) outcome per test as the run
// progresses. Implementations must be safe for concurrent calls; the order
// of calls carries no meaning.
type OutcomeSink interface {
	Report(outcome types.Outcome)
}

// TestRunner defines the interface for running a test session
type TestRunner interface {
	RunAll(ctx context.Context) (*RunnerResult, error)
}

// RunnerResult captures the complete test run results
type RunnerResult struct {
	Tests    map[string]*types.TestResult // keyed by identifier
	Status   types.TestStatus
	Duration time.Duration
	Stats    ResultStats
	RunID    string
}

// ResultStats tracks outcome counts for the run
type ResultStats struct {
	Total     int
	Passed    int
	Failed    int
	Skipped   int
	XFailed   int
	XPassed   int
	StartTime time.Time
	EndTime   time.Time
}

// Config holds configuration for creating a new runner
type Config struct {
	Registry     *registry.Registry
	Baseline     *expectfile.Store // loaded expectation baseline; may be empty, never nil
	WorkDir      string
	Log          log.Logger
	GoBinary     string
	SkipExpected bool                // skip expected failures instead of running them
	FileLogger   *logging.FileLogger // optional per-run file logs
	Sink         OutcomeSink         // optional outcome receiver
}

// runner struct implements TestRunner interface
type runner struct {
	registry     *registry.Registry
	baseline     *expectfile.Store
	workDir      string
	log          log.Logger
	runID        string
	executor     *Executor
	skipExpected bool
	fileLogger   *logging.FileLogger
	sink         OutcomeSink
	tracer       trace.Tracer
}

// NewTestRunner creates a new test runner instance
func NewTestRunner(cfg Config) (TestRunner, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.Baseline == nil {
		return nil, fmt.Errorf("baseline store is required")
	}
	if cfg.WorkDir == "" {
		return nil, fmt.Errorf("work directory is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	goBinary := cfg.GoBinary
	if goBinary == "" {
		goBinary = cfg.Registry.GoBinary()
	}

	executor, err := NewExecutor(cfg.WorkDir, goBinary, cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create executor: %w", err)
	}

	cfg.Log.Debug("NewTestRunner()", "workDir", cfg.WorkDir, "goBinary", goBinary,
		"skipExpected", cfg.SkipExpected, "baselineSize", cfg.Baseline.Len())

	return &runner{
		registry:     cfg.Registry,
		baseline:     cfg.Baseline,
		workDir:      cfg.WorkDir,
		log:          cfg.Log,
		executor:     executor,
		skipExpected: cfg.SkipExpected,
		fileLogger:   cfg.FileLogger,
		sink:         cfg.Sink,
		tracer:       otel.Tracer("test runner"),
	}, nil
}

// RunAll implements the TestRunner interface
func (r *runner) RunAll(ctx context.Context) (*RunnerResult, error) {
	// Use fileLogger's runID if available, otherwise generate new
	if r.fileLogger != nil {
		r.runID = r.fileLogger.GetRunID()
	} else {
		r.runID = uuid.New().String()
	}

	start := time.Now()
	r.log.Debug("Running all tests", "run_id", r.runID)

	result := &RunnerResult{
		Tests: make(map[string]*types.TestResult),
		Stats: ResultStats{StartTime: start},
		RunID: r.runID,
	}

	for _, entry := range r.registry.Entries() {
		if err := r.processEntry(ctx, entry, result); err != nil {
			return nil, err
		}
	}

	result.Duration = time.Since(start)
	result.Status = determineRunnerStatus(result)
	result.Stats.EndTime = time.Now()

	metrics.RecordRun(r.runID, result.Status, result.Duration)
	return result, nil
}

// processEntry executes one registry entry, splitting it into concrete
// per-package units first where skip mode needs that.
func (r *runner) processEntry(ctx context.Context, entry types.TestEntry, result *RunnerResult) error {
	for _, unit := range r.expandEntry(entry) {
		if err := r.runUnit(ctx, unit, result); err != nil {
			return err
		}
	}
	return nil
}

// expandEntry resolves a wildcard entry into one concrete entry per test
// package when skip mode is on. Expected failures can only be enumerated
// per package, so a wildcard left intact would run them all. Without skip
// mode the wildcard goes to go test as-is.
func (r *runner) expandEntry(entry types.TestEntry) []types.TestEntry {
	if !r.skipExpected || entry.Name != "" || !strings.HasSuffix(entry.Package, "/...") {
		return []types.TestEntry{entry}
	}

	pkgs, err := testlist.ExpandPattern(entry.Package, r.workDir)
	if err != nil {
		r.log.Warn("Cannot expand package pattern for skip-expected; running it unexpanded",
			"package", entry.Package, "error", err)
		return []types.TestEntry{entry}
	}

	units := make([]types.TestEntry, 0, len(pkgs))
	for _, pkg := range pkgs {
		unit := entry
		unit.Package = pkg
		units = append(units, unit)
	}
	return units
}

// runUnit executes one work unit and folds its results into the run
func (r *runner) runUnit(ctx context.Context, entry types.TestEntry, result *RunnerResult) error {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("test unit %s", entry.Key()))
	defer span.End()

	skipped, skipNames := r.collectExpectedSkips(entry)
	for _, sr := range skipped {
		r.recordResult(sr, result)
	}
	if entry.Name != "" && len(skipped) > 0 {
		// The single named test was expected and skipped; nothing to run.
		return nil
	}

	unit, err := r.executor.Execute(ctx, entry, skipNames)
	if err != nil {
		return fmt.Errorf("executing %s: %w", entry.Key(), err)
	}

	if r.fileLogger != nil && len(unit.RawJSON) > 0 {
		if err := r.fileLogger.StoreRawJSON(entry.Key(), unit.RawJSON); err != nil {
			r.log.Warn("Failed to store raw test output", "entry", entry.Key(), "error", err)
		}
	}

	for _, test := range unit.Tests {
		r.applyBaseline(test)
		r.recordResult(test, result)
	}
	return nil
}

// collectExpectedSkips determines which tests of the entry are skipped
// up-front because they are expected failures and skip mode is on. It
// returns the synthesized skip results plus the names to pass to -skip.
func (r *runner) collectExpectedSkips(entry types.TestEntry) ([]*types.TestResult, []string) {
	if !r.skipExpected {
		return nil, nil
	}

	if entry.Name != "" {
		key, err := r.canonicalKey(entry.Package, entry.Name)
		if err != nil || !r.baseline.Contains(key) {
			return nil, nil
		}
		return []*types.TestResult{{
			ID:       key,
			Package:  entry.Package,
			FuncName: entry.Name,
			Status:   types.TestStatusSkip,
			Expected: true,
		}}, nil
	}

	funcs, err := testlist.FindTestFunctions(entry.Package, r.workDir)
	if err != nil {
		// Unresolvable packages cannot be enumerated; their expected
		// failures simply run and come back xfail.
		r.log.Warn("Cannot enumerate package for skip-expected", "package", entry.Package, "error", err)
		return nil, nil
	}

	var skipResults []*types.TestResult
	var skipNames []string
	for _, fn := range funcs {
		key, err := r.canonicalKey(entry.Package, fn)
		if err != nil || !r.baseline.Contains(key) {
			continue
		}
		skipNames = append(skipNames, fn)
		skipResults = append(skipResults, &types.TestResult{
			ID:       key,
			Package:  entry.Package,
			FuncName: fn,
			Status:   types.TestStatusSkip,
			Expected: true,
		})
	}
	return skipResults, skipNames
}

// canonicalKey builds the baseline identifier for a test of pkgPath,
// resolving relative package paths to their module-qualified import path so
// identifiers stay stable no matter how the config addresses the package.
func (r *runner) canonicalKey(pkgPath, funcName string) (string, error) {
	importPath, err := testlist.ImportPath(pkgPath, r.workDir)
	if err != nil {
		return "", err
	}
	return types.TestKey(importPath, funcName), nil
}

// applyBaseline reclassifies a result whose identifier the baseline
// expects to fail: fail/error becomes xfail, pass becomes xpass. A failing
// parent is also expected when every one of its failing subtests is
// individually listed (hand-added parameterized entries).
func (r *runner) applyBaseline(result *types.TestResult) {
	expected := r.baseline.Contains(result.ID)
	if !expected && result.Status.IsFailure() && len(result.SubTests) > 0 {
		expected = r.allFailingSubTestsExpected(result)
	}
	if !expected {
		return
	}

	result.Expected = true
	switch result.Status {
	case types.TestStatusFail, types.TestStatusError:
		result.Status = types.TestStatusXFail
	case types.TestStatusPass:
		result.Status = types.TestStatusXPass
	}

	for _, subTest := range result.SubTests {
		if subTest.Status == types.TestStatusFail {
			subTest.Status = types.TestStatusXFail
			subTest.Expected = true
		}
	}
}

func (r *runner) allFailingSubTestsExpected(result *types.TestResult) bool {
	failing := 0
	for _, subTest := range result.SubTests {
		if subTest.Status != types.TestStatusFail {
			continue
		}
		failing++
		if !r.baseline.Contains(subTest.ID) {
			return false
		}
	}
	return failing > 0
}

// recordResult folds one final test result into the run: stats, metrics,
// file logs, and the session's outcome sink.
func (r *runner) recordResult(test *types.TestResult, result *RunnerResult) {
	result.Tests[test.ID] = test
	result.Stats.Total++
	switch test.Status {
	case types.TestStatusPass:
		result.Stats.Passed++
	case types.TestStatusFail, types.TestStatusError:
		result.Stats.Failed++
	case types.TestStatusSkip:
		result.Stats.Skipped++
	case types.TestStatusXFail:
		result.Stats.XFailed++
	case types.TestStatusXPass:
		result.Stats.XPassed++
	}

	metrics.RecordOutcome(r.runID, test.Status)

	if r.fileLogger != nil && test.Status.IsFailure() {
		if err := r.fileLogger.LogFailure(test.ID, test.Stdout); err != nil {
			r.log.Warn("Failed to write failure log", "test", test.ID, "error", err)
		}
	}

	if r.sink != nil {
		r.sink.Report(types.Outcome{ID: test.ID, Status: test.Status})
	}
}

// determineRunnerStatus computes the overall session status. Expected
// failures and unexpected passes never redden the run.
func determineRunnerStatus(result *RunnerResult) types.TestStatus {
	if result.Stats.Failed > 0 {
		return types.TestStatusFail
	}
	if result.Stats.Total == 0 || result.Stats.Total == result.Stats.Skipped {
		return types.TestStatusSkip
	}
	return types.TestStatusPass
}
