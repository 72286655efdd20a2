// Package xfail tracks which tests are known to fail across runs. A session
// loads the expectation baseline, runs the suite with matching tests
// reclassified as expected failures, and in update mode rewrites the
// baseline from the outcomes it observed.
package xfail

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/xfail-dev/xfail/expectfile"
	"github.com/xfail-dev/xfail/exitcodes"
	"github.com/xfail-dev/xfail/logging"
	"github.com/xfail-dev/xfail/metrics"
	"github.com/xfail-dev/xfail/registry"
	"github.com/xfail-dev/xfail/runner"
	"github.com/xfail-dev/xfail/testlist"
	"github.com/xfail-dev/xfail/types"
)

// Session drives one or more runs against a single baseline file. It is the
// runner's OutcomeSink: outcomes accumulate as they are reported and update
// mode reconciles the baseline from the full accumulated sequence.
type Session struct {
	config   *Config
	version  string
	store    *expectfile.Store
	registry *registry.Registry
	result   *runner.RunnerResult

	mu       sync.Mutex
	outcomes []types.Outcome

	running atomic.Bool
	done    chan struct{}
	wg      sync.WaitGroup

	shutdownCallback func(error) // Callback to signal application shutdown
}

var _ runner.OutcomeSink = (*Session)(nil)

// New loads the baseline and run config and prepares a session. A missing
// baseline file is an empty baseline; an unparseable one aborts here, since
// running with a silently-empty baseline would misreport every known
// failure.
func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*Session, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating session with config",
		"testDir", config.TestDir,
		"baseline", config.BaselinePath,
		"update", config.Update,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce)

	store, err := expectfile.Load(config.BaselinePath)
	if err != nil {
		return nil, NewRuntimeError(fmt.Errorf("failed to load baseline: %w", err))
	}
	metrics.RecordBaselineSize(config.BaselinePath, store.Len())
	config.Log.Info("Loaded expectation baseline", "path", config.BaselinePath, "size", store.Len())

	reg, err := registry.NewRegistry(registry.Config{
		Log:            config.Log,
		ConfigFile:     config.RunConfigFile,
		DefaultTimeout: config.Timeout,
		GoBinary:       config.GoBinary,
	})
	if err != nil {
		return nil, NewRuntimeError(fmt.Errorf("failed to create registry: %w", err))
	}

	return &Session{
		config:           config,
		version:          version,
		store:            store,
		registry:         reg,
		done:             make(chan struct{}),
		shutdownCallback: shutdownCallback,
	}, nil
}

// Store exposes the currently loaded baseline.
func (s *Session) Store() *expectfile.Store {
	return s.store
}

// Report implements runner.OutcomeSink. Safe for concurrent calls; each
// report is an independent, order-insensitive append.
func (s *Session) Report(outcome types.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = append(s.outcomes, outcome)
}

func (s *Session) snapshotOutcomes() []types.Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Outcome, len(s.outcomes))
	copy(out, s.outcomes)
	return out
}

// Run executes one full session: collect, run, report, and in update mode
// rewrite the baseline. A canceled context aborts before the baseline
// write, leaving the previous file untouched. Returns a TestFailureError
// when the run is red and a RuntimeError for operational failures.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	s.outcomes = s.outcomes[:0]
	s.mu.Unlock()

	runID := uuid.New().String()
	var fileLogger *logging.FileLogger
	if !s.config.NoLogs {
		var err error
		fileLogger, err = logging.NewFileLogger(s.config.LogDir, runID)
		if err != nil {
			return NewRuntimeError(fmt.Errorf("failed to create file logger: %w", err))
		}
	}

	testRunner, err := runner.NewTestRunner(runner.Config{
		Registry:     s.registry,
		Baseline:     s.store,
		WorkDir:      s.config.TestDir,
		Log:          s.config.Log,
		GoBinary:     s.config.GoBinary,
		SkipExpected: s.config.SkipExpected,
		FileLogger:   fileLogger,
		Sink:         s,
	})
	if err != nil {
		return NewRuntimeError(fmt.Errorf("failed to create test runner: %w", err))
	}

	s.config.Log.Info("Running tests...", "run_id", runID)
	result, err := testRunner.RunAll(ctx)
	if err != nil {
		// Aborted or broken run: skip finalizing entirely so the previous
		// baseline file stays as it was.
		s.config.Log.Error("Runtime error running tests", "error", err)
		return NewRuntimeError(err)
	}
	s.result = result

	s.printResultsTable(result)
	fmt.Println(result.String())
	if s.config.WarnOnXPass {
		s.warnOnUnexpectedPasses(result)
	}
	if fileLogger != nil {
		if err := fileLogger.WriteSummary(renderSummary(result)); err != nil {
			s.config.Log.Warn("Failed to write summary file", "error", err)
		}
	}

	if err := s.finalize(); err != nil {
		return err
	}

	s.config.Log.Info("Test run completed", "run_id", result.RunID, "status", result.Status)
	return s.sessionError(result)
}

// finalize rewrites the baseline in update mode. The store is rebuilt
// wholesale from this session's outcomes, never patched: tests that passed
// leave it, tests that were not observed (deselected, deleted) fall out of
// it, and an empty result still writes the file.
func (s *Session) finalize() error {
	if !s.config.Update {
		return nil
	}

	outcomes := s.snapshotOutcomes()
	newStore := expectfile.FromOutcomes(outcomes)
	if err := newStore.Save(s.config.BaselinePath); err != nil {
		return NewRuntimeError(fmt.Errorf("failed to save baseline: %w", err))
	}
	s.store = newStore
	metrics.RecordBaselineSize(s.config.BaselinePath, newStore.Len())
	s.config.Log.Info("Rewrote expectation baseline",
		"path", s.config.BaselinePath, "size", newStore.Len(), "outcomes", len(outcomes))
	return nil
}

// sessionError maps a finished run to the session's error contract.
func (s *Session) sessionError(result *runner.RunnerResult) error {
	if result.Status == types.TestStatusFail {
		return NewTestFailureError(result.String())
	}
	if s.config.StrictXPass && result.Stats.XPassed > 0 {
		return NewTestFailureError(fmt.Sprintf(
			"%d expected failure(s) passed; remove them from the baseline or rerun with --update",
			result.Stats.XPassed))
	}
	return nil
}

func (s *Session) warnOnUnexpectedPasses(result *runner.RunnerResult) {
	for _, id := range sortedResultIDs(result) {
		if result.Tests[id].Status == types.TestStatusXPass {
			s.config.Log.Warn("Expected failure passed", "test", id)
		}
	}
}

// List prints every collected test identifier with its baseline state
// without running anything. Wildcard entries expand to the packages
// beneath them that contain tests.
func (s *Session) List() error {
	for _, entry := range s.registry.Entries() {
		if entry.Name != "" {
			importPath, err := testlist.ImportPath(entry.Package, s.config.TestDir)
			if err != nil {
				return NewRuntimeError(err)
			}
			s.printListEntry(types.TestKey(importPath, entry.Name))
			continue
		}

		pkgs, err := testlist.ExpandPattern(entry.Package, s.config.TestDir)
		if err != nil {
			return NewRuntimeError(err)
		}
		for _, pkg := range pkgs {
			funcs, err := testlist.FindTestFunctions(pkg, s.config.TestDir)
			if err != nil {
				return NewRuntimeError(err)
			}
			importPath, err := testlist.ImportPath(pkg, s.config.TestDir)
			if err != nil {
				return NewRuntimeError(err)
			}
			for _, fn := range funcs {
				s.printListEntry(types.TestKey(importPath, fn))
			}
		}
	}
	return nil
}

func (s *Session) printListEntry(id string) {
	if s.store.Contains(id) {
		fmt.Printf("%s (expected failure)\n", id)
	} else {
		fmt.Println(id)
	}
}

// Start runs the session once, or periodically at the configured interval
// in watch mode.
func (s *Session) Start(ctx context.Context) error {
	// Set up panic recovery to ensure we exit with code 2 for runtime errors
	defer func() {
		if r := recover(); r != nil {
			s.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	s.done = make(chan struct{})
	s.running.Store(true)

	if s.config.List {
		defer s.signalShutdown()
		return s.List()
	}

	if s.config.RunOnce {
		s.config.Log.Info("Starting xfail in run-once mode")
		defer s.signalShutdown()
		return s.Run(ctx)
	}

	s.config.Log.Info("Starting xfail in continuous mode", "interval", s.config.RunInterval)
	if err := s.Run(ctx); err != nil && IsRuntimeError(err) {
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.config.Log.Debug("Starting periodic test runner goroutine", "interval", s.config.RunInterval)

		for {
			select {
			case <-time.After(s.config.RunInterval):
				if !s.running.Load() {
					s.config.Log.Debug("Service stopped, exiting periodic test runner")
					return
				}

				s.config.Log.Info("Running periodic tests")
				if err := s.Run(ctx); err != nil && IsRuntimeError(err) {
					s.config.Log.Error("Error running periodic tests", "error", err)
				}

			case <-s.done:
				s.config.Log.Debug("Done signal received, stopping periodic test runner")
				return

			case <-ctx.Done():
				s.config.Log.Debug("Context canceled, stopping periodic test runner")
				s.running.Store(false)
				return
			}
		}
	}()
	s.config.Log.Debug("xfail started successfully")
	return nil
}

// Stop stops a watch-mode session.
func (s *Session) Stop(ctx context.Context) error {
	s.config.Log.Info("Stopping xfail")

	if !s.running.Load() {
		s.config.Log.Debug("Service already stopped, nothing to do")
		return nil
	}

	s.running.Store(false)
	close(s.done)

	s.config.Log.Info("xfail stopped successfully")
	return nil
}

// Stopped returns true if the session is stopped.
func (s *Session) Stopped() bool {
	return !s.running.Load()
}

// WaitForShutdown blocks until all goroutines have terminated.
// This is useful in tests to ensure complete cleanup before moving to the next test.
func (s *Session) WaitForShutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.config.Log.Warn("Timed out waiting for goroutines to terminate", "error", ctx.Err())
		return ctx.Err()
	}
}

func (s *Session) signalShutdown() {
	s.running.Store(false)
	if s.shutdownCallback != nil {
		go s.shutdownCallback(nil)
	}
}
