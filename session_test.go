package xfail

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xfail-dev/xfail/runner"
	"github.com/xfail-dev/xfail/types"
)

func testConfig(t *testing.T, mutate func(*Config)) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &Config{
		TestDir:      dir,
		BaselinePath: filepath.Join(dir, DefaultBaselineFilename),
		GoBinary:     "go",
		RunOnce:      true,
		LogDir:       filepath.Join(dir, "logs"),
		NoLogs:       true,
		Log:          log.New(),
	}
	if mutate != nil {
		mutate(cfg)
	}
	return cfg
}

func newTestSession(t *testing.T, cfg *Config) *Session {
	t.Helper()
	s, err := New(context.Background(), cfg, "test", nil)
	require.NoError(t, err)
	return s
}

func TestNewLoadsMissingBaselineAsEmpty(t *testing.T) {
	cfg := testConfig(t, nil)
	s := newTestSession(t, cfg)

	assert.Equal(t, 0, s.Store().Len())
	_, err := os.Stat(cfg.BaselinePath)
	assert.True(t, os.IsNotExist(err), "loading must not create the baseline file")
}

func TestNewLoadsExistingBaseline(t *testing.T) {
	cfg := testConfig(t, nil)
	content := "xfail file v1\nexample.com/mod/pkg::TestKnown\n"
	require.NoError(t, os.WriteFile(cfg.BaselinePath, []byte(content), 0o644))

	s := newTestSession(t, cfg)
	assert.Equal(t, 1, s.Store().Len())
	assert.True(t, s.Store().Contains("example.com/mod/pkg::TestKnown"))
}

func TestNewRejectsCorruptBaseline(t *testing.T) {
	cfg := testConfig(t, nil)
	require.NoError(t, os.WriteFile(cfg.BaselinePath, []byte("not a baseline\n"), 0o644))

	_, err := New(context.Background(), cfg, "test", nil)
	require.Error(t, err)
	assert.True(t, IsRuntimeError(err))
}

func TestFinalizeWithoutUpdateNeverWrites(t *testing.T) {
	cfg := testConfig(t, nil)
	content := "xfail file v1\nexample.com/mod/pkg::TestKnown\n"
	require.NoError(t, os.WriteFile(cfg.BaselinePath, []byte(content), 0o644))

	s := newTestSession(t, cfg)
	s.Report(types.Outcome{ID: "example.com/mod/pkg::TestOther", Status: types.TestStatusFail})
	require.NoError(t, s.finalize())

	got, err := os.ReadFile(cfg.BaselinePath)
	require.NoError(t, err)
	assert.Equal(t, content, string(got), "baseline must be byte-identical after a non-update run")
}

func TestFinalizeUpdateRewritesWholesale(t *testing.T) {
	cfg := testConfig(t, func(c *Config) { c.Update = true })
	content := "xfail file v1\nexample.com/mod/pkg::TestStale\n"
	require.NoError(t, os.WriteFile(cfg.BaselinePath, []byte(content), 0o644))

	s := newTestSession(t, cfg)
	s.Report(types.Outcome{ID: "example.com/mod/pkg::TestB", Status: types.TestStatusFail})
	s.Report(types.Outcome{ID: "example.com/mod/pkg::TestA", Status: types.TestStatusXFail})
	s.Report(types.Outcome{ID: "example.com/mod/pkg::TestC", Status: types.TestStatusPass})
	require.NoError(t, s.finalize())

	got, err := os.ReadFile(cfg.BaselinePath)
	require.NoError(t, err)
	want := "xfail file v1\n" +
		"example.com/mod/pkg::TestA\n" +
		"example.com/mod/pkg::TestB\n"
	assert.Equal(t, want, string(got), "stale and passing entries must fall out")
	assert.True(t, s.Store().Contains("example.com/mod/pkg::TestB"), "store follows the rewrite")
}

func TestFinalizeUpdateWithNoFailuresWritesEmptyBaseline(t *testing.T) {
	cfg := testConfig(t, func(c *Config) { c.Update = true })
	require.NoError(t, os.WriteFile(cfg.BaselinePath,
		[]byte("xfail file v1\nexample.com/mod/pkg::TestFixed\n"), 0o644))

	s := newTestSession(t, cfg)
	s.Report(types.Outcome{ID: "example.com/mod/pkg::TestFixed", Status: types.TestStatusXPass})
	require.NoError(t, s.finalize())

	got, err := os.ReadFile(cfg.BaselinePath)
	require.NoError(t, err)
	assert.Equal(t, "xfail file v1\n", string(got))
}

func TestReportIsSafeForConcurrentUse(t *testing.T) {
	s := newTestSession(t, testConfig(t, nil))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Report(types.Outcome{
				ID:     fmt.Sprintf("example.com/mod/pkg::Test%d", n),
				Status: types.TestStatusFail,
			})
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.snapshotOutcomes(), 32)
}

func TestSessionErrorMapping(t *testing.T) {
	tests := []struct {
		name        string
		stats       runner.ResultStats
		status      types.TestStatus
		strictXPass bool
		wantErr     bool
		wantFailure bool
	}{
		{"green run", runner.ResultStats{Total: 1, Passed: 1}, types.TestStatusPass, false, false, false},
		{"red run", runner.ResultStats{Total: 1, Failed: 1}, types.TestStatusFail, false, true, true},
		{"xpass tolerated by default", runner.ResultStats{Total: 1, XPassed: 1}, types.TestStatusPass, false, false, false},
		{"xpass fails strict sessions", runner.ResultStats{Total: 1, XPassed: 1}, types.TestStatusPass, true, true, true},
		{"all skipped", runner.ResultStats{Total: 2, Skipped: 2}, types.TestStatusSkip, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t, func(c *Config) { c.StrictXPass = tt.strictXPass })
			s := newTestSession(t, cfg)

			result := &runner.RunnerResult{
				Tests:  make(map[string]*types.TestResult),
				Status: tt.status,
				Stats:  tt.stats,
			}
			err := s.sessionError(result)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantFailure, IsTestFailureError(err))
		})
	}
}

func TestStopIsIdempotent(t *testing.T) {
	s := newTestSession(t, testConfig(t, nil))
	s.running.Store(true)

	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, s.Stopped())
	require.NoError(t, s.Stop(context.Background()))
}
