// Package registry loads the optional run configuration (xfail.yaml) and
// resolves it into the units of work the runner executes. Without a config
// file the registry falls back to a single whole-tree entry ("./...").
package registry

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/xfail-dev/xfail/types"
)

// Registry manages the configured test entries
type Registry struct {
	config  Config
	entries []types.TestEntry
	mu      sync.RWMutex
}

// Config contains registry configuration
type Config struct {
	Log            log.Logger
	ConfigFile     string // optional path to xfail.yaml
	DefaultTimeout time.Duration
	GoBinary       string
}

// NewRegistry creates a new registry instance
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	r := &Registry{config: cfg}
	if err := r.loadEntries(); err != nil {
		return nil, fmt.Errorf("failed to load run config: %w", err)
	}

	cfg.Log.Debug("Registry loaded", "len(entries)", len(r.entries))
	return r, nil
}

// loadEntries reads the run configuration and resolves it into entries
func (r *Registry) loadEntries() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.config.ConfigFile == "" {
		r.entries = []types.TestEntry{{
			Package: "./...",
			Timeout: r.config.DefaultTimeout,
		}}
		return nil
	}

	runConfig, err := loadConfig(r.config.ConfigFile)
	if err != nil {
		return err
	}

	if runConfig.GoBinary != "" {
		r.config.GoBinary = runConfig.GoBinary
	}
	if runConfig.DefaultTimeout != nil {
		r.config.DefaultTimeout = *runConfig.DefaultTimeout
	}

	entries, err := resolveEntries(runConfig, r.config.DefaultTimeout)
	if err != nil {
		return err
	}
	r.entries = entries
	return nil
}

// Entries returns the resolved units of work
func (r *Registry) Entries() []types.TestEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries
}

// GoBinary returns the go binary to run tests with, preferring the run
// config's setting over the constructor's.
func (r *Registry) GoBinary() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.config.GoBinary == "" {
		return "go"
	}
	return r.config.GoBinary
}

// DefaultTimeout returns the effective default per-entry timeout
func (r *Registry) DefaultTimeout() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config.DefaultTimeout
}

// loadConfig loads a run config from a file
func loadConfig(path string) (*types.RunConfig, error) {
	log.Debug("Reading run config file", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg types.RunConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return &cfg, nil
}

// resolveEntries converts config entries into runner work units
func resolveEntries(cfg *types.RunConfig, defaultTimeout time.Duration) ([]types.TestEntry, error) {
	if len(cfg.Tests) == 0 {
		return nil, fmt.Errorf("run config declares no tests")
	}

	entries := make([]types.TestEntry, 0, len(cfg.Tests))
	for i, tc := range cfg.Tests {
		if tc.Package == "" {
			return nil, fmt.Errorf("test entry %d: package is required", i)
		}
		if tc.Name != "" && tc.RunAll {
			return nil, fmt.Errorf("test entry %d: name and run_all are mutually exclusive", i)
		}

		timeout := defaultTimeout
		if tc.Timeout != nil {
			timeout = *tc.Timeout
		}

		// A bare package (no name) runs everything in it.
		entries = append(entries, types.TestEntry{
			Name:    tc.Name,
			Package: tc.Package,
			Timeout: timeout,
		})
	}
	return entries, nil
}
