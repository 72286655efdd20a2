package xfail

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ethereum/go-ethereum/log"

	"github.com/xfail-dev/xfail/flags"
)

// DefaultBaselineFilename is the dot-prefixed file the baseline lives in
// when --file is not given, resolved relative to the test directory so it
// is committed alongside the tests it describes.
const DefaultBaselineFilename = ".xfail"

// Config holds the application configuration
type Config struct {
	TestDir       string
	BaselinePath  string
	RunConfigFile string // optional xfail.yaml; empty runs the whole tree
	GoBinary      string
	Update        bool          // rebaseline from this run's outcomes
	SkipExpected  bool          // skip expected failures instead of running them
	WarnOnXPass   bool          // warn for each expected failure that passed
	StrictXPass   bool          // unexpected passes fail the session
	Timeout       time.Duration // default timeout per work unit
	RunInterval   time.Duration // interval between runs in watch mode
	RunOnce       bool          // exit after one run
	LogDir        string        // directory for per-run file logs
	NoLogs        bool          // disable per-run file logs
	List          bool          // list collected identifiers, do not run
	MetricsAddr   string        // metrics server listen address in watch mode
	Log           log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, logger log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}

	testDir, err := filepath.Abs(ctx.String(flags.TestDir.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for test directory: %w", err)
	}

	baselinePath := ctx.String(flags.File.Name)
	if baselinePath == "" {
		baselinePath = filepath.Join(testDir, DefaultBaselineFilename)
	}
	baselinePath, err = filepath.Abs(baselinePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for baseline file: %w", err)
	}

	runConfigFile := ctx.String(flags.RunConfig.Name)
	if runConfigFile != "" {
		runConfigFile, err = filepath.Abs(runConfigFile)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for run config: %w", err)
		}
	}

	logDir, err := filepath.Abs(ctx.String(flags.LogDir.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for log directory: %w", err)
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)

	return &Config{
		TestDir:       testDir,
		BaselinePath:  baselinePath,
		RunConfigFile: runConfigFile,
		GoBinary:      ctx.String(flags.GoBinary.Name),
		Update:        ctx.Bool(flags.Update.Name),
		SkipExpected:  ctx.Bool(flags.SkipExpected.Name),
		WarnOnXPass:   ctx.Bool(flags.WarnOnXPass.Name),
		StrictXPass:   ctx.Bool(flags.StrictXPass.Name),
		Timeout:       ctx.Duration(flags.Timeout.Name),
		RunInterval:   runInterval,
		RunOnce:       runInterval == 0,
		LogDir:        logDir,
		NoLogs:        ctx.Bool(flags.NoLogs.Name),
		List:          ctx.Bool(flags.List.Name),
		MetricsAddr:   ctx.String(flags.MetricsAddr.Name),
		Log:           logger,
	}, nil
}
