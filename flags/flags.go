package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "XFAIL"

func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

var (
	File = &cli.StringFlag{
		Name:    "file",
		Value:   "",
		EnvVars: prefixEnvVars("FILE"),
		Usage:   "Store test expectations in FILE (default: .xfail in the test directory)",
	}
	Update = &cli.BoolFlag{
		Name:    "update",
		Value:   false,
		EnvVars: prefixEnvVars("UPDATE"),
		Usage:   "Rebaseline test expectations with the tests failing this run",
	}
	SkipExpected = &cli.BoolFlag{
		Name:    "skip-expected",
		Value:   false,
		EnvVars: prefixEnvVars("SKIP_EXPECTED"),
		Usage:   "Skip expected test failures instead of running them",
	}
	WarnOnXPass = &cli.BoolFlag{
		Name:    "warn-on-xpass",
		Value:   false,
		EnvVars: prefixEnvVars("WARN_ON_XPASS"),
		Usage:   "Log a warning for each expected failure that passed",
	}
	StrictXPass = &cli.BoolFlag{
		Name:    "strict-xpass",
		Value:   false,
		EnvVars: prefixEnvVars("STRICT_XPASS"),
		Usage:   "Treat expected failures that passed as session failures",
	}
	TestDir = &cli.StringFlag{
		Name:    "testdir",
		Value:   ".",
		EnvVars: prefixEnvVars("TESTDIR"),
		Usage:   "Path to the directory of the module under test",
	}
	RunConfig = &cli.StringFlag{
		Name:    "config",
		Value:   "",
		EnvVars: prefixEnvVars("CONFIG"),
		Usage:   "Path to run config file (eg. 'xfail.yaml'); default is the whole tree",
	}
	GoBinary = &cli.StringFlag{
		Name:    "go-binary",
		Value:   "go",
		EnvVars: prefixEnvVars("GO_BINARY"),
		Usage:   "Path to the Go binary to use for running tests",
	}
	Timeout = &cli.DurationFlag{
		Name:    "timeout",
		Value:   0,
		EnvVars: prefixEnvVars("TIMEOUT"),
		Usage:   "Default timeout per work unit (e.g. '10m'). 0 uses go test's default.",
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: prefixEnvVars("RUN_INTERVAL"),
		Usage:   "Interval between test runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	LogDir = &cli.StringFlag{
		Name:    "logdir",
		Value:   "logs",
		EnvVars: prefixEnvVars("LOGDIR"),
		Usage:   "Directory to store per-run file logs",
	}
	NoLogs = &cli.BoolFlag{
		Name:    "no-logs",
		Value:   false,
		EnvVars: prefixEnvVars("NO_LOGS"),
		Usage:   "Disable per-run file logs",
	}
	List = &cli.BoolFlag{
		Name:    "list",
		Value:   false,
		EnvVars: prefixEnvVars("LIST"),
		Usage:   "List collected test identifiers and baseline matches without running",
	}
	MetricsAddr = &cli.StringFlag{
		Name:    "metrics-addr",
		Value:   "0.0.0.0:7300",
		EnvVars: prefixEnvVars("METRICS_ADDR"),
		Usage:   "Listen address for the prometheus metrics server (watch mode only)",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
		Usage:   "Log level (trace, debug, info, warn, error, crit)",
	}
)

var Flags = []cli.Flag{
	File,
	Update,
	SkipExpected,
	WarnOnXPass,
	StrictXPass,
	TestDir,
	RunConfig,
	GoBinary,
	Timeout,
	RunInterval,
	LogDir,
	NoLogs,
	List,
	MetricsAddr,
	LogLevel,
}

// CheckRequired validates flag combinations. Skipping expected failures in
// update mode would drop every skipped entry from the baseline (skips
// contribute nothing to reconciliation), silently emptying it.
func CheckRequired(ctx *cli.Context) error {
	if ctx.Bool(Update.Name) && ctx.Bool(SkipExpected.Name) {
		return fmt.Errorf("flags %s and %s are mutually exclusive", Update.Name, SkipExpected.Name)
	}
	if ctx.Bool(Update.Name) && ctx.Bool(List.Name) {
		return fmt.Errorf("flags %s and %s are mutually exclusive", Update.Name, List.Name)
	}
	return nil
}
