package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	xfail "github.com/xfail-dev/xfail"
	"github.com/xfail-dev/xfail/flags"
	"github.com/xfail-dev/xfail/service"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "xfail"
	app.Usage = "Test expectation baseline tracker"
	app.Description = "xfail runs Go test suites with known failures tracked in a shared baseline file"
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			// Use the exit code from the ExitCoder
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			// Check for typed runtime errors
			if xfail.IsRuntimeError(err) {
				// For runtime errors, use exit code 2
				cli.HandleExitCoder(cli.Exit(err.Error(), 2))
			} else if xfail.IsTestFailureError(err) {
				// For test failures, use exit code 1
				cli.HandleExitCoder(cli.Exit(err.Error(), 1))
			} else {
				// For other unspecified errors, default to exit code 1
				cli.HandleExitCoder(cli.Exit(err.Error(), 1))
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func run(cliCtx *cli.Context) error {
	logger, err := setupLogger(cliCtx.String(flags.LogLevel.Name))
	if err != nil {
		return xfail.NewRuntimeError(err)
	}

	cfg, err := xfail.NewConfig(cliCtx, logger)
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return xfail.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	ctx, cancel := context.WithCancelCause(cliCtx.Context)
	defer cancel(nil)

	session, err := xfail.New(ctx, cfg, Version, cancel)
	if err != nil {
		return xfail.NewRuntimeError(fmt.Errorf("failed to create session: %w", err))
	}

	if cfg.RunOnce || cfg.List {
		return session.Start(ctx)
	}

	// Watch mode runs the healthz and metrics servers alongside the
	// periodic test loop.
	svc := service.New(service.Config{MetricsAddr: cfg.MetricsAddr})
	svc.Start(ctx)
	defer svc.Shutdown()

	if err := session.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), service.ShutdownTimeout)
	defer stopCancel()
	if err := session.Stop(stopCtx); err != nil {
		logger.Error("Failed to stop session cleanly", "error", err)
	}
	return session.WaitForShutdown(stopCtx)
}

func setupLogger(level string) (log.Logger, error) {
	var lvl slog.Level
	switch level {
	case "trace":
		lvl = log.LevelTrace
	case "debug":
		lvl = log.LevelDebug
	case "info":
		lvl = log.LevelInfo
	case "warn":
		lvl = log.LevelWarn
	case "error":
		lvl = log.LevelError
	case "crit":
		lvl = log.LevelCrit
	default:
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	handler := log.NewTerminalHandlerWithLevel(os.Stderr, lvl, true)
	logger := log.NewLogger(handler)
	log.SetDefault(logger)
	return logger, nil
}
