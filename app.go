package qagentic

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"

	"github.com/qagentic/qagentic-go/exitcodes"
	"github.com/qagentic/qagentic-go/runner"
	"github.com/qagentic/qagentic-go/types"
)

// App implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &App{}

// App is the runner service. It executes the Go test suite on a schedule and
// reports results through the configured destinations.
type App struct {
	config    *RunnerConfig
	version   string
	executor  SuiteExecutor
	scheduler RunScheduler

	mu         sync.Mutex
	lastResult *types.TestRunResult

	shutdownCallback func(error) // Callback to signal application shutdown
}

// NewApp wires the reporting core, suite runner, and scheduler together from
// the resolved configuration.
func NewApp(config *RunnerConfig, version string, shutdownCallback func(error)) (*App, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating runner service with config",
		"testDir", config.TestDir,
		"packages", config.Packages,
		"runInterval", config.RunInterval,
		"runOnce", config.RunOnce)

	core, err := New(config.Log, config.Reporting)
	if err != nil {
		return nil, fmt.Errorf("failed to create reporting core: %w", err)
	}

	r, err := runner.NewRunner(runner.Config{
		Log:      config.Log,
		Reporter: core,
		WorkDir:  config.TestDir,
		Packages: config.Packages,
		GoBinary: config.GoBinary,
		Timeout:  config.Timeout,
		RunName:  config.RunName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create suite runner: %w", err)
	}
	config.Log.Info("NewApp: created reporting core and suite runner", "sinks", core.SinkNames())

	return &App{
		config:           config,
		version:          version,
		executor:         NewDefaultSuiteExecutor(r, config.Log),
		scheduler:        NewDefaultRunScheduler(config.RunInterval, config.RunOnce, config.Log),
		shutdownCallback: shutdownCallback,
	}, nil
}

// Start runs the test suite on the configured schedule.
// Start implements the cliapp.Lifecycle interface.
func (a *App) Start(ctx context.Context) error {
	// Set up panic recovery to ensure we exit with code 2 for runtime errors
	defer func() {
		if r := recover(); r != nil {
			a.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	if a.config.RunOnce {
		a.config.Log.Info("Starting qagentic runner in run-once mode", "version", a.version)
	} else {
		a.config.Log.Info("Starting qagentic runner in continuous mode",
			"version", a.version, "interval", a.config.RunInterval)
	}

	a.scheduler.RegisterCallback(func() error {
		return a.runSuite(ctx)
	})

	if err := a.scheduler.Start(ctx); err != nil {
		// For runtime errors (like a missing go binary or a broken reporting
		// destination), return exit code 2
		a.config.Log.Error("Runtime error running suite", "error", err)
		return cli.Exit(err.Error(), exitcodes.RuntimeErr)
	}

	// If in run-once mode, trigger shutdown and return
	if a.config.RunOnce {
		a.config.Log.Info("Suite completed, exiting (run-once mode)")

		// Check if any tests failed and return appropriate exit code
		if result := a.Result(); result != nil && !result.IsSuccessful() {
			a.config.Log.Warn("Run-once suite completed with failures, returning exit code 1")
			// Return exit code 1 for test failures (assertions failed)
			return NewTestFailureError(fmt.Sprintf("%d of %d tests did not pass",
				result.Failed+result.Broken, result.Total))
		}

		// Only need to call this when we're in run-once mode and the suite passed
		go func() {
			a.shutdownCallback(nil)
		}()
		return nil // Success (exit code 0)
	}

	a.config.Log.Debug("qagentic runner started successfully")
	return nil
}

// runSuite runs the suite once and records the outcome.
func (a *App) runSuite(ctx context.Context) error {
	result, err := a.executor.RunSuite(ctx)
	if err != nil {
		// This is a runtime error (not a test failure)
		return NewRuntimeError(err)
	}

	a.mu.Lock()
	a.lastResult = result
	a.mu.Unlock()

	a.config.Log.Info("Suite run recorded",
		"run_id", result.ID,
		"total", result.Total,
		"passed", result.Passed,
		"failed", result.Failed,
		"broken", result.Broken,
		"skipped", result.Skipped)
	return nil
}

// Result returns the most recent completed run, or nil before the first run.
func (a *App) Result() *types.TestRunResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastResult
}

// Stop stops the runner service.
// Stop implements the cliapp.Lifecycle interface.
func (a *App) Stop(ctx context.Context) error {
	a.config.Log.Info("Stopping qagentic runner")

	if err := a.scheduler.Stop(); err != nil {
		return err
	}

	a.config.Log.Info("qagentic runner stopped successfully")
	return nil
}

// Stopped returns true if the runner service is stopped.
// Stopped implements the cliapp.Lifecycle interface.
func (a *App) Stopped() bool {
	return a.scheduler.Stopped()
}

// WaitForShutdown blocks until all goroutines have terminated.
// This is useful in tests to ensure complete cleanup before moving to the next test.
func (a *App) WaitForShutdown(ctx context.Context) error {
	return a.scheduler.WaitForShutdown(ctx)
}
