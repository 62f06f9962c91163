package qagentic

import (
	"context"

	"github.com/ethereum/go-ethereum/log"

	"github.com/qagentic/qagentic-go/runner"
	"github.com/qagentic/qagentic-go/types"
)

// SuiteExecutor is responsible for running the test suite.
type SuiteExecutor interface {
	RunSuite(ctx context.Context) (*types.TestRunResult, error)
}

// DefaultSuiteExecutor implements the SuiteExecutor interface.
type DefaultSuiteExecutor struct {
	runner runner.SuiteRunner
	logger log.Logger
}

// NewDefaultSuiteExecutor creates a new DefaultSuiteExecutor.
func NewDefaultSuiteExecutor(runner runner.SuiteRunner, logger log.Logger) *DefaultSuiteExecutor {
	return &DefaultSuiteExecutor{
		runner: runner,
		logger: logger,
	}
}

// RunSuite runs the suite once and returns the aggregated results.
func (e *DefaultSuiteExecutor) RunSuite(ctx context.Context) (*types.TestRunResult, error) {
	e.logger.Info("Running test suite...")
	result, err := e.runner.Run(ctx)
	if err != nil {
		e.logger.Error("Error running test suite", "error", err)
		return nil, err
	}
	e.logger.Info("Suite run completed",
		"run_id", result.ID,
		"total", result.Total,
		"passed", result.Passed,
		"failed", result.Failed)
	return result, nil
}
