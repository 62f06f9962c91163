package qagentic

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/qagentic/qagentic-go/config"
	"github.com/qagentic/qagentic-go/exitcodes"
	"github.com/qagentic/qagentic-go/types"
)

// trackedExecutor is a SuiteExecutor stub that counts executions and signals
// each one on a channel.
type trackedExecutor struct {
	result *types.TestRunResult
	err    error

	execCount atomic.Int32
	execCh    chan struct{}
}

func newTrackedExecutor(result *types.TestRunResult, err error) *trackedExecutor {
	return &trackedExecutor{
		result: result,
		err:    err,
		execCh: make(chan struct{}, 100),
	}
}

func (e *trackedExecutor) RunSuite(ctx context.Context) (*types.TestRunResult, error) {
	e.execCount.Add(1)
	select {
	case e.execCh <- struct{}{}:
	default:
	}
	return e.result, e.err
}

// waitForExecutions waits until the executor ran at least count times.
func (e *trackedExecutor) waitForExecutions(ctx context.Context, count int32) bool {
	timeoutCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		if e.execCount.Load() >= count {
			return true
		}
		select {
		case <-e.execCh:
		case <-ticker.C:
		case <-timeoutCtx.Done():
			return false
		}
	}
}

// newTestApp assembles an App around a stub executor, bypassing NewApp's
// reporting and runner construction.
func newTestApp(executor SuiteExecutor, runOnce bool, shutdown func(error)) *App {
	logger := log.New()
	cfg := &RunnerConfig{
		Log:         logger,
		RunInterval: 25 * time.Millisecond,
		RunOnce:     runOnce,
	}
	if shutdown == nil {
		shutdown = func(error) {}
	}
	return &App{
		config:           cfg,
		version:          "test",
		executor:         executor,
		scheduler:        NewDefaultRunScheduler(cfg.RunInterval, cfg.RunOnce, logger),
		shutdownCallback: shutdown,
	}
}

func teardownApp(t *testing.T, app *App, cancel context.CancelFunc) {
	t.Helper()

	cancel()
	if !app.Stopped() {
		assert.NoError(t, app.Stop(context.Background()), "service should stop cleanly during teardown")
	}

	ctx, waitCancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer waitCancel()
	if err := app.WaitForShutdown(ctx); err != nil {
		t.Logf("warning: service did not shut down cleanly: %v", err)
	}
}

func TestAppStartRunsSuiteImmediately(t *testing.T) {
	result := &types.TestRunResult{ID: "run-1", Total: 1, Passed: 1}
	executor := newTrackedExecutor(result, nil)
	app := newTestApp(executor, false, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer teardownApp(t, app, cancel)

	require.NoError(t, app.Start(ctx))

	// The first run happens synchronously during Start.
	assert.GreaterOrEqual(t, executor.execCount.Load(), int32(1))
	assert.Same(t, result, app.Result())
}

func TestAppRunsSuitePeriodically(t *testing.T) {
	result := &types.TestRunResult{ID: "run-2", Total: 1, Passed: 1}
	executor := newTrackedExecutor(result, nil)
	app := newTestApp(executor, false, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer teardownApp(t, app, cancel)

	require.NoError(t, app.Start(ctx))
	require.True(t, executor.waitForExecutions(ctx, 3), "expected at least 3 suite runs")
}

func TestAppContextCancellation(t *testing.T) {
	result := &types.TestRunResult{ID: "run-3", Total: 1, Passed: 1}
	executor := newTrackedExecutor(result, nil)
	app := newTestApp(executor, false, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer teardownApp(t, app, cancel)

	require.NoError(t, app.Start(ctx))
	require.True(t, executor.waitForExecutions(ctx, 1))

	cancel()
	time.Sleep(50 * time.Millisecond)
	assert.True(t, app.Stopped(), "service should stop after context cancellation")

	before := executor.execCount.Load()
	time.Sleep(3 * app.config.RunInterval)
	assert.Equal(t, before, executor.execCount.Load(), "no suite runs should happen after cancellation")
}

func TestAppRunOnceSuccessTriggersShutdown(t *testing.T) {
	result := &types.TestRunResult{ID: "run-4", Total: 2, Passed: 2}
	executor := newTrackedExecutor(result, nil)

	shutdownCh := make(chan struct{})
	app := newTestApp(executor, true, func(err error) {
		assert.NoError(t, err)
		close(shutdownCh)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, app.Start(ctx))
	assert.Equal(t, int32(1), executor.execCount.Load())
	assert.Same(t, result, app.Result())

	select {
	case <-shutdownCh:
	case <-time.After(time.Second):
		t.Fatal("shutdown callback was not invoked")
	}
}

func TestAppRunOnceFailureReturnsTestFailure(t *testing.T) {
	result := &types.TestRunResult{ID: "run-5", Total: 3, Passed: 1, Failed: 1, Broken: 1}
	executor := newTrackedExecutor(result, nil)
	app := newTestApp(executor, true, func(error) {
		t.Error("shutdown callback must not fire when the suite failed")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := app.Start(ctx)
	require.Error(t, err)
	assert.True(t, IsTestFailureError(err))
	assert.Contains(t, err.Error(), "2 of 3 tests did not pass")
}

func TestAppRuntimeErrorReturnsExitCode2(t *testing.T) {
	executor := newTrackedExecutor(nil, errors.New("go binary missing"))
	app := newTestApp(executor, true, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := app.Start(ctx)
	require.Error(t, err)

	var exitErr cli.ExitCoder
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, exitcodes.RuntimeErr, exitErr.ExitCode())
	assert.Contains(t, err.Error(), "go binary missing")
}

func TestNewAppValidation(t *testing.T) {
	_, err := NewApp(nil, "v1", func(error) {})
	require.Error(t, err)

	reporting := config.Default()
	reporting.API.Enabled = false
	reporting.Features.ConsoleOutput = false
	reporting.Local.Enabled = false

	app, err := NewApp(&RunnerConfig{
		TestDir:   t.TempDir(),
		Packages:  "./...",
		GoBinary:  "go",
		RunOnce:   true,
		Log:       log.New(),
		Reporting: reporting,
	}, "v1", func(error) {})
	require.NoError(t, err)
	require.NotNil(t, app)
	assert.True(t, app.Stopped(), "service starts in the stopped state")
}
