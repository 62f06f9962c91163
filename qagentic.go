// Package qagentic collects test results from a framework adapter and fans
// them out to the configured reporting destinations: console, local files,
// and the QAgentic API.
package qagentic

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/qagentic/qagentic-go/config"
	"github.com/qagentic/qagentic-go/reporting"
	"github.com/qagentic/qagentic-go/steps"
	"github.com/qagentic/qagentic-go/types"
)

// ErrUnknownTest is returned when a lifecycle hook references a test that was
// never announced through OnTestStart, or that has already been finalized.
var ErrUnknownTest = errors.New("unknown test")

// Core wires per-test step trackers, the run aggregate, and the reporting
// pipeline together behind the lifecycle hooks a framework adapter drives.
// Construct one Core at startup and share it; the hooks are safe for
// concurrent use by parallel tests.
type Core struct {
	log      log.Logger
	cfg      *config.Config
	pipeline *reporting.Pipeline

	mu    sync.Mutex
	tests map[string]*activeTest
}

// activeTest pairs an in-flight result with the tracker collecting its steps.
type activeTest struct {
	result  *types.TestResult
	tracker *steps.Tracker
}

// New builds a Core and its reporting pipeline from the given configuration.
func New(logger log.Logger, cfg *config.Config) (*Core, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	pipeline, err := reporting.FromConfig(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build reporting pipeline: %w", err)
	}

	return &Core{
		log:      logger,
		cfg:      cfg,
		pipeline: pipeline,
		tests:    make(map[string]*activeTest),
	}, nil
}

// NewWithPipeline builds a Core around an existing pipeline. Used by tests
// and by embedders that assemble their own sink list.
func NewWithPipeline(logger log.Logger, cfg *config.Config, pipeline *reporting.Pipeline) *Core {
	return &Core{
		log:      logger,
		cfg:      cfg,
		pipeline: pipeline,
		tests:    make(map[string]*activeTest),
	}
}

// OnRunStart opens the run and announces it to every sink. Project name,
// environment, and labels come from configuration; ci stamps build
// coordinates when the adapter detected a CI environment. Starting a second
// run while one is active is a caller error.
func (c *Core) OnRunStart(name string, ci types.CIMetadata) (*types.TestRunResult, error) {
	labels := types.Labels{}
	for k, v := range c.cfg.Labels.All() {
		labels[k] = v
	}

	return c.pipeline.StartRun(reporting.RunDescriptor{
		Name:        name,
		ProjectName: c.cfg.ProjectName,
		Environment: c.cfg.Environment,
		Labels:      labels,
		CI:          ci,
	})
}

// OnTestStart registers a test the adapter is about to run and returns its
// live record. The record stays mutable until OnTestEnd finalizes it; id is
// the adapter's own identifier for the test and keys all later hooks.
func (c *Core) OnTestStart(id string, info types.TestInfo) *types.TestResult {
	result := types.NewTestResult(info.Name, info.FullName)
	result.Description = info.Description
	for k, v := range info.Labels {
		result.Labels[k] = v
	}
	result.Links = info.Links
	result.Parameters = info.Parameters
	result.FilePath = info.FilePath
	result.LineNumber = info.LineNumber
	result.Module = info.Module
	result.ClassName = info.ClassName
	result.Status = types.StatusRunning
	result.StartTime = time.Now().UTC()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tests[id] = &activeTest{result: result, tracker: steps.NewTracker()}

	c.log.Debug("test started", "test", info.FullName, "id", id)
	return result
}

// OnPhaseComplete applies one phase's outcome to the test's status. The
// precedence rules: a setup failure breaks the test, a body failure fails it,
// a teardown failure breaks only a previously passing test, and a skip in any
// phase marks it skipped. A test that already failed or broke never improves.
func (c *Core) OnPhaseComplete(id string, phase types.Phase, outcome types.Outcome, errInfo *types.ErrorInfo) error {
	c.mu.Lock()
	entry, ok := c.tests[id]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTest, id)
	}

	result := entry.result
	switch {
	case outcome == types.OutcomeSkipped:
		if result.Status != types.StatusFailed && result.Status != types.StatusBroken {
			result.Status = types.StatusSkipped
			if errInfo != nil && errInfo.Message != "" {
				result.ErrorMessage = errInfo.Message
			}
		}

	case phase == types.PhaseSetup && outcome == types.OutcomeFailed:
		result.Status = types.StatusBroken
		applyError(result, errInfo, "SetupError")

	case phase == types.PhaseCall && outcome == types.OutcomeFailed:
		// A setup failure already broke the test; the body's verdict is moot.
		if result.Status != types.StatusBroken {
			result.Status = types.StatusFailed
			applyError(result, errInfo, "AssertionError")
		}

	case phase == types.PhaseCall && outcome == types.OutcomePassed:
		if result.Status == types.StatusRunning || result.Status == types.StatusPending {
			result.Status = types.StatusPassed
		}

	case phase == types.PhaseTeardown && outcome == types.OutcomeFailed:
		// Teardown failures break a passing test but never downgrade a failed one.
		if result.Status == types.StatusPassed {
			result.Status = types.StatusBroken
			applyError(result, errInfo, "TeardownError")
		}
	}

	return nil
}

// OnTestEnd finalizes the test exactly once: it stamps the end time, absorbs
// the tracker's step tree and test-level attachments, hands the record to the
// pipeline, and retires the tracker. The record must not be mutated after
// this returns.
func (c *Core) OnTestEnd(id string) (*types.TestResult, error) {
	c.mu.Lock()
	entry, ok := c.tests[id]
	if ok {
		delete(c.tests, id)
	}
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTest, id)
	}

	result := entry.result
	result.EndTime = time.Now().UTC()
	if result.Status == types.StatusPending || result.Status == types.StatusRunning {
		// No phase ever reported a verdict.
		result.Status = types.StatusUnknown
	}

	result.Steps = append(result.Steps, entry.tracker.Roots()...)
	result.Attachments = append(result.Attachments, entry.tracker.TestAttachments()...)

	if err := c.pipeline.ReportTest(result); err != nil {
		return result, err
	}

	c.log.Debug("test finalized",
		"test", result.FullName,
		"status", result.Status,
		"duration", result.Duration())
	return result, nil
}

// OnRunEnd closes the run, letting every sink write out and flush, and
// returns the completed aggregate.
func (c *Core) OnRunEnd() (*types.TestRunResult, error) {
	return c.pipeline.EndRun()
}

// Tracker returns the step tracker of an active test, or nil once the test
// has been finalized or when the id is unknown.
func (c *Core) Tracker(id string) *steps.Tracker {
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, ok := c.tests[id]; ok {
		return entry.tracker
	}
	return nil
}

// CurrentRun returns the live run aggregate, or nil between runs.
func (c *Core) CurrentRun() *types.TestRunResult {
	return c.pipeline.CurrentRun()
}

// SinkNames lists the destinations the pipeline fans out to, in order.
func (c *Core) SinkNames() []string {
	return c.pipeline.SinkNames()
}

func applyError(result *types.TestResult, info *types.ErrorInfo, defaultType string) {
	result.ErrorType = defaultType
	if info == nil {
		return
	}
	result.ErrorMessage = info.Message
	if info.Type != "" {
		result.ErrorType = info.Type
	}
	result.StackTrace = info.Trace
}
