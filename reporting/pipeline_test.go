package reporting

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/sourcegraph/conc/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qagentic/qagentic-go/config"
	"github.com/qagentic/qagentic-go/types"
)

// stubSink records the calls it receives and can be told to fail any of
// them.
type stubSink struct {
	name string

	failStart  error
	failReport error
	failEnd    error

	started  []*types.TestRunResult
	reported []*types.TestResult
	ended    []*types.TestRunResult
}

func (s *stubSink) Name() string { return s.name }

func (s *stubSink) StartRun(run *types.TestRunResult) error {
	s.started = append(s.started, run)
	return s.failStart
}

func (s *stubSink) ReportTest(test *types.TestResult) error {
	s.reported = append(s.reported, test)
	return s.failReport
}

func (s *stubSink) EndRun(run *types.TestRunResult) error {
	s.ended = append(s.ended, run)
	return s.failEnd
}

func passedTest(name string) *types.TestResult {
	test := types.NewTestResult(name, name)
	test.Status = types.StatusPassed
	return test
}

func TestPipelineFanOut(t *testing.T) {
	first := &stubSink{name: "first"}
	second := &stubSink{name: "second"}
	p := NewPipeline(log.New(), first, second)

	run, err := p.StartRun(RunDescriptor{ProjectName: "checkout", Environment: "ci"})
	require.NoError(t, err)
	require.NotNil(t, run)

	require.NoError(t, p.ReportTest(passedTest("TestA")))
	require.NoError(t, p.ReportTest(passedTest("TestB")))

	finished, err := p.EndRun()
	require.NoError(t, err)
	require.Same(t, run, finished)

	for _, sink := range []*stubSink{first, second} {
		require.Len(t, sink.started, 1, "sink %s", sink.name)
		require.Len(t, sink.reported, 2, "sink %s", sink.name)
		require.Len(t, sink.ended, 1, "sink %s", sink.name)
		assert.Equal(t, "TestA", sink.reported[0].Name)
		assert.Equal(t, "TestB", sink.reported[1].Name)
	}

	assert.Equal(t, 2, finished.Total)
	assert.Equal(t, 2, finished.Passed)
	assert.False(t, finished.EndTime.IsZero())
}

func TestPipelineSinkFailureDoesNotBlockOthers(t *testing.T) {
	first := &stubSink{name: "first", failReport: errors.New("disk full")}
	second := &stubSink{name: "second"}
	p := NewPipeline(log.New(), first, second)

	_, err := p.StartRun(RunDescriptor{})
	require.NoError(t, err)

	require.NoError(t, p.ReportTest(passedTest("TestA")), "sink failures never escalate")

	require.Len(t, first.reported, 1)
	require.Len(t, second.reported, 1, "sink after the failing one still receives the call")

	run, err := p.EndRun()
	require.NoError(t, err)
	assert.Equal(t, 1, run.Total, "the result stays recorded in the aggregate")
}

func TestPipelineStartFailureDoesNotBlockOthers(t *testing.T) {
	first := &stubSink{name: "first", failStart: errors.New("cannot create output directory")}
	second := &stubSink{name: "second"}
	p := NewPipeline(log.New(), first, second)

	_, err := p.StartRun(RunDescriptor{})
	require.NoError(t, err)
	require.Len(t, second.started, 1)
}

func TestPipelineSecondStartIsError(t *testing.T) {
	p := NewPipeline(log.New())

	_, err := p.StartRun(RunDescriptor{})
	require.NoError(t, err)

	_, err = p.StartRun(RunDescriptor{})
	require.ErrorIs(t, err, ErrRunActive)
}

func TestPipelineReportWithoutRun(t *testing.T) {
	p := NewPipeline(log.New())
	require.ErrorIs(t, p.ReportTest(passedTest("TestA")), ErrNoActiveRun)
}

func TestPipelineEndWithoutRun(t *testing.T) {
	p := NewPipeline(log.New())
	_, err := p.EndRun()
	require.ErrorIs(t, err, ErrNoActiveRun)
}

func TestPipelineEndClearsActiveRun(t *testing.T) {
	p := NewPipeline(log.New())

	_, err := p.StartRun(RunDescriptor{})
	require.NoError(t, err)
	assert.NotNil(t, p.CurrentRun())

	_, err = p.EndRun()
	require.NoError(t, err)
	assert.Nil(t, p.CurrentRun())

	_, err = p.StartRun(RunDescriptor{})
	require.NoError(t, err, "a new run can start after the previous one ended")
}

func TestPipelineStartAppliesDescriptor(t *testing.T) {
	p := NewPipeline(log.New())

	run, err := p.StartRun(RunDescriptor{
		Name:        "nightly",
		ProjectName: "checkout",
		Environment: "staging",
		Labels:      types.Labels{"team": "payments"},
		CI: types.CIMetadata{
			Provider: "github-actions",
			Branch:   "main",
			Commit:   "abc123",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "nightly", run.Name)
	assert.Equal(t, "checkout", run.ProjectName)
	assert.Equal(t, "staging", run.Environment)
	assert.Equal(t, "payments", run.Labels["team"])
	assert.Equal(t, "main", run.Branch)
	assert.Equal(t, "abc123", run.CommitHash)
}

func TestPipelineConcurrentReportsKeepCounters(t *testing.T) {
	p := NewPipeline(log.New())
	_, err := p.StartRun(RunDescriptor{})
	require.NoError(t, err)

	const perStatus = 50
	statuses := []types.Status{
		types.StatusPassed, types.StatusFailed, types.StatusBroken, types.StatusSkipped,
	}

	workers := pool.New().WithMaxGoroutines(8)
	for i := 0; i < perStatus; i++ {
		for _, status := range statuses {
			status := status
			n := i
			workers.Go(func() {
				test := types.NewTestResult(fmt.Sprintf("Test%s%d", status, n), "")
				test.Status = status
				_ = p.ReportTest(test)
			})
		}
	}
	workers.Wait()

	run, err := p.EndRun()
	require.NoError(t, err)

	assert.Equal(t, perStatus*len(statuses), run.Total)
	assert.Equal(t, perStatus, run.Passed)
	assert.Equal(t, perStatus, run.Failed)
	assert.Equal(t, perStatus, run.Broken)
	assert.Equal(t, perStatus, run.Skipped)
	assert.Equal(t, run.Total, run.Passed+run.Failed+run.Broken+run.Skipped)
	assert.Len(t, run.Tests, run.Total)
}

func TestFromConfigRegistrationOrder(t *testing.T) {
	cfg := config.Default()
	cfg.Local.Formats = []string{"html", "junit", "json"}

	p, err := FromConfig(log.New(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"console", "json", "junit", "html", "api"}, p.SinkNames(),
		"registration order is fixed regardless of format order")
}

func TestFromConfigDisabledCapabilities(t *testing.T) {
	cfg := config.Default()
	cfg.Features.ConsoleOutput = false
	cfg.API.Enabled = false
	cfg.Local.Formats = []string{"json"}

	p, err := FromConfig(log.New(), cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"json"}, p.SinkNames())
}

func TestFromConfigLocalDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Features.ConsoleOutput = false
	cfg.Local.Enabled = false
	cfg.API.Enabled = false

	p, err := FromConfig(log.New(), cfg)
	require.NoError(t, err)
	assert.Empty(t, p.SinkNames())

	// A pipeline without sinks still aggregates.
	_, err = p.StartRun(RunDescriptor{})
	require.NoError(t, err)
	require.NoError(t, p.ReportTest(passedTest("TestA")))
	run, err := p.EndRun()
	require.NoError(t, err)
	assert.Equal(t, 1, run.Total)
}

