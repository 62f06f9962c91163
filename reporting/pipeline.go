package reporting

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/qagentic/qagentic-go/client"
	"github.com/qagentic/qagentic-go/config"
	"github.com/qagentic/qagentic-go/metrics"
	"github.com/qagentic/qagentic-go/types"
)

// Lifecycle misuse is a programmer error and is surfaced immediately, unlike
// sink delivery failures which are logged and isolated.
var (
	ErrRunActive   = errors.New("a test run is already active")
	ErrNoActiveRun = errors.New("no test run is active")
)

// RunDescriptor names a run before it exists. Empty fields fall back to the
// run constructor's defaults.
type RunDescriptor struct {
	Name        string
	ProjectName string
	Environment string
	Labels      types.Labels
	CI          types.CIMetadata
}

// Pipeline fans test results out to an ordered list of sinks. The sink list
// is fixed at construction; construct one Pipeline per process and pass it to
// whoever reports. At most one run is active at a time, and all mutation of
// the active run is serialized so parallel test contexts keep the counter
// invariant intact.
type Pipeline struct {
	log   log.Logger
	sinks []Sink

	mu  sync.Mutex
	run *types.TestRunResult
}

// NewPipeline creates a Pipeline delivering to the given sinks in order.
func NewPipeline(logger log.Logger, sinks ...Sink) *Pipeline {
	names := make([]string, len(sinks))
	for i, sink := range sinks {
		names[i] = sink.Name()
	}
	logger.Debug("reporting pipeline created", "sinks", names)

	return &Pipeline{
		log:   logger,
		sinks: sinks,
	}
}

// FromConfig builds a Pipeline with every sink the configuration enables, in
// fixed registration order: console, JSON, JUnit, HTML, API.
func FromConfig(logger log.Logger, cfg *config.Config) (*Pipeline, error) {
	var sinks []Sink

	if cfg.Features.ConsoleOutput {
		sinks = append(sinks, NewConsoleSink(os.Stdout, cfg.Features.RichConsole))
	}

	if cfg.Local.Enabled {
		if slices.Contains(cfg.Local.Formats, "json") {
			sinks = append(sinks, NewJSONSink(cfg.Local.OutputDir, cfg.Local.CleanOnStart))
		}
		if slices.Contains(cfg.Local.Formats, "junit") {
			sinks = append(sinks, NewJUnitSink(cfg.Local.OutputDir))
		}
		if slices.Contains(cfg.Local.Formats, "html") {
			htmlSink, err := NewHTMLSink(cfg.Local.OutputDir)
			if err != nil {
				return nil, fmt.Errorf("failed to create HTML sink: %w", err)
			}
			sinks = append(sinks, htmlSink)
		}
	}

	if cfg.API.Enabled {
		c := client.New(cfg.API.URL, cfg.API.Key, cfg.ProjectName, cfg.API.Timeout)
		sinks = append(sinks, NewAPISink(logger, c, cfg.API.BatchSize))
	}

	return NewPipeline(logger, sinks...), nil
}

// SinkNames returns the registered sink names in delivery order.
func (p *Pipeline) SinkNames() []string {
	names := make([]string, len(p.sinks))
	for i, sink := range p.sinks {
		names[i] = sink.Name()
	}
	return names
}

// StartRun creates the run aggregate and opens every sink for it. A sink
// that fails to start is logged and skipped over; the run still starts.
func (p *Pipeline) StartRun(desc RunDescriptor) (*types.TestRunResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.run != nil {
		return nil, ErrRunActive
	}

	run := types.NewTestRunResult(desc.Name, desc.ProjectName, desc.Environment)
	for k, v := range desc.Labels {
		run.Labels[k] = v
	}
	if desc.CI.Provider != "" {
		run.ApplyCI(desc.CI)
	}

	p.run = run
	p.log.Info("test run started",
		"run_id", run.ID,
		"name", run.Name,
		"project", run.ProjectName,
		"environment", run.Environment)

	p.deliver("start_run", func(s Sink) error {
		return s.StartRun(run)
	})

	return run, nil
}

// ReportTest adds a finalized test to the run aggregate, then delivers it to
// every sink in registration order. A sink's failure is logged and does not
// block the sinks after it.
func (p *Pipeline) ReportTest(test *types.TestResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.run == nil {
		return ErrNoActiveRun
	}

	p.run.AddTest(test)
	metrics.RecordTestReported(p.run.ProjectName, p.run.ID, test.Status)

	p.deliver("report_test", func(s Sink) error {
		return s.ReportTest(test)
	})

	return nil
}

// EndRun finalizes the run timing, lets every sink write out, and returns
// the completed aggregate. The active-run slot is cleared even when sinks
// fail to flush.
func (p *Pipeline) EndRun() (*types.TestRunResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.run == nil {
		return nil, ErrNoActiveRun
	}

	run := p.run
	run.EndTime = time.Now().UTC()

	p.deliver("end_run", func(s Sink) error {
		return s.EndRun(run)
	})

	result := "failed"
	if run.IsSuccessful() {
		result = "passed"
	}
	metrics.RecordRunResults(run.ProjectName, run.ID, result,
		run.Total, run.Passed, run.Failed, run.Broken, run.Skipped, run.Duration())

	p.log.Info("test run finished",
		"run_id", run.ID,
		"total", run.Total,
		"passed", run.Passed,
		"failed", run.Failed,
		"broken", run.Broken,
		"skipped", run.Skipped,
		"pass_rate", fmt.Sprintf("%.2f", run.PassRate()),
		"duration", run.Duration())

	p.run = nil
	return run, nil
}

// CurrentRun returns the active run aggregate, or nil between runs.
func (p *Pipeline) CurrentRun() *types.TestRunResult {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.run
}

// deliver invokes fn on every sink in registration order, isolating each
// sink's failure so the remaining sinks still receive the call.
func (p *Pipeline) deliver(op string, fn func(Sink) error) {
	for _, sink := range p.sinks {
		if err := fn(sink); err != nil {
			p.log.Error("sink delivery failed", "sink", sink.Name(), "op", op, "err", err)
			metrics.RecordSinkError(sink.Name(), op, err)
		}
	}
}
