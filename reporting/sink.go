package reporting

import "github.com/qagentic/qagentic-go/types"

// Sink is one destination for test results. Delivery failures inside a sink
// are isolated by the Pipeline; a sink never sees another sink's errors.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string
	// StartRun prepares the sink for a new run.
	StartRun(run *types.TestRunResult) error
	// ReportTest delivers a single finalized test result.
	ReportTest(test *types.TestResult) error
	// EndRun flushes the sink with the completed run aggregate.
	EndRun(run *types.TestRunResult) error
}
