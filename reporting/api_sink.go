package reporting

import (
	"context"

	"github.com/ethereum/go-ethereum/log"

	"github.com/qagentic/qagentic-go/client"
	"github.com/qagentic/qagentic-go/metrics"
	"github.com/qagentic/qagentic-go/types"
)

// TestFramework is reported to the gateway as run metadata.
const TestFramework = "go test"

// APISink streams results to the remote reporting API. Results are buffered
// and flushed in batches; every network failure is logged and swallowed so
// the remote backend can never break a test run.
type APISink struct {
	log       log.Logger
	client    *client.Client
	batchSize int

	runID string
	batch []*types.TestResult
}

// NewAPISink creates an APISink flushing every batchSize results.
func NewAPISink(logger log.Logger, c *client.Client, batchSize int) *APISink {
	return &APISink{
		log:       logger,
		client:    c,
		batchSize: batchSize,
	}
}

func (s *APISink) Name() string { return "api" }

// StartRun registers the run with the gateway. When registration fails the
// sink keeps the locally-generated run ID and carries on; the gateway just
// never learns about this run.
func (s *APISink) StartRun(run *types.TestRunResult) error {
	s.batch = nil

	runID, err := s.client.CreateRun(context.Background(), run, client.DefaultMetadata(TestFramework))
	if err != nil {
		s.log.Warn("failed to register run with API", "run_id", run.ID, "err", err)
		s.runID = run.ID
		return nil
	}

	s.runID = runID
	s.log.Debug("run registered with API", "run_id", run.ID, "api_run_id", runID)
	return nil
}

// ReportTest buffers the result and flushes once the buffer reaches the
// batch size.
func (s *APISink) ReportTest(test *types.TestResult) error {
	s.batch = append(s.batch, test)

	if len(s.batch) >= s.batchSize {
		s.flush()
	}
	return nil
}

// EndRun flushes the remainder, finalizes the run on the gateway and
// releases the client.
func (s *APISink) EndRun(run *types.TestRunResult) error {
	s.flush()

	if err := s.client.FinalizeRun(context.Background(), s.runID, run); err != nil {
		s.log.Warn("failed to finalize run with API", "run_id", s.runID, "err", err)
	}

	s.client.Close()
	return nil
}

// flush sends every buffered result. The buffer is cleared after the attempt
// whether or not it succeeded: a batch that hits a transport error is dropped
// with a warning, never retried, so reporting cannot stall the run.
func (s *APISink) flush() {
	if len(s.batch) == 0 {
		return
	}

	var flushErr error
	defer func() {
		metrics.RecordBatchFlush(flushErr)
		s.batch = nil
	}()

	for _, test := range s.batch {
		if err := s.client.SubmitResult(context.Background(), s.runID, test); err != nil {
			s.log.Warn("failed to send test results to API",
				"run_id", s.runID,
				"test", test.Name,
				"dropped", len(s.batch),
				"err", err)
			flushErr = err
			return
		}
	}

	s.log.Debug("flushed result batch to API", "run_id", s.runID, "count", len(s.batch))
}
