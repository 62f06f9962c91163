package metrics

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/qagentic/qagentic-go/types"
)

func TestErrToLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "nil error",
			err:  nil,
		},
		{
			name: "simple error",
			err:  errors.New("test error"),
		},
		{
			name: "error with special chars",
			err:  errors.New("test@error#123"),
		},
		{
			name: "error with multiple spaces",
			err:  errors.New("test   error"),
		},
		{
			name: "error with multiple underscores",
			err:  errors.New("test__error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := errToLabel(tt.err)
			validLabelRegex := regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)
			if !validLabelRegex.MatchString(result) {
				t.Errorf("errLabel() = %v, is not a valid Prometheus label", result)
			}
		})
	}
}

func TestRecordError(t *testing.T) {
	// just test that it doesn't panic
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("RecordError panic'd")
		}
	}()

	RecordError("test_error")
}

func TestRecordErrorDetails(t *testing.T) {
	// Test with nil error
	RecordErrorDetails("test", nil)

	// Test with actual error
	RecordErrorDetails("test", errors.New("sample error"))
}

func TestRecordTestReported(t *testing.T) {
	// Test recording for every reportable status
	RecordTestReported("checkout", "run1", types.StatusPassed)
	RecordTestReported("checkout", "run1", types.StatusFailed)
	RecordTestReported("checkout", "run1", types.StatusBroken)
	RecordTestReported("checkout", "run1", types.StatusSkipped)

	// Non-terminal statuses are rejected without panicking
	RecordTestReported("checkout", "run1", types.StatusRunning)
	RecordTestReported("checkout", "run1", types.StatusPending)
}

func TestRecordSinkError(t *testing.T) {
	RecordSinkError("console", "start_run", errors.New("tty gone"))
	RecordSinkError("api", "report_test", errors.New("connection refused"))
	RecordSinkError("json", "end_run", nil)
}

func TestRecordBatchFlush(t *testing.T) {
	RecordBatchFlush(nil)
	RecordBatchFlush(errors.New("connection reset"))
}

func TestRecordRunResults(t *testing.T) {
	// Record both outcomes for one project/run pair
	RecordRunResults("checkout", "run1", "pass", 1, 1, 0, 0, 0, time.Second)
	RecordRunResults("checkout", "run2", "fail", 3, 1, 1, 0, 1, 2*time.Second)
}
