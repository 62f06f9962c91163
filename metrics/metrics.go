package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/qagentic/qagentic-go/types"
)

const (
	MetricsNamespace = "qagentic"
)

var (
	Debug                bool = true
	validResults              = []types.Status{types.StatusPassed, types.StatusFailed, types.StatusBroken, types.StatusSkipped}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	testsReportedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "tests_reported_total",
		Help:      "Count of test results reported through the pipeline",
	}, []string{
		"project",
		"run_id",
		"status",
	})

	sinkErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "sink_errors_total",
		Help:      "Count of sink operations that failed",
	}, []string{
		"sink",
		"op",
	})

	apiBatchFlushesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "api_batch_flushes_total",
		Help:      "Count of result batches flushed to the remote API",
	}, []string{
		"outcome",
	})

	runResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_results",
		Help:      "Result of finished test runs",
	}, []string{
		"project",
		"run_id",
		"result",
	})

	runTestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_test_total",
		Help:      "Total number of tests in a run",
	}, []string{
		"project",
		"run_id",
	})

	runTestPassed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_test_passed",
		Help:      "Number of passed tests in a run",
	}, []string{
		"project",
		"run_id",
	})

	runTestFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_test_failed",
		Help:      "Number of failed tests in a run",
	}, []string{
		"project",
		"run_id",
	})

	runTestBroken = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_test_broken",
		Help:      "Number of broken tests in a run",
	}, []string{
		"project",
		"run_id",
	})

	runTestSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "run_test_skipped",
		Help:      "Number of skipped tests in a run",
	}, []string{
		"project",
		"run_id",
	})

	runDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "run_duration",
		Help:      "Duration of finished test runs in seconds",
	}, []string{
		"project",
		"run_id",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

func RecordTestReported(project string, runID string, status types.Status) {
	if !isValidResult(status) {
		log.Error("RecordTestReported - invalid status", "status", status)
		return
	}
	if Debug {
		log.Debug("metric inc",
			"m", "tests_reported_total",
			"project", project,
			"run_id", runID,
			"status", status)
	}
	testsReportedTotal.WithLabelValues(project, runID, string(status)).Inc()
}

// RecordSinkError counts a failed sink operation. op is one of
// "start_run", "report_test" or "end_run".
func RecordSinkError(sink string, op string, err error) {
	if Debug {
		log.Debug("metric inc",
			"m", "sink_errors_total",
			"sink", sink,
			"op", op,
			"err", err)
	}
	sinkErrorsTotal.WithLabelValues(sink, op).Inc()
	RecordErrorDetails(fmt.Sprintf("sink.%s.%s", sink, op), err)
}

func RecordBatchFlush(err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	apiBatchFlushesTotal.WithLabelValues(outcome).Inc()
}

func RecordRunResults(
	project string,
	runID string,
	result string,
	total int,
	passed int,
	failed int,
	broken int,
	skipped int,
	duration time.Duration,
) {
	runResults.WithLabelValues(project, runID, result).Set(1)
	runTestTotal.WithLabelValues(project, runID).Add(float64(total))
	runTestPassed.WithLabelValues(project, runID).Add(float64(passed))
	runTestFailed.WithLabelValues(project, runID).Add(float64(failed))
	runTestBroken.WithLabelValues(project, runID).Add(float64(broken))
	runTestSkipped.WithLabelValues(project, runID).Add(float64(skipped))
	runDuration.WithLabelValues(project, runID).Set(duration.Seconds())
}

func isValidResult(result types.Status) bool {
	return slices.Contains(validResults, result)
}
