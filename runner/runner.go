package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/qagentic/qagentic-go/steps"
	"github.com/qagentic/qagentic-go/types"
)

const (
	TestCommand = "test"
	JSONFlag    = "-json"
	VerboseFlag = "-v"
	TimeoutFlag = "-timeout"

	DefaultGoBinary     = "go"
	DefaultSuiteTimeout = 10 * time.Minute
	AllPackagesPattern  = "./..."

	// maxScanTokenBytes bounds a single stream line. test2json emits one
	// output line per event, but tests can print very long lines.
	maxScanTokenBytes = 1024 * 1024
)

// Reporter receives lifecycle callbacks as the suite executes. The root
// package's Core satisfies it.
type Reporter interface {
	OnRunStart(name string, ci types.CIMetadata) (*types.TestRunResult, error)
	OnTestStart(id string, info types.TestInfo) *types.TestResult
	OnPhaseComplete(id string, phase types.Phase, outcome types.Outcome, errInfo *types.ErrorInfo) error
	OnTestEnd(id string) (*types.TestResult, error)
	OnRunEnd() (*types.TestRunResult, error)
	Tracker(id string) *steps.Tracker
}

// SuiteRunner executes one complete test suite run and returns its
// aggregated result.
type SuiteRunner interface {
	Run(ctx context.Context) (*types.TestRunResult, error)
}

// Config holds the runner's dependencies and invocation parameters.
type Config struct {
	Log      log.Logger
	Reporter Reporter

	// WorkDir is the directory the go binary is invoked from. It must
	// contain the module whose tests are being run.
	WorkDir string

	// Packages is the package pattern handed to go test. Multiple patterns
	// may be separated by spaces. Defaults to "./...".
	Packages string

	// GoBinary overrides the go executable. Defaults to "go".
	GoBinary string

	// Timeout bounds the whole invocation, including compilation, and is
	// also passed to go test as -timeout. Defaults to 10 minutes.
	Timeout time.Duration

	// RunName labels the run in every report. When empty a timestamped
	// name is generated per run.
	RunName string

	// CmdBuilder constructs the command to execute. The returned func is
	// invoked after the command finishes. Defaults to exec.CommandContext
	// rooted at WorkDir; tests substitute their own.
	CmdBuilder func(ctx context.Context, name string, arg ...string) (*exec.Cmd, func())
}

// Runner shells out to go test and streams the resulting events into the
// Reporter. It satisfies SuiteRunner.
type Runner struct {
	log        log.Logger
	reporter   Reporter
	workDir    string
	packages   string
	goBinary   string
	timeout    time.Duration
	runName    string
	cmdBuilder func(ctx context.Context, name string, arg ...string) (*exec.Cmd, func())
	tracer     trace.Tracer
}

var _ SuiteRunner = (*Runner)(nil)

func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Reporter == nil {
		return nil, errors.New("reporter is required")
	}
	if cfg.WorkDir == "" {
		return nil, errors.New("work directory is required")
	}

	logger := cfg.Log
	if logger == nil {
		logger = log.New()
		logger.Warn("No logger provided, using default")
	}

	r := &Runner{
		log:      logger,
		reporter: cfg.Reporter,
		workDir:  cfg.WorkDir,
		packages: cfg.Packages,
		goBinary: cfg.GoBinary,
		timeout:  cfg.Timeout,
		runName:  cfg.RunName,
		tracer:   otel.Tracer("suite runner"),
	}
	if r.packages == "" {
		r.packages = AllPackagesPattern
	}
	if r.goBinary == "" {
		r.goBinary = DefaultGoBinary
	}
	if r.timeout <= 0 {
		r.timeout = DefaultSuiteTimeout
	}
	if cfg.CmdBuilder != nil {
		r.cmdBuilder = cfg.CmdBuilder
	} else {
		r.cmdBuilder = r.commandContext
	}
	return r, nil
}

// Run executes the suite once. Test failures are carried in the returned
// result, not the error; the error is reserved for the runner itself being
// unable to execute or report.
func (r *Runner) Run(ctx context.Context) (*types.TestRunResult, error) {
	ctx, span := r.tracer.Start(ctx, "run test suite")
	defer span.End()

	runName := r.runName
	if runName == "" {
		runName = "gotest_" + time.Now().UTC().Format("20060102_150405")
	}

	if _, err := r.reporter.OnRunStart(runName, DetectCI()); err != nil {
		return nil, fmt.Errorf("failed to start run: %w", err)
	}

	collector := NewCollector(r.log, r.reporter)
	if err := r.execute(ctx, collector); err != nil {
		// Release the active run before surfacing the error so the next
		// run can start.
		if _, endErr := r.reporter.OnRunEnd(); endErr != nil {
			r.log.Error("Failed to end run after execution error", "err", endErr)
		}
		return nil, err
	}

	run, err := r.reporter.OnRunEnd()
	if err != nil {
		return nil, fmt.Errorf("failed to end run: %w", err)
	}
	return run, nil
}

func (r *Runner) execute(ctx context.Context, collector *Collector) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := r.buildTestArgs()
	cmd, cleanup := r.cmdBuilder(ctx, r.goBinary, args...)
	defer cleanup()

	stderr := newTailBuffer(defaultStderrTailBytes)
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdout pipe: %w", err)
	}

	r.log.Info("Running go test",
		"binary", r.goBinary,
		"packages", r.packages,
		"dir", r.workDir,
		"timeout", r.timeout)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", r.goBinary, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxScanTokenBytes)
	for scanner.Scan() {
		var ev TestEvent
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			collector.ObserveRaw(scanner.Text())
			continue
		}
		collector.Observe(ev)
	}
	if scanErr := scanner.Err(); scanErr != nil {
		r.log.Warn("Test output stream ended abnormally", "err", scanErr)
	}

	exitCode := 0
	if waitErr := cmd.Wait(); waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return fmt.Errorf("failed to run %s: %w", r.goBinary, waitErr)
		}
		exitCode = exitErr.ExitCode()
	}

	collector.FinalizeOpen(r.interruptReason(ctx))
	if exitCode != 0 {
		r.interpretExit(exitCode, collector, stderr)
	}

	r.log.Info("go test finished",
		"exit_code", exitCode,
		"tests", collector.Reported(),
		"failures", collector.Failures())
	return nil
}

// buildTestArgs assembles the go test argument list. The -timeout flag
// bounds the test binaries themselves; the runner separately bounds the
// whole invocation, compilation included, with a context deadline.
func (r *Runner) buildTestArgs() []string {
	args := []string{TestCommand, JSONFlag, VerboseFlag, TimeoutFlag, r.timeout.String()}
	return append(args, strings.Fields(r.packages)...)
}

// interpretExit reconciles a non-zero exit with what the stream reported.
// go test exits 1 when tests fail and 2 when the invocation itself is
// broken. If the stream already recorded a failure the exit is explained;
// otherwise something failed invisibly, typically a build error, and a
// synthetic broken result is recorded so the run is not silently green.
func (r *Runner) interpretExit(code int, collector *Collector, stderr *tailBuffer) {
	if collector.Failures() > 0 {
		return
	}
	detail := strings.TrimSpace(stderr.String())
	if raw := strings.TrimSpace(collector.RawOutput()); raw != "" {
		if detail != "" {
			detail += "\n"
		}
		detail += raw
	}
	r.log.Error("go test failed without reporting test failures",
		"exit_code", code,
		"stderr_bytes", stderr.TotalBytes())
	collector.ReportBrokenSuite(r.packages, code, detail)
}

func (r *Runner) interruptReason(ctx context.Context) string {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Sprintf("test run exceeded the %s suite timeout", r.timeout)
	case ctx.Err() != nil:
		return "test run was canceled"
	default:
		return "test binary exited before the test finished"
	}
}

// commandContext is the default command builder. It runs the go binary from
// the configured work directory and inherits the caller's environment.
func (r *Runner) commandContext(ctx context.Context, name string, arg ...string) (*exec.Cmd, func()) {
	cmd := exec.CommandContext(ctx, name, arg...)
	cmd.Dir = r.workDir
	return cmd, func() {}
}
