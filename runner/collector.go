package runner

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"

	"github.com/qagentic/qagentic-go/types"
)

// maxTraceBytes caps the output tail carried as an error trace. The full
// transcript is attached separately, so the trace only needs the end of it.
const maxTraceBytes = 4 * 1024

// Collector folds a go test -json event stream into Reporter calls. Events
// must be fed in stream order from a single goroutine. Top-level test
// functions become reported tests, subtests become nested steps on them, and
// a failing test gets its captured output attached.
type Collector struct {
	log      log.Logger
	reporter Reporter

	tests    map[string]*testState
	packages map[string]*packageState
	raw      *tailBuffer

	reported int
	failures int
}

// testState tracks one top-level test function while its events stream in.
type testState struct {
	id     string
	name   string
	pkg    string
	output *tailBuffer
	subs   map[string]*subtestState
	order  []string
}

// subtestState tracks a single subtest, keyed by its full slash path.
type subtestState struct {
	name   string
	start  time.Time
	end    time.Time
	status types.Status
	output *tailBuffer
}

type packageState struct {
	output   *tailBuffer
	sawTests bool
}

func NewCollector(logger log.Logger, reporter Reporter) *Collector {
	return &Collector{
		log:      logger,
		reporter: reporter,
		tests:    make(map[string]*testState),
		packages: make(map[string]*packageState),
		raw:      newTailBuffer(defaultStderrTailBytes),
	}
}

// Observe routes one decoded event to the right state machine.
func (c *Collector) Observe(ev TestEvent) {
	switch {
	case ev.Test == "":
		c.observePackage(ev)
	case ev.IsSubtest():
		c.observeSubtest(ev)
	default:
		c.observeTest(ev)
	}
}

// ObserveRaw records a stream line that was not valid JSON. Older toolchains
// print build errors as plain text in the middle of the stream.
func (c *Collector) ObserveRaw(line string) {
	c.raw.WriteString(line + "\n")
}

// RawOutput returns the accumulated non-JSON stream content.
func (c *Collector) RawOutput() string {
	return c.raw.String()
}

// Reported is the number of tests finalized so far, synthetic ones included.
func (c *Collector) Reported() int {
	return c.reported
}

// Failures counts reported tests that did not pass, including broken and
// interrupted ones.
func (c *Collector) Failures() int {
	return c.failures
}

func (c *Collector) observeTest(ev TestEvent) {
	id := testID(ev.Package, ev.Test)
	switch ev.Action {
	case ActionRun:
		c.reporter.OnTestStart(id, types.TestInfo{
			Name:     ev.Test,
			FullName: id,
			Module:   ev.Package,
		})
		c.tests[id] = &testState{
			id:     id,
			name:   ev.Test,
			pkg:    ev.Package,
			output: newTailBuffer(defaultOutputTailBytes),
			subs:   make(map[string]*subtestState),
		}
		c.packageFor(ev.Package).sawTests = true
	case ActionOutput:
		if st, ok := c.tests[id]; ok {
			st.output.WriteString(stripansi.Strip(ev.Output))
		} else {
			c.packageFor(ev.Package).output.WriteString(stripansi.Strip(ev.Output))
		}
	case ActionPass:
		c.finalizeTest(id, types.OutcomePassed)
	case ActionFail:
		c.finalizeTest(id, types.OutcomeFailed)
	case ActionSkip:
		c.finalizeTest(id, types.OutcomeSkipped)
	}
}

func (c *Collector) observeSubtest(ev TestEvent) {
	st, ok := c.tests[testID(ev.Package, ev.ParentTest())]
	if !ok {
		return
	}
	switch ev.Action {
	case ActionRun:
		start := ev.Time
		if start.IsZero() {
			start = time.Now().UTC()
		}
		st.subs[ev.Test] = &subtestState{
			name:   leafName(ev.Test),
			start:  start,
			status: types.StatusRunning,
			output: newTailBuffer(defaultOutputTailBytes),
		}
		st.order = append(st.order, ev.Test)
	case ActionOutput:
		if sub, ok := st.subs[ev.Test]; ok {
			text := stripansi.Strip(ev.Output)
			sub.output.WriteString(text)
			// Mirror into the parent so the test transcript stays complete.
			st.output.WriteString(text)
		}
	case ActionPass:
		c.finalizeSubtest(st, ev, types.StatusPassed)
	case ActionFail:
		c.finalizeSubtest(st, ev, types.StatusFailed)
	case ActionSkip:
		c.finalizeSubtest(st, ev, types.StatusSkipped)
	}
}

func (c *Collector) observePackage(ev TestEvent) {
	switch ev.Action {
	case ActionOutput:
		c.packageFor(ev.Package).output.WriteString(stripansi.Strip(ev.Output))
	case ActionFail:
		ps := c.packageFor(ev.Package)
		if !ps.sawTests {
			c.reportBroken(ev.Package, ps.output.String(), "package failed before running tests")
		}
		delete(c.packages, ev.Package)
	case ActionPass, ActionSkip:
		if ev.Action == ActionSkip {
			c.log.Debug("No test files in package", "package", ev.Package)
		}
		delete(c.packages, ev.Package)
	}
}

func (c *Collector) finalizeTest(id string, outcome types.Outcome) {
	st, ok := c.tests[id]
	if !ok {
		return
	}
	c.assembleSteps(st)

	var errInfo *types.ErrorInfo
	output := st.output.String()
	switch outcome {
	case types.OutcomeFailed:
		errInfo = extractErrorInfo(output)
		c.attachTranscript(st)
		c.failures++
	case types.OutcomeSkipped:
		if reason := extractSkipReason(output); reason != "" {
			errInfo = &types.ErrorInfo{Message: reason}
		}
	}

	if err := c.reporter.OnPhaseComplete(id, types.PhaseCall, outcome, errInfo); err != nil {
		c.log.Warn("Failed to record test verdict", "test", id, "err", err)
	}
	if _, err := c.reporter.OnTestEnd(id); err != nil {
		c.log.Warn("Failed to finalize test", "test", id, "err", err)
	}
	delete(c.tests, id)
	c.reported++
}

func (c *Collector) finalizeSubtest(st *testState, ev TestEvent, status types.Status) {
	sub, ok := st.subs[ev.Test]
	if !ok {
		return
	}
	sub.status = status
	switch {
	case !ev.Time.IsZero() && ev.Time.After(sub.start):
		sub.end = ev.Time
	case ev.Elapsed > 0:
		sub.end = sub.start.Add(time.Duration(ev.Elapsed * float64(time.Second)))
	default:
		sub.end = sub.start
	}
}

// assembleSteps rebuilds the subtest hierarchy as a step tree and hands the
// roots to the test's tracker. Subtests arrive in declaration order, so each
// parent path is always built before its children.
func (c *Collector) assembleSteps(st *testState) {
	if len(st.order) == 0 {
		return
	}
	tracker := c.reporter.Tracker(st.id)
	if tracker == nil {
		return
	}
	built := make(map[string]*types.Step, len(st.order))
	for _, path := range st.order {
		sub := st.subs[path]
		status := sub.status
		if status == types.StatusRunning {
			status = types.StatusUnknown
		}
		step := types.NewStep(sub.name, "", nil)
		step.Status = status
		step.StartTime = sub.start
		step.EndTime = sub.end
		if step.EndTime.IsZero() {
			step.EndTime = sub.start
		}
		if status == types.StatusFailed {
			info := extractErrorInfo(sub.output.String())
			step.Error = info.Message
			step.ErrorTrace = info.Trace
		}
		built[path] = step
		if parent, ok := built[parentPath(path)]; ok {
			parent.Children = append(parent.Children, step)
		} else {
			tracker.Adopt(step)
		}
	}
}

// FinalizeOpen force-finishes tests that never received a terminal event,
// which happens when the test binary is killed or crashes mid-run.
func (c *Collector) FinalizeOpen(reason string) {
	ids := make([]string, 0, len(c.tests))
	for id := range c.tests {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		st := c.tests[id]
		c.assembleSteps(st)
		c.attachTranscript(st)
		errInfo := &types.ErrorInfo{
			Type:    "Interrupted",
			Message: reason,
			Trace:   capTail(st.output.String(), maxTraceBytes),
		}
		if err := c.reporter.OnPhaseComplete(id, types.PhaseCall, types.OutcomeFailed, errInfo); err != nil {
			c.log.Warn("Failed to record interrupted test", "test", id, "err", err)
		}
		if _, err := c.reporter.OnTestEnd(id); err != nil {
			c.log.Warn("Failed to finalize interrupted test", "test", id, "err", err)
		}
		delete(c.tests, id)
		c.reported++
		c.failures++
	}
}

// ReportBrokenSuite records a synthetic broken result standing in for a run
// where go test failed without reporting any failures, e.g. a build error or
// a bad invocation.
func (c *Collector) ReportBrokenSuite(pattern string, exitCode int, detail string) {
	fallback := fmt.Sprintf("go test exited with code %d before reporting results", exitCode)
	c.reportBroken(pattern, detail, fallback)
}

func (c *Collector) reportBroken(scope, detail, fallback string) {
	id := scope + " [build failed]"
	c.reporter.OnTestStart(id, types.TestInfo{
		Name:     "[build failed]",
		FullName: id,
		Module:   scope,
	})
	msg := firstErrorLine(detail)
	if msg == "" {
		msg = fallback
	}
	if tr := c.reporter.Tracker(id); tr != nil && detail != "" {
		tr.Attach(types.TextAttachment("build output", detail))
	}
	errInfo := &types.ErrorInfo{
		Type:    "BuildError",
		Message: msg,
		Trace:   capTail(detail, maxTraceBytes),
	}
	if err := c.reporter.OnPhaseComplete(id, types.PhaseSetup, types.OutcomeFailed, errInfo); err != nil {
		c.log.Warn("Failed to record build failure", "scope", scope, "err", err)
	}
	if _, err := c.reporter.OnTestEnd(id); err != nil {
		c.log.Warn("Failed to finalize build failure", "scope", scope, "err", err)
	}
	c.reported++
	c.failures++
}

func (c *Collector) attachTranscript(st *testState) {
	output := st.output.String()
	if output == "" {
		return
	}
	tracker := c.reporter.Tracker(st.id)
	if tracker == nil {
		return
	}
	if st.output.Truncated() {
		output = fmt.Sprintf("... earlier output dropped, showing last %d of %d bytes ...\n%s",
			len(output), st.output.TotalBytes(), output)
	}
	tracker.Attach(types.TextAttachment("test output", output))
}

func (c *Collector) packageFor(pkg string) *packageState {
	ps, ok := c.packages[pkg]
	if !ok {
		ps = &packageState{output: newTailBuffer(defaultStderrTailBytes)}
		c.packages[pkg] = ps
	}
	return ps
}

func testID(pkg, name string) string {
	return pkg + "." + name
}

func leafName(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

func parentPath(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[:i]
	}
	return ""
}

// testLogLineRE matches the "file_test.go:42: message" lines go test prints
// for t.Log, t.Error, and t.Skip calls.
var testLogLineRE = regexp.MustCompile(`^\s*[\w./\\~-]+\.go:\d+:\s*(.+)$`)

// extractErrorInfo distills a failure message from captured test output. It
// prefers panics, then testify assertion messages, then the first test log
// line, so a failure never surfaces blank.
func extractErrorInfo(output string) *types.ErrorInfo {
	info := &types.ErrorInfo{Trace: capTail(output, maxTraceBytes)}
	var firstLog string
	for _, line := range strings.Split(output, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "panic:"):
			info.Type = "Panic"
			info.Message = trimmed
			return info
		case strings.HasPrefix(trimmed, "Error:"):
			if info.Message == "" {
				info.Message = strings.TrimSpace(strings.TrimPrefix(trimmed, "Error:"))
			}
		default:
			if firstLog == "" {
				if m := testLogLineRE.FindStringSubmatch(line); m != nil {
					firstLog = strings.TrimSpace(m[1])
				}
			}
		}
	}
	if info.Message == "" {
		info.Message = firstLog
	}
	if info.Message == "" {
		info.Message = "test failed"
	}
	return info
}

// extractSkipReason pulls the t.Skip message out of captured output. go
// prints it as the last test log line before the skip marker.
func extractSkipReason(output string) string {
	var last string
	for _, line := range strings.Split(output, "\n") {
		if m := testLogLineRE.FindStringSubmatch(line); m != nil {
			if msg := strings.TrimSpace(m[1]); msg != "" {
				last = msg
			}
		}
	}
	return last
}

// firstErrorLine returns the first line of build output that looks like an
// actual error, skipping the "# package" headers and FAIL summaries the
// toolchain prints around it.
func firstErrorLine(detail string) string {
	for _, line := range strings.Split(detail, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "FAIL") {
			continue
		}
		return trimmed
	}
	return ""
}

func capTail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}
