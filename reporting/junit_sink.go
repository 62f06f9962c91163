package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/qagentic/qagentic-go/types"
)

const junitFilename = "junit.xml"

// JUnitSink writes a junit.xml report for CI systems. It accumulates nothing
// during the run; the whole document is emitted at EndRun from the run
// aggregate.
type JUnitSink struct {
	outputDir string
}

// NewJUnitSink creates a JUnitSink rooted at outputDir.
func NewJUnitSink(outputDir string) *JUnitSink {
	return &JUnitSink{outputDir: outputDir}
}

func (s *JUnitSink) Name() string { return "junit" }

// StartRun ensures the output directory exists.
func (s *JUnitSink) StartRun(run *types.TestRunResult) error {
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", s.outputDir, err)
	}
	return nil
}

// ReportTest is a no-op; the document is built from the run aggregate.
func (s *JUnitSink) ReportTest(test *types.TestResult) error {
	return nil
}

// EndRun writes the junit.xml document.
func (s *JUnitSink) EndRun(run *types.TestRunResult) error {
	doc := buildJUnitSuite(run)

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize junit report: %w", err)
	}
	data = append([]byte(xml.Header), data...)

	junitFile := filepath.Join(s.outputDir, junitFilename)
	if err := os.WriteFile(junitFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", junitFile, err)
	}

	return nil
}

type junitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Time      string          `xml:"time,attr"`
	Timestamp string          `xml:"timestamp,attr"`
	TestCases []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitProblem `xml:"failure,omitempty"`
	Error     *junitProblem `xml:"error,omitempty"`
	Skipped   *junitSkipped `xml:"skipped,omitempty"`
}

type junitProblem struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Trace   string `xml:",chardata"`
}

type junitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

func buildJUnitSuite(run *types.TestRunResult) junitTestSuite {
	suite := junitTestSuite{
		Name:      run.ProjectName,
		Tests:     run.Total,
		Failures:  run.Failed,
		Errors:    run.Broken,
		Skipped:   run.Skipped,
		Time:      formatSeconds(run.DurationMS()),
		Timestamp: run.StartTime.Format(time.RFC3339),
		TestCases: make([]junitTestCase, 0, len(run.Tests)),
	}

	for _, test := range run.Tests {
		tc := junitTestCase{
			Name:      test.Name,
			ClassName: junitClassName(test),
			Time:      formatSeconds(test.DurationMS()),
		}

		switch test.Status {
		case types.StatusFailed:
			tc.Failure = &junitProblem{
				Message: orDefault(test.ErrorMessage, "Test failed"),
				Type:    orDefault(test.ErrorType, "AssertionError"),
				Trace:   test.StackTrace,
			}
		case types.StatusBroken:
			tc.Error = &junitProblem{
				Message: orDefault(test.ErrorMessage, "Test error"),
				Type:    orDefault(test.ErrorType, "Error"),
				Trace:   test.StackTrace,
			}
		case types.StatusSkipped:
			tc.Skipped = &junitSkipped{Message: test.ErrorMessage}
		}

		suite.TestCases = append(suite.TestCases, tc)
	}

	return suite
}

// junitClassName picks the classname attribute: class, then module, then
// empty.
func junitClassName(test *types.TestResult) string {
	if test.ClassName != "" {
		return test.ClassName
	}
	return test.Module
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
