package reporting

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qagentic/qagentic-go/types"
)

func junitRun() *types.TestRunResult {
	run := types.NewTestRunResult("nightly", "checkout", "staging")
	run.StartTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	run.EndTime = run.StartTime.Add(6 * time.Second)

	passed := types.NewTestResult("TestHappyPath", "")
	passed.Status = types.StatusPassed
	passed.ClassName = "CheckoutSuite"
	passed.StartTime = run.StartTime
	passed.EndTime = run.StartTime.Add(1500 * time.Millisecond)
	run.AddTest(passed)

	failed := types.NewTestResult("TestDeclinedCard", "")
	failed.Status = types.StatusFailed
	failed.Module = "checkout_test"
	failed.ErrorMessage = "expected decline"
	failed.ErrorType = "AssertionError"
	failed.StackTrace = "checkout_test.go:42: expected decline"
	run.AddTest(failed)

	broken := types.NewTestResult("TestFixture", "")
	broken.Status = types.StatusBroken
	broken.ErrorMessage = "db unavailable"
	run.AddTest(broken)

	skipped := types.NewTestResult("TestGiftCard", "")
	skipped.Status = types.StatusSkipped
	skipped.ErrorMessage = "feature flag off"
	run.AddTest(skipped)

	return run
}

func TestJUnitSinkWritesSuite(t *testing.T) {
	dir := t.TempDir()
	sink := NewJUnitSink(dir)
	assert.Equal(t, "junit", sink.Name())

	run := junitRun()
	require.NoError(t, sink.StartRun(run))
	require.NoError(t, sink.EndRun(run))

	data, err := os.ReadFile(filepath.Join(dir, "junit.xml"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<?xml"), "document carries the XML declaration")

	var suite junitTestSuite
	require.NoError(t, xml.Unmarshal(data, &suite))

	assert.Equal(t, "checkout", suite.Name)
	assert.Equal(t, 4, suite.Tests)
	assert.Equal(t, 1, suite.Failures)
	assert.Equal(t, 1, suite.Errors)
	assert.Equal(t, 1, suite.Skipped)
	assert.Equal(t, "6", suite.Time)
	assert.Equal(t, "2025-03-10T12:00:00Z", suite.Timestamp)
	require.Len(t, suite.TestCases, 4)

	passed := suite.TestCases[0]
	assert.Equal(t, "TestHappyPath", passed.Name)
	assert.Equal(t, "CheckoutSuite", passed.ClassName)
	assert.Equal(t, "1.5", passed.Time)
	assert.Nil(t, passed.Failure)
	assert.Nil(t, passed.Error)
	assert.Nil(t, passed.Skipped)

	failed := suite.TestCases[1]
	assert.Equal(t, "checkout_test", failed.ClassName, "classname falls back to module")
	require.NotNil(t, failed.Failure)
	assert.Equal(t, "expected decline", failed.Failure.Message)
	assert.Equal(t, "AssertionError", failed.Failure.Type)
	assert.Contains(t, failed.Failure.Trace, "checkout_test.go:42")

	broken := suite.TestCases[2]
	require.NotNil(t, broken.Error)
	assert.Equal(t, "db unavailable", broken.Error.Message)
	assert.Equal(t, "Error", broken.Error.Type, "missing error type falls back")

	skipped := suite.TestCases[3]
	require.NotNil(t, skipped.Skipped)
	assert.Equal(t, "feature flag off", skipped.Skipped.Message)
}

func TestJUnitSinkDefaultMessages(t *testing.T) {
	run := types.NewTestRunResult("", "proj", "")

	failed := types.NewTestResult("TestNoDetail", "")
	failed.Status = types.StatusFailed
	run.AddTest(failed)

	suite := buildJUnitSuite(run)
	require.Len(t, suite.TestCases, 1)
	require.NotNil(t, suite.TestCases[0].Failure)
	assert.Equal(t, "Test failed", suite.TestCases[0].Failure.Message)
	assert.Equal(t, "AssertionError", suite.TestCases[0].Failure.Type)
	assert.Equal(t, "", suite.TestCases[0].ClassName)
}
