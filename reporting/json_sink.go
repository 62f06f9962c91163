package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/qagentic/qagentic-go/types"
)

const (
	runFilename = "run.json"
	testsSubdir = "tests"
)

// JSONSink writes the run aggregate and one document per test under the
// output directory. Everything is written at EndRun; the run aggregate
// already carries every reported test.
type JSONSink struct {
	outputDir    string
	cleanOnStart bool
}

// NewJSONSink creates a JSONSink rooted at outputDir. When cleanOnStart is
// set, stale *.json files in the directory are removed as the run starts.
func NewJSONSink(outputDir string, cleanOnStart bool) *JSONSink {
	return &JSONSink{
		outputDir:    outputDir,
		cleanOnStart: cleanOnStart,
	}
}

func (s *JSONSink) Name() string { return "json" }

// StartRun ensures the output directory exists and clears prior results when
// configured to.
func (s *JSONSink) StartRun(run *types.TestRunResult) error {
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", s.outputDir, err)
	}

	if s.cleanOnStart {
		stale, err := filepath.Glob(filepath.Join(s.outputDir, "*.json"))
		if err != nil {
			return fmt.Errorf("failed to list stale results: %w", err)
		}
		for _, path := range stale {
			if err := os.Remove(path); err != nil {
				return fmt.Errorf("failed to remove stale result %s: %w", path, err)
			}
		}
	}

	return nil
}

// ReportTest is a no-op; the run aggregate delivered to EndRun carries every
// reported test.
func (s *JSONSink) ReportTest(test *types.TestResult) error {
	return nil
}

// EndRun writes run.json plus tests/{testId}.json per test.
func (s *JSONSink) EndRun(run *types.TestRunResult) error {
	runData, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize run: %w", err)
	}
	runFile := filepath.Join(s.outputDir, runFilename)
	if err := os.WriteFile(runFile, runData, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", runFile, err)
	}

	testsDir := filepath.Join(s.outputDir, testsSubdir)
	if err := os.MkdirAll(testsDir, 0755); err != nil {
		return fmt.Errorf("failed to create tests directory %s: %w", testsDir, err)
	}

	for _, test := range run.Tests {
		testData, err := json.MarshalIndent(test, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to serialize test %s: %w", test.ID, err)
		}
		testFile := filepath.Join(testsDir, test.ID+".json")
		if err := os.WriteFile(testFile, testData, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", testFile, err)
		}
	}

	return nil
}
