package types

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CIMetadata identifies the CI build a run executed under. It is collected by
// the adapter and copied onto the run record at start.
type CIMetadata struct {
	Provider string `json:"provider,omitempty"`
	BuildID  string `json:"build_id,omitempty"`
	BuildURL string `json:"build_url,omitempty"`
	Branch   string `json:"branch,omitempty"`
	Commit   string `json:"commit,omitempty"`
}

// TestRunResult aggregates every result of one execution session. AddTest is
// the only mutator while the run is active; the counters are always the exact
// tally of Tests by status.
type TestRunResult struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ProjectName string `json:"project_name"`
	Environment string `json:"environment"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Broken  int `json:"broken"`
	Skipped int `json:"skipped"`

	Labels     Labels         `json:"labels,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`

	CIBuildID  string `json:"ci_build_id,omitempty"`
	CIBuildURL string `json:"ci_build_url,omitempty"`
	Branch     string `json:"branch,omitempty"`
	CommitHash string `json:"commit_hash,omitempty"`

	Tests []*TestResult `json:"tests"`
}

// NewTestRunResult opens a run record. An empty name gets a timestamped
// default; an empty environment defaults to local.
func NewTestRunResult(name, projectName, environment string) *TestRunResult {
	if name == "" {
		name = fmt.Sprintf("run_%s", time.Now().UTC().Format("20060102_150405"))
	}
	if environment == "" {
		environment = "local"
	}
	return &TestRunResult{
		ID:          uuid.New().String(),
		Name:        name,
		ProjectName: projectName,
		Environment: environment,
		StartTime:   time.Now().UTC(),
		Labels:      Labels{},
		Tests:       []*TestResult{},
	}
}

// AddTest appends a finalized result and updates the counters. Exactly one
// bucket is incremented per terminal status; a non-terminal status counts
// only toward the total rather than crashing the accumulator.
func (r *TestRunResult) AddTest(test *TestResult) {
	r.Tests = append(r.Tests, test)
	r.Total++

	switch test.Status {
	case StatusPassed:
		r.Passed++
	case StatusFailed:
		r.Failed++
	case StatusBroken:
		r.Broken++
	case StatusSkipped:
		r.Skipped++
	}
}

// PassRate is the percentage of passed tests, 0 for an empty run.
func (r *TestRunResult) PassRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Passed) / float64(r.Total) * 100
}

// IsSuccessful reports whether the run had no failed and no broken tests.
func (r *TestRunResult) IsSuccessful() bool {
	return r.Failed == 0 && r.Broken == 0
}

// Duration returns elapsed wall time once the run is finalized.
func (r *TestRunResult) Duration() time.Duration {
	if r.StartTime.IsZero() || r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// DurationMS is the duration in milliseconds as written to reports.
func (r *TestRunResult) DurationMS() float64 {
	return float64(r.Duration()) / float64(time.Millisecond)
}

// ApplyCI copies CI build coordinates onto the run record.
func (r *TestRunResult) ApplyCI(ci CIMetadata) {
	r.CIBuildID = ci.BuildID
	r.CIBuildURL = ci.BuildURL
	r.Branch = ci.Branch
	r.CommitHash = ci.Commit
}

// MarshalJSON includes the derived duration_ms and pass_rate alongside the
// stored fields.
func (r *TestRunResult) MarshalJSON() ([]byte, error) {
	type alias TestRunResult
	return json.Marshal(struct {
		*alias
		DurationMS float64 `json:"duration_ms"`
		PassRate   float64 `json:"pass_rate"`
	}{(*alias)(r), r.DurationMS(), r.PassRate()})
}

// UnmarshalJSON accepts the serialized form, discarding derived fields.
func (r *TestRunResult) UnmarshalJSON(data []byte) error {
	type alias TestRunResult
	aux := struct {
		*alias
		DurationMS float64 `json:"duration_ms"`
		PassRate   float64 `json:"pass_rate"`
	}{alias: (*alias)(r)}
	return json.Unmarshal(data, &aux)
}
