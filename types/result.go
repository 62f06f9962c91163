package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TestResult is the record for one test execution. It is created pending at
// test start, mutated through the setup/call/teardown phases, and immutable
// once finalized and handed to the reporting pipeline.
type TestResult struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Description string `json:"description,omitempty"`

	Status    Status    `json:"status"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	ErrorMessage string `json:"error_message,omitempty"`
	ErrorType    string `json:"error_type,omitempty"`
	StackTrace   string `json:"stack_trace,omitempty"`

	Labels     Labels         `json:"labels,omitempty"`
	Links      []Link         `json:"links,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`

	Steps       []*Step      `json:"steps,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`

	FilePath   string `json:"file_path,omitempty"`
	LineNumber int    `json:"line_number,omitempty"`
	Module     string `json:"module,omitempty"`
	ClassName  string `json:"class_name,omitempty"`

	RetryCount     int    `json:"retry_count"`
	IsRetry        bool   `json:"is_retry"`
	OriginalTestID string `json:"original_test_id,omitempty"`

	IsFlaky     bool   `json:"is_flaky"`
	FlakyReason string `json:"flaky_reason,omitempty"`
}

// NewTestResult creates a pending record for a test about to execute.
func NewTestResult(name, fullName string) *TestResult {
	return &TestResult{
		ID:       uuid.New().String(),
		Name:     name,
		FullName: fullName,
		Status:   StatusPending,
		Labels:   Labels{},
	}
}

// Duration returns the elapsed wall time once both timestamps are set.
func (t *TestResult) Duration() time.Duration {
	if t.StartTime.IsZero() || t.EndTime.IsZero() {
		return 0
	}
	return t.EndTime.Sub(t.StartTime)
}

// DurationMS is the duration in milliseconds as written to reports.
func (t *TestResult) DurationMS() float64 {
	return float64(t.Duration()) / float64(time.Millisecond)
}

// Label-derived views. These are never stored separately; they read the
// label mapping so serialized records and views cannot disagree.

func (t *TestResult) Severity() Severity { return t.Labels.Severity() }
func (t *TestResult) Feature() string    { return t.Labels.Feature() }
func (t *TestResult) Story() string      { return t.Labels.Story() }
func (t *TestResult) Epic() string       { return t.Labels.Epic() }
func (t *TestResult) Tags() []string     { return t.Labels.Tags() }

// AddStep appends a finalized step subtree to the record.
func (t *TestResult) AddStep(step *Step) {
	t.Steps = append(t.Steps, step)
}

// AddAttachment appends a test-level attachment.
func (t *TestResult) AddAttachment(att Attachment) {
	t.Attachments = append(t.Attachments, att)
}

// SetError records error details and marks the test failed unless a terminal
// failure status is already set.
func (t *TestResult) SetError(message, errorType, stackTrace string) {
	t.ErrorMessage = message
	t.ErrorType = errorType
	t.StackTrace = stackTrace
	if t.Status != StatusFailed && t.Status != StatusBroken {
		t.Status = StatusFailed
	}
}

// MarshalJSON includes the derived duration_ms alongside the stored fields.
func (t *TestResult) MarshalJSON() ([]byte, error) {
	type alias TestResult
	return json.Marshal(struct {
		*alias
		DurationMS float64 `json:"duration_ms"`
	}{(*alias)(t), t.DurationMS()})
}

// UnmarshalJSON accepts the serialized form, discarding the derived
// duration_ms in favor of the timestamps.
func (t *TestResult) UnmarshalJSON(data []byte) error {
	type alias TestResult
	aux := struct {
		*alias
		DurationMS float64 `json:"duration_ms"`
	}{alias: (*alias)(t)}
	return json.Unmarshal(data, &aux)
}
