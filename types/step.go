package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Step is one node in a test's execution tree. A step is mutated only while
// it is the active scope on its tracker's stack; after exit it is immutable.
type Step struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Status      Status         `json:"status"`
	StartTime   time.Time      `json:"start_time"`
	EndTime     time.Time      `json:"end_time"`
	Error       string         `json:"error,omitempty"`
	ErrorTrace  string         `json:"error_trace,omitempty"`
	Attachments []Attachment   `json:"attachments,omitempty"`
	Children    []*Step        `json:"children,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// NewStep creates a running step anchored at the current instant.
func NewStep(name, description string, params map[string]any) *Step {
	return &Step{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		Status:      StatusRunning,
		StartTime:   time.Now().UTC(),
		Parameters:  params,
	}
}

// Duration returns the elapsed wall time once the step is finalized,
// zero beforehand.
func (s *Step) Duration() time.Duration {
	if s.StartTime.IsZero() || s.EndTime.IsZero() {
		return 0
	}
	return s.EndTime.Sub(s.StartTime)
}

// DurationMS is the duration in milliseconds as written to reports.
func (s *Step) DurationMS() float64 {
	return float64(s.Duration()) / float64(time.Millisecond)
}

// MarshalJSON includes the derived duration_ms alongside the stored fields so
// serialized steps agree with their timestamps.
func (s *Step) MarshalJSON() ([]byte, error) {
	type alias Step
	return json.Marshal(struct {
		*alias
		DurationMS float64 `json:"duration_ms"`
	}{(*alias)(s), s.DurationMS()})
}

// UnmarshalJSON accepts the serialized form, discarding the derived
// duration_ms in favor of the timestamps.
func (s *Step) UnmarshalJSON(data []byte) error {
	type alias Step
	aux := struct {
		*alias
		DurationMS float64 `json:"duration_ms"`
	}{alias: (*alias)(s)}
	return json.Unmarshal(data, &aux)
}
