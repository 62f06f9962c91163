package types

// Phase identifies one stage of a test's lifecycle as observed by the
// framework adapter.
type Phase string

const (
	PhaseSetup    Phase = "setup"
	PhaseCall     Phase = "call"
	PhaseTeardown Phase = "teardown"
)

// Outcome is the adapter's verdict for a single phase.
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// ErrorInfo carries the failure details the adapter captured for one phase.
type ErrorInfo struct {
	Message string
	Type    string
	Trace   string
}

// TestInfo is the static description of a test known before it runs:
// identity, annotations, parameters, and source location.
type TestInfo struct {
	Name        string
	FullName    string
	Description string
	Labels      Labels
	Links       []Link
	Parameters  map[string]any
	FilePath    string
	LineNumber  int
	Module      string
	ClassName   string
}
