package types

// Status represents the possible states of a test or step
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusBroken  Status = "broken"
	StatusSkipped Status = "skipped"
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusUnknown Status = "unknown"
)

// ParseStatus maps a serialized status value to a Status.
// Unrecognized values map to StatusUnknown.
func ParseStatus(s string) Status {
	switch Status(s) {
	case StatusPassed, StatusFailed, StatusBroken, StatusSkipped, StatusPending, StatusRunning:
		return Status(s)
	default:
		return StatusUnknown
	}
}

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether the status is a final outcome rather than an
// in-flight state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusBroken, StatusSkipped:
		return true
	default:
		return false
	}
}
