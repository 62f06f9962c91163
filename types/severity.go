package types

import "strings"

// Severity ranks how critical a test is to the product under test.
type Severity string

const (
	SeverityBlocker  Severity = "blocker"
	SeverityCritical Severity = "critical"
	SeverityNormal   Severity = "normal"
	SeverityMinor    Severity = "minor"
	SeverityTrivial  Severity = "trivial"
)

// ParseSeverity maps a label value to a Severity, defaulting to normal.
func ParseSeverity(s string) Severity {
	switch Severity(strings.ToLower(s)) {
	case SeverityBlocker, SeverityCritical, SeverityNormal, SeverityMinor, SeverityTrivial:
		return Severity(strings.ToLower(s))
	default:
		return SeverityNormal
	}
}

func (s Severity) String() string {
	return string(s)
}
