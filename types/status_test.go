package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Status
	}{
		{name: "passed", input: "passed", want: StatusPassed},
		{name: "failed", input: "failed", want: StatusFailed},
		{name: "broken", input: "broken", want: StatusBroken},
		{name: "skipped", input: "skipped", want: StatusSkipped},
		{name: "pending", input: "pending", want: StatusPending},
		{name: "running", input: "running", want: StatusRunning},
		{name: "unknown maps to unknown", input: "unknown", want: StatusUnknown},
		{name: "garbage maps to unknown", input: "exploded", want: StatusUnknown},
		{name: "empty maps to unknown", input: "", want: StatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseStatus(tt.input))
		})
	}
}

func TestStatusIsTerminal(t *testing.T) {
	assert.True(t, StatusPassed.IsTerminal())
	assert.True(t, StatusFailed.IsTerminal())
	assert.True(t, StatusBroken.IsTerminal())
	assert.True(t, StatusSkipped.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())
	assert.False(t, StatusUnknown.IsTerminal())
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		input string
		want  Severity
	}{
		{input: "blocker", want: SeverityBlocker},
		{input: "CRITICAL", want: SeverityCritical},
		{input: "minor", want: SeverityMinor},
		{input: "trivial", want: SeverityTrivial},
		{input: "unheard-of", want: SeverityNormal},
		{input: "", want: SeverityNormal},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSeverity(tt.input))
		})
	}
}
