package runner

import (
	"strings"
	"time"
)

// Action values emitted by test2json.
// See https://pkg.go.dev/cmd/test2json for the full event format.
const (
	ActionStart  = "start"
	ActionRun    = "run"
	ActionPause  = "pause"
	ActionCont   = "cont"
	ActionPass   = "pass"
	ActionBench  = "bench"
	ActionFail   = "fail"
	ActionSkip   = "skip"
	ActionOutput = "output"
)

// TestEvent is a single record from the `go test -json` stream.
type TestEvent struct {
	Time    time.Time `json:"Time"`
	Action  string    `json:"Action"`
	Package string    `json:"Package"`
	Test    string    `json:"Test,omitempty"`
	Elapsed float64   `json:"Elapsed,omitempty"`
	Output  string    `json:"Output,omitempty"`
}

// IsSubtest reports whether the event belongs to a subtest rather than a
// top-level test function. test2json encodes subtest names as
// "TestParent/sub/child".
func (e TestEvent) IsSubtest() bool {
	return strings.Contains(e.Test, "/")
}

// ParentTest returns the top-level test function name for the event,
// which for subtests is everything before the first slash.
func (e TestEvent) ParentTest() string {
	if i := strings.Index(e.Test, "/"); i >= 0 {
		return e.Test[:i]
	}
	return e.Test
}
