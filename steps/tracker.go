// Package steps tracks the nested step scopes a test opens while it runs,
// building the execution tree that is merged into the test's result record at
// finalization.
package steps

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/qagentic/qagentic-go/types"
)

// Tracker records nested steps for one executing test. Every concurrently
// running test owns its own Tracker, so step stacks never interleave across
// tests. The tracker owns its steps only until the test result absorbs them.
type Tracker struct {
	mu          sync.Mutex
	stack       []*types.Step
	roots       []*types.Step
	attachments []types.Attachment
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Enter opens a step scope. The step starts running immediately and is the
// current scope until Exit is called with its handle.
func (t *Tracker) Enter(name, description string, params map[string]any) *types.Step {
	step := types.NewStep(name, description, params)

	t.mu.Lock()
	t.stack = append(t.stack, step)
	t.mu.Unlock()

	return step
}

// Exit finalizes a step scope. A non-nil err marks the step failed and is
// recorded on it; propagating the error upward remains the caller's job, the
// tracker only annotates. The step is popped when it is the current scope,
// then attached to the enclosing step's children, or kept as a root step when
// no scope remains open.
func (t *Tracker) Exit(step *types.Step, err error) {
	if step == nil {
		return
	}

	step.EndTime = time.Now().UTC()
	if err != nil {
		step.Status = types.StatusFailed
		step.Error = err.Error()
	} else {
		step.Status = types.StatusPassed
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if n := len(t.stack); n > 0 && t.stack[n-1] == step {
		t.stack = t.stack[:n-1]
	}

	if parent := t.current(); parent != nil {
		parent.Children = append(parent.Children, step)
	} else {
		t.roots = append(t.roots, step)
	}
}

// Current returns the innermost open step, or nil outside any scope.
func (t *Tracker) Current() *types.Step {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current()
}

func (t *Tracker) current() *types.Step {
	if len(t.stack) == 0 {
		return nil
	}
	return t.stack[len(t.stack)-1]
}

// Attach captures an attachment on the current step, or at test level when no
// step scope is open.
func (t *Tracker) Attach(att types.Attachment) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if step := t.current(); step != nil {
		step.Attachments = append(step.Attachments, att)
		return
	}
	t.attachments = append(t.attachments, att)
}

// AttachTo appends an attachment to a specific step handle. A nil handle
// falls back to Attach semantics.
func (t *Tracker) AttachTo(step *types.Step, att types.Attachment) {
	if step == nil {
		t.Attach(att)
		return
	}

	t.mu.Lock()
	step.Attachments = append(step.Attachments, att)
	t.mu.Unlock()
}

// Adopt records a step that was finalized outside the tracker, such as one
// reconstructed from a test framework's event stream. It lands under the
// current scope, or as a root step when no scope is open.
func (t *Tracker) Adopt(step *types.Step) {
	if step == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if parent := t.current(); parent != nil {
		parent.Children = append(parent.Children, step)
		return
	}
	t.roots = append(t.roots, step)
}

// Run brackets fn in its own step scope. fn's error finalizes the step and is
// returned unchanged so callers keep their normal error flow. A panic inside
// fn is annotated on the step, then re-raised.
func (t *Tracker) Run(name, description string, params map[string]any, fn func() error) error {
	step := t.Enter(name, description, params)

	defer func() {
		if r := recover(); r != nil {
			step.ErrorTrace = string(debug.Stack())
			t.Exit(step, fmt.Errorf("panic: %v", r))
			panic(r)
		}
	}()

	err := fn()
	t.Exit(step, err)
	return err
}

// Roots returns the finalized top-level steps in completion order.
func (t *Tracker) Roots() []*types.Step {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*types.Step(nil), t.roots...)
}

// TestAttachments returns the attachments captured outside any step scope.
func (t *Tracker) TestAttachments() []types.Attachment {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]types.Attachment(nil), t.attachments...)
}
