package qagentic

import (
	"context"

	"github.com/qagentic/qagentic-go/steps"
	"github.com/qagentic/qagentic-go/types"
)

type trackerKey struct{}

// WithTest returns a context carrying the step tracker of the given active
// test. Code under test records steps and attachments through that context
// without holding a reference to the Core, and parallel tests stay isolated
// because each carries its own tracker.
func (c *Core) WithTest(ctx context.Context, id string) context.Context {
	if tr := c.Tracker(id); tr != nil {
		return context.WithValue(ctx, trackerKey{}, tr)
	}
	return ctx
}

// TrackerFrom extracts the step tracker carried by ctx, if any.
func TrackerFrom(ctx context.Context) (*steps.Tracker, bool) {
	tr, ok := ctx.Value(trackerKey{}).(*steps.Tracker)
	return tr, ok
}

// Step runs fn as a recorded step in the tracker carried by ctx. Nested calls
// nest their steps, fn's error finalizes the step and is returned unchanged,
// and a panic is annotated before it continues upward. When ctx carries no
// tracker, fn simply runs unrecorded.
func Step(ctx context.Context, name string, fn func(context.Context) error) error {
	tr, ok := TrackerFrom(ctx)
	if !ok {
		return fn(ctx)
	}
	return tr.Run(name, "", nil, func() error { return fn(ctx) })
}

// StepWithParams is Step with a description and parameters recorded on the
// step.
func StepWithParams(ctx context.Context, name, description string, params map[string]any, fn func(context.Context) error) error {
	tr, ok := TrackerFrom(ctx)
	if !ok {
		return fn(ctx)
	}
	return tr.Run(name, description, params, func() error { return fn(ctx) })
}

// Attach records an attachment on the innermost open step, or at test level
// when no step scope is open. A context without a tracker drops the
// attachment silently.
func Attach(ctx context.Context, att types.Attachment) {
	if tr, ok := TrackerFrom(ctx); ok {
		tr.Attach(att)
	}
}
