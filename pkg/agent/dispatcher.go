package agent

import (
	"context"
	"time"

	"github.com/agentictest/orchestrator/pkg/scenario"
)

// ActionFunc handles one step action for a variant. It returns the result
// payload placed in StepResult.ActualResult and an error; Dispatch turns a
// non-nil error into a FAILED (or ERROR, on context cancellation) StepResult.
type ActionFunc func(ctx context.Context, step scenario.Step, index int) (string, error)

// Dispatcher is a reusable action → handler lookup table, the "table lookup
// inside each agent; no open recursion" dispatch model spec.md §9 calls
// for. Each concrete agent variant embeds a Dispatcher and registers its
// action vocabulary once at construction time, grounded on the same pattern
// tarsy's pkg/mcp ToolExecutor uses to route tool calls.
type Dispatcher struct {
	handlers map[string]ActionFunc
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]ActionFunc)}
}

// Register binds action to fn. Re-registering an action overwrites it.
func (d *Dispatcher) Register(action string, fn ActionFunc) {
	d.handlers[action] = fn
}

// Dispatch runs the handler for step.Action, timing the call and converting
// its outcome into a StepResult. Returns an ActionError-flavored StepResult
// when no handler is registered for step.Action.
func (d *Dispatcher) Dispatch(ctx context.Context, step scenario.Step, index int) scenario.StepResult {
	start := time.Now()

	fn, ok := d.handlers[step.Action]
	if !ok {
		err := ActionError(index, step.Action)
		return scenario.StepResult{
			StepIndex:  index,
			Status:     scenario.StatusFailed,
			DurationMs: time.Since(start).Milliseconds(),
			Error:      err.Error(),
		}
	}

	actual, err := fn(ctx, step, index)
	duration := time.Since(start).Milliseconds()

	if err != nil {
		status := scenario.StatusFailed
		if ctx.Err() != nil {
			status = scenario.StatusError
		}
		return scenario.StepResult{
			StepIndex:    index,
			Status:       status,
			DurationMs:   duration,
			ActualResult: actual,
			Error:        err.Error(),
		}
	}

	return scenario.StepResult{
		StepIndex:    index,
		Status:       scenario.StatusPassed,
		DurationMs:   duration,
		ActualResult: actual,
	}
}

// Actions returns the set of registered action names, mostly useful for
// tests asserting a variant's vocabulary.
func (d *Dispatcher) Actions() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	return names
}
