package agent

import (
	"errors"
	"fmt"
)

// Sentinel error kinds from spec.md §7. Concrete failures wrap one of these
// with errors.Is / errors.As so callers can branch on kind without string
// matching.
var (
	// ErrConfigError indicates invalid or missing configuration at
	// initialize. Fatal to the component; surfaces to the orchestrator.
	ErrConfigError = errors.New("config error")

	// ErrInitialization indicates a required external resource was
	// unreachable during initialize. Fatal to the agent.
	ErrInitialization = errors.New("initialization error")

	// ErrAction indicates an unsupported or malformed step action.
	ErrAction = errors.New("action error")

	// ErrTimeout indicates a per-step or per-scenario deadline was exceeded.
	ErrTimeout = errors.New("timeout error")

	// ErrTransport indicates an HTTP or process I/O failure.
	ErrTransport = errors.New("transport error")

	// ErrCancelled indicates cooperative cancellation.
	ErrCancelled = errors.New("cancelled")

	// ErrNoResponse indicates a verification action ran before any
	// request/command produced a response.
	ErrNoResponse = errors.New("no response error")

	// ErrInvalidSchema indicates a JSON Schema string failed to parse.
	ErrInvalidSchema = errors.New("invalid schema error")

	// ErrNotInitialized indicates Execute was called before Initialize.
	ErrNotInitialized = errors.New("agent not initialized")
)

// StepError wraps a sentinel kind with the step index and a human message.
// errors.Is(err, agent.ErrAction) matches a StepError wrapping ErrAction.
type StepError struct {
	Kind      error
	StepIndex int
	Message   string
}

func (e *StepError) Error() string {
	if e.StepIndex >= 0 {
		return fmt.Sprintf("step %d: %s: %s", e.StepIndex, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *StepError) Unwrap() error { return e.Kind }

// NewStepError builds a StepError for the given step index.
func NewStepError(kind error, stepIndex int, format string, args ...any) *StepError {
	return &StepError{Kind: kind, StepIndex: stepIndex, Message: fmt.Sprintf(format, args...)}
}

// ActionError builds an "Unsupported action" StepError, the exact phrasing
// spec.md §8's universal invariant checks for.
func ActionError(stepIndex int, action string) *StepError {
	return NewStepError(ErrAction, stepIndex, "Unsupported action %q (ActionError)", action)
}
