// Package agent defines the polymorphic Agent contract shared by every
// worker-agent variant (API, CLI, TUI, UI, SYSTEM, ISSUE, PRIORITY,
// COMPREHENSION) and the template-method execution loop that drives a
// Scenario through one of them.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentictest/orchestrator/pkg/scenario"
)

// Variant names one of the agent types required by the core (spec.md §4.1).
type Variant string

// Agent variants the core must support.
const (
	VariantAPI           Variant = "API"
	VariantCLI           Variant = "CLI"
	VariantTUI           Variant = "TUI"
	VariantUI            Variant = "UI"
	VariantSystem        Variant = "SYSTEM"
	VariantIssue         Variant = "ISSUE"
	VariantPriority      Variant = "PRIORITY"
	VariantComprehension Variant = "COMPREHENSION"
)

// State is a position in the Agent lifecycle state machine (spec.md §4.1):
// Uninitialized → Ready → Running → Ready → … → Terminated.
type State int

// Lifecycle states.
const (
	StateUninitialized State = iota
	StateReady
	StateRunning
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// StepExecutor is the part of the Agent contract each variant implements on
// top of the shared Lifecycle/Runner: turning one Step into a StepResult.
// Implementations dispatch on step.Action via an internal lookup table —
// never open recursion or a type switch hierarchy (spec.md §9).
type StepExecutor interface {
	// ExecuteStep runs one step and returns its result. It never panics;
	// unsupported actions and timeouts are reported via StepResult.Status
	// and StepResult.Error, not a non-nil error return, EXCEPT when the
	// failure is infrastructural (the step could not be attempted at all).
	ExecuteStep(ctx context.Context, step scenario.Step, index int) (scenario.StepResult, error)

	// ApplyEnvironment maps scenario.environment onto agent-specific state
	// (e.g. the HTTP agent reads API_BASE_URL/API_TIMEOUT/API_AUTH_TOKEN).
	ApplyEnvironment(env map[string]string)

	// DefaultTimeout is used when a step has no explicit timeoutMs.
	DefaultTimeout() time.Duration
}

// Lifecycle is the part of the Agent contract governing setup/teardown.
type Lifecycle interface {
	// Initialize transitions Uninitialized → Ready. Fails with
	// ErrInitialization when a required external resource is unreachable.
	// Must only be called from Uninitialized.
	Initialize(ctx context.Context) error

	// Cleanup is best-effort, idempotent, and never returns an error to the
	// caller — failures are logged only (spec.md §7 propagation rules).
	Cleanup(ctx context.Context)
}

// Agent is the full capability set required of every worker-agent variant.
type Agent interface {
	Lifecycle
	StepExecutor

	// Variant reports which agent-type vocabulary this instance implements.
	Variant() Variant
}

// Runner drives an Agent through one Scenario, implementing the Execute
// template method from spec.md §4.1:
//  1. apply scenario.environment
//  2. run steps in order, honoring continueOnFailure
//  3. always run cleanup steps
//  4. aggregate into a TestResult
//
// Runner also enforces the Uninitialized/Ready/Running state machine so a
// caller cannot invoke Execute before Initialize, or concurrently on the
// same Agent instance (each agent is confined to at most one scenario at a
// time — spec.md §5).
type Runner struct {
	agent Agent

	mu    sync.Mutex
	state State
}

// NewRunner wraps agent in a Runner starting in the Uninitialized state.
func NewRunner(agent Agent) *Runner {
	return &Runner{agent: agent, state: StateUninitialized}
}

// State reports the current lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Initialize transitions the wrapped agent to Ready.
func (r *Runner) Initialize(ctx context.Context) error {
	r.mu.Lock()
	if r.state != StateUninitialized {
		r.mu.Unlock()
		return fmt.Errorf("%w: Initialize called from state %s", ErrConfigError, r.state)
	}
	r.mu.Unlock()

	if err := r.agent.Initialize(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	r.state = StateReady
	r.mu.Unlock()
	return nil
}

// Execute runs scenario s through the wrapped agent, per the template
// method in spec.md §4.1.
func (r *Runner) Execute(ctx context.Context, s *scenario.Scenario) (*scenario.TestResult, error) {
	r.mu.Lock()
	if r.state != StateReady {
		state := r.state
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: Execute called from state %s", ErrNotInitialized, state)
	}
	r.state = StateRunning
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		if r.state == StateRunning {
			r.state = StateReady
		}
		r.mu.Unlock()
	}()

	r.agent.ApplyEnvironment(s.Environment)

	start := time.Now()
	result := scenario.NewTestResult(s.ID, start)

	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			result.StepResults = append(result.StepResults, scenario.StepResult{
				StepIndex: i,
				Status:    scenario.StatusSkipped,
				Error:     ErrCancelled.Error(),
			})
			continue
		}

		stepCtx, cancel := withStepTimeout(ctx, step, r.agent.DefaultTimeout())
		sr, err := r.agent.ExecuteStep(stepCtx, step, i)
		cancel()
		if err != nil {
			// Infrastructural failure: the step could not be attempted.
			sr = scenario.StepResult{StepIndex: i, Status: scenario.StatusError, Error: err.Error()}
		}
		result.StepResults = append(result.StepResults, sr)

		if sr.Status != scenario.StatusPassed {
			addFailure(result, s.ID, i, sr)
			if !step.ContinueOnFailure && !s.ContinueOnFailure {
				break
			}
		}
	}

	// Cleanup always runs; its failures are recorded in Metadata and never
	// override the primary status (spec.md §4.1 / §4.4).
	var cleanupFailures []scenario.StepResult
	for i, step := range s.Cleanup {
		cleanupCtx, cancel := withStepTimeout(ctx, step, r.agent.DefaultTimeout())
		sr, err := r.agent.ExecuteStep(cleanupCtx, step, len(s.Steps)+i)
		cancel()
		if err != nil {
			sr = scenario.StepResult{StepIndex: len(s.Steps) + i, Status: scenario.StatusError, Error: err.Error()}
		}
		if sr.Status != scenario.StatusPassed {
			cleanupFailures = append(cleanupFailures, sr)
		}
	}
	if len(cleanupFailures) > 0 {
		result.Metadata["cleanup_failures"] = cleanupFailures
	}

	result.Finish(time.Now())
	return result, nil
}

// Cleanup best-effort tears down the wrapped agent, regardless of state.
func (r *Runner) Cleanup(ctx context.Context) {
	r.agent.Cleanup(ctx)
	r.mu.Lock()
	r.state = StateTerminated
	r.mu.Unlock()
}

func withStepTimeout(parent context.Context, step scenario.Step, defaultTimeout time.Duration) (context.Context, context.CancelFunc) {
	timeout := defaultTimeout
	if step.TimeoutMs > 0 {
		timeout = time.Duration(step.TimeoutMs) * time.Millisecond
	}
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}

func addFailure(result *scenario.TestResult, scenarioID string, stepIndex int, sr scenario.StepResult) {
	idx := stepIndex
	result.Failures = append(result.Failures, scenario.TestFailure{
		ScenarioID: scenarioID,
		Timestamp:  time.Now(),
		Message:    sr.Error,
		FailedStep: &idx,
	})
}
