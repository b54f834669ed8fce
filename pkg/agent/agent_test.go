package agent

import (
	"context"
	"testing"
	"time"

	"github.com/agentictest/orchestrator/pkg/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAgent struct {
	dispatcher *Dispatcher
	env        map[string]string
	initErr    error
	cleanedUp  bool
}

func newStubAgent() *stubAgent {
	d := NewDispatcher()
	a := &stubAgent{dispatcher: d}
	d.Register("noop", func(ctx context.Context, step scenario.Step, index int) (string, error) {
		return "ok", nil
	})
	d.Register("sleep", func(ctx context.Context, step scenario.Step, index int) (string, error) {
		select {
		case <-time.After(50 * time.Millisecond):
			return "slept", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	return a
}

func (a *stubAgent) Variant() Variant                                 { return VariantAPI }
func (a *stubAgent) Initialize(ctx context.Context) error             { return a.initErr }
func (a *stubAgent) Cleanup(ctx context.Context)                      { a.cleanedUp = true }
func (a *stubAgent) ApplyEnvironment(env map[string]string)           { a.env = env }
func (a *stubAgent) DefaultTimeout() time.Duration                    { return time.Second }
func (a *stubAgent) ExecuteStep(ctx context.Context, step scenario.Step, index int) (scenario.StepResult, error) {
	return a.dispatcher.Dispatch(ctx, step, index), nil
}

func TestRunner_ExecuteBeforeInitializeFails(t *testing.T) {
	r := NewRunner(newStubAgent())
	_, err := r.Execute(context.Background(), &scenario.Scenario{ID: "s1"})
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestRunner_UnsupportedActionFails(t *testing.T) {
	r := NewRunner(newStubAgent())
	require.NoError(t, r.Initialize(context.Background()))

	s := &scenario.Scenario{
		ID:    "s1",
		Steps: []scenario.Step{{Action: "does_not_exist"}},
	}
	result, err := r.Execute(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, result.StepResults, 1)
	assert.Equal(t, scenario.StatusFailed, result.StepResults[0].Status)
	assert.Contains(t, result.StepResults[0].Error, "Unsupported")
	assert.Contains(t, result.StepResults[0].Error, "ActionError")
	assert.Equal(t, scenario.StatusFailed, result.Status)
}

func TestRunner_ApplyEnvironment(t *testing.T) {
	a := newStubAgent()
	r := NewRunner(a)
	require.NoError(t, r.Initialize(context.Background()))

	s := &scenario.Scenario{
		ID:          "s1",
		Environment: map[string]string{"API_BASE_URL": "http://example.com"},
		Steps:       []scenario.Step{{Action: "noop"}},
	}
	_, err := r.Execute(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", a.env["API_BASE_URL"])
}

func TestRunner_CleanupAlwaysRunsAndDoesNotOverridePrimaryStatus(t *testing.T) {
	r := NewRunner(newStubAgent())
	require.NoError(t, r.Initialize(context.Background()))

	s := &scenario.Scenario{
		ID:      "s1",
		Steps:   []scenario.Step{{Action: "noop"}},
		Cleanup: []scenario.Step{{Action: "does_not_exist"}},
	}
	result, err := r.Execute(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, scenario.StatusPassed, result.Status)
	failures, ok := result.Metadata["cleanup_failures"].([]scenario.StepResult)
	require.True(t, ok)
	require.Len(t, failures, 1)
}

func TestRunner_StepIndexMatchesPosition(t *testing.T) {
	r := NewRunner(newStubAgent())
	require.NoError(t, r.Initialize(context.Background()))

	s := &scenario.Scenario{
		ID:                "s1",
		ContinueOnFailure: true,
		Steps: []scenario.Step{
			{Action: "noop"},
			{Action: "does_not_exist"},
			{Action: "noop"},
		},
	}
	result, err := r.Execute(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, result.StepResults, 3)
	for i, sr := range result.StepResults {
		assert.Equal(t, i, sr.StepIndex)
	}
}

func TestRunner_StepTimeoutCancelsSleepingStep(t *testing.T) {
	r := NewRunner(newStubAgent())
	require.NoError(t, r.Initialize(context.Background()))

	s := &scenario.Scenario{
		ID:    "s1",
		Steps: []scenario.Step{{Action: "sleep", TimeoutMs: 5}},
	}
	result, err := r.Execute(context.Background(), s)
	require.NoError(t, err)
	require.Len(t, result.StepResults, 1)
	assert.Equal(t, scenario.StatusError, result.StepResults[0].Status)
}

func TestDispatcher_Dispatch_DurationRecorded(t *testing.T) {
	d := NewDispatcher()
	d.Register("noop", func(ctx context.Context, step scenario.Step, index int) (string, error) {
		return "", nil
	})
	sr := d.Dispatch(context.Background(), scenario.Step{Action: "noop"}, 0)
	assert.Equal(t, scenario.StatusPassed, sr.Status)
	assert.GreaterOrEqual(t, sr.DurationMs, int64(0))
}
