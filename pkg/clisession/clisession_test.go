package clisession

import (
	"context"
	"testing"
	"time"

	"github.com/agentictest/orchestrator/pkg/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_EchoRoundTrip(t *testing.T) {
	s := NewSession("t1", "cat", nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Kill(time.Second)

	require.NoError(t, s.Write("hello-from-test"))
	text, err := s.WaitForOutput(context.Background(), "hello-from-test", 2*time.Second)
	require.NoError(t, err)
	assert.Contains(t, text, "hello-from-test")
}

func TestSession_WaitForOutputTimesOut(t *testing.T) {
	s := NewSession("t2", "cat", nil)
	require.NoError(t, s.Start(context.Background()))
	defer s.Kill(time.Second)

	_, err := s.WaitForOutput(context.Background(), "will-never-appear", 150*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestSession_KillTerminatesProcess(t *testing.T) {
	s := NewSession("t3", "sleep", []string{"30"})
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Kill(500*time.Millisecond))
	assert.Equal(t, StateExited, s.State())
}

func TestValidateOutput_Variants(t *testing.T) {
	ok, err := ValidateOutput("Hello World\n", "Hello World")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ValidateOutput("abc123", "regex:^abc\\d+$")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ValidateOutput("some long output", "contains:long output")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestValidateStructuredOutput_JSON(t *testing.T) {
	ok, err := ValidateStructuredOutput(`{"a":1,"b":[1,2]}`, ExpectJSON, `{"b":[1,2],"a":1}`)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegistry_CloseKillsEveryTrackedSession(t *testing.T) {
	var sessions []*Session
	r := NewRegistry(100 * time.Millisecond)

	for _, name := range []string{"first", "second", "third"} {
		s := NewSession(name, "sleep", []string{"30"})
		require.NoError(t, s.Start(context.Background()))
		r.Track(s)
		sessions = append(sessions, s)
	}
	assert.Equal(t, 3, r.Len())
	r.Close()
	assert.Equal(t, 0, r.Len())
	for _, s := range sessions {
		assert.Equal(t, StateExited, s.State())
	}
}

func TestCLIAgent_WriteWaitValidate(t *testing.T) {
	a := NewCLIAgent(Config{Command: "cat", Grace: time.Second})
	require.NoError(t, a.Initialize(context.Background()))
	defer a.Cleanup(context.Background())

	sr, err := a.ExecuteStep(context.Background(), scenario.Step{Action: "write", Value: "ping"}, 0)
	require.NoError(t, err)
	assert.Equal(t, scenario.StatusPassed, sr.Status)

	sr, err = a.ExecuteStep(context.Background(), scenario.Step{
		Action: "wait_for_output", Target: "ping", TimeoutMs: 2000,
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, scenario.StatusPassed, sr.Status)

	sr, err = a.ExecuteStep(context.Background(), scenario.Step{
		Action: "validate_output", Expected: "not_empty", Value: string(ExpectNotEmpty),
	}, 2)
	require.NoError(t, err)
	assert.Equal(t, scenario.StatusPassed, sr.Status)
}
