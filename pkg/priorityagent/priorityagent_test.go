package priorityagent

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentictest/orchestrator/pkg/scenario"
	"github.com/agentictest/orchestrator/pkg/triage"
)

func newTestAgent(t *testing.T) *PriorityAgent {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.json")
	return NewPriorityAgent(Config{Triage: triage.DefaultConfig(), HistoryPath: path})
}

func TestPriorityAgent_ClassifyPersistsAssignment(t *testing.T) {
	a := newTestAgent(t)
	res, err := a.ExecuteStep(context.Background(), scenario.Step{
		Action: "classify", Target: "login-flow", Value: "crash", Expected: string(triage.InterfaceUI), Description: "unhandled exception",
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, scenario.StatusPassed, res.Status)
	assert.Contains(t, res.ActualResult, "tier=")

	history, err := a.store.History("login-flow")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "login-flow", history[0].ScenarioID)
}

func TestPriorityAgent_ClassifyAccumulatesHistory(t *testing.T) {
	a := newTestAgent(t)
	for i := 0; i < 3; i++ {
		_, err := a.ExecuteStep(context.Background(), scenario.Step{
			Action: "classify", Target: "checkout-flow", Value: "error", Description: "payment failure",
		}, 0)
		require.NoError(t, err)
	}
	history, err := a.store.History("checkout-flow")
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestPriorityAgent_CheckFlakyReportsNotFlakyBelowMinSamples(t *testing.T) {
	a := newTestAgent(t)
	res, err := a.ExecuteStep(context.Background(), scenario.Step{Action: "check_flaky", Target: "new-scenario"}, 0)
	require.NoError(t, err)
	assert.Equal(t, scenario.StatusPassed, res.Status)
	assert.Equal(t, "not flaky", res.ActualResult)
}

func TestPriorityAgent_FixOrderRanksHigherTierFirst(t *testing.T) {
	a := newTestAgent(t)
	_, err := a.ExecuteStep(context.Background(), scenario.Step{
		Action: "classify", Target: "low-sev", Value: "mismatch", Expected: string(triage.InterfaceAPI), Description: "minor text diff",
	}, 0)
	require.NoError(t, err)
	_, err = a.ExecuteStep(context.Background(), scenario.Step{
		Action: "classify", Target: "high-sev", Value: "crash", Expected: string(triage.InterfaceUI), Description: "unhandled exception crash security token leak",
	}, 0)
	require.NoError(t, err)

	res, err := a.ExecuteStep(context.Background(), scenario.Step{Action: "fix_order"}, 0)
	require.NoError(t, err)
	assert.Equal(t, scenario.StatusPassed, res.Status)
	assert.Contains(t, res.ActualResult, "high-sev")
	assert.Contains(t, res.ActualResult, "low-sev")
	// high-sev scores 67 (HIGH), low-sev 37 (LOW).
	assert.Equal(t, "high-sev,low-sev", res.ActualResult)
}

func TestStore_LoadToleratesMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "does-not-exist.json"))
	history, err := store.History("anything")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	first := NewStore(path)
	require.NoError(t, first.Append("s1", triage.Assignment{ScenarioID: "s1", ImpactScore: 42}))

	second := NewStore(path)
	history, err := second.History("s1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, 42.0, history[0].ImpactScore)
}
