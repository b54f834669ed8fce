package triage

import (
	"testing"
	"time"

	"github.com/agentictest/orchestrator/pkg/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_ValidateRejectsBadWeightSum(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights.ErrorSeverity = 0.9
	err := cfg.Validate()
	require.Error(t, err)
}

func TestConfig_ValidateRejectsOutOfRangeFlakyThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FlakyThreshold = 1.5
	require.Error(t, cfg.Validate())
}

func TestConfig_ValidateAcceptsDefaults(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestScore_CrashInUIWithFailingHistoryIsHigh(t *testing.T) {
	fc := FailureContext{
		Failure: scenario.TestFailure{
			ScenarioID: "s1",
			Message:    "fatal crash in render loop",
		},
		Interface:    InterfaceUI,
		PriorityHint: scenario.PriorityCritical,
		History:      []scenario.Status{scenario.StatusFailed, scenario.StatusFailed},
	}
	a := Score(DefaultConfig(), fc)
	// 0.20·1.0 + 0.20·0.9 + 0.15·1.0 + 0.15·1.0 + 0.10·0.2 + 0.10·0.3 + 0.10·0.4 = 0.77
	assert.Equal(t, TierHigh, a.PriorityTier)
	assert.InDelta(t, 77.0, a.ImpactScore, 0.001)
}

func TestScore_LowSeverityAPIIsLow(t *testing.T) {
	fc := FailureContext{
		Failure:      scenario.TestFailure{ScenarioID: "s2", Message: "minor mismatch"},
		Interface:    InterfaceAPI,
		PriorityHint: scenario.PriorityLow,
		History:      []scenario.Status{scenario.StatusPassed, scenario.StatusPassed},
	}
	a := Score(DefaultConfig(), fc)
	assert.Equal(t, TierLow, a.PriorityTier)
}

func TestScore_CustomRuleAppliesModifier(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CustomRules = []CustomRule{
		{Name: "payments-boost", Match: func(fc FailureContext) bool {
			return fc.Failure.ScenarioID == "s3"
		}, Modifier: 15},
	}
	fc := FailureContext{
		Failure:      scenario.TestFailure{ScenarioID: "s3", Message: "minor"},
		Interface:    InterfaceAPI,
		PriorityHint: scenario.PriorityLow,
	}
	without := Score(DefaultConfig(), fc)
	with := Score(cfg, fc)
	assert.Greater(t, with.ImpactScore, without.ImpactScore)
	assert.Contains(t, with.AppliedRules, "payments-boost")
}

func TestDetectFlaky_BelowMinSamplesIsSkipped(t *testing.T) {
	cfg := DefaultConfig()
	_, found := DetectFlaky(cfg, "s1", []scenario.Status{scenario.StatusPassed, scenario.StatusFailed})
	assert.False(t, found)
}

func TestDetectFlaky_AlternatingResultsIsFlagged(t *testing.T) {
	cfg := DefaultConfig()
	history := []scenario.Status{
		scenario.StatusPassed, scenario.StatusFailed, scenario.StatusPassed,
		scenario.StatusFailed, scenario.StatusPassed, scenario.StatusFailed,
	}
	report, found := DetectFlaky(cfg, "s1", history)
	require.True(t, found)
	assert.Equal(t, 1.0, report.FlipRate)
	assert.Equal(t, "quarantine", report.RecommendedAction)
}

func TestDetectFlaky_StableHistoryIsNotFlagged(t *testing.T) {
	cfg := DefaultConfig()
	history := []scenario.Status{
		scenario.StatusPassed, scenario.StatusPassed, scenario.StatusPassed,
		scenario.StatusPassed, scenario.StatusPassed, scenario.StatusPassed,
	}
	_, found := DetectFlaky(cfg, "s1", history)
	assert.False(t, found)
}

func TestExtractPatterns_MessagePatternRequiresTwoMembers(t *testing.T) {
	now := time.Now()
	failures := []scenario.TestFailure{
		{ScenarioID: "s1", Message: "request 123 failed", Timestamp: now},
		{ScenarioID: "s2", Message: "request 456 failed", Timestamp: now},
		{ScenarioID: "s3", Message: "totally different", Timestamp: now},
	}
	patterns := ExtractPatterns(failures)
	var found bool
	for _, p := range patterns {
		if p.Kind == "message" && p.Count == 2 {
			found = true
		}
	}
	assert.True(t, found)
}

func TestExtractPatterns_TimeClusterRequiresThreeMembers(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	failures := []scenario.TestFailure{
		{ScenarioID: "s1", Message: "a", Timestamp: base},
		{ScenarioID: "s2", Message: "b", Timestamp: base.Add(2 * time.Minute)},
		{ScenarioID: "s3", Message: "c", Timestamp: base.Add(4 * time.Minute)},
	}
	patterns := ExtractPatterns(failures)
	var found bool
	for _, p := range patterns {
		if p.Kind == "time" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestFixOrder_SortsByTierThenEffort(t *testing.T) {
	assignments := []Assignment{
		{ScenarioID: "a", PriorityTier: TierHigh, EstimatedFixEffortHours: 5},
		{ScenarioID: "b", PriorityTier: TierCritical, EstimatedFixEffortHours: 8},
		{ScenarioID: "c", PriorityTier: TierCritical, EstimatedFixEffortHours: 2},
	}
	ordered := FixOrder(assignments)
	require.Len(t, ordered, 3)
	assert.Equal(t, "c", ordered[0].ScenarioID)
	assert.Equal(t, "b", ordered[1].ScenarioID)
	assert.Equal(t, "a", ordered[2].ScenarioID)
}
