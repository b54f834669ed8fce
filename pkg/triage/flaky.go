package triage

import "github.com/agentictest/orchestrator/pkg/scenario"

// DetectFlaky implements spec.md §4.5's flaky-test detection: scenarios with
// fewer than cfg.MinSamplesForTrends chronological results are skipped.
// history must already be sorted chronologically, oldest first.
func DetectFlaky(cfg Config, scenarioID string, history []scenario.Status) (FlakyReport, bool) {
	n := len(history)
	if n < cfg.MinSamplesForTrends {
		return FlakyReport{}, false
	}

	failures := 0
	for _, s := range history {
		if s != scenario.StatusPassed {
			failures++
		}
	}
	failureRate := float64(failures) / float64(n)

	flips := 0
	for i := 1; i < n; i++ {
		prevPassed := history[i-1] == scenario.StatusPassed
		curPassed := history[i] == scenario.StatusPassed
		if prevPassed != curPassed {
			flips++
		}
	}
	flipRate := 0.0
	if n > 1 {
		flipRate = float64(flips) / float64(n-1)
	}

	flakinessScore := 0.6*failureRate + 0.4*flipRate
	if flakinessScore < cfg.FlakyThreshold {
		return FlakyReport{}, false
	}

	return FlakyReport{
		ScenarioID:        scenarioID,
		FailureRate:       failureRate,
		FlipRate:          flipRate,
		FlakinessScore:    flakinessScore,
		RecommendedAction: recommendedAction(flakinessScore),
		SampleCount:       n,
	}, true
}

func recommendedAction(score float64) string {
	switch {
	case score >= 0.7:
		return "quarantine"
	case score >= 0.5:
		return "investigate"
	case score >= 0.3:
		return "stabilize"
	default:
		return "monitor"
	}
}
