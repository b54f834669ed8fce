package triage

import (
	"math"
	"strings"
	"time"

	"github.com/agentictest/orchestrator/pkg/scenario"
)

var securityKeywords = []string{"auth", "token", "credential", "permission", "crypto", "secret", "session"}
var performanceKeywords = []string{"timeout", "slow", "memory", "cpu"}
var performanceTags = map[string]bool{"perf": true, "performance": true}

// Score computes an Assignment for one failure per spec.md §4.5's
// seven-factor weighted impact score.
func Score(cfg Config, fc FailureContext) Assignment {
	factors := map[string]float64{
		"errorSeverity":        errorSeverity(fc.Failure),
		"userImpact":           userImpact(fc.Interface),
		"testStability":        testStability(fc.History),
		"businessPriority":     businessPriority(fc.PriorityHint),
		"securityImplications": securityImplications(fc.Failure, fc.ScenarioTags),
		"performanceImpact":    performanceImpact(fc.Failure, fc.ScenarioTags),
		"regressionDetection":  regressionDetection(fc.History),
	}

	w := cfg.Weights
	weighted := factors["errorSeverity"]*w.ErrorSeverity +
		factors["userImpact"]*w.UserImpact +
		factors["testStability"]*w.TestStability +
		factors["businessPriority"]*w.BusinessPriority +
		factors["securityImplications"]*w.SecurityImplications +
		factors["performanceImpact"]*w.PerformanceImpact +
		factors["regressionDetection"]*w.RegressionDetection

	score := weighted * 100

	var applied []string
	for _, rule := range cfg.CustomRules {
		if rule.Match(fc) {
			score += rule.Modifier
			applied = append(applied, rule.Name)
		}
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return Assignment{
		ScenarioID:              fc.Failure.ScenarioID,
		ImpactScore:             score,
		PriorityTier:            tierFor(score),
		Confidence:              confidence(fc),
		EstimatedFixEffortHours: fixEffort(fc, factors["errorSeverity"], factors["testStability"]),
		Factors:                 factors,
		AppliedRules:            applied,
		Timestamp:               time.Now(),
	}
}

func tierFor(score float64) PriorityTier {
	switch {
	case score >= 80:
		return TierCritical
	case score >= 60:
		return TierHigh
	case score >= 40:
		return TierMedium
	default:
		return TierLow
	}
}

func errorSeverity(f scenario.TestFailure) float64 {
	msg := strings.ToLower(f.Message + " " + f.Category)
	switch {
	case strings.Contains(msg, "crash") || strings.Contains(msg, "fatal"):
		return 1.0
	case strings.Contains(msg, "error") || strings.Contains(msg, "exception"):
		return 0.8
	case strings.Contains(msg, "warning") || strings.Contains(msg, "timeout"):
		return 0.6
	default:
		return 0.4
	}
}

func userImpact(iface InterfaceType) float64 {
	switch iface {
	case InterfaceUI:
		return 0.9
	case InterfaceMixed:
		return 0.7
	case InterfaceCLI:
		return 0.6
	case InterfaceAPI:
		return 0.4
	default:
		return 0.4
	}
}

// testStability is the failure rate over the supplied history, clipped to
// 1.0 after doubling (spec.md §4.5: "clipped to 1.0 after ×2").
func testStability(history []scenario.Status) float64 {
	if len(history) == 0 {
		return 0.4
	}
	failures := 0
	for _, s := range history {
		if s != scenario.StatusPassed {
			failures++
		}
	}
	rate := float64(failures) / float64(len(history))
	rate *= 2
	if rate > 1.0 {
		rate = 1.0
	}
	return rate
}

func businessPriority(p scenario.Priority) float64 {
	switch p {
	case scenario.PriorityCritical:
		return 1.0
	case scenario.PriorityHigh:
		return 0.8
	case scenario.PriorityMedium:
		return 0.6
	case scenario.PriorityLow:
		return 0.4
	default:
		return 0.4
	}
}

func securityImplications(f scenario.TestFailure, tags []string) float64 {
	haystack := strings.ToLower(f.Message)
	for _, kw := range securityKeywords {
		if strings.Contains(haystack, kw) {
			return 1.0
		}
	}
	for _, tag := range tags {
		for _, kw := range securityKeywords {
			if strings.EqualFold(tag, kw) {
				return 1.0
			}
		}
	}
	return 0.2
}

func performanceImpact(f scenario.TestFailure, tags []string) float64 {
	haystack := strings.ToLower(f.Message)
	for _, kw := range performanceKeywords {
		if strings.Contains(haystack, kw) {
			return 0.9
		}
	}
	for _, tag := range tags {
		if performanceTags[strings.ToLower(tag)] {
			return 0.8
		}
	}
	return 0.3
}

// regressionDetection reports 0.9 if any PASS appears in history (treated
// as "last 30 days" by the caller pre-filtering History), else 0.4.
func regressionDetection(history []scenario.Status) float64 {
	for _, s := range history {
		if s == scenario.StatusPassed {
			return 0.9
		}
	}
	return 0.4
}

// confidence implements spec.md §4.5's confidence formula.
func confidence(fc FailureContext) float64 {
	c := 0.5
	c += math.Min(1, float64(len(fc.History))/10) * 0.3
	if fc.DescriptorInContext {
		c += 0.2
	}
	if c > 1.0 {
		c = 1.0
	}
	return c
}

// fixEffort implements spec.md §4.5's estimated-fix-effort formula.
func fixEffort(fc FailureContext, severity, stability float64) float64 {
	base := 2.0
	switch fc.Interface {
	case InterfaceUI:
		base *= 1.5
	case InterfaceMixed:
		base *= 1.3
	}
	hours := base * (1 + severity) * (1 + stability)
	return math.Round(hours*10) / 10
}
