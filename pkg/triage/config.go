// Package triage implements the Triage Pipeline (spec.md §4.5): weighted
// impact scoring, flaky-test detection, recurring-pattern extraction, and
// fix-order ranking over a batch of observed test failures.
package triage

import (
	"fmt"
	"math"
)

// Weights holds the seven impact-score sub-weights. Defaults match
// spec.md §4.5's table and sum to 1.0.
type Weights struct {
	ErrorSeverity         float64
	UserImpact            float64
	TestStability         float64
	BusinessPriority      float64
	SecurityImplications  float64
	PerformanceImpact     float64
	RegressionDetection   float64
}

// DefaultWeights returns the spec's default weighting.
func DefaultWeights() Weights {
	return Weights{
		ErrorSeverity:        0.20,
		UserImpact:           0.20,
		TestStability:        0.15,
		BusinessPriority:     0.15,
		SecurityImplications: 0.10,
		PerformanceImpact:    0.10,
		RegressionDetection:  0.10,
	}
}

func (w Weights) sum() float64 {
	return w.ErrorSeverity + w.UserImpact + w.TestStability + w.BusinessPriority +
		w.SecurityImplications + w.PerformanceImpact + w.RegressionDetection
}

// CustomRule adds a signed, percentage-point modifier to the impact score
// when Match reports true for a given failure (spec.md §4.5: "custom rules
// may add a signed modifier, applied /100").
type CustomRule struct {
	Name     string
	Match    func(FailureContext) bool
	Modifier float64
}

// Config is the Triage Pipeline's tunable configuration.
type Config struct {
	Weights             Weights
	CustomRules         []CustomRule
	FlakyThreshold       float64
	MinSamplesForTrends  int
}

// DefaultConfig returns spec.md's implied defaults: flakyThreshold 0.3,
// minSamplesForTrends 5.
func DefaultConfig() Config {
	return Config{
		Weights:             DefaultWeights(),
		FlakyThreshold:      0.3,
		MinSamplesForTrends: 5,
	}
}

// Validate enforces spec.md §4.5's validateConfiguration invariants: the
// weight sum must stay within ±0.01 of 1.0, and flakyThreshold must lie in
// [0,1].
func (c Config) Validate() error {
	if sum := c.Weights.sum(); math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("triage weights must sum to 1.0 (±0.01), got %.4f", sum)
	}
	if c.FlakyThreshold < 0 || c.FlakyThreshold > 1 {
		return fmt.Errorf("flakyThreshold must be in [0,1], got %.4f", c.FlakyThreshold)
	}
	return nil
}
