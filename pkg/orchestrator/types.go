// Package orchestrator implements the Scenario Orchestrator (spec.md
// §4.4): a bounded-parallelism worker pool that executes a batch of
// scenarios honoring prerequisite gating, per-scenario retries and
// timeouts, and cooperative cancellation.
package orchestrator

import (
	"time"

	"github.com/agentictest/orchestrator/pkg/scenario"
)

// Config bounds the orchestrator's execution behavior.
type Config struct {
	MaxParallel    int
	MaxRetries     int
	DefaultTimeout time.Duration
}

// Summary tallies a TestSession's outcomes by status.
type Summary struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Error   int `json:"error"`
	Skipped int `json:"skipped"`
}

// TestSession is the aggregated outcome of running one batch of scenarios.
type TestSession struct {
	SessionID string                 `json:"sessionId"`
	StartTime time.Time              `json:"startTime"`
	EndTime   time.Time              `json:"endTime"`
	Results   []*scenario.TestResult `json:"results"`
	Summary   Summary                `json:"summary"`
}

func summarize(results []*scenario.TestResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		if r == nil {
			continue
		}
		switch r.Status {
		case scenario.StatusPassed:
			s.Passed++
		case scenario.StatusFailed:
			s.Failed++
		case scenario.StatusError:
			s.Error++
		case scenario.StatusSkipped:
			s.Skipped++
		}
	}
	return s
}
