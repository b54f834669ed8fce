// Package scenario defines the in-memory scenario schema and the result
// types produced by executing one: Scenario, Step, Verification, StepResult,
// TestResult, and TestFailure. Loading scenarios from YAML or any other file
// format is out of scope for this package — callers construct Scenario
// values directly.
package scenario

import "time"

// Priority is a scenario's business-priority hint, independent of any
// computed impact score (see pkg/triage).
type Priority string

// Priority hint constants.
const (
	PriorityCritical Priority = "CRITICAL"
	PriorityHigh     Priority = "HIGH"
	PriorityMedium   Priority = "MEDIUM"
	PriorityLow      Priority = "LOW"
)

// IsValid reports whether p is one of the four recognized priority hints.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// AgentRef names the agent a scenario wants for one of its logical roles.
type AgentRef struct {
	Type   string         `json:"type"`
	Config map[string]any `json:"config,omitempty"`
}

// Step is one atomic unit of scenario execution. Meaning of Action/Target/
// Value is agent-type-specific; the core never interprets them beyond
// dispatch.
type Step struct {
	Action      string `json:"action"`
	Target      string `json:"target,omitempty"`
	Value       string `json:"value,omitempty"`
	Expected    string `json:"expected,omitempty"`
	TimeoutMs   int    `json:"timeoutMs,omitempty"`
	Description string `json:"description,omitempty"`

	// ContinueOnFailure opts this individual step into the scenario
	// continuing past its failure. Default false — see spec.md §9 Open
	// Questions (step-level continueOnFailure is an explicit opt-in).
	ContinueOnFailure bool `json:"continueOnFailure,omitempty"`
}

// Operator names a comparison used by a Verification.
type Operator string

// Supported verification operators.
const (
	OpEquals      Operator = "equals"
	OpContains    Operator = "contains"
	OpMatches     Operator = "matches"
	OpGreaterThan Operator = "greaterThan"
	OpLessThan    Operator = "lessThan"
	OpExists      Operator = "exists"
)

// Verification is a post-condition checked against the latest agent state.
type Verification struct {
	Type        string   `json:"type"`
	Target      string   `json:"target"`
	Expected    string   `json:"expected"`
	Operator    Operator `json:"operator"`
	Description string   `json:"description,omitempty"`
}

// Scenario is a named, immutable unit of work. Once constructed, a Scenario
// and its Steps must not be mutated — a Step mutates no shared state.
type Scenario struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Description   string              `json:"description,omitempty"`
	Prerequisites []string            `json:"prerequisites,omitempty"`
	Agents        map[string]AgentRef `json:"agents,omitempty"`
	Steps         []Step              `json:"steps"`
	Verifications []Verification      `json:"verifications,omitempty"`
	Cleanup       []Step              `json:"cleanup,omitempty"`
	Environment   map[string]string   `json:"environment,omitempty"`

	TimeoutMs    int      `json:"timeoutMs,omitempty"`
	Retries      *int     `json:"retries,omitempty"`
	PriorityHint Priority `json:"priorityHint,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Enabled      bool     `json:"enabled"`

	// ContinueOnFailure governs whether one failed step aborts the
	// remaining steps of THIS scenario. Scenario-level, per spec.md §9.
	ContinueOnFailure bool `json:"continueOnFailure,omitempty"`
}

// HasTag reports whether the scenario carries the given tag.
func (s *Scenario) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Status is the outcome of a single step or an entire scenario execution.
type Status string

// Status values shared by StepResult and TestResult.
const (
	StatusPassed  Status = "PASSED"
	StatusFailed  Status = "FAILED"
	StatusError   Status = "ERROR"
	StatusSkipped Status = "SKIPPED"
)

// StepResult is the outcome of one executed Step.
type StepResult struct {
	StepIndex      int    `json:"stepIndex"`
	Status         Status `json:"status"`
	DurationMs     int64  `json:"durationMs"`
	ActualResult   string `json:"actualResult,omitempty"`
	Error          string `json:"error,omitempty"`
	ScreenshotPath string `json:"screenshotPath,omitempty"`
}

// TestFailure describes one failure surfaced during scenario execution, the
// unit consumed by the triage pipeline and the issue reporter.
type TestFailure struct {
	ScenarioID   string    `json:"scenarioId"`
	Timestamp    time.Time `json:"timestamp"`
	Message      string    `json:"message"`
	Category     string    `json:"category,omitempty"`
	FailedStep   *int      `json:"failedStep,omitempty"`
	StackTrace   string    `json:"stackTrace,omitempty"`
	Logs         []string  `json:"logs,omitempty"`
	Screenshots  []string  `json:"screenshots,omitempty"`
	IsKnownIssue bool      `json:"isKnownIssue,omitempty"`
}

// TestResult is the aggregated outcome of executing one Scenario once
// (a single attempt; retries produce one TestResult per attempt and the
// orchestrator keeps only the last).
type TestResult struct {
	ScenarioID  string        `json:"scenarioId"`
	Status      Status        `json:"status"`
	StartTime   time.Time     `json:"startTime"`
	EndTime     time.Time     `json:"endTime"`
	DurationMs  int64         `json:"durationMs"`
	StepResults []StepResult  `json:"stepResults"`
	Failures    []TestFailure `json:"failures,omitempty"`
	Screenshots []string      `json:"screenshots,omitempty"`
	Retries     int           `json:"retries"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// NewTestResult starts a TestResult for scenarioID at startTime. Callers
// append StepResults as steps execute and call Finish to seal it.
func NewTestResult(scenarioID string, startTime time.Time) *TestResult {
	return &TestResult{
		ScenarioID: scenarioID,
		Status:     StatusPassed,
		StartTime:  startTime,
		Metadata:   map[string]any{},
	}
}

// Finish seals the result at endTime, computing DurationMs and the overall
// Status from the worst StepResult status observed (ERROR > FAILED > PASSED;
// an all-SKIPPED result is reported as SKIPPED).
func (r *TestResult) Finish(endTime time.Time) {
	r.EndTime = endTime
	r.DurationMs = endTime.Sub(r.StartTime).Milliseconds()
	r.Status = aggregateStatus(r.StepResults)
}

func aggregateStatus(results []StepResult) Status {
	if len(results) == 0 {
		return StatusSkipped
	}
	sawFailed := false
	sawPassed := false
	for _, sr := range results {
		switch sr.Status {
		case StatusError:
			return StatusError
		case StatusFailed:
			sawFailed = true
		case StatusPassed:
			sawPassed = true
		}
	}
	if sawFailed {
		return StatusFailed
	}
	if sawPassed {
		return StatusPassed
	}
	return StatusSkipped
}
