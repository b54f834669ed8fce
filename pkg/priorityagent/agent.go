package priorityagent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/agentictest/orchestrator/pkg/agent"
	"github.com/agentictest/orchestrator/pkg/scenario"
	"github.com/agentictest/orchestrator/pkg/triage"
)

// Config configures a PriorityAgent.
type Config struct {
	Triage      triage.Config
	HistoryPath string
}

// PriorityAgent implements agent.Agent for triage-driven steps: scoring a
// failure's impact, checking flakiness, and ranking the accumulated
// history into a fix order.
type PriorityAgent struct {
	dispatcher *agent.Dispatcher

	mu    sync.Mutex
	cfg   Config
	store *Store
}

// NewPriorityAgent builds a PriorityAgent from cfg. The history store is
// loaded lazily, once, at the first action that needs it.
func NewPriorityAgent(cfg Config) *PriorityAgent {
	a := &PriorityAgent{cfg: cfg, store: NewStore(cfg.HistoryPath)}
	a.dispatcher = agent.NewDispatcher()
	a.dispatcher.Register("classify", a.classify)
	a.dispatcher.Register("check_flaky", a.checkFlaky)
	a.dispatcher.Register("fix_order", a.fixOrder)
	return a
}

func (a *PriorityAgent) Variant() agent.Variant { return agent.VariantPriority }

func (a *PriorityAgent) Initialize(ctx context.Context) error { return nil }

func (a *PriorityAgent) Cleanup(ctx context.Context) {}

func (a *PriorityAgent) DefaultTimeout() time.Duration { return 10 * time.Second }

// ApplyEnvironment reads PRIORITY_HISTORY_PATH per spec.md §6.
func (a *PriorityAgent) ApplyEnvironment(env map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v, ok := env["PRIORITY_HISTORY_PATH"]; ok && v != "" {
		a.cfg.HistoryPath = v
		a.store = NewStore(v)
	}
}

func (a *PriorityAgent) ExecuteStep(ctx context.Context, step scenario.Step, index int) (scenario.StepResult, error) {
	return a.dispatcher.Dispatch(ctx, step, index), nil
}

// classify scores one failure and appends the resulting Assignment to this
// scenario's history. Step fields: Target=scenarioID, Value=category,
// Expected=interface type (API/UI/CLI/mixed, default API), Description=
// failure message.
func (a *PriorityAgent) classify(ctx context.Context, step scenario.Step, index int) (string, error) {
	scenarioID := step.Target
	iface := triage.InterfaceType(step.Expected)
	if iface == "" {
		iface = triage.InterfaceAPI
	}

	history, err := a.store.History(scenarioID)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}
	priorStatuses := make([]scenario.Status, 0, len(history))
	for range history {
		priorStatuses = append(priorStatuses, scenario.StatusFailed)
	}

	fc := triage.FailureContext{
		Failure: scenario.TestFailure{
			ScenarioID: scenarioID,
			Timestamp:  time.Now(),
			Message:    step.Description,
			Category:   step.Value,
		},
		Interface: iface,
		History:   priorStatuses,
	}

	assignment := triage.Score(a.cfg.Triage, fc)
	if err := a.store.Append(scenarioID, assignment); err != nil {
		return "", fmt.Errorf("persist assignment: %w", err)
	}
	return fmt.Sprintf("tier=%s score=%.1f", assignment.PriorityTier, assignment.ImpactScore), nil
}

// checkFlaky runs DetectFlaky against scenarioID's recorded history. Step
// fields: Target=scenarioID.
func (a *PriorityAgent) checkFlaky(ctx context.Context, step scenario.Step, index int) (string, error) {
	scenarioID := step.Target
	records, err := a.store.History(scenarioID)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}

	statuses := make([]scenario.Status, 0, len(records))
	for _, r := range records {
		if r.PriorityTier == triage.TierLow {
			statuses = append(statuses, scenario.StatusPassed)
		} else {
			statuses = append(statuses, scenario.StatusFailed)
		}
	}

	report, flagged := triage.DetectFlaky(a.cfg.Triage, scenarioID, statuses)
	if !flagged {
		return "not flaky", nil
	}
	return fmt.Sprintf("flaky score=%.2f action=%s", report.FlakinessScore, report.RecommendedAction), nil
}

// fixOrder ranks every scenario's latest assignment via triage.FixOrder,
// returning a comma-separated scenario-ID order.
func (a *PriorityAgent) fixOrder(ctx context.Context, step scenario.Step, index int) (string, error) {
	latest, err := a.store.Latest()
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}
	ordered := triage.FixOrder(latest)
	ids := make([]string, len(ordered))
	for i, a := range ordered {
		ids[i] = a.ScenarioID
	}
	return strings.Join(ids, ","), nil
}
