package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/agentictest/orchestrator/pkg/agent"
	"github.com/agentictest/orchestrator/pkg/scenario"
	"github.com/google/uuid"
)

// AgentFactory resolves a scenario.AgentRef to a live agent.Agent, caching
// or constructing it as the caller sees fit. Grounded on the worker-pool
// pattern in pkg/queue/pool.go, with ent's DB-backed session claim replaced
// by an in-memory prerequisite-gated scheduler since this system has no
// durable queue (spec.md §1 Non-goals).
type AgentFactory func(ref scenario.AgentRef) (agent.Agent, error)

// Orchestrator runs scenario batches with bounded parallelism.
type Orchestrator struct {
	cfg     Config
	factory AgentFactory

	mu       sync.Mutex
	runners  map[string]*cachedRunner
	sessions map[string]context.CancelFunc
}

type cachedRunner struct {
	mu     sync.Mutex
	runner *agent.Runner
}

// New builds an Orchestrator. factory resolves AgentRefs to Agent
// instances; the Orchestrator itself caches and reuses the resulting
// Runners across scenarios whose agent type+config match, per spec.md §4.4:
// "reuse session-scoped agent instances across scenarios when their
// type/config is identical."
func New(cfg Config, factory AgentFactory) *Orchestrator {
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = 1
	}
	return &Orchestrator{
		cfg:      cfg,
		factory:  factory,
		runners:  make(map[string]*cachedRunner),
		sessions: make(map[string]context.CancelFunc),
	}
}

// CancelScenario cancels a scenario currently executing under id, returning
// true if it was found running on this Orchestrator.
func (o *Orchestrator) CancelScenario(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if cancel, ok := o.sessions[id]; ok {
		cancel()
		return true
	}
	return false
}

// Run executes scenarios as one batch, honoring prerequisite gating
// (spec.md §4.4): a scenario with non-empty Prerequisites blocks until every
// named prerequisite has completed PASSED; a failed or missing prerequisite
// causes it to be recorded SKIPPED without ever executing its steps.
func (o *Orchestrator) Run(ctx context.Context, scenarios []*scenario.Scenario) *TestSession {
	session := &TestSession{SessionID: uuid.NewString(), StartTime: time.Now()}
	results := make([]*scenario.TestResult, len(scenarios))

	done := make(map[string]chan struct{}, len(scenarios))
	for _, s := range scenarios {
		done[s.ID] = make(chan struct{})
	}

	var statusMu sync.Mutex
	statusOf := make(map[string]scenario.Status, len(scenarios))

	sem := make(chan struct{}, o.cfg.MaxParallel)
	var wg sync.WaitGroup

	for i, s := range scenarios {
		if !s.Enabled {
			results[i] = skippedResult(s, "scenario disabled")
			recordStatus(&statusMu, statusOf, s.ID, scenario.StatusSkipped)
			close(done[s.ID])
			continue
		}

		wg.Add(1)
		go func(i int, s *scenario.Scenario) {
			defer wg.Done()
			defer close(done[s.ID])

			if blocked, reason := o.awaitPrerequisites(ctx, s, done, &statusMu, statusOf); blocked {
				results[i] = skippedResult(s, reason)
				recordStatus(&statusMu, statusOf, s.ID, scenario.StatusSkipped)
				return
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[i] = skippedResult(s, "cancelled before a worker slot was available")
				recordStatus(&statusMu, statusOf, s.ID, scenario.StatusSkipped)
				return
			}
			defer func() { <-sem }()

			result := o.runScenarioWithRetry(ctx, s)
			results[i] = result
			recordStatus(&statusMu, statusOf, s.ID, result.Status)
		}(i, s)
	}

	wg.Wait()

	session.Results = results
	session.EndTime = time.Now()
	session.Summary = summarize(results)
	return session
}

func recordStatus(mu *sync.Mutex, m map[string]scenario.Status, id string, status scenario.Status) {
	mu.Lock()
	m[id] = status
	mu.Unlock()
}

// awaitPrerequisites blocks until every prerequisite of s has completed, then
// reports whether s should be skipped instead of run.
func (o *Orchestrator) awaitPrerequisites(ctx context.Context, s *scenario.Scenario, done map[string]chan struct{}, mu *sync.Mutex, statusOf map[string]scenario.Status) (skip bool, reason string) {
	for _, prereq := range s.Prerequisites {
		ch, known := done[prereq]
		if !known {
			slog.Warn("scenario names an unknown prerequisite; skipping", "scenario", s.ID, "prerequisite", prereq)
			return true, "unknown prerequisite: " + prereq
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return true, "cancelled while waiting on prerequisite " + prereq
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for _, prereq := range s.Prerequisites {
		if statusOf[prereq] != scenario.StatusPassed {
			return true, "prerequisite did not pass: " + prereq
		}
	}
	return false, ""
}

// runScenarioWithRetry runs s, retrying the full step sequence up to
// s.Retries (falling back to cfg.MaxRetries) times on non-PASSED outcomes.
// Intermediate attempts are discarded; only the last attempt's StepResults
// survive, and TestResult.Retries counts the extra attempts (spec.md §4.4).
func (o *Orchestrator) runScenarioWithRetry(ctx context.Context, s *scenario.Scenario) *scenario.TestResult {
	maxRetries := o.cfg.MaxRetries
	if s.Retries != nil {
		maxRetries = *s.Retries
	}

	timeout := o.cfg.DefaultTimeout
	if s.TimeoutMs > 0 {
		timeout = time.Duration(s.TimeoutMs) * time.Millisecond
	}

	var result *scenario.TestResult
	for attempt := 0; attempt <= maxRetries; attempt++ {
		scenarioCtx, cancel := context.WithTimeout(ctx, timeout)
		o.registerSession(s.ID, cancel)

		result = o.runOnce(scenarioCtx, s)
		result.Retries = attempt

		cancel()
		o.unregisterSession(s.ID)

		if result.Status == scenario.StatusPassed {
			break
		}
	}
	return result
}

func (o *Orchestrator) registerSession(id string, cancel context.CancelFunc) {
	o.mu.Lock()
	o.sessions[id] = cancel
	o.mu.Unlock()
}

func (o *Orchestrator) unregisterSession(id string) {
	o.mu.Lock()
	delete(o.sessions, id)
	o.mu.Unlock()
}

// runOnce resolves the scenario's primary agent and drives it through one
// attempt via a Runner. The primary agent is the scenario.Agents entry with
// the lexicographically first role name — scenarios naming exactly one role
// (the common case) are unaffected; multi-role scenarios are an Open
// Question resolved this way and noted in DESIGN.md.
func (o *Orchestrator) runOnce(ctx context.Context, s *scenario.Scenario) *scenario.TestResult {
	if errResult := func() *scenario.TestResult {
		if err := ctx.Err(); err != nil {
			start := time.Now()
			r := scenario.NewTestResult(s.ID, start)
			r.StepResults = []scenario.StepResult{{Status: scenario.StatusError, Error: err.Error()}}
			r.Finish(start)
			return r
		}
		return nil
	}(); errResult != nil {
		return errResult
	}

	ref, ok := primaryAgentRef(s)
	if !ok {
		start := time.Now()
		r := scenario.NewTestResult(s.ID, start)
		r.StepResults = []scenario.StepResult{{Status: scenario.StatusError, Error: "scenario names no agents"}}
		r.Finish(time.Now())
		return r
	}

	runner, err := o.resolveRunner(s.ID, ref)
	if err != nil {
		start := time.Now()
		r := scenario.NewTestResult(s.ID, start)
		r.StepResults = []scenario.StepResult{{Status: scenario.StatusError, Error: err.Error()}}
		r.Finish(time.Now())
		return r
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()

	if runner.runner.State() == agent.StateUninitialized {
		if err := runner.runner.Initialize(ctx); err != nil {
			start := time.Now()
			r := scenario.NewTestResult(s.ID, start)
			r.StepResults = []scenario.StepResult{{Status: scenario.StatusError, Error: err.Error()}}
			r.Finish(time.Now())
			return r
		}
	}

	result, err := runner.runner.Execute(ctx, s)
	if err != nil {
		start := time.Now()
		r := scenario.NewTestResult(s.ID, start)
		r.StepResults = []scenario.StepResult{{Status: scenario.StatusError, Error: err.Error()}}
		r.Finish(time.Now())
		return r
	}
	return result
}

func (o *Orchestrator) resolveRunner(scenarioID string, ref scenario.AgentRef) (*cachedRunner, error) {
	key := cacheKey(ref)

	o.mu.Lock()
	cached, ok := o.runners[key]
	o.mu.Unlock()
	if ok {
		return cached, nil
	}

	a, err := o.factory(ref)
	if err != nil {
		return nil, err
	}
	cached = &cachedRunner{runner: agent.NewRunner(a)}

	o.mu.Lock()
	o.runners[key] = cached
	o.mu.Unlock()
	return cached, nil
}

func cacheKey(ref scenario.AgentRef) string {
	key := ref.Type
	keys := make([]string, 0, len(ref.Config))
	for k := range ref.Config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		key += fmt.Sprintf(";%s=%v", k, ref.Config[k])
	}
	return key
}

func primaryAgentRef(s *scenario.Scenario) (scenario.AgentRef, bool) {
	if len(s.Agents) == 0 {
		return scenario.AgentRef{}, false
	}
	roles := make([]string, 0, len(s.Agents))
	for role := range s.Agents {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return s.Agents[roles[0]], true
}

func skippedResult(s *scenario.Scenario, reason string) *scenario.TestResult {
	now := time.Now()
	r := scenario.NewTestResult(s.ID, now)
	r.StepResults = []scenario.StepResult{{Status: scenario.StatusSkipped, Error: reason}}
	r.Finish(now)
	return r
}
