package comprehension

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/agentictest/orchestrator/pkg/agent"
	"github.com/agentictest/orchestrator/pkg/scenario"
)

// Config configures a ComprehensionAgent.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// DefaultConfig returns conservative sampling defaults.
func DefaultConfig() Config {
	return Config{Temperature: 0.2, MaxTokens: 1024}
}

// ComprehensionAgent implements agent.Agent for LLM-judged assertions
// (spec.md §4.1's COMPREHENSION variant): a scenario step supplies a
// natural-language judgment prompt, the agent asks the configured LLM, and
// extracts a `{"pass": bool, "reason": string}`-shaped verdict from the
// response.
type ComprehensionAgent struct {
	dispatcher *agent.Dispatcher

	mu     sync.Mutex
	cfg    Config
	client *Client
}

// NewComprehensionAgent builds a ComprehensionAgent from cfg.
func NewComprehensionAgent(cfg Config) *ComprehensionAgent {
	a := &ComprehensionAgent{cfg: cfg, client: NewClient(cfg.BaseURL, cfg.APIKey, cfg.Model)}
	a.dispatcher = agent.NewDispatcher()
	a.dispatcher.Register("judge", a.judge)
	return a
}

func (a *ComprehensionAgent) Variant() agent.Variant { return agent.VariantComprehension }

func (a *ComprehensionAgent) Initialize(ctx context.Context) error { return nil }

func (a *ComprehensionAgent) Cleanup(ctx context.Context) {}

func (a *ComprehensionAgent) DefaultTimeout() time.Duration { return 60 * time.Second }

// ApplyEnvironment reads LLM_BASE_URL/LLM_API_KEY/LLM_MODEL per spec.md §6.
func (a *ComprehensionAgent) ApplyEnvironment(env map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v, ok := env["LLM_BASE_URL"]; ok {
		a.cfg.BaseURL = v
	}
	if v, ok := env["LLM_API_KEY"]; ok {
		a.cfg.APIKey = v
	}
	if v, ok := env["LLM_MODEL"]; ok {
		a.cfg.Model = v
	}
	a.client = NewClient(a.cfg.BaseURL, a.cfg.APIKey, a.cfg.Model)
}

func (a *ComprehensionAgent) ExecuteStep(ctx context.Context, step scenario.Step, index int) (scenario.StepResult, error) {
	return a.dispatcher.Dispatch(ctx, step, index), nil
}

func (a *ComprehensionAgent) currentClient() *Client {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.client
}

type verdict struct {
	Pass   bool   `json:"pass"`
	Reason string `json:"reason"`
}

// judge asks the LLM whether step.Target (the observed state, typically
// filled in by the orchestrator from a prior step's ActualResult) satisfies
// step.Expected (the natural-language assertion), returning the model's
// stated reason as the step's ActualResult.
func (a *ComprehensionAgent) judge(ctx context.Context, step scenario.Step, index int) (string, error) {
	system := "You judge whether an observed system state satisfies a natural-language assertion. " +
		`Respond with exactly one JSON object: {"pass": true|false, "reason": "<one sentence>"}.`
	user := fmt.Sprintf("Observed state:\n%s\n\nAssertion:\n%s", step.Target, step.Expected)

	raw, err := a.currentClient().Chat(ctx, Request{
		System:      system,
		User:        user,
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
	})
	if err != nil {
		return "", err
	}

	jsonText, ok := ExtractJSON(raw)
	if !ok {
		return raw, fmt.Errorf("judge: no JSON object found in LLM response")
	}

	var v verdict
	if err := json.Unmarshal([]byte(jsonText), &v); err != nil {
		return raw, fmt.Errorf("judge: parse verdict: %w", err)
	}
	if !v.Pass {
		return v.Reason, fmt.Errorf("assertion failed: %s", v.Reason)
	}
	return v.Reason, nil
}
