package sysagent

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/agentictest/orchestrator/pkg/agent"
	"github.com/agentictest/orchestrator/pkg/httpagent"
	"github.com/agentictest/orchestrator/pkg/scenario"
)

// SystemAgent implements the agent.Agent contract for host resource
// condition checks (spec.md §4.1's SYSTEM variant).
type SystemAgent struct {
	dispatcher *agent.Dispatcher
	cfg        Config
	sampler    Sampler
}

// NewSystemAgent builds a SystemAgent sampling the live host.
func NewSystemAgent(cfg Config) *SystemAgent {
	a := &SystemAgent{cfg: cfg, sampler: NewGopsutilSampler(cfg)}
	a.dispatcher = agent.NewDispatcher()
	a.registerActions()
	return a
}

func (a *SystemAgent) Variant() agent.Variant { return agent.VariantSystem }

func (a *SystemAgent) Initialize(ctx context.Context) error { return nil }

func (a *SystemAgent) Cleanup(ctx context.Context) {}

func (a *SystemAgent) DefaultTimeout() time.Duration { return 15 * time.Second }

func (a *SystemAgent) ApplyEnvironment(env map[string]string) {}

func (a *SystemAgent) ExecuteStep(ctx context.Context, step scenario.Step, index int) (scenario.StepResult, error) {
	return a.dispatcher.Dispatch(ctx, step, index), nil
}

func (a *SystemAgent) registerActions() {
	d := a.dispatcher
	d.Register("cpu_usage", a.metricCheck(func(ctx context.Context) (float64, error) {
		return a.sampler.CPUPercent(ctx)
	}))
	d.Register("memory_usage", a.metricCheck(func(ctx context.Context) (float64, error) {
		return a.sampler.MemoryPercent(ctx)
	}))
	d.Register("disk_usage", a.diskUsage)
	d.Register("process_running", a.processRunning)
	d.Register("wait_for_condition", a.waitForCondition)
}

// metricCheck builds an action reading one scalar metric and comparing it
// against step.Expected via step.Value's operator (spec.md's shared
// Operator vocabulary, reused from the HTTP agent's comparator).
func (a *SystemAgent) metricCheck(sample func(ctx context.Context) (float64, error)) agent.ActionFunc {
	return func(ctx context.Context, step scenario.Step, index int) (string, error) {
		value, err := sample(ctx)
		if err != nil {
			return "", err
		}
		return compareMetric(value, scenario.Operator(step.Value), step.Expected)
	}
}

func (a *SystemAgent) diskUsage(ctx context.Context, step scenario.Step, index int) (string, error) {
	path := step.Target
	value, err := a.sampler.DiskPercent(ctx, path)
	if err != nil {
		return "", err
	}
	return compareMetric(value, scenario.Operator(step.Value), step.Expected)
}

func (a *SystemAgent) processRunning(ctx context.Context, step scenario.Step, index int) (string, error) {
	running, err := a.sampler.ProcessRunning(ctx, step.Target)
	if err != nil {
		return "", err
	}
	wantRunning := step.Expected != "false"
	if running != wantRunning {
		return strconv.FormatBool(running), fmt.Errorf("process %q running=%t, want %t", step.Target, running, wantRunning)
	}
	return strconv.FormatBool(running), nil
}

// waitForCondition polls one of the scalar conditions at cfg.PollInterval
// until it is satisfied or the step's context expires. Target names the
// condition (cpu_usage/memory_usage/disk_usage/process_running); Value and
// Expected carry the same operator/threshold pair those actions accept.
func (a *SystemAgent) waitForCondition(ctx context.Context, step scenario.Step, index int) (string, error) {
	check := func(ctx context.Context) (string, error) {
		switch step.Target {
		case "cpu_usage":
			return a.metricCheck(func(ctx context.Context) (float64, error) { return a.sampler.CPUPercent(ctx) })(ctx, step, index)
		case "memory_usage":
			return a.metricCheck(func(ctx context.Context) (float64, error) { return a.sampler.MemoryPercent(ctx) })(ctx, step, index)
		case "disk_usage":
			return a.diskUsage(ctx, step, index)
		case "process_running":
			return a.processRunning(ctx, step, index)
		default:
			return "", fmt.Errorf("wait_for_condition: unknown condition %q", step.Target)
		}
	}

	var lastErr error
	for {
		result, err := check(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		select {
		case <-time.After(a.cfg.PollInterval):
		case <-ctx.Done():
			return "", fmt.Errorf("wait_for_condition timed out: %w", lastErr)
		}
	}
}

func compareMetric(actual float64, op scenario.Operator, expected string) (string, error) {
	actualStr := strconv.FormatFloat(actual, 'f', 2, 64)
	ok, err := httpagent.Compare(op, actualStr, expected)
	if err != nil {
		return "", err
	}
	if !ok {
		return actualStr, fmt.Errorf("metric check %s %s failed, got %s", op, expected, actualStr)
	}
	return actualStr, nil
}
