// Command agentictest wires the configured agent variants into an
// Orchestrator and runs one batch of scenarios read from stdin (or
// -scenarios) as JSON. Scenario authoring itself — any file format, a DSL,
// a UI — is out of scope (spec.md §1); this binary is the thin wiring
// layer the core library needs to actually run.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/agentictest/orchestrator/pkg/agent"
	"github.com/agentictest/orchestrator/pkg/clisession"
	"github.com/agentictest/orchestrator/pkg/comprehension"
	"github.com/agentictest/orchestrator/pkg/config"
	"github.com/agentictest/orchestrator/pkg/httpagent"
	"github.com/agentictest/orchestrator/pkg/issuetracker"
	"github.com/agentictest/orchestrator/pkg/orchestrator"
	"github.com/agentictest/orchestrator/pkg/priorityagent"
	"github.com/agentictest/orchestrator/pkg/scenario"
	"github.com/agentictest/orchestrator/pkg/sysagent"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	scenariosPath := flag.String("scenarios", getEnv("AGENTIC_SCENARIOS", ""),
		"Path to a JSON file holding a []scenario.Scenario; reads stdin when empty")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger.Info("starting agentictest orchestrator",
		"maxParallel", cfg.MaxParallel, "timeout", cfg.Timeout, "logLevel", cfg.LogLevel)

	scenarios, err := loadScenarios(*scenariosPath)
	if err != nil {
		logger.Error("failed to load scenarios", "error", err)
		os.Exit(1)
	}
	logger.Info("loaded scenarios", "count", len(scenarios))

	o := orchestrator.New(cfg.Orchestrator, newAgentFactory(cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := o.Run(ctx, scenarios)
	logger.Info("run complete",
		"sessionId", session.SessionID,
		"total", session.Summary.Total,
		"passed", session.Summary.Passed,
		"failed", session.Summary.Failed,
		"skipped", session.Summary.Skipped,
	)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(session); err != nil {
		logger.Error("failed to encode session result", "error", err)
		os.Exit(1)
	}

	if session.Summary.Failed > 0 {
		os.Exit(1)
	}
}

// loadScenarios decodes a JSON array of scenario.Scenario from path, or from
// stdin when path is empty. This is the only file-format concern this
// binary owns; pkg/scenario itself stays format-agnostic (spec.md §1).
func loadScenarios(path string) ([]*scenario.Scenario, error) {
	var (
		data []byte
		err  error
	)
	if path == "" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read scenarios: %w", err)
	}

	var scenarios []*scenario.Scenario
	if err := json.Unmarshal(data, &scenarios); err != nil {
		return nil, fmt.Errorf("parse scenarios: %w", err)
	}
	return scenarios, nil
}

// newAgentFactory maps a scenario.AgentRef.Type to the constructor for the
// matching variant, seeding each one from cfg and then letting the
// orchestrator's Runner call ApplyEnvironment with the scenario's own
// Environment map (spec.md §4.1/§6).
func newAgentFactory(cfg config.Config) orchestrator.AgentFactory {
	return func(ref scenario.AgentRef) (agent.Agent, error) {
		switch agent.Variant(ref.Type) {
		case agent.VariantAPI:
			return httpagent.NewAPIAgent(cfg.HTTPAgent), nil
		case agent.VariantCLI, agent.VariantTUI:
			return clisession.NewCLIAgent(cfg.CLISession), nil
		case agent.VariantSystem:
			return sysagent.NewSystemAgent(cfg.System), nil
		case agent.VariantComprehension:
			return comprehension.NewComprehensionAgent(cfg.Comprehension), nil
		case agent.VariantPriority:
			return priorityagent.NewPriorityAgent(cfg.Priority), nil
		case agent.VariantIssue:
			return issuetracker.NewIssueAgent(cfg.IssueTracker), nil
		default:
			return nil, fmt.Errorf("unknown agent type %q", ref.Type)
		}
	}
}
