// Package config defines the in-memory configuration schema for the
// orchestrator core: one Config struct nesting each component's own
// sub-config, plus AGENTIC_* environment overrides and a Validate() method.
// File/YAML loading is out of scope (spec.md §1) — callers construct a
// Config directly, typically DefaultConfig() overridden by FromEnv().
package config

import (
	"time"

	"github.com/agentictest/orchestrator/pkg/clisession"
	"github.com/agentictest/orchestrator/pkg/comprehension"
	"github.com/agentictest/orchestrator/pkg/httpagent"
	"github.com/agentictest/orchestrator/pkg/issuetracker"
	"github.com/agentictest/orchestrator/pkg/orchestrator"
	"github.com/agentictest/orchestrator/pkg/priorityagent"
	"github.com/agentictest/orchestrator/pkg/sysagent"
	"github.com/agentictest/orchestrator/pkg/triage"
)

// Config is the umbrella configuration object threaded through cmd/'s
// wiring: one sub-config per component, plus the top-level runtime knobs
// spec.md §6 assigns to environment variables.
type Config struct {
	LogLevel    LogLevel
	MaxParallel int
	Timeout     time.Duration
	Headless    bool

	Orchestrator  orchestrator.Config
	HTTPAgent     httpagent.Config
	CLISession    clisession.Config
	System        sysagent.Config
	Triage        triage.Config
	IssueTracker  issuetracker.Config
	Priority      priorityagent.Config
	Comprehension comprehension.Config
}

// DefaultConfig returns a Config built from each component's own defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel:    LogLevelInfo,
		MaxParallel: 4,
		Timeout:     30 * time.Second,
		Headless:    true,

		Orchestrator:  orchestrator.Config{MaxParallel: 4, MaxRetries: 0, DefaultTimeout: 30 * time.Second},
		HTTPAgent:     httpagent.DefaultConfig(),
		System:        sysagent.DefaultConfig(),
		Triage:        triage.DefaultConfig(),
		IssueTracker:  issuetracker.DefaultConfig(),
		Priority:      priorityagent.Config{Triage: triage.DefaultConfig()},
		Comprehension: comprehension.DefaultConfig(),
	}
}
