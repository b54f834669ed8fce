package clisession

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/agentictest/orchestrator/pkg/agent"
	"github.com/agentictest/orchestrator/pkg/scenario"
)

// Config configures a CLIAgent: the command line to spawn and the
// teardown grace period for its Registry.
type Config struct {
	Command string
	Args    []string
	Grace   time.Duration
}

// CLIAgent implements the agent.Agent contract for CLI/TUI scenarios
// (spec.md §4.3). It owns exactly one Session plus the process registry
// that guarantees orderly teardown even when Cleanup runs after a failed or
// cancelled scenario.
type CLIAgent struct {
	dispatcher *agent.Dispatcher
	cfg        Config
	registry   *Registry
	session    *Session
}

// NewCLIAgent builds a CLIAgent from cfg.
func NewCLIAgent(cfg Config) *CLIAgent {
	a := &CLIAgent{
		cfg:        cfg,
		registry:   NewRegistry(cfg.Grace),
		dispatcher: agent.NewDispatcher(),
	}
	a.registerActions()
	return a
}

func (a *CLIAgent) Variant() agent.Variant { return agent.VariantCLI }

// Initialize spawns the configured process. A spawn failure fails
// initialize per spec.md §4.3.
func (a *CLIAgent) Initialize(ctx context.Context) error {
	if a.cfg.Command == "" {
		return nil
	}
	s := NewSession(uuidLike(), a.cfg.Command, a.cfg.Args)
	if err := s.Start(ctx); err != nil {
		return err
	}
	a.session = s
	a.registry.Track(s)
	return nil
}

func (a *CLIAgent) Cleanup(ctx context.Context) {
	a.registry.Close()
}

func (a *CLIAgent) DefaultTimeout() time.Duration { return 10 * time.Second }

// ApplyEnvironment maps scenario.environment onto the next spawn's command
// line, per the CLI_COMMAND convention mirroring the HTTP agent's
// API_BASE_URL handling.
func (a *CLIAgent) ApplyEnvironment(env map[string]string) {
	if v, ok := env["CLI_COMMAND"]; ok {
		a.cfg.Command = v
	}
	if v, ok := env["CLI_ARGS"]; ok {
		a.cfg.Args = strings.Fields(v)
	}
}

func (a *CLIAgent) ExecuteStep(ctx context.Context, step scenario.Step, index int) (scenario.StepResult, error) {
	return a.dispatcher.Dispatch(ctx, step, index), nil
}

func (a *CLIAgent) registerActions() {
	d := a.dispatcher
	d.Register("write", a.write)
	d.Register("wait_for_output", a.waitForOutput)
	d.Register("validate_output", a.validateOutput)
	d.Register("validate_exit_code", a.validateExitCode)
	d.Register("kill_process", a.killProcess)
}

func (a *CLIAgent) write(ctx context.Context, step scenario.Step, index int) (string, error) {
	if a.session == nil {
		return "", ErrNotRunning
	}
	if err := a.session.Write(step.Value); err != nil {
		return "", err
	}
	return "ok", nil
}

func (a *CLIAgent) waitForOutput(ctx context.Context, step scenario.Step, index int) (string, error) {
	if a.session == nil {
		return "", ErrNotRunning
	}
	timeout := time.Duration(step.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = a.DefaultTimeout()
	}
	text, err := a.session.WaitForOutput(ctx, step.Target, timeout)
	if err != nil {
		return text, err
	}
	return text, nil
}

func (a *CLIAgent) validateOutput(ctx context.Context, step scenario.Step, index int) (string, error) {
	if a.session == nil {
		return "", ErrNotRunning
	}
	actual := a.session.Capture().Combined
	var ok bool
	var err error
	if step.Value != "" {
		ok, err = ValidateStructuredOutput(actual, ExpectationType(step.Value), step.Expected)
	} else {
		ok, err = ValidateOutput(actual, step.Expected)
	}
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("output did not satisfy expectation %q", step.Expected)
	}
	return "ok", nil
}

func (a *CLIAgent) validateExitCode(ctx context.Context, step scenario.Step, index int) (string, error) {
	if a.session == nil {
		return "", ErrNotRunning
	}
	expected, err := strconv.Atoi(step.Expected)
	if err != nil {
		return "", fmt.Errorf("validate_exit_code expects an integer, got %q", step.Expected)
	}
	actual := a.session.ExitCode()
	if actual != expected {
		return strconv.Itoa(actual), fmt.Errorf("expected exit code %d, got %d", expected, actual)
	}
	return strconv.Itoa(actual), nil
}

func (a *CLIAgent) killProcess(ctx context.Context, step scenario.Step, index int) (string, error) {
	if a.session == nil {
		return "", ErrNotRunning
	}
	if err := a.session.Kill(a.cfg.Grace); err != nil {
		return "", err
	}
	return "ok", nil
}

var seqCounter int

func uuidLike() string {
	seqCounter++
	return fmt.Sprintf("cli-session-%d-%d", time.Now().UnixNano(), seqCounter)
}
