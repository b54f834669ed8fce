package issuetracker

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/go-github/v74/github"

	"github.com/agentictest/orchestrator/pkg/agent"
	"github.com/agentictest/orchestrator/pkg/scenario"
)

// tokenTransport adds a bearer Authorization header to every request,
// avoiding a dependency on golang.org/x/oauth2 for a single static token.
type tokenTransport struct {
	token string
	base  http.RoundTripper
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(req)
}

// IssueAgent implements agent.Agent for the ISSUE variant (spec.md §4.6),
// reporting step failures collected over a scenario as tracker issues.
type IssueAgent struct {
	dispatcher *agent.Dispatcher

	mu         sync.Mutex
	cfg        Config
	reporter   *Reporter
	token      string
	slackToken string
	slackChan  string
}

// NewIssueAgent builds an IssueAgent from cfg. The tracker client is built
// lazily at Initialize, once a token is available via ApplyEnvironment or cfg.
func NewIssueAgent(cfg Config) *IssueAgent {
	a := &IssueAgent{cfg: cfg}
	a.dispatcher = agent.NewDispatcher()
	a.registerActions()
	return a
}

func (a *IssueAgent) Variant() agent.Variant { return agent.VariantIssue }

func (a *IssueAgent) Initialize(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	httpClient := http.DefaultClient
	if a.token != "" {
		httpClient = &http.Client{Transport: &tokenTransport{token: a.token, base: http.DefaultTransport}}
	}
	gh := github.NewClient(httpClient)
	notifier := NewNotifier(NotifierConfig{Token: a.slackToken, Channel: a.slackChan})
	a.reporter = NewReporter(a.cfg, NewGitHubClient(gh)).WithNotifier(notifier)
	return nil
}

func (a *IssueAgent) Cleanup(ctx context.Context) {}

func (a *IssueAgent) DefaultTimeout() time.Duration { return 30 * time.Second }

// ApplyEnvironment reads ISSUE_TRACKER_TOKEN/ISSUE_TRACKER_OWNER/
// ISSUE_TRACKER_REPO per spec.md §4.6's environment contract.
func (a *IssueAgent) ApplyEnvironment(env map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v, ok := env["ISSUE_TRACKER_TOKEN"]; ok {
		a.token = v
	}
	if v, ok := env["ISSUE_TRACKER_OWNER"]; ok {
		a.cfg.Owner = v
	}
	if v, ok := env["ISSUE_TRACKER_REPO"]; ok {
		a.cfg.Repo = v
	}
	if v, ok := env["ISSUE_SLACK_TOKEN"]; ok {
		a.slackToken = v
	}
	if v, ok := env["ISSUE_SLACK_CHANNEL"]; ok {
		a.slackChan = v
	}
}

func (a *IssueAgent) ExecuteStep(ctx context.Context, step scenario.Step, index int) (scenario.StepResult, error) {
	return a.dispatcher.Dispatch(ctx, step, index), nil
}

func (a *IssueAgent) currentReporter() *Reporter {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reporter
}

func (a *IssueAgent) registerActions() {
	d := a.dispatcher
	d.Register("report_failure", a.reportFailure)
	d.Register("attach_screenshot", a.attachScreenshot)
}

// reportFailure submits a failure built from the step: Target is the
// failure category, Value is the message, Expected (optional) is a stack
// trace. Returns "issue=<number>" on success.
func (a *IssueAgent) reportFailure(ctx context.Context, step scenario.Step, index int) (string, error) {
	reporter := a.currentReporter()
	if reporter == nil {
		return "", ErrNotInitialized
	}
	failure := FailureInput{
		ScenarioID: step.Description,
		Category:   step.Target,
		Message:    step.Value,
		StackTrace: step.Expected,
		Timestamp:  time.Now(),
	}
	ref, err := reporter.Submit(ctx, failure)
	if err != nil {
		return "", fmt.Errorf("report failure: %w", err)
	}
	return fmt.Sprintf("issue=%d", ref.Number), nil
}

// attachScreenshot posts a reference-only comment on an already-reported
// issue: Target is the issue number, Value is the local screenshot path.
func (a *IssueAgent) attachScreenshot(ctx context.Context, step scenario.Step, index int) (string, error) {
	reporter := a.currentReporter()
	if reporter == nil {
		return "", ErrNotInitialized
	}
	number, err := strconv.Atoi(step.Target)
	if err != nil {
		return "", fmt.Errorf("invalid issue number %q: %w", step.Target, err)
	}
	path, err := reporter.AttachScreenshot(ctx, number, step.Value)
	if err != nil {
		return "", fmt.Errorf("attach screenshot: %w", err)
	}
	return path, nil
}
