package httpagent

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/agentictest/orchestrator/pkg/agent"
	"github.com/agentictest/orchestrator/pkg/scenario"
)

// APIAgent implements the agent.Agent contract for HTTP-driven scenarios
// (spec.md §4.2). It owns one Client/History and one mutable Config that
// scenario steps can adjust in place (set_header, set_auth).
type APIAgent struct {
	dispatcher *agent.Dispatcher

	mu     sync.Mutex
	cfg    Config
	client *Client
}

// NewAPIAgent builds an APIAgent from cfg as given; fields left zero are not
// filled in from DefaultConfig.
func NewAPIAgent(cfg Config) *APIAgent {
	a := &APIAgent{cfg: cfg}
	a.client = NewClient(cfg)
	a.dispatcher = agent.NewDispatcher()
	a.registerActions()
	return a
}

func (a *APIAgent) Variant() agent.Variant { return agent.VariantAPI }

func (a *APIAgent) Initialize(ctx context.Context) error {
	return nil
}

func (a *APIAgent) Cleanup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.client.History().Reset()
}

func (a *APIAgent) DefaultTimeout() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cfg.TimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(a.cfg.TimeoutMs) * time.Millisecond
}

// ApplyEnvironment maps scenario.environment onto the agent's Config, per
// spec.md §4.2: API_BASE_URL, API_TIMEOUT, API_AUTH_TOKEN.
func (a *APIAgent) ApplyEnvironment(env map[string]string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if v, ok := env["API_BASE_URL"]; ok {
		a.cfg.BaseURL = v
	}
	if v, ok := env["API_TIMEOUT"]; ok {
		if ms, err := strconv.Atoi(v); err == nil {
			a.cfg.TimeoutMs = ms
		}
	}
	if v, ok := env["API_AUTH_TOKEN"]; ok {
		a.cfg.Auth = AuthConfig{Type: AuthBearer, Token: v}
	}
	a.client = NewClient(a.cfg)
}

func (a *APIAgent) ExecuteStep(ctx context.Context, step scenario.Step, index int) (scenario.StepResult, error) {
	return a.dispatcher.Dispatch(ctx, step, index), nil
}

func (a *APIAgent) resolveURL(target string) string {
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		return target
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cfg.BaseURL + target
}

func (a *APIAgent) currentClient() *Client {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.client
}

func (a *APIAgent) method(verb string) agent.ActionFunc {
	return func(ctx context.Context, step scenario.Step, index int) (string, error) {
		url := a.resolveURL(step.Target)
		resp := a.currentClient().Do(ctx, verb, url, step.Value, nil)
		if resp.Err != "" {
			return resp.Err, fmt.Errorf("%s %s: %s", verb, url, resp.Err)
		}
		return fmt.Sprintf("status=%d", resp.Status), nil
	}
}

func (a *APIAgent) registerActions() {
	d := a.dispatcher
	d.Register("get", a.method("GET"))
	d.Register("post", a.method("POST"))
	d.Register("put", a.method("PUT"))
	d.Register("delete", a.method("DELETE"))
	d.Register("patch", a.method("PATCH"))
	d.Register("head", a.method("HEAD"))
	d.Register("options", a.method("OPTIONS"))

	d.Register("validate_status", a.validateStatus)
	d.Register("validate_headers", a.validateHeaders)
	d.Register("validate_response", a.validateResponse)
	d.Register("validate_schema", a.validateSchemaAction)

	d.Register("set_header", a.setHeader)
	d.Register("set_auth", a.setAuth)
	d.Register("wait", a.wait)
	d.Register("clear_cookies", a.clearCookies)
}

func (a *APIAgent) lastResponse() (HTTPResponse, error) {
	resp, ok := a.currentClient().History().Last()
	if !ok {
		return HTTPResponse{}, ErrNoResponse
	}
	return resp, nil
}

func (a *APIAgent) validateStatus(ctx context.Context, step scenario.Step, index int) (string, error) {
	resp, err := a.lastResponse()
	if err != nil {
		return "", err
	}
	op := scenario.Operator(step.Value)
	ok, err := ValidateStatus(resp, step.Expected, op)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("expected status %s %s, got %d", op, step.Expected, resp.Status)
	}
	return strconv.Itoa(resp.Status), nil
}

func (a *APIAgent) validateHeaders(ctx context.Context, step scenario.Step, index int) (string, error) {
	resp, err := a.lastResponse()
	if err != nil {
		return "", err
	}
	op := scenario.Operator(step.Value)
	ok, err := ValidateHeader(resp, step.Target, step.Expected, op)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("header %q did not satisfy %s %s", step.Target, op, step.Expected)
	}
	return "ok", nil
}

func (a *APIAgent) validateResponse(ctx context.Context, step scenario.Step, index int) (string, error) {
	resp, err := a.lastResponse()
	if err != nil {
		return "", err
	}
	if !ValidateResponseValue(resp, step.Value) {
		return "", fmt.Errorf("response did not match %q", step.Value)
	}
	return "ok", nil
}

func (a *APIAgent) validateSchemaAction(ctx context.Context, step scenario.Step, index int) (string, error) {
	a.mu.Lock()
	enabled := a.cfg.Validation.Enabled
	a.mu.Unlock()
	if !enabled {
		return "", fmt.Errorf("validate_schema: %w", ErrValidationDisabled)
	}
	resp, err := a.lastResponse()
	if err != nil {
		return "", err
	}
	if err := ValidateSchema(resp, step.Expected); err != nil {
		return "", err
	}
	return "ok", nil
}

func (a *APIAgent) setHeader(ctx context.Context, step scenario.Step, index int) (string, error) {
	a.mu.Lock()
	if a.cfg.DefaultHeaders == nil {
		a.cfg.DefaultHeaders = map[string]string{}
	}
	a.cfg.DefaultHeaders[step.Target] = step.Value
	a.client = NewClient(a.cfg)
	a.mu.Unlock()
	return "ok", nil
}

func (a *APIAgent) setAuth(ctx context.Context, step scenario.Step, index int) (string, error) {
	auth := ParseSetAuthValue(step.Target, step.Value)
	a.mu.Lock()
	a.cfg.Auth = auth
	a.client = NewClient(a.cfg)
	a.mu.Unlock()
	return "ok", nil
}

func (a *APIAgent) wait(ctx context.Context, step scenario.Step, index int) (string, error) {
	ms, err := strconv.Atoi(step.Value)
	if err != nil {
		ms = 0
	}
	select {
	case <-time.After(time.Duration(ms) * time.Millisecond):
		return "ok", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (a *APIAgent) clearCookies(ctx context.Context, step scenario.Step, index int) (string, error) {
	a.mu.Lock()
	delete(a.cfg.DefaultHeaders, "Cookie")
	a.client = NewClient(a.cfg)
	a.mu.Unlock()
	return "ok", nil
}
