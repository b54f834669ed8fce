package httpagent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/agentictest/orchestrator/pkg/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_RetriesOnConfiguredStatusThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.Retry.MaxRetries = 5
	cfg.Retry.RetryDelayMs = 1
	cfg.Retry.RetryOnStatus = map[int]bool{503: true}

	c := NewClient(cfg)
	resp := c.Do(context.Background(), "GET", srv.URL, "", nil)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, int32(3), calls)
	assert.Len(t, c.History().Requests(), 3)
	assert.Len(t, c.History().Responses(), 3)
}

func TestClient_StopsAtMaxRetriesPlusOne(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.Retry.MaxRetries = 2
	cfg.Retry.RetryDelayMs = 1
	cfg.Retry.RetryOnStatus = map[int]bool{503: true}

	c := NewClient(cfg)
	resp := c.Do(context.Background(), "GET", srv.URL, "", nil)

	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)
	assert.NotEmpty(t, resp.Err)
	assert.Equal(t, int32(3), calls) // k+1 = MaxRetries+1 total attempts
	assert.Len(t, c.History().Requests(), 3)
	assert.Len(t, c.History().Responses(), 3)
	for _, r := range c.History().Responses() {
		assert.Equal(t, http.StatusServiceUnavailable, r.Status)
	}
}

func TestClient_TransportFailureRecordsSyntheticZeroStatus(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Retry.MaxRetries = 1
	cfg.Retry.RetryDelayMs = 1

	c := NewClient(cfg)
	resp := c.Do(context.Background(), "GET", "http://127.0.0.1:0", "", nil)

	assert.Equal(t, 0, resp.Status)
	assert.NotEmpty(t, resp.Err)
	require.Len(t, c.History().Responses(), 1)
	assert.Equal(t, 0, c.History().Responses()[0].Status)
}

func TestClient_DoesNotRetryUnlistedStatus(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.Retry.MaxRetries = 3
	cfg.Retry.RetryOnStatus = map[int]bool{503: true}

	c := NewClient(cfg)
	resp := c.Do(context.Background(), "GET", srv.URL, "", nil)

	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, int32(1), calls)
}

func TestHistory_ResetYieldsEmpty(t *testing.T) {
	h := NewHistory()
	h.AddRequest(HTTPRequest{RequestID: "r1"})
	h.AddResponse(HTTPResponse{RequestID: "r1"})
	h.Reset()
	assert.Empty(t, h.Requests())
	assert.Empty(t, h.Responses())
}

func TestCompare_Operators(t *testing.T) {
	ok, err := Compare(scenario.OpEquals, "200", "200")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Compare(scenario.OpContains, "hello world", "world")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Compare(scenario.OpGreaterThan, "10", "5")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Compare(scenario.OpExists, "", "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApplyAuth_Bearer(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	ApplyAuth(req, AuthConfig{Type: AuthBearer, Token: "secret"})
	assert.Equal(t, "Bearer secret", req.Header.Get("Authorization"))
}

func TestMaskHeaders_MasksSensitiveOnly(t *testing.T) {
	masked := MaskHeaders(map[string]string{
		"Authorization": "Bearer x",
		"X-Custom":      "plain",
	}, DefaultSensitiveHeaders())
	assert.Equal(t, "***", masked["Authorization"])
	assert.Equal(t, "plain", masked["X-Custom"])
}

func TestAPIAgent_GetThenValidateStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"up"}`))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	a := NewAPIAgent(cfg)
	require.NoError(t, a.Initialize(context.Background()))

	sr, err := a.ExecuteStep(context.Background(), scenario.Step{Action: "get", Target: "/health"}, 0)
	require.NoError(t, err)
	assert.Equal(t, scenario.StatusPassed, sr.Status)

	sr, err = a.ExecuteStep(context.Background(), scenario.Step{
		Action: "validate_status", Expected: "200", Value: string(scenario.OpEquals),
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, scenario.StatusPassed, sr.Status)
}

func TestAPIAgent_ValidateWithoutPriorRequestFails(t *testing.T) {
	a := NewAPIAgent(DefaultConfig())
	require.NoError(t, a.Initialize(context.Background()))

	sr, err := a.ExecuteStep(context.Background(), scenario.Step{Action: "validate_status", Expected: "200"}, 0)
	require.NoError(t, err)
	assert.Equal(t, scenario.StatusFailed, sr.Status)
}

func TestValidateResponseValue_JSONValueDeepEquals(t *testing.T) {
	resp := HTTPResponse{Data: map[string]any{"ok": true, "count": float64(2)}}
	assert.True(t, ValidateResponseValue(resp, `{"ok":true,"count":2}`))
	assert.False(t, ValidateResponseValue(resp, `{"ok":false}`))
}

func TestValidateResponseValue_PlainStringUsesContains(t *testing.T) {
	resp := HTTPResponse{Data: map[string]any{"message": "hello world"}}
	assert.True(t, ValidateResponseValue(resp, "hello"))
	assert.False(t, ValidateResponseValue(resp, "goodbye"))
}

func TestAPIAgent_ValidateSchemaDisabledByDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	a := NewAPIAgent(cfg)
	require.NoError(t, a.Initialize(context.Background()))

	_, err := a.ExecuteStep(context.Background(), scenario.Step{Action: "get", Target: "/"}, 0)
	require.NoError(t, err)

	sr, err := a.ExecuteStep(context.Background(), scenario.Step{
		Action: "validate_schema", Expected: `{"type":"object"}`,
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, scenario.StatusFailed, sr.Status)
}

func TestAPIAgent_ValidateSchemaRunsWhenEnabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.Validation.Enabled = true
	a := NewAPIAgent(cfg)
	require.NoError(t, a.Initialize(context.Background()))

	_, err := a.ExecuteStep(context.Background(), scenario.Step{Action: "get", Target: "/"}, 0)
	require.NoError(t, err)

	sr, err := a.ExecuteStep(context.Background(), scenario.Step{
		Action: "validate_schema", Expected: `{"type":"object"}`,
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, scenario.StatusPassed, sr.Status)
}
