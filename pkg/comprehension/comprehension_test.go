package comprehension

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentictest/orchestrator/pkg/scenario"
)

func TestExtractJSON_FindsFirstTopLevelObject(t *testing.T) {
	text := `Sure, here's my verdict:\n{"pass": true, "reason": "looks good"}\nHope that helps.`
	got, ok := ExtractJSON(text)
	require.True(t, ok)
	assert.JSONEq(t, `{"pass": true, "reason": "looks good"}`, got)
}

func TestExtractJSON_DoesNotTruncateOnNestedObject(t *testing.T) {
	text := `{"pass": false, "reason": "nested", "detail": {"code": 42}}`
	got, ok := ExtractJSON(text)
	require.True(t, ok)
	assert.JSONEq(t, text, got)
}

func TestExtractJSON_IgnoresBracesInsideStrings(t *testing.T) {
	text := `{"pass": true, "reason": "contains a brace } in text"}`
	got, ok := ExtractJSON(text)
	require.True(t, ok)
	assert.JSONEq(t, text, got)
}

func TestExtractJSON_NoObjectReturnsFalse(t *testing.T) {
	_, ok := ExtractJSON("no json here")
	assert.False(t, ok)
}

func newFakeLLMServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestComprehensionAgent_JudgePasses(t *testing.T) {
	srv := newFakeLLMServer(t, `{"pass": true, "reason": "matches expectation"}`)
	defer srv.Close()

	a := NewComprehensionAgent(Config{BaseURL: srv.URL, Model: "test-model"})
	res, err := a.ExecuteStep(context.Background(), scenario.Step{
		Action: "judge", Target: "page shows welcome banner", Expected: "the user sees a welcome message",
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, scenario.StatusPassed, res.Status)
	assert.Equal(t, "matches expectation", res.ActualResult)
}

func TestComprehensionAgent_JudgeFails(t *testing.T) {
	srv := newFakeLLMServer(t, `{"pass": false, "reason": "banner missing"}`)
	defer srv.Close()

	a := NewComprehensionAgent(Config{BaseURL: srv.URL, Model: "test-model"})
	res, err := a.ExecuteStep(context.Background(), scenario.Step{
		Action: "judge", Target: "blank page", Expected: "the user sees a welcome message",
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, scenario.StatusFailed, res.Status)
}

func TestComprehensionAgent_MalformedResponseFails(t *testing.T) {
	srv := newFakeLLMServer(t, "not valid json at all")
	defer srv.Close()

	a := NewComprehensionAgent(Config{BaseURL: srv.URL, Model: "test-model"})
	res, err := a.ExecuteStep(context.Background(), scenario.Step{Action: "judge", Target: "x", Expected: "y"}, 0)
	require.NoError(t, err)
	assert.Equal(t, scenario.StatusFailed, res.Status)
}
