// Package comprehension implements the COMPREHENSION agent variant
// (spec.md §4.1/§6): a chat-completion-style LLM call used to judge natural
// language test outcomes, with brace-depth-aware JSON extraction from the
// model's prose response.
package comprehension

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Request is the vendor-neutral chat-completion-style request spec.md §6
// describes: a system/user prompt pair plus sampling knobs.
type Request struct {
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

// Client is an OpenAI-compatible chat-completion client, grounded on
// haricheung-agentic-shell/internal/llm/client.go's Chat method but
// generalized to carry per-call Temperature/MaxTokens rather than fixed
// client-level settings.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewClient builds a Client against baseURL (no trailing "/chat/completions")
// using apiKey for bearer auth and model as the default model name.
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type chatRequestBody struct {
	Model       string    `json:"model"`
	Messages    []chatMsg `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponseBody struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Chat sends req and returns the assistant's raw text response.
func (c *Client) Chat(ctx context.Context, req Request) (string, error) {
	payload := chatRequestBody{
		Model: c.model,
		Messages: []chatMsg{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("comprehension: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("comprehension: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("comprehension: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("comprehension: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("comprehension: HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed chatResponseBody
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("comprehension: unmarshal response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("comprehension: API error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("comprehension: no choices in response")
	}
	return parsed.Choices[0].Message.Content, nil
}

// ExtractJSON scans text for the first top-level `{...}` object using
// brace-depth tracking (not a naive regex) so a nested JSON object in the
// model's surrounding prose doesn't truncate the match early. A
// double-quoted string's braces are ignored, including escaped quotes.
func ExtractJSON(text string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i, r := range text {
		if start == -1 {
			if r == '{' {
				start = i
				depth = 1
			}
			continue
		}
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
	}
	return "", false
}
