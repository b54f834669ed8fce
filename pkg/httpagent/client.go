package httpagent

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
)

// Client dispatches HTTP requests per Config, driving retries through
// hashicorp/go-retryablehttp and recording every attempt into a History —
// the same "every request/response is observable" contract spec.md §4.2
// requires of a hand-rolled loop, but built on an existing retry library.
//
// A fresh *retryablehttp.Client is built for each Do call (see
// newRetryableClient) rather than reused across calls: retryablehttp's
// hooks are Client-scoped, not Request-scoped, and this Client may be
// called concurrently across scenarios that share a cached agent instance.
// Per-call hook closures (capturing this call's requestID and attempt
// counter) would otherwise race against each other on a shared
// *retryablehttp.Client.
type Client struct {
	cfg     Config
	history *History
}

// NewClient builds a Client against cfg, backed by a fresh History.
func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg, history: NewHistory()}
}

// History returns the client's request/response log.
func (c *Client) History() *History { return c.history }

// linearBackoff always waits RetryDelayMs, ignoring attempt number — the
// "linear" branch of spec.md §4.2's retry algorithm.
func linearBackoff(delayMs int) retryablehttp.Backoff {
	return func(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
		return time.Duration(delayMs) * time.Millisecond
	}
}

// exponentialBackoffWithCap computes delayMs * 2^(attempt) capped at maxMs —
// the "exponential" branch of spec.md §4.2's retry algorithm.
func exponentialBackoffWithCap(delayMs, maxMs int) retryablehttp.Backoff {
	return func(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
		d := delayMs
		for i := 0; i < attemptNum; i++ {
			d *= 2
			if d >= maxMs {
				return time.Duration(maxMs) * time.Millisecond
			}
		}
		return time.Duration(d) * time.Millisecond
	}
}

// newRetryableClient builds a *retryablehttp.Client from c.cfg. Hooks are
// left for the caller (Do) to attach per-call.
func (c *Client) newRetryableClient() *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = c.cfg.Retry.MaxRetries
	rc.RetryWaitMin = time.Duration(c.cfg.Retry.RetryDelayMs) * time.Millisecond
	if c.cfg.Retry.ExponentialBackoff {
		maxDelay := c.cfg.Retry.MaxBackoffDelayMs
		if maxDelay <= 0 {
			maxDelay = 30_000
		}
		rc.RetryWaitMax = time.Duration(maxDelay) * time.Millisecond
		rc.Backoff = exponentialBackoffWithCap(c.cfg.Retry.RetryDelayMs, maxDelay)
	} else {
		rc.RetryWaitMax = time.Duration(c.cfg.Retry.RetryDelayMs) * time.Millisecond
		rc.Backoff = linearBackoff(c.cfg.Retry.RetryDelayMs)
	}
	rc.HTTPClient.Timeout = time.Duration(c.cfg.TimeoutMs) * time.Millisecond
	return rc
}

// Do executes one logical request, transparently retried per Config, and
// returns the final HTTPResponse. Every attempt that receives an actual HTTP
// response (success or a retryable failure status) is appended to history as
// it completes, per spec.md §4.2: "every response … is appended on
// completion." A pure transport failure (no response ever received) appends
// a single synthetic status=0 entry once Do gives up, rather than one per
// attempt.
func (c *Client) Do(ctx context.Context, method, url, body string, headers map[string]string) HTTPResponse {
	requestID := uuid.NewString()
	attempt := 0
	var lastReal *HTTPResponse

	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, strings.NewReader(body))
	if err != nil {
		resp := HTTPResponse{RequestID: requestID, Timestamp: time.Now(), Err: err.Error()}
		c.history.AddResponse(resp)
		return resp
	}
	for k, v := range c.cfg.DefaultHeaders {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	ApplyAuth(req.Request, c.cfg.Auth)

	rc := c.newRetryableClient()
	rc.RequestLogHook = func(_ retryablehttp.Logger, r *http.Request, attemptNum int) {
		attempt = attemptNum
		c.history.AddRequest(HTTPRequest{
			RequestID: requestID,
			Method:    r.Method,
			URL:       r.URL.String(),
			Headers:   flattenHeaders(r.Header),
			Body:      body,
			Attempt:   attemptNum,
			Timestamp: time.Now(),
		})
	}
	rc.CheckRetry = func(attemptCtx context.Context, resp *http.Response, doErr error) (bool, error) {
		if doErr == nil && resp != nil {
			bodyBytes, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			resp.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			r := HTTPResponse{
				RequestID: requestID,
				Status:    resp.StatusCode,
				Headers:   flattenHeaders(resp.Header),
				Body:      string(bodyBytes),
				Data:      decodeJSONBestEffort(bodyBytes),
				Attempt:   attempt,
				Timestamp: time.Now(),
			}
			c.history.AddResponse(r)
			lastReal = &r
		}
		if attemptCtx.Err() != nil {
			return false, attemptCtx.Err()
		}
		if doErr != nil {
			return true, nil
		}
		if resp == nil {
			return false, nil
		}
		return c.cfg.Retry.RetryOnStatus[resp.StatusCode], nil
	}

	start := time.Now()
	httpResp, doErr := rc.Do(req)
	duration := time.Since(start).Milliseconds()

	if doErr != nil {
		resp := HTTPResponse{
			RequestID:  requestID,
			Attempt:    attempt,
			DurationMs: duration,
			Timestamp:  time.Now(),
			Err:        doErr.Error(),
		}
		if lastReal != nil {
			// Retries exhausted against a real response: preserve its
			// status/body instead of reporting a synthetic 0 (spec.md §8
			// scenario 2). Already logged to history by CheckRetry above.
			resp.Status = lastReal.Status
			resp.Headers = lastReal.Headers
			resp.Body = lastReal.Body
			resp.Data = lastReal.Data
		} else {
			c.history.AddResponse(resp)
		}
		return resp
	}
	defer httpResp.Body.Close()

	bodyBytes, _ := io.ReadAll(httpResp.Body)
	resp := HTTPResponse{
		RequestID:  requestID,
		Status:     httpResp.StatusCode,
		Headers:    flattenHeaders(httpResp.Header),
		Body:       string(bodyBytes),
		Data:       decodeJSONBestEffort(bodyBytes),
		Attempt:    attempt,
		DurationMs: duration,
		Timestamp:  time.Now(),
	}
	// Already logged to history by CheckRetry for this final attempt.
	return resp
}

func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k := range h {
		out[k] = h.Get(k)
	}
	return out
}

func decodeJSONBestEffort(body []byte) any {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil
	}
	return v
}
