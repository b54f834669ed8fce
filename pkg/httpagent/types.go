package httpagent

import "time"

// HTTPRequest is one outgoing request recorded in history, before the call
// is attempted (spec.md §4.2: "every request is appended ... before the
// call").
type HTTPRequest struct {
	RequestID string            `json:"requestId"`
	Method    string            `json:"method"`
	URL       string            `json:"url"`
	Headers   map[string]string `json:"headers,omitempty"`
	Body      string            `json:"body,omitempty"`
	Attempt   int               `json:"attempt"`
	Timestamp time.Time         `json:"timestamp"`
}

// HTTPResponse is one received (or synthesized, on transport failure)
// response recorded in history after an attempt completes. Status is 0 for
// pure transport failures that never produced a response.
type HTTPResponse struct {
	RequestID  string            `json:"requestId"`
	Status     int               `json:"status"`
	Headers    map[string]string `json:"headers,omitempty"`
	Body       string            `json:"body,omitempty"`
	Data       any               `json:"data,omitempty"`
	Attempt    int               `json:"attempt"`
	DurationMs int64             `json:"durationMs"`
	Timestamp  time.Time         `json:"timestamp"`
	Err        string            `json:"error,omitempty"`
}
