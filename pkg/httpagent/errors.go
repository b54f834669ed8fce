package httpagent

import "errors"

// Sentinel errors for the HTTP Request Subsystem (spec.md §4.2, §8).
var (
	// ErrNoResponse marks a step that required a response (e.g. any
	// validate_* action) run before any request recorded one in history. A
	// request whose every attempt failed at the transport layer still records
	// a synthetic status=0 response, so it does not lead to this error.
	ErrNoResponse = errors.New("no response recorded")

	// ErrInvalidSchema marks a validate_schema failure, either because the
	// schema document itself is malformed or the body does not conform.
	ErrInvalidSchema = errors.New("schema validation failed")

	// ErrUnknownAuthType names an AuthType this subsystem does not
	// recognize. ParseSetAuthValue does not return it: a set_auth step with
	// an unrecognized type is treated as bearer.
	ErrUnknownAuthType = errors.New("unknown auth type")

	// ErrValidationDisabled marks a validate_schema step run against a
	// Config with Validation.Enabled false (spec.md §4.2).
	ErrValidationDisabled = errors.New("schema validation disabled")
)
