package clisession

import "errors"

// Sentinel errors for the CLI/TUI Session Subsystem (spec.md §4.3).
var (
	// ErrSpawnFailed marks a process that could not be started at all.
	ErrSpawnFailed = errors.New("spawn failed")

	// ErrTimeout marks a waitForOutput call whose pattern never matched
	// within timeoutMs.
	ErrTimeout = errors.New("timeout waiting for output")

	// ErrNotRunning marks an operation attempted against an exited session.
	ErrNotRunning = errors.New("session not running")

	// ErrInvalidExpectation marks a validateOutput call whose expected
	// value could not be interpreted.
	ErrInvalidExpectation = errors.New("invalid output expectation")
)
