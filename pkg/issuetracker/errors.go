package issuetracker

import "errors"

// ErrNotInitialized is returned when a step action runs before Initialize
// has built the reporter.
var ErrNotInitialized = errors.New("issuetracker: agent not initialized")
