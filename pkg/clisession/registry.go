package clisession

import (
	"sync"
	"time"
)

// DefaultGrace is the wait between SIGTERM and SIGKILL during teardown.
const DefaultGrace = 3 * time.Second

// Registry is the process lifecycle manager from spec.md §4.3: it tracks
// every live Session and tears them all down, in LIFO order, on Close.
// Grounded on pkg/session.Manager's mutex-guarded map pattern, generalized
// from an ordered map of chat sessions to an ordered slice of OS processes
// (teardown order matters here; chat sessions never needed it).
type Registry struct {
	mu       sync.Mutex
	grace    time.Duration
	sessions []*Session
}

// NewRegistry creates an empty Registry with the given SIGTERM→SIGKILL grace
// period.
func NewRegistry(grace time.Duration) *Registry {
	if grace <= 0 {
		grace = DefaultGrace
	}
	return &Registry{grace: grace}
}

// Track adds s to the registry. Sessions are torn down in the reverse of
// Track order.
func (r *Registry) Track(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, s)
}

// Untrack removes s from the registry without killing it, for callers that
// manage a session's lifetime themselves.
func (r *Registry) Untrack(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, tracked := range r.sessions {
		if tracked == s {
			r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
			return
		}
	}
}

// Close tears down every tracked session in LIFO order, per spec.md §4.3.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := make([]*Session, len(r.sessions))
	copy(sessions, r.sessions)
	r.sessions = nil
	grace := r.grace
	r.mu.Unlock()

	for i := len(sessions) - 1; i >= 0; i-- {
		_ = sessions[i].Kill(grace)
	}
}

// Len reports the number of currently tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
