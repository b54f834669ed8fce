package issuetracker

import (
	"sync"
	"time"
)

// DedupCache remembers fingerprint → issue mappings for this reporter
// instance only (spec.md §5: "fingerprint cache: per IssueReporter; not
// shared"). Grounded on the lazy-expiry TTL cache in pkg/runbook/cache.go,
// reshaped around issue references instead of fetched runbook text and with
// no TTL by default — a fingerprint's duplicate issue does not "expire".
type DedupCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	known   map[string]dedupEntry
}

type dedupEntry struct {
	ref       IssueRef
	recordedAt time.Time
}

// NewDedupCache creates a cache. ttl <= 0 means entries never expire.
func NewDedupCache(ttl time.Duration) *DedupCache {
	return &DedupCache{ttl: ttl, known: make(map[string]dedupEntry)}
}

// Lookup returns the cached issue for hash, if any and not expired.
func (c *DedupCache) Lookup(hash string) (IssueRef, bool) {
	c.mu.RLock()
	entry, ok := c.known[hash]
	c.mu.RUnlock()
	if !ok {
		return IssueRef{}, false
	}
	if c.ttl > 0 && time.Since(entry.recordedAt) > c.ttl {
		c.mu.Lock()
		delete(c.known, hash)
		c.mu.Unlock()
		return IssueRef{}, false
	}
	return entry.ref, true
}

// Remember records hash → ref.
func (c *DedupCache) Remember(hash string, ref IssueRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.known[hash] = dedupEntry{ref: ref, recordedAt: time.Now()}
}
