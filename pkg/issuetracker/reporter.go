package issuetracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Reporter drives the Issue Reporter pipeline: dedupe, render, classify,
// rate-limit, submit. Rate-limited submissions are serialized per instance
// (spec.md §5), enforced by mu.
type Reporter struct {
	cfg      Config
	client   TrackerClient
	cache    *DedupCache
	notifier *Notifier

	mu sync.Mutex
}

// NewReporter builds a Reporter against client, using cfg.
func NewReporter(cfg Config, client TrackerClient) *Reporter {
	return &Reporter{cfg: cfg, client: client, cache: NewDedupCache(0)}
}

// WithNotifier attaches an optional Slack side-channel, announced on newly
// filed (not deduplicated) issues meeting the notifier's priority floor.
func (r *Reporter) WithNotifier(n *Notifier) *Reporter {
	r.notifier = n
	return r
}

// Submit dedupes, renders, and submits one failure. A failure this method
// returns is always non-fatal to the caller per spec.md §4.6: "any
// submission failure is caught and logged at warn level; the triage
// pipeline continues" — callers should log and continue, never abort.
func (r *Reporter) Submit(ctx context.Context, f FailureInput) (IssueRef, error) {
	fp := ComputeFingerprint(f)

	if r.cfg.DeduplicationEnabled {
		if ref, ok := r.cache.Lookup(fp.Hash); ok {
			slog.Info("issue already reported for fingerprint, skipping", "fingerprint", fp.Hash, "issue", ref.Number)
			return ref, nil
		}
		if dup, found := r.findRemoteDuplicate(ctx, f.ScenarioID, fp.Hash); found {
			ref := IssueRef{Number: dup.Number, URL: dup.URL}
			r.cache.Remember(fp.Hash, ref)
			return ref, nil
		}
	}

	priority := ClassifyPriority(f.Category, f.Message)
	title, body := r.render(f, fp, priority)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.waitForRateLimit(ctx); err != nil {
		return IssueRef{}, fmt.Errorf("waiting for rate limit: %w", err)
	}

	labels := append(append([]string{}, r.cfg.Labels...), PriorityLabel(priority))
	ref, err := r.client.CreateIssue(ctx, r.cfg.Owner, r.cfg.Repo, title, body, labels, r.cfg.Assignees)
	if err != nil {
		return IssueRef{}, fmt.Errorf("submit issue: %w", err)
	}
	r.cache.Remember(fp.Hash, ref)
	r.notifier.NotifyIssueFiled(ctx, ref, priority, fp.Hash, f.ScenarioID)
	return ref, nil
}

func (r *Reporter) findRemoteDuplicate(ctx context.Context, scenarioID, hash string) (SearchResult, bool) {
	query := SearchQuery(r.cfg.Owner, r.cfg.Repo, scenarioID, r.cfg.DeduplicationLookbackDays)
	results, err := r.client.SearchIssues(ctx, query)
	if err != nil {
		slog.Warn("issue search failed, proceeding as no duplicate found", "scenario", scenarioID, "error", err)
		return SearchResult{}, false
	}
	return FindDuplicate(results, hash)
}

func (r *Reporter) render(f FailureInput, fp Fingerprint, priority Priority) (title, body string) {
	data := map[string]any{
		"scenarioId": f.ScenarioID,
		"message":    f.Message,
		"category":   f.Category,
		"stackTrace": f.StackTrace,
		"priority":   string(priority),
		"timestamp":  f.Timestamp.Format(time.RFC3339),
	}
	for k, v := range f.Context {
		data[k] = v
	}

	titleTmpl := r.cfg.TitleTemplate
	if titleTmpl == "" {
		titleTmpl = "[{{priority}}] {{scenarioId}}: {{message}}"
	}
	bodyTmpl := r.cfg.BodyTemplate
	if bodyTmpl == "" {
		bodyTmpl = "**Scenario:** {{scenarioId}}\n**Message:** {{message}}\n**Category:** {{category}}\n\n{{stackTrace}}"
	}

	title = Render(titleTmpl, data)
	body = Render(bodyTmpl, data)
	body = TruncateBody(body, r.cfg.MaxBodyLength)
	body += "\n\n" + FingerprintMarker(fp.Hash)
	return title, body
}

// waitForRateLimit sleeps until the remote rate limit resets (plus 1s) if
// remaining capacity is at or below cfg.RateLimitBuffer, then re-checks
// (spec.md §4.6, §8: "remaining > rateLimitBuffer performs no sleep").
func (r *Reporter) waitForRateLimit(ctx context.Context) error {
	for {
		status, err := r.client.RateLimit(ctx)
		if err != nil {
			slog.Warn("rate limit check failed, proceeding optimistically", "error", err)
			return nil
		}
		if status.Remaining > r.cfg.RateLimitBuffer {
			return nil
		}
		wait := time.Until(status.Reset) + time.Second
		if wait <= 0 {
			return nil
		}
		slog.Info("rate limit near exhaustion, waiting", "remaining", status.Remaining, "wait", wait)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// AttachScreenshot posts a comment referencing localPath — screenshot bytes
// are never transmitted to the tracker (spec.md §4.6's deliberate security
// contract). Returns localPath unchanged on success.
func (r *Reporter) AttachScreenshot(ctx context.Context, issueNumber int, localPath string) (string, error) {
	filename := localPath
	if idx := lastSlash(localPath); idx >= 0 {
		filename = localPath[idx+1:]
	}
	body := fmt.Sprintf("![%s](%s)\n\n_captured %s_", filename, localPath, time.Now().Format(time.RFC3339))

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.waitForRateLimit(ctx); err != nil {
		return "", err
	}
	if err := r.client.CreateComment(ctx, r.cfg.Owner, r.cfg.Repo, issueNumber, body); err != nil {
		return "", fmt.Errorf("attach screenshot comment: %w", err)
	}
	return localPath, nil
}

func lastSlash(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return i
		}
	}
	return -1
}
