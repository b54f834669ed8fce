package issuetracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTracker struct {
	createIssueCalls int
	searchResults    []SearchResult
	searchErr        error
	rateLimit        RateLimitStatus
	rateLimitCalls   int
	createdRef       IssueRef
	comments         []string
}

func (f *fakeTracker) CreateIssue(ctx context.Context, owner, repo, title, body string, labels, assignees []string) (IssueRef, error) {
	f.createIssueCalls++
	return f.createdRef, nil
}

func (f *fakeTracker) CreateComment(ctx context.Context, owner, repo string, number int, body string) error {
	f.comments = append(f.comments, body)
	return nil
}

func (f *fakeTracker) SearchIssues(ctx context.Context, query string) ([]SearchResult, error) {
	return f.searchResults, f.searchErr
}

func (f *fakeTracker) RateLimit(ctx context.Context) (RateLimitStatus, error) {
	f.rateLimitCalls++
	return f.rateLimit, nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Owner = "acme"
	cfg.Repo = "agentictest"
	return cfg
}

// spec.md §8 concrete scenario 3: fingerprinting is pure — identical inputs
// always produce an identical fingerprint.
func TestComputeFingerprint_IsDeterministic(t *testing.T) {
	f := FailureInput{ScenarioID: "login-flow", Message: "timeout waiting for #submit", Category: "timeout"}
	fp1 := ComputeFingerprint(f)
	fp2 := ComputeFingerprint(f)
	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1.Hash, 16)
}

func TestComputeFingerprint_DiffersOnMessage(t *testing.T) {
	a := ComputeFingerprint(FailureInput{ScenarioID: "s1", Message: "A", Category: "c"})
	b := ComputeFingerprint(FailureInput{ScenarioID: "s1", Message: "B", Category: "c"})
	assert.NotEqual(t, a.Hash, b.Hash)
}

func TestComputeFingerprint_MissingCategoryDefaultsUnknown(t *testing.T) {
	withEmpty := ComputeFingerprint(FailureInput{ScenarioID: "s1", Message: "m"})
	withUnknown := ComputeFingerprint(FailureInput{ScenarioID: "s1", Message: "m", Category: "unknown"})
	assert.Equal(t, withUnknown.Hash, withEmpty.Hash)
}

// spec.md §8 concrete scenario 6: a failure whose fingerprint marker already
// appears in an open issue's body is treated as a duplicate, not re-filed.
func TestSubmit_DedupesAgainstRemoteMatch(t *testing.T) {
	f := FailureInput{ScenarioID: "login-flow", Message: "timeout", Category: "timeout"}
	fp := ComputeFingerprint(f)

	tracker := &fakeTracker{
		searchResults: []SearchResult{{Number: 42, URL: "https://example/42", Body: "stack trace\n\n" + FingerprintMarker(fp.Hash)}},
		rateLimit:     RateLimitStatus{Remaining: 100},
	}
	reporter := NewReporter(testConfig(), tracker)

	ref, err := reporter.Submit(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 42, ref.Number)
	assert.Equal(t, 0, tracker.createIssueCalls, "duplicate must not file a new issue")
}

func TestSubmit_CachesLocalDuplicateWithoutResearching(t *testing.T) {
	f := FailureInput{ScenarioID: "login-flow", Message: "timeout", Category: "timeout"}
	tracker := &fakeTracker{createdRef: IssueRef{Number: 7, URL: "https://example/7"}, rateLimit: RateLimitStatus{Remaining: 100}}
	reporter := NewReporter(testConfig(), tracker)

	ref1, err := reporter.Submit(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 7, ref1.Number)
	assert.Equal(t, 1, tracker.createIssueCalls)

	ref2, err := reporter.Submit(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, ref1, ref2)
	assert.Equal(t, 1, tracker.createIssueCalls, "second submit of the same failure must not file again")
}

func TestSubmit_FilesNewIssueWhenNoDuplicateFound(t *testing.T) {
	f := FailureInput{ScenarioID: "checkout-flow", Message: "500 from payment service", Category: "error"}
	tracker := &fakeTracker{createdRef: IssueRef{Number: 99, URL: "https://example/99"}, rateLimit: RateLimitStatus{Remaining: 100}}
	reporter := NewReporter(testConfig(), tracker)

	ref, err := reporter.Submit(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 99, ref.Number)
	assert.Equal(t, 1, tracker.createIssueCalls)
}

// spec.md §8: "Rate-limit wait with remaining > rateLimitBuffer performs no sleep."
func TestWaitForRateLimit_NoSleepWhenAboveBuffer(t *testing.T) {
	tracker := &fakeTracker{rateLimit: RateLimitStatus{Remaining: 50, Reset: time.Now().Add(time.Hour)}}
	cfg := testConfig()
	cfg.RateLimitBuffer = 10
	reporter := NewReporter(cfg, tracker)

	start := time.Now()
	err := reporter.waitForRateLimit(context.Background())
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, 1, tracker.rateLimitCalls)
}

func TestWaitForRateLimit_SleepsUntilResetWhenAtOrBelowBuffer(t *testing.T) {
	reset := time.Now().Add(-700 * time.Millisecond)
	calls := 0
	tracker := &fakeTracker{}
	cfg := testConfig()
	cfg.RateLimitBuffer = 5

	reporter := NewReporter(cfg, tracker)
	reporter.client = rateLimitSequence{
		fakeTracker: tracker,
		statuses: []RateLimitStatus{
			{Remaining: 5, Reset: reset},
			{Remaining: 50, Reset: reset},
		},
		calls: &calls,
	}

	start := time.Now()
	err := reporter.waitForRateLimit(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, calls, 2)
	assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond)
}

// rateLimitSequence returns a scripted sequence of RateLimitStatus values,
// one per call, to exercise the wait-then-recheck loop deterministically.
type rateLimitSequence struct {
	*fakeTracker
	statuses []RateLimitStatus
	calls    *int
}

func (r rateLimitSequence) RateLimit(ctx context.Context) (RateLimitStatus, error) {
	i := *r.calls
	if i >= len(r.statuses) {
		i = len(r.statuses) - 1
	}
	*r.calls++
	return r.statuses[i], nil
}

func TestClassifyPriority(t *testing.T) {
	assert.Equal(t, PriorityCritical, ClassifyPriority("critical", "anything"))
	assert.Equal(t, PriorityCritical, ClassifyPriority("timeout", "a CRITICAL failure occurred"))
	assert.Equal(t, PriorityHigh, ClassifyPriority("timeout", "an error occurred"))
	assert.Equal(t, PriorityMedium, ClassifyPriority("timeout", "mismatched value"))
}

func TestRender_SubstitutesScalarsAndCollapsesFalsySections(t *testing.T) {
	tmpl := "{{scenarioId}}: {{message}}{{#stackTrace}}\n\n{{stackTrace}}{{/stackTrace}}"
	withStack := Render(tmpl, map[string]any{"scenarioId": "s1", "message": "boom", "stackTrace": "at foo.go:1"})
	assert.Contains(t, withStack, "at foo.go:1")

	withoutStack := Render(tmpl, map[string]any{"scenarioId": "s1", "message": "boom", "stackTrace": ""})
	assert.NotContains(t, withoutStack, "stackTrace")
	assert.Equal(t, "s1: boom", withoutStack)
}

func TestTruncateBody_AddsMarkerOnlyWhenCut(t *testing.T) {
	short := TruncateBody("hello", 100)
	assert.Equal(t, "hello", short)

	long := TruncateBody("0123456789", 5)
	assert.Contains(t, long, "...[truncated]")
	assert.LessOrEqual(t, len(long), 5+len("\n\n...[truncated]"))
}

func TestDedupCache_LookupAndRemember(t *testing.T) {
	cache := NewDedupCache(0)
	_, ok := cache.Lookup("abc")
	assert.False(t, ok)

	cache.Remember("abc", IssueRef{Number: 1})
	ref, ok := cache.Lookup("abc")
	require.True(t, ok)
	assert.Equal(t, 1, ref.Number)
}

func TestDedupCache_ExpiresAfterTTL(t *testing.T) {
	cache := NewDedupCache(10 * time.Millisecond)
	cache.Remember("abc", IssueRef{Number: 1})
	time.Sleep(20 * time.Millisecond)
	_, ok := cache.Lookup("abc")
	assert.False(t, ok)
}

func TestFindDuplicate_MatchesOnMarkerSubstring(t *testing.T) {
	results := []SearchResult{
		{Number: 1, Body: "unrelated"},
		{Number: 2, Body: "details\n" + FingerprintMarker("deadbeefcafef00d")},
	}
	match, found := FindDuplicate(results, "deadbeefcafef00d")
	require.True(t, found)
	assert.Equal(t, 2, match.Number)

	_, found = FindDuplicate(results, "0000000000000000")
	assert.False(t, found)
}
