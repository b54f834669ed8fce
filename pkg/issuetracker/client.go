package issuetracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-github/v74/github"
)

// retryTransient retries op against transient GitHub API errors (network
// blips, 5xx) with capped exponential backoff, bounded by ctx and a 10s
// overall elapsed cap. It never retries past what ctx allows.
func retryTransient(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 10 * time.Second
	return backoff.Retry(func() error {
		err := op()
		var ghErr *github.ErrorResponse
		if errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode < 500 {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx))
}

// TrackerClient is the subset of a GitHub-shaped issue tracker the reporter
// needs, kept as an interface so tests can substitute a fake rather than
// hitting the network — mirroring how pkg/slack wraps goslack.Client.
type TrackerClient interface {
	CreateIssue(ctx context.Context, owner, repo, title, body string, labels, assignees []string) (IssueRef, error)
	CreateComment(ctx context.Context, owner, repo string, number int, body string) error
	SearchIssues(ctx context.Context, query string) ([]SearchResult, error)
	RateLimit(ctx context.Context) (RateLimitStatus, error)
}

// SearchResult is one issue returned by a tracker search.
type SearchResult struct {
	Number int
	URL    string
	Body   string
}

// RateLimitStatus mirrors GET rate_limit's {rate:{limit,used,remaining,reset}}.
type RateLimitStatus struct {
	Limit     int
	Used      int
	Remaining int
	Reset     time.Time
}

// GitHubClient implements TrackerClient against go-github.
type GitHubClient struct {
	gh *github.Client
}

// NewGitHubClient wraps an authenticated go-github client.
func NewGitHubClient(gh *github.Client) *GitHubClient {
	return &GitHubClient{gh: gh}
}

func (c *GitHubClient) CreateIssue(ctx context.Context, owner, repo, title, body string, labels, assignees []string) (IssueRef, error) {
	var ref IssueRef
	err := retryTransient(ctx, func() error {
		issue, _, err := c.gh.Issues.Create(ctx, owner, repo, &github.IssueRequest{
			Title:     &title,
			Body:      &body,
			Labels:    &labels,
			Assignees: &assignees,
		})
		if err != nil {
			return err
		}
		ref = IssueRef{Number: issue.GetNumber(), URL: issue.GetHTMLURL()}
		return nil
	})
	if err != nil {
		return IssueRef{}, fmt.Errorf("create issue: %w", err)
	}
	return ref, nil
}

func (c *GitHubClient) CreateComment(ctx context.Context, owner, repo string, number int, body string) error {
	err := retryTransient(ctx, func() error {
		_, _, err := c.gh.Issues.CreateComment(ctx, owner, repo, number, &github.IssueComment{Body: &body})
		return err
	})
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

func (c *GitHubClient) SearchIssues(ctx context.Context, query string) ([]SearchResult, error) {
	var out []SearchResult
	err := retryTransient(ctx, func() error {
		result, _, err := c.gh.Search.Issues(ctx, query, &github.SearchOptions{})
		if err != nil {
			return err
		}
		out = make([]SearchResult, 0, len(result.Issues))
		for _, issue := range result.Issues {
			out = append(out, SearchResult{
				Number: issue.GetNumber(),
				URL:    issue.GetHTMLURL(),
				Body:   issue.GetBody(),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("search issues: %w", err)
	}
	return out, nil
}

func (c *GitHubClient) RateLimit(ctx context.Context) (RateLimitStatus, error) {
	limits, _, err := c.gh.RateLimits(ctx)
	if err != nil {
		return RateLimitStatus{}, fmt.Errorf("rate limit: %w", err)
	}
	core := limits.GetCore()
	return RateLimitStatus{
		Limit:     core.Limit,
		Used:      core.Limit - core.Remaining,
		Remaining: core.Remaining,
		Reset:     core.Reset.Time,
	}, nil
}

// SearchQuery builds the GET search/issues query spec.md §4.6 describes:
// repository, the quoted scenarioId, and a lookback-bounded date filter.
func SearchQuery(owner, repo, scenarioID string, lookbackDays int) string {
	since := time.Now().AddDate(0, 0, -lookbackDays).Format("2006-01-02")
	return fmt.Sprintf(`repo:%s/%s "%s" created:>=%s`, owner, repo, scenarioID, since)
}

// FindDuplicate scans search results for the literal fingerprint marker,
// returning the first match (spec.md §4.6).
func FindDuplicate(results []SearchResult, hash string) (SearchResult, bool) {
	marker := FingerprintMarker(hash)
	for _, r := range results {
		if strings.Contains(r.Body, marker) {
			return r, true
		}
	}
	return SearchResult{}, false
}
