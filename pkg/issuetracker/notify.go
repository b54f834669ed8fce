package issuetracker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	goslack "github.com/slack-go/slack"
)

// NotifierConfig configures the optional Slack side-channel. Notification
// is entirely optional: a zero-value config (no Token/Channel) yields a
// nil-safe no-op Notifier, grounded on pkg/slack/service.go's "fail-open"
// Service pattern.
type NotifierConfig struct {
	Token   string
	Channel string
	// MinPriority gates which filed issues are announced; PriorityCritical
	// by default, set via NewNotifier's caller.
	MinPriority Priority
}

// Notifier posts a short Slack summary when a high-priority issue is filed,
// repurposing pkg/slack/client.go's PostMessage/FindMessageByFingerprint
// pair around GitHub issue events instead of session events. All methods
// are nil-safe and fail-open: errors are logged, never returned.
type Notifier struct {
	api     *goslack.Client
	channel string
	min     Priority
	logger  *slog.Logger
}

// NewNotifier builds a Notifier, or returns nil if Token/Channel is empty.
func NewNotifier(cfg NotifierConfig) *Notifier {
	if cfg.Token == "" || cfg.Channel == "" {
		return nil
	}
	min := cfg.MinPriority
	if min == "" {
		min = PriorityCritical
	}
	return &Notifier{
		api:     goslack.New(cfg.Token),
		channel: cfg.Channel,
		min:     min,
		logger:  slog.Default().With("component", "issuetracker-notifier"),
	}
}

var priorityRank = map[Priority]int{PriorityMedium: 0, PriorityHigh: 1, PriorityCritical: 2}

// NotifyIssueFiled announces a newly-filed issue if its priority meets the
// configured minimum, skipping silently (not an error) for lower priorities
// and for duplicates already announced under the same fingerprint.
func (n *Notifier) NotifyIssueFiled(ctx context.Context, ref IssueRef, priority Priority, fingerprint, scenarioID string) {
	if n == nil {
		return
	}
	if priorityRank[priority] < priorityRank[n.min] {
		return
	}

	if existing, err := n.findByFingerprint(ctx, fingerprint); err != nil {
		n.logger.Warn("failed to search Slack history for fingerprint", "fingerprint", fingerprint, "error", err)
	} else if existing != "" {
		return
	}

	text := fmt.Sprintf(":rotating_light: *%s issue filed* for `%s`\n<%s|View issue #%d>\n`fingerprint:%s`",
		priority, scenarioID, ref.URL, ref.Number, fingerprint)
	blocks := []goslack.Block{
		goslack.NewSectionBlock(goslack.NewTextBlockObject(goslack.MarkdownType, text, false, false), nil, nil),
	}

	postCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, _, err := n.api.PostMessageContext(postCtx, n.channel, goslack.MsgOptionBlocks(blocks...)); err != nil {
		n.logger.Error("failed to post Slack issue notification", "issue", ref.Number, "error", err)
	}
}

// findByFingerprint pages through up to 5*200 recent channel messages
// looking for a prior notification carrying the same fingerprint.
func (n *Notifier) findByFingerprint(ctx context.Context, fingerprint string) (string, error) {
	marker := "fingerprint:" + fingerprint
	params := &goslack.GetConversationHistoryParameters{
		ChannelID: n.channel,
		Oldest:    fmt.Sprintf("%d", time.Now().Add(-24*time.Hour).Unix()),
		Limit:     200,
	}
	const maxPages = 5
	for page := 0; page < maxPages; page++ {
		history, err := n.api.GetConversationHistoryContext(ctx, params)
		if err != nil {
			return "", fmt.Errorf("conversations.history: %w", err)
		}
		for _, msg := range history.Messages {
			if strings.Contains(msg.Text, marker) {
				return msg.Timestamp, nil
			}
		}
		if !history.HasMore || history.ResponseMetaData.NextCursor == "" {
			break
		}
		params.Cursor = history.ResponseMetaData.NextCursor
	}
	return "", nil
}
