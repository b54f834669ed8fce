package triage

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strconv"

	"github.com/agentictest/orchestrator/pkg/scenario"
)

var (
	numberPattern = regexp.MustCompile(`\d+`)
	hexPattern    = regexp.MustCompile(`\b0x[0-9a-fA-F]+\b|\b[0-9a-fA-F]{8,}\b`)
)

// normalizeMessage collapses volatile tokens so structurally identical
// failures group together (spec.md §4.5: "normalise numbers to NUMBER and
// hex IDs to HEX").
func normalizeMessage(msg string) string {
	msg = hexPattern.ReplaceAllString(msg, "HEX")
	msg = numberPattern.ReplaceAllString(msg, "NUMBER")
	return msg
}

func messageHash(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])[:12]
}

// ExtractPatterns implements spec.md §4.5's pattern extraction: message,
// category, and 15-minute time-bucket clustering, each requiring a minimum
// group size before surfacing.
func ExtractPatterns(failures []scenario.TestFailure) []Pattern {
	var patterns []Pattern
	patterns = append(patterns, messagePatterns(failures)...)
	patterns = append(patterns, categoryPatterns(failures)...)
	patterns = append(patterns, timePatterns(failures)...)
	return patterns
}

func messagePatterns(failures []scenario.TestFailure) []Pattern {
	groups := map[string][]string{}
	for _, f := range failures {
		norm := normalizeMessage(f.Message)
		groups[norm] = append(groups[norm], f.ScenarioID)
	}
	return buildPatterns(groups, "message", "msg-", messageHash)
}

func categoryPatterns(failures []scenario.TestFailure) []Pattern {
	groups := map[string][]string{}
	for _, f := range failures {
		if f.Category == "" {
			continue
		}
		groups[f.Category] = append(groups[f.Category], f.ScenarioID)
	}
	return buildPatterns(groups, "category", "cat-", func(key string) string { return key })
}

func timePatterns(failures []scenario.TestFailure) []Pattern {
	const bucketSize = 15 * 60 // seconds
	groups := map[int64][]string{}
	for _, f := range failures {
		bucket := f.Timestamp.Unix() / bucketSize
		groups[bucket] = append(groups[bucket], f.ScenarioID)
	}

	var buckets []int64
	for b := range groups {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i] < buckets[j] })

	var patterns []Pattern
	for _, b := range buckets {
		members := groups[b]
		if len(members) < 3 {
			continue
		}
		patterns = append(patterns, Pattern{
			ID:      "time-" + messageHash(fmtBucket(b)),
			Kind:    "time",
			Members: members,
			Count:   len(members),
		})
	}
	return patterns
}

func fmtBucket(b int64) string {
	return "bucket-" + strconv.FormatInt(b, 10)
}

func buildPatterns(groups map[string][]string, kind, prefix string, idFor func(string) string) []Pattern {
	var keys []string
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var patterns []Pattern
	for _, k := range keys {
		members := groups[k]
		if len(members) < 2 {
			continue
		}
		patterns = append(patterns, Pattern{
			ID:      prefix + idFor(k),
			Kind:    kind,
			Members: members,
			Count:   len(members),
		})
	}
	return patterns
}
