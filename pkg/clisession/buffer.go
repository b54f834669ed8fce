package clisession

import (
	"regexp"
	"sort"
	"strings"
	"sync"
)

// OutputBuffer is the append-only, timestamp-ordered record of everything a
// session has written to stdout/stderr (spec.md §4.3).
type OutputBuffer struct {
	mu    sync.Mutex
	lines []OutputLine
}

// NewOutputBuffer creates an empty OutputBuffer.
func NewOutputBuffer() *OutputBuffer {
	return &OutputBuffer{}
}

// Append records one line.
func (b *OutputBuffer) Append(line OutputLine) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
}

// Snapshot returns a shallow copy of every line recorded so far.
func (b *OutputBuffer) Snapshot() []OutputLine {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]OutputLine, len(b.lines))
	copy(out, b.lines)
	return out
}

// Capture renders the buffer into stdout-only, stderr-only, and a
// timestamp-sorted combined stream, per captureOutput() in spec.md §4.3.
func (b *OutputBuffer) Capture() CapturedOutput {
	lines := b.Snapshot()
	sorted := make([]OutputLine, len(lines))
	copy(sorted, lines)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var stdout, stderr, combined strings.Builder
	for _, l := range sorted {
		combined.WriteString(l.Data)
		switch l.Type {
		case StreamStdout:
			stdout.WriteString(l.Data)
		case StreamStderr:
			stderr.WriteString(l.Data)
		}
	}
	return CapturedOutput{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Combined: combined.String(),
	}
}

// MatchPattern reports whether pattern (a case-insensitive regex) matches
// anywhere in the buffer's current combined text, and returns that text.
func (b *OutputBuffer) MatchPattern(pattern string) (matched bool, text string, err error) {
	re, err := regexp.Compile("(?is)" + pattern)
	if err != nil {
		return false, "", err
	}
	captured := b.Capture()
	return re.MatchString(captured.Combined), captured.Combined, nil
}
