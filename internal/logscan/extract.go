// Package logscan pulls the interesting parts out of a failed job's log.
package logscan

import (
	"sort"
	"strings"
)

const (
	DefaultBefore   = 5
	DefaultAfter    = 10
	DefaultMaxLines = 80

	truncatedMarker = "... (truncated)"
	separator       = "..."
)

// Snippet is a contiguous block of log lines.
type Snippet struct {
	// StartLine is the zero-based index of the first line in the log. It is
	// -1 for a truncated snippet, which spans several blocks.
	StartLine int      `json:"start_line" yaml:"start_line"`
	Lines     []string `json:"lines" yaml:"lines"`
	Truncated bool     `json:"truncated" yaml:"truncated"`
}

// Text renders the snippet, with the truncation marker when set.
func (s Snippet) Text() string {
	text := strings.Join(s.Lines, "\n")
	if s.Truncated {
		text += "\n" + truncatedMarker
	}
	return text
}

// Extractor finds error regions in logs.
type Extractor struct {
	patterns []Pattern
	before   int
	after    int
	maxLines int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithPatterns appends patterns after the defaults.
func WithPatterns(patterns ...Pattern) Option {
	return func(e *Extractor) {
		e.patterns = append(e.patterns, patterns...)
	}
}

// WithMaxLines sets the output line budget. Non-positive values are ignored.
func WithMaxLines(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxLines = n
		}
	}
}

// New returns an Extractor with the default patterns and context sizes.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		patterns: DefaultPatterns(),
		before:   DefaultBefore,
		after:    DefaultAfter,
		maxLines: DefaultMaxLines,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StripTimestamps removes the leading ISO-8601 timestamp and its trailing
// space from every line.
func StripTimestamps(raw string) string {
	return timestampPrefix.ReplaceAllString(raw, "")
}

// Extract returns the error regions of raw. Every matching line contributes
// the lines around it; overlapping or touching regions become one snippet.
// Without any match the tail of the log is returned instead. An empty log
// yields no snippets.
func (e *Extractor) Extract(raw string) []Snippet {
	lines := strings.Split(StripTimestamps(raw), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}

	marked := make(map[int]bool)
	for i, line := range lines {
		if !e.matches(line) {
			continue
		}
		from := max(0, i-e.before)
		to := min(len(lines)-1, i+e.after)
		for j := from; j <= to; j++ {
			marked[j] = true
		}
	}

	var snippets []Snippet
	if len(marked) > 0 {
		indices := make([]int, 0, len(marked))
		for idx := range marked {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		for _, run := range groupRuns(indices) {
			s := Snippet{StartLine: run[0]}
			for _, idx := range run {
				s.Lines = append(s.Lines, lines[idx])
			}
			snippets = append(snippets, s)
		}
	} else {
		start := max(0, len(lines)-e.maxLines)
		tail := lines[start:]
		if strings.TrimSpace(strings.Join(tail, "\n")) != "" {
			snippets = append(snippets, Snippet{StartLine: start, Lines: tail})
		}
	}

	return e.truncate(snippets)
}

func (e *Extractor) matches(line string) bool {
	for _, p := range e.patterns {
		if p.Expr.MatchString(line) {
			return true
		}
	}
	return false
}

// truncate collapses the snippets into one when, joined with separator
// lines, they exceed the line budget.
func (e *Extractor) truncate(snippets []Snippet) []Snippet {
	var joined []string
	for i, s := range snippets {
		if i > 0 {
			joined = append(joined, separator)
		}
		joined = append(joined, s.Lines...)
	}
	if len(joined) <= e.maxLines {
		return snippets
	}
	return []Snippet{{StartLine: -1, Lines: joined[:e.maxLines], Truncated: true}}
}

// groupRuns splits sorted indices into runs of strictly consecutive values.
func groupRuns(indices []int) [][]int {
	var runs [][]int
	var current []int
	for _, idx := range indices {
		if len(current) > 0 && idx != current[len(current)-1]+1 {
			runs = append(runs, current)
			current = nil
		}
		current = append(current, idx)
	}
	if len(current) > 0 {
		runs = append(runs, current)
	}
	return runs
}
