package stats

import (
	"time"

	"github.com/waabox/gitpulse/internal/domain"
)

// PatternLabel describes how failures are distributed across a window.
type PatternLabel string

const (
	PatternIncreasing PatternLabel = "increasing"
	PatternDecreasing PatternLabel = "decreasing"
	PatternEven       PatternLabel = "spread evenly"
)

// FailurePattern splits failures into the halves of a window.
type FailurePattern struct {
	Total  int          `json:"total" yaml:"total"`
	Early  int          `json:"early" yaml:"early"`
	Recent int          `json:"recent" yaml:"recent"`
	Label  PatternLabel `json:"label" yaml:"label"`
}

// SummarizeFailures buckets failure timestamps around the window midpoint.
// A failure strictly after the midpoint is recent. ok is false with fewer
// than two failures.
func SummarizeFailures(timestamps []time.Time, w domain.TimeWindow) (FailurePattern, bool) {
	if len(timestamps) < 2 {
		return FailurePattern{}, false
	}
	mid := w.Midpoint()
	p := FailurePattern{Total: len(timestamps)}
	for _, ts := range timestamps {
		if ts.After(mid) {
			p.Recent++
		}
	}
	p.Early = p.Total - p.Recent

	switch {
	case p.Recent > 2*p.Early:
		p.Label = PatternIncreasing
	case p.Early > 2*p.Recent:
		p.Label = PatternDecreasing
	default:
		p.Label = PatternEven
	}
	return p, true
}
