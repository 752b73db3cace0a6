// Package lifecycle reconstructs how many issues were open at the edges of a
// window using only their creation and closure timestamps.
//
// Upstream APIs list records but cannot answer "what was open at time X", so
// callers must fetch records created some days before the window start.
// Without that buffer OpenAtStart undercounts.
package lifecycle

import (
	"github.com/waabox/gitpulse/internal/domain"
)

// Snapshot is the flow of records through a window.
type Snapshot struct {
	OpenAtStart int `json:"open_at_start" yaml:"open_at_start"`
	OpenAtEnd   int `json:"open_at_end" yaml:"open_at_end"`
	Opened      int `json:"opened" yaml:"opened"`
	Closed      int `json:"closed" yaml:"closed"`
	NetChange   int `json:"net_change" yaml:"net_change"`
}

// Reconstruct computes the snapshot of records over w.
func Reconstruct(records []domain.IssueRecord, w domain.TimeWindow) Snapshot {
	var s Snapshot
	for _, r := range records {
		closed := r.ClosedAt != nil

		if r.CreatedAt.Before(w.Start) && (!closed || !r.ClosedAt.Before(w.Start)) {
			s.OpenAtStart++
		}
		if !r.CreatedAt.After(w.End) && (!closed || r.ClosedAt.After(w.End)) {
			s.OpenAtEnd++
		}
		if w.Contains(r.CreatedAt) {
			s.Opened++
		}
		if closed && w.Contains(*r.ClosedAt) {
			s.Closed++
		}
	}
	s.NetChange = s.Opened - s.Closed
	return s
}

// Split separates issues from pull requests, preserving order.
func Split(records []domain.IssueRecord) (issues, pulls []domain.IssueRecord) {
	for _, r := range records {
		if r.IsPullRequest {
			pulls = append(pulls, r)
		} else {
			issues = append(issues, r)
		}
	}
	return issues, pulls
}
