// Package triage turns an aggregated issue dashboard into an ordered list
// of next steps.
package triage

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/waabox/gitpulse/internal/domain"
)

const (
	hotspotLimit   = 3
	hotspotMinimum = 3
	allClear       = 99
)

// Data is the already aggregated dashboard the suggestions are derived
// from.
type Data struct {
	Now                   time.Time
	StaleDays             int
	NeedsReviewUnassigned []domain.IssueRecord
	NeedsReviewAssigned   []domain.IssueRecord
	AcceptedUnassigned    []domain.IssueRecord
	Unresponded           []domain.IssueRecord
	Stale                 []domain.IssueRecord
	ExternalPRs           []domain.PullRequestWithReviews
}

// Suggestion is one next step. Action items get a number when rendered;
// the others are reminders attached to the action before them.
type Suggestion struct {
	Priority int    `json:"priority" yaml:"priority"`
	Action   bool   `json:"action" yaml:"action"`
	Text     string `json:"text" yaml:"text"`
	// Number is the issue or pull request the suggestion points at, if any.
	Number int `json:"number,omitempty" yaml:"number,omitempty"`
}

// Line is a rendered suggestion. Number is 0 for continuations.
type Line struct {
	Number     int        `json:"number" yaml:"number"`
	Suggestion Suggestion `json:"suggestion" yaml:"suggestion"`
}

// InspectHint is the command that shows a single item.
func InspectHint(number int) string {
	return fmt.Sprintf("gitpulse github-inspect --inspect %d", number)
}

func ageDays(now, t time.Time) int {
	return int(now.Sub(t).Hours() / 24)
}

func newest(items []domain.IssueRecord) domain.IssueRecord {
	n := items[0]
	for _, it := range items[1:] {
		if it.CreatedAt.After(n.CreatedAt) {
			n = it
		}
	}
	return n
}

func oldest(items []domain.IssueRecord) domain.IssueRecord {
	o := items[0]
	for _, it := range items[1:] {
		if it.CreatedAt.Before(o.CreatedAt) {
			o = it
		}
	}
	return o
}

// Suggest derives suggestions from d in insertion order.
func Suggest(d Data) []Suggestion {
	var out []Suggestion

	if len(d.NeedsReviewUnassigned) > 0 {
		n := newest(d.NeedsReviewUnassigned)
		out = append(out,
			Suggestion{
				Priority: 1,
				Action:   true,
				Number:   n.Number,
				Text: fmt.Sprintf(`Triage %d "needs review" unassigned issue(s), newest first. Start with #%d: %s`,
					len(d.NeedsReviewUnassigned), n.Number, InspectHint(n.Number)),
			},
			Suggestion{
				Priority: 1,
				Text: "Timebox ~10 min per issue: verify validity and identify the module or area, " +
					`then move it to "issue accepted" with an owner, or assign the module lead with a summary.`,
			},
		)
	}

	if len(d.Unresponded) > 0 {
		o := oldest(d.Unresponded)
		out = append(out, Suggestion{
			Priority: 2,
			Action:   true,
			Number:   o.Number,
			Text: fmt.Sprintf("Respond to %d new issue(s) with no team response. Oldest: #%d (%dd): %s",
				len(d.Unresponded), o.Number, ageDays(d.Now, o.CreatedAt), InspectHint(o.Number)),
		})
	}

	if len(d.AcceptedUnassigned) > 0 {
		o := oldest(d.AcceptedUnassigned)
		out = append(out, Suggestion{
			Priority: 3,
			Action:   true,
			Number:   o.Number,
			Text: fmt.Sprintf("%d accepted issue(s) have no assignee. Make sure each has an owner. Start with #%d: %s",
				len(d.AcceptedUnassigned), o.Number, InspectHint(o.Number)),
		})
	}

	var unreviewed []domain.IssueRecord
	changesRequested := 0
	for _, p := range d.ExternalPRs {
		if len(p.Reviews) == 0 {
			unreviewed = append(unreviewed, p.PR.IssueRecord)
		}
		if p.HasChangesRequested() {
			changesRequested++
		}
	}
	if len(unreviewed) > 0 {
		o := oldest(unreviewed)
		out = append(out, Suggestion{
			Priority: 4,
			Action:   true,
			Number:   o.Number,
			Text: fmt.Sprintf("Review %d community PR(s) with no reviews. Start with #%d (%dd): %s",
				len(unreviewed), o.Number, ageDays(d.Now, o.CreatedAt), InspectHint(o.Number)),
		})
	}
	if changesRequested > 0 {
		out = append(out, Suggestion{
			Priority: 4,
			Text:     fmt.Sprintf(`%d external PR(s) have "changes requested". Check whether the authors addressed the feedback.`, changesRequested),
		})
	}

	if len(d.NeedsReviewAssigned) > 0 {
		out = append(out, Suggestion{
			Priority: 5,
			Text:     fmt.Sprintf(`%d "needs review" issue(s) are assigned. No action needed unless explicitly requested.`, len(d.NeedsReviewAssigned)),
		})
	}

	if len(d.Stale) > 0 {
		veryStale := 0
		for _, it := range d.Stale {
			if ageDays(d.Now, it.UpdatedAt) > 2*d.StaleDays {
				veryStale++
			}
		}
		if veryStale > 0 {
			out = append(out, Suggestion{
				Priority: 6,
				Text:     fmt.Sprintf("%d issue(s) stale for %d+ days. Consider closing them or asking for updates.", veryStale, 2*d.StaleDays),
			})
		}
		if rest := len(d.Stale) - veryStale; rest > 0 {
			out = append(out, Suggestion{
				Priority: 6,
				Text:     fmt.Sprintf("%d more issue(s) approaching the stale threshold. Triage when time permits.", rest),
			})
		}
	}

	var flagged []domain.IssueRecord
	flagged = append(flagged, d.NeedsReviewUnassigned...)
	flagged = append(flagged, d.AcceptedUnassigned...)
	flagged = append(flagged, d.Unresponded...)
	flagged = append(flagged, d.Stale...)
	if hot := Hotspots(flagged, hotspotLimit); len(hot) > 0 && hot[0].Count >= hotspotMinimum {
		parts := make([]string, len(hot))
		for i, h := range hot {
			parts[i] = fmt.Sprintf("%s (%d)", h.Area, h.Count)
		}
		out = append(out, Suggestion{
			Priority: 7,
			Text: fmt.Sprintf(`Area hotspots: %s. Consider focused triage with gitpulse github-inspect --label "Module: <name>"`,
				strings.Join(parts, ", ")),
		})
	}

	if len(out) == 0 {
		out = append(out, Suggestion{
			Priority: allClear,
			Text:     "No urgent items. Good time to review open issues for quick wins or obvious follow-ups.",
		})
	}
	return out
}

// Order sorts suggestions by priority and numbers the action items.
// Reminders stay attached to the action item that preceded them in s, so
// grouping happens before sorting.
func Order(s []Suggestion) []Line {
	var groups [][]Suggestion
	for _, sg := range s {
		if !sg.Action && len(groups) > 0 && groups[len(groups)-1][0].Action {
			last := len(groups) - 1
			groups[last] = append(groups[last], sg)
			continue
		}
		groups = append(groups, []Suggestion{sg})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i][0].Priority < groups[j][0].Priority
	})

	lines := make([]Line, 0, len(s))
	n := 0
	for _, g := range groups {
		for _, sg := range g {
			line := Line{Suggestion: sg}
			if sg.Action {
				n++
				line.Number = n
			}
			lines = append(lines, line)
		}
	}
	return lines
}
