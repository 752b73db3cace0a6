package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/waabox/gitpulse/internal/dashboard"
	"github.com/waabox/gitpulse/internal/domain"
	"github.com/waabox/gitpulse/internal/lifecycle"
	"github.com/waabox/gitpulse/internal/triage"
)

type column struct {
	label string
	width int
	value func(domain.IssueRecord) string
	style *lipgloss.Style
}

func (t *Text) table(sb *strings.Builder, title string, items []domain.IssueRecord, cols []column) {
	fmt.Fprintf(sb, "\n%s\n", t.underline.Render(title))
	if len(items) == 0 {
		fmt.Fprintf(sb, "  %s\n", t.dim.Render("No items found."))
		return
	}

	header := make([]string, 0, len(cols))
	for _, c := range cols {
		header = append(header, fmt.Sprintf("%-*s", c.width, c.label))
	}
	fmt.Fprintf(sb, "  %s\n", t.dim.Render(strings.TrimRight(strings.Join(header, " "), " ")))

	for i, it := range items {
		if i == maxRows {
			fmt.Fprintf(sb, "  %s\n", t.dim.Render(fmt.Sprintf("... and %d more", len(items)-maxRows)))
			break
		}
		row := make([]string, 0, len(cols))
		for _, c := range cols {
			v := c.value(it)
			if c.width > 0 {
				v = pad(v, c.width)
			}
			if c.style != nil {
				v = c.style.Render(v)
			}
			row = append(row, v)
		}
		fmt.Fprintf(sb, "  %s\n", strings.Join(row, " "))
	}
}

func (t *Text) issueColumns(now time.Time) []column {
	return []column{
		{label: "#", width: 7, value: func(i domain.IssueRecord) string { return fmt.Sprintf("#%d", i.Number) }, style: &t.cyan},
		{label: "Title", width: titleWidth, value: func(i domain.IssueRecord) string { return i.Title }},
		{label: "Author", width: 16, value: func(i domain.IssueRecord) string { return orDash(i.Author) }, style: &t.dim},
		{label: "Age", width: 5, value: func(i domain.IssueRecord) string { return Age(now, i.CreatedAt) }},
		{label: "Area", value: func(i domain.IssueRecord) string { return triage.ExtractArea(i.Labels) }, style: &t.yellow},
	}
}

func (t *Text) assignedColumns(now time.Time) []column {
	return []column{
		{label: "#", width: 7, value: func(i domain.IssueRecord) string { return fmt.Sprintf("#%d", i.Number) }, style: &t.cyan},
		{label: "Title", width: 40, value: func(i domain.IssueRecord) string { return i.Title }},
		{label: "Assignee", width: 16, value: func(i domain.IssueRecord) string { return strings.Join(i.Assignees, ",") }, style: &t.dim},
		{label: "Age", width: 5, value: func(i domain.IssueRecord) string { return Age(now, i.CreatedAt) }},
		{label: "Area", value: func(i domain.IssueRecord) string { return triage.ExtractArea(i.Labels) }, style: &t.yellow},
	}
}

func orDash(s string) string {
	if s == "" {
		return triage.NoArea
	}
	return s
}

// Issues renders the issue triage dashboard.
func (t *Text) Issues(r dashboard.IssueReport) error {
	now := r.GeneratedAt
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", t.bold.Render("GitHub Inspect Dashboard: "+r.Window.Label))
	if r.Label != "" {
		fmt.Fprintf(&sb, "%s %s\n", t.dim.Render("Label:"), r.Label)
	}

	t.table(&sb, "Needs Review: Unassigned (on-call owns these)", r.NeedsReviewUnassigned, t.issueColumns(now))
	t.table(&sb, "Needs Review: Assigned (owned by assignee)", r.NeedsReviewAssigned, t.assignedColumns(now))
	t.table(&sb, "Issue Accepted: Unassigned (needs an owner)", r.AcceptedUnassigned, t.issueColumns(now))
	t.table(&sb, "New/Unresponded Issues", r.Unresponded, []column{
		{label: "#", width: 7, value: func(i domain.IssueRecord) string { return fmt.Sprintf("#%d", i.Number) }, style: &t.cyan},
		{label: "Title", width: titleWidth, value: func(i domain.IssueRecord) string { return i.Title }},
		{label: "Author", width: 16, value: func(i domain.IssueRecord) string { return orDash(i.Author) }, style: &t.dim},
		{label: "Created", width: 10, value: func(i domain.IssueRecord) string { return i.CreatedAt.Format("2006-01-02") }},
		{label: "Comments", value: func(i domain.IssueRecord) string { return fmt.Sprint(i.Comments) }},
	})
	t.table(&sb, "Stale Issues", r.Stale, []column{
		{label: "#", width: 7, value: func(i domain.IssueRecord) string { return fmt.Sprintf("#%d", i.Number) }, style: &t.cyan},
		{label: "Title", width: titleWidth, value: func(i domain.IssueRecord) string { return i.Title }},
		{label: "Last Activity", width: 13, value: func(i domain.IssueRecord) string { return i.UpdatedAt.Format("2006-01-02") }},
		{label: "Days", width: 5, value: func(i domain.IssueRecord) string { return fmt.Sprint(int(now.Sub(i.UpdatedAt).Hours() / 24)) }, style: &t.red},
		{label: "Area", value: func(i domain.IssueRecord) string { return triage.ExtractArea(i.Labels) }, style: &t.yellow},
	})
	t.externalPRs(&sb, now, r.ExternalPRs)

	fmt.Fprintf(&sb, "\n%s\n", t.bold.Render("Summary"))
	fmt.Fprintf(&sb, "  %s needs review (unassigned), %s needs review (assigned), %s accepted (unassigned), %s unresponded, %s stale, %s external PRs\n",
		t.cyan.Render(fmt.Sprint(len(r.NeedsReviewUnassigned))),
		t.dim.Render(fmt.Sprint(len(r.NeedsReviewAssigned))),
		t.yellow.Render(fmt.Sprint(len(r.AcceptedUnassigned))),
		t.yellow.Render(fmt.Sprint(len(r.Unresponded))),
		t.red.Render(fmt.Sprint(len(r.Stale))),
		t.magenta.Render(fmt.Sprint(len(r.ExternalPRs))))
	t.flow(&sb, r.Flow)

	fmt.Fprintf(&sb, "\n%s\n", t.underline.Render("Suggested Next Steps"))
	sb.WriteString(t.Suggestions(r.Suggestions))
	t.warnings(&sb, r.Warnings)
	return t.flush(&sb)
}

func (t *Text) externalPRs(sb *strings.Builder, now time.Time, prs []domain.PullRequestWithReviews) {
	items := make([]domain.IssueRecord, 0, len(prs))
	reviews := make(map[int]string, len(prs))
	for _, p := range prs {
		items = append(items, p.PR.IssueRecord)
		reviews[p.PR.Number] = t.reviewSummary(p.Reviews)
	}
	t.table(sb, "External PRs Awaiting Review", items, []column{
		{label: "#", width: 7, value: func(i domain.IssueRecord) string { return fmt.Sprintf("#%d", i.Number) }, style: &t.cyan},
		{label: "Title", width: titleWidth, value: func(i domain.IssueRecord) string { return i.Title }},
		{label: "Author", width: 16, value: func(i domain.IssueRecord) string { return orDash(i.Author) }, style: &t.dim},
		{label: "Age", width: 5, value: func(i domain.IssueRecord) string { return Age(now, i.CreatedAt) }},
		{label: "Review Status", value: func(i domain.IssueRecord) string { return reviews[i.Number] }},
	})
}

func (t *Text) reviewSummary(reviews []domain.Review) string {
	if len(reviews) == 0 {
		return "no reviews"
	}
	approved, changes := 0, 0
	for _, r := range reviews {
		switch r.State {
		case domain.ReviewApproved:
			approved++
		case domain.ReviewChangesRequested:
			changes++
		}
	}
	switch {
	case changes > 0:
		return t.red.Render(fmt.Sprintf("changes requested (%d)", changes))
	case approved > 0:
		return t.green.Render(fmt.Sprintf("%d approved", approved))
	}
	return fmt.Sprintf("%d review(s)", len(reviews))
}

func (t *Text) flow(sb *strings.Builder, f dashboard.Flow) {
	fmt.Fprintf(sb, "\n%s\n", t.bold.Render("Flow"))
	fmt.Fprintf(sb, "  %-14s %s\n", "Issues", snapshotLine(f.Issues))
	fmt.Fprintf(sb, "  %-14s %s\n", "Pull requests", snapshotLine(f.PullRequests))
}

func snapshotLine(s lifecycle.Snapshot) string {
	return fmt.Sprintf("%d open at start, +%d opened, -%d closed, %d open at end (net %+d)",
		s.OpenAtStart, s.Opened, s.Closed, s.OpenAtEnd, s.NetChange)
}

// Suggestions renders ordered suggestions. Action items are numbered and
// reminders are indented under them.
func (t *Text) Suggestions(lines []triage.Line) string {
	var sb strings.Builder
	for _, l := range lines {
		if l.Number > 0 {
			fmt.Fprintf(&sb, "  %s %d. %s\n", t.green.Render(">>"), l.Number, l.Suggestion.Text)
			continue
		}
		fmt.Fprintf(&sb, "        %s\n", l.Suggestion.Text)
	}
	return sb.String()
}

// Item renders a single issue or pull request.
func (t *Text) Item(it dashboard.ItemInspection) error {
	d := it.Detail
	var sb strings.Builder
	labels := strings.Join(d.Labels, ", ")
	if labels == "" {
		labels = triage.NoArea
	}

	if d.IsPullRequest {
		fmt.Fprintf(&sb, "%s\n", t.bold.Render(fmt.Sprintf("=== PR #%d ===", d.Number)))
	} else {
		fmt.Fprintf(&sb, "%s\n", t.bold.Render(fmt.Sprintf("=== Issue #%d ===", d.Number)))
	}
	fmt.Fprintf(&sb, "URL:       %s\n", t.cyan.Render(d.HTMLURL))
	fmt.Fprintf(&sb, "Title:     %s\n", d.Title)
	fmt.Fprintf(&sb, "State:     %s\n", d.State)
	fmt.Fprintf(&sb, "Author:    %s\n", orDash(d.Author))
	fmt.Fprintf(&sb, "Labels:    %s\n", labels)
	if d.IsPullRequest {
		fmt.Fprintf(&sb, "Branch:    %s ← %s\n", d.BaseRef, d.HeadRef)
	}
	fmt.Fprintf(&sb, "Created:   %s\n", d.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Updated:   %s\n", d.UpdatedAt.Format(time.RFC3339))
	if d.IsPullRequest {
		mergeable := "unknown"
		if d.Mergeable != nil {
			mergeable = fmt.Sprint(*d.Mergeable)
		}
		fmt.Fprintf(&sb, "Mergeable: %s\n", mergeable)
		fmt.Fprintf(&sb, "\n%s\n  %s %s in %d files\n", t.bold.Render("--- Diff Stats ---"),
			t.green.Render(fmt.Sprintf("+%d", d.Additions)), t.red.Render(fmt.Sprintf("-%d", d.Deletions)), d.ChangedFiles)
	}

	fmt.Fprintf(&sb, "\n%s\n", t.bold.Render("--- Body ---"))
	if d.Body == "" {
		fmt.Fprintf(&sb, "%s\n", t.dim.Render("(no body)"))
	} else {
		fmt.Fprintf(&sb, "%s\n", dashboard.Truncate(d.Body, 500))
	}

	if len(it.ReproLinks) > 0 {
		fmt.Fprintf(&sb, "\n%s\n", t.bold.Render("--- Reproduction Links ---"))
		for _, u := range it.ReproLinks {
			fmt.Fprintf(&sb, "  %s\n", t.cyan.Render(u))
		}
	}

	if d.IsPullRequest {
		fmt.Fprintf(&sb, "\n%s\n", t.bold.Render("--- Reviews ---"))
		if len(it.Reviews) == 0 {
			fmt.Fprintf(&sb, "  %s\n", t.dim.Render("No reviews."))
		}
		for _, r := range it.Reviews {
			style := t.dim
			switch r.State {
			case domain.ReviewApproved:
				style = t.green
			case domain.ReviewChangesRequested:
				style = t.red
			}
			date := "-"
			if r.SubmittedAt != nil {
				date = r.SubmittedAt.Format("2006-01-02")
			}
			fmt.Fprintf(&sb, "  %s: %s (%s)\n", t.dim.Render(orDash(r.Author)), style.Render(orDash(r.State)), date)
		}
	}

	fmt.Fprintf(&sb, "\n%s\n", t.bold.Render("--- Comments ---"))
	if len(it.Comments) == 0 {
		fmt.Fprintf(&sb, "  %s\n", t.dim.Render("No comments."))
	}
	for _, c := range it.Comments {
		badge := t.dim.Render("[EXT]")
		if c.Team {
			badge = t.green.Render("[TEAM]")
		}
		fmt.Fprintf(&sb, "  %s %s (%s)\n    %s\n\n", badge, t.dim.Render(orDash(c.Author)), c.Date, c.Body)
	}

	if len(it.References) > 0 {
		fmt.Fprintf(&sb, "\n%s\n", t.bold.Render("--- Referenced Issues/PRs ---"))
		for _, ref := range it.References {
			fmt.Fprintf(&sb, "  %s\n", ref)
		}
	}
	t.warnings(&sb, it.Warnings)
	return t.flush(&sb)
}
