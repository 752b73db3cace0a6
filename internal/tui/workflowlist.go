package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/waabox/gitpulse/internal/dashboard"
	"github.com/waabox/gitpulse/internal/domain"
	"github.com/waabox/gitpulse/internal/stats"
)

// WorkflowRow is one workflow of a report section together with its latest run.
type WorkflowRow struct {
	Source string
	Stats  stats.GroupStats
	Latest domain.RunRecord
}

// RowsFromReport flattens every section of a report into list rows.
func RowsFromReport(r dashboard.CIReport) []WorkflowRow {
	var rows []WorkflowRow
	for _, sec := range r.Sections {
		latest := make(map[string]domain.RunRecord, len(sec.Latest))
		for _, run := range sec.Latest {
			latest[run.Group] = run
		}
		for _, g := range sec.Groups {
			rows = append(rows, WorkflowRow{Source: sec.Source, Stats: g, Latest: latest[g.Name]})
		}
	}
	return rows
}

// WorkflowListModel is an immutable Bubbletea-compatible model for the workflow list panel.
type WorkflowListModel struct {
	rows   []WorkflowRow
	cursor int
}

// NewWorkflowListModel creates a workflow list model with the given rows.
func NewWorkflowListModel(rows []WorkflowRow) WorkflowListModel {
	return WorkflowListModel{rows: rows, cursor: 0}
}

// MoveDown returns a new model with the cursor moved down by one.
func (m WorkflowListModel) MoveDown() WorkflowListModel {
	if m.cursor < len(m.rows)-1 {
		m.cursor++
	}
	return m
}

// MoveUp returns a new model with the cursor moved up by one.
func (m WorkflowListModel) MoveUp() WorkflowListModel {
	if m.cursor > 0 {
		m.cursor--
	}
	return m
}

// SelectedIndex returns the current cursor position.
func (m WorkflowListModel) SelectedIndex() int {
	return m.cursor
}

// Rows returns the full row slice.
func (m WorkflowListModel) Rows() []WorkflowRow {
	return m.rows
}

// Selected returns the currently highlighted row.
// Returns a zero-value row if the list is empty.
func (m WorkflowListModel) Selected() WorkflowRow {
	if len(m.rows) == 0 {
		return WorkflowRow{}
	}
	return m.rows[m.cursor]
}

// UpdateRows replaces the rows and keeps the cursor on the same workflow
// when it is still present.
func (m WorkflowListModel) UpdateRows(rows []WorkflowRow) WorkflowListModel {
	selected := m.Selected()
	m.rows = rows
	m.cursor = 0
	for i, r := range rows {
		if r.Source == selected.Source && r.Stats.Name == selected.Stats.Name {
			m.cursor = i
			break
		}
	}
	return m
}

// View renders the workflow list as a string.
func (m WorkflowListModel) View() string {
	if len(m.rows) == 0 {
		return "No workflow runs in this window."
	}
	var sb strings.Builder
	for i, r := range m.rows {
		prefix := "  "
		if i == m.cursor {
			prefix = "> "
		}
		sb.WriteString(fmt.Sprintf("%s%s %-8s %-28s %6.1f%% %4d runs  %s\n",
			prefix,
			statusIcon(r.Latest),
			truncate(r.Source, 8),
			truncate(r.Stats.Name, 28),
			r.Stats.SuccessRate,
			r.Stats.Total,
			formatAge(r.Latest.Timestamp()),
		))
	}
	return sb.String()
}

// anyInFlight reports whether the latest run of any row is still queued or running.
func anyInFlight(rows []WorkflowRow) bool {
	for _, r := range rows {
		if r.Latest.ID != "" && stats.IsInFlight(r.Latest) {
			return true
		}
	}
	return false
}

func statusIcon(r domain.RunRecord) string {
	if r.ID == "" {
		return " "
	}
	switch stats.Classify(r) {
	case domain.OutcomeSuccess:
		return "✓"
	case domain.OutcomeFailure:
		return "✗"
	case domain.OutcomeCancelled:
		return "○"
	}
	if stats.IsInFlight(r) {
		return "●"
	}
	return "?"
}

func formatAge(t time.Time) string {
	if t.IsZero() {
		return "--"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
