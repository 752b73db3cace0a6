package tui

import (
	"fmt"
	"strings"

	"github.com/waabox/gitpulse/internal/dashboard"
	"github.com/waabox/gitpulse/internal/domain"
)

// FailureRow is a failed job of an inspected run. Runs without failed jobs
// produce a single row carrying only the note.
type FailureRow struct {
	Run  domain.RunRecord
	Job  dashboard.FailedJob
	Note string
}

// RowsFromInspection flattens the inspected failures into list rows.
func RowsFromInspection(ins dashboard.Inspection) []FailureRow {
	var rows []FailureRow
	for _, f := range ins.Failures {
		if len(f.Jobs) == 0 {
			rows = append(rows, FailureRow{Run: f.Run, Note: f.Note})
			continue
		}
		for _, j := range f.Jobs {
			rows = append(rows, FailureRow{Run: f.Run, Job: j})
		}
	}
	return rows
}

// FailureListModel is an immutable model for the failed jobs panel.
type FailureListModel struct {
	rows   []FailureRow
	cursor int
}

// NewFailureListModel creates a failure list model.
func NewFailureListModel(rows []FailureRow) FailureListModel {
	return FailureListModel{rows: rows, cursor: 0}
}

// MoveDown returns a new model with the cursor moved down by one.
func (m FailureListModel) MoveDown() FailureListModel {
	if m.cursor < len(m.rows)-1 {
		m.cursor++
	}
	return m
}

// MoveUp returns a new model with the cursor moved up by one.
func (m FailureListModel) MoveUp() FailureListModel {
	if m.cursor > 0 {
		m.cursor--
	}
	return m
}

// Rows returns the full row slice.
func (m FailureListModel) Rows() []FailureRow {
	return m.rows
}

// Cursor returns the current cursor position.
func (m FailureListModel) Cursor() int {
	return m.cursor
}

// View renders the failed jobs as a string.
func (m FailureListModel) View() string {
	if len(m.rows) == 0 {
		return "No recent failures."
	}
	var sb strings.Builder
	for i, r := range m.rows {
		prefix := "  "
		if i == m.cursor {
			prefix = "> "
		}
		run := fmt.Sprintf("#%d", r.Run.Number)
		if r.Run.Number == 0 {
			run = truncate(r.Run.ID, 8)
		}
		if r.Job.Name == "" {
			sb.WriteString(fmt.Sprintf("%s%-8s %s\n", prefix, run, r.Note))
			continue
		}
		logState := fmt.Sprintf("%d snippet(s)", len(r.Job.Snippets))
		if !r.Job.LogFound {
			logState = "no log"
		}
		sb.WriteString(fmt.Sprintf("%s%-8s ✗ %-25s %-25s %s\n",
			prefix,
			run,
			truncate(r.Job.Name, 25),
			truncate(strings.Join(r.Job.FailedSteps, ", "), 25),
			logState,
		))
	}
	return sb.String()
}
